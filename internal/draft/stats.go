package draft

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/models"
)

const (
	mostFrequentCount = 10

	// K or DST taken before the roster reaches this size counts as early
	EarlyRosterSize = 12
)

// PlayerFrequency is how many simulated rosters ended up with a player
type PlayerFrequency struct {
	Name     string          `json:"name"`
	Position models.Position `json:"position"`
	Count    int             `json:"count"`
}

// Distribution summarizes a sample of roster sizes
type Distribution struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summary aggregates the user's outcomes across a batch
type Summary struct {
	Simulations      int                         `json:"simulations"`
	MostFrequent     []PlayerFrequency           `json:"mostFrequent"`
	PositionAverages map[models.Position]float64 `json:"positionAverages"`
	PositionTotals   map[models.Position]int     `json:"positionTotals"`
	KRosterSize      Distribution                `json:"kRosterSize"`
	DSTRosterSize    Distribution                `json:"dstRosterSize"`
	EarlyK           int                         `json:"earlyK"`
	EarlyDST         int                         `json:"earlyDst"`
	MissingK         int                         `json:"missingK"`
	MissingDST       int                         `json:"missingDst"`
	Warnings         int                         `json:"warnings"`
}

// Summarize aggregates simulation results
func Summarize(results []models.SimulationResult) Summary {
	sum := Summary{
		Simulations:      len(results),
		PositionAverages: map[models.Position]float64{},
		PositionTotals:   map[models.Position]int{},
	}
	if len(results) == 0 {
		return sum
	}

	counts := map[string]*PlayerFrequency{}
	var kSizes, dstSizes []float64
	for _, r := range results {
		for _, p := range r.Roster {
			f, ok := counts[p.Name]
			if !ok {
				f = &PlayerFrequency{Name: p.Name, Position: p.Position}
				counts[p.Name] = f
			}
			f.Count++
			sum.PositionTotals[p.Position]++
		}

		if r.RosterSizeWhenK > 0 {
			kSizes = append(kSizes, float64(r.RosterSizeWhenK))
			if r.RosterSizeWhenK < EarlyRosterSize {
				sum.EarlyK++
			}
		} else {
			sum.MissingK++
		}
		if r.RosterSizeWhenDST > 0 {
			dstSizes = append(dstSizes, float64(r.RosterSizeWhenDST))
			if r.RosterSizeWhenDST < EarlyRosterSize {
				sum.EarlyDST++
			}
		} else {
			sum.MissingDST++
		}
		sum.Warnings += len(r.Warnings)
	}

	for pos, total := range sum.PositionTotals {
		sum.PositionAverages[pos] = float64(total) / float64(len(results))
	}

	freq := make([]PlayerFrequency, 0, len(counts))
	for _, f := range counts {
		freq = append(freq, *f)
	}
	sort.Slice(freq, func(i, j int) bool {
		if freq[i].Count != freq[j].Count {
			return freq[i].Count > freq[j].Count
		}
		return freq[i].Name < freq[j].Name
	})
	if len(freq) > mostFrequentCount {
		freq = freq[:mostFrequentCount]
	}
	sum.MostFrequent = freq

	sum.KRosterSize = distribution(kSizes)
	sum.DSTRosterSize = distribution(dstSizes)
	return sum
}

func distribution(x []float64) Distribution {
	d := Distribution{Count: len(x)}
	switch len(x) {
	case 0:
		return d
	case 1:
		d.Mean, d.Min, d.Max = x[0], x[0], x[0]
		return d
	}
	d.Mean, d.StdDev = stat.MeanStdDev(x, nil)
	d.Min = floats.Min(x)
	d.Max = floats.Max(x)
	return d
}
