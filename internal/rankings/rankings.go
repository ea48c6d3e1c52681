package rankings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/models"
)

// ErrInvalidRankings is returned for any upload that cannot become a draft board
var ErrInvalidRankings = errors.New("invalid rankings")

// Entry is one row of an uploaded rankings file
type Entry struct {
	Rank     *int    `json:"rank"`
	Name     *string `json:"name"`
	Team     *string `json:"team"`
	Position *string `json:"position"`
	Tier     *int    `json:"tier"`
}

// Tier groups board players sharing a tier
type Tier struct {
	Tier    int                   `json:"tier"`
	Players []models.TieredPlayer `json:"players"`
}

var whitespace = regexp.MustCompile(`\s+`)

// PlayerID builds the stable board id for a player
func PlayerID(name, team string) string {
	return whitespace.ReplaceAllString(name+"-"+team, "-")
}

// Parse decodes and validates a JSON rankings upload
func Parse(r io.Reader) ([]models.TieredPlayer, error) {
	var entries []Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("%w: decode json: %v", ErrInvalidRankings, err)
	}
	return FromEntries(entries)
}

// LoadFile reads a rankings upload from disk
func LoadFile(path string) ([]models.TieredPlayer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rankings: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// FromEntries validates uploaded rows and converts them into board players
func FromEntries(entries []Entry) ([]models.TieredPlayer, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: must be a non-empty array of players", ErrInvalidRankings)
	}

	players := make([]models.TieredPlayer, 0, len(entries))
	seen := make(map[string]int, len(entries))
	for i, e := range entries {
		row := i + 1
		switch {
		case e.Rank == nil:
			return nil, missingKey(row, "rank")
		case e.Name == nil:
			return nil, missingKey(row, "name")
		case e.Team == nil:
			return nil, missingKey(row, "team")
		case e.Position == nil:
			return nil, missingKey(row, "position")
		case e.Tier == nil:
			return nil, missingKey(row, "tier")
		}
		if *e.Name == "" {
			return nil, fmt.Errorf("%w: player %d has an empty name", ErrInvalidRankings, row)
		}
		pos, err := models.ParsePosition(*e.Position)
		if err != nil {
			return nil, fmt.Errorf("%w: player %d: %v", ErrInvalidRankings, row, err)
		}
		if *e.Tier < 0 {
			return nil, fmt.Errorf("%w: player %d has negative tier %d", ErrInvalidRankings, row, *e.Tier)
		}

		id := PlayerID(*e.Name, *e.Team)
		if prev, ok := seen[id]; ok {
			return nil, fmt.Errorf("%w: player %d duplicates player %d (%s)", ErrInvalidRankings, row, prev, id)
		}
		seen[id] = row

		players = append(players, models.TieredPlayer{
			Player: models.Player{ID: id, Name: *e.Name, Position: pos, Team: *e.Team},
			Tier:   *e.Tier,
			Rank:   *e.Rank,
		})
	}

	SortBoard(players)
	return players, nil
}

func missingKey(row int, key string) error {
	return fmt.Errorf("%w: player %d must contain the key %q", ErrInvalidRankings, row, key)
}

// SortBoard orders players by tier, then rank, then name
func SortBoard(players []models.TieredPlayer) {
	sort.SliceStable(players, func(i, j int) bool {
		a, b := players[i], players[j]
		if a.Tier != b.Tier {
			return a.Tier < b.Tier
		}
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		return a.Name < b.Name
	})
}

// GroupByTier buckets a sorted board into ascending tiers
func GroupByTier(players []models.TieredPlayer) []Tier {
	var tiers []Tier
	index := map[int]int{}
	for _, p := range players {
		i, ok := index[p.Tier]
		if !ok {
			i = len(tiers)
			index[p.Tier] = i
			tiers = append(tiers, Tier{Tier: p.Tier})
		}
		tiers[i].Players = append(tiers[i].Players, p)
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Tier < tiers[j].Tier })
	return tiers
}
