package engine

import (
	"fmt"
	"sort"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/models"
)

// Rationale strings attached to a Pick
const (
	ReasonNoPlayers     = "No available players"
	ReasonEssentialFill = "essential need fill"
	ReasonLastChance    = "last chance to fill position"
	ReasonPositionNeed  = "filling position need"
	ReasonBestValue     = "best available value"
)

// PickPath records which stage of the scorer produced a pick
type PickPath string

const (
	PathNone      PickPath = "none"
	PathForced    PickPath = "forced"
	PathSafeguard PickPath = "safeguard"
	PathScored    PickPath = "scored"
)

const (
	priorityWeight = 0.55

	// K/DST bonuses stay off until the roster holds this many players, whatever the capacity
	specialTeamsBonusRosterSize = 12

	lateFloor        = 8
	lateFraction     = 0.75
	endPicksFromLast = 2
)

// ScoreRequest is the snapshot one pick decision is made from
type ScoreRequest struct {
	Available  []models.TieredPlayer
	Counts     models.PositionCounts
	RosterSize int
	Capacity   int
	Blocked    []string
}

// Pick is the scorer's decision. Found is false only when the filtered pool is empty.
type Pick struct {
	Player models.TieredPlayer `json:"player"`
	Found  bool                `json:"found"`
	Reason string              `json:"reason"`
	Path   PickPath            `json:"path"`
	Score  float64             `json:"score"`
}

// Explanation renders the pick the way it appears in the draft log
func (p Pick) Explanation() string {
	if !p.Found {
		return "All available players are blocked"
	}
	return fmt.Sprintf("Tier %d %s - %s", p.Player.Tier, p.Player.Position, p.Reason)
}

// Phase is the roster-size window the draft is in
type Phase struct {
	Late bool
	End  bool
}

// DraftPhase places rosterSize within the late and end windows scaled to capacity
func DraftPhase(rosterSize, capacity int) Phase {
	capacity = ResolveCapacity(capacity)
	late := max(lateFloor, int(lateFraction*float64(capacity)))
	end := max(late+1, capacity-endPicksFromLast)
	return Phase{
		Late: rosterSize >= late,
		End:  rosterSize >= end,
	}
}

// PositionPriority is how strongly the roster wants another player at pos
func PositionPriority(pos models.Position, counts models.PositionCounts, phase Phase) float64 {
	switch pos {
	case models.QB:
		return backupPriority(counts[pos], 2.5, phase)
	case models.TE:
		return backupPriority(counts[pos], 3.5, phase)
	case models.RB:
		rb := counts[pos]
		switch {
		case rb < 2:
			return 6
		case rb < 4:
			return 4
		case rb < 5:
			return 2
		}
		return 0.5
	case models.WR:
		wr := counts[pos]
		switch {
		case wr < 2:
			return 6
		case wr < 5:
			return 5
		case wr < 6:
			return 2.5
		}
		return 1
	case models.K, models.DST:
		switch {
		case counts[pos] > 0:
			return 0
		case phase.End:
			return 8
		case phase.Late:
			return 1
		}
		return -2
	}
	return 1
}

func backupPriority(count int, starter float64, phase Phase) float64 {
	switch {
	case count == 0:
		return starter
	case phase.Late && count == 1:
		return 0.5
	}
	return 0
}

// EssentialBonus nudges the soft scorer toward open floors
func EssentialBonus(pos models.Position, needs EssentialNeeds, rosterSize int) float64 {
	switch pos {
	case models.QB:
		if needs.NeedQB {
			return 1.2
		}
	case models.TE:
		if needs.NeedTE {
			return 1.0
		}
	case models.RB:
		return depthBonus(needs.NeededRB, needs.NeedFlex)
	case models.WR:
		return depthBonus(needs.NeededWR, needs.NeedFlex)
	case models.DST:
		if needs.NeedDST && rosterSize >= specialTeamsBonusRosterSize {
			return 2.2
		}
	case models.K:
		if needs.NeedK && rosterSize >= specialTeamsBonusRosterSize {
			return 2.0
		}
	}
	return 0
}

func depthBonus(needed int, flex bool) float64 {
	if needed > 0 {
		return 1.5
	}
	if flex {
		return 0.6
	}
	return 0
}

// FilterBlocked drops every player whose name is blocked
func FilterBlocked(available []models.TieredPlayer, blocked []string) []models.TieredPlayer {
	if len(blocked) == 0 {
		return append([]models.TieredPlayer(nil), available...)
	}
	skip := make(map[string]struct{}, len(blocked))
	for _, name := range blocked {
		skip[name] = struct{}{}
	}
	out := make([]models.TieredPlayer, 0, len(available))
	for _, p := range available {
		if _, ok := skip[p.Name]; !ok {
			out = append(out, p)
		}
	}
	return out
}

// RankCandidates scores every unblocked player on the soft path, best first.
// Equal scores keep their pool order.
func RankCandidates(req ScoreRequest) []models.Candidate {
	pool := FilterBlocked(req.Available, req.Blocked)
	return rank(pool, req)
}

// CandidateLimit is how many ranked candidates accompany a scored pick
const CandidateLimit = 10

// TopCandidates returns at most n of RankCandidates. The result is never nil.
func TopCandidates(req ScoreRequest, n int) []models.Candidate {
	ranked := RankCandidates(req)
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func rank(pool []models.TieredPlayer, req ScoreRequest) []models.Candidate {
	needs := ComputeEssentialNeeds(req.Counts)
	phase := DraftPhase(req.RosterSize, req.Capacity)

	candidates := make([]models.Candidate, 0, len(pool))
	for _, p := range pool {
		priority := PositionPriority(p.Position, req.Counts, phase)
		bonus := EssentialBonus(p.Position, needs, req.RosterSize)
		candidates = append(candidates, models.Candidate{
			Player:   p,
			Score:    float64(p.Tier) - priorityWeight*priority - bonus,
			Priority: priority,
			Bonus:    bonus,
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score < candidates[j].Score
	})
	return candidates
}

// ScorePick chooses the next player for a roster.
//
// A forced essential pick takes precedence over everything. With two or fewer picks
// left an open K or DST slot is filled next. Otherwise the lowest soft score wins.
func ScorePick(req ScoreRequest) Pick {
	pool := FilterBlocked(req.Available, req.Blocked)
	if len(pool) == 0 {
		return Pick{Reason: ReasonNoPlayers, Path: PathNone}
	}

	capacity := ResolveCapacity(req.Capacity)
	needs := ComputeEssentialNeeds(req.Counts)

	if MustForceEssentialPick(req.RosterSize, needs, capacity) {
		if p, ok := PickEssentialPlayer(pool, needs); ok {
			return Pick{Player: p, Found: true, Reason: ReasonEssentialFill, Path: PathForced, Score: float64(p.Tier)}
		}
	}

	if capacity-req.RosterSize <= endPicksFromLast {
		for _, pos := range []models.Position{models.K, models.DST} {
			if !IsEssentialEligible(pos, needs) {
				continue
			}
			if p, ok := bestAt(pool, pos); ok {
				return Pick{Player: p, Found: true, Reason: ReasonLastChance, Path: PathSafeguard, Score: float64(p.Tier)}
			}
		}
	}

	req.Capacity = capacity
	best := rank(pool, req)[0]
	reason := ReasonBestValue
	if best.Priority > 2 {
		reason = ReasonPositionNeed
	}
	return Pick{Player: best.Player, Found: true, Reason: reason, Path: PathScored, Score: best.Score}
}

func bestAt(pool []models.TieredPlayer, pos models.Position) (models.TieredPlayer, bool) {
	var matches []models.TieredPlayer
	for _, p := range pool {
		if p.Position == pos {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		return models.TieredPlayer{}, false
	}
	sortByTierThenName(matches)
	return matches[0], true
}
