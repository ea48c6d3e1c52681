package engine

import (
	"sort"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/models"
)

// IsEssentialEligible reports whether a player at pos would fill one of the open needs.
// RB and WR double as flex fillers only once both per-position floors are met.
func IsEssentialEligible(pos models.Position, needs EssentialNeeds) bool {
	flexOpen := needs.NeededRB == 0 && needs.NeededWR == 0 && needs.NeedFlex
	switch pos {
	case models.QB:
		return needs.NeedQB
	case models.TE:
		return needs.NeedTE
	case models.DST:
		return needs.NeedDST
	case models.K:
		return needs.NeedK
	case models.RB:
		return needs.NeededRB > 0 || flexOpen
	case models.WR:
		return needs.NeededWR > 0 || flexOpen
	}
	return false
}

// PickEssentialPlayer returns the best available player that fills an open essential need.
// Lower tier wins and ties go to the lexicographically smaller name.
// The bool is false when no available player is eligible.
func PickEssentialPlayer(available []models.TieredPlayer, needs EssentialNeeds) (models.TieredPlayer, bool) {
	var eligible []models.TieredPlayer
	for _, p := range available {
		if IsEssentialEligible(p.Position, needs) {
			eligible = append(eligible, p)
		}
	}
	if len(eligible) == 0 {
		return models.TieredPlayer{}, false
	}

	sortByTierThenName(eligible)
	return eligible[0], true
}

func sortByTierThenName(players []models.TieredPlayer) {
	sort.SliceStable(players, func(i, j int) bool {
		if players[i].Tier != players[j].Tier {
			return players[i].Tier < players[j].Tier
		}
		return players[i].Name < players[j].Name
	})
}
