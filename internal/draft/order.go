package draft

import "github.com/Billy-Davies-2/fantasy-draft-assistant/internal/models"

// BuildOrder lists the picking team (1-based) for every overall pick.
// Snake drafts reverse every even round; linear drafts never do.
func BuildOrder(leagueSize, rounds int, format models.DraftFormat) []int {
	if leagueSize <= 0 || rounds <= 0 {
		return nil
	}
	order := make([]int, 0, leagueSize*rounds)
	for round := 1; round <= rounds; round++ {
		for i := 0; i < leagueSize; i++ {
			order = append(order, TeamForSlot(round, i+1, leagueSize, format))
		}
	}
	return order
}

// Slot converts a 1-based overall pick number into its round and pick within the round
func Slot(overall, leagueSize int) (round, pickInRound int) {
	if leagueSize <= 0 || overall <= 0 {
		return 0, 0
	}
	round = (overall-1)/leagueSize + 1
	pickInRound = (overall-1)%leagueSize + 1
	return round, pickInRound
}

// TeamForSlot returns the team picking at pickInRound of the given round
func TeamForSlot(round, pickInRound, leagueSize int, format models.DraftFormat) int {
	if format != models.FormatLinear && round%2 == 0 {
		// Even rounds go backward (... 3, 2, 1)
		return leagueSize - pickInRound + 1
	}
	// Odd rounds go forward (1, 2, 3, ...)
	return pickInRound
}

// TeamAt returns the team holding a 1-based overall pick
func TeamAt(overall, leagueSize int, format models.DraftFormat) int {
	round, pickInRound := Slot(overall, leagueSize)
	if round == 0 {
		return 0
	}
	return TeamForSlot(round, pickInRound, leagueSize, format)
}

// UserPicks lists the overall pick numbers that belong to team
func UserPicks(order []int, team int) []int {
	var picks []int
	for i, t := range order {
		if t == team {
			picks = append(picks, i+1)
		}
	}
	return picks
}
