package models

import (
	"fmt"
	"strings"
)

// Position is one of the six roster positions a player can hold
type Position string

const (
	QB  Position = "QB"
	RB  Position = "RB"
	WR  Position = "WR"
	TE  Position = "TE"
	K   Position = "K"
	DST Position = "DST"
)

// Positions lists every valid position in board display order
var Positions = []Position{QB, RB, WR, TE, K, DST}

// Valid reports whether p is one of the six known positions
func (p Position) Valid() bool {
	switch p {
	case QB, RB, WR, TE, K, DST:
		return true
	}
	return false
}

// ParsePosition converts an uploaded position label into a Position
func ParsePosition(s string) (Position, error) {
	p := Position(strings.ToUpper(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("invalid position %q (valid: QB, RB, WR, TE, K, DST)", s)
	}
	return p, nil
}

// ScoringFormat is the league scoring system
type ScoringFormat string

const (
	ScoringPPR      ScoringFormat = "PPR"
	ScoringHalfPPR  ScoringFormat = "Half PPR"
	ScoringStandard ScoringFormat = "Standard"
)

// DraftFormat controls pick order between rounds
type DraftFormat string

const (
	FormatSnake  DraftFormat = "Snake"
	FormatLinear DraftFormat = "Linear"
)

// DraftMode selects between pick advice and a full mock draft
type DraftMode string

const (
	ModeAssistant DraftMode = "assistant"
	ModeMock      DraftMode = "mock"
)

// Player represents a football player on the draft board
type Player struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Position Position `json:"position"`
	Team     string   `json:"team"`
}

// TieredPlayer is a Player annotated with its uploaded value tier (lower is better)
type TieredPlayer struct {
	Player
	Tier int `json:"tier"`
	Rank int `json:"rank,omitempty"`
}

// PlayerStatus tracks where a board player currently sits
type PlayerStatus string

const (
	StatusAvailable PlayerStatus = "available"
	StatusDrafted   PlayerStatus = "drafted"
	StatusBlocked   PlayerStatus = "blocked"
)

// BoardPlayer is a TieredPlayer with its draft status
type BoardPlayer struct {
	TieredPlayer
	Status    PlayerStatus `json:"status"`
	DraftedBy int          `json:"draftedBy,omitempty"`
}

// PositionCounts maps each position to the number rostered. Missing keys count as zero.
type PositionCounts map[Position]int

// CountPositions derives a fresh PositionCounts snapshot from a roster
func CountPositions(roster []Player) PositionCounts {
	counts := PositionCounts{QB: 0, RB: 0, WR: 0, TE: 0, K: 0, DST: 0}
	for _, p := range roster {
		counts[p.Position]++
	}
	return counts
}

// DraftSettings are the league settings for one draft
type DraftSettings struct {
	LeagueSize    int           `json:"leagueSize" toml:"league_size"`
	PickPosition  int           `json:"pickPosition" toml:"pick_position"`
	Rounds        int           `json:"rounds" toml:"rounds"`
	ScoringFormat ScoringFormat `json:"scoringFormat" toml:"scoring_format"`
	DraftFormat   DraftFormat   `json:"draftFormat" toml:"draft_format"`
	FastMode      bool          `json:"fastMode" toml:"fast_mode"`
}

// PickSource records who decided a pick
type PickSource string

const (
	SourceUser     PickSource = "user"
	SourceEngine   PickSource = "engine"
	SourceAdvisor  PickSource = "advisor"
	SourceOverride PickSource = "forced-override"
	SourceExternal PickSource = "taken"
)

// DraftLogEntry is one pick in the draft log
type DraftLogEntry struct {
	Pick            int        `json:"pick"`
	Round           int        `json:"round"`
	PickInRound     int        `json:"pickInRound"`
	Team            int        `json:"team"`
	Player          Player     `json:"player"`
	Tier            int        `json:"tier"`
	Explanation     string     `json:"explanation,omitempty"`
	Source          PickSource `json:"source"`
	CapacityWarning string     `json:"capacityWarning,omitempty"`
}

// Team is one drafting team and its roster in pick order
type Team struct {
	Slot    int      `json:"slot"`
	Name    string   `json:"name"`
	Players []Player `json:"players"`
}

// DraftState represents the complete state of one draft
type DraftState struct {
	ID          string          `json:"id"`
	Mode        DraftMode       `json:"mode"`
	Settings    DraftSettings   `json:"settings"`
	Players     []BoardPlayer   `json:"players"`
	Picks       []DraftLogEntry `json:"picks"`
	CreatedAt   int64           `json:"createdAt"`
	Teams       []Team          `json:"teams,omitempty"`
	CurrentPick int             `json:"currentPick"`
	CurrentTeam int             `json:"currentTeam"`
	IsUserTurn  bool            `json:"isUserTurn"`
	Complete    bool            `json:"complete"`
}

// DraftSummary is the lightweight listing form of a draft
type DraftSummary struct {
	ID        string        `json:"id"`
	Mode      DraftMode     `json:"mode"`
	Settings  DraftSettings `json:"settings"`
	Picks     int           `json:"picks"`
	CreatedAt int64         `json:"createdAt"`
}

// Recommendation is a suggested pick with its reasoning
type Recommendation struct {
	Player      TieredPlayer `json:"player"`
	Explanation string       `json:"explanation"`
	Source      PickSource   `json:"source"`
	Alternates  []Candidate  `json:"alternates,omitempty"`
}

// Candidate is a scored board player
type Candidate struct {
	Player   TieredPlayer `json:"player"`
	Score    float64      `json:"score"`
	Priority float64      `json:"priority"`
	Bonus    float64      `json:"bonus"`
}

// SimulationResult is the outcome of one automated mock draft for the user's team
type SimulationResult struct {
	Simulation        int             `json:"simulation"`
	Roster            []Player        `json:"roster"`
	PickLog           []DraftLogEntry `json:"pickLog"`
	RosterSizeWhenK   int             `json:"rosterSizeWhenK,omitempty"`
	RosterSizeWhenDST int             `json:"rosterSizeWhenDst,omitempty"`
	Warnings          []string        `json:"warnings,omitempty"`
}

// TimingStat aggregates when simulated user rosters filled K and DST, per league size
type TimingStat struct {
	LeagueSize       int     `json:"leagueSize"`
	Simulations      int     `json:"simulations"`
	AvgKRosterSize   float64 `json:"avgKRosterSize"`
	AvgDSTRosterSize float64 `json:"avgDstRosterSize"`
	EarlyK           int     `json:"earlyK"`
	EarlyDST         int     `json:"earlyDst"`
}
