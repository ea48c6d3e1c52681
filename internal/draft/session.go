package draft

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/advisor"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/engine"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/logger"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/models"
)

const (
	DefaultLeagueSize = 12
	MinLeagueSize     = 2
	MaxLeagueSize     = 32

	// number of engine alternates returned with a recommendation
	alternateCount = 5
)

// Options wires optional collaborators into a Session
type Options struct {
	ID               string
	Advisor          advisor.Advisor
	AdvisorBoardSize int

	// Noise lets automated opponents pick among the best NoiseWidth soft-path candidates.
	// Forced and last-chance picks are never randomized.
	Noise      *rand.Rand
	NoiseWidth int
}

// Session is one draft's private board, rosters and pick log. It is not safe for
// concurrent use; callers serialize access.
type Session struct {
	id        string
	createdAt time.Time
	mode      models.DraftMode
	settings  models.DraftSettings

	board   []models.BoardPlayer
	index   map[string]int
	order   []int
	rosters map[int][]models.Player
	log     []models.DraftLogEntry
	blocked []string

	advisor    advisor.Advisor
	boardSize  int
	noise      *rand.Rand
	noiseWidth int
}

// NormalizeSettings fills defaults and rejects settings a draft cannot run with
func NormalizeSettings(s models.DraftSettings) (models.DraftSettings, error) {
	if s.LeagueSize == 0 {
		s.LeagueSize = DefaultLeagueSize
	}
	if s.LeagueSize < MinLeagueSize || s.LeagueSize > MaxLeagueSize {
		return s, fmt.Errorf("%w: league size %d must be between %d and %d", ErrInvalidSettings, s.LeagueSize, MinLeagueSize, MaxLeagueSize)
	}
	if s.PickPosition == 0 {
		s.PickPosition = 1
	}
	if s.PickPosition < 1 || s.PickPosition > s.LeagueSize {
		return s, fmt.Errorf("%w: pick position %d outside 1..%d", ErrInvalidSettings, s.PickPosition, s.LeagueSize)
	}

	s.Rounds = engine.ResolveCapacity(s.Rounds)
	if err := engine.CheckCapacity(0, engine.ComputeEssentialNeeds(nil), s.Rounds); err != nil {
		return s, fmt.Errorf("%w: %d rounds: %w", ErrInvalidSettings, s.Rounds, err)
	}

	switch s.ScoringFormat {
	case "":
		s.ScoringFormat = models.ScoringPPR
	case models.ScoringPPR, models.ScoringHalfPPR, models.ScoringStandard:
	default:
		return s, fmt.Errorf("%w: unknown scoring format %q", ErrInvalidSettings, s.ScoringFormat)
	}
	switch s.DraftFormat {
	case "":
		s.DraftFormat = models.FormatSnake
	case models.FormatSnake, models.FormatLinear:
	default:
		return s, fmt.Errorf("%w: unknown draft format %q", ErrInvalidSettings, s.DraftFormat)
	}
	return s, nil
}

// NewSession starts a draft over a validated board
func NewSession(mode models.DraftMode, settings models.DraftSettings, players []models.TieredPlayer, opts Options) (*Session, error) {
	if mode == "" {
		mode = models.ModeMock
	}
	if mode != models.ModeMock && mode != models.ModeAssistant {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidSettings, mode)
	}
	settings, err := NormalizeSettings(settings)
	if err != nil {
		return nil, err
	}
	if len(players) == 0 {
		return nil, fmt.Errorf("%w: empty player board", ErrInvalidSettings)
	}

	board := make([]models.BoardPlayer, len(players))
	for i, p := range players {
		board[i] = models.BoardPlayer{TieredPlayer: p, Status: models.StatusAvailable}
	}

	s := newSession(opts)
	s.mode = mode
	s.settings = settings
	s.createdAt = time.Now()
	if err := s.setBoard(board); err != nil {
		return nil, err
	}
	s.order = BuildOrder(settings.LeagueSize, settings.Rounds, settings.DraftFormat)
	return s, nil
}

// Restore rebuilds a session from a persisted draft state
func Restore(state models.DraftState, opts Options) (*Session, error) {
	settings, err := NormalizeSettings(state.Settings)
	if err != nil {
		return nil, err
	}
	if opts.ID == "" {
		opts.ID = state.ID
	}

	s := newSession(opts)
	s.mode = state.Mode
	if s.mode == "" {
		s.mode = models.ModeMock
	}
	s.settings = settings
	s.createdAt = time.UnixMilli(state.CreatedAt)
	if err := s.setBoard(append([]models.BoardPlayer(nil), state.Players...)); err != nil {
		return nil, err
	}
	s.order = BuildOrder(settings.LeagueSize, settings.Rounds, settings.DraftFormat)

	seen := map[string]bool{}
	for _, bp := range s.board {
		if bp.Status == models.StatusBlocked && !seen[bp.Name] {
			seen[bp.Name] = true
			s.blocked = append(s.blocked, bp.Name)
		}
	}
	for _, entry := range state.Picks {
		if entry.Team > 0 {
			s.rosters[entry.Team] = append(s.rosters[entry.Team], entry.Player)
		}
		s.log = append(s.log, entry)
	}
	return s, nil
}

func newSession(opts Options) *Session {
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	adv := opts.Advisor
	if adv == nil {
		adv = advisor.Disabled{}
	}
	width := opts.NoiseWidth
	if width <= 0 {
		width = 3
	}
	return &Session{
		id:         id,
		rosters:    make(map[int][]models.Player),
		advisor:    adv,
		boardSize:  opts.AdvisorBoardSize,
		noise:      opts.Noise,
		noiseWidth: width,
	}
}

func (s *Session) setBoard(board []models.BoardPlayer) error {
	s.board = board
	s.index = make(map[string]int, len(board))
	for i, p := range board {
		if _, dup := s.index[p.ID]; dup {
			return fmt.Errorf("%w: duplicate player id %s", ErrInvalidSettings, p.ID)
		}
		s.index[p.ID] = i
	}
	return nil
}

func (s *Session) ID() string                     { return s.id }
func (s *Session) Mode() models.DraftMode         { return s.mode }
func (s *Session) Settings() models.DraftSettings { return s.settings }
func (s *Session) Capacity() int                  { return s.settings.Rounds }
func (s *Session) UserTeam() int                  { return s.settings.PickPosition }

// Undrafted returns every player not yet drafted, blocked players included, in board order
func (s *Session) Undrafted() []models.TieredPlayer {
	out := make([]models.TieredPlayer, 0, len(s.board))
	for _, p := range s.board {
		if p.Status != models.StatusDrafted {
			out = append(out, p.TieredPlayer)
		}
	}
	return out
}

// Available returns the undrafted and unblocked pool in board order
func (s *Session) Available() []models.TieredPlayer {
	out := make([]models.TieredPlayer, 0, len(s.board))
	for _, p := range s.board {
		if p.Status == models.StatusAvailable {
			out = append(out, p.TieredPlayer)
		}
	}
	return out
}

// Blocked returns the names the user has excluded
func (s *Session) Blocked() []string {
	return append([]string(nil), s.blocked...)
}

// Roster returns a copy of a team's roster in pick order
func (s *Session) Roster(team int) []models.Player {
	return append([]models.Player(nil), s.rosters[team]...)
}

// Log returns a copy of the pick log
func (s *Session) Log() []models.DraftLogEntry {
	return append([]models.DraftLogEntry(nil), s.log...)
}

func (s *Session) hasAvailable() bool {
	for _, p := range s.board {
		if p.Status == models.StatusAvailable {
			return true
		}
	}
	return false
}

// Complete reports whether no further picks can be made
func (s *Session) Complete() bool {
	if !s.hasAvailable() {
		return true
	}
	if s.mode == models.ModeAssistant {
		return len(s.rosters[s.UserTeam()]) >= s.Capacity()
	}
	return len(s.log) >= len(s.order)
}

// OnTheClock returns the team due to pick and the overall pick number.
// ok is false once the draft is complete.
func (s *Session) OnTheClock() (team, overall int, ok bool) {
	if s.Complete() {
		return 0, 0, false
	}
	overall = len(s.log) + 1
	if s.mode == models.ModeAssistant {
		return s.UserTeam(), overall, true
	}
	return s.order[len(s.log)], overall, true
}

// IsUserTurn reports whether the user's team is on the clock
func (s *Session) IsUserTurn() bool {
	team, _, ok := s.OnTheClock()
	return ok && team == s.UserTeam()
}

// Draft records playerID going to team. Team 0 records a player taken outside the
// tracked league, which only assistant drafts allow.
func (s *Session) Draft(playerID string, team int, explanation string, source models.PickSource) (models.DraftLogEntry, error) {
	idx, ok := s.index[playerID]
	if !ok {
		return models.DraftLogEntry{}, fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	switch s.board[idx].Status {
	case models.StatusDrafted:
		return models.DraftLogEntry{}, fmt.Errorf("%w: %s", ErrAlreadyDrafted, s.board[idx].Name)
	case models.StatusBlocked:
		return models.DraftLogEntry{}, fmt.Errorf("%w: %s", ErrPlayerBlocked, s.board[idx].Name)
	}

	clock, _, ok := s.OnTheClock()
	if !ok {
		return models.DraftLogEntry{}, ErrDraftComplete
	}
	switch s.mode {
	case models.ModeMock:
		if team != clock {
			return models.DraftLogEntry{}, fmt.Errorf("%w: team %d is on the clock", ErrNotYourTurn, clock)
		}
	case models.ModeAssistant:
		if team != 0 && team != s.UserTeam() {
			return models.DraftLogEntry{}, fmt.Errorf("%w: assistant drafts only track team %d", ErrWrongMode, s.UserTeam())
		}
		if team != 0 && len(s.rosters[team]) >= s.Capacity() {
			return models.DraftLogEntry{}, ErrRosterFull
		}
	}

	return s.record(team, choice{player: s.board[idx].TieredPlayer, explanation: explanation, source: source}), nil
}

// UserPick drafts playerID onto the user's team
func (s *Session) UserPick(playerID string) (models.DraftLogEntry, error) {
	return s.Draft(playerID, s.UserTeam(), "", models.SourceUser)
}

// MarkTaken records a player drafted by someone else during an assistant draft
func (s *Session) MarkTaken(playerID string) (models.DraftLogEntry, error) {
	if s.mode != models.ModeAssistant {
		return models.DraftLogEntry{}, ErrWrongMode
	}
	return s.Draft(playerID, 0, "", models.SourceExternal)
}

// Block removes every undrafted player matching name or id from consideration.
// It returns the blocked player's name.
func (s *Session) Block(nameOrID string) (string, error) {
	name := ""
	if idx, ok := s.index[nameOrID]; ok {
		name = s.board[idx].Name
	} else {
		for _, p := range s.board {
			if p.Name == nameOrID {
				name = p.Name
				break
			}
		}
	}
	if name == "" {
		return "", fmt.Errorf("%w: %s", ErrPlayerNotFound, nameOrID)
	}

	changed := false
	for i := range s.board {
		if s.board[i].Name == name && s.board[i].Status == models.StatusAvailable {
			s.board[i].Status = models.StatusBlocked
			changed = true
		}
	}
	if !changed {
		for _, b := range s.blocked {
			if b == name {
				return name, nil
			}
		}
		return "", fmt.Errorf("%w: %s", ErrAlreadyDrafted, name)
	}
	s.blocked = append(s.blocked, name)
	return name, nil
}

type choice struct {
	player      models.TieredPlayer
	explanation string
	source      models.PickSource
	warning     string
}

func (s *Session) record(team int, c choice) models.DraftLogEntry {
	overall := len(s.log) + 1
	round, pickInRound := Slot(overall, s.settings.LeagueSize)
	entry := models.DraftLogEntry{
		Pick:            overall,
		Round:           round,
		PickInRound:     pickInRound,
		Team:            team,
		Player:          c.player.Player,
		Tier:            c.player.Tier,
		Explanation:     c.explanation,
		Source:          c.source,
		CapacityWarning: c.warning,
	}

	idx := s.index[c.player.ID]
	s.board[idx].Status = models.StatusDrafted
	s.board[idx].DraftedBy = team
	if team > 0 {
		s.rosters[team] = append(s.rosters[team], c.player.Player)
	}
	s.log = append(s.log, entry)
	return entry
}

func (s *Session) scoreRequest(team int) engine.ScoreRequest {
	roster := s.rosters[team]
	return engine.ScoreRequest{
		Available:  s.Undrafted(),
		Counts:     models.CountPositions(roster),
		RosterSize: len(roster),
		Capacity:   s.Capacity(),
		Blocked:    s.blocked,
	}
}

// decide picks for team: the advisor first unless fast mode is on, the engine on any failure
func (s *Session) decide(ctx context.Context, team int, purpose advisor.Purpose) (choice, error) {
	req := s.scoreRequest(team)
	pool := engine.FilterBlocked(req.Available, req.Blocked)
	if len(pool) == 0 {
		return choice{}, ErrDraftComplete
	}

	needs := engine.ComputeEssentialNeeds(req.Counts)
	var warning string
	if err := engine.CheckCapacity(req.RosterSize, needs, req.Capacity); err != nil {
		logger.Warn("Roster cannot fill every essential slot", "draft", s.id, "team", team, "error", err)
		warning = err.Error()
	}
	forced := engine.MustForceEssentialPick(req.RosterSize, needs, req.Capacity)

	if !s.settings.FastMode {
		if c, ok := s.consultAdvisor(ctx, team, purpose, pool, needs, forced); ok {
			c.warning = warning
			return c, nil
		}
	}

	pick := engine.ScorePick(req)
	if !pick.Found {
		return choice{}, ErrDraftComplete
	}
	c := choice{player: pick.Player, explanation: pick.Explanation(), source: models.SourceEngine, warning: warning}

	if s.noise != nil && pick.Path == engine.PathScored && team != s.UserTeam() {
		ranked := engine.RankCandidates(req)
		n := min(s.noiseWidth, len(ranked))
		alt := ranked[s.noise.Intn(n)]
		c.player = alt.Player
		c.explanation = candidateExplanation(alt)
	}
	return c, nil
}

func (s *Session) consultAdvisor(ctx context.Context, team int, purpose advisor.Purpose, pool []models.TieredPlayer, needs engine.EssentialNeeds, forced bool) (choice, bool) {
	out := s.advisor.Advise(ctx, advisor.Request{
		Purpose:   purpose,
		Settings:  s.settings,
		Team:      team,
		Roster:    s.Roster(team),
		Available: advisor.TopAvailable(pool, s.boardSize),
		Blocked:   s.Blocked(),
	})
	if !out.OK() {
		if out.Status != advisor.StatusDisabled {
			logger.Warn("Advisor failed, using engine pick", "draft", s.id, "team", team, "status", out.Status, "error", out.Err)
		}
		return choice{}, false
	}

	picked, found := findByName(pool, out.PlayerName)
	if !found {
		logger.Warn("Advisor picked a player not on the board, using engine pick", "draft", s.id, "team", team, "player", out.PlayerName)
		return choice{}, false
	}

	if forced && !engine.IsEssentialEligible(picked.Position, needs) {
		if essential, ok := engine.PickEssentialPlayer(pool, needs); ok {
			logger.Info("Overriding advisor pick to fill an essential slot", "draft", s.id, "team", team, "advisor_pick", picked.Name, "pick", essential.Name)
			return choice{
				player:      essential,
				explanation: fmt.Sprintf("Tier %d %s - %s (advisor suggested %s)", essential.Tier, essential.Position, engine.ReasonEssentialFill, picked.Name),
				source:      models.SourceOverride,
			}, true
		}
	}
	return choice{player: picked, explanation: out.Explanation, source: models.SourceAdvisor}, true
}

func findByName(pool []models.TieredPlayer, name string) (models.TieredPlayer, bool) {
	for _, p := range pool {
		if p.Name == name {
			return p, true
		}
	}
	return models.TieredPlayer{}, false
}

func candidateExplanation(c models.Candidate) string {
	reason := engine.ReasonBestValue
	if c.Priority > 2 {
		reason = engine.ReasonPositionNeed
	}
	return fmt.Sprintf("Tier %d %s - %s", c.Player.Tier, c.Player.Position, reason)
}

// Recommend suggests the user's next pick along with the engine's top alternatives
func (s *Session) Recommend(ctx context.Context) (models.Recommendation, error) {
	if s.Complete() {
		return models.Recommendation{}, ErrDraftComplete
	}
	team := s.UserTeam()
	c, err := s.decide(ctx, team, advisor.PurposeRecommend)
	if err != nil {
		return models.Recommendation{}, err
	}

	ranked := engine.RankCandidates(s.scoreRequest(team))
	if len(ranked) > alternateCount {
		ranked = ranked[:alternateCount]
	}
	return models.Recommendation{
		Player:      c.player,
		Explanation: c.explanation,
		Source:      c.source,
		Alternates:  ranked,
	}, nil
}

// AutoPick makes the pick for whichever team is on the clock in a mock draft
func (s *Session) AutoPick(ctx context.Context) (models.DraftLogEntry, error) {
	if s.mode != models.ModeMock {
		return models.DraftLogEntry{}, ErrWrongMode
	}
	if err := ctx.Err(); err != nil {
		return models.DraftLogEntry{}, err
	}
	team, overall, ok := s.OnTheClock()
	if !ok {
		return models.DraftLogEntry{}, ErrDraftComplete
	}

	c, err := s.decide(ctx, team, advisor.PurposeMockPick)
	if err != nil {
		return models.DraftLogEntry{}, err
	}
	entry := s.record(team, c)
	logger.Debug("Automated pick", "draft", s.id, "pick", overall, "team", team, "player", entry.Player.Name, "source", entry.Source)
	return entry, nil
}

// AdvanceToUser auto-picks for opponents until the user is on the clock or the draft ends
func (s *Session) AdvanceToUser(ctx context.Context) ([]models.DraftLogEntry, error) {
	var picks []models.DraftLogEntry
	for !s.Complete() && !s.IsUserTurn() {
		entry, err := s.AutoPick(ctx)
		if err != nil {
			return picks, err
		}
		picks = append(picks, entry)
	}
	return picks, nil
}

// RunToCompletion automates every remaining pick, the user's included
func (s *Session) RunToCompletion(ctx context.Context) ([]models.DraftLogEntry, error) {
	var picks []models.DraftLogEntry
	for !s.Complete() {
		entry, err := s.AutoPick(ctx)
		if err != nil {
			return picks, err
		}
		picks = append(picks, entry)
	}
	return picks, nil
}

// State snapshots the session for storage and display
func (s *Session) State() models.DraftState {
	state := models.DraftState{
		ID:          s.id,
		Mode:        s.mode,
		Settings:    s.settings,
		Players:     append([]models.BoardPlayer(nil), s.board...),
		Picks:       s.Log(),
		CreatedAt:   s.createdAt.UnixMilli(),
		CurrentPick: len(s.log) + 1,
		Complete:    s.Complete(),
	}
	if team, _, ok := s.OnTheClock(); ok {
		state.CurrentTeam = team
		state.IsUserTurn = team == s.UserTeam()
	}
	for slot := 1; slot <= s.settings.LeagueSize; slot++ {
		name := fmt.Sprintf("Team %d", slot)
		if slot == s.UserTeam() {
			name = "My Team"
		}
		if s.mode == models.ModeAssistant && slot != s.UserTeam() {
			continue
		}
		state.Teams = append(state.Teams, models.Team{Slot: slot, Name: name, Players: s.Roster(slot)})
	}
	return state
}
