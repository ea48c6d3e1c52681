package draft

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/advisor"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/engine"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/models"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/rankings"
)

func player(name string, pos models.Position, tier int) models.TieredPlayer {
	return models.TieredPlayer{
		Player: models.Player{ID: name, Name: name, Position: pos, Team: "FA"},
		Tier:   tier,
	}
}

// smallBoard has one of everything a 9-slot roster needs plus a spare QB
func smallBoard() []models.TieredPlayer {
	return []models.TieredPlayer{
		player("QB A", models.QB, 1),
		player("QB B", models.QB, 1),
		player("RB 1", models.RB, 2),
		player("RB 2", models.RB, 3),
		player("RB 3", models.RB, 5),
		player("WR 1", models.WR, 3),
		player("WR 2", models.WR, 4),
		player("WR 3", models.WR, 6),
		player("TE 1", models.TE, 4),
		player("K 1", models.K, 9),
		player("DST 1", models.DST, 9),
	}
}

func firstAt(t *testing.T, pool []models.TieredPlayer, pos models.Position) models.TieredPlayer {
	t.Helper()
	for _, p := range pool {
		if p.Position == pos {
			return p
		}
	}
	t.Fatalf("no %s available", pos)
	return models.TieredPlayer{}
}

func TestNormalizeSettings(t *testing.T) {
	got, err := NormalizeSettings(models.DraftSettings{})
	require.NoError(t, err)
	assert.Equal(t, models.DraftSettings{
		LeagueSize:    12,
		PickPosition:  1,
		Rounds:        16,
		ScoringFormat: models.ScoringPPR,
		DraftFormat:   models.FormatSnake,
	}, got)

	tests := []struct {
		name     string
		settings models.DraftSettings
		wantErr  error
	}{
		{"league too small", models.DraftSettings{LeagueSize: 1}, ErrInvalidSettings},
		{"league too large", models.DraftSettings{LeagueSize: 33}, ErrInvalidSettings},
		{"pick outside league", models.DraftSettings{LeagueSize: 10, PickPosition: 11}, ErrInvalidSettings},
		{"negative pick", models.DraftSettings{PickPosition: -1}, ErrInvalidSettings},
		{"capacity below essentials", models.DraftSettings{Rounds: 8}, engine.ErrCapacityExceeded},
		{"unknown scoring", models.DraftSettings{ScoringFormat: "Superflex"}, ErrInvalidSettings},
		{"unknown format", models.DraftSettings{DraftFormat: "Auction"}, ErrInvalidSettings},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeSettings(tt.settings)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	got, err = NormalizeSettings(models.DraftSettings{Rounds: 9, ScoringFormat: models.ScoringStandard, DraftFormat: models.FormatLinear})
	require.NoError(t, err)
	assert.Equal(t, 9, got.Rounds)
}

func TestNewSessionRejects(t *testing.T) {
	_, err := NewSession(models.ModeMock, models.DraftSettings{}, nil, Options{})
	assert.ErrorIs(t, err, ErrInvalidSettings)

	_, err = NewSession("keeper", models.DraftSettings{}, smallBoard(), Options{})
	assert.ErrorIs(t, err, ErrInvalidSettings)

	dup := append(smallBoard(), player("QB A", models.QB, 2))
	_, err = NewSession(models.ModeMock, models.DraftSettings{}, dup, Options{})
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestMockDraftFillsEveryRoster(t *testing.T) {
	ctx := context.Background()
	s, err := NewSession(models.ModeMock, models.DraftSettings{LeagueSize: 10, PickPosition: 4}, rankings.SampleBoard(), Options{})
	require.NoError(t, err)

	picks, err := s.RunToCompletion(ctx)
	require.NoError(t, err)
	require.Len(t, picks, 160)
	assert.True(t, s.Complete())
	assert.Equal(t, 1, picks[0].Team)
	assert.Equal(t, 10, picks[10].Team, "snake order reverses the second round")

	for team := 1; team <= 10; team++ {
		roster := s.Roster(team)
		require.Len(t, roster, 16, "team %d", team)
		counts := models.CountPositions(roster)
		needs := engine.ComputeEssentialNeeds(counts)
		assert.Zero(t, engine.EssentialSlotsRemaining(needs), "team %d left essentials open: %+v", team, counts)
		assert.Equal(t, 1, counts[models.K], "team %d kickers", team)
		assert.Equal(t, 1, counts[models.DST], "team %d defenses", team)
	}

	_, err = s.AutoPick(ctx)
	assert.ErrorIs(t, err, ErrDraftComplete)
}

func TestUserPickTurnOrder(t *testing.T) {
	ctx := context.Background()
	s, err := NewSession(models.ModeMock, models.DraftSettings{LeagueSize: 4, PickPosition: 2}, rankings.SampleBoard(), Options{})
	require.NoError(t, err)

	team, overall, ok := s.OnTheClock()
	require.True(t, ok)
	assert.Equal(t, 1, team)
	assert.Equal(t, 1, overall)

	top := s.Available()[0]
	_, err = s.UserPick(top.ID)
	assert.ErrorIs(t, err, ErrNotYourTurn)

	auto, err := s.AdvanceToUser(ctx)
	require.NoError(t, err)
	require.Len(t, auto, 1)
	assert.True(t, s.IsUserTurn())

	taken := auto[0].Player.ID
	_, err = s.UserPick(taken)
	assert.ErrorIs(t, err, ErrAlreadyDrafted)

	_, err = s.UserPick("nobody")
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	choice := s.Available()[0]
	entry, err := s.UserPick(choice.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, entry.Pick)
	assert.Equal(t, 2, entry.Team)
	assert.Equal(t, models.SourceUser, entry.Source)
	assert.Equal(t, []models.Player{choice.Player}, s.Roster(2))
	assert.False(t, s.IsUserTurn())
}

func TestBlockExcludesAutomatedPicks(t *testing.T) {
	ctx := context.Background()
	s, err := NewSession(models.ModeMock, models.DraftSettings{LeagueSize: 2, Rounds: 9}, rankings.SampleBoard(), Options{})
	require.NoError(t, err)

	top := s.Available()[0]
	name, err := s.Block(top.ID)
	require.NoError(t, err)
	assert.Equal(t, top.Name, name)
	assert.Equal(t, []string{top.Name}, s.Blocked())

	name, err = s.Block(top.Name)
	require.NoError(t, err, "blocking twice is a no-op")
	assert.Equal(t, top.Name, name)
	assert.Len(t, s.Blocked(), 1)

	_, err = s.Block("Nobody Special")
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	_, err = s.Draft(top.ID, 1, "", models.SourceUser)
	assert.ErrorIs(t, err, ErrPlayerBlocked)

	picks, err := s.RunToCompletion(ctx)
	require.NoError(t, err)
	for _, p := range picks {
		assert.NotEqual(t, top.Name, p.Player.Name)
	}
	assert.Contains(t, s.Undrafted(), top)
	assert.NotContains(t, s.Available(), top)
}

func TestBlockDraftedPlayer(t *testing.T) {
	s, err := NewSession(models.ModeAssistant, models.DraftSettings{Rounds: 9}, smallBoard(), Options{})
	require.NoError(t, err)

	_, err = s.MarkTaken("WR 1")
	require.NoError(t, err)
	_, err = s.Block("WR 1")
	assert.ErrorIs(t, err, ErrAlreadyDrafted)
}

func TestAdvisorPickUsed(t *testing.T) {
	var seen advisor.Request
	adv := advisor.Func(func(_ context.Context, req advisor.Request) advisor.Outcome {
		seen = req
		return advisor.Outcome{PlayerName: "WR 2", Explanation: "upside play", Status: advisor.StatusOK}
	})
	s, err := NewSession(models.ModeMock, models.DraftSettings{LeagueSize: 2, Rounds: 10}, smallBoard(), Options{Advisor: adv, AdvisorBoardSize: 4})
	require.NoError(t, err)

	entry, err := s.AutoPick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "WR 2", entry.Player.Name)
	assert.Equal(t, "upside play", entry.Explanation)
	assert.Equal(t, models.SourceAdvisor, entry.Source)

	assert.Equal(t, advisor.PurposeMockPick, seen.Purpose)
	assert.Equal(t, 1, seen.Team)
	assert.Len(t, seen.Available, 4)
}

func TestAdvisorFallsBackToEngine(t *testing.T) {
	tests := []struct {
		name    string
		outcome advisor.Outcome
	}{
		{"timeout", advisor.Outcome{Status: advisor.StatusTimeout, Err: context.DeadlineExceeded}},
		{"failure", advisor.Outcome{Status: advisor.StatusFailed, Err: errors.New("boom")}},
		{"unknown player", advisor.Outcome{Status: advisor.StatusOK, PlayerName: "Not On Board"}},
		{"blocked player", advisor.Outcome{Status: advisor.StatusOK, PlayerName: "RB 1"}},
		{"empty name", advisor.Outcome{Status: advisor.StatusOK}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adv := advisor.Func(func(context.Context, advisor.Request) advisor.Outcome { return tt.outcome })
			s, err := NewSession(models.ModeMock, models.DraftSettings{LeagueSize: 2, Rounds: 10}, smallBoard(), Options{Advisor: adv})
			require.NoError(t, err)
			_, err = s.Block("RB 1")
			require.NoError(t, err)

			want := engine.ScorePick(s.scoreRequest(1))
			entry, err := s.AutoPick(context.Background())
			require.NoError(t, err)
			assert.Equal(t, models.SourceEngine, entry.Source)
			assert.Equal(t, want.Player.Name, entry.Player.Name)
			assert.Equal(t, want.Explanation(), entry.Explanation)
			assert.NotEqual(t, "RB 1", entry.Player.Name)
		})
	}
}

func TestFastModeSkipsAdvisor(t *testing.T) {
	var calls atomic.Int32
	adv := advisor.Func(func(context.Context, advisor.Request) advisor.Outcome {
		calls.Add(1)
		return advisor.Outcome{Status: advisor.StatusOK, PlayerName: "WR 3"}
	})
	s, err := NewSession(models.ModeMock, models.DraftSettings{LeagueSize: 2, Rounds: 10, FastMode: true}, smallBoard(), Options{Advisor: adv})
	require.NoError(t, err)

	_, err = s.AdvanceToUser(context.Background())
	require.NoError(t, err)
	rec, err := s.Recommend(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SourceEngine, rec.Source)
	assert.Zero(t, calls.Load())
}

func TestAdvisorOverriddenWhenEssentialPickForced(t *testing.T) {
	adv := advisor.Func(func(context.Context, advisor.Request) advisor.Outcome {
		return advisor.Outcome{Status: advisor.StatusOK, PlayerName: "QB B", Explanation: "stack QBs"}
	})
	s, err := NewSession(models.ModeAssistant, models.DraftSettings{Rounds: 9}, smallBoard(), Options{Advisor: adv})
	require.NoError(t, err)

	_, err = s.UserPick("QB A")
	require.NoError(t, err)

	rec, err := s.Recommend(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SourceOverride, rec.Source)
	assert.Equal(t, "RB 1", rec.Player.Name)
	assert.Equal(t, "Tier 2 RB - essential need fill (advisor suggested QB B)", rec.Explanation)
}

func TestRecommendAlternates(t *testing.T) {
	s, err := NewSession(models.ModeMock, models.DraftSettings{LeagueSize: 6, PickPosition: 3}, rankings.SampleBoard(), Options{})
	require.NoError(t, err)
	_, err = s.AdvanceToUser(context.Background())
	require.NoError(t, err)

	want := engine.ScorePick(s.scoreRequest(3))
	rec, err := s.Recommend(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want.Player, rec.Player)
	assert.Equal(t, want.Explanation(), rec.Explanation)
	assert.Equal(t, models.SourceEngine, rec.Source)
	require.Len(t, rec.Alternates, 5)
	for i := 1; i < len(rec.Alternates); i++ {
		assert.LessOrEqual(t, rec.Alternates[i-1].Score, rec.Alternates[i].Score)
	}
	assert.Len(t, s.Log(), 2, "recommending does not draft")
}

func TestNoiseIsSeeded(t *testing.T) {
	run := func(seed int64) []models.DraftLogEntry {
		s, err := NewSession(models.ModeMock, models.DraftSettings{LeagueSize: 8, PickPosition: 5}, rankings.SampleBoard(),
			Options{Noise: rand.New(rand.NewSource(seed))})
		require.NoError(t, err)
		picks, err := s.RunToCompletion(context.Background())
		require.NoError(t, err)
		return picks
	}

	first, second := run(42), run(42)
	assert.Equal(t, first, second)

	for _, e := range first {
		assert.True(t, e.Source == models.SourceEngine, "pick %d source %s", e.Pick, e.Source)
		assert.NotEmpty(t, e.Explanation)
	}
}

func TestCapacityWarningRecorded(t *testing.T) {
	ctx := context.Background()
	s, err := NewSession(models.ModeMock, models.DraftSettings{LeagueSize: 2, Rounds: 9}, rankings.SampleBoard(), Options{})
	require.NoError(t, err)

	_, err = s.UserPick(firstAt(t, s.Available(), models.QB).ID)
	require.NoError(t, err)
	_, err = s.AdvanceToUser(ctx)
	require.NoError(t, err)
	_, err = s.UserPick(firstAt(t, s.Available(), models.QB).ID)
	require.NoError(t, err, "a second QB leaves eight essential slots for seven picks")

	picks, err := s.RunToCompletion(ctx)
	require.NoError(t, err)

	warned := 0
	for _, e := range picks {
		if e.Team == 1 && e.CapacityWarning != "" {
			warned++
			assert.Contains(t, e.CapacityWarning, engine.ErrCapacityExceeded.Error())
		}
		if e.Team == 2 {
			assert.Empty(t, e.CapacityWarning)
		}
	}
	assert.Positive(t, warned)
	assert.Len(t, s.Roster(1), 9)
}

func TestAssistantDraft(t *testing.T) {
	ctx := context.Background()
	s, err := NewSession(models.ModeAssistant, models.DraftSettings{LeagueSize: 10, PickPosition: 7, Rounds: 9}, smallBoard(), Options{})
	require.NoError(t, err)

	_, err = s.AutoPick(ctx)
	assert.ErrorIs(t, err, ErrWrongMode)

	taken, err := s.MarkTaken("QB A")
	require.NoError(t, err)
	assert.Equal(t, 0, taken.Team)
	assert.Equal(t, models.SourceExternal, taken.Source)

	_, err = s.Draft("QB B", 3, "", models.SourceUser)
	assert.ErrorIs(t, err, ErrWrongMode)

	entry, err := s.UserPick("QB B")
	require.NoError(t, err)
	assert.Equal(t, 7, entry.Team)
	assert.Equal(t, 2, entry.Pick)
	assert.True(t, s.IsUserTurn())

	state := s.State()
	require.Len(t, state.Teams, 1)
	assert.Equal(t, "My Team", state.Teams[0].Name)
	assert.Equal(t, 7, state.Teams[0].Slot)
	assert.Equal(t, 3, state.CurrentPick)
	assert.Equal(t, models.StatusDrafted, state.Players[0].Status)
	assert.Equal(t, 0, state.Players[0].DraftedBy)

	mock, err := NewSession(models.ModeMock, models.DraftSettings{}, smallBoard(), Options{})
	require.NoError(t, err)
	_, err = mock.MarkTaken("QB A")
	assert.ErrorIs(t, err, ErrWrongMode)
}

func TestAssistantRosterFull(t *testing.T) {
	s, err := NewSession(models.ModeAssistant, models.DraftSettings{Rounds: 9}, smallBoard(), Options{})
	require.NoError(t, err)

	for _, id := range []string{"QB A", "RB 1", "RB 2", "WR 1", "WR 2", "TE 1", "K 1", "DST 1", "WR 3"} {
		_, err := s.UserPick(id)
		require.NoError(t, err, id)
	}
	assert.True(t, s.Complete())

	_, err = s.UserPick("RB 3")
	assert.ErrorIs(t, err, ErrDraftComplete)
	_, err = s.Recommend(context.Background())
	assert.ErrorIs(t, err, ErrDraftComplete)
}

func TestRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewSession(models.ModeMock, models.DraftSettings{LeagueSize: 4, PickPosition: 4}, rankings.SampleBoard(), Options{ID: "draft-1"})
	require.NoError(t, err)
	_, err = s.Block(s.Available()[5].Name)
	require.NoError(t, err)
	_, err = s.AdvanceToUser(ctx)
	require.NoError(t, err)

	restored, err := Restore(s.State(), Options{})
	require.NoError(t, err)
	assert.Equal(t, "draft-1", restored.ID())
	assert.Equal(t, s.Log(), restored.Log())
	assert.Equal(t, s.Blocked(), restored.Blocked())
	assert.Equal(t, s.Available(), restored.Available())
	for team := 1; team <= 4; team++ {
		assert.Equal(t, s.Roster(team), restored.Roster(team))
	}

	wantTeam, wantPick, _ := s.OnTheClock()
	team, pick, ok := restored.OnTheClock()
	require.True(t, ok)
	assert.Equal(t, wantTeam, team)
	assert.Equal(t, wantPick, pick)
	assert.True(t, restored.IsUserTurn())

	next, err := restored.UserPick(restored.Available()[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 4, next.Pick)
}
