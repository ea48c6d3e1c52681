package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/dal"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/draft"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/engine"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/models"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/rankings"
)

func TestBuildEssentialNeeds(t *testing.T) {
	res, err := buildEssentialNeeds(EssentialNeedsArgs{
		Roster: []RosterPlayer{
			{Name: "A", Position: "qb"}, {Name: "B", Position: "RB"}, {Name: "C", Position: "RB"},
			{Name: "D", Position: "WR"}, {Name: "E", Position: "WR"}, {Name: "F", Position: "TE"},
		},
		Capacity: 9,
	})
	require.NoError(t, err)
	assert.Equal(t, engine.EssentialNeeds{NeedK: true, NeedDST: true, NeedFlex: true}, res.Needs)
	assert.Equal(t, 3, res.SlotsRemaining)
	assert.Equal(t, 3, res.PicksRemaining)
	assert.True(t, res.MustForce)
	assert.Empty(t, res.Warning)

	over, err := buildEssentialNeeds(EssentialNeedsArgs{Roster: make([]RosterPlayer, 0), Capacity: 8})
	require.NoError(t, err)
	assert.Equal(t, 9, over.SlotsRemaining)
	assert.Contains(t, over.Warning, "essential roster slots exceed remaining capacity")

	_, err = buildEssentialNeeds(EssentialNeedsArgs{Roster: []RosterPlayer{{Position: "LB"}}})
	assert.ErrorContains(t, err, "roster[0]")
}

func TestBuildScorePickDefaultBoard(t *testing.T) {
	res, err := buildScorePick(ScorePickArgs{}, rankings.SampleBoard())
	require.NoError(t, err)
	assert.True(t, res.Pick.Found)
	assert.Equal(t, "RB1-0", res.Pick.Player.Name)
	assert.Equal(t, engine.PathScored, res.Pick.Path)
	require.Len(t, res.Alternates, defaultTop)
	assert.Equal(t, res.Pick.Player.ID, res.Alternates[0].Player.ID)
}

func TestBuildScorePickForcedFill(t *testing.T) {
	roster := []RosterPlayer{
		{Position: "QB"}, {Position: "RB"}, {Position: "RB"}, {Position: "WR"},
		{Position: "WR"}, {Position: "TE"}, {Position: "RB"}, {Position: "WR"},
	}
	res, err := buildScorePick(ScorePickArgs{
		Roster:   roster,
		Capacity: 10,
		Available: []PoolPlayer{
			{Name: "Star Back", Position: "RB", Tier: 1},
			{Name: "Leg", Position: "K", Tier: 12},
			{Name: "Wall", Position: "DST", Tier: 14},
		},
		Top: 1,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Leg", res.Pick.Player.Name)
	assert.Equal(t, engine.PathForced, res.Pick.Path)
	assert.Equal(t, "Tier 12 K - essential need fill", res.Explanation)
	assert.Len(t, res.Alternates, 1)
}

func TestBuildScorePickRejectsBadPool(t *testing.T) {
	_, err := buildScorePick(ScorePickArgs{Available: []PoolPlayer{{Name: "X", Position: "P", Tier: 1}}}, nil)
	assert.ErrorIs(t, err, rankings.ErrInvalidPlayers)
	assert.ErrorContains(t, err, "available[0]")

	_, err = buildScorePick(ScorePickArgs{Available: []PoolPlayer{{Position: "K", Tier: 1}}}, nil)
	assert.ErrorContains(t, err, "name is required")

	_, err = buildScorePick(ScorePickArgs{Available: []PoolPlayer{{Name: "X", Position: "K", Tier: -1}}}, nil)
	assert.ErrorContains(t, err, "tier cannot be negative")
}

func connect(t *testing.T, svc *draft.Service) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	_, err := NewServer(svc, "test").Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestToolsOverSession(t *testing.T) {
	ctx := context.Background()
	svc := draft.NewService(draft.ServiceOptions{Store: dal.NewMemoryDAL()})
	session := connect(t, svc)

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"essential_needs", "score_pick", "simulate_drafts", "recommend_pick"}, names)

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "essential_needs",
		Arguments: map[string]any{"roster": []map[string]any{{"position": "K"}}},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	var needs EssentialNeedsResult
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &needs))
	assert.False(t, needs.Needs.NeedK)
	assert.Equal(t, 15, needs.PicksRemaining)

	res, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "simulate_drafts",
		Arguments: map[string]any{"league_size": 4, "simulations": 2, "noise": true, "seed": 3},
	})
	require.NoError(t, err)
	require.False(t, res.IsError, textOf(t, res))
	var sim SimulateDraftsResult
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &sim))
	assert.NotEmpty(t, sim.BatchID)
	assert.Equal(t, 2, sim.Summary.Simulations)
	assert.Equal(t, 16, sim.Settings.Rounds)
}

func TestSimulateDraftsWithRankings(t *testing.T) {
	ctx := context.Background()
	session := connect(t, draft.NewService(draft.ServiceOptions{Store: dal.NewMemoryDAL()}))

	positions := []string{"QB", "RB", "RB", "WR", "WR", "TE", "K", "DST"}
	entries := make([]map[string]any, 0, 40)
	for i := 0; i < 40; i++ {
		entries = append(entries, map[string]any{
			"rank": i + 1, "name": fmt.Sprintf("Custom %d", i+1), "team": "CUS",
			"position": positions[i%len(positions)], "tier": i/len(positions) + 1,
		})
	}
	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "simulate_drafts",
		Arguments: map[string]any{"league_size": 2, "rounds": 9, "simulations": 1, "rankings": entries},
	})
	require.NoError(t, err)
	require.False(t, res.IsError, textOf(t, res))
	var sim SimulateDraftsResult
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &sim))
	assert.Equal(t, 1, sim.Summary.Simulations)
	assert.Equal(t, 9, sim.Settings.Rounds)

	res, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "simulate_drafts",
		Arguments: map[string]any{"rankings": []map[string]any{{"rank": 1, "name": "Flex", "team": "FA", "position": "FLEX", "tier": 1}}},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "invalid rankings")
}

func TestRecommendPickTool(t *testing.T) {
	ctx := context.Background()
	svc := draft.NewService(draft.ServiceOptions{Store: dal.NewMemoryDAL()})
	state, err := svc.CreateDraft(ctx, models.ModeAssistant, models.DraftSettings{LeagueSize: 10}, nil)
	require.NoError(t, err)
	session := connect(t, svc)

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "recommend_pick",
		Arguments: map[string]any{"draft_id": state.ID},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	var rec models.Recommendation
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &rec))
	assert.Equal(t, "RB1-0", rec.Player.Name)
	assert.Equal(t, models.SourceEngine, rec.Source)

	res, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "recommend_pick",
		Arguments: map[string]any{"draft_id": "missing"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "draft not found")
}
