package clickhouse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/draft"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/models"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/pubsub"
)

func TestBatchRows(t *testing.T) {
	started := time.Date(2026, 8, 20, 19, 0, 0, 0, time.UTC)
	batch := &draft.BatchResult{
		ID:        "batch-1",
		Settings:  models.DraftSettings{LeagueSize: 12, PickPosition: 5, ScoringFormat: models.ScoringHalfPPR},
		StartedAt: started,
		Simulations: []models.SimulationResult{
			{
				Simulation:        1,
				RosterSizeWhenK:   15,
				RosterSizeWhenDST: 14,
				PickLog: []models.DraftLogEntry{
					{Pick: 5, Round: 1, Player: models.Player{Name: "RB1-0", Position: models.RB}, Tier: 1, Source: models.SourceEngine},
					{Pick: 20, Round: 2, Player: models.Player{Name: "WR2-1", Position: models.WR}, Tier: 2, Source: models.SourceAdvisor},
				},
			},
			{Simulation: 2, Warnings: []string{"pick 3: over capacity"}},
		},
	}

	rosters, picks := batchRows(batch)

	require.Len(t, rosters, 2)
	assert.Equal(t, rosterRow{
		BatchID: "batch-1", Simulation: 1, LeagueSize: 12, PickPosition: 5,
		ScoringFormat: "Half PPR", KRosterSize: 15, DSTRosterSize: 14, RecordedAt: started,
	}, rosters[0])
	assert.Equal(t, uint16(1), rosters[1].Warnings)
	assert.Zero(t, rosters[1].KRosterSize)

	require.Len(t, picks, 2)
	assert.Equal(t, pickRow{
		BatchID: "batch-1", Simulation: 1, Pick: 20, Round: 2,
		Player: "WR2-1", Position: "WR", Tier: 2, Source: "advisor",
	}, picks[1])
}

func TestPickEventRow(t *testing.T) {
	tests := []struct {
		name string
		ev   pubsub.Event
		want PickEvent
		ok   bool
	}{
		{
			name: "in-process ints",
			ev: pubsub.Event{Type: pubsub.EventDraftPick, DraftID: "d1", Payload: map[string]interface{}{
				"pick": 3, "round": 1, "team": 3, "player": "QB1-0", "position": "QB", "tier": 1, "source": "user",
			}},
			want: PickEvent{DraftID: "d1", Pick: 3, Round: 1, Team: 3, Player: "QB1-0", Position: "QB", Tier: 1, Source: "user"},
			ok:   true,
		},
		{
			name: "decoded floats",
			ev: pubsub.Event{Type: pubsub.EventDraftPick, DraftID: "d2", Payload: map[string]interface{}{
				"pick": 14.0, "round": 2.0, "team": 0.0, "player": "K1", "position": "K", "tier": 16.0, "source": "taken",
			}},
			want: PickEvent{DraftID: "d2", Pick: 14, Round: 2, Player: "K1", Position: "K", Tier: 16, Source: "taken"},
			ok:   true,
		},
		{
			name: "other event type",
			ev:   pubsub.Event{Type: pubsub.EventDraftBlock, DraftID: "d1", Payload: map[string]interface{}{"pick": 1, "player": "x"}},
		},
		{
			name: "missing player",
			ev:   pubsub.Event{Type: pubsub.EventDraftPick, DraftID: "d1", Payload: map[string]interface{}{"pick": 1}},
		},
		{
			name: "no draft",
			ev:   pubsub.Event{Type: pubsub.EventDraftPick, Payload: map[string]interface{}{"pick": 1, "player": "x"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PickEventRow(tt.ev)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
