package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/clickhouse"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/draft"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/logger"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/models"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/pubsub"
)

// MockClickHouseClient keeps simulation analytics in memory for local development
type MockClickHouseClient struct {
	mu      sync.Mutex
	rosters []rosterSample
	picks   []clickhouse.PickEvent
}

type rosterSample struct {
	leagueSize int
	kSize      int
	dstSize    int
}

// NewMockClickHouseClient creates a mock ClickHouse client
func NewMockClickHouseClient() *MockClickHouseClient {
	logger.Info("Using MOCK ClickHouse (in-memory analytics) for local development")
	return &MockClickHouseClient{}
}

// RecordBatch stores the user's K/DST timing from every simulation in the batch
func (m *MockClickHouseClient) RecordBatch(_ context.Context, batch *draft.BatchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sim := range batch.Simulations {
		m.rosters = append(m.rosters, rosterSample{
			leagueSize: batch.Settings.LeagueSize,
			kSize:      sim.RosterSizeWhenK,
			dstSize:    sim.RosterSizeWhenDST,
		})
	}
	logger.Debug("Mock ClickHouse: recorded batch", "batch", batch.ID, "simulations", len(batch.Simulations))
	return nil
}

// RecordPickEvent stores a live draft pick
func (m *MockClickHouseClient) RecordPickEvent(_ context.Context, ev pubsub.Event) error {
	row, ok := clickhouse.PickEventRow(ev)
	if !ok {
		return nil
	}
	m.mu.Lock()
	m.picks = append(m.picks, row)
	m.mu.Unlock()
	return nil
}

// PickEvents returns the recorded picks for one draft in arrival order
func (m *MockClickHouseClient) PickEvents(draftID string) []clickhouse.PickEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []clickhouse.PickEvent
	for _, p := range m.picks {
		if p.DraftID == draftID {
			out = append(out, p)
		}
	}
	return out
}

// Timing aggregates K/DST timing per league size. Simulations that never took a
// K or DST are left out of that position's average.
func (m *MockClickHouseClient) Timing(_ context.Context) ([]models.TimingStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	type acc struct {
		stat       models.TimingStat
		kSum, dSum int
		kN, dN     int
	}
	groups := map[int]*acc{}
	for _, r := range m.rosters {
		g, ok := groups[r.leagueSize]
		if !ok {
			g = &acc{stat: models.TimingStat{LeagueSize: r.leagueSize}}
			groups[r.leagueSize] = g
		}
		g.stat.Simulations++
		if r.kSize > 0 {
			g.kSum += r.kSize
			g.kN++
			if r.kSize < draft.EarlyRosterSize {
				g.stat.EarlyK++
			}
		}
		if r.dstSize > 0 {
			g.dSum += r.dstSize
			g.dN++
			if r.dstSize < draft.EarlyRosterSize {
				g.stat.EarlyDST++
			}
		}
	}

	out := make([]models.TimingStat, 0, len(groups))
	for _, g := range groups {
		if g.kN > 0 {
			g.stat.AvgKRosterSize = float64(g.kSum) / float64(g.kN)
		}
		if g.dN > 0 {
			g.stat.AvgDSTRosterSize = float64(g.dSum) / float64(g.dN)
		}
		out = append(out, g.stat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LeagueSize < out[j].LeagueSize })
	return out, nil
}

// Ping always succeeds
func (m *MockClickHouseClient) Ping(context.Context) error {
	return nil
}

// Close is a no-op for mock client
func (m *MockClickHouseClient) Close() error {
	return nil
}
