package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/draft"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/logger"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/models"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/pubsub"
)

// Client records simulation batches and live picks in ClickHouse for K/DST timing analysis
type Client struct {
	conn driver.Conn
}

// NewClient creates a new ClickHouse client and ensures the analytics tables exist
func NewClient(addr, database, username, password string) (*Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	c := &Client{conn: conn}
	if err := c.initSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS simulation_rosters (
			batch_id String,
			simulation UInt32,
			league_size UInt8,
			pick_position UInt8,
			scoring_format LowCardinality(String),
			k_roster_size UInt8,
			dst_roster_size UInt8,
			warnings UInt16,
			recorded_at DateTime
		) ENGINE = MergeTree ORDER BY (league_size, batch_id, simulation)`,
		`CREATE TABLE IF NOT EXISTS simulation_picks (
			batch_id String,
			simulation UInt32,
			pick UInt16,
			round UInt8,
			player String,
			position LowCardinality(String),
			tier UInt8,
			source LowCardinality(String)
		) ENGINE = MergeTree ORDER BY (batch_id, simulation, pick)`,
		`CREATE TABLE IF NOT EXISTS draft_pick_events (
			draft_id String,
			pick UInt16,
			round UInt8,
			team UInt8,
			player String,
			position LowCardinality(String),
			tier UInt8,
			source LowCardinality(String),
			ts DateTime64(3)
		) ENGINE = MergeTree ORDER BY (draft_id, pick)`,
	}
	for _, stmt := range statements {
		if err := c.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create ClickHouse schema: %w", err)
		}
	}
	return nil
}

// rosterRow is one simulated user roster
type rosterRow struct {
	BatchID       string
	Simulation    uint32
	LeagueSize    uint8
	PickPosition  uint8
	ScoringFormat string
	KRosterSize   uint8
	DSTRosterSize uint8
	Warnings      uint16
	RecordedAt    time.Time
}

// pickRow is one pick the user's team made in a simulation
type pickRow struct {
	BatchID    string
	Simulation uint32
	Pick       uint16
	Round      uint8
	Player     string
	Position   string
	Tier       uint8
	Source     string
}

// batchRows flattens a batch into roster and pick rows
func batchRows(batch *draft.BatchResult) ([]rosterRow, []pickRow) {
	rosters := make([]rosterRow, 0, len(batch.Simulations))
	var picks []pickRow
	for _, sim := range batch.Simulations {
		rosters = append(rosters, rosterRow{
			BatchID:       batch.ID,
			Simulation:    uint32(sim.Simulation),
			LeagueSize:    uint8(batch.Settings.LeagueSize),
			PickPosition:  uint8(batch.Settings.PickPosition),
			ScoringFormat: string(batch.Settings.ScoringFormat),
			KRosterSize:   uint8(sim.RosterSizeWhenK),
			DSTRosterSize: uint8(sim.RosterSizeWhenDST),
			Warnings:      uint16(len(sim.Warnings)),
			RecordedAt:    batch.StartedAt,
		})
		for _, e := range sim.PickLog {
			picks = append(picks, pickRow{
				BatchID:    batch.ID,
				Simulation: uint32(sim.Simulation),
				Pick:       uint16(e.Pick),
				Round:      uint8(e.Round),
				Player:     e.Player.Name,
				Position:   string(e.Player.Position),
				Tier:       uint8(e.Tier),
				Source:     string(e.Source),
			})
		}
	}
	return rosters, picks
}

// RecordBatch stores every simulated roster and user pick of a batch
func (c *Client) RecordBatch(ctx context.Context, batch *draft.BatchResult) error {
	rosters, picks := batchRows(batch)

	rb, err := c.conn.PrepareBatch(ctx, "INSERT INTO simulation_rosters")
	if err != nil {
		return fmt.Errorf("prepare roster batch: %w", err)
	}
	for _, r := range rosters {
		if err := rb.Append(r.BatchID, r.Simulation, r.LeagueSize, r.PickPosition, r.ScoringFormat,
			r.KRosterSize, r.DSTRosterSize, r.Warnings, r.RecordedAt); err != nil {
			rb.Abort()
			return fmt.Errorf("append roster row: %w", err)
		}
	}
	if err := rb.Send(); err != nil {
		return fmt.Errorf("send roster batch: %w", err)
	}

	if len(picks) == 0 {
		return nil
	}
	pb, err := c.conn.PrepareBatch(ctx, "INSERT INTO simulation_picks")
	if err != nil {
		return fmt.Errorf("prepare pick batch: %w", err)
	}
	for _, p := range picks {
		if err := pb.Append(p.BatchID, p.Simulation, p.Pick, p.Round, p.Player, p.Position, p.Tier, p.Source); err != nil {
			pb.Abort()
			return fmt.Errorf("append pick row: %w", err)
		}
	}
	if err := pb.Send(); err != nil {
		return fmt.Errorf("send pick batch: %w", err)
	}

	logger.Debug("Recorded simulation batch in ClickHouse", "batch", batch.ID, "rosters", len(rosters), "picks", len(picks))
	return nil
}

// RecordPickEvent stores a live draft pick published on the event stream
func (c *Client) RecordPickEvent(ctx context.Context, ev pubsub.Event) error {
	row, ok := PickEventRow(ev)
	if !ok {
		return nil
	}
	return c.conn.Exec(ctx, `
		INSERT INTO draft_pick_events (draft_id, pick, round, team, player, position, tier, source, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, row.DraftID, uint16(row.Pick), uint8(row.Round), uint8(row.Team), row.Player, row.Position,
		uint8(row.Tier), row.Source, time.UnixMilli(ev.TS))
}

// Timing aggregates K and DST roster sizes across every recorded simulation
func (c *Client) Timing(ctx context.Context) ([]models.TimingStat, error) {
	query := `
		SELECT
			league_size,
			count() AS sims,
			ifNotFinite(avgIf(k_roster_size, k_roster_size > 0), 0) AS avg_k,
			ifNotFinite(avgIf(dst_roster_size, dst_roster_size > 0), 0) AS avg_dst,
			countIf(k_roster_size > 0 AND k_roster_size < ?) AS early_k,
			countIf(dst_roster_size > 0 AND dst_roster_size < ?) AS early_dst
		FROM simulation_rosters
		GROUP BY league_size
		ORDER BY league_size
	`

	rows, err := c.conn.Query(ctx, query, draft.EarlyRosterSize, draft.EarlyRosterSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.TimingStat{}
	for rows.Next() {
		var (
			leagueSize   uint8
			sims, earlyK uint64
			earlyDST     uint64
			avgK, avgDST float64
		)
		if err := rows.Scan(&leagueSize, &sims, &avgK, &avgDST, &earlyK, &earlyDST); err != nil {
			return nil, err
		}
		out = append(out, models.TimingStat{
			LeagueSize:       int(leagueSize),
			Simulations:      int(sims),
			AvgKRosterSize:   avgK,
			AvgDSTRosterSize: avgDST,
			EarlyK:           int(earlyK),
			EarlyDST:         int(earlyDST),
		})
	}
	return out, rows.Err()
}

// Ping checks the ClickHouse connection
func (c *Client) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

// Close closes the ClickHouse connection
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
