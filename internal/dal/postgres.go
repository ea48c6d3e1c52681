package dal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresDAL implements DraftDAL using PostgreSQL
type PostgresDAL struct {
	sqlDAL
}

// NewPostgresDAL creates a new PostgreSQL data access layer optimized for CloudNativePG
func NewPostgresDAL(connString string) (*PostgresDAL, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, err
	}

	// CloudNativePG optimization: Configure connection pool settings
	db.SetMaxOpenConns(25)                 // Limit max connections (CloudNativePG default max_connections is 100)
	db.SetMaxIdleConns(5)                  // Keep some idle connections for quick reuse
	db.SetConnMaxLifetime(5 * time.Minute) // Recycle connections to handle failovers gracefully
	db.SetConnMaxIdleTime(1 * time.Minute) // Close idle connections to reduce load

	// Test connection with retry logic for Kubernetes DNS resolution
	maxRetries := 5
	retryDelay := 5 * time.Second
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		lastErr = db.PingContext(ctx)
		cancel()

		if lastErr == nil {
			break
		}
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	if lastErr != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres after %d retries: %w", maxRetries, lastErr)
	}

	dal := &PostgresDAL{sqlDAL{db: db, postgres: true}}
	if err := dal.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return dal, nil
}

func (p *PostgresDAL) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS drafts (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		settings JSONB NOT NULL,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS draft_players (
		draft_id TEXT NOT NULL REFERENCES drafts(id) ON DELETE CASCADE,
		player_id TEXT NOT NULL,
		name TEXT NOT NULL,
		position TEXT NOT NULL,
		team TEXT NOT NULL,
		tier INTEGER NOT NULL,
		overall_rank INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'available',
		drafted_by INTEGER NOT NULL DEFAULT 0,
		sort_order INTEGER NOT NULL,
		PRIMARY KEY (draft_id, player_id)
	);

	CREATE TABLE IF NOT EXISTS draft_picks (
		draft_id TEXT NOT NULL REFERENCES drafts(id) ON DELETE CASCADE,
		pick INTEGER NOT NULL,
		round INTEGER NOT NULL,
		pick_in_round INTEGER NOT NULL,
		team INTEGER NOT NULL,
		player_id TEXT NOT NULL,
		player_data JSONB NOT NULL,
		tier INTEGER NOT NULL,
		explanation TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL,
		capacity_warning TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (draft_id, pick)
	);

	-- CloudNativePG optimization: Add indexes for common query patterns
	CREATE INDEX IF NOT EXISTS idx_draft_players_status ON draft_players(draft_id, status);
	CREATE INDEX IF NOT EXISTS idx_drafts_created_at ON drafts(created_at DESC);
	`

	if _, err := p.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create postgres schema: %w", err)
	}
	return nil
}
