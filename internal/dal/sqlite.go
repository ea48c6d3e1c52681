package dal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDAL implements DraftDAL using SQLite
type SQLiteDAL struct {
	sqlDAL
}

// NewSQLiteDAL creates a new SQLite data access layer
func NewSQLiteDAL(dbPath string) (*SQLiteDAL, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// One writer at a time; also keeps ":memory:" databases on a single connection
	db.SetMaxOpenConns(1)

	dal := &SQLiteDAL{sqlDAL{db: db}}
	if err := dal.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return dal, nil
}

func (s *SQLiteDAL) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS drafts (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		settings TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS draft_players (
		draft_id TEXT NOT NULL,
		player_id TEXT NOT NULL,
		name TEXT NOT NULL,
		position TEXT NOT NULL,
		team TEXT NOT NULL,
		tier INTEGER NOT NULL,
		overall_rank INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'available',
		drafted_by INTEGER NOT NULL DEFAULT 0,
		sort_order INTEGER NOT NULL,
		PRIMARY KEY (draft_id, player_id),
		FOREIGN KEY (draft_id) REFERENCES drafts(id)
	);

	CREATE TABLE IF NOT EXISTS draft_picks (
		draft_id TEXT NOT NULL,
		pick INTEGER NOT NULL,
		round INTEGER NOT NULL,
		pick_in_round INTEGER NOT NULL,
		team INTEGER NOT NULL,
		player_id TEXT NOT NULL,
		player_data TEXT NOT NULL,
		tier INTEGER NOT NULL,
		explanation TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL,
		capacity_warning TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (draft_id, pick),
		FOREIGN KEY (draft_id) REFERENCES drafts(id)
	);

	CREATE INDEX IF NOT EXISTS idx_draft_players_status ON draft_players(draft_id, status);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create sqlite schema: %w", err)
	}
	return nil
}
