package mocks

import (
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/dal"
	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/logger"
)

const defaultMockPostgresFile = "mock-postgres.sqlite"

// MockPostgresDAL stands in for Postgres during development. Drafts land in a
// SQLite file that uses the same schema and queries as the real store.
type MockPostgresDAL struct {
	*dal.SQLiteDAL
	file string
}

// NewMockPostgresDAL opens the stand-in store; an empty path uses mock-postgres.sqlite
func NewMockPostgresDAL(sqliteFile string) (*MockPostgresDAL, error) {
	if sqliteFile == "" {
		sqliteFile = defaultMockPostgresFile
	}
	logger.Info("Using MOCK Postgres (SQLite) for local development", "file", sqliteFile)

	store, err := dal.NewSQLiteDAL(sqliteFile)
	if err != nil {
		return nil, err
	}
	return &MockPostgresDAL{SQLiteDAL: store, file: sqliteFile}, nil
}

// File is the SQLite file backing the mock
func (m *MockPostgresDAL) File() string {
	return m.file
}
