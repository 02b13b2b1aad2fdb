package db

import (
	"database/sql"
	"time"
)

// DB handles all database operations with a shared connection pool
type DB struct {
	db *sql.DB
}

func NewDB(path string) (*DB, error) {
	conn, err := connection(path)
	if err != nil {
		return nil, err
	}
	return &DB{db: conn}, nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

const timeLayout = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// Older rows may carry full RFC3339 timestamps
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t
}
