package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// DefaultSQLiteFile is the database file name inside the save folder.
const DefaultSQLiteFile = ".newsfold.db"

// Record is one processed message.
type Record struct {
	ID          string    `db:"id"`
	ProcessedAt time.Time `db:"processed_at"`
	RunID       string    `db:"run_id"`
}

// SQLiteLedger keeps processed IDs in a SQLite database.
type SQLiteLedger struct {
	db    *sqlx.DB
	runID string
}

// OpenSQLite opens (or creates) the database at dbPath and applies any
// pending migrations. ":memory:" is accepted for tests.
func OpenSQLite(dbPath string) (*SQLiteLedger, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One writer at a time; this also keeps ":memory:" on one connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	l := &SQLiteLedger{db: db}
	if err := l.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return l, nil
}

// SetRunID tags subsequent Adds with the id of the current run.
func (l *SQLiteLedger) SetRunID(id string) {
	l.runID = id
}

// Close closes the underlying database connection.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func (l *SQLiteLedger) runMigrations() error {
	current := 0

	var tableCount int
	err := l.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}
	if tableCount > 0 {
		if err := l.db.Get(&current, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if _, err := l.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}
	return nil
}

// Contains reports whether id was recorded.
func (l *SQLiteLedger) Contains(ctx context.Context, id string) (bool, error) {
	var n int
	if err := l.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM processed_messages WHERE id = ?", id); err != nil {
		return false, fmt.Errorf("looking up %s: %w", id, err)
	}
	return n > 0, nil
}

// Add records id. Re-adding an id keeps the first record.
func (l *SQLiteLedger) Add(ctx context.Context, id string) error {
	_, err := l.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO processed_messages (id, processed_at, run_id) VALUES (?, ?, ?)",
		id, time.Now().UTC(), l.runID,
	)
	if err != nil {
		return fmt.Errorf("recording %s: %w", id, err)
	}
	return nil
}

// Records lists processed messages, oldest first.
func (l *SQLiteLedger) Records(ctx context.Context) ([]Record, error) {
	var records []Record
	err := l.db.SelectContext(ctx, &records,
		"SELECT id, processed_at, run_id FROM processed_messages ORDER BY processed_at, id")
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	return records, nil
}
