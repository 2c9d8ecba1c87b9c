package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"go-query-cache/internal/model"
)

// ErrNotFound is returned when a fetch record does not exist.
var ErrNotFound = errors.New("fetch not found")

// DefaultListLimit caps ListFetches when no limit is given.
const DefaultListLimit = 50

// Store keeps the fetch history in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the history database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history db: %w", err)
	}
	// every connection to :memory: is a separate database
	if dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	fetchTable := `
	CREATE TABLE IF NOT EXISTS fetches (
		id TEXT PRIMARY KEY,
		query_name TEXT,
		query_key TEXT,
		cache_path TEXT,
		outcome TEXT,
		row_count INTEGER,
		error_message TEXT,
		started_at DATETIME,
		duration_ms INTEGER
	);
	`
	keyIndex := `CREATE INDEX IF NOT EXISTS idx_fetches_query_key ON fetches (query_key);`

	if _, err := s.db.Exec(fetchTable); err != nil {
		return fmt.Errorf("failed to create fetches table: %w", err)
	}
	if _, err := s.db.Exec(keyIndex); err != nil {
		return fmt.Errorf("failed to create fetches index: %w", err)
	}
	return nil
}

// SaveFetch stores a fetch record.
func (s *Store) SaveFetch(ctx context.Context, rec model.FetchRecord) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO fetches
		(id, query_name, query_key, cache_path, outcome, row_count, error_message, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.QueryName, rec.QueryKey, rec.CachePath, string(rec.Outcome),
		rec.RowCount, rec.Error, rec.StartedAt.UTC(), rec.DurationMs)
	if err != nil {
		return fmt.Errorf("failed to save fetch %s: %w", rec.ID, err)
	}
	return nil
}

// ListFetches returns the most recent fetches first. A limit <= 0 uses
// DefaultListLimit.
func (s *Store) ListFetches(ctx context.Context, limit int) ([]model.FetchRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `SELECT
		id, query_name, query_key, cache_path, outcome, row_count, error_message, started_at, duration_ms
		FROM fetches ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list fetches: %w", err)
	}
	defer rows.Close()

	records := []model.FetchRecord{}
	for rows.Next() {
		rec, err := scanFetch(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetFetch returns a single fetch record.
func (s *Store) GetFetch(ctx context.Context, id string) (model.FetchRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT
		id, query_name, query_key, cache_path, outcome, row_count, error_message, started_at, duration_ms
		FROM fetches WHERE id = ?`, id)
	rec, err := scanFetch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.FetchRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFetch(sc scanner) (model.FetchRecord, error) {
	var (
		rec       model.FetchRecord
		outcome   string
		errMsg    sql.NullString
		startedAt time.Time
	)
	err := sc.Scan(&rec.ID, &rec.QueryName, &rec.QueryKey, &rec.CachePath, &outcome,
		&rec.RowCount, &errMsg, &startedAt, &rec.DurationMs)
	if err != nil {
		return model.FetchRecord{}, err
	}
	rec.Outcome = model.Outcome(outcome)
	rec.Error = errMsg.String
	rec.StartedAt = startedAt.UTC()
	return rec, nil
}
