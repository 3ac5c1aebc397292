/*
Package sqlite provides a SQLite-backed implementation of the engine's
RecordStore interface.

PURPOSE:
  The engine is storage-shape agnostic: it needs key-value-by-id records
  with query-by-field, nothing more. This implementation keeps every
  record as a JSON document in a single table, so the same layout works
  whether the "document store" is this file on disk or a remote database.

SCHEMA:
  records(collection, id, doc, updated_at) with PRIMARY KEY (collection, id).
  Put is an upsert; Delete of an absent id is a no-op; Query uses SQLite's
  json_extract over the document column.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/commissions.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - engine/store.go: Interface definition
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/provizie/commission-engine/engine"
)

// Store implements engine.RecordStore over SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		collection TEXT NOT NULL,
		id         TEXT NOT NULL,
		doc        TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	);

	CREATE INDEX IF NOT EXISTS idx_records_collection
		ON records(collection);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RECORD STORE (engine.RecordStore interface)
// =============================================================================

func (s *Store) GetAll(ctx context.Context, collection string) ([]engine.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryRecords(ctx,
		`SELECT id, doc FROM records WHERE collection = ?`, collection)
}

func (s *Store) Put(ctx context.Context, collection, id string, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (collection, id, doc, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			doc = excluded.doc,
			updated_at = excluded.updated_at
	`, collection, id, string(doc), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to put record: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// Query matches records whose top-level JSON field equals value.
func (s *Store) Query(ctx context.Context, collection, field, value string) ([]engine.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryRecords(ctx, `
		SELECT id, doc FROM records
		WHERE collection = ? AND json_extract(doc, '$.' || ?) = ?
	`, collection, field, value)
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]engine.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var out []engine.Record
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		out = append(out, engine.Record{ID: id, Doc: []byte(doc)})
	}
	return out, rows.Err()
}
