// Package sqlite provides a SQLite-backed persistent store that mirrors the
// in-memory semantics, snapshotting the full state after every successful
// transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"rentalcore/internal/infra/persistence/memory"
	"rentalcore/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

// Store persists the in-memory state to a single SQLite table as JSON blobs.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore constructs a snapshotting SQLite-backed persistent store. An
// unparseable bucket hydrates as an empty collection instead of failing the
// open, so a corrupt database leaves the application usable.
func NewStore(path string, engine *domain.RulesEngine, opts ...memory.Option) (*Store, error) {
	if path == "" {
		path = "rentalcore.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	mem := memory.NewStore(engine, opts...)
	s := &Store{Store: mem, db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

var sqliteBuckets = []string{
	"properties",
	"follow_ups",
	"closures",
	"confirmations",
	"bookmarks",
	"staff_notes",
	"private_notes",
	"user_notes",
}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snapshot memory.Snapshot
	targets := map[string]any{
		"properties":    &snapshot.Properties,
		"follow_ups":    &snapshot.FollowUps,
		"closures":      &snapshot.Closures,
		"confirmations": &snapshot.Confirmations,
		"bookmarks":     &snapshot.Bookmarks,
		"staff_notes":   &snapshot.StaffNotes,
		"private_notes": &snapshot.PrivateNotes,
		"user_notes":    &snapshot.UserNotes,
	}
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan state: %w", err)
		}
		if len(payload) == 0 {
			continue
		}
		target, ok := targets[bucket]
		if !ok {
			continue
		}
		// Corrupt payloads degrade to an empty collection.
		_ = json.Unmarshal(payload, target)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	s.ImportState(snapshot)
	return nil
}

func (s *Store) persist() (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range sqliteBuckets {
		var data []byte
		switch bucket {
		case "properties":
			data, err = json.Marshal(snapshot.Properties)
		case "follow_ups":
			data, err = json.Marshal(snapshot.FollowUps)
		case "closures":
			data, err = json.Marshal(snapshot.Closures)
		case "confirmations":
			data, err = json.Marshal(snapshot.Confirmations)
		case "bookmarks":
			data, err = json.Marshal(snapshot.Bookmarks)
		case "staff_notes":
			data, err = json.Marshal(snapshot.StaffNotes)
		case "private_notes":
			data, err = json.Marshal(snapshot.PrivateNotes)
		case "user_notes":
			data, err = json.Marshal(snapshot.UserNotes)
		}
		if err != nil {
			retErr = err
			return retErr
		}
		if _, err = tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			retErr = fmt.Errorf("upsert %s: %w", bucket, err)
			return retErr
		}
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	return nil
}

// RunInTransaction applies the provided function within a transaction, then
// snapshots state to SQLite if successful. A persist failure is returned
// after the in-memory commit already happened, so memory can run ahead of
// the durable snapshot until the next successful write; callers treating the
// error as a failed write must re-read before retrying.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(); pErr != nil {
		return res, pErr
	}
	return res, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
