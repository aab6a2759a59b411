package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"contractor/internal/adapters/storage"
	"contractor/internal/domain/worker"
)

// SQLiteStore implements Store as a single row of the kv_slot table.
type SQLiteStore struct {
	db  storage.SQLDB
	key string
	now func() time.Time
}

// NewSQLiteStore creates a store for the slot named key.
// PRE: db is open and storage.InitDB has run; an empty key selects DefaultKey
// POST: store is ready for use
func NewSQLiteStore(db storage.SQLDB, key string) *SQLiteStore {
	if key == "" {
		key = DefaultKey
	}
	return &SQLiteStore{db: db, key: key, now: time.Now}
}

// Key returns the slot key.
func (s *SQLiteStore) Key() string {
	return s.key
}

// Load reads and decodes the slot.
// PRE: none
// POST: Returns the saved workers, ErrNotFound when the slot is empty, or an error wrapping ErrCorrupt
func (s *SQLiteStore) Load(ctx context.Context) ([]worker.Worker, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM kv_slot WHERE key = ?`, s.key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read slot %s: %w", s.key, err)
	}
	return Decode([]byte(value))
}

// Save replaces the slot with the encoded workers.
// PRE: workers satisfy the domain invariants
// POST: the slot holds exactly this collection
func (s *SQLiteStore) Save(ctx context.Context, workers []worker.Worker) error {
	data, err := Encode(workers)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kv_slot (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		s.key, string(data), s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to write slot %s: %w", s.key, err)
	}
	return nil
}
