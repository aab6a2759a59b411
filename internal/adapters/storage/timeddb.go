package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"contractor/internal/adapters/http/perf"
)

// SQLDB is the database interface used by all stores.
// Both *sqlx.DB and *TimedDB satisfy this interface.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// Compile-time check that *sqlx.DB satisfies SQLDB.
var _ SQLDB = (*sqlx.DB)(nil)

// DefaultSlowQuery is the default threshold for slow query warnings.
const DefaultSlowQuery = 50 * time.Millisecond

// TimedDB wraps a *sqlx.DB to log slow queries and optionally record to a collector.
type TimedDB struct {
	db        *sqlx.DB
	collector *perf.Collector
	threshold time.Duration
}

// Compile-time check that *TimedDB satisfies SQLDB.
var _ SQLDB = (*TimedDB)(nil)

// NewTimedDB wraps db with timing instrumentation.
// PRE: db is a valid database connection; collector may be nil
// POST: Returns a TimedDB that logs queries slower than threshold
func NewTimedDB(db *sqlx.DB, collector *perf.Collector, threshold time.Duration) *TimedDB {
	if threshold <= 0 {
		threshold = DefaultSlowQuery
	}
	return &TimedDB{db: db, collector: collector, threshold: threshold}
}

// RawDB returns the underlying connection (needed for schema setup and Close).
func (t *TimedDB) RawDB() *sqlx.DB {
	return t.db
}

func (t *TimedDB) logQuery(op string, start time.Time) {
	elapsed := time.Since(start)
	durationMs := float64(elapsed.Microseconds()) / 1000.0

	if elapsed >= t.threshold {
		slog.Warn("slow_query", "op", op, "duration_ms", durationMs)
	} else {
		slog.Debug("query", "op", op, "duration_ms", durationMs)
	}

	if t.collector != nil {
		t.collector.Record(perf.Entry{
			Kind:       perf.KindQuery,
			Path:       op,
			DurationMs: durationMs,
			Timestamp:  start,
		})
	}
}

// ExecContext wraps sqlx.DB.ExecContext with timing.
func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	result, err := t.db.ExecContext(ctx, query, args...)
	t.logQuery("ExecContext", start)
	return result, err
}

// GetContext wraps sqlx.DB.GetContext with timing.
func (t *TimedDB) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	start := time.Now()
	err := t.db.GetContext(ctx, dest, query, args...)
	t.logQuery("GetContext", start)
	return err
}

// SelectContext wraps sqlx.DB.SelectContext with timing.
func (t *TimedDB) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	start := time.Now()
	err := t.db.SelectContext(ctx, dest, query, args...)
	t.logQuery("SelectContext", start)
	return err
}

// Close closes the underlying database connection.
func (t *TimedDB) Close() error {
	return t.db.Close()
}
