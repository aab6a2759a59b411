package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contractor/internal/adapters/http/perf"
)

func openTimedTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec("CREATE TABLE test (id TEXT PRIMARY KEY, val TEXT)")
	require.NoError(t, err)
	return db
}

func TestTimedDB_ExecContext(t *testing.T) {
	collector := perf.NewCollector(100)
	tdb := NewTimedDB(openTimedTestDB(t), collector, 0)

	res, err := tdb.ExecContext(context.Background(), "INSERT INTO test (id, val) VALUES (?, ?)", "1", "hello")
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, int64(1), collector.TotalRecorded())
}

func TestTimedDB_GetAndSelect(t *testing.T) {
	collector := perf.NewCollector(100)
	tdb := NewTimedDB(openTimedTestDB(t), collector, time.Second)
	ctx := context.Background()

	for _, id := range []string{"1", "2"} {
		_, err := tdb.ExecContext(ctx, "INSERT INTO test (id, val) VALUES (?, ?)", id, "v"+id)
		require.NoError(t, err)
	}

	var val string
	require.NoError(t, tdb.GetContext(ctx, &val, "SELECT val FROM test WHERE id = ?", "2"))
	assert.Equal(t, "v2", val)

	var vals []string
	require.NoError(t, tdb.SelectContext(ctx, &vals, "SELECT val FROM test ORDER BY id"))
	assert.Equal(t, []string{"v1", "v2"}, vals)

	assert.Equal(t, int64(4), collector.TotalRecorded())
	snap := collector.Snapshot(time.Time{}, 10)
	require.NotEmpty(t, snap.SlowestQueries)
}

func TestTimedDB_ErrorPassthrough(t *testing.T) {
	tdb := NewTimedDB(openTimedTestDB(t), nil, 0)

	_, err := tdb.ExecContext(context.Background(), "INSERT INTO missing (id) VALUES (?)", "1")
	assert.Error(t, err)

	var val string
	err = tdb.GetContext(context.Background(), &val, "SELECT val FROM test WHERE id = ?", "nope")
	assert.Error(t, err, "no rows must surface as an error")
}

func TestTimedDB_NilCollector(t *testing.T) {
	tdb := NewTimedDB(openTimedTestDB(t), nil, 0)
	_, err := tdb.ExecContext(context.Background(), "INSERT INTO test (id, val) VALUES (?, ?)", "1", "x")
	assert.NoError(t, err)
	assert.Same(t, tdb.RawDB(), tdb.db)
}

func TestTimedDB_ConcurrentWrites(t *testing.T) {
	collector := perf.NewCollector(1000)
	tdb := NewTimedDB(openTimedTestDB(t), collector, 0)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tdb.ExecContext(context.Background(), "INSERT INTO test (id, val) VALUES (?, ?)", string(rune('a'+i)), "x")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var count int
	require.NoError(t, tdb.GetContext(context.Background(), &count, "SELECT COUNT(*) FROM test"))
	assert.Equal(t, 20, count)
	assert.Equal(t, int64(21), collector.TotalRecorded())
}
