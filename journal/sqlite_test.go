package journal

import (
	"database/sql"
	"math"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)

	return j, path
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('runs','fills','equity')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	assert.True(t, found["runs"])
	assert.True(t, found["fills"])
	assert.True(t, found["equity"])
}

func TestSQLiteRecordFill(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := FillRecord{
		ID:        "F1",
		RunID:     "R1",
		Time:      ts,
		Symbol:    "BTC",
		Qty:       -0.25,
		Price:     50123.5,
		Fee:       12.530875,
		SizeAfter: 0.75,
		PnL:       -3.25,
		Reason:    ReasonTakeProfit,
	}

	require.NoError(t, j.RecordFill(rec))
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var got FillRecord
	err = db.QueryRow(`
		SELECT fill_id, run_id, time, symbol, qty, price, fee, size_after, pnl, reason
		FROM fills LIMIT 1`).Scan(
		&got.ID, &got.RunID, &got.Time, &got.Symbol, &got.Qty,
		&got.Price, &got.Fee, &got.SizeAfter, &got.PnL, &got.Reason,
	)
	require.NoError(t, err)

	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.RunID, got.RunID)
	assert.True(t, got.Time.Equal(rec.Time))
	assert.Equal(t, rec.Symbol, got.Symbol)
	assert.InDelta(t, rec.Qty, got.Qty, 1e-9)
	assert.InDelta(t, rec.Price, got.Price, 1e-9)
	assert.InDelta(t, rec.Fee, got.Fee, 1e-9)
	assert.InDelta(t, rec.SizeAfter, got.SizeAfter, 1e-9)
	assert.InDelta(t, rec.PnL, got.PnL, 1e-9)
	assert.Equal(t, rec.Reason, got.Reason)
}

func TestSQLiteRecordEquityInfiniteLevel(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)

	ts := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	require.NoError(t, j.RecordEquity(EquitySnapshot{
		RunID:       "R1",
		Time:        ts,
		Symbol:      "BTC",
		Cash:        999.9,
		MarginLevel: math.Inf(1),
	}))
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var level sql.NullFloat64
	require.NoError(t, db.QueryRow(`SELECT margin_level FROM equity LIMIT 1`).Scan(&level))
	assert.False(t, level.Valid)
}

func TestNullLevel(t *testing.T) {
	t.Parallel()

	assert.False(t, nullLevel(math.Inf(1)).Valid)
	assert.False(t, nullLevel(math.NaN()).Valid)
	assert.Equal(t, sql.NullFloat64{Float64: 2.5, Valid: true}, nullLevel(2.5))

	assert.True(t, math.IsInf(levelFromNull(sql.NullFloat64{}), 1))
	assert.Equal(t, 2.5, levelFromNull(sql.NullFloat64{Float64: 2.5, Valid: true}))
}
