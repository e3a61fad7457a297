package journal

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCSV(t *testing.T) (*CSV, string, string) {
	t.Helper()

	dir := t.TempDir()
	fillsPath := filepath.Join(dir, "fills.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(fillsPath, equityPath)
	require.NoError(t, err)
	return j, fillsPath, equityPath
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVJournalHeaders(t *testing.T) {
	t.Parallel()

	j, fillsPath, equityPath := newTestCSV(t)
	require.NoError(t, j.Close())

	fills := readCSV(t, fillsPath)
	equity := readCSV(t, equityPath)

	require.Len(t, fills, 1)
	require.Len(t, equity, 1)
	assert.Equal(t, fillsHeader, fills[0])
	assert.Equal(t, equityHeader, equity[0])
}

func TestCSVJournalRecordFill(t *testing.T) {
	t.Parallel()

	j, fillsPath, _ := newTestCSV(t)

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, j.RecordFill(FillRecord{
		ID:        "F1",
		RunID:     "R1",
		Time:      ts,
		Symbol:    "BTC",
		Qty:       1,
		Price:     100,
		Fee:       0.1,
		SizeAfter: 1,
		PnL:       -0.1,
		Reason:    ReasonMarket,
	}))
	require.NoError(t, j.Close())

	rows := readCSV(t, fillsPath)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{
		"F1", "R1", "2024-01-02T03:04:05Z", "BTC",
		"1.000000", "100.000000", "0.100000", "1.000000", "-0.100000", "Market",
	}, rows[1])
}

func TestCSVJournalRecordEquity(t *testing.T) {
	t.Parallel()

	j, _, equityPath := newTestCSV(t)

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, j.RecordEquity(EquitySnapshot{
		RunID:       "R1",
		Time:        ts,
		Symbol:      "BTC",
		Cash:        999.9,
		Allocated:   0,
		UsedMargin:  0,
		MarginLevel: math.Inf(1),
		PnL:         -0.1,
	}))
	require.NoError(t, j.Close())

	rows := readCSV(t, equityPath)
	require.Len(t, rows, 2)
	assert.Equal(t, "999.900000", rows[1][3])
	assert.Equal(t, "inf", rows[1][6])
	assert.Equal(t, "-0.100000", rows[1][7])
}

func TestNewCSVBadPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := NewCSV(filepath.Join(dir, "missing", "fills.csv"), filepath.Join(dir, "equity.csv"))
	assert.Error(t, err)

	_, err = NewCSV(filepath.Join(dir, "fills.csv"), filepath.Join(dir, "missing", "equity.csv"))
	assert.Error(t, err)
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	var j Journal = Discard{}
	assert.NoError(t, j.RecordFill(FillRecord{}))
	assert.NoError(t, j.RecordEquity(EquitySnapshot{}))
	assert.NoError(t, j.Close())
}
