package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rustyeddy/btbroker/config"
	"github.com/rustyeddy/btbroker/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

const ticksCSV = `time,symbol,price,event,arg1,arg2
2024-01-01T00:00:00Z,BTC,100,BUY,1
2024-01-01T00:01:00Z,BTC,100,TP,120
2024-01-01T00:02:00Z,BTC,120
`

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "btbroker version "+version)
}

func TestConfigInitRunAndJournal(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "run.yaml")
	ticks := filepath.Join(dir, "ticks.csv")
	dbPath := filepath.Join(dir, "runs.db")
	require.NoError(t, os.WriteFile(ticks, []byte(ticksCSV), 0o644))

	out, err := execute(t, "config", "init", "-o", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Created default configuration")

	cfg, err := config.LoadFromFile(cfgPath)
	require.NoError(t, err)
	cfg.Replay.TicksFile = ticks
	cfg.Journal.DBPath = dbPath
	cfg.Broker.FeeRate = 0
	require.NoError(t, cfg.SaveToFile(cfgPath))

	out, err = execute(t, "config", "validate", "-f", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")

	orgPath := filepath.Join(dir, "run.org")
	out, err = execute(t, "run", "-f", cfgPath, "--org", orgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Stop triggers: 1")
	assert.Contains(t, out, "Total PnL:     20.00")
	assert.Contains(t, out, "Equity:        10020.00")

	org, err := os.ReadFile(orgPath)
	require.NoError(t, err)
	assert.Contains(t, string(org), "* BACKTEST RUN")

	db, err := journal.NewSQLite(dbPath)
	require.NoError(t, err)
	runs, err := db.ListRuns()
	require.NoError(t, err)
	require.NoError(t, db.Close())
	require.Len(t, runs, 1)
	runID := runs[0].RunID

	out, err = execute(t, "journal", "runs", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, runID)

	out, err = execute(t, "journal", "fills", runID, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "TakeProfit")

	out, err = execute(t, "journal", "equity", runID, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "BTC")

	out, err = execute(t, "journal", "run", runID, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, ":RUN_ID:       "+runID)

	_, err = execute(t, "journal", "run", "missing", "--db", dbPath)
	assert.ErrorIs(t, err, journal.ErrRunNotFound)
}

func TestReplayCommandRunsEveryFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	require.NoError(t, os.WriteFile(a, []byte(ticksCSV), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("2024-01-01T00:00:00Z,ETH,10,SELL,5\n2024-01-01T00:01:00Z,ETH,8\n"), 0o644))
	dbPath := filepath.Join(dir, "replay.db")

	out, err := execute(t, "replay", "--ticks", a, "--ticks", b, "--fee", "0", "--db", dbPath)
	require.NoError(t, err)

	ia := bytes.Index([]byte(out), []byte(a+" (run"))
	ib := bytes.Index([]byte(out), []byte(b+" (run"))
	require.GreaterOrEqual(t, ia, 0)
	require.Greater(t, ib, ia, "summaries follow argument order")

	db, err := journal.NewSQLite(dbPath)
	require.NoError(t, err)
	defer db.Close()
	runs, err := db.ListRuns()
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRunRequiresValidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("broker:\n  initial_cash: -1\n"), 0o644))

	_, err := execute(t, "run", "-f", path)
	assert.ErrorContains(t, err, "load config")
}
