// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	margin_mode TEXT NOT NULL,
	initial_cash REAL NOT NULL,
	fee_rate REAL NOT NULL,
	leverage REAL NOT NULL,
	final_cash REAL NOT NULL,
	final_pnl REAL NOT NULL,
	fills INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS fills (
	fill_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	qty REAL NOT NULL,
	price REAL NOT NULL,
	fee REAL NOT NULL,
	size_after REAL NOT NULL,
	pnl REAL NOT NULL,
	reason TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	cash REAL NOT NULL,
	allocated REAL NOT NULL,
	used_margin REAL NOT NULL,
	margin_level REAL,
	pnl REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fills_run ON fills(run_id, fill_id);
CREATE INDEX IF NOT EXISTS idx_equity_run ON equity(run_id, time);
`
