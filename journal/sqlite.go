package journal

import (
	"database/sql"
	"math"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// One connection serializes writers from concurrent runs.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordFill(f FillRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO fills
		(fill_id, run_id, time, symbol, qty, price, fee, size_after, pnl, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.RunID, f.Time, f.Symbol, f.Qty,
		f.Price, f.Fee, f.SizeAfter, f.PnL, f.Reason,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(run_id, time, symbol, cash, allocated, used_margin, margin_level, pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Time, e.Symbol, e.Cash, e.Allocated, e.UsedMargin,
		nullLevel(e.MarginLevel), e.PnL,
	)
	return err
}

// RecordRun inserts or replaces the summary row of a run.
func (j *SQLite) RecordRun(r RunRecord) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO runs
		(run_id, created, margin_mode, initial_cash, fee_rate, leverage, final_cash, final_pnl, fills)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created, r.MarginMode, r.InitialCash, r.FeeRate,
		r.Leverage, r.FinalCash, r.FinalPnL, r.Fills,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

// SQLite has no representation for infinity that round-trips through
// database/sql, so an unbounded margin level is stored as NULL.
func nullLevel(v float64) sql.NullFloat64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func levelFromNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.Inf(1)
	}
	return v.Float64
}
