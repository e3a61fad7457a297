package journal

import (
	"database/sql"
	"errors"
	"fmt"
)

// GetRun returns the summary row of a single run.
func (j *SQLite) GetRun(runID string) (RunRecord, error) {
	var rec RunRecord

	row := j.db.QueryRow(`
		SELECT run_id, created, margin_mode, initial_cash, fee_rate, leverage, final_cash, final_pnl, fills
		FROM runs
		WHERE run_id = ?`, runID)

	err := row.Scan(
		&rec.RunID,
		&rec.Created,
		&rec.MarginMode,
		&rec.InitialCash,
		&rec.FeeRate,
		&rec.Leverage,
		&rec.FinalCash,
		&rec.FinalPnL,
		&rec.Fills,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, fmt.Errorf("get run %q: %w", runID, ErrRunNotFound)
		}
		return RunRecord{}, err
	}
	return rec, nil
}

// ListRuns returns every recorded run, newest first.
func (j *SQLite) ListRuns() ([]RunRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, created, margin_mode, initial_cash, fee_rate, leverage, final_cash, final_pnl, fills
		FROM runs
		ORDER BY run_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(
			&rec.RunID,
			&rec.Created,
			&rec.MarginMode,
			&rec.InitialCash,
			&rec.FeeRate,
			&rec.Leverage,
			&rec.FinalCash,
			&rec.FinalPnL,
			&rec.Fills,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListFillsByRun returns the fills of a run in execution order.
// Fill ids are ULIDs minted from the event time, so ordering by id
// keeps same-timestamp fills in the order they happened.
func (j *SQLite) ListFillsByRun(runID string) ([]FillRecord, error) {
	rows, err := j.db.Query(`
		SELECT fill_id, run_id, time, symbol, qty, price, fee, size_after, pnl, reason
		FROM fills
		WHERE run_id = ?
		ORDER BY fill_id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FillRecord
	for rows.Next() {
		var rec FillRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.RunID,
			&rec.Time,
			&rec.Symbol,
			&rec.Qty,
			&rec.Price,
			&rec.Fee,
			&rec.SizeAfter,
			&rec.PnL,
			&rec.Reason,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquityByRun returns the account snapshots of a run in insertion order.
func (j *SQLite) ListEquityByRun(runID string) ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`
		SELECT run_id, time, symbol, cash, allocated, used_margin, margin_level, pnl
		FROM equity
		WHERE run_id = ?
		ORDER BY rowid ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var (
			rec   EquitySnapshot
			level sql.NullFloat64
		)
		if err := rows.Scan(
			&rec.RunID,
			&rec.Time,
			&rec.Symbol,
			&rec.Cash,
			&rec.Allocated,
			&rec.UsedMargin,
			&level,
			&rec.PnL,
		); err != nil {
			return nil, err
		}
		rec.MarginLevel = levelFromNull(level)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
