package journal

import (
	"encoding/csv"
	"math"
	"os"
	"strconv"
	"time"
)

var (
	fillsHeader  = []string{"fill_id", "run_id", "time", "symbol", "qty", "price", "fee", "size_after", "pnl", "reason"}
	equityHeader = []string{"run_id", "time", "symbol", "cash", "allocated", "used_margin", "margin_level", "pnl"}
)

type CSV struct {
	fills  *csv.Writer
	equity *csv.Writer
	ff, ef *os.File
}

func NewCSV(fillsPath, equityPath string) (*CSV, error) {
	ff, err := os.Create(fillsPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		_ = ff.Close()
		return nil, err
	}

	fw := csv.NewWriter(ff)
	ew := csv.NewWriter(ef)

	j := &CSV{fw, ew, ff, ef}
	if err := j.writeRow(fw, fillsHeader); err != nil {
		_ = j.closeFiles()
		return nil, err
	}
	if err := j.writeRow(ew, equityHeader); err != nil {
		_ = j.closeFiles()
		return nil, err
	}

	return j, nil
}

func (j *CSV) RecordFill(f FillRecord) error {
	return j.writeRow(j.fills, []string{
		f.ID,
		f.RunID,
		f.Time.UTC().Format(time.RFC3339Nano),
		f.Symbol,
		num(f.Qty),
		num(f.Price),
		num(f.Fee),
		num(f.SizeAfter),
		num(f.PnL),
		f.Reason,
	})
}

func (j *CSV) RecordEquity(e EquitySnapshot) error {
	return j.writeRow(j.equity, []string{
		e.RunID,
		e.Time.UTC().Format(time.RFC3339Nano),
		e.Symbol,
		num(e.Cash),
		num(e.Allocated),
		num(e.UsedMargin),
		num(e.MarginLevel),
		num(e.PnL),
	})
}

func (j *CSV) Close() error {
	j.fills.Flush()
	if err := j.fills.Error(); err != nil {
		_ = j.closeFiles()
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		_ = j.closeFiles()
		return err
	}
	return j.closeFiles()
}

func (j *CSV) writeRow(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSV) closeFiles() error {
	ferr := j.ff.Close()
	eerr := j.ef.Close()
	if ferr != nil {
		return ferr
	}
	return eerr
}

func num(x float64) string {
	if math.IsInf(x, 1) {
		return "inf"
	}
	return strconv.FormatFloat(x, 'f', 6, 64)
}
