package replay

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	ErrBadRow       = errors.New("bad replay row")
	ErrUnknownEvent = errors.New("unknown replay event")
)

// Row is one tick plus an optional scripted event.
type Row struct {
	Line   int
	Time   time.Time
	Symbol string
	Price  float64
	Event  string
	Args   []string
}

// Feed yields rows in file order; ok is false at the end.
type Feed interface {
	Next() (row Row, ok bool, err error)
}

// CSVFeed reads rows of the form
//
//	time,symbol,price[,event,arg1,arg2]
//
// A header row (first column "time") is skipped. Rows outside [from, to)
// are skipped; zero bounds are open.
type CSVFeed struct {
	c    io.Closer
	r    *csv.Reader
	from time.Time
	to   time.Time

	line     int
	sawFirst bool
}

// NewCSVFeed opens path. Close releases the file.
func NewCSVFeed(path string, from, to time.Time) (*CSVFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	feed := NewFeed(f, from, to)
	feed.c = f
	return feed, nil
}

// NewFeed reads rows from r.
func NewFeed(r io.Reader, from, to time.Time) *CSVFeed {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	return &CSVFeed{r: cr, from: from, to: to}
}

func (f *CSVFeed) Close() error {
	if f.c != nil {
		return f.c.Close()
	}
	return nil
}

func (f *CSVFeed) Next() (Row, bool, error) {
	for {
		rec, err := f.r.Read()
		if err == io.EOF {
			return Row{}, false, nil
		}
		if err != nil {
			return Row{}, false, fmt.Errorf("%w: %v", ErrBadRow, err)
		}
		f.line, _ = f.r.FieldPos(0)

		if !f.sawFirst {
			f.sawFirst = true
			if strings.EqualFold(strings.TrimSpace(rec[0]), "time") {
				continue
			}
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}

		row, err := parseRow(rec)
		if err != nil {
			return Row{}, false, fmt.Errorf("line %d: %w", f.line, err)
		}
		if !inRange(row.Time, f.from, f.to) {
			continue
		}
		row.Line = f.line
		return row, true, nil
	}
}

func parseRow(rec []string) (Row, error) {
	if len(rec) < 3 {
		return Row{}, fmt.Errorf("%w: need time,symbol,price, got %d columns", ErrBadRow, len(rec))
	}

	ts := strings.TrimSpace(rec[0])
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return Row{}, fmt.Errorf("%w: bad time %q: %v", ErrBadRow, ts, err)
	}

	symbol := strings.TrimSpace(rec[1])
	if symbol == "" {
		return Row{}, fmt.Errorf("%w: empty symbol", ErrBadRow)
	}

	price, err := parseFloat(rec[2])
	if err != nil || !(price > 0) || math.IsInf(price, 0) {
		return Row{}, fmt.Errorf("%w: bad price %q", ErrBadRow, rec[2])
	}

	row := Row{Time: t, Symbol: symbol, Price: price}
	if len(rec) >= 4 {
		row.Event = strings.ToUpper(strings.TrimSpace(rec[3]))
	}
	for _, a := range rec[min(len(rec), 4):] {
		a = strings.TrimSpace(a)
		if a != "" {
			row.Args = append(row.Args, a)
		}
	}
	return row, nil
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
