// Package report renders loaded price history and its moving averages as tables.
package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
	"github.com/tathienbao/tna/internal/types"
	"gonum.org/v1/gonum/stat"
)

// Options control what a report shows.
type Options struct {
	Rows    int   // trailing days listed; 0 lists none
	Periods []int // SMA columns, in order
	Title   string
}

// Summary describes the adjusted closes of a day slice.
type Summary struct {
	Days      int
	FirstDate time.Time
	LastDate  time.Time
	Min       float64
	Max       float64
	Mean      float64
	StdDev    float64
}

// Summarize computes a Summary over days in slice order. Nil days are skipped.
func Summarize(days []*types.Day) Summary {
	closes := make([]float64, 0, len(days))
	var s Summary
	for _, d := range days {
		if d == nil {
			continue
		}
		if s.Days == 0 {
			s.FirstDate = d.Date()
			s.Min, s.Max = d.AdjClose(), d.AdjClose()
		}
		s.LastDate = d.Date()
		s.Min = math.Min(s.Min, d.AdjClose())
		s.Max = math.Max(s.Max, d.AdjClose())
		closes = append(closes, d.AdjClose())
		s.Days++
	}

	if len(closes) > 0 {
		s.Mean = stat.Mean(closes, nil)
	}
	if len(closes) > 1 {
		s.StdDev = stat.StdDev(closes, nil)
	}
	return s
}

// Write renders the trailing opts.Rows days followed by a summary table.
func Write(w io.Writer, days []*types.Day, opts Options) error {
	if w == nil {
		return fmt.Errorf("%w: writer", types.ErrMissingArgument)
	}
	if opts.Rows < 0 {
		return fmt.Errorf("%w: rows %d", types.ErrInvalidArgument, opts.Rows)
	}
	for _, p := range opts.Periods {
		if p <= 0 {
			return fmt.Errorf("%w: period %d", types.ErrInvalidArgument, p)
		}
	}

	style := styleFor(w)

	if opts.Rows > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(style)
		if opts.Title != "" {
			t.SetTitle(opts.Title)
		}

		header := table.Row{"DATE", "ADJ CLOSE", "VOLUME"}
		for _, p := range opts.Periods {
			header = append(header, "SMA "+strconv.Itoa(p))
		}
		t.AppendHeader(header)

		for _, d := range tail(days, opts.Rows) {
			row := table.Row{
				d.Date().Format(types.DateLayout),
				formatPrice(d.AdjClose()),
				d.Volume(),
			}
			for _, p := range opts.Periods {
				row = append(row, formatAverage(d, p))
			}
			t.AppendRow(row)
		}
		t.Render()
	}

	s := Summarize(days)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(style)
	t.SetTitle("Summary")
	t.AppendRows([]table.Row{
		{"Days", s.Days},
		{"First", formatDate(s.FirstDate)},
		{"Last", formatDate(s.LastDate)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Min adj close", formatPrice(s.Min)},
		{"Max adj close", formatPrice(s.Max)},
		{"Mean adj close", formatPrice(s.Mean)},
		{"StdDev adj close", formatPrice(s.StdDev)},
	})
	t.Render()

	return nil
}

// tail returns the last n non-nil days, oldest first.
func tail(days []*types.Day, n int) []*types.Day {
	out := make([]*types.Day, 0, n)
	for i := len(days) - 1; i >= 0 && len(out) < n; i-- {
		if days[i] != nil {
			out = append(out, days[i])
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func formatAverage(d *types.Day, period int) string {
	v, ok, err := d.MovingAverage(period)
	if err != nil || !ok {
		return "-"
	}
	return decimal.NewFromFloat(v).StringFixed(4)
}

func formatPrice(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(types.DateLayout)
}
