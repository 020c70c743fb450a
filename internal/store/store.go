// Package store holds the loaded price history as an ordered, date-indexed set of days.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/tathienbao/tna/internal/source"
	"github.com/tathienbao/tna/internal/types"
	"golang.org/x/time/rate"
)

// Column positions of a source row.
const (
	colDate = iota
	colOpen
	colHigh
	colLow
	colClose
	colAdjClose
	colVolume

	numColumns
)

// Config holds store settings.
type Config struct {
	// Verbose logs every accepted row at debug level, throttled.
	Verbose bool
}

// DayStore is the ordered, date-indexed collection of loaded days.
//
// The slice and the map share the same *types.Day values. A DayStore is not
// safe for concurrent use: one caller loads it and then runs every analysis
// pass before anything else touches it.
type DayStore struct {
	cfg    Config
	logger *slog.Logger

	days   []*types.Day
	byDate map[time.Time]*types.Day

	verbose rate.Sometimes
}

// New creates an empty store.
func New(cfg Config, logger *slog.Logger) *DayStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &DayStore{
		cfg:     cfg,
		logger:  logger,
		byDate:  make(map[time.Time]*types.Day),
		verbose: rate.Sometimes{First: 10, Interval: time.Second},
	}
}

// Initialize opens location through resolver and loads it, unless the store
// already holds data, in which case it does nothing. Use Reset to reload.
func (s *DayStore) Initialize(ctx context.Context, resolver source.Resolver, location string) error {
	if resolver == nil {
		return fmt.Errorf("%w: resolver", types.ErrMissingArgument)
	}
	if location == "" {
		return fmt.Errorf("%w: source location", types.ErrMissingArgument)
	}

	if !s.Empty() {
		s.logger.Debug("store already loaded, skipping initialize", "days", s.Len())
		return nil
	}

	rows, err := resolver.Open(ctx, location)
	if err != nil {
		if errors.Is(err, types.ErrResourceUnavailable) {
			return fmt.Errorf("open source %s: %w", location, err)
		}
		return fmt.Errorf("open source %s: %w: %w", location, types.ErrResourceUnavailable, err)
	}
	defer rows.Close()

	if err := s.Load(rows); err != nil {
		return fmt.Errorf("load %s: %w", location, err)
	}

	s.logger.Info("price history loaded",
		"location", location,
		"days", s.Len(),
	)
	return nil
}

// Load reads every row after the header and appends one day per row.
//
// An empty source leaves the store empty. A row that cannot be decoded aborts
// the load; days accepted before it remain, so callers Reset before retrying.
// Once all rows are in, the days are put in ascending date order. Sources are
// expected newest first; other orders are sorted and a duplicate date fails.
func (s *DayStore) Load(rows source.RowReader) error {
	if rows == nil {
		return fmt.Errorf("%w: row reader", types.ErrMissingArgument)
	}

	// Skip header row, or stop if empty
	if _, err := rows.Next(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("read header: %w", err)
	}

	start := len(s.days)
	rowNum := 1
	for {
		row, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			return fmt.Errorf("row %d: %w", rowNum, err)
		}

		day, err := parseDay(row)
		if err != nil {
			return fmt.Errorf("row %d: %w", rowNum, err)
		}

		if _, dup := s.byDate[day.Date()]; dup {
			return fmt.Errorf("row %d: %w: duplicate date %s", rowNum, types.ErrParseFailure, day.Date().Format(types.DateLayout))
		}

		s.days = append(s.days, day)
		s.byDate[day.Date()] = day

		if s.cfg.Verbose {
			s.verbose.Do(func() {
				s.logger.Debug("added day", "row", rowNum, "day", day.String())
			})
		}
	}

	s.order(start)
	return nil
}

// order puts the days appended since start into ascending date order.
func (s *DayStore) order(start int) {
	loaded := s.days[start:]

	switch direction(loaded) {
	case descending:
		for i, j := 0, len(loaded)-1; i < j; i, j = i+1, j-1 {
			loaded[i], loaded[j] = loaded[j], loaded[i]
		}
	case ascending:
	default:
		s.logger.Warn("source rows are not in date order, sorting", "days", len(loaded))
		sort.SliceStable(loaded, func(i, j int) bool {
			return loaded[i].Date().Before(loaded[j].Date())
		})
	}

	if start > 0 {
		sort.SliceStable(s.days, func(i, j int) bool {
			return s.days[i].Date().Before(s.days[j].Date())
		})
	}
}

type sortOrder int

const (
	unordered sortOrder = iota
	ascending
	descending
)

// direction reports whether dates strictly rise or strictly fall.
// Fewer than two days count as descending, the expected file order.
func direction(days []*types.Day) sortOrder {
	asc, desc := true, true
	for i := 1; i < len(days); i++ {
		prev, cur := days[i-1].Date(), days[i].Date()
		if !cur.After(prev) {
			asc = false
		}
		if !cur.Before(prev) {
			desc = false
		}
	}
	switch {
	case desc:
		return descending
	case asc:
		return ascending
	default:
		return unordered
	}
}

func parseDay(row source.Row) (*types.Day, error) {
	if row.Len() < numColumns {
		return nil, fmt.Errorf("%w: expected %d cells, got %d", types.ErrParseFailure, numColumns, row.Len())
	}

	date, err := row.Date(colDate)
	if err != nil {
		return nil, fmt.Errorf("date: %w", err)
	}

	var prices [colAdjClose - colOpen + 1]float64
	for col := colOpen; col <= colAdjClose; col++ {
		v, err := row.Float(col)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", columnNames[col], err)
		}
		prices[col-colOpen] = v
	}

	volume, err := row.Int(colVolume)
	if err != nil {
		return nil, fmt.Errorf("volume: %w", err)
	}

	day, err := types.NewDay(date, prices[0], prices[1], prices[2], prices[3], prices[4], volume)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrParseFailure, err)
	}
	return day, nil
}

var columnNames = [numColumns]string{"date", "open", "high", "low", "close", "adjusted close", "volume"}

// Reset empties the store so it can be loaded again.
func (s *DayStore) Reset() {
	s.days = nil
	s.byDate = make(map[time.Time]*types.Day)
}

// Days returns the live ascending slice. Callers must not reorder it.
func (s *DayStore) Days() []*types.Day {
	return s.days
}

// DayMap returns the live date index over the same days.
func (s *DayStore) DayMap() map[time.Time]*types.Day {
	return s.byDate
}

// DayAt returns the day at position i of the ascending sequence.
func (s *DayStore) DayAt(i int) (*types.Day, error) {
	if i < 0 || i >= len(s.days) {
		return nil, fmt.Errorf("%w: index %d out of range [0, %d)", types.ErrInvalidArgument, i, len(s.days))
	}
	return s.days[i], nil
}

// DayOn returns the day for date. The time of day is ignored.
func (s *DayStore) DayOn(date time.Time) (*types.Day, error) {
	day, ok := s.byDate[types.NormalizeDate(date)]
	if !ok {
		return nil, fmt.Errorf("%w: no day on %s", types.ErrNotFound, date.Format(types.DateLayout))
	}
	return day, nil
}

// Len returns the number of days held.
func (s *DayStore) Len() int {
	return len(s.days)
}

// Empty reports whether nothing has been loaded.
func (s *DayStore) Empty() bool {
	return len(s.days) == 0
}
