// Package types defines the price record shared across the analysis system.
package types

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical text form of a trading date.
const DateLayout = "2006-01-02"

// Day is one trading day's price record plus the moving averages derived from it.
// The seven raw fields never change after construction; only the averages do.
type Day struct {
	date     time.Time
	open     float64
	high     float64
	low      float64
	close    float64
	adjClose float64
	volume   int64

	// period -> average; a missing key means "not computed"
	movingAvgs map[int]float64
}

// DayKey is the comparable identity of a Day: its seven raw fields.
type DayKey struct {
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
	Volume   int64
}

// NewDay creates a Day. The date is truncated to its calendar day in UTC.
// A zero date or a NaN price counts as a missing field.
func NewDay(date time.Time, open, high, low, close, adjClose float64, volume int64) (*Day, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("%w: date", ErrMissingArgument)
	}

	prices := []struct {
		name  string
		value float64
	}{
		{"open", open},
		{"high", high},
		{"low", low},
		{"close", close},
		{"adjusted close", adjClose},
	}
	for _, p := range prices {
		if math.IsNaN(p.value) {
			return nil, fmt.Errorf("%w: %s", ErrMissingArgument, p.name)
		}
	}

	return &Day{
		date:       NormalizeDate(date),
		open:       open,
		high:       high,
		low:        low,
		close:      close,
		adjClose:   adjClose,
		volume:     volume,
		movingAvgs: make(map[int]float64),
	}, nil
}

// NormalizeDate drops the time of day and location, keeping the calendar date
// as seen in t's own location.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date returns the trading date (midnight UTC).
func (d *Day) Date() time.Time { return d.date }

// Open returns the opening price.
func (d *Day) Open() float64 { return d.open }

// High returns the high price.
func (d *Day) High() float64 { return d.high }

// Low returns the low price.
func (d *Day) Low() float64 { return d.low }

// Close returns the raw closing price.
func (d *Day) Close() float64 { return d.close }

// AdjClose returns the adjusted close. All averages are computed from it.
func (d *Day) AdjClose() float64 { return d.adjClose }

// Volume returns the traded volume.
func (d *Day) Volume() int64 { return d.volume }

// MovingAverage returns the average stored for period and whether one exists.
func (d *Day) MovingAverage(period int) (float64, bool, error) {
	if err := checkPeriod(period); err != nil {
		return 0, false, err
	}
	v, ok := d.movingAvgs[period]
	return v, ok, nil
}

// SetMovingAverage stores value for period, replacing any earlier value.
func (d *Day) SetMovingAverage(period int, value float64) error {
	if err := checkPeriod(period); err != nil {
		return err
	}
	d.movingAvgs[period] = value
	return nil
}

// HasMovingAverage reports whether an average has been stored for period.
func (d *Day) HasMovingAverage(period int) (bool, error) {
	_, ok, err := d.MovingAverage(period)
	return ok, err
}

// Periods returns the periods that have a stored average, ascending.
func (d *Day) Periods() []int {
	periods := make([]int, 0, len(d.movingAvgs))
	for p := range d.movingAvgs {
		periods = append(periods, p)
	}
	sort.Ints(periods)
	return periods
}

// Key returns the raw fields as a comparable value. Averages are not part of it.
func (d *Day) Key() DayKey {
	return DayKey{
		Date:     d.date,
		Open:     d.open,
		High:     d.high,
		Low:      d.low,
		Close:    d.close,
		AdjClose: d.adjClose,
		Volume:   d.volume,
	}
}

// Equal reports whether both days carry the same raw fields.
func (d *Day) Equal(other *Day) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.Key() == other.Key()
}

func (d *Day) String() string {
	var b strings.Builder
	b.WriteString("Day [date=")
	b.WriteString(d.date.Format(DateLayout))
	b.WriteString(", open=")
	b.WriteString(formatPrice(d.open))
	b.WriteString(", high=")
	b.WriteString(formatPrice(d.high))
	b.WriteString(", low=")
	b.WriteString(formatPrice(d.low))
	b.WriteString(", close=")
	b.WriteString(formatPrice(d.close))
	b.WriteString(", adjClose=")
	b.WriteString(formatPrice(d.adjClose))
	b.WriteString(", volume=")
	b.WriteString(strconv.FormatInt(d.volume, 10))
	b.WriteString("]")
	return b.String()
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func checkPeriod(period int) error {
	if period <= 0 {
		return fmt.Errorf("%w: period must be positive, got %d", ErrInvalidArgument, period)
	}
	return nil
}
