package types

import (
	"errors"
	"math"
	"testing"
	"time"
)

func newTestDay(t *testing.T) *Day {
	t.Helper()
	day, err := NewDay(time.Date(2020, 12, 12, 0, 0, 0, 0, time.UTC), 2.0, 3.0, 4.0, 5.0, 6.0, 7)
	if err != nil {
		t.Fatalf("NewDay: %v", err)
	}
	return day
}

// TestNewDay_Fields tests that the constructor keeps every raw field.
func TestNewDay_Fields(t *testing.T) {
	day := newTestDay(t)

	if got := day.Date(); !got.Equal(time.Date(2020, 12, 12, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date = %v", got)
	}
	if day.Open() != 2.0 {
		t.Errorf("Open = %v, want 2.0", day.Open())
	}
	if day.High() != 3.0 {
		t.Errorf("High = %v, want 3.0", day.High())
	}
	if day.Low() != 4.0 {
		t.Errorf("Low = %v, want 4.0", day.Low())
	}
	if day.Close() != 5.0 {
		t.Errorf("Close = %v, want 5.0", day.Close())
	}
	if day.AdjClose() != 6.0 {
		t.Errorf("AdjClose = %v, want 6.0", day.AdjClose())
	}
	if day.Volume() != 7 {
		t.Errorf("Volume = %d, want 7", day.Volume())
	}
}

// TestNewDay_NormalizesDate tests that time of day is dropped.
func TestNewDay_NormalizesDate(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	day, err := NewDay(time.Date(2021, 1, 12, 16, 30, 0, 0, loc), 1, 1, 1, 1, 1, 1)
	if err != nil {
		t.Fatalf("NewDay: %v", err)
	}

	want := time.Date(2021, 1, 12, 0, 0, 0, 0, time.UTC)
	if day.Date() != want {
		t.Errorf("Date = %v, want %v", day.Date(), want)
	}
}

// TestNewDay_MissingFields tests rejection of absent values.
func TestNewDay_MissingFields(t *testing.T) {
	date := time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)
	nan := math.NaN()

	tests := []struct {
		name string
		fn   func() (*Day, error)
	}{
		{"zero date", func() (*Day, error) { return NewDay(time.Time{}, 1, 1, 1, 1, 1, 1) }},
		{"open", func() (*Day, error) { return NewDay(date, nan, 1, 1, 1, 1, 1) }},
		{"high", func() (*Day, error) { return NewDay(date, 1, nan, 1, 1, 1, 1) }},
		{"low", func() (*Day, error) { return NewDay(date, 1, 1, nan, 1, 1, 1) }},
		{"close", func() (*Day, error) { return NewDay(date, 1, 1, 1, nan, 1, 1) }},
		{"adjusted close", func() (*Day, error) { return NewDay(date, 1, 1, 1, 1, nan, 1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			day, err := tt.fn()
			if !errors.Is(err, ErrMissingArgument) {
				t.Errorf("err = %v, want ErrMissingArgument", err)
			}
			if day != nil {
				t.Error("expected nil day")
			}
		})
	}
}

// TestNewDay_AcceptsNegativePrices tests that no range validation happens.
func TestNewDay_AcceptsNegativePrices(t *testing.T) {
	day, err := NewDay(time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC), -1, -2, -3, -4, -5, -6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if day.AdjClose() != -5 {
		t.Errorf("AdjClose = %v, want -5", day.AdjClose())
	}
}

func TestDay_MovingAverage(t *testing.T) {
	day := newTestDay(t)

	if _, ok, err := day.MovingAverage(10); err != nil || ok {
		t.Fatalf("MovingAverage(10) before set: ok=%v err=%v", ok, err)
	}

	if err := day.SetMovingAverage(10, 10.0); err != nil {
		t.Fatalf("SetMovingAverage: %v", err)
	}

	v, ok, err := day.MovingAverage(10)
	if err != nil || !ok {
		t.Fatalf("MovingAverage(10): ok=%v err=%v", ok, err)
	}
	if v != 10.0 {
		t.Errorf("MovingAverage(10) = %v, want 10.0", v)
	}
}

// TestDay_MovingAverage_ZeroIsPresent tests that a stored zero differs from absence.
func TestDay_MovingAverage_ZeroIsPresent(t *testing.T) {
	day := newTestDay(t)

	if err := day.SetMovingAverage(3, 0); err != nil {
		t.Fatalf("SetMovingAverage: %v", err)
	}

	v, ok, err := day.MovingAverage(3)
	if err != nil {
		t.Fatalf("MovingAverage: %v", err)
	}
	if !ok || v != 0 {
		t.Errorf("MovingAverage(3) = (%v, %v), want (0, true)", v, ok)
	}
}

func TestDay_SetMovingAverage_Overwrites(t *testing.T) {
	day := newTestDay(t)

	_ = day.SetMovingAverage(15, 15.0)
	_ = day.SetMovingAverage(15, 16.5)

	v, _, _ := day.MovingAverage(15)
	if v != 16.5 {
		t.Errorf("MovingAverage(15) = %v, want 16.5", v)
	}
}

func TestDay_HasMovingAverage(t *testing.T) {
	day := newTestDay(t)
	_ = day.SetMovingAverage(10, 10.0)

	has, err := day.HasMovingAverage(10)
	if err != nil || !has {
		t.Errorf("HasMovingAverage(10) = %v, %v; want true", has, err)
	}

	has, err = day.HasMovingAverage(20)
	if err != nil || has {
		t.Errorf("HasMovingAverage(20) = %v, %v; want false", has, err)
	}
}

// TestDay_InvalidPeriod tests that non-positive periods are rejected everywhere.
func TestDay_InvalidPeriod(t *testing.T) {
	day := newTestDay(t)

	for _, period := range []int{0, -1, -100} {
		if _, _, err := day.MovingAverage(period); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("MovingAverage(%d) err = %v, want ErrInvalidArgument", period, err)
		}
		if err := day.SetMovingAverage(period, 1.0); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("SetMovingAverage(%d) err = %v, want ErrInvalidArgument", period, err)
		}
		if _, err := day.HasMovingAverage(period); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("HasMovingAverage(%d) err = %v, want ErrInvalidArgument", period, err)
		}
	}

	if len(day.Periods()) != 0 {
		t.Errorf("rejected periods must not be stored, got %v", day.Periods())
	}
}

func TestDay_Periods(t *testing.T) {
	day := newTestDay(t)
	for _, p := range []int{50, 5, 20} {
		_ = day.SetMovingAverage(p, float64(p))
	}

	got := day.Periods()
	want := []int{5, 20, 50}
	if len(got) != len(want) {
		t.Fatalf("Periods = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Periods[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

// TestDay_Equal tests that equality ignores moving averages.
func TestDay_Equal(t *testing.T) {
	day := newTestDay(t)
	_ = day.SetMovingAverage(10, 10.0)

	same := newTestDay(t)
	if !day.Equal(same) {
		t.Error("days with identical raw fields should be equal")
	}
	if day.Key() != same.Key() {
		t.Error("keys of equal days should match")
	}

	other, _ := NewDay(day.Date(), 3.0, 3.0, 4.0, 5.0, 6.0, 7)
	if day.Equal(other) {
		t.Error("days with different open should not be equal")
	}
	if day.Key() == other.Key() {
		t.Error("keys of different days should differ")
	}

	if day.Equal(nil) {
		t.Error("day should not equal nil")
	}
}

func TestDay_String(t *testing.T) {
	day := newTestDay(t)

	want := "Day [date=2020-12-12, open=2, high=3, low=4, close=5, adjClose=6, volume=7]"
	if got := day.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
