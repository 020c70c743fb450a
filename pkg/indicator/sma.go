// Package indicator provides technical indicator calculations.
package indicator

// SMA calculates a Simple Moving Average over a trailing window.
// It keeps a running sum: each update adds the newest value and, once an
// average has been produced, drops the oldest value ahead of the next update.
type SMA struct {
	period  int
	values  []float64
	sum     float64
	seen    int
	current float64
}

// NewSMA creates a new SMA calculator with the given period.
// Callers validate the period; anything below 1 is treated as 1.
func NewSMA(period int) *SMA {
	if period < 1 {
		period = 1
	}
	return &SMA{
		period: period,
		values: make([]float64, 0, period),
	}
}

// Update adds a new value and returns the current SMA.
// The second result is false until period values have been seen.
func (s *SMA) Update(value float64) (float64, bool) {
	s.values = append(s.values, value)
	s.sum += value
	s.seen++

	if len(s.values) < s.period {
		return 0, false
	}

	s.current = s.sum / float64(s.period)

	// Remove oldest value before the next update
	s.sum -= s.values[0]
	s.values = s.values[1:]

	return s.current, true
}

// Current returns the current SMA value without adding new data.
func (s *SMA) Current() (float64, bool) {
	if !s.Ready() {
		return 0, false
	}
	return s.current, true
}

// Ready returns true if enough data points have been collected.
func (s *SMA) Ready() bool {
	return s.seen >= s.period
}

// Period returns the SMA period.
func (s *SMA) Period() int {
	return s.period
}

// Reset clears all data.
func (s *SMA) Reset() {
	s.values = s.values[:0]
	s.sum = 0
	s.seen = 0
	s.current = 0
}

// Count returns the number of values in the current window.
func (s *SMA) Count() int {
	if s.seen > s.period {
		return s.period
	}
	return s.seen
}
