package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/tathienbao/tna/internal/types"
)

// Recorder provides methods for recording metrics.
type Recorder struct{}

// NewRecorder creates a new metrics recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordLoad records a successful store load.
func (r *Recorder) RecordLoad(days int, duration time.Duration) {
	DaysLoaded.Set(float64(days))
	LoadDuration.Observe(duration.Seconds())
}

// RecordLoadFailure records a failed load under the kind of err.
func (r *Recorder) RecordLoadFailure(err error) {
	LoadFailures.WithLabelValues(FailureKind(err)).Inc()
}

// RecordAverages records the averages written for one period.
func (r *Recorder) RecordAverages(period, written int, duration time.Duration) {
	label := strconv.Itoa(period)
	AveragesWritten.WithLabelValues(label).Add(float64(written))
	ComputeDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordRun records the outcome of an analysis run.
func (r *Recorder) RecordRun(success bool) {
	if success {
		RunsTotal.WithLabelValues("success").Inc()
		LastRunTimestamp.Set(float64(time.Now().Unix()))
		return
	}
	RunsTotal.WithLabelValues("failure").Inc()
}

// FailureKind maps an error to a metric label.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, types.ErrMissingArgument):
		return "missing_argument"
	case errors.Is(err, types.ErrResourceUnavailable):
		return "unavailable"
	case errors.Is(err, types.ErrParseFailure):
		return "parse"
	case errors.Is(err, types.ErrInvalidArgument):
		return "invalid_argument"
	default:
		return "other"
	}
}

// Timer is a helper for measuring latency.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the elapsed duration.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
