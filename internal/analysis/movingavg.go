// Package analysis computes derived series over a loaded price history.
package analysis

import (
	"fmt"

	"github.com/tathienbao/tna/internal/types"
	"github.com/tathienbao/tna/pkg/indicator"
)

// ComputeAll writes the simple moving average of adjusted close for period
// onto every day that has at least period days before and including it.
//
// The days are read in slice order and are expected to be ascending by date.
// Earlier days get nothing for this period. Re-running with the same period
// overwrites with identical values; other periods are left untouched.
func ComputeAll(days []*types.Day, period int) error {
	if period <= 0 {
		return fmt.Errorf("%w: period must be positive, got %d", types.ErrInvalidArgument, period)
	}

	for i, day := range days {
		if day == nil {
			return fmt.Errorf("%w: day at index %d", types.ErrMissingArgument, i)
		}
	}

	sma := indicator.NewSMA(period)
	for _, day := range days {
		avg, ok := sma.Update(day.AdjClose())
		if !ok {
			continue
		}
		if err := day.SetMovingAverage(period, avg); err != nil {
			return fmt.Errorf("set moving average %d on %s: %w", period, day.Date().Format(types.DateLayout), err)
		}
	}

	return nil
}

// ComputeMany runs ComputeAll for each period in order, stopping at the first error.
func ComputeMany(days []*types.Day, periods []int) error {
	for _, period := range periods {
		if err := ComputeAll(days, period); err != nil {
			return fmt.Errorf("compute sma %d: %w", period, err)
		}
	}
	return nil
}
