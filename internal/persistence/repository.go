// Package persistence caches raw price history in a local database.
//
// Only the seven source fields of each day are stored. Moving averages are
// always recomputed after loading and never written.
package persistence

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tathienbao/tna/internal/source"
	"github.com/tathienbao/tna/internal/types"
)

// Repository defines the interface for the price-history cache.
type Repository interface {
	// Day operations
	SaveDays(ctx context.Context, importID string, days []*types.Day) error
	CountDays(ctx context.Context) (int, error)
	GetDayRecord(ctx context.Context, date time.Time) (*DayRecord, error)

	// Import audit
	SaveImport(ctx context.Context, record ImportRecord) error
	GetLatestImport(ctx context.Context) (*ImportRecord, error)

	// Rows streams the cache in the same layout as a source workbook.
	Rows(ctx context.Context) (source.RowReader, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}

// DayRecord represents a persisted day.
type DayRecord struct {
	Date     time.Time
	Open     decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Close    decimal.Decimal
	AdjClose decimal.Decimal
	Volume   int64
	ImportID string
}

// ImportRecord represents one run of the import command.
type ImportRecord struct {
	ID         string
	Source     string
	Days       int
	FirstDate  time.Time
	LastDate   time.Time
	ImportedAt time.Time
}

// NewDayRecord converts a day into its persisted form.
func NewDayRecord(day *types.Day, importID string) DayRecord {
	return DayRecord{
		Date:     day.Date(),
		Open:     decimal.NewFromFloat(day.Open()),
		High:     decimal.NewFromFloat(day.High()),
		Low:      decimal.NewFromFloat(day.Low()),
		Close:    decimal.NewFromFloat(day.Close()),
		AdjClose: decimal.NewFromFloat(day.AdjClose()),
		Volume:   day.Volume(),
		ImportID: importID,
	}
}
