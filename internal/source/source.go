// Package source turns a logical price-history location into a stream of typed rows.
//
// The store only sees RowReader. Where the rows physically live (a plain
// directory, a zip bundle, an embedded file system or a SQLite cache) is decided
// by whichever Resolver the host hands it.
package source

import (
	"context"
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/tathienbao/tna/internal/types"
	"github.com/xuri/excelize/v2"
)

// Row is one record of a tabular source with typed cell accessors.
// Cell indexes are zero based.
type Row interface {
	Len() int
	Date(i int) (time.Time, error)
	Float(i int) (float64, error)
	Int(i int) (int64, error)
}

// RowReader yields rows in source order.
type RowReader interface {
	// Next returns the next row, or io.EOF when the source is exhausted.
	Next() (Row, error)

	// Close releases the underlying handle.
	Close() error
}

// Resolver opens a readable row stream for a logical location.
type Resolver interface {
	Open(ctx context.Context, location string) (RowReader, error)
}

// Format identifies the physical encoding of a source.
type Format string

const (
	FormatAuto   Format = "auto"
	FormatXLSX   Format = "xlsx"
	FormatCSV    Format = "csv"
	FormatSQLite Format = "sqlite"
)

// ParseFormat validates a configured format name. Empty means auto.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatAuto, nil
	case FormatAuto, FormatXLSX, FormatCSV, FormatSQLite:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown source format %q", types.ErrInvalidArgument, s)
	}
}

// DetectFormat picks a format from the location's extension.
func DetectFormat(location string) (Format, error) {
	switch strings.ToLower(path.Ext(location)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite, nil
	default:
		return "", fmt.Errorf("%w: cannot infer format of %q", types.ErrInvalidArgument, location)
	}
}

// Resolve returns f, or the detected format of location when f is auto.
func Resolve(f Format, location string) (Format, error) {
	if f == "" || f == FormatAuto {
		return DetectFormat(location)
	}
	return f, nil
}

// TextRow is a row whose cells arrive as text, as from CSV files,
// raw workbook values or the SQLite cache.
type TextRow []string

// Len returns the number of cells.
func (r TextRow) Len() int { return len(r) }

// Date parses cell i as a calendar date. Workbook serial numbers are accepted
// alongside the text layouts listed in dateLayouts and count from 1900.
func (r TextRow) Date(i int) (time.Time, error) {
	return r.date(i, false)
}

func (r TextRow) date(i int, date1904 bool) (time.Time, error) {
	s, err := r.cell(i)
	if err != nil {
		return time.Time{}, err
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		t, err := excelize.ExcelDateToTime(serial, date1904)
		if err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: cell %d: unknown date format %q", types.ErrParseFailure, i+1, s)
}

// Float parses cell i as a floating point number.
func (r TextRow) Float(i int) (float64, error) {
	s, err := r.cell(i)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: cell %d: %q is not a number", types.ErrParseFailure, i+1, s)
	}
	return v, nil
}

// Int parses cell i as an integer. Fractional numbers are truncated toward zero.
func (r TextRow) Int(i int) (int64, error) {
	s, err := r.cell(i)
	if err != nil {
		return 0, err
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: cell %d: %q is not a number", types.ErrParseFailure, i+1, s)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which does not fit.
	if math.Abs(f) >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: cell %d: %q is out of range", types.ErrParseFailure, i+1, s)
	}
	return int64(f), nil
}

func (r TextRow) cell(i int) (string, error) {
	if i < 0 || i >= len(r) {
		return "", fmt.Errorf("%w: cell %d missing (row has %d)", types.ErrParseFailure, i+1, len(r))
	}
	s := strings.TrimSpace(r[i])
	if s == "" {
		return "", fmt.Errorf("%w: cell %d is empty", types.ErrParseFailure, i+1)
	}
	return s, nil
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04",
	"01/02/2006",
	"1/2/2006",
	"1/2/06",
	"01-02-06",
}
