package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tathienbao/tna/internal/source"
	"github.com/tathienbao/tna/internal/types"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite repository.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo := &SQLiteRepository{db: db}

	// Run migrations
	if err := repo.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return repo, nil
}

// Migrate runs database migrations.
func (r *SQLiteRepository) Migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS days (
			date TEXT PRIMARY KEY,
			open TEXT NOT NULL,
			high TEXT NOT NULL,
			low TEXT NOT NULL,
			close TEXT NOT NULL,
			adj_close TEXT NOT NULL,
			volume INTEGER NOT NULL,
			import_id TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS imports (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			days INTEGER NOT NULL,
			first_date TEXT,
			last_date TEXT,
			imported_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_imports_imported_at ON imports(imported_at)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}

	return nil
}

// SaveDays replaces the cached days with the given ones in a single transaction.
func (r *SQLiteRepository) SaveDays(ctx context.Context, importID string, days []*types.Day) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM days`); err != nil {
		return fmt.Errorf("clear days: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO days (date, open, high, low, close, adj_close, volume, import_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, day := range days {
		if day == nil {
			return fmt.Errorf("%w: nil day", types.ErrMissingArgument)
		}
		if !finite(day) {
			return fmt.Errorf("%w: day %s has a non-finite price", types.ErrInvalidArgument, day.Date().Format(types.DateLayout))
		}
		rec := NewDayRecord(day, importID)
		_, err := stmt.ExecContext(ctx,
			rec.Date.Format(types.DateLayout),
			rec.Open.String(),
			rec.High.String(),
			rec.Low.String(),
			rec.Close.String(),
			rec.AdjClose.String(),
			rec.Volume,
			rec.ImportID,
		)
		if err != nil {
			return fmt.Errorf("insert day %s: %w", rec.Date.Format(types.DateLayout), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// CountDays returns the number of cached days.
func (r *SQLiteRepository) CountDays(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM days`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count days: %w", err)
	}
	return n, nil
}

// GetDayRecord returns the cached day for date.
func (r *SQLiteRepository) GetDayRecord(ctx context.Context, date time.Time) (*DayRecord, error) {
	query := `SELECT date, open, high, low, close, adj_close, volume, COALESCE(import_id, '')
		FROM days WHERE date = ?`

	var rec DayRecord
	var d, open, high, low, closePrice, adjClose string

	err := r.db.QueryRowContext(ctx, query, types.NormalizeDate(date).Format(types.DateLayout)).Scan(
		&d, &open, &high, &low, &closePrice, &adjClose, &rec.Volume, &rec.ImportID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no cached day on %s", types.ErrNotFound, date.Format(types.DateLayout))
	}
	if err != nil {
		return nil, fmt.Errorf("query day: %w", err)
	}

	rec.Date, err = time.Parse(types.DateLayout, d)
	if err != nil {
		return nil, fmt.Errorf("%w: stored date %q: %w", types.ErrParseFailure, d, err)
	}
	for _, f := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"open", open, &rec.Open},
		{"high", high, &rec.High},
		{"low", low, &rec.Low},
		{"close", closePrice, &rec.Close},
		{"adj_close", adjClose, &rec.AdjClose},
	} {
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return nil, fmt.Errorf("%w: stored %s %q on %s: %w", types.ErrParseFailure, f.name, f.raw, d, err)
		}
		*f.dst = v
	}

	return &rec, nil
}

// SaveImport records an import run.
func (r *SQLiteRepository) SaveImport(ctx context.Context, record ImportRecord) error {
	query := `INSERT INTO imports (id, source, days, first_date, last_date, imported_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.Source,
		record.Days,
		formatOptionalDate(record.FirstDate),
		formatOptionalDate(record.LastDate),
		record.ImportedAt,
	)
	if err != nil {
		return fmt.Errorf("insert import: %w", err)
	}

	return nil
}

// GetLatestImport returns the most recent import, or nil if there is none.
func (r *SQLiteRepository) GetLatestImport(ctx context.Context) (*ImportRecord, error) {
	query := `SELECT id, source, days, COALESCE(first_date, ''), COALESCE(last_date, ''), imported_at
		FROM imports ORDER BY imported_at DESC LIMIT 1`

	var rec ImportRecord
	var first, last string

	err := r.db.QueryRowContext(ctx, query).Scan(
		&rec.ID, &rec.Source, &rec.Days, &first, &last, &rec.ImportedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest import: %w", err)
	}

	if first != "" {
		rec.FirstDate, _ = time.Parse(types.DateLayout, first)
	}
	if last != "" {
		rec.LastDate, _ = time.Parse(types.DateLayout, last)
	}

	return &rec, nil
}

// Rows streams the cached days newest first behind a header row, matching
// the layout of the source workbook.
func (r *SQLiteRepository) Rows(ctx context.Context) (source.RowReader, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT date, open, high, low, close, adj_close, volume
		FROM days ORDER BY date DESC`)
	if err != nil {
		return nil, fmt.Errorf("query days: %w", err)
	}
	return &dayRows{rows: rows}, nil
}

// Close closes the database connection.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func finite(d *types.Day) bool {
	for _, v := range []float64{d.Open(), d.High(), d.Low(), d.Close(), d.AdjClose()} {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return false
		}
	}
	return true
}

func formatOptionalDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(types.DateLayout)
}

// dayRows adapts a query result to source.RowReader.
type dayRows struct {
	rows         *sql.Rows
	headerIssued bool
	onClose      func() error
}

var sourceHeader = source.TextRow{"date", "open", "high", "low", "close", "adj_close", "volume"}

func (d *dayRows) Next() (source.Row, error) {
	if !d.headerIssued {
		d.headerIssued = true
		return sourceHeader, nil
	}

	if !d.rows.Next() {
		if err := d.rows.Err(); err != nil {
			return nil, fmt.Errorf("%w: read days: %w", types.ErrParseFailure, err)
		}
		return nil, io.EOF
	}

	var date, open, high, low, closePrice, adjClose string
	var volume int64
	if err := d.rows.Scan(&date, &open, &high, &low, &closePrice, &adjClose, &volume); err != nil {
		return nil, fmt.Errorf("%w: scan day: %w", types.ErrParseFailure, err)
	}

	return source.TextRow{date, open, high, low, closePrice, adjClose, strconv.FormatInt(volume, 10)}, nil
}

func (d *dayRows) Close() error {
	err := d.rows.Close()
	if d.onClose != nil {
		if cerr := d.onClose(); err == nil {
			err = cerr
		}
	}
	return err
}
