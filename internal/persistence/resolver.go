package persistence

import (
	"context"
	"fmt"
	"os"

	"github.com/tathienbao/tna/internal/source"
	"github.com/tathienbao/tna/internal/types"
)

// SQLiteResolver resolves a location to a SQLite cache file written by the
// import command. The database stays open until the returned reader is closed.
type SQLiteResolver struct{}

// NewSQLiteResolver creates a resolver for SQLite caches.
func NewSQLiteResolver() *SQLiteResolver {
	return &SQLiteResolver{}
}

// Open opens the database at location and streams its days.
func (SQLiteResolver) Open(ctx context.Context, location string) (source.RowReader, error) {
	if location == "" {
		return nil, fmt.Errorf("%w: database location", types.ErrMissingArgument)
	}

	// The driver would create a missing file, so the cache must already exist.
	info, err := os.Stat(location)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrResourceUnavailable, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", types.ErrResourceUnavailable, location)
	}

	repo, err := NewSQLiteRepository(location)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrResourceUnavailable, err)
	}

	rows, err := repo.Rows(ctx)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("%w: %w", types.ErrResourceUnavailable, err)
	}

	dr := rows.(*dayRows)
	dr.onClose = repo.Close
	return dr, nil
}
