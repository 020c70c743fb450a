package source

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/tathienbao/tna/internal/types"
)

// FSResolver resolves locations inside an fs.FS. It serves plain directories,
// zip bundles and embedded file systems alike.
type FSResolver struct {
	fsys   fs.FS
	format Format
	closer io.Closer
}

// NewFSResolver creates a resolver over fsys. Format auto picks a reader by extension.
func NewFSResolver(fsys fs.FS, format Format) *FSResolver {
	if format == "" {
		format = FormatAuto
	}
	return &FSResolver{fsys: fsys, format: format}
}

// NewDirResolver resolves locations relative to a directory on disk.
func NewDirResolver(dir string, format Format) *FSResolver {
	return NewFSResolver(os.DirFS(dir), format)
}

// NewArchiveResolver resolves locations inside a zip bundle.
// The archive stays open until Close is called.
func NewArchiveResolver(archivePath string, format Format) (*FSResolver, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("%w: open archive %s: %w", types.ErrResourceUnavailable, archivePath, err)
	}
	r := NewFSResolver(zr, format)
	r.closer = zr
	return r, nil
}

// Open opens location and returns a reader matching its format.
func (r *FSResolver) Open(ctx context.Context, location string) (RowReader, error) {
	if location == "" {
		return nil, fmt.Errorf("%w: source location", types.ErrMissingArgument)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	format, err := Resolve(r.format, location)
	if err != nil {
		return nil, err
	}

	name := cleanLocation(location)
	f, err := r.fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", types.ErrResourceUnavailable, location, err)
	}

	switch format {
	case FormatCSV:
		return NewCSVReader(f), nil
	case FormatXLSX:
		defer f.Close()
		return NewXLSXReader(f)
	default:
		f.Close()
		return nil, fmt.Errorf("%w: format %s cannot be read from a file system", types.ErrInvalidArgument, format)
	}
}

// Close releases the archive behind the resolver, if any.
func (r *FSResolver) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// cleanLocation converts a configured location into an fs.FS name.
func cleanLocation(location string) string {
	name := path.Clean(strings.ReplaceAll(location, "\\", "/"))
	return strings.TrimPrefix(name, "/")
}
