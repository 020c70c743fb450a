package source

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/tathienbao/tna/internal/types"
)

// CSVReader reads rows from comma separated text.
type CSVReader struct {
	reader  *csv.Reader
	closer  io.Closer
	lineNum int
}

// NewCSVReader wraps r. If r is an io.Closer it is closed by Close.
func NewCSVReader(r io.Reader) *CSVReader {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	c, _ := r.(io.Closer)
	return &CSVReader{reader: reader, closer: c}
}

// Next returns the next record.
func (c *CSVReader) Next() (Row, error) {
	record, err := c.reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	c.lineNum++
	if err != nil {
		return nil, fmt.Errorf("%w: line %d: %w", types.ErrParseFailure, c.lineNum, err)
	}
	return TextRow(record), nil
}

// Close closes the underlying reader when it owns one.
func (c *CSVReader) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}
