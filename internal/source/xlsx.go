package source

import (
	"fmt"
	"io"
	"time"

	"github.com/tathienbao/tna/internal/types"
	"github.com/xuri/excelize/v2"
)

// XLSXReader reads rows from the first sheet of a workbook.
// Cells are read raw, so dates arrive as serial numbers and prices unformatted.
type XLSXReader struct {
	file     *excelize.File
	rows     *excelize.Rows
	sheet    string
	rowNum   int
	date1904 bool
}

// sheetRow is a workbook row whose date serials follow the workbook's date system.
type sheetRow struct {
	TextRow
	date1904 bool
}

// Date parses cell i as a calendar date.
func (r sheetRow) Date(i int) (time.Time, error) {
	return r.date(i, r.date1904)
}

// NewXLSXReader parses the workbook in r and positions on its first sheet.
func NewXLSXReader(r io.Reader) (*XLSXReader, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %w", types.ErrResourceUnavailable, err)
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		_ = f.Close()
		return nil, fmt.Errorf("%w: workbook has no sheets", types.ErrParseFailure)
	}

	props, err := f.GetWorkbookProps()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: read workbook properties: %w", types.ErrParseFailure, err)
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: read sheet %q: %w", types.ErrParseFailure, sheets[0], err)
	}

	return &XLSXReader{
		file:     f,
		rows:     rows,
		sheet:    sheets[0],
		date1904: props.Date1904 != nil && *props.Date1904,
	}, nil
}

// Sheet returns the name of the sheet being read.
func (x *XLSXReader) Sheet() string {
	return x.sheet
}

// Next returns the next non-blank row of the sheet.
func (x *XLSXReader) Next() (Row, error) {
	for x.rows.Next() {
		x.rowNum++
		cells, err := x.rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("%w: sheet %q row %d: %w", types.ErrParseFailure, x.sheet, x.rowNum, err)
		}
		// Rows with no cells at all are gaps in the sheet, not records.
		if len(cells) == 0 {
			continue
		}
		return sheetRow{TextRow: cells, date1904: x.date1904}, nil
	}

	if err := x.rows.Error(); err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %w", types.ErrParseFailure, x.sheet, err)
	}
	return nil, io.EOF
}

// Close releases the row iterator and the workbook.
func (x *XLSXReader) Close() error {
	rowsErr := x.rows.Close()
	if err := x.file.Close(); err != nil {
		return err
	}
	return rowsErr
}
