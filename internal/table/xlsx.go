package table

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

type xlsxReader struct{}

func (xlsxReader) CanRead(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".xlsx")
}

// Read loads the first worksheet; its first row is the header.
func (xlsxReader) Read(path string) (*Table, error) {
	return ReadXLSX(path, "")
}

// ReadXLSX loads the named worksheet, or the first one when sheet is empty.
func ReadXLSX(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrIO, path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: %s: workbook has no sheets", ErrIO, path)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read sheet %q: %v", ErrIO, path, sheet, err)
	}
	t := &Table{Name: filepath.Base(path)}
	if len(rows) == 0 {
		return t, nil
	}
	t.Columns = make([]string, len(rows[0]))
	for i, h := range rows[0] {
		t.Columns[i] = strings.TrimSpace(h)
	}
	for n, r := range rows[1:] {
		if len(r) > len(t.Columns) {
			return nil, fmt.Errorf("%w: %s: row %d has %d cells, header has %d", ErrIO, path, n+2, len(r), len(t.Columns))
		}
		// excelize trims trailing empty cells; copyRow pads them back.
		t.Rows = append(t.Rows, copyRow(r, len(t.Columns)))
	}
	return t, nil
}
