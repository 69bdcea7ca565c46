package table

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/KaramelBytes/pdspeech-cli/internal/utils"
)

// EncodeCSV renders the table as comma-separated text with a header row and
// no index column.
func EncodeCSV(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, fmt.Errorf("write rows: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteCSV writes the table to path atomically. A failed write leaves any
// previous file untouched and reports ErrIO.
func WriteCSV(path string, t *Table) error {
	b, err := EncodeCSV(t)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrIO, path, err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrIO, path, err)
	}
	return nil
}
