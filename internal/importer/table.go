// Package importer loads transactions and products from XLSX workbooks or CSV
// files. Columns are located by header name, so their order does not matter.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format identifies a supported file format
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// utf8BOM prefixes CSV files saved as UTF-8 by spreadsheet tools
const utf8BOM = "\ufeff"

// ErrUnsupportedFormat is returned for files that are neither XLSX nor CSV
var ErrUnsupportedFormat = errors.New("unsupported file format")

// DetectFormat picks the format from the file extension
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
}

// RowError describes why a single row could not be imported.
// Row is the 1-based row number as shown by a spreadsheet application.
type RowError struct {
	Row    int
	Column string
	Err    error
}

func (e RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("row %d, column %q: %v", e.Row, e.Column, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// ImportError lists every row that failed to import
type ImportError struct {
	Path string
	Rows []RowError
}

func (e *ImportError) Error() string {
	switch len(e.Rows) {
	case 0:
		return fmt.Sprintf("import %s failed", e.Path)
	case 1:
		return fmt.Sprintf("import %s: %v", e.Path, e.Rows[0])
	}
	return fmt.Sprintf("import %s: %d rows failed (first: %v)", e.Path, len(e.Rows), e.Rows[0])
}

// table is a header-indexed view over raw rows
type table struct {
	columns map[string]int
	rows    [][]string
	header  int
}

// readTable loads the first sheet of a workbook or a whole CSV file. The first
// non-empty row is the header.
func readTable(path string) (*table, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	switch format {
	case FormatXLSX:
		rows, err = readWorkbook(path)
	case FormatCSV:
		rows, err = readCSV(path)
	}
	if err != nil {
		return nil, err
	}

	header := 0
	for header < len(rows) && blank(rows[header]) {
		header++
	}
	if header == len(rows) {
		return nil, fmt.Errorf("%s: no header row", path)
	}

	t := &table{columns: make(map[string]int), rows: rows, header: header}
	for i, name := range rows[header] {
		key := normalizeHeader(name)
		if key == "" {
			continue
		}
		if _, dup := t.columns[key]; !dup {
			t.columns[key] = i
		}
	}
	return t, nil
}

func readWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		if len(rows) == 0 && len(record) > 0 {
			record[0] = strings.TrimPrefix(record[0], utf8BOM)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func normalizeHeader(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.NewReplacer(" ", "_", "-", "_").Replace(name)
	return name
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// column finds the first header matching any of the aliases
func (t *table) column(aliases ...string) (int, bool) {
	for _, alias := range aliases {
		if i, ok := t.columns[alias]; ok {
			return i, true
		}
	}
	return -1, false
}

// require resolves every named column or fails listing the missing ones
func (t *table) require(columns map[string][]string) (map[string]int, error) {
	resolved := make(map[string]int, len(columns))
	var missing []string
	for name, aliases := range columns {
		i, ok := t.column(aliases...)
		if !ok {
			missing = append(missing, name)
			continue
		}
		resolved[name] = i
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return resolved, nil
}

// each calls fn for every non-blank data row with its spreadsheet row number
func (t *table) each(fn func(rowNum int, cell func(col int) string)) {
	for i := t.header + 1; i < len(t.rows); i++ {
		row := t.rows[i]
		if blank(row) {
			continue
		}
		fn(i+1, func(col int) string {
			if col < 0 || col >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[col])
		})
	}
}
