// =============================================================================
// CSV to QIF Converter - XLSX Statement Parser
// =============================================================================
//
// Some banks only offer spreadsheet downloads. This module reads one sheet of
// an XLSX workbook and yields the same rows the CSV parser does, so the rule
// document's column letters address spreadsheet columns directly.
//
// SHEET SELECTION:
//   The Sheet control names the sheet to read. When it is empty the first
//   sheet of the workbook is used.
//
// LINE NUMBERS:
//   A row's line number is its spreadsheet row number (1-based), which is also
//   what StartLine is compared against.
//
// =============================================================================

package xlsxparser

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/config"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/types"
)

// =============================================================================
// SOURCE
// =============================================================================

// Source reads rows from a workbook on disk.
type Source struct {
	// Path is the workbook file.
	Path string

	// Sheet is the sheet name. Empty selects the first sheet.
	Sheet string

	// StartLine is the 1-based row number of the first data row.
	StartLine int
}

// SourceFrom builds a workbook source for path using the rule document
// controls.
func SourceFrom(path string, c config.Controls) *Source {
	return &Source{Path: path, Sheet: c.Sheet, StartLine: c.StartLine}
}

// ReadRows opens the workbook and returns its data rows.
//
// RETURNS:
//   - The non-empty rows at or after StartLine.
//   - An error wrapping types.ErrIO if the workbook cannot be opened, or
//     types.ErrConfig if the named sheet does not exist.
func (s *Source) ReadRows(ctx context.Context) ([]types.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open workbook: %v", types.ErrIO, err)
	}
	defer f.Close()

	return readSheet(f, s.Sheet, s.StartLine)
}

// Parse reads rows from a workbook stream.
func Parse(r io.Reader, sheet string, startLine int) ([]types.Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read workbook: %v", types.ErrIO, err)
	}
	defer f.Close()

	return readSheet(f, sheet, startLine)
}

// readSheet extracts data rows from the selected sheet.
func readSheet(f *excelize.File, sheet string, startLine int) ([]types.Row, error) {
	if sheet == "" {
		sheet = f.GetSheetName(0)
		if sheet == "" {
			return nil, fmt.Errorf("%w: workbook has no sheets", types.ErrIO)
		}
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: sheet %q not found in workbook", types.ErrConfig, sheet)
	}

	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read rows: %v", types.ErrIO, err)
	}

	if startLine < 1 {
		startLine = 1
	}

	var rows []types.Row
	for i := startLine - 1; i < len(cells); i++ {
		// Skip empty rows.
		if isRowEmpty(cells[i]) {
			continue
		}
		rows = append(rows, types.Row{Line: i + 1, Cells: cells[i]})
	}
	return rows, nil
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
