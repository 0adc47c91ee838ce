// =============================================================================
// CSV to QIF Converter - CSV Parser Module
// =============================================================================
//
// This module reads delimited-text exports from banks and brokers and hands
// the converter plain rows: raw cell values by column index plus the source
// line number used in error messages.
//
// FEATURES:
//   - Configurable delimiter (comma, tab, pipe, semicolon, any single rune)
//   - StartLine skips header and preamble lines
//   - Blank rows are skipped
//   - A UTF-8 byte order mark on the first cell is removed
//
// =============================================================================

package csvparser

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/config"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/types"
)

// =============================================================================
// SETTINGS
// =============================================================================

// Settings controls how the input is split into rows.
type Settings struct {
	// Delimiter is the column separator. Aliases "\t", "tab", "pipe" and
	// "semicolon" are accepted.
	Delimiter string

	// StartLine is the 1-based line of the first data row.
	StartLine int
}

// SettingsFrom extracts the parser settings from rule document controls.
func SettingsFrom(c config.Controls) Settings {
	return Settings{Delimiter: c.Separator, StartLine: c.StartLine}
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads every data row from r.
//
// PARAMETERS:
//   - r: The delimited text.
//   - settings: Delimiter and start line.
//
// RETURNS:
//   - The data rows in input order.
//   - An error wrapping types.ErrIO if the text cannot be read.
func Parse(r io.Reader, settings Settings) ([]types.Row, error) {
	reader, err := NewReader(r, settings)
	if err != nil {
		return nil, err
	}
	var rows []types.Row
	for reader.Next() {
		rows = append(rows, reader.Row())
	}
	if err := reader.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// Source reads rows from a file on disk.
type Source struct {
	Path     string
	Settings Settings
}

// ReadRows opens the file and parses it.
func (s *Source) ReadRows(ctx context.Context) ([]types.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open file: %v", types.ErrIO, err)
	}
	defer file.Close()

	rows, err := Parse(bufio.NewReader(file), s.Settings)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return rows, nil
}

// Delimiter resolves a Separator control to the rune that splits columns.
func Delimiter(name string) (rune, error) {
	switch name {
	case "\\t", "\t", "tab", "TAB":
		return '\t', nil
	case "pipe", "PIPE":
		return '|', nil
	case "semicolon":
		return ';', nil
	case "":
		return ',', nil
	}
	r, size := utf8.DecodeRuneInString(name)
	if size != len(name) || r == utf8.RuneError || r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("%w: separator must be a single character, got %q", types.ErrConfig, name)
	}
	return r, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings Settings) error {
	comma, err := Delimiter(settings.Delimiter)
	if err != nil {
		return err
	}
	reader.Comma = comma

	// Exports often have ragged trailing columns and stray quotes.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return nil
}

// =============================================================================
// STREAMING READER
// =============================================================================

// Reader yields data rows one at a time.
//
// USAGE:
//
//	reader, err := NewReader(r, settings)
//	for reader.Next() {
//	    row := reader.Row()
//	}
//	if err := reader.Err(); err != nil { ... }
type Reader struct {
	reader     *csv.Reader
	settings   Settings
	currentRow types.Row
	first      bool
	err        error
}

// NewReader creates a streaming reader over r.
func NewReader(r io.Reader, settings Settings) (*Reader, error) {
	reader := csv.NewReader(r)
	if err := configureReader(reader, settings); err != nil {
		return nil, err
	}
	if settings.StartLine < 1 {
		settings.StartLine = 1
	}
	return &Reader{reader: reader, settings: settings, first: true}, nil
}

// Next advances to the next data row. Returns false when there are no more
// rows or an error occurred.
func (p *Reader) Next() bool {
	for p.err == nil {
		record, err := p.reader.Read()
		if errors.Is(err, io.EOF) {
			return false
		}
		if err != nil {
			p.err = fmt.Errorf("%w: %v", types.ErrIO, err)
			return false
		}
		line, _ := p.reader.FieldPos(0)

		if p.first {
			p.first = false
			if len(record) > 0 {
				record[0] = strings.TrimPrefix(record[0], "\ufeff")
			}
		}

		if line < p.settings.StartLine || isRowEmpty(record) {
			continue
		}

		p.currentRow = types.Row{Line: line, Cells: record}
		return true
	}
	return false
}

// Row returns the current row.
func (p *Reader) Row() types.Row { return p.currentRow }

// Err returns any error that occurred during parsing.
func (p *Reader) Err() error { return p.err }

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
