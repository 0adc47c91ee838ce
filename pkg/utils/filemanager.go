// =============================================================================
// CSV to QIF Converter - File Manager Utility
// =============================================================================
//
// This module provides file utilities for the converter:
//   - Input/output path resolution (command line vs. rule document controls)
//   - Input checks and output files replaced only on success
//   - Error log generation
//
// PATH RESOLUTION:
//   - A command-line path with a directory component is used as given
//   - A bare command-line file name is placed in CsvFolder / QifFolder
//   - Without a command-line path, CsvFolder+CsvFile / QifFolder+QifFile
//   - Without any output name, the input name with a .qif extension
//
// =============================================================================

package utils

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/config"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/types"
)

// =============================================================================
// PATH RESOLUTION
// =============================================================================

// Paths holds the resolved input and output file of a run.
type Paths struct {
	Input  string
	Output string
}

// ResolvePaths decides which files a run reads and writes.
//
// PARAMETERS:
//   - input, output: Command-line paths; either may be empty.
//   - c: The rule document controls.
//
// RETURNS:
//   - The resolved paths.
//   - A types.ErrConfig error if no input file is named anywhere.
func ResolvePaths(input, output string, c config.Controls) (Paths, error) {
	var p Paths

	switch {
	case input != "":
		p.Input = inFolder(input, c.CsvFolder)
	case c.CsvFile != "":
		p.Input = filepath.Join(c.CsvFolder, c.CsvFile)
	default:
		return p, types.ConfigErrorf("no input file: pass one on the command line or set CsvFile")
	}

	switch {
	case output != "":
		p.Output = inFolder(output, c.QifFolder)
	case c.QifFile != "":
		p.Output = filepath.Join(c.QifFolder, c.QifFile)
	default:
		name := strings.TrimSuffix(filepath.Base(p.Input), filepath.Ext(p.Input)) + ".qif"
		dir := c.QifFolder
		if dir == "" {
			dir = filepath.Dir(p.Input)
		}
		p.Output = filepath.Join(dir, name)
	}
	return p, nil
}

// inFolder places a bare file name in folder; paths with a directory are
// kept as given.
func inFolder(path, folder string) string {
	if folder == "" || filepath.Dir(path) != "." || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(folder, path)
}

// IsSpreadsheet reports whether path names an XLSX workbook.
func IsSpreadsheet(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

// CheckInput fails with types.ErrIO unless path is a readable regular file.
func CheckInput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: input file: %v", types.ErrIO, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: input %s is a directory", types.ErrIO, path)
	}
	return nil
}

// =============================================================================
// OUTPUT FILE
// =============================================================================

// OutputFile is written next to its final path and moved into place by
// Commit. Until then an existing file at that path is left untouched.
type OutputFile struct {
	*os.File
	path string
}

// CreateOutput creates the output directory and a temporary file in it.
func CreateOutput(path string) (*OutputFile, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: failed to create directory %s: %v", types.ErrIO, dir, err)
		}
	}
	file, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create output file: %v", types.ErrIO, err)
	}
	if err := file.Chmod(0644); err != nil {
		file.Close()
		os.Remove(file.Name())
		return nil, fmt.Errorf("%w: failed to create output file: %v", types.ErrIO, err)
	}
	return &OutputFile{File: file, path: path}, nil
}

// Path returns the final location of the file.
func (o *OutputFile) Path() string { return o.path }

// Commit closes the file and moves it to its final path.
func (o *OutputFile) Commit() error {
	if err := o.File.Close(); err != nil {
		os.Remove(o.Name())
		return fmt.Errorf("%w: failed to close output: %v", types.ErrIO, err)
	}
	if err := os.Rename(o.Name(), o.path); err != nil {
		os.Remove(o.Name())
		return fmt.Errorf("%w: failed to write %s: %v", types.ErrIO, o.path, err)
	}
	return nil
}

// Discard closes and removes the file without touching the final path.
func (o *OutputFile) Discard() error {
	o.File.Close()
	if err := os.Remove(o.Name()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: failed to remove %s: %v", types.ErrIO, o.Name(), err)
	}
	return nil
}

// =============================================================================
// ERROR LOG
// =============================================================================

// ErrorLogEntry represents an error for logging.
type ErrorLogEntry struct {
	Timestamp    time.Time
	RunID        string
	FileName     string
	ErrorType    string
	ErrorMessage string
	RowNumber    int
	FieldName    string
	FieldValue   string
	Rule         string
}

var errorKinds = []struct {
	err  error
	name string
}{
	{types.ErrConfig, "ConfigError"},
	{types.ErrUnknownField, "UnknownFieldError"},
	{types.ErrExpressionSyntax, "ExpressionSyntaxError"},
	{types.ErrArithmetic, "ArithmeticError"},
	{types.ErrNumericParse, "NumericParseError"},
	{types.ErrDateParse, "DateParseError"},
	{types.ErrUnmappedVocabulary, "UnmappedVocabularyError"},
	{types.ErrCancelled, "Cancelled"},
	{types.ErrIO, "IOError"},
}

// ErrorKind names the kind of a conversion error.
func ErrorKind(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Error"
}

// EntryFromError builds a log entry, pulling row details out of a
// *types.RowError.
func EntryFromError(err error, fileName, runID string) ErrorLogEntry {
	entry := ErrorLogEntry{
		Timestamp:    time.Now(),
		RunID:        runID,
		FileName:     fileName,
		ErrorType:    ErrorKind(err),
		ErrorMessage: err.Error(),
	}
	var rowErr *types.RowError
	if errors.As(err, &rowErr) {
		entry.RowNumber = rowErr.Line
		entry.FieldName = rowErr.Field
		entry.FieldValue = rowErr.Value
		entry.Rule = rowErr.Rule
	}
	return entry
}

// WriteErrorLog writes error entries to a log file.
//
// PARAMETERS:
//   - entries: The error entries to write.
//   - outputDir: The directory to write the log file.
//
// RETURNS:
//   - The path to the error log file.
//   - An error if writing fails.
func WriteErrorLog(entries []ErrorLogEntry, outputDir string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	// Generate log file name.
	timestamp := time.Now().Format("20060102_150405")
	logFileName := fmt.Sprintf("error_log_%s_%s.txt", timestamp, uuid.New().String()[:8])
	logPath := filepath.Join(outputDir, logFileName)

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	// Write header.
	fmt.Fprintf(writer, "CSV to QIF Converter - Error Log\n"+
		"Generated: %s\n"+
		"Total Errors: %d\n"+
		"================================================================================\n\n",
		time.Now().Format("2006-01-02 15:04:05"),
		len(entries))

	// Write each entry.
	for i, entry := range entries {
		fmt.Fprintf(writer, "Error #%d\n"+
			"  Timestamp:      %s\n"+
			"  Run ID:         %s\n"+
			"  File:           %s\n"+
			"  Error Type:     %s\n"+
			"  Message:        %s\n",
			i+1,
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.RunID,
			entry.FileName,
			entry.ErrorType,
			entry.ErrorMessage)

		if entry.RowNumber > 0 {
			fmt.Fprintf(writer, "  Line Number:    %d\n", entry.RowNumber)
		}
		if entry.Rule != "" {
			fmt.Fprintf(writer, "  Rule:           %s\n", entry.Rule)
		}
		if entry.FieldName != "" {
			fmt.Fprintf(writer, "  Field:          %s\n", entry.FieldName)
		}
		if entry.FieldValue != "" {
			fmt.Fprintf(writer, "  Value:          %s\n", entry.FieldValue)
		}
		writer.WriteString("\n")
	}

	// Write footer.
	writer.WriteString("================================================================================\n" +
		"End of Error Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}

	return logPath, nil
}
