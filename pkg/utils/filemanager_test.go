package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/config"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/types"
)

func TestResolvePaths(t *testing.T) {
	tests := []struct {
		name          string
		input, output string
		controls      config.Controls
		want          Paths
	}{
		{
			name:  "command line only",
			input: "in/stmt.csv",
			want:  Paths{Input: "in/stmt.csv", Output: "in/stmt.qif"},
		},
		{
			name:     "bare names use folders",
			input:    "stmt.csv",
			output:   "out.qif",
			controls: config.Controls{CsvFolder: "csv", QifFolder: "qif"},
			want:     Paths{Input: filepath.Join("csv", "stmt.csv"), Output: filepath.Join("qif", "out.qif")},
		},
		{
			name:     "command line directory wins",
			input:    "other/stmt.csv",
			output:   "elsewhere/out.qif",
			controls: config.Controls{CsvFolder: "csv", QifFolder: "qif"},
			want:     Paths{Input: "other/stmt.csv", Output: "elsewhere/out.qif"},
		},
		{
			name:     "document controls only",
			controls: config.Controls{CsvFolder: "csv", CsvFile: "bank.csv", QifFolder: "qif", QifFile: "bank.qif"},
			want:     Paths{Input: filepath.Join("csv", "bank.csv"), Output: filepath.Join("qif", "bank.qif")},
		},
		{
			name:     "derived output in QifFolder",
			input:    "in/March.xlsx",
			controls: config.Controls{QifFolder: "qif"},
			want:     Paths{Input: "in/March.xlsx", Output: filepath.Join("qif", "March.qif")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolvePaths(tt.input, tt.output, tt.controls)
			if err != nil {
				t.Fatalf("ResolvePaths: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}

	if _, err := ResolvePaths("", "", config.Controls{}); !errors.Is(err, types.ErrConfig) {
		t.Errorf("expected ErrConfig without input, got %v", err)
	}
}

func TestIsSpreadsheet(t *testing.T) {
	if !IsSpreadsheet("a/b/Statement.XLSX") {
		t.Error("expected .XLSX to be a spreadsheet")
	}
	if IsSpreadsheet("statement.csv") {
		t.Error("csv is not a spreadsheet")
	}
}

func TestCheckInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.csv")
	if err := os.WriteFile(path, []byte("a,b\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := CheckInput(path); err != nil {
		t.Errorf("CheckInput(existing) = %v", err)
	}
	for _, p := range []string{filepath.Join(dir, "typo.csv"), dir} {
		if err := CheckInput(p); !errors.Is(err, types.ErrIO) {
			t.Errorf("CheckInput(%s) = %v, want ErrIO", p, err)
		}
	}
}

func TestOutputFileCommit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.qif")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := CreateOutput(path)
	if err != nil {
		t.Fatalf("CreateOutput: %v", err)
	}
	if out.Path() != path {
		t.Errorf("Path() = %s, want %s", out.Path(), path)
	}
	fmt.Fprint(out, "new")

	if data, _ := os.ReadFile(path); string(data) != "old" {
		t.Errorf("final path changed before Commit: %q", data)
	}
	if err := out.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if data, _ := os.ReadFile(path); string(data) != "new" {
		t.Errorf("after Commit = %q, want new", data)
	}
	if _, err := os.Stat(out.Name()); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind: %v", err)
	}
}

func TestOutputFileDiscard(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.qif")
	if err := os.WriteFile(path, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := CreateOutput(path)
	if err != nil {
		t.Fatalf("CreateOutput: %v", err)
	}
	fmt.Fprint(out, "partial")
	if err := out.Discard(); err != nil {
		t.Fatalf("Discard: %v", err)
	}

	if data, _ := os.ReadFile(path); string(data) != "old" {
		t.Errorf("existing output changed: %q", data)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only out.qif in %s, found %d entries", dir, len(entries))
	}
}

func TestWriteErrorLog(t *testing.T) {
	dir := t.TempDir()
	rowErr := &types.RowError{
		Line:  12,
		Field: "action",
		Rule:  "ActionMap",
		Value: "Journal",
		Err:   fmt.Errorf("%w: no ActionMap entry", types.ErrUnmappedVocabulary),
	}
	entry := EntryFromError(fmt.Errorf("convert: %w", rowErr), "stmt.csv", "run-1")
	if entry.ErrorType != "UnmappedVocabularyError" || entry.RowNumber != 12 || entry.Rule != "ActionMap" {
		t.Fatalf("entry = %+v", entry)
	}

	path, err := WriteErrorLog([]ErrorLogEntry{entry}, dir)
	if err != nil {
		t.Fatalf("WriteErrorLog: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "error_log_") {
		t.Errorf("log name = %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Total Errors: 1", "Line Number:    12", "Value:          Journal", "run-1"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log missing %q:\n%s", want, data)
		}
	}

	if path, err := WriteErrorLog(nil, dir); path != "" || err != nil {
		t.Errorf("empty log: %q, %v", path, err)
	}
}

func TestErrorKind(t *testing.T) {
	if got := ErrorKind(types.ConfigErrorf("x")); got != "ConfigError" {
		t.Errorf("ErrorKind(config) = %s", got)
	}
	if got := ErrorKind(errors.New("other")); got != "Error" {
		t.Errorf("ErrorKind(other) = %s", got)
	}
}
