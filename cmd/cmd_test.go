package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestConvertBankStatement(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "checking.csv")
	csv := "Date,Description,Amount,Balance,Check\n" +
		"10/01/2023,COFFEE SHOP,-4.50,\"1,095.50\",\n" +
		"10/02/2023,PAYROLL,\"$2,000.00\",\"3,095.50\",\n"
	if err := os.WriteFile(input, []byte(csv), 0644); err != nil {
		t.Fatal(err)
	}
	output := filepath.Join(dir, "out", "checking.qif")

	summary, err := execute(t, "convert", input, output, "--rules", filepath.Join("..", "configs", "bank.yaml"))
	if err != nil {
		t.Fatalf("convert failed: %v\n%s", err, summary)
	}
	if !strings.Contains(summary, "Records written: 2") {
		t.Errorf("summary = %s", summary)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	want := "!Account\nNChecking\nTBank\nDMain checking account\n/10/02/2023\n$3095.50\n^\n" +
		"!Type:Bank\n" +
		"D10/01/2023\nT-4.50\nPCOFFEE SHOP\nMCOFFEE SHOP\nLFood:Coffee\n^\n" +
		"D10/02/2023\nT2000.00\nPPAYROLL\nMPAYROLL\nLIncome:Salary\n^\n"
	if string(data) != want {
		t.Errorf("output mismatch\ngot:\n%s\nwant:\n%s", data, want)
	}
}

func TestConvertFailureWritesErrorLog(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "checking.csv")
	csv := "Date,Description,Amount,Balance,Check\n" +
		"2023-10-01,COFFEE SHOP,-4.50,,\n"
	if err := os.WriteFile(input, []byte(csv), 0644); err != nil {
		t.Fatal(err)
	}
	output := filepath.Join(dir, "checking.qif")

	_, err := execute(t, "convert", input, output, "--rules", filepath.Join("..", "configs", "bank.yaml"), "--error-log")
	errorLog = false
	if err == nil {
		t.Fatal("expected a date parse failure")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error should name line 2: %v", err)
	}

	logs, _ := filepath.Glob(filepath.Join(dir, "error_log_*.txt"))
	if len(logs) != 1 {
		t.Errorf("expected one error log, found %v", logs)
	}
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate", "--rules", filepath.Join("..", "configs", "brokerage.json"))
	if err != nil {
		t.Fatalf("validate failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "No validation errors.") || !strings.Contains(out, "Invst") ||
		!strings.Contains(out, "date=A, action=B, symbol=C") {
		t.Errorf("output = %s", out)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("date: A\namountT: B\n"), 0644); err != nil {
		t.Fatal(err)
	}
	out, err = execute(t, "validate", "--rules", bad)
	if err == nil {
		t.Fatalf("expected validation failure:\n%s", out)
	}
	if !strings.Contains(out, "CsvTimeFormat") {
		t.Errorf("output should name CsvTimeFormat: %s", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "CSV to QIF Converter") || !strings.Contains(out, Version) {
		t.Errorf("output = %s", out)
	}
}

func TestConvertKeepsExistingOutputOnFailure(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "checking.qif")
	previous := "!Type:Bank\nD01/09/2023\nT-1.00\n^\n"
	if err := os.WriteFile(output, []byte(previous), 0644); err != nil {
		t.Fatal(err)
	}
	rules := filepath.Join("..", "configs", "bank.yaml")

	badDate := filepath.Join(dir, "bad.csv")
	if err := os.WriteFile(badDate, []byte("Date,Description,Amount,Balance,Check\n2023-10-01,X,-1.00,,\n"), 0644); err != nil {
		t.Fatal(err)
	}

	inputs := map[string]string{
		"missing input": filepath.Join(dir, "typo.csv"),
		"bad row":       badDate,
	}
	for name, input := range inputs {
		if _, err := execute(t, "convert", input, output, "--rules", rules); err == nil {
			t.Errorf("%s: expected an error", name)
		}
		data, err := os.ReadFile(output)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if string(data) != previous {
			t.Errorf("%s: existing output changed to %q", name, data)
		}
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}
