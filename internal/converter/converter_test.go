package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/csvparser"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/logger"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/types"
)

type sliceSource []types.Row

func (s sliceSource) ReadRows(ctx context.Context) ([]types.Row, error) {
	return s, nil
}

type csvSource string

func (s csvSource) ReadRows(ctx context.Context) ([]types.Row, error) {
	return csvparser.Parse(strings.NewReader(string(s)), csvparser.Settings{Delimiter: ",", StartLine: 2})
}

type scriptedPrompter struct {
	answer string
	err    error
	asked  []Decision
}

func (p *scriptedPrompter) Ask(ctx context.Context, d Decision) (string, error) {
	p.asked = append(p.asked, d)
	return p.answer, p.err
}

const bankRules = `{
	"CsvTimeFormat": "%Y-%m-%d",
	"QifTimeFormat": "%m/%d/%Y",
	"StartLine": 2,
	"account": "Checking",
	"date": "A",
	"payee": "B",
	"amountT": "C",
	"balance": "D"
}`

func TestRunBankEndToEnd(t *testing.T) {
	input := "Date,Payee,Amount,Balance\n" +
		"2023-10-01,Coffee,-4.50,95.50\n" +
		"2023-10-15,Salary,\"1,000.00\",1095.50\n" +
		"2023-10-05,Refund,10.00,105.50\n"

	var out, logs bytes.Buffer
	log := logger.NewWithWriter(&logs, true)
	conv := New(mustParse(t, bankRules), csvSource(input), &out, Options{Logger: &log})
	result := conv.Run(context.Background())
	if !result.Success {
		t.Fatalf("Run failed: %v", result.Error)
	}

	want := "!Account\nNChecking\nTBank\n/10/15/2023\n$1095.50\n^\n" +
		"!Type:Bank\n" +
		"D10/01/2023\nT-4.50\nPCoffee\n^\n" +
		"D10/15/2023\nT1000.00\nPSalary\n^\n" +
		"D10/05/2023\nT10.00\nPRefund\n^\n"
	if out.String() != want {
		t.Errorf("output mismatch\ngot:\n%s\nwant:\n%s", out.String(), want)
	}

	if result.State != StateDone || conv.State() != StateDone {
		t.Errorf("state = %s, want Done", result.State)
	}
	if result.Stats.RowsRead != 3 || result.Stats.RecordsWritten != 3 {
		t.Errorf("stats = %+v", result.Stats)
	}
	if result.RunID == "" || result.RunID != conv.RunID() {
		t.Errorf("run id = %q", result.RunID)
	}
	if !strings.Contains(logs.String(), `"run_id":"`+result.RunID+`"`) ||
		!strings.Contains(logs.String(), `"account_type":"Bank"`) {
		t.Errorf("log events should carry the run id and account type:\n%s", logs.String())
	}

	second := conv.Run(context.Background())
	if second.Success || second.Error == nil {
		t.Error("a converter must not run twice")
	}
}

func TestRunWithoutRows(t *testing.T) {
	var out bytes.Buffer
	result := New(mustParse(t, bankRules), sliceSource(nil), &out, Options{}).Run(context.Background())
	if !result.Success {
		t.Fatalf("Run failed: %v", result.Error)
	}
	if want := "!Account\nNChecking\nTBank\n^\n"; out.String() != want {
		t.Errorf("got %q, want %q", out.String(), want)
	}
}

func TestRunInvestment(t *testing.T) {
	doc := mustParse(t, `{
		"CsvTimeFormat": "%m/%d/%Y",
		"account": "Brokerage",
		"accountType": "Invst",
		"date": "A", "action": "B", "symbol": "C", "security": "D",
		"quantity": "E", "price": "F", "type": "G",
		"ActionMap": {"Buy to Open": "Buy", "Journal": "prompt"},
		"SecurityTypeMap": {"Equity": "Stock"},
		"Translations": {"security": [["self.symbol == 'MSFT'", "Microsoft"]]}
	}`)
	rows := sliceSource{
		row(2, "10/01/2023", "Buy to Open", "MSFT", "MSFT", "10", "-300.00", "Equity"),
		row(3, "10/02/2023", "Journal", "NVDA", "Nvidia", "5", "400.00", "Equity"),
		row(4, "10/03/2023", "Buy to Open", "MSFT", "MSFT", "1", "301.00", "Equity"),
		row(5, "10/04/2023", "Buy to Open", "AAPL", "Apple", "2", "170.00", "Equity"),
	}
	prompter := &scriptedPrompter{answer: "ShrsIn"}

	var out bytes.Buffer
	result := New(doc, rows, &out, Options{Prompter: prompter}).Run(context.Background())
	if !result.Success {
		t.Fatalf("Run failed: %v", result.Error)
	}

	text := out.String()
	wantPrefix := "!Account\nNBrokerage\nTInvst\n^\n" +
		"!Type:Security\n" +
		"NMicrosoft\nSMSFT\nTStock\n^\n" +
		"NNvidia\nSNVDA\nTStock\n^\n" +
		"NApple\nSAAPL\nTStock\n^\n" +
		"!Type:Invst\n" +
		"D01/10/2023\nNBuy\nYMicrosoft\nI300.00\nQ10\n^\n" +
		"D02/10/2023\nNShrsIn\nYNvidia\nI400.00\nQ5\n^\n"
	if !strings.HasPrefix(text, wantPrefix) {
		t.Errorf("output mismatch\ngot:\n%s\nwant prefix:\n%s", text, wantPrefix)
	}
	if n := strings.Count(text, "^\n"); n != 1+3+4 {
		t.Errorf("got %d records, want 8", n)
	}
	if len(prompter.asked) != 1 || prompter.asked[0].Line != 3 {
		t.Errorf("prompts = %+v, want one for line 3", prompter.asked)
	}
	if result.Stats.SecuritiesWritten != 3 || result.Stats.RecordsWritten != 4 || result.Stats.PromptsAnswered != 1 {
		t.Errorf("stats = %+v", result.Stats)
	}
}

func TestRunUnmappedActionStopsAtRow(t *testing.T) {
	doc := mustParse(t, `{
		"CsvTimeFormat": "%Y-%m-%d",
		"date": "A", "amountT": "B", "action": "C",
		"ActionMap": {"DEBIT": "Debit"}
	}`)
	rows := sliceSource{
		row(2, "2023-10-01", "-1.00", "DEBIT"),
		row(3, "2023-10-02", "-2.00", "DEBIT"),
		row(4, "2023-10-03", "-3.00", "ATM"),
		row(5, "2023-10-04", "-4.00", "DEBIT"),
	}

	var out bytes.Buffer
	conv := New(doc, rows, &out, Options{})
	result := conv.Run(context.Background())
	if result.Success {
		t.Fatal("expected failure")
	}
	if !errors.Is(result.Error, types.ErrUnmappedVocabulary) {
		t.Fatalf("expected ErrUnmappedVocabulary, got %v", result.Error)
	}
	var rowErr *types.RowError
	if !errors.As(result.Error, &rowErr) || rowErr.Line != 4 {
		t.Errorf("error should name line 4: %v", result.Error)
	}
	if conv.State() != StateFailed {
		t.Errorf("state = %s, want Failed", conv.State())
	}

	want := "!Type:Bank\nD01/10/2023\nT-1.00\n^\nD02/10/2023\nT-2.00\n^\n"
	if out.String() != want {
		t.Errorf("got %q, want %q", out.String(), want)
	}
	if result.Stats.RecordsWritten != 2 {
		t.Errorf("RecordsWritten = %d, want 2", result.Stats.RecordsWritten)
	}
}

func TestRunPromptCancelled(t *testing.T) {
	doc := mustParse(t, `{
		"CsvTimeFormat": "%Y-%m-%d",
		"date": "A", "action": "B",
		"ActionMap": {"X": "prompt"}
	}`)
	prompter := &scriptedPrompter{err: fmt.Errorf("%w: interrupted", types.ErrCancelled)}

	var out bytes.Buffer
	result := New(doc, sliceSource{row(2, "2023-10-01", "X")}, &out, Options{Prompter: prompter}).Run(context.Background())
	if !errors.Is(result.Error, types.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", result.Error)
	}
	if out.Len() != 0 {
		t.Errorf("output written for a cancelled row: %q", out.String())
	}
}

func TestRunPromptWithoutPrompter(t *testing.T) {
	doc := mustParse(t, `{
		"CsvTimeFormat": "%Y-%m-%d",
		"date": "A", "action": "B",
		"ActionMap": {"X": "prompt"}
	}`)
	result := New(doc, sliceSource{row(2, "2023-10-01", "X")}, &bytes.Buffer{}, Options{}).Run(context.Background())
	if !errors.Is(result.Error, types.ErrUnmappedVocabulary) {
		t.Fatalf("expected ErrUnmappedVocabulary, got %v", result.Error)
	}
}

func TestRunConfigErrors(t *testing.T) {
	tests := map[string]string{
		"missing time format": `{"date": "A"}`,
		"bad account type":    `{"CsvTimeFormat": "%Y", "accountType": "Savings"}`,
		"bad time pattern":    `{"CsvTimeFormat": "%Q"}`,
	}
	for name, doc := range tests {
		conv := New(mustParse(t, doc), sliceSource(nil), &bytes.Buffer{}, Options{})
		result := conv.Run(context.Background())
		if !errors.Is(result.Error, types.ErrConfig) {
			t.Errorf("%s: expected ErrConfig, got %v", name, result.Error)
		}
		if conv.State() != StateFailed {
			t.Errorf("%s: state = %s, want Failed", name, conv.State())
		}
	}
}

func TestRunCancelledContext(t *testing.T) {
	doc := mustParse(t, `{"CsvTimeFormat": "%Y-%m-%d", "date": "A"}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := New(doc, sliceSource{row(2, "2023-10-01")}, &bytes.Buffer{}, Options{}).Run(ctx)
	if !errors.Is(result.Error, types.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", result.Error)
	}
}

func TestRunBadDate(t *testing.T) {
	doc := mustParse(t, `{"CsvTimeFormat": "%Y-%m-%d", "date": "A", "amountT": "B"}`)
	rows := sliceSource{row(2, "2023-10-01", "1"), row(3, "01/10/2023", "2")}

	var out bytes.Buffer
	result := New(doc, rows, &out, Options{}).Run(context.Background())
	if !errors.Is(result.Error, types.ErrDateParse) {
		t.Fatalf("expected ErrDateParse, got %v", result.Error)
	}
	if !strings.Contains(result.Error.Error(), "line 3") {
		t.Errorf("error should name line 3: %v", result.Error)
	}
	if strings.Count(out.String(), "^\n") != 1 {
		t.Errorf("expected exactly the first record, got %q", out.String())
	}
}
