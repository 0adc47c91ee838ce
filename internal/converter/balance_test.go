package converter

import (
	"errors"
	"testing"
	"time"

	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/timefmt"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/types"
)

func TestLatestBalance(t *testing.T) {
	doc := mustParse(t, `{"CsvTimeFormat": "%m/%d/%Y", "account": "Checking", "date": "A", "balance": "B"}`)
	dates, err := timefmt.NewConverter("%m/%d/%Y", "%d/%m/%Y")
	if err != nil {
		t.Fatal(err)
	}

	rows := []types.Row{
		row(2, "10/01/2023", "100.00"),
		row(3, "10/15/2023", "250.00"),
		row(4, "10/05/2023", "175.00"),
		row(5, "10/20/2023", ""),
		row(6, "10/15/2023", "999.00"),
	}
	got, err := LatestBalance(rows, doc, dates)
	if err != nil {
		t.Fatalf("LatestBalance: %v", err)
	}
	if got == nil {
		t.Fatal("expected a balance")
	}
	if got.Amount.String() != "250.00" {
		t.Errorf("balance = %s, want 250.00", got.Amount)
	}
	if !got.Date.Equal(time.Date(2023, 10, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", got.Date)
	}

	if _, err := LatestBalance([]types.Row{row(7, "2023-10-01", "1")}, doc, dates); !errors.Is(err, types.ErrDateParse) {
		t.Errorf("expected ErrDateParse, got %v", err)
	}

	noBalance := mustParse(t, `{"CsvTimeFormat": "%m/%d/%Y", "date": "A"}`)
	if got, err := LatestBalance(rows, noBalance, dates); err != nil || got != nil {
		t.Errorf("without a balance column got %v, %v", got, err)
	}
}

func TestLatestBalanceUnpaddedDates(t *testing.T) {
	doc := mustParse(t, `{"CsvTimeFormat": "%m/%d/%Y", "account": "Checking", "date": "A", "balance": "B"}`)
	dates, err := timefmt.NewConverter("%m/%d/%Y", "%d/%m/%Y")
	if err != nil {
		t.Fatal(err)
	}

	rows := []types.Row{
		row(2, "1/5/2023", "100.00"),
		row(3, "1/12/2023", "80.00"),
		row(4, "10/1/2023", "40.00"),
	}
	got, err := LatestBalance(rows, doc, dates)
	if err != nil {
		t.Fatalf("LatestBalance: %v", err)
	}
	if got == nil || got.Amount.String() != "40.00" {
		t.Fatalf("balance = %v, want 40.00", got)
	}
	if s := dates.Format(got.Date); s != "01/10/2023" {
		t.Errorf("formatted date = %q, want 01/10/2023", s)
	}
}
