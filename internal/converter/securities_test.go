package converter

import (
	"testing"

	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/types"
)

func TestBuildCatalog(t *testing.T) {
	var records []*types.Record
	for i, sym := range []string{"MSFT", "NVDA", "MSFT", "", "AAPL"} {
		rec := types.NewRecord(i + 2)
		if sym != "" {
			rec.Set("symbol", types.NewString(sym))
		}
		rec.Set("security", types.NewString(sym+" Corp"))
		rec.Set("type", types.NewString("Stock"))
		records = append(records, rec)
	}
	// The second MSFT row carries a different name; the first one wins.
	records[2].Set("security", types.NewString("Other"))

	got := BuildCatalog(records)
	want := []string{"MSFT", "NVDA", "AAPL"}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d: %+v", len(got), len(want), got)
	}
	for i, sym := range want {
		if got[i].Symbol != sym {
			t.Errorf("entry %d symbol = %q, want %q", i, got[i].Symbol, sym)
		}
	}
	if got[0].Name != "MSFT Corp" || got[0].Type != "Stock" {
		t.Errorf("first entry = %+v", got[0])
	}
}

func TestCatalogNameFallback(t *testing.T) {
	rec := types.NewRecord(2)
	rec.Set("symbol", types.NewString("VTI"))
	rec.Set("name", types.NewString("Vanguard Total Market"))

	c := NewCatalog()
	if !c.Add(rec) {
		t.Fatal("expected a new entry")
	}
	if c.Add(rec) {
		t.Error("duplicate symbol added twice")
	}
	if len(c.Entries()) != 1 || c.Entries()[0].Name != "Vanguard Total Market" {
		t.Errorf("entries = %+v", c.Entries())
	}
}
