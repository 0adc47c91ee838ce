package converter

import (
	"strings"

	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/types"
)

// SecurityFields are the record fields a security entry is built from.
var SecurityFields = []string{"symbol", "security", "name", "type", "goal"}

// Catalog is the ordered set of securities an investment account references.
// The first record seen for a symbol defines its entry.
type Catalog struct {
	entries []types.SecurityEntry
	seen    map[string]bool
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{seen: make(map[string]bool)}
}

// Add records the security of a transformed record. Records without a symbol
// are ignored. Returns true if a new entry was added.
func (c *Catalog) Add(rec *types.Record) bool {
	symbol := strings.TrimSpace(rec.Get("symbol").String())
	if symbol == "" || c.seen[symbol] {
		return false
	}
	c.seen[symbol] = true

	name := rec.Get("security").String()
	if name == "" {
		name = rec.Get("name").String()
	}
	c.entries = append(c.entries, types.SecurityEntry{
		Symbol: symbol,
		Name:   name,
		Type:   rec.Get("type").String(),
		Goal:   rec.Get("goal").String(),
	})
	return true
}

// Entries returns the catalog in first-seen order.
func (c *Catalog) Entries() []types.SecurityEntry {
	return c.entries
}


// BuildCatalog collects the securities of records in order.
func BuildCatalog(records []*types.Record) []types.SecurityEntry {
	catalog := NewCatalog()
	for _, rec := range records {
		catalog.Add(rec)
	}
	return catalog.Entries()
}
