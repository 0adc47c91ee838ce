package converter

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/config"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/types"
)

// NumericFields are the fields coerced to numbers when materialized.
var NumericFields = map[string]bool{
	"amountT":            true,
	"amountU":            true,
	"amountOfSplit":      true,
	"percentageOfSplit":  true,
	"price":              true,
	"quantity":           true,
	"commission":         true,
	"amount_transferred": true,
	"balance":            true,
	"Fees":               true,
	"Multiplier":         true,
}

var decimalOne = decimal.NewFromInt(1)

// NumberParser turns statement cells like "$1,234.50" or "(12.50)" into
// decimals.
type NumberParser struct {
	// CurrencySymbol is removed wherever it appears.
	CurrencySymbol string

	// DecimalSeparator is "." or ","; the other one groups thousands.
	DecimalSeparator string
}

// NewNumberParser builds a parser from rule document controls.
func NewNumberParser(c config.Controls) NumberParser {
	return NumberParser{CurrencySymbol: c.CurrencySymbol, DecimalSeparator: c.DecimalSeparator}
}

// Parse converts a cell to a number. An empty cell yields Null.
//
// RETURNS:
//   - The number, or types.Null for an empty cell.
//   - An error wrapping types.ErrNumericParse if the cell is not a number.
func (p NumberParser) Parse(cell string) (types.Value, error) {
	s := strings.TrimSpace(cell)
	if p.CurrencySymbol != "" {
		s = strings.ReplaceAll(s, p.CurrencySymbol, "")
	}
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' || r == '\t' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return types.Null, nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	if p.DecimalSeparator == "," {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return types.Null, fmt.Errorf("%w: %q is not a number", types.ErrNumericParse, cell)
	}
	if negative {
		d = d.Neg()
	}
	return types.NewNumber(d), nil
}
