package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindNumber
	KindString
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "none"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is a typed field value: numeric where the field is numeric,
// string otherwise. Rule expressions also produce booleans.
type Value struct {
	Kind Kind
	Num  decimal.Decimal
	Str  string
	Bool bool
}

// Null is the value of an absent or empty field.
var Null = Value{Kind: KindNull}

func NewNumber(d decimal.Decimal) Value { return Value{Kind: KindNumber, Num: d} }
func NewString(s string) Value          { return Value{Kind: KindString, Str: s} }
func NewBool(b bool) Value              { return Value{Kind: KindBool, Bool: b} }

func (v Value) IsNull() bool { return v.Kind == KindNull }

// Truthy reports the boolean interpretation of v. Null, zero, the empty
// string and false are false.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindNumber:
		return !v.Num.IsZero()
	case KindString:
		return v.Str != ""
	}
	return false
}

// AsNumber returns the numeric interpretation of v. Strings are coerced
// when they parse as a plain decimal.
func (v Value) AsNumber() (decimal.Decimal, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Num, true
	case KindString:
		d, err := decimal.NewFromString(strings.TrimSpace(v.Str))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	}
	return decimal.Zero, false
}

// String renders v the way it is written into a QIF field.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return FormatNumber(v.Num)
	case KindString:
		return v.Str
	case KindBool:
		if v.Bool {
			return "True"
		}
		return "False"
	}
	return ""
}

// FormatNumber writes d keeping the scale it was read with, so "250.00"
// stays "250.00" and "1000" stays "1000".
func FormatNumber(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

// Normalize drops trailing fractional zeros, used after division where the
// quotient carries the full division precision.
func Normalize(d decimal.Decimal) decimal.Decimal {
	return decimal.RequireFromString(d.String())
}
