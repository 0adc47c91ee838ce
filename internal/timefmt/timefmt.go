// Package timefmt reads and writes dates with the strftime-style patterns
// rule documents use ("%m/%d/%Y").
//
// Input dates are parsed leniently: numeric fields accept one or two digits
// ("1/5/2023" under "%m/%d/%Y") and %z accepts "Z", "-0400" and "-04:00".
// Output dates are always written padded.
package timefmt

import (
	"fmt"
	"strings"
	"time"

	strftime "github.com/itchyny/timefmt-go"
)

// reference is formatted and reparsed to check a pattern.
var reference = time.Date(2006, time.January, 2, 15, 4, 5, 0, time.UTC)

// Check reports whether pattern is a usable date pattern.
func Check(pattern string) error {
	in := inputPattern(pattern)
	if _, err := strftime.Parse(strftime.Format(reference, pattern), in); err != nil {
		return fmt.Errorf("invalid date pattern %q: %w", pattern, err)
	}
	return nil
}

// inputPattern drops the glibc "%-d" no-padding flag, which parsing does not
// need since unpadded numbers are accepted anyway.
func inputPattern(pattern string) string {
	return strings.ReplaceAll(pattern, "%-", "%")
}

// Converter reparses dates from one pattern into another.
type Converter struct {
	in, out string
}

// NewConverter builds a Converter from two strftime patterns.
func NewConverter(inPattern, outPattern string) (*Converter, error) {
	if err := Check(inPattern); err != nil {
		return nil, err
	}
	if err := Check(outPattern); err != nil {
		return nil, err
	}
	return &Converter{in: inputPattern(inPattern), out: outPattern}, nil
}

// Parse reads s with the input pattern.
func (c *Converter) Parse(s string) (time.Time, error) {
	return strftime.Parse(strings.TrimSpace(s), c.in)
}

// Format writes t with the output pattern.
func (c *Converter) Format(t time.Time) string {
	return strftime.Format(t, c.out)
}

// Reformat parses s with the input pattern and writes it with the output one.
func (c *Converter) Reformat(s string) (string, error) {
	t, err := c.Parse(s)
	if err != nil {
		return "", err
	}
	return c.Format(t), nil
}
