// =============================================================================
// CSV to QIF Converter - QIF Writer Module
// =============================================================================
//
// This module serializes transformed records into the Quicken Interchange
// Format. QIF is line oriented: every line starts with a one-letter tag, and
// a line holding only "^" ends a record.
//
// DOCUMENT STRUCTURE:
//
//   !Account                 <- account header (only if "account" is set)
//   NChecking
//   TBank
//   /10/15/2023              <- balance date
//   $250.00                  <- balance
//   ^
//   !Type:Security           <- investment accounts, non-empty catalog only
//   NMicrosoft
//   SMSFT
//   TStock
//   ^
//   !Type:Bank               <- written with the first transaction
//   D10/01/2023
//   T-50.00
//   PCoffee
//   ^
//
// Each record is assembled in memory and written in one piece, then flushed,
// so the output never holds half a record.
//
// =============================================================================

package qifwriter

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/config"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/timefmt"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/types"
)

// EndOfRecord is the QIF record separator.
const EndOfRecord = "^"

// =============================================================================
// TAG LAYOUTS
// =============================================================================

// Tag pairs a QIF tag letter with the record field it carries.
type Tag struct {
	Letter string
	Field  string
}

// BankTags is the field order for Bank, Cash, CCard, "Oth A" and "Oth L"
// transactions.
var BankTags = []Tag{
	{"D", "date"},
	{"T", "amountT"},
	{"U", "amountU"},
	{"C", "cleared"},
	{"N", "checkNum"},
	{"P", "payee"},
	{"M", "memo"},
	{"A", "address"},
	{"L", "category"},
	{"S", "categoryInSplit"},
	{"E", "memoInSplit"},
	{"$", "amountOfSplit"},
	{"%", "percentageOfSplit"},
	{"F", "reimbursable"},
}

// InvstTags is the field order for investment transactions.
var InvstTags = []Tag{
	{"D", "date"},
	{"N", "action"},
	{"Y", "security"},
	{"I", "price"},
	{"Q", "quantity"},
	{"C", "cleared"},
	{"P", "transfer_text"},
	{"M", "memo"},
	{"O", "commission"},
	{"L", "category"},
	{"T", "amountT"},
	{"U", "amountU"},
	{"$", "amount_transferred"},
}

// TagsFor returns the transaction layout for an account type.
func TagsFor(accountType string) []Tag {
	if accountType == config.AccountInvestment {
		return InvstTags
	}
	return BankTags
}

// EmittedFields lists every field name that can appear in a transaction
// record of any layout.
func EmittedFields() []string {
	seen := make(map[string]bool)
	var fields []string
	for _, layout := range [][]Tag{BankTags, InvstTags} {
		for _, tag := range layout {
			if !seen[tag.Field] {
				seen[tag.Field] = true
				fields = append(fields, tag.Field)
			}
		}
	}
	return fields
}

// =============================================================================
// ACCOUNT HEADER
// =============================================================================

// AccountHeader is the "!Account" block.
type AccountHeader struct {
	Name        string
	Type        string
	TaxRate     string
	Description string
	Limit       string

	// Balance is the computed balance; nil omits the balance lines.
	Balance *Balance
}

// Balance is the balance-field value at the latest transaction date.
type Balance struct {
	Date   time.Time
	Amount types.Value
}

// HeaderFrom builds the account header described by the rule document.
func HeaderFrom(doc *config.RuleDocument) AccountHeader {
	return AccountHeader{
		Name:        doc.AccountName(),
		Type:        doc.AccountType(),
		TaxRate:     doc.Attribute("taxRate"),
		Description: doc.Attribute("description"),
		Limit:       doc.Attribute("limit"),
	}
}

// =============================================================================
// WRITER
// =============================================================================

// Writer emits QIF blocks to an underlying stream.
type Writer struct {
	out   *bufio.Writer
	dates *timefmt.Converter

	records    int
	securities int
}

// New creates a Writer. dates converts the input date pattern to the output
// pattern.
func New(w io.Writer, dates *timefmt.Converter) *Writer {
	return &Writer{out: bufio.NewWriter(w), dates: dates}
}

// Records returns the number of transaction records written.
func (w *Writer) Records() int { return w.records }

// Securities returns the number of security entries written.
func (w *Writer) Securities() int { return w.securities }

// WriteAccount writes the account header block.
func (w *Writer) WriteAccount(h AccountHeader) error {
	var b strings.Builder
	b.WriteString("!Account\n")
	writeLine(&b, "N", h.Name)
	writeLine(&b, "T", h.Type)
	writeLine(&b, "R", h.TaxRate)
	writeLine(&b, "D", h.Description)
	writeLine(&b, "L", h.Limit)
	if h.Balance != nil {
		writeLine(&b, "/", w.dates.Format(h.Balance.Date))
		writeLine(&b, "$", h.Balance.Amount.String())
	}
	b.WriteString(EndOfRecord + "\n")
	return w.emit(b.String())
}

// WriteSecurities writes the "!Type:Security" block. Nothing is written for
// an empty catalog.
func (w *Writer) WriteSecurities(entries []types.SecurityEntry) error {
	if len(entries) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("!Type:Security\n")
	for _, e := range entries {
		writeLine(&b, "N", e.Name)
		writeLine(&b, "S", e.Symbol)
		writeLine(&b, "T", e.Type)
		writeLine(&b, "G", e.Goal)
		b.WriteString(EndOfRecord + "\n")
	}
	if err := w.emit(b.String()); err != nil {
		return err
	}
	w.securities += len(entries)
	return nil
}

// WriteRecord writes one transaction in the layout of accountType. The
// first record is preceded by the "!Type:<accountType>" directive.
//
// RETURNS:
//   - A *types.RowError wrapping types.ErrDateParse if the date does not
//     match the input pattern. Nothing is written in that case.
//   - An error wrapping types.ErrIO if the stream fails.
func (w *Writer) WriteRecord(rec *types.Record, accountType string) error {
	text, err := w.Format(rec, accountType)
	if err != nil {
		return err
	}
	if w.records == 0 {
		text = "!Type:" + accountType + "\n" + text
	}
	if err := w.emit(text); err != nil {
		return err
	}
	w.records++
	return nil
}

// Format renders one transaction without writing it.
func (w *Writer) Format(rec *types.Record, accountType string) (string, error) {
	var b strings.Builder
	for _, tag := range TagsFor(accountType) {
		v := rec.Get(tag.Field)
		if v.IsNull() {
			continue
		}
		text, err := w.fieldText(rec.Line, tag.Field, v)
		if err != nil {
			return "", err
		}
		writeLine(&b, tag.Letter, text)
	}
	b.WriteString(EndOfRecord + "\n")
	return b.String(), nil
}

// Flush writes any buffered output.
func (w *Writer) Flush() error {
	if err := w.out.Flush(); err != nil {
		return fmt.Errorf("%w: failed to flush output: %v", types.ErrIO, err)
	}
	return nil
}

func (w *Writer) fieldText(line int, field string, v types.Value) (string, error) {
	switch field {
	case "date":
		raw := v.String()
		out, err := w.dates.Reformat(raw)
		if err != nil {
			return "", &types.RowError{
				Line:  line,
				Field: field,
				Value: raw,
				Err:   fmt.Errorf("%w: %v", types.ErrDateParse, err),
			}
		}
		return out, nil
	case "price":
		if v.Kind == types.KindNumber {
			return types.FormatNumber(v.Num.Abs()), nil
		}
	}
	return v.String(), nil
}

// emit writes text and flushes it through to the underlying stream.
func (w *Writer) emit(text string) error {
	if _, err := w.out.WriteString(text); err != nil {
		return fmt.Errorf("%w: failed to write output: %v", types.ErrIO, err)
	}
	return w.Flush()
}

// writeLine appends a tagged line, skipping empty values.
func writeLine(b *strings.Builder, tag, value string) {
	if value == "" {
		return
	}
	b.WriteString(tag)
	b.WriteString(value)
	b.WriteByte('\n')
}
