// =============================================================================
// CSV to QIF Converter - Rule Document
// =============================================================================
//
// This module holds the in-memory rule document that drives a conversion run
// and the loader that builds it from YAML or JSON.
//
// DOCUMENT SHAPE:
//   A single top-level mapping. Keys fall into three groups:
//   1. Controls        : Separator, StartLine, CsvTimeFormat, QifTimeFormat,
//                        CsvFolder, CsvFile, QifFolder, QifFile,
//                        CurrencySymbol, DecimalSeparator, Sheet
//   2. Rule tables     : ActionMap, SecurityTypeMap, InvertRules,
//                        CalculationRules, Translations
//   3. Everything else : a single column letter maps a target field to a
//                        source column; any other scalar is a literal account
//                        attribute (account, accountType, description, ...)
//
// ORDER:
//   CalculationRules, InvertRules and Translations are applied in the order
//   they are written, so the loader walks yaml.Node trees instead of
//   unmarshalling into Go maps.
//
// =============================================================================

package config

import (
	"sort"
	"strings"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// PromptSentinel is the vocabulary-map value meaning "ask the operator".
const PromptSentinel = "prompt"

// Account types understood by the emitter.
const (
	AccountBank       = "Bank"
	AccountCash       = "Cash"
	AccountCreditCard = "CCard"
	AccountInvestment = "Invst"
	AccountOtherAsset = "Oth A"
	AccountOtherLiab  = "Oth L"
)

// AccountTypes lists the supported account types.
var AccountTypes = []string{
	AccountBank, AccountCash, AccountCreditCard,
	AccountInvestment, AccountOtherAsset, AccountOtherLiab,
}

// IsAccountType reports whether t is a supported account type.
func IsAccountType(t string) bool {
	for _, known := range AccountTypes {
		if t == known {
			return true
		}
	}
	return false
}

// =============================================================================
// CONTROLS
// =============================================================================

// Controls holds the recognized settings of a rule document.
type Controls struct {
	// Separator is the column delimiter of the input.
	// Default: ","
	Separator string

	// StartLine is the 1-based line of the first data row. Lines before it
	// (typically a header) are skipped.
	// Default: 1
	StartLine int

	// CsvTimeFormat is the strftime pattern of input dates. Required.
	CsvTimeFormat string

	// QifTimeFormat is the strftime pattern of output dates.
	// Default: "%d/%m/%Y"
	QifTimeFormat string

	// CsvFolder, CsvFile, QifFolder and QifFile locate input and output
	// when they are not given on the command line.
	CsvFolder string
	CsvFile   string
	QifFolder string
	QifFile   string

	// CurrencySymbol is stripped from numeric cells before parsing.
	CurrencySymbol string

	// DecimalSeparator is "." or ","; the other one is treated as a
	// grouping separator.
	// Default: "."
	DecimalSeparator string

	// Sheet names the worksheet to read from spreadsheet input.
	// Default: the first sheet.
	Sheet string
}

// controlKeys lists the keys that are controls rather than field mappings.
var controlKeys = map[string]bool{
	"Separator":        true,
	"StartLine":        true,
	"CsvTimeFormat":    true,
	"QifTimeFormat":    true,
	"CsvFolder":        true,
	"CsvFile":          true,
	"QifFolder":        true,
	"QifFile":          true,
	"CurrencySymbol":   true,
	"DecimalSeparator": true,
	"Sheet":            true,
}

// IsControl reports whether key names a control.
func IsControl(key string) bool { return controlKeys[key] }

// =============================================================================
// RULE TABLES
// =============================================================================

// ColumnMapping binds a target field to a zero-based source column.
type ColumnMapping struct {
	Field  string
	Letter string
	Column int
}

// CalculationRule recomputes Result as Left Op Right.
type CalculationRule struct {
	Result string
	Left   string
	Op     string
	Right  string
}

// InvertRule negates Field when Condition is true.
type InvertRule struct {
	Field     string
	Condition string
}

// Translation replaces a field value with Value when Condition is true.
type Translation struct {
	Condition string
	Value     string
}

// TranslationTable is the ordered list of translations of one field.
type TranslationTable struct {
	Field   string
	Entries []Translation
}

// =============================================================================
// RULE DOCUMENT
// =============================================================================

// RuleDocument is the decoded configuration of one conversion run.
// It is read-only once loaded.
type RuleDocument struct {
	// Source is the path the document was loaded from, if any.
	Source string

	Controls Controls

	// Columns holds the field mappings in declaration order.
	Columns []ColumnMapping

	// Attributes holds literal values such as the account name.
	Attributes map[string]string

	ActionMap       map[string]string
	SecurityTypeMap map[string]string

	InvertRules      []InvertRule
	CalculationRules []CalculationRule
	Translations     []TranslationTable
}

// Column returns the source column of a target field.
func (d *RuleDocument) Column(field string) (int, bool) {
	for _, c := range d.Columns {
		if c.Field == field {
			return c.Column, true
		}
	}
	return 0, false
}

// HasColumn reports whether field is mapped to a column.
func (d *RuleDocument) HasColumn(field string) bool {
	_, ok := d.Column(field)
	return ok
}

// Attribute returns a literal attribute, "" when absent.
func (d *RuleDocument) Attribute(name string) string {
	return d.Attributes[name]
}

// AccountName is the configured account name; a non-empty name triggers
// the account header.
func (d *RuleDocument) AccountName() string { return d.Attribute("account") }

// AccountType is the configured account type.
func (d *RuleDocument) AccountType() string { return d.Attribute("accountType") }

// IsInvestment reports whether the document describes an investment account.
func (d *RuleDocument) IsInvestment() bool { return d.AccountType() == AccountInvestment }

// TableFields lists every field that rules write to, in first-seen order.
func (d *RuleDocument) TableFields() []string {
	var names []string
	seen := make(map[string]bool)
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	for _, r := range d.CalculationRules {
		add(r.Result)
	}
	for _, r := range d.InvertRules {
		add(r.Field)
	}
	for _, t := range d.Translations {
		add(t.Field)
	}
	return names
}

// AttributeNames returns the literal attribute keys, sorted.
func (d *RuleDocument) AttributeNames() []string {
	names := make([]string, 0, len(d.Attributes))
	for k := range d.Attributes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// DEFAULTS
// =============================================================================

// applyDefaults sets default values for anything the document leaves unset.
func applyDefaults(doc *RuleDocument) {
	if doc.Controls.Separator == "" {
		doc.Controls.Separator = ","
	}
	if doc.Controls.StartLine == 0 {
		doc.Controls.StartLine = 1
	}
	if doc.Controls.QifTimeFormat == "" {
		doc.Controls.QifTimeFormat = "%d/%m/%Y"
	}
	if doc.Controls.DecimalSeparator == "" {
		doc.Controls.DecimalSeparator = "."
	}
	if doc.Attributes["accountType"] == "" {
		doc.Attributes["accountType"] = AccountBank
	}
}

// columnIndex resolves a column letter (A..Z, either case).
func columnIndex(letter string) (int, bool) {
	if len(letter) != 1 {
		return 0, false
	}
	c := strings.ToUpper(letter)[0]
	if c < 'A' || c > 'Z' {
		return 0, false
	}
	return int(c - 'A'), true
}

// ColumnLetter is the inverse of the column resolution, for messages.
func ColumnLetter(idx int) string {
	if idx < 0 || idx > 25 {
		return "?"
	}
	return string(rune('A' + idx))
}
