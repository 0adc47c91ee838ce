// =============================================================================
// CSV to QIF Converter - Rule Document Validation
// =============================================================================
//
// This module checks a rule document before any row is read. It catches the
// mistakes that would otherwise surface only on the first row that trips
// over them:
//   - Missing or malformed controls (CsvTimeFormat, Separator, ...)
//   - Unsupported account types
//   - Missing field mappings the account type needs
//   - Expressions that do not parse or reference undefined fields
//   - Calculation rules with unknown operators or operands
//   - Translation values that cannot become numbers
//   - Rule results that nothing writes or reads
//
// ERROR HANDLING:
//   - Problems are collected, not returned one at a time
//   - "error" severity blocks a conversion, "warning" does not
//
// =============================================================================

package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/config"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/converter"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/csvparser"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/expr"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/qifwriter"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/timefmt"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// InvestmentFields are the mappings an investment account needs.
var InvestmentFields = []string{"security", "symbol", "type", "quantity", "price", "action"}

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single problem in a rule document.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Rule is the rule table or control involved.
	Rule string

	// Field is the target field involved, if any.
	Field string

	// Value is the offending text, if any.
	Value string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", strings.ToUpper(e.Severity), e.Rule)
	if e.Field != "" {
		fmt.Fprintf(&b, ", field '%s'", e.Field)
	}
	fmt.Fprintf(&b, ": %s", e.Message)
	if e.Value != "" {
		fmt.Fprintf(&b, " (value: '%s')", e.Value)
	}
	return b.String()
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no fatal errors.
	IsValid bool

	// Errors contains all problems, including warnings.
	Errors []*ValidationError

	// ErrorCount is the number of fatal errors.
	ErrorCount int

	// WarningCount is the number of warnings.
	WarningCount int
}

// Err returns a types.ErrConfig error summarizing the fatal problems, or nil.
func (r *ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	var msgs []string
	for _, e := range r.Errors {
		if e.Severity == SeverityError {
			msgs = append(msgs, e.Error())
		}
	}
	if len(msgs) == 0 {
		msgs = append(msgs, "warnings treated as errors")
	}
	return types.ConfigErrorf("rule document has %d problem(s):\n  %s", len(msgs), strings.Join(msgs, "\n  "))
}

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// TreatWarningsAsErrors treats warnings as fatal errors.
	// Default: false
	TreatWarningsAsErrors bool
}

// Validator checks one rule document.
type Validator struct {
	doc     *config.RuleDocument
	options ValidationOptions
	known   map[string]bool
	errors  []*ValidationError
}

// NewValidator creates a Validator with default options.
func NewValidator(doc *config.RuleDocument) *Validator {
	return NewValidatorWithOptions(doc, ValidationOptions{})
}

// NewValidatorWithOptions creates a Validator with custom options.
func NewValidatorWithOptions(doc *config.RuleDocument, options ValidationOptions) *Validator {
	return &Validator{doc: doc, options: options, known: converter.KnownFields(doc)}
}

// Validate checks doc with default options.
//
// RETURNS:
//   - Every problem found, in document order per check.
func Validate(doc *config.RuleDocument) []*ValidationError {
	return NewValidator(doc).ValidateAll().Errors
}

// ValidateAll runs every check and returns a detailed result.
func (v *Validator) ValidateAll() *ValidationResult {
	v.errors = nil
	v.checkControls()
	v.checkAccount()
	v.checkMappings()
	v.checkCalculationRules()
	v.checkInvertRules()
	v.checkTranslations()
	v.checkVocabularies()
	v.checkUnusedFields()

	result := &ValidationResult{IsValid: true, Errors: v.errors}
	for _, err := range v.errors {
		if err.Severity == SeverityError {
			result.ErrorCount++
			result.IsValid = false
		} else {
			result.WarningCount++
			if v.options.TreatWarningsAsErrors {
				result.IsValid = false
			}
		}
	}
	return result
}

func (v *Validator) add(severity, rule, field, value, format string, args ...any) {
	v.errors = append(v.errors, &ValidationError{
		Severity: severity,
		Rule:     rule,
		Field:    field,
		Value:    value,
		Message:  fmt.Sprintf(format, args...),
	})
}

// =============================================================================
// CHECKS
// =============================================================================

func (v *Validator) checkControls() {
	c := v.doc.Controls
	if c.CsvTimeFormat == "" {
		v.add(SeverityError, "CsvTimeFormat", "", "", "a CsvTimeFormat entry is required to parse dates, for example \"%%m/%%d/%%y\"")
	} else if err := timefmt.Check(c.CsvTimeFormat); err != nil {
		v.add(SeverityError, "CsvTimeFormat", "", c.CsvTimeFormat, "%v", err)
	}
	if err := timefmt.Check(c.QifTimeFormat); err != nil {
		v.add(SeverityError, "QifTimeFormat", "", c.QifTimeFormat, "%v", err)
	}
	if _, err := csvparser.Delimiter(c.Separator); err != nil {
		v.add(SeverityError, "Separator", "", c.Separator, "separator must be a single character or tab, pipe, semicolon")
	}
}

func (v *Validator) checkAccount() {
	accountType := v.doc.AccountType()
	if !config.IsAccountType(accountType) {
		v.add(SeverityError, "accountType", "accountType", accountType,
			"unsupported account type, expected one of %s", strings.Join(config.AccountTypes, ", "))
	}
	if v.doc.HasColumn("balance") && v.doc.AccountName() == "" {
		v.add(SeverityWarning, "balance", "balance", "", "balance is only written with an account header; set \"account\"")
	}
	if v.doc.HasColumn("account") || v.doc.HasColumn("accountType") {
		v.add(SeverityWarning, "account", "account", "", "account and accountType are literal values, not columns")
	}
}

func (v *Validator) checkMappings() {
	if !v.doc.HasColumn("date") {
		v.add(SeverityError, "fields", "date", "", "no column is mapped to date")
	}
	if v.doc.IsInvestment() {
		for _, field := range InvestmentFields {
			if !v.doc.HasColumn(field) {
				v.add(SeverityError, "fields", field, "", "investment accounts need a %s column", field)
			}
		}
		return
	}
	if !v.doc.HasColumn("amountT") && !v.doc.HasColumn("amountU") {
		v.add(SeverityWarning, "fields", "amountT", "", "no amount column is mapped")
	}
}

func (v *Validator) checkCalculationRules() {
	for _, rule := range v.doc.CalculationRules {
		switch converter.Operator(rule.Op) {
		case "+", "-", "*", "/":
		default:
			v.add(SeverityError, converter.RuleCalculation, rule.Result, rule.Op, "operator must be one of + - * /")
		}
		for _, operand := range []string{rule.Left, rule.Right} {
			if !v.known[operand] {
				v.add(SeverityError, converter.RuleCalculation, rule.Result, operand, "operand is not a mapped or computed field")
			}
		}
	}
}

func (v *Validator) checkInvertRules() {
	for _, rule := range v.doc.InvertRules {
		if !v.known[rule.Field] {
			v.add(SeverityWarning, converter.RuleInvert, rule.Field, "", "field is never set, so the rule never applies")
		}
		v.checkExpression(converter.RuleInvert, rule.Field, rule.Condition)
	}
}

func (v *Validator) checkTranslations() {
	numbers := converter.NewNumberParser(v.doc.Controls)
	for _, table := range v.doc.Translations {
		for _, entry := range table.Entries {
			v.checkExpression(converter.RuleTranslation, table.Field, entry.Condition)
			if converter.NumericFields[table.Field] {
				if _, err := numbers.Parse(entry.Value); err != nil {
					v.add(SeverityError, converter.RuleTranslation, table.Field, entry.Value, "replacement for a numeric field is not a number")
				}
			}
		}
	}
}

func (v *Validator) checkVocabularies() {
	if len(v.doc.ActionMap) > 0 && !v.doc.HasColumn("action") {
		v.add(SeverityWarning, converter.RuleActionMap, "action", "", "ActionMap is set but no column is mapped to action")
	}
	if len(v.doc.SecurityTypeMap) > 0 && !v.doc.HasColumn("type") {
		v.add(SeverityWarning, converter.RuleSecurityTypeMap, "type", "", "SecurityTypeMap is set but no column is mapped to type")
	}
}

// checkUnusedFields warns about rule results that are neither written to the
// output nor read by another rule.
func (v *Validator) checkUnusedFields() {
	used := make(map[string]bool)
	for _, tag := range qifwriter.TagsFor(v.doc.AccountType()) {
		used[tag.Field] = true
	}
	if v.doc.IsInvestment() {
		for _, field := range converter.SecurityFields {
			used[field] = true
		}
	}

	var conditions []string
	for _, rule := range v.doc.CalculationRules {
		used[rule.Left] = true
		used[rule.Right] = true
	}
	for _, rule := range v.doc.InvertRules {
		conditions = append(conditions, rule.Condition)
	}
	for _, table := range v.doc.Translations {
		for _, entry := range table.Entries {
			conditions = append(conditions, entry.Condition)
		}
	}
	for _, source := range conditions {
		if e, err := expr.Compile(source); err == nil {
			for _, name := range e.Fields() {
				used[name] = true
			}
		}
	}

	for _, field := range v.doc.TableFields() {
		if !used[field] {
			v.add(SeverityWarning, "fields", field, "", "field is set by a rule but never written or read")
		}
	}
}

func (v *Validator) checkExpression(rule, field, source string) {
	e, err := expr.Compile(source)
	if err != nil {
		v.add(SeverityError, rule, field, source, "%v", err)
		return
	}
	var unknown []string
	for _, name := range e.Fields() {
		if !v.known[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		v.add(SeverityError, rule, field, source, "expression references undefined field(s) %s", strings.Join(unknown, ", "))
	}
}

// =============================================================================
// REPORTING
// =============================================================================

// FormatErrors formats validation errors for display or logging.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Validation completed with %d problem(s):\n\n", len(errors)))
	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}
	return builder.String()
}
