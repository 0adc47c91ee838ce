// =============================================================================
// CSV to QIF Converter - Row Transformer
// =============================================================================
//
// This module turns one source row into one target record by running the rule
// document's tables in a fixed order:
//
//   1. Materialize fields from their columns (numbers are parsed)
//   2. CalculationRules, in declaration order
//   3. InvertRules
//   4. Translations (every true entry applies, so the last one wins)
//   5. ActionMap / SecurityTypeMap vocabulary lookup
//
// Later steps see the results of earlier ones, and calculation rules see the
// results of earlier calculation rules.
//
// The transformer performs no I/O. A vocabulary entry set to "prompt" is
// returned as a pending Decision for the caller to resolve.
//
// =============================================================================

package converter

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/config"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/expr"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/types"
)

// Rule table names used in row errors.
const (
	RuleCalculation     = "CalculationRules"
	RuleInvert          = "InvertRules"
	RuleTranslation     = "Translations"
	RuleActionMap       = "ActionMap"
	RuleSecurityTypeMap = "SecurityTypeMap"
)

// =============================================================================
// PENDING DECISIONS
// =============================================================================

// Decision is a vocabulary token the rule document defers to the operator.
type Decision struct {
	// Line is the source line of the row.
	Line int

	// Field is the record field to fill ("action" or "type").
	Field string

	// Rule is the vocabulary table that holds the "prompt" entry.
	Rule string

	// Token is the raw source token.
	Token string
}

// Outcome is the result of transforming one row. When Pending is empty the
// record is complete.
type Outcome struct {
	Record  *types.Record
	Pending []Decision
}

// Resolve stores the operator's answer for a pending decision.
func (o *Outcome) Resolve(d Decision, value string) {
	o.Record.Set(d.Field, types.NewString(value))
}

// =============================================================================
// TRANSFORMER
// =============================================================================

// compiled pairs an expression with its compile error. A bad expression is
// reported on the first row that evaluates it.
type compiled struct {
	source string
	expr   *expr.Expr
	err    error
}

func compile(src string) compiled {
	e, err := expr.Compile(src)
	return compiled{source: src, expr: e, err: err}
}

type invertRule struct {
	field string
	cond  compiled
}

type translation struct {
	cond  compiled
	value string
}

type translationTable struct {
	field   string
	entries []translation
}

type vocabulary struct {
	field string
	rule  string
	table map[string]string
}

// Transformer applies a rule document to rows.
type Transformer struct {
	doc     *config.RuleDocument
	numbers NumberParser

	// known is the set of field names expressions may reference.
	known map[string]bool

	inverts      []invertRule
	translations []translationTable
	vocabularies []vocabulary
}

// NewTransformer compiles the rule document's expressions.
func NewTransformer(doc *config.RuleDocument) *Transformer {
	t := &Transformer{
		doc:     doc,
		numbers: NewNumberParser(doc.Controls),
		known:   KnownFields(doc),
	}

	for _, rule := range doc.InvertRules {
		t.inverts = append(t.inverts, invertRule{field: rule.Field, cond: compile(rule.Condition)})
	}

	for _, table := range doc.Translations {
		tt := translationTable{field: table.Field}
		for _, entry := range table.Entries {
			tt.entries = append(tt.entries, translation{cond: compile(entry.Condition), value: entry.Value})
		}
		t.translations = append(t.translations, tt)
	}

	t.vocabularies = []vocabulary{
		{field: "action", rule: RuleActionMap, table: doc.ActionMap},
		{field: "type", rule: RuleSecurityTypeMap, table: doc.SecurityTypeMap},
	}
	return t
}

// KnownFields returns the field names rows of doc carry: mapped columns,
// calculation results, translated fields and Multiplier.
func KnownFields(doc *config.RuleDocument) map[string]bool {
	known := map[string]bool{"Multiplier": true}
	for _, c := range doc.Columns {
		known[c.Field] = true
	}
	for _, rule := range doc.CalculationRules {
		known[rule.Result] = true
	}
	for _, table := range doc.Translations {
		known[table.Field] = true
	}
	return known
}

// Transform runs the pipeline on one row.
//
// RETURNS:
//   - The outcome, possibly with pending operator decisions.
//   - A *types.RowError naming the line and the failing field or rule.
func (t *Transformer) Transform(row types.Row) (*Outcome, error) {
	rec, err := t.materialize(row)
	if err != nil {
		return nil, err
	}
	if err := t.calculate(rec); err != nil {
		return nil, err
	}
	if err := t.invert(rec); err != nil {
		return nil, err
	}
	translated, err := t.translate(rec)
	if err != nil {
		return nil, err
	}
	pending, err := t.mapVocabulary(rec, translated)
	if err != nil {
		return nil, err
	}
	return &Outcome{Record: rec, Pending: pending}, nil
}

// =============================================================================
// PIPELINE STEPS
// =============================================================================

// materialize reads mapped columns into fields.
func (t *Transformer) materialize(row types.Row) (*types.Record, error) {
	rec := types.NewRecord(row.Line)
	for name := range t.known {
		rec.Set(name, types.Null)
	}

	for _, c := range t.doc.Columns {
		cell := row.Cell(c.Column)
		if strings.TrimSpace(cell) == "" {
			continue
		}
		if !NumericFields[c.Field] {
			rec.Set(c.Field, types.NewString(cell))
			continue
		}
		v, err := t.numbers.Parse(cell)
		if err != nil {
			return nil, &types.RowError{Line: row.Line, Field: c.Field, Value: cell, Err: err}
		}
		rec.Set(c.Field, v)
	}

	if rec.Get("Multiplier").IsNull() {
		rec.Set("Multiplier", types.NewNumber(decimalOne))
	}
	return rec, nil
}

// calculate applies calculation rules in order. A missing operand is treated
// as absent: the other operand is copied, and with both missing the result is
// left alone.
func (t *Transformer) calculate(rec *types.Record) error {
	for _, rule := range t.doc.CalculationRules {
		fail := func(err error) error {
			return &types.RowError{Line: rec.Line, Field: rule.Result, Rule: RuleCalculation, Err: err}
		}

		left, err := t.operand(rec, rule.Left)
		if err != nil {
			return fail(err)
		}
		right, err := t.operand(rec, rule.Right)
		if err != nil {
			return fail(err)
		}

		switch {
		case left.IsNull() && right.IsNull():
			continue
		case left.IsNull():
			rec.Set(rule.Result, right)
		case right.IsNull():
			rec.Set(rule.Result, left)
		default:
			v, err := expr.Arithmetic(Operator(rule.Op), left, right)
			if err != nil {
				return fail(err)
			}
			rec.Set(rule.Result, v)
		}
	}
	return nil
}

func (t *Transformer) operand(rec *types.Record, name string) (types.Value, error) {
	v, ok := rec.Lookup(name)
	if !ok {
		return types.Null, fmt.Errorf("%w: %s", types.ErrUnknownField, name)
	}
	return v, nil
}

// Operator normalizes the arithmetic symbols a rule document may use.
func Operator(op string) string {
	switch op {
	case "×", "x", "X":
		return "*"
	case "÷":
		return "/"
	case "−":
		return "-"
	}
	return op
}

// invert negates fields whose condition holds. Strings toggle a leading sign.
func (t *Transformer) invert(rec *types.Record) error {
	for _, rule := range t.inverts {
		v := rec.Get(rule.field)
		if v.IsNull() {
			continue
		}
		ok, err := evalCondition(rec, rule.cond)
		if err != nil {
			return &types.RowError{Line: rec.Line, Field: rule.field, Rule: RuleInvert, Value: rule.cond.source, Err: err}
		}
		if !ok {
			continue
		}
		switch v.Kind {
		case types.KindNumber:
			rec.Set(rule.field, types.NewNumber(v.Num.Neg()))
		case types.KindString:
			rec.Set(rule.field, types.NewString(toggleSign(v.Str)))
		default:
			return &types.RowError{
				Line:  rec.Line,
				Field: rule.field,
				Rule:  RuleInvert,
				Err:   fmt.Errorf("%w: cannot negate a %s", types.ErrArithmetic, v.Kind),
			}
		}
	}
	return nil
}

func toggleSign(s string) string {
	switch {
	case strings.HasPrefix(s, "-"):
		return s[1:]
	case strings.HasPrefix(s, "+"):
		return "-" + s[1:]
	}
	return "-" + s
}

// translate applies translation tables and reports which fields changed.
func (t *Transformer) translate(rec *types.Record) (map[string]bool, error) {
	translated := make(map[string]bool)
	for _, table := range t.translations {
		for _, entry := range table.entries {
			ok, err := evalCondition(rec, entry.cond)
			if err != nil {
				return nil, &types.RowError{Line: rec.Line, Field: table.field, Rule: RuleTranslation, Value: entry.cond.source, Err: err}
			}
			if !ok {
				continue
			}
			v := types.NewString(entry.value)
			if NumericFields[table.field] {
				v, err = t.numbers.Parse(entry.value)
				if err != nil {
					return nil, &types.RowError{Line: rec.Line, Field: table.field, Rule: RuleTranslation, Value: entry.value, Err: err}
				}
			}
			rec.Set(table.field, v)
			translated[table.field] = true
		}
	}
	return translated, nil
}

// mapVocabulary translates source tokens through ActionMap and
// SecurityTypeMap. Fields already rewritten by a translation are kept.
func (t *Transformer) mapVocabulary(rec *types.Record, translated map[string]bool) ([]Decision, error) {
	var pending []Decision
	for _, vocab := range t.vocabularies {
		if len(vocab.table) == 0 || translated[vocab.field] {
			continue
		}
		v := rec.Get(vocab.field)
		if v.IsNull() {
			continue
		}
		token := v.String()
		mapped, ok := vocab.table[token]
		if !ok {
			mapped, ok = vocab.table[strings.TrimSpace(token)]
		}
		switch {
		case !ok:
			return nil, &types.RowError{
				Line:  rec.Line,
				Field: vocab.field,
				Rule:  vocab.rule,
				Value: token,
				Err:   fmt.Errorf("%w: no %s entry for %q", types.ErrUnmappedVocabulary, vocab.rule, token),
			}
		case mapped == config.PromptSentinel:
			pending = append(pending, Decision{Line: rec.Line, Field: vocab.field, Rule: vocab.rule, Token: token})
		default:
			rec.Set(vocab.field, types.NewString(mapped))
		}
	}
	return pending, nil
}

func evalCondition(rec *types.Record, c compiled) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	return c.expr.EvalBool(rec)
}
