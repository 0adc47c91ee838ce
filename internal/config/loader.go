package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/types"
)

// Format selects the syntax of a rule document.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
)

// FormatFor picks the format from a file extension. JSON files are decoded
// separately because tab-indented JSON is not valid YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// =============================================================================
// LOADING FUNCTIONS
// =============================================================================

// Load reads and decodes a rule document from a file.
//
// PARAMETERS:
//   - path: The path to the rule document (.json, .yaml or .yml).
//
// RETURNS:
//   - The decoded document with defaults applied.
//   - An error wrapping types.ErrConfig if the document is malformed, or
//     types.ErrIO if it cannot be read.
func Load(path string) (*RuleDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read rule document: %v", types.ErrIO, err)
	}
	doc, err := Parse(data, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}

// Parse decodes a rule document from memory.
func Parse(data []byte, format Format) (*RuleDocument, error) {
	var root *yaml.Node
	switch format {
	case FormatJSON:
		n, err := jsonToNode(data)
		if err != nil {
			return nil, types.ConfigErrorf("failed to parse JSON: %v", err)
		}
		root = n
	default:
		var n yaml.Node
		if err := yaml.Unmarshal(data, &n); err != nil {
			return nil, types.ConfigErrorf("failed to parse YAML: %v", err)
		}
		if n.Kind != yaml.DocumentNode || len(n.Content) == 0 {
			return nil, types.ConfigErrorf("rule document is empty")
		}
		root = n.Content[0]
	}
	return decodeDocument(root)
}

// =============================================================================
// DECODING
// =============================================================================

func decodeDocument(root *yaml.Node) (*RuleDocument, error) {
	if root.Kind != yaml.MappingNode {
		return nil, types.ConfigErrorf("rule document must be a mapping, got %s", kindName(root))
	}

	doc := &RuleDocument{
		Attributes:      make(map[string]string),
		ActionMap:       make(map[string]string),
		SecurityTypeMap: make(map[string]string),
	}

	seen := make(map[string]bool)
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valNode := root.Content[i], root.Content[i+1]
		key := keyNode.Value
		if seen[key] {
			return nil, types.ConfigErrorf("line %d: duplicate key %q", keyNode.Line, key)
		}
		seen[key] = true

		var err error
		switch {
		case IsControl(key):
			err = decodeControl(&doc.Controls, key, valNode)
		case key == "ActionMap":
			doc.ActionMap, err = decodeVocabulary(key, valNode)
		case key == "SecurityTypeMap":
			doc.SecurityTypeMap, err = decodeVocabulary(key, valNode)
		case key == "InvertRules":
			doc.InvertRules, err = decodeInvertRules(valNode)
		case key == "CalculationRules":
			doc.CalculationRules, err = decodeCalculationRules(valNode)
		case key == "Translations":
			doc.Translations, err = decodeTranslations(valNode)
		default:
			err = decodeField(doc, key, valNode)
		}
		if err != nil {
			return nil, err
		}
	}

	applyDefaults(doc)
	return doc, nil
}

func decodeControl(c *Controls, key string, n *yaml.Node) error {
	if isNull(n) {
		return nil
	}
	if n.Kind != yaml.ScalarNode {
		return types.ConfigErrorf("line %d: control %s must be a scalar", n.Line, key)
	}
	v := n.Value
	switch key {
	case "Separator":
		c.Separator = v
	case "StartLine":
		line, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || line < 1 {
			return types.ConfigErrorf("line %d: StartLine must be a positive integer, got %q", n.Line, v)
		}
		c.StartLine = line
	case "CsvTimeFormat":
		c.CsvTimeFormat = v
	case "QifTimeFormat":
		c.QifTimeFormat = v
	case "CsvFolder":
		c.CsvFolder = v
	case "CsvFile":
		c.CsvFile = v
	case "QifFolder":
		c.QifFolder = v
	case "QifFile":
		c.QifFile = v
	case "CurrencySymbol":
		c.CurrencySymbol = v
	case "DecimalSeparator":
		if v != "." && v != "," {
			return types.ConfigErrorf("line %d: DecimalSeparator must be \".\" or \",\", got %q", n.Line, v)
		}
		c.DecimalSeparator = v
	case "Sheet":
		c.Sheet = v
	}
	return nil
}

// decodeField handles a key that is neither a control nor a rule table.
func decodeField(doc *RuleDocument, key string, n *yaml.Node) error {
	if isNull(n) {
		return nil
	}
	if n.Kind != yaml.ScalarNode {
		return types.ConfigErrorf("line %d: unknown rule table %q", n.Line, key)
	}
	if idx, ok := columnIndex(n.Value); ok && n.ShortTag() == "!!str" {
		doc.Columns = append(doc.Columns, ColumnMapping{
			Field:  key,
			Letter: strings.ToUpper(n.Value),
			Column: idx,
		})
		return nil
	}
	doc.Attributes[key] = n.Value
	return nil
}

func decodeVocabulary(table string, n *yaml.Node) (map[string]string, error) {
	out := make(map[string]string)
	if isNull(n) {
		return out, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, types.ConfigErrorf("line %d: %s must be a mapping", n.Line, table)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return nil, types.ConfigErrorf("line %d: %s[%s] must be a scalar", v.Line, table, k.Value)
		}
		out[k.Value] = v.Value
	}
	return out, nil
}

func decodeInvertRules(n *yaml.Node) ([]InvertRule, error) {
	if isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, types.ConfigErrorf("line %d: InvertRules must be a mapping", n.Line)
	}
	var rules []InvertRule
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return nil, types.ConfigErrorf("line %d: InvertRules[%s] must be an expression string", v.Line, k.Value)
		}
		rules = append(rules, InvertRule{Field: k.Value, Condition: conditionText(v)})
	}
	return rules, nil
}

func decodeCalculationRules(n *yaml.Node) ([]CalculationRule, error) {
	if isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, types.ConfigErrorf("line %d: CalculationRules must be a mapping", n.Line)
	}
	var rules []CalculationRule
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		var parts []string
		switch v.Kind {
		case yaml.SequenceNode:
			for _, item := range v.Content {
				parts = append(parts, item.Value)
			}
		case yaml.ScalarNode:
			parts = strings.Fields(v.Value)
		}
		if len(parts) != 3 {
			return nil, types.ConfigErrorf("line %d: CalculationRules[%s] must be [operand, operator, operand]", v.Line, k.Value)
		}
		rules = append(rules, CalculationRule{
			Result: k.Value,
			Left:   parts[0],
			Op:     parts[1],
			Right:  parts[2],
		})
	}
	return rules, nil
}

// decodeTranslations accepts, per field, a list of [condition, value] pairs
// or {condition: ..., value: ...} mappings.
func decodeTranslations(n *yaml.Node) ([]TranslationTable, error) {
	if isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, types.ConfigErrorf("line %d: Translations must be a mapping", n.Line)
	}
	var tables []TranslationTable
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if v.Kind != yaml.SequenceNode {
			return nil, types.ConfigErrorf("line %d: Translations[%s] must be a list", v.Line, k.Value)
		}
		table := TranslationTable{Field: k.Value}
		for _, entry := range v.Content {
			t, err := decodeTranslation(k.Value, entry)
			if err != nil {
				return nil, err
			}
			table.Entries = append(table.Entries, t)
		}
		tables = append(tables, table)
	}
	return tables, nil
}

func decodeTranslation(field string, n *yaml.Node) (Translation, error) {
	switch n.Kind {
	case yaml.SequenceNode:
		if len(n.Content) != 2 || n.Content[0].Kind != yaml.ScalarNode || n.Content[1].Kind != yaml.ScalarNode {
			return Translation{}, types.ConfigErrorf("line %d: Translations[%s] entry must be [condition, value]", n.Line, field)
		}
		return Translation{Condition: conditionText(n.Content[0]), Value: n.Content[1].Value}, nil
	case yaml.MappingNode:
		var t Translation
		var haveCond, haveValue bool
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			switch k.Value {
			case "condition", "if", "when":
				t.Condition, haveCond = conditionText(v), true
			case "value", "then":
				t.Value, haveValue = v.Value, true
			default:
				return Translation{}, types.ConfigErrorf("line %d: Translations[%s] entry has unknown key %q", k.Line, field, k.Value)
			}
		}
		if !haveCond || !haveValue {
			return Translation{}, types.ConfigErrorf("line %d: Translations[%s] entry needs a condition and a value", n.Line, field)
		}
		return t, nil
	}
	return Translation{}, types.ConfigErrorf("line %d: Translations[%s] entry must be a pair or a mapping", n.Line, field)
}

// conditionText turns a YAML boolean into the expression literal.
func conditionText(n *yaml.Node) string {
	if n.ShortTag() == "!!bool" {
		if b, err := strconv.ParseBool(n.Value); err == nil && b {
			return "True"
		}
		return "False"
	}
	return n.Value
}

func isNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}

func kindName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "list"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "nothing"
}

// =============================================================================
// JSON
// =============================================================================

// jsonToNode decodes JSON into the same node tree the YAML path produces,
// keeping object key order.
func jsonToNode(data []byte) (*yaml.Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	n, err := readJSONValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after the top-level value")
	}
	return n, nil
}

func readJSONValue(dec *json.Decoder) (*yaml.Node, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("unexpected end of input")
		}
		return nil, err
	}
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key must be a string")
				}
				val, err := readJSONValue(dec)
				if err != nil {
					return nil, err
				}
				node.Content = append(node.Content, scalar("!!str", key), val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return node, nil
		case '[':
			node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
			for dec.More() {
				val, err := readJSONValue(dec)
				if err != nil {
					return nil, err
				}
				node.Content = append(node.Content, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return node, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", v)
	case string:
		return scalar("!!str", v), nil
	case json.Number:
		if strings.ContainsAny(v.String(), ".eE") {
			return scalar("!!float", v.String()), nil
		}
		return scalar("!!int", v.String()), nil
	case bool:
		return scalar("!!bool", strconv.FormatBool(v)), nil
	case nil:
		return scalar("!!null", "null"), nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}
