package expr

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/types"
)

// SyntaxError reports a malformed expression.
type SyntaxError struct {
	Source string
	Pos    int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%v: %s at offset %d in %q", types.ErrExpressionSyntax, e.Msg, e.Pos, e.Source)
}

// Is makes errors.Is(err, types.ErrExpressionSyntax) hold.
func (e *SyntaxError) Is(target error) bool { return target == types.ErrExpressionSyntax }

// Expr is a compiled expression.
type Expr struct {
	source string
	root   Node
}

// Compile parses src into an expression tree.
func Compile(src string) (*Expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	if p.peek().kind == tokEOF {
		return nil, &SyntaxError{Source: src, Pos: 0, Msg: "empty expression"}
	}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, &SyntaxError{Source: src, Pos: t.pos, Msg: fmt.Sprintf("unexpected %q", t.text)}
	}
	return &Expr{source: src, root: root}, nil
}

// MustCompile is like Compile but panics on error. Intended for tests and
// package-level constants.
func MustCompile(src string) *Expr {
	e, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the source text.
func (e *Expr) String() string { return e.source }

// Fields lists the distinct field names the expression references, in
// order of first appearance.
func (e *Expr) Fields() []string {
	var names []string
	seen := make(map[string]bool)
	var walk func(Node)
	walk = func(n Node) {
		switch n := n.(type) {
		case *FieldRef:
			if !seen[n.Name] {
				seen[n.Name] = true
				names = append(names, n.Name)
			}
		case *Unary:
			walk(n.Operand)
		case *Binary:
			walk(n.Left)
			walk(n.Right)
		case *Logical:
			walk(n.Left)
			walk(n.Right)
		}
	}
	walk(e.root)
	return names
}

type parser struct {
	src  string
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &SyntaxError{Source: p.src, Pos: t.pos, Msg: fmt.Sprintf(format, args...)}
}

// accept consumes the next token if it is one of the given operators or
// keywords and returns the canonical operator name.
func (p *parser) accept(ops map[string]string) (string, bool) {
	t := p.peek()
	if t.kind != tokOp && t.kind != tokIdent {
		return "", false
	}
	op, ok := ops[t.text]
	if !ok {
		return "", false
	}
	p.next()
	return op, true
}

var (
	orOps      = map[string]string{"or": "or", "||": "or"}
	andOps     = map[string]string{"and": "and", "&&": "and"}
	notOps     = map[string]string{"not": "not", "!": "not"}
	compareOps = map[string]string{"==": "==", "!=": "!=", "<": "<", "<=": "<=", ">": ">", ">=": ">="}
	sumOps     = map[string]string{"+": "+", "-": "-"}
	termOps    = map[string]string{"*": "*", "/": "/"}
)

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.accept(orOps)
		if !ok {
			return left, nil
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.accept(andOps)
		if !ok {
			return left, nil
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseNot() (Node, error) {
	if op, ok := p.accept(notOps); ok {
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: op, Operand: operand}, nil
	}
	return p.parseCompare()
}

func (p *parser) parseCompare() (Node, error) {
	left, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	op, ok := p.accept(compareOps)
	if !ok {
		return left, nil
	}
	right, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind == tokOp {
		if _, chained := compareOps[t.text]; chained {
			return nil, p.errorf(t, "chained comparison")
		}
	}
	return &Binary{Op: op, Left: left, Right: right}, nil
}

func (p *parser) parseSum() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.accept(sumOps)
		if !ok {
			return left, nil
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseTerm() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.accept(termOps)
		if !ok {
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseUnary() (Node, error) {
	if t := p.peek(); t.kind == tokOp && t.text == "-" {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: "-", Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		d, err := decimal.NewFromString(t.text)
		if err != nil {
			return nil, p.errorf(t, "invalid number %q", t.text)
		}
		return &Literal{Value: types.NewNumber(d)}, nil
	case tokString:
		return &Literal{Value: types.NewString(t.text)}, nil
	case tokLParen:
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, p.errorf(closing, "expected ')'")
		}
		return inner, nil
	case tokIdent:
		switch t.text {
		case "True", "true", "always":
			return &Literal{Value: types.NewBool(true)}, nil
		case "False", "false":
			return &Literal{Value: types.NewBool(false)}, nil
		case "None", "null":
			return &Literal{Value: types.Null}, nil
		case "self":
			if dot := p.next(); dot.kind != tokDot {
				return nil, p.errorf(dot, "expected '.' after self")
			}
			name := p.next()
			if name.kind != tokIdent {
				return nil, p.errorf(name, "expected field name after 'self.'")
			}
			return &FieldRef{Name: name.text}, nil
		case "and", "or", "not":
			return nil, p.errorf(t, "unexpected keyword %q", t.text)
		}
		if p.peek().kind == tokDot || p.peek().kind == tokLParen {
			return nil, p.errorf(p.peek(), "only field references are allowed")
		}
		return &FieldRef{Name: t.text}, nil
	case tokEOF:
		return nil, p.errorf(t, "unexpected end of expression")
	}
	return nil, p.errorf(t, "unexpected %q", t.text)
}
