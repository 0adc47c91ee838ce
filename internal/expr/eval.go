package expr

import (
	"fmt"

	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/types"
)

// Env resolves field references. A field that exists but is empty resolves
// to types.Null; a field the row does not define at all is reported by
// returning ok == false.
type Env interface {
	Lookup(name string) (types.Value, bool)
}

// MapEnv is an Env over a plain map.
type MapEnv map[string]types.Value

func (m MapEnv) Lookup(name string) (types.Value, bool) {
	v, ok := m[name]
	return v, ok
}

// Eval evaluates the expression against env.
func (e *Expr) Eval(env Env) (types.Value, error) {
	return eval(e.root, env)
}

// EvalBool evaluates the expression and returns its truth value.
func (e *Expr) EvalBool(env Env) (bool, error) {
	v, err := e.Eval(env)
	if err != nil {
		return false, err
	}
	return v.Truthy(), nil
}

func eval(n Node, env Env) (types.Value, error) {
	switch n := n.(type) {
	case *Literal:
		return n.Value, nil
	case *FieldRef:
		v, ok := env.Lookup(n.Name)
		if !ok {
			return types.Null, fmt.Errorf("%w: %s", types.ErrUnknownField, n.Name)
		}
		return v, nil
	case *Unary:
		v, err := eval(n.Operand, env)
		if err != nil {
			return types.Null, err
		}
		if n.Op == "not" {
			return types.NewBool(!v.Truthy()), nil
		}
		d, ok := v.AsNumber()
		if !ok {
			return types.Null, fmt.Errorf("%w: cannot negate %s", types.ErrArithmetic, v.Kind)
		}
		return types.NewNumber(d.Neg()), nil
	case *Logical:
		l, err := eval(n.Left, env)
		if err != nil {
			return types.Null, err
		}
		if n.Op == "and" && !l.Truthy() {
			return types.NewBool(false), nil
		}
		if n.Op == "or" && l.Truthy() {
			return types.NewBool(true), nil
		}
		r, err := eval(n.Right, env)
		if err != nil {
			return types.Null, err
		}
		return types.NewBool(r.Truthy()), nil
	case *Binary:
		l, err := eval(n.Left, env)
		if err != nil {
			return types.Null, err
		}
		r, err := eval(n.Right, env)
		if err != nil {
			return types.Null, err
		}
		switch n.Op {
		case "+", "-", "*", "/":
			return Arithmetic(n.Op, l, r)
		default:
			return types.NewBool(compare(n.Op, l, r)), nil
		}
	}
	return types.Null, fmt.Errorf("%w: unknown node %T", types.ErrExpressionSyntax, n)
}

// Arithmetic applies one of + - * / to two values. Both must be numeric,
// except that "+" concatenates two strings.
func Arithmetic(op string, l, r types.Value) (types.Value, error) {
	if op == "+" && l.Kind == types.KindString && r.Kind == types.KindString {
		return types.NewString(l.Str + r.Str), nil
	}
	a, okA := l.AsNumber()
	b, okB := r.AsNumber()
	if !okA || !okB {
		return types.Null, fmt.Errorf("%w: unsupported operands for %s: %s and %s", types.ErrArithmetic, op, l.Kind, r.Kind)
	}
	switch op {
	case "+":
		return types.NewNumber(a.Add(b)), nil
	case "-":
		return types.NewNumber(a.Sub(b)), nil
	case "*":
		return types.NewNumber(a.Mul(b)), nil
	case "/":
		if b.IsZero() {
			return types.Null, fmt.Errorf("%w: division by zero", types.ErrArithmetic)
		}
		return types.NewNumber(types.Normalize(a.Div(b))), nil
	}
	return types.Null, fmt.Errorf("%w: unknown operator %q", types.ErrExpressionSyntax, op)
}

// compare implements the comparison operators. Numbers compare
// numerically, and a string that parses as a number compares as one.
// Ordering against None is always false.
func compare(op string, l, r types.Value) bool {
	if l.IsNull() || r.IsNull() {
		both := l.IsNull() && r.IsNull()
		switch op {
		case "==":
			return both
		case "!=":
			return !both
		}
		return false
	}

	var c int
	a, okA := l.AsNumber()
	b, okB := r.AsNumber()
	switch {
	case okA && okB && (l.Kind == types.KindNumber || r.Kind == types.KindNumber):
		c = a.Cmp(b)
	case l.Kind == types.KindBool || r.Kind == types.KindBool:
		eq := l.Truthy() == r.Truthy()
		switch op {
		case "==":
			return eq
		case "!=":
			return !eq
		}
		return false
	case l.Kind == types.KindString && r.Kind == types.KindString:
		switch {
		case l.Str < r.Str:
			c = -1
		case l.Str > r.Str:
			c = 1
		}
	default:
		// a number against a non-numeric string
		return op == "!="
	}

	switch op {
	case "==":
		return c == 0
	case "!=":
		return c != 0
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	}
	return false
}
