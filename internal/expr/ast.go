package expr

import "github.com/ginjaninja78/CSV-to-QIF-conversion/internal/types"

// Node is one element of a parsed expression tree.
type Node interface {
	node()
}

// Literal is a constant value.
type Literal struct {
	Value types.Value
}

// FieldRef reads a field of the current row.
type FieldRef struct {
	Name string
}

// Unary applies "-" or "not" to its operand.
type Unary struct {
	Op      string
	Operand Node
}

// Binary is an arithmetic or comparison operation.
type Binary struct {
	Op          string
	Left, Right Node
}

// Logical is a short-circuit "and" / "or".
type Logical struct {
	Op          string
	Left, Right Node
}

func (*Literal) node()  {}
func (*FieldRef) node() {}
func (*Unary) node()    {}
func (*Binary) node()   {}
func (*Logical) node()  {}
