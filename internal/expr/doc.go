// Package expr evaluates the small rule expressions of a rule document
// against the fields of a single row.
//
// The grammar is fixed and deliberately small:
//
//	expr    = or
//	or      = and { ("or" | "||") and }
//	and     = not { ("and" | "&&") not }
//	not     = ("not" | "!") not | compare
//	compare = sum [ ("==" | "!=" | "<" | "<=" | ">" | ">=") sum ]
//	sum     = term { ("+" | "-") term }
//	term    = unary { ("*" | "/") unary }
//	unary   = "-" unary | primary
//	primary = number | string | "True" | "False" | "None" | field | "(" expr ")"
//	field   = [ "self." ] identifier
//
// Field references resolve only against the row being evaluated. There is no
// function call, attribute access beyond "self.", or global state.
package expr
