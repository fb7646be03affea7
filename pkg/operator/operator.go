// Package operator defines the operators carried by unary and binary
// expression nodes.
//
// ANSI operators are constants (IDs below 1000) so the compiler can switch
// on them cheaply. Dialect-specific operators are registered dynamically
// via Register().
package operator

import "fmt"

// Op identifies an SQL operator.
type Op int32

//nolint:revive // operator names mirror their SQL spelling
const (
	Invalid Op = iota

	// Arithmetic
	Add
	Sub
	Mul
	Div
	Mod
	Concat

	// Comparison
	Eq
	Ne
	Lt
	Gt
	Le
	Ge
	Is
	IsNot
	Like
	NotLike
	In
	NotIn
	Between
	NotBetween

	// Boolean
	And
	Or
	Not

	// Unary
	Neg
	Exists
	Distinct

	// Ordering modifiers
	Asc
	Desc
	NullsFirst
	NullsLast

	// Sentinel - dynamic operators start after this
	maxBuiltin Op = 999
)

// Precedence levels. Higher binds tighter.
const (
	PrecedenceNone       = 0
	PrecedenceOr         = 1
	PrecedenceAnd        = 2
	PrecedenceNot        = 3
	PrecedenceComparison = 4 // =, <>, <, >, <=, >=, LIKE, ILIKE, IN, BETWEEN, IS
	PrecedenceAddition   = 5 // +, -, ||
	PrecedenceMultiply   = 6 // *, /, %
	PrecedenceUnary      = 7 // -, NOT
	PrecedencePostfix    = 8 // ASC, DESC, NULLS FIRST
)

type info struct {
	symbol     string
	precedence int
	comparison bool
	boolean    bool
	// associative operators can be chained without parentheses on the right.
	associative bool
}

var builtins = map[Op]info{
	Add:        {symbol: "+", precedence: PrecedenceAddition, associative: true},
	Sub:        {symbol: "-", precedence: PrecedenceAddition},
	Mul:        {symbol: "*", precedence: PrecedenceMultiply, associative: true},
	Div:        {symbol: "/", precedence: PrecedenceMultiply},
	Mod:        {symbol: "%", precedence: PrecedenceMultiply},
	Concat:     {symbol: "||", precedence: PrecedenceAddition, associative: true},
	Eq:         {symbol: "=", precedence: PrecedenceComparison, comparison: true, boolean: true},
	Ne:         {symbol: "!=", precedence: PrecedenceComparison, comparison: true, boolean: true},
	Lt:         {symbol: "<", precedence: PrecedenceComparison, comparison: true, boolean: true},
	Gt:         {symbol: ">", precedence: PrecedenceComparison, comparison: true, boolean: true},
	Le:         {symbol: "<=", precedence: PrecedenceComparison, comparison: true, boolean: true},
	Ge:         {symbol: ">=", precedence: PrecedenceComparison, comparison: true, boolean: true},
	Is:         {symbol: "IS", precedence: PrecedenceComparison, comparison: true, boolean: true},
	IsNot:      {symbol: "IS NOT", precedence: PrecedenceComparison, comparison: true, boolean: true},
	Like:       {symbol: "LIKE", precedence: PrecedenceComparison, comparison: true, boolean: true},
	NotLike:    {symbol: "NOT LIKE", precedence: PrecedenceComparison, comparison: true, boolean: true},
	In:         {symbol: "IN", precedence: PrecedenceComparison, comparison: true, boolean: true},
	NotIn:      {symbol: "NOT IN", precedence: PrecedenceComparison, comparison: true, boolean: true},
	Between:    {symbol: "BETWEEN", precedence: PrecedenceComparison, comparison: true, boolean: true},
	NotBetween: {symbol: "NOT BETWEEN", precedence: PrecedenceComparison, comparison: true, boolean: true},
	And:        {symbol: "AND", precedence: PrecedenceAnd, boolean: true, associative: true},
	Or:         {symbol: "OR", precedence: PrecedenceOr, boolean: true, associative: true},
	Not:        {symbol: "NOT", precedence: PrecedenceNot, boolean: true},
	Neg:        {symbol: "-", precedence: PrecedenceUnary},
	Exists:     {symbol: "EXISTS", precedence: PrecedenceUnary, boolean: true},
	Distinct:   {symbol: "DISTINCT", precedence: PrecedenceUnary},
	Asc:        {symbol: "ASC", precedence: PrecedencePostfix},
	Desc:       {symbol: "DESC", precedence: PrecedencePostfix},
	NullsFirst: {symbol: "NULLS FIRST", precedence: PrecedencePostfix},
	NullsLast:  {symbol: "NULLS LAST", precedence: PrecedencePostfix},
}

// String returns the SQL spelling of the operator.
func (o Op) String() string {
	if in, ok := lookup(o); ok {
		return in.symbol
	}
	return fmt.Sprintf("OP(%d)", o)
}

// Symbol returns the SQL spelling of the operator.
func Symbol(o Op) string { return o.String() }

// Precedence returns the binding strength of the operator.
// Unknown operators get PrecedenceNone.
func Precedence(o Op) int {
	if in, ok := lookup(o); ok {
		return in.precedence
	}
	return PrecedenceNone
}

// IsComparison returns true for operators comparing two values.
func IsComparison(o Op) bool {
	in, ok := lookup(o)
	return ok && in.comparison
}

// IsBoolean returns true for operators producing a boolean result.
func IsBoolean(o Op) bool {
	in, ok := lookup(o)
	return ok && in.boolean
}

// IsAssociative returns true when a op (b op c) == (a op b) op c.
func IsAssociative(o Op) bool {
	in, ok := lookup(o)
	return ok && in.associative
}

// Negate returns the inverse comparison operator, if one exists.
func Negate(o Op) (Op, bool) {
	switch o {
	case Eq:
		return Ne, true
	case Ne:
		return Eq, true
	case Lt:
		return Ge, true
	case Ge:
		return Lt, true
	case Gt:
		return Le, true
	case Le:
		return Gt, true
	case Is:
		return IsNot, true
	case IsNot:
		return Is, true
	case Like:
		return NotLike, true
	case NotLike:
		return Like, true
	case In:
		return NotIn, true
	case NotIn:
		return In, true
	case Between:
		return NotBetween, true
	case NotBetween:
		return Between, true
	}
	return Invalid, false
}

func lookup(o Op) (info, bool) {
	if o > maxBuiltin {
		return dynamicInfo(o)
	}
	in, ok := builtins[o]
	return in, ok
}
