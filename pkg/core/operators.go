package core

import (
	"github.com/leapstack-labs/sqlforge/pkg/operator"
	"github.com/leapstack-labs/sqlforge/pkg/types"
)

// coerce turns a builder argument into an expression. Expressions pass
// through, nil becomes NULL, a Selectable becomes a scalar subquery and
// any other Go value becomes an anonymous bind typed against the other
// operand.
func coerce(v any, against Expr) Expr {
	switch x := v.(type) {
	case Expr:
		return x
	case nil:
		return Null()
	case Selectable:
		return &ScalarSubquery{sel: x}
	}
	var other types.Type
	if against != nil {
		other = against.Type()
	}
	return anonBind(bindKey(against), v, types.Coerce(v, other))
}

// bindKey is the base name for anonymous binds compared against e.
func bindKey(e Expr) string {
	switch x := e.(type) {
	case *Column:
		return x.name
	case *Label:
		return x.name
	}
	return "param"
}

func isNull(e Expr) bool { return e.Kind() == KindNull }

// Binary applies op to left and right, coercing Go values.
func Binary(op operator.Op, left, right any) *BinaryOp {
	l := coerce(left, nil)
	r := coerce(right, l)
	if _, ok := left.(Expr); !ok {
		l = coerce(left, r)
	}
	return &BinaryOp{op: op, left: l, right: r, typ: types.ResultType(op, l.Type(), r.Type())}
}

// Eq is left = right; comparing with nil renders IS NULL.
func Eq(left, right any) Expr {
	b := Binary(operator.Eq, left, right)
	if isNull(b.right) {
		b.op = operator.Is
	}
	return b
}

// Ne is left <> right; comparing with nil renders IS NOT NULL.
func Ne(left, right any) Expr {
	b := Binary(operator.Ne, left, right)
	if isNull(b.right) {
		b.op = operator.IsNot
	}
	return b
}

// Lt is left < right.
func Lt(left, right any) Expr { return Binary(operator.Lt, left, right) }

// Le is left <= right.
func Le(left, right any) Expr { return Binary(operator.Le, left, right) }

// Gt is left > right.
func Gt(left, right any) Expr { return Binary(operator.Gt, left, right) }

// Ge is left >= right.
func Ge(left, right any) Expr { return Binary(operator.Ge, left, right) }

// Like is left LIKE pattern.
func Like(left, pattern any) Expr { return Binary(operator.Like, left, pattern) }

// NotLike is left NOT LIKE pattern.
func NotLike(left, pattern any) Expr { return Binary(operator.NotLike, left, pattern) }

// IsNull is e IS NULL.
func IsNull(e Expr) Expr { return Binary(operator.Is, e, nil) }

// IsNotNull is e IS NOT NULL.
func IsNotNull(e Expr) Expr { return Binary(operator.IsNot, e, nil) }

// Add is left + right.
func Add(left, right any) Expr { return Binary(operator.Add, left, right) }

// Sub is left - right.
func Sub(left, right any) Expr { return Binary(operator.Sub, left, right) }

// Mul is left * right.
func Mul(left, right any) Expr { return Binary(operator.Mul, left, right) }

// Div is left / right.
func Div(left, right any) Expr { return Binary(operator.Div, left, right) }

// Mod is left % right.
func Mod(left, right any) Expr { return Binary(operator.Mod, left, right) }

// Concat is left || right.
func Concat(left, right any) Expr { return Binary(operator.Concat, left, right) }

// In is e IN (values...). A single Selectable argument yields
// e IN (SELECT ...); no values yields an always-false predicate.
func In(e Expr, values ...any) Expr { return in(operator.In, e, values) }

// NotIn is e NOT IN (values...).
func NotIn(e Expr, values ...any) Expr { return in(operator.NotIn, e, values) }

func in(op operator.Op, e Expr, values []any) Expr {
	if len(values) == 1 {
		if sel, ok := values[0].(Selectable); ok {
			return &BinaryOp{op: op, left: e, right: &ScalarSubquery{sel: sel}, typ: types.Boolean{}}
		}
	}
	items := make([]Expr, len(values))
	for i, v := range values {
		items[i] = coerce(v, e)
	}
	return &BinaryOp{op: op, left: e, right: &Grouping{elem: &ClauseList{items: items, sep: ", "}}, typ: types.Boolean{}}
}

// Between is e BETWEEN lo AND hi.
func Between(e Expr, lo, hi any) Expr {
	bounds := &ClauseList{items: []Expr{coerce(lo, e), coerce(hi, e)}, sep: " AND "}
	return &BinaryOp{op: operator.Between, left: e, right: bounds, typ: types.Boolean{}}
}

// And conjoins the predicates. A single predicate is returned unchanged.
func And(preds ...Expr) Expr { return conjoin(operator.And, preds) }

// Or disjoins the predicates.
func Or(preds ...Expr) Expr { return conjoin(operator.Or, preds) }

func conjoin(op operator.Op, preds []Expr) Expr {
	var out Expr
	for _, p := range preds {
		if p == nil {
			continue
		}
		if out == nil {
			out = p
			continue
		}
		out = &BinaryOp{op: op, left: out, right: p, typ: types.Boolean{}}
	}
	if out == nil {
		if op == operator.And {
			return True()
		}
		return False()
	}
	return out
}

// Not negates e. Comparisons with a negated form are flipped instead of
// wrapped (NOT a = b becomes a <> b).
func Not(e Expr) Expr {
	if b, ok := e.(*BinaryOp); ok {
		if neg, ok := operator.Negate(b.op); ok {
			cp := *b
			cp.op = neg
			return &cp
		}
	}
	if u, ok := e.(*UnaryOp); ok && u.op == operator.Not {
		return u.operand
	}
	return &UnaryOp{op: operator.Not, operand: e, typ: types.Boolean{}}
}

// Neg is -e.
func Neg(e Expr) Expr { return &UnaryOp{op: operator.Neg, operand: e, typ: e.Type()} }

// Exists is EXISTS (subquery).
func Exists(sel Selectable) Expr {
	return &UnaryOp{op: operator.Exists, operand: &ScalarSubquery{sel: sel}, typ: types.Boolean{}}
}

// Distinct is DISTINCT e, e.g. inside COUNT.
func Distinct(e Expr) Expr { return &UnaryOp{op: operator.Distinct, operand: e, typ: e.Type()} }

// Asc orders by e ascending.
func Asc(e Expr) Expr { return &UnaryOp{op: operator.Asc, operand: e, typ: e.Type()} }

// Desc orders by e descending.
func Desc(e Expr) Expr { return &UnaryOp{op: operator.Desc, operand: e, typ: e.Type()} }

// NullsFirst places NULLs first in an ordering.
func NullsFirst(e Expr) Expr { return &UnaryOp{op: operator.NullsFirst, operand: e, typ: e.Type()} }

// NullsLast places NULLs last in an ordering.
func NullsLast(e Expr) Expr { return &UnaryOp{op: operator.NullsLast, operand: e, typ: e.Type()} }

// Eq is c = v.
func (c *Column) Eq(v any) Expr { return Eq(c, v) }

// Ne is c <> v.
func (c *Column) Ne(v any) Expr { return Ne(c, v) }

// Lt is c < v.
func (c *Column) Lt(v any) Expr { return Lt(c, v) }

// Le is c <= v.
func (c *Column) Le(v any) Expr { return Le(c, v) }

// Gt is c > v.
func (c *Column) Gt(v any) Expr { return Gt(c, v) }

// Ge is c >= v.
func (c *Column) Ge(v any) Expr { return Ge(c, v) }

// Like is c LIKE pattern.
func (c *Column) Like(pattern any) Expr { return Like(c, pattern) }

// In is c IN (values...).
func (c *Column) In(values ...any) Expr { return In(c, values...) }

// NotIn is c NOT IN (values...).
func (c *Column) NotIn(values ...any) Expr { return NotIn(c, values...) }

// Between is c BETWEEN lo AND hi.
func (c *Column) Between(lo, hi any) Expr { return Between(c, lo, hi) }

// IsNull is c IS NULL.
func (c *Column) IsNull() Expr { return IsNull(c) }

// IsNotNull is c IS NOT NULL.
func (c *Column) IsNotNull() Expr { return IsNotNull(c) }

// Add is c + v.
func (c *Column) Add(v any) Expr { return Add(c, v) }

// Sub is c - v.
func (c *Column) Sub(v any) Expr { return Sub(c, v) }

// Concat is c || v.
func (c *Column) Concat(v any) Expr { return Concat(c, v) }

// Asc orders by c ascending.
func (c *Column) Asc() Expr { return Asc(c) }

// Desc orders by c descending.
func (c *Column) Desc() Expr { return Desc(c) }

// Label names c in a select list.
func (c *Column) Label(name string) *Label { return NewLabel(name, c) }
