package core

import (
	"strings"

	"github.com/leapstack-labs/sqlforge/pkg/operator"
	"github.com/leapstack-labs/sqlforge/pkg/types"
)

// BindParameter is a placeholder whose value is supplied at execution.
//
// A unique bind is anonymous: the compiler derives its rendered name from
// Key plus a counter (age_1, age_2). A non-unique bind is rendered under
// Key verbatim and every occurrence of that name shares one value.
type BindParameter struct {
	key      string
	unique   bool
	typ      types.Type
	value    any
	hasValue bool
	required bool
	callable func() any
}

// BindOption configures a BindParameter.
type BindOption func(b *BindParameter)

// Value gives the bind a value, making it optional at execution.
func Value(v any) BindOption {
	return func(b *BindParameter) {
		b.value = v
		b.hasValue = true
		b.required = false
	}
}

// Callable computes the bind value at execution time.
func Callable(f func() any) BindOption {
	return func(b *BindParameter) {
		b.callable = f
		b.required = false
	}
}

// Optional lets the bind execute as NULL when no value is supplied.
func Optional() BindOption { return func(b *BindParameter) { b.required = false } }

// Unique makes the bind anonymous so its name cannot collide with other
// binds derived from the same key.
func Unique() BindOption { return func(b *BindParameter) { b.unique = true } }

// Bind creates a named bind parameter. Without Value, Callable or Optional
// the bind is required and executing without a value for it fails with
// *sqlerr.MissingParameterError.
func Bind(name string, typ types.Type, opts ...BindOption) *BindParameter {
	b := &BindParameter{key: name, typ: types.Of(typ), required: true}
	for _, o := range opts {
		o(b)
	}
	return b
}

func anonBind(key string, v any, typ types.Type) *BindParameter {
	return &BindParameter{key: key, unique: true, typ: types.Of(typ), value: v, hasValue: true}
}

func (*BindParameter) Kind() Kind         { return KindBindParameter }
func (*BindParameter) exprNode()          {}
func (b *BindParameter) Type() types.Type { return b.typ }

func (b *BindParameter) writeKey(kb *KeyBuilder) {
	kb.kind(KindBindParameter)
	kb.bind(b)
	kb.str(b.key)
	kb.bool(b.unique)
	kb.str(b.typ.Name())
}

// Key returns the bind's name, or the base of its anonymous name.
func (b *BindParameter) Key() string { return b.key }

// IsUnique reports whether the bind is anonymous.
func (b *BindParameter) IsUnique() bool { return b.unique }

// IsRequired reports whether execution fails without an explicit value.
func (b *BindParameter) IsRequired() bool { return b.required }

// Resolve returns the bind's own value, evaluating a callable.
func (b *BindParameter) Resolve() (any, bool) {
	if b.callable != nil {
		return b.callable(), true
	}
	return b.value, b.hasValue
}

// WithValue returns a copy of b carrying v.
func (b *BindParameter) WithValue(v any) *BindParameter {
	cp := *b
	cp.value, cp.hasValue, cp.required, cp.callable = v, true, false, nil
	return &cp
}

// WithoutValue returns a copy of b with no value or callable. Whether the
// bind is required is unchanged.
func (b *BindParameter) WithoutValue() *BindParameter {
	cp := *b
	cp.value, cp.hasValue, cp.callable = nil, false, nil
	return &cp
}

// Literal is a constant value. It renders as an anonymous bind parameter,
// so its value never enters the cache key.
type Literal struct {
	bind *BindParameter
}

// Lit wraps a Go value as a literal expression.
func Lit(v any) *Literal {
	return &Literal{bind: anonBind("param", v, types.Coerce(v, nil))}
}

// TypedLit wraps a Go value with an explicit type.
func TypedLit(v any, typ types.Type) *Literal {
	return &Literal{bind: anonBind("param", v, typ)}
}

func (*Literal) Kind() Kind         { return KindLiteral }
func (*Literal) exprNode()          {}
func (l *Literal) Type() types.Type { return l.bind.typ }

func (l *Literal) writeKey(kb *KeyBuilder) {
	kb.kind(KindLiteral)
	l.bind.writeKey(kb)
}

// Bind returns the parameter the literal renders as.
func (l *Literal) Bind() *BindParameter { return l.bind }

// UnaryOp is a prefix operator (NOT, -, EXISTS, DISTINCT) or an ordering
// modifier (ASC, DESC, NULLS FIRST/LAST) applied to one operand.
type UnaryOp struct {
	op      operator.Op
	operand Expr
	typ     types.Type
}

func (*UnaryOp) Kind() Kind         { return KindUnaryOp }
func (*UnaryOp) exprNode()          {}
func (u *UnaryOp) Type() types.Type { return u.typ }

func (u *UnaryOp) writeKey(kb *KeyBuilder) {
	kb.kind(KindUnaryOp)
	kb.int(int64(u.op))
	kb.node(u.operand)
}

// Op returns the operator.
func (u *UnaryOp) Op() operator.Op { return u.op }

// Operand returns the operand.
func (u *UnaryOp) Operand() Expr { return u.operand }

// IsModifier reports whether the operator is rendered after its operand.
func (u *UnaryOp) IsModifier() bool {
	switch u.op {
	case operator.Asc, operator.Desc, operator.NullsFirst, operator.NullsLast:
		return true
	}
	return false
}

// BinaryOp applies an infix operator to two operands.
type BinaryOp struct {
	op          operator.Op
	left, right Expr
	typ         types.Type
}

func (*BinaryOp) Kind() Kind         { return KindBinaryOp }
func (*BinaryOp) exprNode()          {}
func (b *BinaryOp) Type() types.Type { return b.typ }

func (b *BinaryOp) writeKey(kb *KeyBuilder) {
	kb.kind(KindBinaryOp)
	kb.int(int64(b.op))
	kb.node(b.left)
	kb.node(b.right)
}

// Op returns the operator.
func (b *BinaryOp) Op() operator.Op { return b.op }

// Left returns the left operand.
func (b *BinaryOp) Left() Expr { return b.left }

// Right returns the right operand.
func (b *BinaryOp) Right() Expr { return b.right }

// FunctionCall is a SQL function invocation.
type FunctionCall struct {
	name string
	args []Expr
	typ  types.Type
}

// Func calls the named SQL function. Arguments that are not expressions
// become anonymous binds. Well-known aggregates get a result type; others
// are untyped until WithType.
func Func(name string, args ...any) *FunctionCall {
	fc := &FunctionCall{name: name, args: make([]Expr, len(args))}
	for i, a := range args {
		fc.args[i] = coerce(a, nil)
	}
	fc.typ = functionType(strings.ToLower(name), fc.args)
	return fc
}

// Count is COUNT(*) when called without arguments, COUNT(x) otherwise.
func Count(args ...any) *FunctionCall {
	if len(args) == 0 {
		return &FunctionCall{name: "count", args: []Expr{&Star{}}, typ: types.Integer{}}
	}
	return Func("count", args...)
}

func functionType(name string, args []Expr) types.Type {
	switch name {
	case "count":
		return types.Integer{}
	case "now", "current_timestamp", "localtimestamp":
		return types.DateTime{}
	case "current_date":
		return types.Date{}
	case "lower", "upper", "concat", "trim", "substr", "substring", "replace":
		return types.String{}
	case "avg":
		return types.Numeric{}
	case "sum", "max", "min", "coalesce", "abs":
		if len(args) > 0 {
			return types.Of(args[0].Type())
		}
	}
	return types.NullType{}
}

func (*FunctionCall) Kind() Kind          { return KindFunctionCall }
func (*FunctionCall) exprNode()           {}
func (fc *FunctionCall) Type() types.Type { return fc.typ }

func (fc *FunctionCall) writeKey(kb *KeyBuilder) {
	kb.kind(KindFunctionCall)
	kb.str(fc.name)
	kb.exprs(fc.args)
}

// Name returns the function name as written.
func (fc *FunctionCall) Name() string { return fc.name }

// Args returns the arguments.
func (fc *FunctionCall) Args() []Expr { return fc.args }

// WithType returns a copy of fc with an explicit result type.
func (fc *FunctionCall) WithType(t types.Type) *FunctionCall {
	cp := *fc
	cp.typ = types.Of(t)
	return &cp
}

// Label names the call in a select list.
func (fc *FunctionCall) Label(name string) *Label { return NewLabel(name, fc) }

// Label gives an expression a result column name.
type Label struct {
	name string
	elem Expr
}

// NewLabel labels e as name.
func NewLabel(name string, e Expr) *Label { return &Label{name: name, elem: e} }

func (*Label) Kind() Kind         { return KindLabel }
func (*Label) exprNode()          {}
func (l *Label) Type() types.Type { return l.elem.Type() }

func (l *Label) writeKey(kb *KeyBuilder) {
	kb.kind(KindLabel)
	kb.str(l.name)
	kb.node(l.elem)
}

// Name returns the label.
func (l *Label) Name() string { return l.name }

// Element returns the labelled expression.
func (l *Label) Element() Expr { return l.elem }

// When is one branch of a CASE expression.
type When struct {
	Cond   Expr
	Result Expr
}

// Case is a searched (or, with a value, simple) CASE expression.
type Case struct {
	value Expr
	whens []When
	els   Expr
	typ   types.Type
}

// NewCase builds CASE WHEN ... THEN ... [ELSE ...] END. Results that are
// not expressions become anonymous binds.
func NewCase(whens []When, els any) *Case {
	c := &Case{whens: whens}
	if els != nil {
		c.els = coerce(els, nil)
	}
	c.typ = caseType(c)
	return c
}

// SimpleCase builds CASE value WHEN ... END.
func SimpleCase(value Expr, whens []When, els any) *Case {
	c := NewCase(whens, els)
	c.value = value
	return c
}

func caseType(c *Case) types.Type {
	for _, w := range c.whens {
		if w.Result != nil && types.Of(w.Result.Type()).Affinity() != types.AffinityNull {
			return w.Result.Type()
		}
	}
	if c.els != nil {
		return types.Of(c.els.Type())
	}
	return types.NullType{}
}

func (*Case) Kind() Kind         { return KindCase }
func (*Case) exprNode()          {}
func (c *Case) Type() types.Type { return c.typ }

func (c *Case) writeKey(kb *KeyBuilder) {
	kb.kind(KindCase)
	kb.node(c.value)
	kb.int(int64(len(c.whens)))
	for _, w := range c.whens {
		kb.node(w.Cond)
		kb.node(w.Result)
	}
	kb.node(c.els)
}

// Value returns the operand of a simple CASE, or nil.
func (c *Case) Value() Expr { return c.value }

// Whens returns the branches.
func (c *Case) Whens() []When { return c.whens }

// Else returns the ELSE result, or nil.
func (c *Case) Else() Expr { return c.els }

// Cast is CAST(expr AS type).
type Cast struct {
	elem Expr
	typ  types.Type
}

// NewCast casts e to t.
func NewCast(e any, t types.Type) *Cast { return &Cast{elem: coerce(e, nil), typ: types.Of(t)} }

func (*Cast) Kind() Kind         { return KindCast }
func (*Cast) exprNode()          {}
func (c *Cast) Type() types.Type { return c.typ }

func (c *Cast) writeKey(kb *KeyBuilder) {
	kb.kind(KindCast)
	kb.str(c.typ.Name())
	kb.node(c.elem)
}

// Element returns the cast operand.
func (c *Cast) Element() Expr { return c.elem }

// Grouping wraps an expression in parentheses.
type Grouping struct {
	elem Expr
}

// Group parenthesizes e.
func Group(e Expr) *Grouping { return &Grouping{elem: e} }

func (*Grouping) Kind() Kind         { return KindGrouping }
func (*Grouping) exprNode()          {}
func (g *Grouping) Type() types.Type { return g.elem.Type() }

func (g *Grouping) writeKey(kb *KeyBuilder) {
	kb.kind(KindGrouping)
	kb.node(g.elem)
}

// Element returns the grouped expression.
func (g *Grouping) Element() Expr { return g.elem }

// ClauseList is a separator-joined list of expressions, used for IN
// lists and BETWEEN bounds.
type ClauseList struct {
	items []Expr
	sep   string
}

func (*ClauseList) Kind() Kind         { return KindClauseList }
func (*ClauseList) exprNode()          {}
func (l *ClauseList) Type() types.Type { return types.NullType{} }

func (l *ClauseList) writeKey(kb *KeyBuilder) {
	kb.kind(KindClauseList)
	kb.str(l.sep)
	kb.exprs(l.items)
}

// Items returns the list elements.
func (l *ClauseList) Items() []Expr { return l.items }

// Separator returns the string placed between elements.
func (l *ClauseList) Separator() string { return l.sep }

type constant struct {
	kind Kind
	typ  types.Type
}

func (c *constant) Kind() Kind              { return c.kind }
func (*constant) exprNode()                 {}
func (c *constant) Type() types.Type        { return c.typ }
func (c *constant) writeKey(kb *KeyBuilder) { kb.kind(c.kind) }

var (
	nullConst  = &constant{kind: KindNull, typ: types.NullType{}}
	trueConst  = &constant{kind: KindTrue, typ: types.Boolean{}}
	falseConst = &constant{kind: KindFalse, typ: types.Boolean{}}
)

// Null is the SQL NULL keyword.
func Null() Expr { return nullConst }

// True is the boolean TRUE constant.
func True() Expr { return trueConst }

// False is the boolean FALSE constant.
func False() Expr { return falseConst }

// ScalarSubquery uses a SELECT as a column-valued expression.
type ScalarSubquery struct {
	sel Selectable
}

func (*ScalarSubquery) Kind() Kind { return KindScalarSubquery }
func (*ScalarSubquery) exprNode()  {}

// Type is the type of the subquery's first column.
func (s *ScalarSubquery) Type() types.Type {
	if cols := s.sel.ResultColumns(); len(cols) > 0 {
		return types.Of(cols[0].Expr.Type())
	}
	return types.NullType{}
}

func (s *ScalarSubquery) writeKey(kb *KeyBuilder) {
	kb.kind(KindScalarSubquery)
	kb.node(s.sel)
}

// Select returns the wrapped statement.
func (s *ScalarSubquery) Select() Selectable { return s.sel }

// Star is `*` or `table.*`.
type Star struct {
	table FromClause
}

// AllColumns selects table.*.
func AllColumns(t FromClause) *Star { return &Star{table: t} }

func (*Star) Kind() Kind       { return KindStar }
func (*Star) exprNode()        {}
func (*Star) Type() types.Type { return types.NullType{} }

func (s *Star) writeKey(kb *KeyBuilder) {
	kb.kind(KindStar)
	kb.node(s.table)
}

// Table returns the qualifying table, or nil for a bare `*`.
func (s *Star) Table() FromClause { return s.table }
