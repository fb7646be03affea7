package core

import (
	"fmt"

	"github.com/leapstack-labs/sqlforge/pkg/sqlerr"
	"github.com/leapstack-labs/sqlforge/pkg/types"
)

// Alias names a FROM element: a table alias or a subquery.
type Alias struct {
	name    string
	elem    Node // *Table, *Alias or Selectable
	columns []*Column
	cmap    map[string]*Column
}

func newAlias(elem Node, name string) *Alias {
	a := &Alias{name: name, elem: elem, cmap: make(map[string]*Column)}
	switch e := elem.(type) {
	case FromClause:
		for _, c := range e.Columns() {
			a.addColumn(c.proxy(a))
		}
	case Selectable:
		for _, rc := range e.ResultColumns() {
			c := &Column{name: rc.Name, typ: types.Of(rc.Expr.Type()), table: a, nullable: true}
			if src, ok := rc.Expr.(*Column); ok {
				c.nullable, c.primaryKey = src.nullable, src.primaryKey
			}
			a.addColumn(c)
		}
	}
	return a
}

func (a *Alias) addColumn(c *Column) {
	a.columns = append(a.columns, c)
	a.cmap[c.name] = c
}

func (*Alias) Kind() Kind { return KindAlias }
func (*Alias) fromNode()  {}

func (a *Alias) writeKey(kb *KeyBuilder) {
	kb.kind(KindAlias)
	kb.str(a.name)
	kb.node(a.elem)
}

// Name returns the alias name. An empty name is anonymous; the compiler
// assigns anon_<n>.
func (a *Alias) Name() string { return a.name }

// Element returns the aliased table or statement.
func (a *Alias) Element() Node { return a.elem }

// Columns returns the proxied columns.
func (a *Alias) Columns() []*Column { return a.columns }

// C returns the proxied column with the given name, or nil.
func (a *Alias) C(name string) *Column { return a.cmap[name] }

// Join combines two FROM elements.
type Join struct {
	left, right FromClause
	on          Expr
	outer       bool
	full        bool
}

// NewJoin joins left to right. When on is nil the condition is inferred
// from the foreign keys between the two sides.
func NewJoin(left, right FromClause, on Expr, outer bool) (*Join, error) {
	if on == nil {
		var err error
		if on, err = inferJoinCondition(left, right); err != nil {
			return nil, err
		}
	}
	if !types.IsBoolean(on.Type()) {
		return nil, &sqlerr.TypeMismatchError{Op: "join", Expected: "boolean expression", Got: describe(on)}
	}
	return &Join{left: left, right: right, on: on, outer: outer}, nil
}

// FullOuter returns a copy rendered as FULL OUTER JOIN.
func (j *Join) FullOuter() *Join {
	cp := *j
	cp.outer, cp.full = true, true
	return &cp
}

func (*Join) Kind() Kind { return KindJoin }
func (*Join) fromNode()  {}

func (j *Join) writeKey(kb *KeyBuilder) {
	kb.kind(KindJoin)
	kb.bool(j.outer)
	kb.bool(j.full)
	kb.node(j.left)
	kb.node(j.right)
	kb.node(j.on)
}

// Left returns the left side.
func (j *Join) Left() FromClause { return j.left }

// Right returns the right side.
func (j *Join) Right() FromClause { return j.right }

// On returns the join condition.
func (j *Join) On() Expr { return j.on }

// IsOuter reports a LEFT (or FULL) OUTER JOIN.
func (j *Join) IsOuter() bool { return j.outer }

// IsFull reports a FULL OUTER JOIN.
func (j *Join) IsFull() bool { return j.full }

// Columns returns the columns of both sides.
func (j *Join) Columns() []*Column {
	return append(append([]*Column{}, j.left.Columns()...), j.right.Columns()...)
}

// C returns the first column with the given name on either side.
func (j *Join) C(name string) *Column {
	if c := j.left.C(name); c != nil {
		return c
	}
	return j.right.C(name)
}

// baseTable returns the schema table behind a FROM element.
func baseTable(f FromClause) *Table {
	switch x := f.(type) {
	case *Table:
		return x
	case *Alias:
		if t, ok := x.elem.(*Table); ok {
			return t
		}
		if inner, ok := x.elem.(FromClause); ok {
			return baseTable(inner)
		}
	}
	return nil
}

// leaves flattens a FROM element into its non-join members.
func leaves(f FromClause) []FromClause {
	if j, ok := f.(*Join); ok {
		return append(leaves(j.left), leaves(j.right)...)
	}
	return []FromClause{f}
}

func inferJoinCondition(left, right FromClause) (Expr, error) {
	rt := baseTable(right)
	if rt == nil {
		return nil, &sqlerr.ArgumentError{Op: "join", Message: "cannot infer ON clause for a subquery; pass one explicitly"}
	}
	var found []Expr
	for _, l := range leaves(left) {
		lt := baseTable(l)
		if lt == nil {
			continue
		}
		found = append(found, fkCriteria(l, lt, right, rt)...)
		found = append(found, fkCriteria(right, rt, l, lt)...)
		if len(found) > 0 {
			break
		}
	}
	switch len(found) {
	case 0:
		return nil, &sqlerr.ArgumentError{Op: "join", Message: fmt.Sprintf("no foreign key relationship to %s", rt.FullName())}
	case 1:
		return found[0], nil
	default:
		return nil, &sqlerr.ArgumentError{Op: "join", Message: fmt.Sprintf("more than one foreign key relationship to %s; pass an ON clause", rt.FullName())}
	}
}

// fkCriteria returns one predicate per foreign key from child to parent.
func fkCriteria(childFrom FromClause, child *Table, parentFrom FromClause, parent *Table) []Expr {
	var out []Expr
	for _, fk := range child.foreignKeys {
		if fk.ReferredTable() != parent {
			continue
		}
		refs := fk.ReferredColumns()
		var preds []Expr
		for i, c := range fk.columns {
			if i >= len(refs) {
				break
			}
			preds = append(preds, Eq(parentFrom.C(refs[i].name), childFrom.C(c.name)))
		}
		out = append(out, And(preds...))
	}
	return out
}

// Limit carries LIMIT and OFFSET as bind parameters.
type Limit struct {
	count  *BindParameter
	offset *BindParameter
}

func (*Limit) Kind() Kind { return KindLimit }

func (l *Limit) writeKey(kb *KeyBuilder) {
	kb.kind(KindLimit)
	kb.bool(l.count != nil)
	if l.count != nil {
		l.count.writeKey(kb)
	}
	kb.bool(l.offset != nil)
	if l.offset != nil {
		l.offset.writeKey(kb)
	}
}

// Count returns the LIMIT bind, or nil.
func (l *Limit) Count() *BindParameter { return l.count }

// Offset returns the OFFSET bind, or nil.
func (l *Limit) Offset() *BindParameter { return l.offset }

func (l *Limit) withCount(n int) *Limit {
	cp := Limit{}
	if l != nil {
		cp = *l
	}
	cp.count = anonBind("param", n, types.Integer{})
	return &cp
}

func (l *Limit) withOffset(n int) *Limit {
	cp := Limit{}
	if l != nil {
		cp = *l
	}
	cp.offset = anonBind("param", n, types.Integer{})
	return &cp
}
