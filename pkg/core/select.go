package core

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqlforge/pkg/sqlerr"
	"github.com/leapstack-labs/sqlforge/pkg/types"
)

// CorrelateMode controls how a nested SELECT treats FROM entries that also
// appear in an enclosing SELECT.
type CorrelateMode int

// Correlation modes.
const (
	// CorrelateAuto omits every FROM entry found in an enclosing SELECT.
	CorrelateAuto CorrelateMode = iota
	// CorrelateNone never omits FROM entries.
	CorrelateNone
	// CorrelateExplicit omits only the entries passed to Correlate.
	CorrelateExplicit
)

// LabelStyle controls how result columns are named.
type LabelStyle int

// Label styles.
const (
	// LabelDisambiguate keeps natural column names and suffixes repeats
	// (x, x_1). Unnamed expressions get anonymous labels.
	LabelDisambiguate LabelStyle = iota
	// LabelTablePlusColumn names columns <table>_<column>; a collision
	// falls back to an anonymous label.
	LabelTablePlusColumn
	// LabelNone renders the column clause as written.
	LabelNone
)

// SelectStmt is a SELECT statement. Build it with Select.
type SelectStmt struct {
	columns     []Expr
	froms       []FromClause
	where       Expr
	having      Expr
	groupBy     []Expr
	orderBy     []Expr
	limit       *Limit
	distinct    bool
	correlate   CorrelateMode
	correlateTo []FromClause
	labelStyle  LabelStyle
	err         error
}

// Select starts a SELECT over the given columns. Arguments may be
// expressions, FROM elements (which contribute all of their columns) or
// other statements (used as scalar subqueries).
func Select(cols ...any) *SelectStmt {
	return (&SelectStmt{}).Columns(cols...)
}

func (s *SelectStmt) clone() *SelectStmt {
	cp := *s
	return &cp
}

func (s *SelectStmt) fail(err error) *SelectStmt {
	cp := s.clone()
	if cp.err == nil {
		cp.err = err
	}
	return cp
}

// grow appends without ever writing into a slice shared with another node.
func grow[T any](dst []T, more ...T) []T {
	out := make([]T, 0, len(dst)+len(more))
	return append(append(out, dst...), more...)
}

// Columns appends to the column clause.
func (s *SelectStmt) Columns(cols ...any) *SelectStmt {
	var add []Expr
	for _, c := range cols {
		switch x := c.(type) {
		case Expr:
			add = append(add, x)
		case FromClause:
			for _, col := range x.Columns() {
				add = append(add, col)
			}
		case Selectable:
			add = append(add, &ScalarSubquery{sel: x})
		default:
			return s.fail(&sqlerr.TypeMismatchError{Op: "select", Expected: "column expression or table", Got: describe(c)})
		}
	}
	cp := s.clone()
	cp.columns = grow(s.columns, add...)
	return cp
}

// From adds explicit FROM entries. Entries are otherwise derived from the
// columns and criteria.
func (s *SelectStmt) From(froms ...any) *SelectStmt {
	add := make([]FromClause, 0, len(froms))
	for _, f := range froms {
		fc, ok := f.(FromClause)
		if !ok {
			return s.fail(&sqlerr.TypeMismatchError{Op: "from", Expected: "table, alias or join", Got: describe(f)})
		}
		add = append(add, fc)
	}
	cp := s.clone()
	cp.froms = grow(s.froms, add...)
	return cp
}

func checkPredicate(op string, criteria []any) (Expr, error) {
	preds := make([]Expr, 0, len(criteria))
	for _, c := range criteria {
		e, ok := c.(Expr)
		if !ok || !types.IsBoolean(e.Type()) {
			return nil, &sqlerr.TypeMismatchError{Op: op, Expected: "boolean expression", Got: describe(c)}
		}
		preds = append(preds, e)
	}
	if len(preds) == 0 {
		return nil, nil
	}
	return And(preds...), nil
}

// Where adds criteria, joined with AND to existing criteria. Every
// argument must be a boolean expression; anything else is recorded as a
// *sqlerr.TypeMismatchError surfaced by Err and by compilation.
func (s *SelectStmt) Where(criteria ...any) *SelectStmt {
	out, err := s.WhereE(criteria...)
	if err != nil {
		return s.fail(err)
	}
	return out
}

// WhereE is Where returning the error directly.
func (s *SelectStmt) WhereE(criteria ...any) (*SelectStmt, error) {
	pred, err := checkPredicate("where", criteria)
	if err != nil {
		return nil, err
	}
	if pred == nil {
		return s, nil
	}
	cp := s.clone()
	cp.where = And(s.where, pred)
	return cp, nil
}

// Having adds HAVING criteria.
func (s *SelectStmt) Having(criteria ...any) *SelectStmt {
	pred, err := checkPredicate("having", criteria)
	if err != nil {
		return s.fail(err)
	}
	if pred == nil {
		return s
	}
	cp := s.clone()
	cp.having = And(s.having, pred)
	return cp
}

// GroupBy appends GROUP BY expressions.
func (s *SelectStmt) GroupBy(exprs ...Expr) *SelectStmt {
	cp := s.clone()
	cp.groupBy = grow(s.groupBy, exprs...)
	return cp
}

// OrderBy appends ORDER BY expressions; wrap with Asc/Desc as needed.
func (s *SelectStmt) OrderBy(exprs ...Expr) *SelectStmt {
	cp := s.clone()
	cp.orderBy = grow(s.orderBy, exprs...)
	return cp
}

// Limit sets LIMIT. The count is bound, not inlined.
func (s *SelectStmt) Limit(n int) *SelectStmt {
	cp := s.clone()
	cp.limit = s.limit.withCount(n)
	return cp
}

// Offset sets OFFSET. The offset is bound, not inlined.
func (s *SelectStmt) Offset(n int) *SelectStmt {
	cp := s.clone()
	cp.limit = s.limit.withOffset(n)
	return cp
}

// Distinct renders SELECT DISTINCT.
func (s *SelectStmt) Distinct() *SelectStmt {
	cp := s.clone()
	cp.distinct = true
	return cp
}

// Correlate restricts auto-correlation to the given FROM elements.
func (s *SelectStmt) Correlate(froms ...FromClause) *SelectStmt {
	cp := s.clone()
	cp.correlate = CorrelateExplicit
	cp.correlateTo = grow(s.correlateTo, froms...)
	return cp
}

// CorrelateNone disables correlation.
func (s *SelectStmt) CorrelateNone() *SelectStmt {
	cp := s.clone()
	cp.correlate = CorrelateNone
	cp.correlateTo = nil
	return cp
}

// ApplyLabels names every column <table>_<column>.
func (s *SelectStmt) ApplyLabels() *SelectStmt { return s.WithLabelStyle(LabelTablePlusColumn) }

// WithLabelStyle sets the result column naming style.
func (s *SelectStmt) WithLabelStyle(style LabelStyle) *SelectStmt {
	cp := s.clone()
	cp.labelStyle = style
	return cp
}

// Join joins right onto the leftmost FROM entry. Without an ON clause the
// condition is inferred from foreign keys.
func (s *SelectStmt) Join(right FromClause, on ...Expr) *SelectStmt {
	return s.join(right, on, false)
}

// OuterJoin is Join rendered as LEFT OUTER JOIN.
func (s *SelectStmt) OuterJoin(right FromClause, on ...Expr) *SelectStmt {
	return s.join(right, on, true)
}

func (s *SelectStmt) join(right FromClause, on []Expr, outer bool) *SelectStmt {
	froms := s.Froms()
	if len(froms) == 0 {
		return s.fail(&sqlerr.ArgumentError{Op: "join", Message: "no FROM entry to join from"})
	}
	var cond Expr
	if len(on) > 0 {
		cond = And(on...)
	}
	j, err := NewJoin(froms[0], right, cond, outer)
	if err != nil {
		return s.fail(err)
	}
	cp := s.clone()
	cp.froms = make([]FromClause, 0, len(s.froms)+1)
	replaced := false
	for _, f := range s.froms {
		if f == froms[0] && !replaced {
			cp.froms = append(cp.froms, j)
			replaced = true
			continue
		}
		cp.froms = append(cp.froms, f)
	}
	if !replaced {
		cp.froms = append([]FromClause{j}, cp.froms...)
	}
	return cp
}

// Subquery wraps the statement as a named FROM element. An empty name is
// rendered as anon_<n>.
func (s *SelectStmt) Subquery(name string) *Alias { return newAlias(s, name) }

// Scalar wraps the statement as a column-valued expression.
func (s *SelectStmt) Scalar() *ScalarSubquery { return &ScalarSubquery{sel: s} }

// Union combines with others using UNION.
func (s *SelectStmt) Union(others ...Selectable) *CompoundSelect {
	return compound(CompoundUnion, s, others)
}

// UnionAll combines with others using UNION ALL.
func (s *SelectStmt) UnionAll(others ...Selectable) *CompoundSelect {
	return compound(CompoundUnionAll, s, others)
}

// Intersect combines with others using INTERSECT.
func (s *SelectStmt) Intersect(others ...Selectable) *CompoundSelect {
	return compound(CompoundIntersect, s, others)
}

// Except combines with others using EXCEPT.
func (s *SelectStmt) Except(others ...Selectable) *CompoundSelect {
	return compound(CompoundExcept, s, others)
}

// Err returns the first error recorded by a builder call.
func (s *SelectStmt) Err() error { return s.err }

func (*SelectStmt) Kind() Kind  { return KindSelect }
func (*SelectStmt) selectNode() {}

func (s *SelectStmt) writeKey(kb *KeyBuilder) {
	kb.kind(KindSelect)
	kb.int(int64(s.labelStyle))
	kb.bool(s.distinct)
	kb.int(int64(s.correlate))
	kb.int(int64(len(s.correlateTo)))
	for _, f := range s.correlateTo {
		kb.node(f)
	}
	kb.exprs(s.columns)
	kb.int(int64(len(s.froms)))
	for _, f := range s.froms {
		kb.node(f)
	}
	kb.node(s.where)
	kb.node(s.having)
	kb.exprs(s.groupBy)
	kb.exprs(s.orderBy)
	if s.limit != nil {
		kb.node(s.limit)
	} else {
		kb.kind(KindInvalid)
	}
}

// ColumnClause returns the column expressions as written.
func (s *SelectStmt) ColumnClause() []Expr { return s.columns }

// WhereClause returns the combined WHERE criteria, or nil.
func (s *SelectStmt) WhereClause() Expr { return s.where }

// HavingClause returns the combined HAVING criteria, or nil.
func (s *SelectStmt) HavingClause() Expr { return s.having }

// GroupByClause returns the GROUP BY expressions.
func (s *SelectStmt) GroupByClause() []Expr { return s.groupBy }

// OrderByClause returns the ORDER BY expressions.
func (s *SelectStmt) OrderByClause() []Expr { return s.orderBy }

// LimitClause returns the LIMIT/OFFSET clause, or nil.
func (s *SelectStmt) LimitClause() *Limit { return s.limit }

// IsDistinct reports SELECT DISTINCT.
func (s *SelectStmt) IsDistinct() bool { return s.distinct }

// LabelStyle returns the result naming style.
func (s *SelectStmt) LabelStyle() LabelStyle { return s.labelStyle }

// Froms returns the FROM entries: explicit entries first, then entries
// derived from the column clause and criteria, de-duplicated and with
// members of a join folded into the join.
func (s *SelectStmt) Froms() []FromClause {
	var out []FromClause
	seen := make(map[FromClause]bool)
	hidden := make(map[FromClause]bool)
	add := func(f FromClause) {
		if f == nil || seen[f] {
			return
		}
		seen[f] = true
		out = append(out, f)
		if j, ok := f.(*Join); ok {
			for _, leaf := range leaves(j) {
				hidden[leaf] = true
			}
		}
	}
	for _, f := range s.froms {
		add(f)
	}
	for _, e := range s.columns {
		for _, f := range exprFroms(e) {
			add(f)
		}
	}
	for _, e := range []Expr{s.where, s.having} {
		for _, f := range exprFroms(e) {
			add(f)
		}
	}
	kept := out[:0:0]
	for _, f := range out {
		if !hidden[f] {
			kept = append(kept, f)
		}
	}
	return kept
}

// CorrelatedFroms returns the FROM entries to render when the statement is
// nested inside SELECTs whose FROM entries are enclosing. If correlation
// would leave no FROM entry at all, nothing is correlated.
func (s *SelectStmt) CorrelatedFroms(enclosing []FromClause) []FromClause {
	froms := s.Froms()
	if len(enclosing) == 0 || s.correlate == CorrelateNone {
		return froms
	}
	outer := make(map[FromClause]bool)
	for _, f := range enclosing {
		outer[f] = true
		for _, leaf := range leaves(f) {
			outer[leaf] = true
		}
	}
	allowed := outer
	if s.correlate == CorrelateExplicit {
		allowed = make(map[FromClause]bool)
		for _, f := range s.correlateTo {
			if outer[f] {
				allowed[f] = true
			}
		}
	}
	kept := make([]FromClause, 0, len(froms))
	for _, f := range froms {
		if !allowed[f] {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 {
		return froms
	}
	return kept
}

// ResultColumns names the column clause according to the label style.
func (s *SelectStmt) ResultColumns() []ResultColumn {
	out := make([]ResultColumn, 0, len(s.columns))
	used := make(map[string]bool)
	anon := 0
	nextAnon := func(base string) string {
		for {
			anon++
			name := fmt.Sprintf("%s_%d", base, anon)
			if !used[name] {
				return name
			}
		}
	}
	for _, e := range s.columns {
		rc := ResultColumn{Expr: e}
		switch x := e.(type) {
		case *Label:
			rc.Name, rc.Labeled = x.name, true
		case *Column:
			rc.Name = x.name
			if s.labelStyle == LabelTablePlusColumn {
				if t := fromName(x.table); t != "" {
					rc.Name, rc.Labeled = t+"_"+x.name, true
				}
			}
		case *Star:
			rc.Name = "*"
		default:
			if s.labelStyle != LabelNone {
				base := "anon"
				if fc, ok := e.(*FunctionCall); ok {
					base = strings.ToLower(fc.name)
				}
				rc.Name, rc.Labeled = nextAnon(base), true
			}
		}
		if s.labelStyle != LabelNone && rc.Name != "*" && used[rc.Name] {
			if s.labelStyle == LabelTablePlusColumn {
				rc.Name = nextAnon("anon")
			} else {
				rc.Name = dedupe(rc.Name, used)
			}
			rc.Labeled = true
		}
		used[rc.Name] = true
		out = append(out, rc)
	}
	return out
}

func dedupe(name string, used map[string]bool) string {
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d", name, i)
		if !used[candidate] {
			return candidate
		}
	}
}

func fromName(f FromClause) string {
	switch x := f.(type) {
	case *Table:
		return x.name
	case *Alias:
		return x.name
	}
	return ""
}

// CompoundOp is a set operator joining SELECTs.
type CompoundOp int

// Set operators.
const (
	CompoundUnion CompoundOp = iota
	CompoundUnionAll
	CompoundIntersect
	CompoundIntersectAll
	CompoundExcept
	CompoundExceptAll
)

var compoundKeywords = [...]string{
	CompoundUnion:        "UNION",
	CompoundUnionAll:     "UNION ALL",
	CompoundIntersect:    "INTERSECT",
	CompoundIntersectAll: "INTERSECT ALL",
	CompoundExcept:       "EXCEPT",
	CompoundExceptAll:    "EXCEPT ALL",
}

func (op CompoundOp) String() string { return compoundKeywords[op] }

// CompoundSelect joins SELECTs with a set operator. Its result columns
// are those of the first statement.
type CompoundSelect struct {
	op      CompoundOp
	selects []Selectable
	orderBy []Expr
	limit   *Limit
	err     error
}

func compound(op CompoundOp, first Selectable, others []Selectable) *CompoundSelect {
	c := &CompoundSelect{op: op, selects: append([]Selectable{first}, others...)}
	for _, sel := range c.selects {
		if err := sel.Err(); err != nil && c.err == nil {
			c.err = err
		}
	}
	width := len(first.ResultColumns())
	for _, sel := range c.selects[1:] {
		if n := len(sel.ResultColumns()); n != width && c.err == nil {
			c.err = &sqlerr.ArgumentError{Op: strings.ToLower(op.String()),
				Message: fmt.Sprintf("all selects must have the same number of columns (%d != %d)", n, width)}
		}
	}
	return c
}

// Union combines selects with UNION.
func Union(first Selectable, others ...Selectable) *CompoundSelect {
	return compound(CompoundUnion, first, others)
}

// UnionAll combines selects with UNION ALL.
func UnionAll(first Selectable, others ...Selectable) *CompoundSelect {
	return compound(CompoundUnionAll, first, others)
}

// Intersect combines selects with INTERSECT.
func Intersect(first Selectable, others ...Selectable) *CompoundSelect {
	return compound(CompoundIntersect, first, others)
}

// Except combines selects with EXCEPT.
func Except(first Selectable, others ...Selectable) *CompoundSelect {
	return compound(CompoundExcept, first, others)
}

// OrderBy orders the combined result.
func (c *CompoundSelect) OrderBy(exprs ...Expr) *CompoundSelect {
	cp := *c
	cp.orderBy = grow(c.orderBy, exprs...)
	return &cp
}

// Limit limits the combined result.
func (c *CompoundSelect) Limit(n int) *CompoundSelect {
	cp := *c
	cp.limit = c.limit.withCount(n)
	return &cp
}

// Offset skips rows of the combined result.
func (c *CompoundSelect) Offset(n int) *CompoundSelect {
	cp := *c
	cp.limit = c.limit.withOffset(n)
	return &cp
}

// Subquery wraps the compound as a named FROM element.
func (c *CompoundSelect) Subquery(name string) *Alias { return newAlias(c, name) }

func (*CompoundSelect) Kind() Kind  { return KindCompoundSelect }
func (*CompoundSelect) selectNode() {}

// Err returns the first error of any member statement.
func (c *CompoundSelect) Err() error { return c.err }

func (c *CompoundSelect) writeKey(kb *KeyBuilder) {
	kb.kind(KindCompoundSelect)
	kb.int(int64(c.op))
	kb.int(int64(len(c.selects)))
	for _, s := range c.selects {
		kb.node(s)
	}
	kb.exprs(c.orderBy)
	if c.limit != nil {
		kb.node(c.limit)
	} else {
		kb.kind(KindInvalid)
	}
}

// Op returns the set operator.
func (c *CompoundSelect) Op() CompoundOp { return c.op }

// Selects returns the member statements.
func (c *CompoundSelect) Selects() []Selectable { return c.selects }

// OrderByClause returns the ORDER BY expressions.
func (c *CompoundSelect) OrderByClause() []Expr { return c.orderBy }

// LimitClause returns the LIMIT/OFFSET clause, or nil.
func (c *CompoundSelect) LimitClause() *Limit { return c.limit }

// ResultColumns returns the first statement's result columns.
func (c *CompoundSelect) ResultColumns() []ResultColumn {
	return c.selects[0].ResultColumns()
}
