package compiler

import (
	"github.com/leapstack-labs/sqlforge/pkg/core"
	"github.com/leapstack-labs/sqlforge/pkg/dialect"
	"github.com/leapstack-labs/sqlforge/pkg/sqlerr"
)

func renderSelect(r dialect.Renderer, n core.Node) error {
	s := r.(*state)
	sel := n.(*core.SelectStmt)
	if err := sel.Err(); err != nil {
		return err
	}

	columns := sel.ResultColumns()
	if len(columns) == 0 {
		return &sqlerr.ArgumentError{Op: "select", Message: "no columns to select"}
	}
	froms := sel.CorrelatedFroms(s.enclosing)
	if s.depth == 0 {
		s.results = resultColumns(columns)
	}

	saved := s.enclosing
	s.enclosing = append(saved[:len(saved):len(saved)], froms...)
	defer func() { s.enclosing = saved }()

	s.Write("SELECT ")
	if sel.IsDistinct() {
		s.Write("DISTINCT ")
	}
	if err := s.formatColumns(columns); err != nil {
		return err
	}

	if len(froms) > 0 {
		s.Write(" FROM ")
		if err := s.formatList(len(froms), func(i int) error {
			return s.Render(froms[i])
		}, ", "); err != nil {
			return err
		}
	}

	if where := sel.WhereClause(); where != nil {
		s.Write(" WHERE ")
		if err := s.Render(where); err != nil {
			return err
		}
	}

	if groupBy := sel.GroupByClause(); len(groupBy) > 0 {
		s.Write(" GROUP BY ")
		if err := s.RenderList(groupBy, ", "); err != nil {
			return err
		}
	}

	if having := sel.HavingClause(); having != nil {
		s.Write(" HAVING ")
		if err := s.Render(having); err != nil {
			return err
		}
	}

	if err := s.formatOrderBy(sel.OrderByClause(), false); err != nil {
		return err
	}

	if l := sel.LimitClause(); l != nil {
		return s.Render(l)
	}
	return nil
}

// formatColumns renders a column clause, labelling where the result
// column name differs from what the database would infer.
func (s *state) formatColumns(columns []core.ResultColumn) error {
	return s.formatList(len(columns), func(i int) error {
		rc := columns[i]
		if err := s.Render(rc.Expr); err != nil {
			return err
		}
		if rc.Labeled {
			s.Write(" AS " + s.label(rc.Name))
		}
		return nil
	}, ", ")
}

func (s *state) formatOrderBy(orderBy []core.Expr, bare bool) error {
	if len(orderBy) == 0 {
		return nil
	}
	savedOrder, savedBare := s.inOrderBy, s.bareColumns
	s.inOrderBy, s.bareColumns = true, bare
	defer func() { s.inOrderBy, s.bareColumns = savedOrder, savedBare }()

	s.Write(" ORDER BY ")
	return s.RenderList(orderBy, ", ")
}

func renderCompound(r dialect.Renderer, n core.Node) error {
	s := r.(*state)
	c := n.(*core.CompoundSelect)
	if err := c.Err(); err != nil {
		return err
	}
	switch c.Op() {
	case core.CompoundIntersect, core.CompoundIntersectAll, core.CompoundExcept, core.CompoundExceptAll:
		if !s.dialect.Features.IntersectExcept {
			return s.unsupported(c.Op().String(), "")
		}
	}
	if s.depth == 0 {
		s.results = resultColumns(c.ResultColumns())
	}

	s.depth++
	err := s.formatList(len(c.Selects()), func(i int) error {
		member := c.Selects()[i]
		if !needsCompoundParens(member) {
			return s.Render(member)
		}
		s.Write("(")
		if err := s.Render(member); err != nil {
			return err
		}
		s.Write(")")
		return nil
	}, " "+c.Op().String()+" ")
	s.depth--
	if err != nil {
		return err
	}

	if err := s.formatOrderBy(c.OrderByClause(), true); err != nil {
		return err
	}
	if l := c.LimitClause(); l != nil {
		return s.Render(l)
	}
	return nil
}

func needsCompoundParens(sel core.Selectable) bool {
	switch x := sel.(type) {
	case *core.CompoundSelect:
		return true
	case *core.SelectStmt:
		return len(x.OrderByClause()) > 0 || x.LimitClause() != nil
	}
	return false
}

func renderLimit(r dialect.Renderer, n core.Node) error {
	s := r.(*state)
	l := n.(*core.Limit)
	if s.dialect.Features.FetchFirst {
		if l.Offset() != nil {
			s.Write(" OFFSET ")
			if err := s.Render(l.Offset()); err != nil {
				return err
			}
			s.Write(" ROWS")
		}
		if l.Count() != nil {
			s.Write(" FETCH FIRST ")
			if err := s.Render(l.Count()); err != nil {
				return err
			}
			s.Write(" ROWS ONLY")
		}
		return nil
	}
	if l.Count() != nil {
		s.Write(" LIMIT ")
		if err := s.Render(l.Count()); err != nil {
			return err
		}
	}
	if l.Offset() != nil {
		s.Write(" OFFSET ")
		return s.Render(l.Offset())
	}
	return nil
}

func renderTable(r dialect.Renderer, n core.Node) error {
	s := r.(*state)
	s.Write(s.tableName(n.(*core.Table)))
	return nil
}

func renderAlias(r dialect.Renderer, n core.Node) error {
	s := r.(*state)
	a := n.(*core.Alias)
	name := s.Quote(s.aliasName(a))
	switch el := a.Element().(type) {
	case *core.Table:
		s.Write(s.tableName(el))
	case core.Selectable:
		if err := el.Err(); err != nil {
			return err
		}
		s.Write("(")
		if err := s.nested(el, false); err != nil {
			return err
		}
		s.Write(")")
	default:
		return typeMismatch("alias", "table or select", el)
	}
	s.Write(" AS " + name)
	return nil
}

func renderJoin(r dialect.Renderer, n core.Node) error {
	s := r.(*state)
	j := n.(*core.Join)
	if j.IsFull() && !s.dialect.Features.FullOuterJoin {
		return s.unsupported("FULL OUTER JOIN", "")
	}
	if err := s.Render(j.Left()); err != nil {
		return err
	}
	switch {
	case j.IsFull():
		s.Write(" FULL OUTER JOIN ")
	case j.IsOuter():
		s.Write(" LEFT OUTER JOIN ")
	default:
		s.Write(" JOIN ")
	}
	if _, nestedJoin := j.Right().(*core.Join); nestedJoin {
		s.Write("(")
		if err := s.Render(j.Right()); err != nil {
			return err
		}
		s.Write(")")
	} else if err := s.Render(j.Right()); err != nil {
		return err
	}
	s.Write(" ON ")
	return s.Render(j.On())
}

// ---------- DML ----------

// dml sets the target table for the duration of a DML statement.
func (s *state) dml(t *core.Table) func() {
	saved := s.dmlTable
	s.dmlTable = t
	return func() { s.dmlTable = saved }
}

func (s *state) formatReturning(returning []core.Expr) error {
	if len(returning) == 0 {
		return nil
	}
	if !s.dialect.Features.Returning {
		return s.unsupported("RETURNING", "select the rows after the statement instead")
	}
	columns := returningColumns(returning)
	if s.depth == 0 {
		s.results = resultColumns(columns)
		s.returning = true
	}
	s.Write(" RETURNING ")
	return s.formatColumns(columns)
}

// returningColumns names RETURNING expressions the way a column clause
// would name them.
func returningColumns(exprs []core.Expr) []core.ResultColumn {
	return core.Select(toAny(exprs)...).WithLabelStyle(core.LabelDisambiguate).ResultColumns()
}

func toAny(exprs []core.Expr) []any {
	out := make([]any, len(exprs))
	for i, e := range exprs {
		out[i] = e
	}
	return out
}

func (s *state) columnNames(cols []*core.Column) string {
	var out string
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += s.Quote(c.Name())
	}
	return out
}

func renderInsert(r dialect.Renderer, n core.Node) error {
	s := r.(*state)
	ins := n.(*core.InsertStmt)
	if err := ins.Err(); err != nil {
		return err
	}
	if len(ins.ReturningClause()) > 0 && !s.dialect.Features.Returning {
		return s.unsupported("RETURNING", "select the rows after the statement instead")
	}
	defer s.dml(ins.Table())()

	s.Write("INSERT INTO " + s.tableName(ins.Table()))
	switch rows := ins.Rows(); {
	case ins.Query() != nil:
		s.Write(" (" + s.columnNames(ins.TargetColumns()) + ") ")
		if err := ins.Query().Err(); err != nil {
			return err
		}
		if err := s.nested(ins.Query(), false); err != nil {
			return err
		}
	case len(rows) == 0:
		if !s.dialect.Features.DefaultValues {
			return s.unsupported("INSERT with no values", "")
		}
		s.Write(" DEFAULT VALUES")
	default:
		if len(rows) > 1 && !s.dialect.Features.MultiRowInsert {
			return s.unsupported("multi-row VALUES", "insert the rows with executemany")
		}
		s.Write(" (" + s.columnNames(ins.TargetColumns()) + ") VALUES ")
		if err := s.formatList(len(rows), func(i int) error {
			s.Write("(")
			if err := s.RenderList(rows[i], ", "); err != nil {
				return err
			}
			s.Write(")")
			return nil
		}, ", "); err != nil {
			return err
		}
	}
	return s.formatReturning(ins.ReturningClause())
}

func renderUpdate(r dialect.Renderer, n core.Node) error {
	s := r.(*state)
	up := n.(*core.UpdateStmt)
	if err := up.Err(); err != nil {
		return err
	}
	cols, vals := up.Assignments()
	if len(cols) == 0 {
		return &sqlerr.ArgumentError{Op: "update", Message: "no columns to SET on table " + up.Table().FullName()}
	}
	if len(up.ReturningClause()) > 0 && !s.dialect.Features.Returning {
		return s.unsupported("RETURNING", "select the rows after the statement instead")
	}
	defer s.dml(up.Table())()

	s.Write("UPDATE " + s.tableName(up.Table()) + " SET ")
	if err := s.formatList(len(cols), func(i int) error {
		s.Write(s.Quote(cols[i].Name()) + " = ")
		return s.Render(vals[i])
	}, ", "); err != nil {
		return err
	}
	if where := up.WhereClause(); where != nil {
		s.Write(" WHERE ")
		if err := s.Render(where); err != nil {
			return err
		}
	}
	return s.formatReturning(up.ReturningClause())
}

func renderDelete(r dialect.Renderer, n core.Node) error {
	s := r.(*state)
	del := n.(*core.DeleteStmt)
	if err := del.Err(); err != nil {
		return err
	}
	if len(del.ReturningClause()) > 0 && !s.dialect.Features.Returning {
		return s.unsupported("RETURNING", "select the rows before the statement instead")
	}
	defer s.dml(del.Table())()

	s.Write("DELETE FROM " + s.tableName(del.Table()))
	if where := del.WhereClause(); where != nil {
		s.Write(" WHERE ")
		if err := s.Render(where); err != nil {
			return err
		}
	}
	return s.formatReturning(del.ReturningClause())
}
