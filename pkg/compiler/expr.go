package compiler

import (
	"github.com/leapstack-labs/sqlforge/pkg/core"
	"github.com/leapstack-labs/sqlforge/pkg/dialect"
	"github.com/leapstack-labs/sqlforge/pkg/operator"
	"github.com/leapstack-labs/sqlforge/pkg/sqlerr"
	"github.com/leapstack-labs/sqlforge/pkg/types"
)

func renderColumn(r dialect.Renderer, n core.Node) error {
	s := r.(*state)
	c := n.(*core.Column)
	if s.bareColumns {
		s.Write(s.Quote(c.Name()))
		return nil
	}
	if q := s.qualifier(c.Table()); q != "" {
		s.Write(q)
		s.Write(".")
	}
	s.Write(s.Quote(c.Name()))
	return nil
}

// qualifier returns the prefix for columns of f, or "" when columns of f
// render bare.
func (s *state) qualifier(f core.FromClause) string {
	switch x := f.(type) {
	case *core.Table:
		if x == s.dmlTable {
			return ""
		}
		return s.tableName(x)
	case *core.Alias:
		return s.Quote(s.aliasName(x))
	}
	return ""
}

func (s *state) tableName(t *core.Table) string {
	if t.Schema() == "" {
		return s.Quote(t.Name())
	}
	return s.Quote(t.Schema()) + "." + s.Quote(t.Name())
}

func renderLiteral(r dialect.Renderer, n core.Node) error {
	return r.Render(n.(*core.Literal).Bind())
}

func renderBind(r dialect.Renderer, n core.Node) error {
	s := r.(*state)
	s.Write(s.placeholder(n.(*core.BindParameter)))
	return nil
}

func renderConstant(r dialect.Renderer, n core.Node) error {
	switch n.Kind() {
	case core.KindNull:
		r.Write("NULL")
	case core.KindTrue:
		r.Write("TRUE")
	case core.KindFalse:
		r.Write("FALSE")
	}
	return nil
}

// needsParens reports whether e must be parenthesized as an operand of
// parent: when it binds looser, or equally tight on the right side of an
// operator that is not associative with it.
func needsParens(e core.Expr, parent operator.Op, right bool) bool {
	b, ok := e.(*core.BinaryOp)
	if !ok {
		return false
	}
	cp, pp := operator.Precedence(b.Op()), operator.Precedence(parent)
	if cp < pp {
		return true
	}
	return cp == pp && right && !(b.Op() == parent && operator.IsAssociative(parent))
}

func (s *state) renderOperand(e core.Expr, parent operator.Op, right bool) error {
	if !needsParens(e, parent, right) {
		return s.Render(e)
	}
	s.Write("(")
	if err := s.Render(e); err != nil {
		return err
	}
	s.Write(")")
	return nil
}

func isEmptyList(e core.Expr) bool {
	g, ok := e.(*core.Grouping)
	if !ok {
		return false
	}
	cl, ok := g.Element().(*core.ClauseList)
	return ok && len(cl.Items()) == 0
}

func renderBinary(r dialect.Renderer, n core.Node) error {
	s := r.(*state)
	b := n.(*core.BinaryOp)

	// An empty IN list is never true; an empty NOT IN list always is.
	if (b.Op() == operator.In || b.Op() == operator.NotIn) && isEmptyList(b.Right()) {
		if b.Op() == operator.In {
			s.Write("(1 != 1)")
		} else {
			s.Write("(1 = 1)")
		}
		return nil
	}

	if err := s.renderOperand(b.Left(), b.Op(), false); err != nil {
		return err
	}
	s.Write(" " + operator.Symbol(b.Op()) + " ")
	return s.renderOperand(b.Right(), b.Op(), true)
}

func renderUnary(r dialect.Renderer, n core.Node) error {
	s := r.(*state)
	u := n.(*core.UnaryOp)
	op := u.Op()

	if u.IsModifier() {
		if (op == operator.NullsFirst || op == operator.NullsLast) && !s.dialect.Features.NullsOrdering {
			return s.unsupported(operator.Symbol(op)+" ordering", "sort with a CASE expression instead")
		}
		if err := s.Render(u.Operand()); err != nil {
			return err
		}
		s.Write(" " + operator.Symbol(op))
		return nil
	}

	switch op {
	case operator.Neg:
		s.Write("-")
	default:
		s.Write(operator.Symbol(op) + " ")
	}
	operand := u.Operand()
	if b, ok := operand.(*core.BinaryOp); ok && (op == operator.Neg || operator.Precedence(b.Op()) < operator.Precedence(op)) {
		s.Write("(")
		if err := s.Render(operand); err != nil {
			return err
		}
		s.Write(")")
		return nil
	}
	return s.Render(operand)
}

func renderFunction(r dialect.Renderer, n core.Node) error {
	s := r.(*state)
	fc := n.(*core.FunctionCall)
	s.Write(fc.Name())
	s.Write("(")
	if err := s.RenderList(fc.Args(), ", "); err != nil {
		return err
	}
	s.Write(")")
	return nil
}

// renderLabel renders a label outside the column clause: by name in
// ORDER BY, as its element anywhere else.
func renderLabel(r dialect.Renderer, n core.Node) error {
	s := r.(*state)
	l := n.(*core.Label)
	if s.inOrderBy {
		s.Write(s.label(l.Name()))
		return nil
	}
	return s.Render(l.Element())
}

func renderCase(r dialect.Renderer, n core.Node) error {
	s := r.(*state)
	c := n.(*core.Case)
	s.Write("CASE")
	if c.Value() != nil {
		s.Write(" ")
		if err := s.Render(c.Value()); err != nil {
			return err
		}
	}
	for _, w := range c.Whens() {
		s.Write(" WHEN ")
		if err := s.Render(w.Cond); err != nil {
			return err
		}
		s.Write(" THEN ")
		if err := s.Render(w.Result); err != nil {
			return err
		}
	}
	if c.Else() != nil {
		s.Write(" ELSE ")
		if err := s.Render(c.Else()); err != nil {
			return err
		}
	}
	s.Write(" END")
	return nil
}

func renderCast(r dialect.Renderer, n core.Node) error {
	s := r.(*state)
	c := n.(*core.Cast)
	s.Write("CAST(")
	if err := s.Render(c.Element()); err != nil {
		return err
	}
	s.Write(" AS " + types.Render(c.Type(), s.dialect) + ")")
	return nil
}

func renderGrouping(r dialect.Renderer, n core.Node) error {
	s := r.(*state)
	s.Write("(")
	if err := s.Render(n.(*core.Grouping).Element()); err != nil {
		return err
	}
	s.Write(")")
	return nil
}

func renderClauseList(r dialect.Renderer, n core.Node) error {
	l := n.(*core.ClauseList)
	return r.RenderList(l.Items(), l.Separator())
}

// renderScalarSubquery renders a nested SELECT in expression position. It
// correlates against the enclosing FROM entries.
func renderScalarSubquery(r dialect.Renderer, n core.Node) error {
	s := r.(*state)
	sel := n.(*core.ScalarSubquery).Select()
	if err := sel.Err(); err != nil {
		return err
	}
	s.Write("(")
	if err := s.nested(sel, true); err != nil {
		return err
	}
	s.Write(")")
	return nil
}

func renderStar(r dialect.Renderer, n core.Node) error {
	s := r.(*state)
	st := n.(*core.Star)
	if st.Table() != nil {
		if q := s.qualifier(st.Table()); q != "" {
			s.Write(q + ".")
		}
	}
	s.Write("*")
	return nil
}

// nested renders a statement inside another. In expression position the
// statement correlates against the enclosing FROM entries; in FROM
// position it starts a fresh scope.
func (s *state) nested(sel core.Selectable, correlate bool) error {
	savedEnclosing, savedInOrderBy, savedBare, savedDML := s.enclosing, s.inOrderBy, s.bareColumns, s.dmlTable
	if !correlate {
		s.enclosing = nil
	} else if s.dmlTable != nil {
		s.enclosing = append(s.enclosing[:len(s.enclosing):len(s.enclosing)], s.dmlTable)
	}
	s.inOrderBy, s.bareColumns, s.dmlTable = false, false, nil
	s.depth++
	err := s.Render(sel)
	s.depth--
	s.enclosing, s.inOrderBy, s.bareColumns, s.dmlTable = savedEnclosing, savedInOrderBy, savedBare, savedDML
	return err
}

func typeMismatch(op, expected string, got core.Node) error {
	return &sqlerr.TypeMismatchError{Op: op, Expected: expected, Got: got.Kind().String()}
}
