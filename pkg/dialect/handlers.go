// This file contains stateless rendering handlers that form the toolbox of
// reusable overrides. Concrete dialects install them with Override,
// FunctionOverride and OperatorOverride.

package dialect

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqlforge/pkg/core"
	"github.com/leapstack-labs/sqlforge/pkg/operator"
	"github.com/leapstack-labs/sqlforge/pkg/types"
)

// ---------- Operator overrides ----------

// ConcatFunction renders a chain of || operators as CONCAT(a, b, ...).
func ConcatFunction(r Renderer, n core.Node) error {
	b, ok := n.(*core.BinaryOp)
	if !ok {
		return r.RenderDefault(n)
	}
	r.Write("CONCAT(")
	if err := r.RenderList(flattenConcat(b, nil), ", "); err != nil {
		return err
	}
	r.Write(")")
	return nil
}

func flattenConcat(e core.Expr, out []core.Expr) []core.Expr {
	if b, ok := e.(*core.BinaryOp); ok && b.Op() == operator.Concat {
		out = flattenConcat(b.Left(), out)
		return flattenConcat(b.Right(), out)
	}
	return append(out, e)
}

// ILikeFallback renders a ILIKE b as lower(a) LIKE lower(b).
func ILikeFallback(r Renderer, n core.Node) error {
	b, ok := n.(*core.BinaryOp)
	if !ok {
		return r.RenderDefault(n)
	}
	r.Write("lower(")
	if err := r.Render(b.Left()); err != nil {
		return err
	}
	if b.Op() == NotILike() {
		r.Write(") NOT LIKE lower(")
	} else {
		r.Write(") LIKE lower(")
	}
	if err := r.Render(b.Right()); err != nil {
		return err
	}
	r.Write(")")
	return nil
}

// ---------- Node overrides ----------

// CastOperator renders CAST(x AS t) as x::t. Compound operands are
// parenthesized.
func CastOperator(r Renderer, n core.Node) error {
	c, ok := n.(*core.Cast)
	if !ok {
		return r.RenderDefault(n)
	}
	simple := false
	switch c.Element().(type) {
	case *core.Column, *core.Literal, *core.BindParameter, *core.FunctionCall, *core.Grouping:
		simple = true
	}
	if !simple {
		r.Write("(")
	}
	if err := r.Render(c.Element()); err != nil {
		return err
	}
	if !simple {
		r.Write(")")
	}
	r.Write("::" + types.Render(c.Type(), r.Dialect()))
	return nil
}

// LimitSentinel returns a LIMIT handler for dialects that cannot express
// OFFSET without LIMIT. sentinel is rendered as the count in that case.
func LimitSentinel(sentinel string) Handler {
	return func(r Renderer, n core.Node) error {
		l, ok := n.(*core.Limit)
		if !ok || l.Count() != nil || l.Offset() == nil {
			return r.RenderDefault(n)
		}
		r.Write(" LIMIT " + sentinel + " OFFSET ")
		return r.Render(l.Offset())
	}
}

// BooleanAsInteger renders TRUE and FALSE as 1 and 0.
func BooleanAsInteger(r Renderer, n core.Node) error {
	switch n.Kind() {
	case core.KindTrue:
		r.Write("1")
	case core.KindFalse:
		r.Write("0")
	default:
		return r.RenderDefault(n)
	}
	return nil
}

// ---------- Function overrides ----------

// RenameFunction renders a call under a different function name.
func RenameFunction(name string) Handler {
	return func(r Renderer, n core.Node) error {
		fc, ok := n.(*core.FunctionCall)
		if !ok {
			return r.RenderDefault(n)
		}
		r.Write(name + "(")
		if err := r.RenderList(fc.Args(), ", "); err != nil {
			return err
		}
		r.Write(")")
		return nil
	}
}

// KeywordFunction renders a zero-argument call as a bare keyword, e.g.
// now() as CURRENT_TIMESTAMP.
func KeywordFunction(keyword string) Handler {
	return func(r Renderer, n core.Node) error {
		fc, ok := n.(*core.FunctionCall)
		if !ok {
			return r.RenderDefault(n)
		}
		if len(fc.Args()) > 0 {
			return fmt.Errorf("%s takes no arguments, got %d", strings.ToLower(fc.Name()), len(fc.Args()))
		}
		r.Write(keyword)
		return nil
	}
}
