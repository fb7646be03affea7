package mysql

import (
	"github.com/leapstack-labs/sqlforge/pkg/core"
	"github.com/leapstack-labs/sqlforge/pkg/dialect"
	"github.com/leapstack-labs/sqlforge/pkg/operator"
	"github.com/leapstack-labs/sqlforge/pkg/types"
)

func init() {
	dialect.Register(MySQL)
}

// MySQL is the MySQL dialect. || is logical OR in MySQL, so concatenation
// renders as CONCAT().
var MySQL = dialect.New(Config).
	OperatorOverride(operator.Concat, dialect.ConcatFunction).
	Override(core.KindLimit, dialect.LimitSentinel(noLimit)).
	Override(core.KindInsert, renderInsert).
	FunctionOverride("length", dialect.RenameFunction("CHAR_LENGTH")).
	TypeAdapter(types.AffinityBoolean, dialect.IntegerBooleans).
	Build()

// renderInsert renders an insert of no values as "() VALUES ()".
func renderInsert(r dialect.Renderer, n core.Node) error {
	ins, ok := n.(*core.InsertStmt)
	if !ok || len(ins.Rows()) > 0 || ins.Query() != nil || len(ins.ReturningClause()) > 0 {
		return r.RenderDefault(n)
	}
	r.Write("INSERT INTO ")
	if err := r.Render(ins.Table()); err != nil {
		return err
	}
	r.Write(" () VALUES ()")
	return nil
}
