package duckdb

import (
	"github.com/leapstack-labs/sqlforge/pkg/core"
	"github.com/leapstack-labs/sqlforge/pkg/dialect"
)

func init() {
	dialect.Register(DuckDB)
}

// DuckDB is the DuckDB dialect.
var DuckDB = dialect.New(Config).
	Override(core.KindCast, dialect.CastOperator).
	FunctionOverride("now", dialect.KeywordFunction("current_timestamp")).
	Build()
