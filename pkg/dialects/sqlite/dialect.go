package sqlite

import (
	"github.com/leapstack-labs/sqlforge/pkg/core"
	"github.com/leapstack-labs/sqlforge/pkg/dialect"
	"github.com/leapstack-labs/sqlforge/pkg/types"
)

func init() {
	dialect.Register(SQLite)
}

// SQLite is the SQLite dialect. Booleans are stored as integers and
// timestamps as text; OFFSET without LIMIT renders LIMIT -1.
var SQLite = dialect.New(Config).
	Override(core.KindTrue, dialect.BooleanAsInteger).
	Override(core.KindFalse, dialect.BooleanAsInteger).
	Override(core.KindLimit, dialect.LimitSentinel("-1")).
	FunctionOverride("now", dialect.KeywordFunction("CURRENT_TIMESTAMP")).
	TypeAdapter(types.AffinityBoolean, dialect.IntegerBooleans).
	TypeAdapter(types.AffinityDateTime, dialect.TextTimestamps(timestampLayout)).
	Build()
