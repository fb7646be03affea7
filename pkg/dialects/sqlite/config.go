// Package sqlite provides the SQLite SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package sqlite

import (
	"github.com/leapstack-labs/sqlforge/pkg/dialect"
	"github.com/leapstack-labs/sqlforge/pkg/types"
)

// Config is the SQLite dialect configuration.
// This is pure data. The Builder reads feature flags and wires the rest.
var Config = &dialect.Config{
	Name:                "sqlite",
	DriverName:          "sqlite",
	DefaultSchema:       "main",
	ParamStyle:          dialect.ParamQmark,
	MaxIdentifierLength: 1024,
	Identifiers:         dialect.DoubleQuoted,
	Features: dialect.Features{
		Returning:       true, // 3.35+
		MultiRowInsert:  true,
		NullsOrdering:   true, // 3.30+
		IntersectExcept: true,
		DefaultValues:   true,
	},
	ReservedWords: dialect.Words(dialect.ANSIReservedWords, []string{
		"abort", "autoincrement", "glob", "index", "isnull", "notnull",
		"pragma", "regexp", "replace", "rowid",
	}),
	TypeNames: dialect.TypeNames(map[types.Affinity]string{
		types.AffinityString:   "TEXT",
		types.AffinityFloat:    "REAL",
		types.AffinityDateTime: "DATETIME",
		types.AffinityJSON:     "TEXT",
	}),
}

// timestampLayout is the text form SQLite's date functions understand.
const timestampLayout = "2006-01-02 15:04:05.999999"
