// Package duckdb provides the DuckDB SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package duckdb

import (
	"github.com/leapstack-labs/sqlforge/pkg/dialect"
	"github.com/leapstack-labs/sqlforge/pkg/types"
)

// Config is the DuckDB dialect configuration.
// This is pure data. The Builder reads feature flags and wires the rest.
var Config = &dialect.Config{
	Name:                "duckdb",
	DriverName:          "duckdb",
	DefaultSchema:       "main",
	ParamStyle:          dialect.ParamQmark,
	MaxIdentifierLength: 255,
	Identifiers: dialect.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: dialect.NormCaseInsensitive,
	},
	Features: dialect.Features{
		Returning:       true,
		MultiRowInsert:  true,
		NativeArray:     true,
		NativeBoolean:   true,
		Sequences:       true,
		NullsOrdering:   true,
		IntersectExcept: true,
		DefaultValues:   true,
		FullOuterJoin:   true,
		Ilike:           true,
		CastOperator:    true,
	},
	ReservedWords: dialect.Words(dialect.ANSIReservedWords, []string{
		"pivot", "unpivot", "qualify", "asof", "positional", "semi", "anti",
		"lambda", "summarize",
	}),
	TypeNames: dialect.TypeNames(map[types.Affinity]string{
		types.AffinityFloat:  "DOUBLE",
		types.AffinityString: "VARCHAR",
	}),
}
