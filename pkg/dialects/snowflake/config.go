// Package snowflake provides the Snowflake SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package snowflake

import (
	"github.com/leapstack-labs/sqlforge/pkg/dialect"
	"github.com/leapstack-labs/sqlforge/pkg/types"
)

// Config is the Snowflake SQL dialect configuration.
// This is pure data. The Builder reads feature flags and wires the rest.
var Config = &dialect.Config{
	Name:                "snowflake",
	DefaultSchema:       "PUBLIC",
	ParamStyle:          dialect.ParamQmark,
	MaxIdentifierLength: 255,
	Identifiers: dialect.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: dialect.NormUppercase, // Snowflake normalizes to uppercase
	},
	Features: dialect.Features{
		MultiRowInsert:  true,
		NativeArray:     true,
		NativeBoolean:   true,
		Sequences:       true,
		NullsOrdering:   true,
		IntersectExcept: true,
		FullOuterJoin:   true,
		Ilike:           true,
		CastOperator:    true,
		// Snowflake does NOT support these:
		// - RETURNING
		// - INSERT ... DEFAULT VALUES
	},
	ReservedWords: dialect.Words(dialect.ANSIReservedWords, []string{
		"account", "database", "ilike", "increment", "lateral", "minus",
		"qualify", "regexp", "rlike", "row", "rows", "sample", "trigger",
		"try_cast", "whenever",
	}),
	TypeNames: dialect.TypeNames(map[types.Affinity]string{
		types.AffinityDateTime: "TIMESTAMP_NTZ",
		types.AffinityJSON:     "VARIANT",
		types.AffinityBinary:   "BINARY",
	}),
}
