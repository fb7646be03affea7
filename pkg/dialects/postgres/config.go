// Package postgres provides the PostgreSQL SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package postgres

import (
	"github.com/leapstack-labs/sqlforge/pkg/dialect"
	"github.com/leapstack-labs/sqlforge/pkg/types"
)

// Config is the PostgreSQL dialect configuration.
// This is pure data. The Builder reads feature flags and wires the rest.
var Config = &dialect.Config{
	Name:                "postgres",
	DriverName:          "pgx",
	DefaultSchema:       "public",
	ParamStyle:          dialect.ParamDollar,
	MaxIdentifierLength: 63,
	Identifiers:         dialect.DoubleQuoted, // Postgres normalizes unquoted to lowercase
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
	TypeNames: dialect.TypeNames(map[types.Affinity]string{
		types.AffinityFloat:  "DOUBLE PRECISION",
		types.AffinityBinary: "BYTEA",
		types.AffinityJSON:   "JSONB",
	}),
}
