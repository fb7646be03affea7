// Package mysql provides the MySQL SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package mysql

import (
	"github.com/leapstack-labs/sqlforge/pkg/dialect"
	"github.com/leapstack-labs/sqlforge/pkg/types"
)

// Config is the MySQL dialect configuration.
// This is pure data. The Builder reads feature flags and wires the rest.
var Config = &dialect.Config{
	Name:                "mysql",
	DriverName:          "mysql",
	ParamStyle:          dialect.ParamFormat,
	MaxIdentifierLength: 64,
	Identifiers:         dialect.Backticked,
	Features: dialect.Features{
		MultiRowInsert: true,
		// MySQL does NOT support these:
		// - RETURNING
		// - INTERSECT / EXCEPT before 8.0.31
		// - NULLS FIRST / NULLS LAST
		// - FULL OUTER JOIN
	},
	ReservedWords: dialect.Words(dialect.ANSIReservedWords, []string{
		"key", "keys", "index", "interval", "rank", "range", "read", "release",
		"rename", "require", "schema", "separator", "show", "status", "unsigned",
		"usage", "year_month", "zerofill",
	}),
	TypeNames: dialect.TypeNames(map[types.Affinity]string{
		types.AffinityBoolean:  "BOOL",
		types.AffinityDateTime: "DATETIME",
		types.AffinityFloat:    "DOUBLE",
		types.AffinityNumeric:  "DECIMAL",
		types.AffinityBinary:   "LONGBLOB",
	}),
}

// noLimit is the largest LIMIT MySQL accepts; it stands in for "no
// limit" when only OFFSET is given.
const noLimit = "18446744073709551615"
