// Package ansi provides the base ANSI SQL dialect. It is the default
// dialect and the rendering every other dialect overrides.
package ansi

import "github.com/leapstack-labs/sqlforge/pkg/dialect"

// Config is the ANSI dialect configuration.
// This is pure data. The Builder reads feature flags and wires the rest.
var Config = &dialect.Config{
	Name:                "ansi",
	ParamStyle:          dialect.ParamNamed,
	MaxIdentifierLength: 128,
	Identifiers:         dialect.DoubleQuoted,
	Features: dialect.Features{
		MultiRowInsert:  true,
		NativeBoolean:   true,
		NullsOrdering:   true,
		IntersectExcept: true,
		DefaultValues:   true,
		FullOuterJoin:   true,
		FetchFirst:      true,
	},
	ReservedWords: dialect.ANSIReservedWords,
	TypeNames:     dialect.ANSITypeNames,
}
