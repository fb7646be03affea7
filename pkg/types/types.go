// Package types provides the logical column types used by expression
// nodes.
//
// A Type supplies a bind transform (Go value -> driver value), a result
// transform (driver value -> Go value) and a physical rendering that a
// dialect can override by affinity. Transforms are pure and total on the
// declared domain; anything else fails with *sqlerr.TypeCoercionError.
package types

import (
	"github.com/leapstack-labs/sqlforge/pkg/sqlerr"
)

// Affinity is the broad storage class of a type. Dialects map affinities
// to physical type names and result-type rules are expressed over them.
type Affinity int

// Affinity constants.
const (
	AffinityNull Affinity = iota
	AffinityInteger
	AffinityNumeric
	AffinityFloat
	AffinityString
	AffinityBoolean
	AffinityDateTime
	AffinityDate
	AffinityInterval
	AffinityBinary
	AffinityJSON
)

var affinityNames = map[Affinity]string{
	AffinityNull:     "null",
	AffinityInteger:  "integer",
	AffinityNumeric:  "numeric",
	AffinityFloat:    "float",
	AffinityString:   "string",
	AffinityBoolean:  "boolean",
	AffinityDateTime: "datetime",
	AffinityDate:     "date",
	AffinityInterval: "interval",
	AffinityBinary:   "binary",
	AffinityJSON:     "json",
}

// String returns the lower-case affinity name.
func (a Affinity) String() string {
	if n, ok := affinityNames[a]; ok {
		return n
	}
	return "unknown"
}

// IsNumeric reports whether values of the affinity are numbers.
func (a Affinity) IsNumeric() bool {
	return a == AffinityInteger || a == AffinityNumeric || a == AffinityFloat
}

// Namer resolves the physical base name of an affinity for a dialect.
// Types append their own arguments (length, precision) to that name.
type Namer interface {
	TypeName(a Affinity) (string, bool)
}

// Type is a logical column type.
type Type interface {
	// Name is a stable identifier including type arguments, e.g. "String(50)".
	Name() string
	Affinity() Affinity
	// Hashable reports whether values may be used as map keys, which
	// governs whether the type may appear in de-duplicated result sets.
	Hashable() bool
	BindTransform(v any) (any, error)
	ResultTransform(v any) (any, error)
	// Render returns the physical DDL spelling using the dialect's names.
	Render(n Namer) string
}

// Render renders t using n, falling back to the default ANSI names.
func Render(t Type, n Namer) string {
	if t == nil {
		return "NULL"
	}
	return t.Render(n)
}

func baseName(n Namer, a Affinity, fallback string) string {
	if n != nil {
		if name, ok := n.TypeName(a); ok {
			return name
		}
	}
	return fallback
}

func coercionError(t Type, v any, reason string) error {
	return &sqlerr.TypeCoercionError{Type: t.Name(), Value: v, Reason: reason}
}

// Of returns t, or NullType when t is nil.
func Of(t Type) Type {
	if t == nil {
		return NullType{}
	}
	return t
}

// IsBoolean reports whether t has boolean affinity.
func IsBoolean(t Type) bool {
	return t != nil && t.Affinity() == AffinityBoolean
}
