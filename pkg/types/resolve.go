package types

import (
	"time"

	"github.com/leapstack-labs/sqlforge/pkg/operator"
)

// ResultType computes the type of `left op right`.
//
// Boolean operators always yield Boolean and || yields String. For
// arithmetic the rule table below is consulted on affinities; when only one
// side has a known type that side wins, and NullType is returned when
// neither does.
func ResultType(op operator.Op, left, right Type) Type {
	if operator.IsBoolean(op) {
		return Boolean{}
	}
	if op == operator.Concat {
		return String{}
	}

	left, right = Of(left), Of(right)
	la, ra := left.Affinity(), right.Affinity()
	switch {
	case la == AffinityNull && ra == AffinityNull:
		return NullType{}
	case la == AffinityNull:
		return right
	case ra == AffinityNull:
		return left
	}

	if t, ok := arithmeticRule(op, la, ra); ok {
		return t
	}
	return left
}

type ruleKey struct {
	op          operator.Op
	left, right Affinity
}

// temporal arithmetic rules; numeric rules are handled by widening below.
var temporalRules = map[ruleKey]Type{
	{operator.Sub, AffinityDateTime, AffinityDateTime}: Interval{},
	{operator.Add, AffinityDateTime, AffinityInterval}: DateTime{},
	{operator.Sub, AffinityDateTime, AffinityInterval}: DateTime{},
	{operator.Add, AffinityInterval, AffinityDateTime}: DateTime{},
	{operator.Sub, AffinityDate, AffinityDate}:         Integer{},
	{operator.Add, AffinityDate, AffinityInteger}:      Date{},
	{operator.Sub, AffinityDate, AffinityInteger}:      Date{},
	{operator.Add, AffinityInteger, AffinityDate}:      Date{},
	{operator.Add, AffinityDate, AffinityInterval}:     DateTime{},
	{operator.Sub, AffinityDate, AffinityInterval}:     DateTime{},
	{operator.Add, AffinityInterval, AffinityInterval}: Interval{},
	{operator.Sub, AffinityInterval, AffinityInterval}: Interval{},
	{operator.Mul, AffinityInterval, AffinityInteger}:  Interval{},
	{operator.Mul, AffinityInteger, AffinityInterval}:  Interval{},
	{operator.Mul, AffinityInterval, AffinityNumeric}:  Interval{},
	{operator.Div, AffinityInterval, AffinityInteger}:  Interval{},
}

// numeric widening order: Integer < Numeric < Float.
var numericRank = map[Affinity]int{
	AffinityInteger: 1,
	AffinityNumeric: 2,
	AffinityFloat:   3,
}

func arithmeticRule(op operator.Op, la, ra Affinity) (Type, bool) {
	if t, ok := temporalRules[ruleKey{op, la, ra}]; ok {
		return t, true
	}
	if la.IsNumeric() && ra.IsNumeric() {
		switch op {
		case operator.Add, operator.Sub, operator.Mul, operator.Div, operator.Mod:
			rank := numericRank[la]
			if numericRank[ra] > rank {
				rank = numericRank[ra]
			}
			switch rank {
			case 1:
				return Integer{}, true
			case 2:
				return Numeric{}, true
			default:
				return Float{}, true
			}
		}
	}
	return nil, false
}

// Native returns the type naturally associated with a Go value.
func Native(v any) (Type, bool) {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Integer{}, true
	case float32, float64:
		return Float{}, true
	case string:
		return String{}, true
	case bool:
		return Boolean{}, true
	case time.Time:
		return DateTime{}, true
	case time.Duration:
		return Interval{}, true
	case []byte:
		return LargeBinary{}, true
	}
	return nil, false
}

// Coerce resolves the type of a literal compared against an expression of
// type other. A native Go mapping always wins; only values without one
// adopt other's type.
func Coerce(v any, other Type) Type {
	if other != nil && other.Affinity() != AffinityNull {
		// a literal compared to a column keeps the column's transforms when
		// the Go value lines up with the column's affinity, so String(50)
		// length checks still apply to string literals.
		if t, ok := Native(v); ok && compatible(t.Affinity(), other.Affinity()) {
			return other
		}
	}
	if t, ok := Native(v); ok {
		return t
	}
	return Of(other)
}

func compatible(native, declared Affinity) bool {
	switch {
	case native == declared:
		return true
	case native.IsNumeric() && declared.IsNumeric():
		return true
	case native == AffinityDateTime && declared == AffinityDate:
		return true
	case native == AffinityString && declared == AffinityJSON:
		return true
	}
	return false
}
