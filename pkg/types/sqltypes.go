package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
	"unicode/utf8"
)

// ---------- Integer types ----------

// Integer is a 32/64-bit integer column.
type Integer struct{}

// BigInteger is a 64-bit integer column.
type BigInteger struct{}

// SmallInteger is a 16-bit integer column.
type SmallInteger struct{}

func (Integer) Name() string       { return "Integer" }
func (Integer) Affinity() Affinity { return AffinityInteger }
func (Integer) Hashable() bool     { return true }
func (t Integer) BindTransform(v any) (any, error) {
	return toInt64(t, v, math.MinInt64, math.MaxInt64)
}
func (t Integer) ResultTransform(v any) (any, error) { return resultInt64(t, v) }
func (Integer) Render(n Namer) string                { return baseName(n, AffinityInteger, "INTEGER") }

func (BigInteger) Name() string       { return "BigInteger" }
func (BigInteger) Affinity() Affinity { return AffinityInteger }
func (BigInteger) Hashable() bool     { return true }
func (t BigInteger) BindTransform(v any) (any, error) {
	return toInt64(t, v, math.MinInt64, math.MaxInt64)
}
func (t BigInteger) ResultTransform(v any) (any, error) { return resultInt64(t, v) }
func (BigInteger) Render(_ Namer) string                { return "BIGINT" }

func (SmallInteger) Name() string       { return "SmallInteger" }
func (SmallInteger) Affinity() Affinity { return AffinityInteger }
func (SmallInteger) Hashable() bool     { return true }
func (t SmallInteger) BindTransform(v any) (any, error) {
	return toInt64(t, v, math.MinInt16, math.MaxInt16)
}
func (t SmallInteger) ResultTransform(v any) (any, error) { return resultInt64(t, v) }
func (SmallInteger) Render(_ Namer) string                { return "SMALLINT" }

func toInt64(t Type, v any, lo, hi int64) (any, error) {
	var n int64
	switch x := v.(type) {
	case nil:
		return nil, nil
	case int:
		n = int64(x)
	case int8:
		n = int64(x)
	case int16:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	case uint8:
		n = int64(x)
	case uint16:
		n = int64(x)
	case uint32:
		n = int64(x)
	case uint:
		if uint64(x) > math.MaxInt64 {
			return nil, coercionError(t, v, "value overflows int64")
		}
		n = int64(x)
	case uint64:
		if x > math.MaxInt64 {
			return nil, coercionError(t, v, "value overflows int64")
		}
		n = int64(x)
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) || math.IsNaN(x) {
			return nil, coercionError(t, v, "value is not integral")
		}
		n = int64(x)
	case float32:
		f := float64(x)
		if f != math.Trunc(f) {
			return nil, coercionError(t, v, "value is not integral")
		}
		n = int64(f)
	default:
		return nil, coercionError(t, v, "unsupported Go type")
	}
	if n < lo || n > hi {
		return nil, coercionError(t, v, "value out of range")
	}
	return n, nil
}

func resultInt64(t Type, v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case []byte:
		return parseInt(t, string(x))
	case string:
		return parseInt(t, x)
	}
	return nil, coercionError(t, v, "unexpected driver value")
}

func parseInt(t Type, s string) (any, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, coercionError(t, s, err.Error())
	}
	return n, nil
}

// ---------- Numeric types ----------

// Numeric is a fixed precision decimal column. Values travel as float64
// unless AsString is set, in which case they travel as decimal strings.
type Numeric struct {
	Precision int
	Scale     int
	AsString  bool
}

// Float is a floating point column.
type Float struct{}

func (t Numeric) Name() string {
	if t.Precision > 0 {
		return fmt.Sprintf("Numeric(%d,%d)", t.Precision, t.Scale)
	}
	return "Numeric"
}
func (Numeric) Affinity() Affinity { return AffinityNumeric }
func (Numeric) Hashable() bool     { return true }
func (t Numeric) BindTransform(v any) (any, error) {
	if s, ok := v.(string); ok {
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return nil, coercionError(t, v, "not a decimal string")
		}
		if t.AsString {
			return s, nil
		}
	}
	f, err := toFloat64(t, v)
	if err != nil || f == nil || !t.AsString {
		return f, err
	}
	return strconv.FormatFloat(f.(float64), 'f', -1, 64), nil
}
func (t Numeric) ResultTransform(v any) (any, error) {
	f, err := resultFloat64(t, v)
	if err != nil || f == nil || !t.AsString {
		return f, err
	}
	return strconv.FormatFloat(f.(float64), 'f', -1, 64), nil
}
func (t Numeric) Render(n Namer) string {
	base := baseName(n, AffinityNumeric, "NUMERIC")
	if t.Precision > 0 {
		return fmt.Sprintf("%s(%d, %d)", base, t.Precision, t.Scale)
	}
	return base
}

func (Float) Name() string                         { return "Float" }
func (Float) Affinity() Affinity                   { return AffinityFloat }
func (Float) Hashable() bool                       { return true }
func (t Float) BindTransform(v any) (any, error)   { return toFloat64(t, v) }
func (t Float) ResultTransform(v any) (any, error) { return resultFloat64(t, v) }
func (Float) Render(n Namer) string                { return baseName(n, AffinityFloat, "FLOAT") }

func toFloat64(t Type, v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return nil, coercionError(t, v, "not a number")
		}
		return f, nil
	}
	return nil, coercionError(t, v, "unsupported Go type")
}

func resultFloat64(t Type, v any) (any, error) {
	switch x := v.(type) {
	case []byte:
		return toFloat64(t, string(x))
	default:
		return toFloat64(t, v)
	}
}

// ---------- String types ----------

// String is a VARCHAR column. A zero Length means unbounded.
type String struct {
	Length int
}

// Text is an unbounded character column.
type Text struct{}

func (t String) Name() string {
	if t.Length > 0 {
		return fmt.Sprintf("String(%d)", t.Length)
	}
	return "String"
}
func (String) Affinity() Affinity { return AffinityString }
func (String) Hashable() bool     { return true }
func (t String) BindTransform(v any) (any, error) {
	s, err := toString(t, v)
	if err != nil || s == nil {
		return s, err
	}
	if t.Length > 0 && utf8.RuneCountInString(s.(string)) > t.Length {
		return nil, coercionError(t, v, fmt.Sprintf("value exceeds length %d", t.Length))
	}
	return s, nil
}
func (t String) ResultTransform(v any) (any, error) { return toString(t, v) }
func (t String) Render(n Namer) string {
	base := baseName(n, AffinityString, "VARCHAR")
	if t.Length > 0 {
		return fmt.Sprintf("%s(%d)", base, t.Length)
	}
	return base
}

func (Text) Name() string                         { return "Text" }
func (Text) Affinity() Affinity                   { return AffinityString }
func (Text) Hashable() bool                       { return true }
func (t Text) BindTransform(v any) (any, error)   { return toString(t, v) }
func (t Text) ResultTransform(v any) (any, error) { return toString(t, v) }
func (Text) Render(_ Namer) string                { return "TEXT" }

func toString(t Type, v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case fmt.Stringer:
		return x.String(), nil
	}
	return nil, coercionError(t, v, "unsupported Go type")
}

// ---------- Boolean ----------

// Boolean is a true/false column.
type Boolean struct{}

func (Boolean) Name() string       { return "Boolean" }
func (Boolean) Affinity() Affinity { return AffinityBoolean }
func (Boolean) Hashable() bool     { return true }
func (t Boolean) BindTransform(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return x, nil
	case int:
		return intBool(t, v, int64(x))
	case int64:
		return intBool(t, v, x)
	}
	return nil, coercionError(t, v, "unsupported Go type")
}
func (t Boolean) ResultTransform(v any) (any, error) {
	switch x := v.(type) {
	case []byte:
		return t.ResultTransform(string(x))
	case string:
		switch x {
		case "1", "t", "true", "TRUE":
			return true, nil
		case "0", "f", "false", "FALSE":
			return false, nil
		}
		return nil, coercionError(t, v, "not a boolean string")
	}
	return t.BindTransform(v)
}
func (Boolean) Render(n Namer) string { return baseName(n, AffinityBoolean, "BOOLEAN") }

func intBool(t Type, v any, n int64) (any, error) {
	switch n {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return nil, coercionError(t, v, "integer booleans must be 0 or 1")
}

// ---------- Temporal types ----------

// DateTime is a timestamp column. Without Timezone, values are normalized
// to UTC before binding.
type DateTime struct {
	Timezone bool
}

// Date is a calendar date column.
type Date struct{}

// Interval is a duration column.
type Interval struct{}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t DateTime) Name() string {
	if t.Timezone {
		return "DateTime(tz)"
	}
	return "DateTime"
}
func (DateTime) Affinity() Affinity { return AffinityDateTime }
func (DateTime) Hashable() bool     { return true }
func (t DateTime) BindTransform(v any) (any, error) {
	tm, err := toTime(t, v)
	if err != nil || tm == nil {
		return tm, err
	}
	if !t.Timezone {
		return tm.(time.Time).UTC(), nil
	}
	return tm, nil
}
func (t DateTime) ResultTransform(v any) (any, error) { return toTime(t, v) }
func (t DateTime) Render(n Namer) string {
	base := baseName(n, AffinityDateTime, "TIMESTAMP")
	if t.Timezone && base == "TIMESTAMP" {
		return "TIMESTAMP WITH TIME ZONE"
	}
	return base
}

func (Date) Name() string       { return "Date" }
func (Date) Affinity() Affinity { return AffinityDate }
func (Date) Hashable() bool     { return true }
func (t Date) BindTransform(v any) (any, error) {
	tm, err := toTime(t, v)
	if err != nil || tm == nil {
		return tm, err
	}
	x := tm.(time.Time)
	return time.Date(x.Year(), x.Month(), x.Day(), 0, 0, 0, 0, time.UTC), nil
}
func (t Date) ResultTransform(v any) (any, error) { return t.BindTransform(v) }
func (Date) Render(n Namer) string                { return baseName(n, AffinityDate, "DATE") }

func (Interval) Name() string       { return "Interval" }
func (Interval) Affinity() Affinity { return AffinityInterval }
func (Interval) Hashable() bool     { return true }
func (t Interval) BindTransform(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Duration:
		return x, nil
	case string:
		d, err := time.ParseDuration(x)
		if err != nil {
			return nil, coercionError(t, v, err.Error())
		}
		return d, nil
	}
	return nil, coercionError(t, v, "unsupported Go type")
}
func (t Interval) ResultTransform(v any) (any, error) {
	switch x := v.(type) {
	case int64:
		return time.Duration(x), nil
	case []byte:
		return t.BindTransform(string(x))
	}
	return t.BindTransform(v)
}
func (Interval) Render(n Namer) string { return baseName(n, AffinityInterval, "INTERVAL") }

func toTime(t Type, v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return x, nil
	case []byte:
		return toTime(t, string(x))
	case string:
		for _, layout := range timeLayouts {
			if tm, err := time.Parse(layout, x); err == nil {
				return tm, nil
			}
		}
		return nil, coercionError(t, v, "unrecognized time format")
	}
	return nil, coercionError(t, v, "unsupported Go type")
}

// ---------- Binary / JSON / Null ----------

// LargeBinary is a BLOB column.
type LargeBinary struct{}

func (LargeBinary) Name() string       { return "LargeBinary" }
func (LargeBinary) Affinity() Affinity { return AffinityBinary }

// Hashable is false: []byte values cannot be map keys.
func (LargeBinary) Hashable() bool { return false }
func (t LargeBinary) BindTransform(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	}
	return nil, coercionError(t, v, "unsupported Go type")
}
func (t LargeBinary) ResultTransform(v any) (any, error) { return t.BindTransform(v) }
func (LargeBinary) Render(n Namer) string                { return baseName(n, AffinityBinary, "BLOB") }

// JSON stores arbitrary JSON documents. Values are not hashable.
type JSON struct{}

func (JSON) Name() string       { return "JSON" }
func (JSON) Affinity() Affinity { return AffinityJSON }
func (JSON) Hashable() bool     { return false }
func (t JSON) BindTransform(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, coercionError(t, v, err.Error())
	}
	return string(b), nil
}
func (t JSON) ResultTransform(v any) (any, error) {
	var raw []byte
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		raw = x
	case string:
		raw = []byte(x)
	default:
		return nil, coercionError(t, v, "unexpected driver value")
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, coercionError(t, string(raw), err.Error())
	}
	return out, nil
}
func (JSON) Render(n Namer) string { return baseName(n, AffinityJSON, "JSON") }

// NullType is the type of expressions whose type is unknown. Its
// transforms pass values through unchanged.
type NullType struct{}

func (NullType) Name() string                       { return "NullType" }
func (NullType) Affinity() Affinity                 { return AffinityNull }
func (NullType) Hashable() bool                     { return true }
func (NullType) BindTransform(v any) (any, error)   { return v, nil }
func (NullType) ResultTransform(v any) (any, error) { return v, nil }
func (NullType) Render(_ Namer) string              { return "NULL" }
