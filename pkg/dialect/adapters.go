// This file contains type adapters for dialects whose physical storage
// differs from the logical type.

package dialect

import (
	"time"

	"github.com/leapstack-labs/sqlforge/pkg/types"
)

// Stored wraps a type so bound values are converted after the wrapped
// bind transform. Result transforms are inherited unchanged, so the
// wrapped type must accept the stored representation on the way back.
type Stored struct {
	types.Type
	Suffix string
	Store  func(v any) any
}

// Name distinguishes the adapted type from the logical one.
func (s Stored) Name() string { return s.Type.Name() + "@" + s.Suffix }

// BindTransform applies the wrapped transform, then Store.
func (s Stored) BindTransform(v any) (any, error) {
	v, err := s.Type.BindTransform(v)
	if err != nil || v == nil {
		return v, err
	}
	return s.Store(v), nil
}

// IntegerBooleans stores booleans as 0 and 1.
func IntegerBooleans(t types.Type) types.Type {
	return Stored{Type: t, Suffix: "int", Store: func(v any) any {
		if b, ok := v.(bool); ok && b {
			return int64(1)
		} else if ok {
			return int64(0)
		}
		return v
	}}
}

// TextTimestamps returns an adapter storing timestamps as text in layout.
func TextTimestamps(layout string) TypeAdapter {
	return func(t types.Type) types.Type {
		return Stored{Type: t, Suffix: "text", Store: func(v any) any {
			if tm, ok := v.(time.Time); ok {
				return tm.Format(layout)
			}
			return v
		}}
	}
}
