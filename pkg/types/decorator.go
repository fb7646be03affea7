package types

// Decorator wraps an existing type and optionally overrides its
// transforms. The bind override runs before the wrapped type's bind
// transform; the result override runs after the wrapped type's result
// transform. Everything else delegates to Impl.
type Decorator struct {
	// TypeName identifies the decorated type; it must be unique among
	// decorators since dialect type impls are cached by name.
	TypeName string
	Impl     Type
	Bind     func(v any) (any, error)
	Result   func(v any) (any, error)
}

// Name returns the decorator's name.
func (d Decorator) Name() string {
	if d.TypeName != "" {
		return d.TypeName
	}
	return "Decorated(" + Of(d.Impl).Name() + ")"
}

// Affinity delegates to the wrapped type.
func (d Decorator) Affinity() Affinity { return Of(d.Impl).Affinity() }

// Hashable delegates to the wrapped type.
func (d Decorator) Hashable() bool { return Of(d.Impl).Hashable() }

// BindTransform applies the override, then the wrapped transform.
func (d Decorator) BindTransform(v any) (any, error) {
	if d.Bind != nil {
		var err error
		if v, err = d.Bind(v); err != nil {
			return nil, err
		}
	}
	return Of(d.Impl).BindTransform(v)
}

// ResultTransform applies the wrapped transform, then the override.
func (d Decorator) ResultTransform(v any) (any, error) {
	v, err := Of(d.Impl).ResultTransform(v)
	if err != nil || d.Result == nil {
		return v, err
	}
	return d.Result(v)
}

// Render delegates to the wrapped type.
func (d Decorator) Render(n Namer) string { return Of(d.Impl).Render(n) }

// Unwrap returns the innermost non-decorator type.
func Unwrap(t Type) Type {
	for {
		d, ok := t.(Decorator)
		if !ok {
			return t
		}
		t = d.Impl
	}
}
