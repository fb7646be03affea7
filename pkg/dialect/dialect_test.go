package dialect

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlforge/pkg/types"
)

func TestParamStylePlaceholder(t *testing.T) {
	tests := []struct {
		style      ParamStyle
		want       string
		positional bool
	}{
		{ParamNamed, ":user_id", false},
		{ParamQmark, "?", true},
		{ParamNumeric, ":3", true},
		{ParamDollar, "$3", true},
		{ParamFormat, "%s", true},
		{ParamPyformat, "%(user_id)s", false},
	}

	for _, tt := range tests {
		t.Run(tt.style.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.style.Placeholder("user_id", 3))
			assert.Equal(t, tt.positional, tt.style.Positional())

			parsed, ok := ParseParamStyle(tt.style.String())
			require.True(t, ok)
			assert.Equal(t, tt.style, parsed)
		})
	}

	_, ok := ParseParamStyle("bogus")
	assert.False(t, ok)
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		norm NormalizationStrategy
		in   string
		want string
	}{
		{NormLowercase, "UserID", "userid"},
		{NormUppercase, "UserID", "USERID"},
		{NormCaseSensitive, "UserID", "UserID"},
		{NormCaseInsensitive, "UserID", "userid"},
	}

	for _, tt := range tests {
		d := New(&Config{Name: "t", Identifiers: IdentifierConfig{Normalization: tt.norm}}).Build()
		assert.Equal(t, tt.want, d.NormalizeName(tt.in))
	}
}

func TestQuoteIdentifierIfNeeded(t *testing.T) {
	d := New(&Config{Name: "t", Identifiers: DoubleQuoted, ReservedWords: ANSIReservedWords}).Build()

	tests := []struct {
		in   string
		want string
	}{
		{"users", "users"},
		{"user_id", "user_id"},
		{"col$1", "col$1"},
		{"order", `"order"`},
		{"ORDER", `"ORDER"`},
		{"UserID", `"UserID"`},
		{"1st", `"1st"`},
		{"first name", `"first name"`},
		{`we"ird`, `"we""ird"`},
		{"", `""`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, d.QuoteIdentifierIfNeeded(tt.in))
		})
	}
}

func TestBacktickQuoting(t *testing.T) {
	d := New(&Config{Name: "t", Identifiers: Backticked}).Build()

	assert.Equal(t, "`a``b`", d.QuoteIdentifier("a`b"))
	assert.Equal(t, "`Mixed`", d.QuoteIdentifierIfNeeded("Mixed"))
}

func TestCaseSensitiveDoesNotQuoteMixedCase(t *testing.T) {
	d := New(&Config{Name: "t", Identifiers: IdentifierConfig{
		Quote: `"`, QuoteEnd: `"`, Escape: `""`, Normalization: NormCaseSensitive,
	}}).Build()

	assert.False(t, d.RequiresQuotes("UserID"))
}

func TestTypeNames(t *testing.T) {
	d := New(&Config{
		Name:      "t",
		TypeNames: TypeNames(map[types.Affinity]string{types.AffinityBoolean: "BOOL"}),
	}).TypeName(types.AffinityJSON, "JSONB").Build()

	assert.Equal(t, "BOOL", types.Render(types.Boolean{}, d))
	assert.Equal(t, "JSONB", types.Render(types.JSON{}, d))
	assert.Equal(t, "INTEGER", types.Render(types.Integer{}, d))
}

func TestBuildInstallsILikeFallback(t *testing.T) {
	without := New(&Config{Name: "plain"}).Build()
	_, ok := without.OperatorOverride(ILike())
	assert.True(t, ok)
	_, ok = without.OperatorOverride(NotILike())
	assert.True(t, ok)

	with := New(&Config{Name: "native", Features: Features{Ilike: true}}).Build()
	_, ok = with.OperatorOverride(ILike())
	assert.False(t, ok)
}

func TestFunctionOverrideIsCaseInsensitive(t *testing.T) {
	d := New(&Config{Name: "t"}).FunctionOverride("NOW", KeywordFunction("CURRENT_TIMESTAMP")).Build()

	_, ok := d.FunctionOverride("now")
	assert.True(t, ok)
	_, ok = d.FunctionOverride("Now")
	assert.True(t, ok)
	_, ok = d.FunctionOverride("today")
	assert.False(t, ok)
}

func TestRegistry(t *testing.T) {
	d := New(&Config{Name: "Registry_Test"}).Build()
	Register(d)
	t.Cleanup(func() { Deregister("registry_test") })

	got, ok := Get("REGISTRY_TEST")
	require.True(t, ok)
	assert.Same(t, d, got)
	assert.Contains(t, List(), "registry_test")

	var evicted []string
	OnDeregister(func(name string) { evicted = append(evicted, name) })

	Deregister("registry_test")
	_, ok = Get("registry_test")
	assert.False(t, ok)
	assert.NotContains(t, List(), "registry_test")
	assert.Contains(t, evicted, "registry_test")
}

func TestTypeImplCache(t *testing.T) {
	calls := 0
	d := New(&Config{Name: "impl_test"}).
		TypeAdapter(types.AffinityBoolean, func(t types.Type) types.Type {
			calls++
			return types.Decorator{TypeName: "IntBoolean", Impl: t, Bind: func(v any) (any, error) { return v, nil }}
		}).
		Build()
	Register(d)
	t.Cleanup(func() { Deregister("impl_test") })

	first := TypeImpl(d, types.Boolean{})
	second := TypeImpl(d, types.Boolean{})
	assert.Equal(t, "IntBoolean", first.Name())
	assert.Equal(t, first.Name(), second.Name())
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, cachedTypeImpls("impl_test"))

	// Types without an adapter are returned unchanged.
	assert.Equal(t, types.Integer{}, TypeImpl(d, types.Integer{}))

	Deregister("impl_test")
	assert.Zero(t, cachedTypeImpls("impl_test"))
}

func TestTypeImplUnregisteredIsNotCached(t *testing.T) {
	d := New(&Config{Name: "adhoc"}).
		TypeAdapter(types.AffinityString, func(t types.Type) types.Type { return types.Text{} }).
		Build()

	assert.Equal(t, types.Text{}, TypeImpl(d, types.String{Length: 10}))
	assert.Zero(t, cachedTypeImpls("adhoc"))
}

func TestClone(t *testing.T) {
	base := New(&Config{Name: "base", ParamStyle: ParamNamed, ReservedWords: []string{"select"}}).Build()
	variant := Clone(base, "base_qmark").ParamStyle(ParamQmark).WithReservedWords("thing").Build()

	assert.Equal(t, ParamNamed, base.ParamStyle)
	assert.Equal(t, ParamQmark, variant.ParamStyle)
	assert.True(t, variant.IsReservedWord("select"))
	assert.True(t, variant.IsReservedWord("thing"))
	assert.False(t, base.IsReservedWord("thing"))
}

func TestTruncate(t *testing.T) {
	d := New(&Config{Name: "t", MaxIdentifierLength: 16}).Build()

	assert.Equal(t, "short_name", d.Truncate("short_name"))

	long := d.Truncate("a_very_long_label_name")
	assert.Len(t, long, 16)
	assert.Equal(t, "a_very_long_", long[:12])
	assert.Equal(t, long, d.Truncate("a_very_long_label_name"))
	assert.NotEqual(t, long, d.Truncate("a_very_long_label_other"))
}

func TestTruncate_RuneBoundary(t *testing.T) {
	d := New(&Config{Name: "t", MaxIdentifierLength: 16}).Build()

	// The 11 byte cut lands inside the first two-byte é.
	got := d.Truncate("abcdefghijééééé")
	assert.True(t, utf8.ValidString(got), got)
	assert.LessOrEqual(t, len(got), 16)
	assert.Equal(t, "abcdefghij_", got[:11])
}
