// Package dialect provides the dialect descriptor consumed by the compiler.
//
// A Dialect is pure configuration plus a table of rendering overrides keyed
// by node kind. Concrete dialects are built from a Config in
// pkg/dialects/*/ and registered from their init() functions.
package dialect

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/zeebo/xxh3"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/sqlforge/pkg/core"
	"github.com/leapstack-labs/sqlforge/pkg/operator"
	"github.com/leapstack-labs/sqlforge/pkg/types"
)

// ParamStyle selects how bind parameters are rendered.
type ParamStyle int

const (
	// ParamNamed renders :name.
	ParamNamed ParamStyle = iota
	// ParamQmark renders ?.
	ParamQmark
	// ParamNumeric renders :1, :2.
	ParamNumeric
	// ParamDollar renders $1, $2.
	ParamDollar
	// ParamFormat renders %s.
	ParamFormat
	// ParamPyformat renders %(name)s.
	ParamPyformat
)

var paramStyleNames = [...]string{
	ParamNamed:    "named",
	ParamQmark:    "qmark",
	ParamNumeric:  "numeric",
	ParamDollar:   "dollar",
	ParamFormat:   "format",
	ParamPyformat: "pyformat",
}

func (p ParamStyle) String() string {
	if int(p) < len(paramStyleNames) {
		return paramStyleNames[p]
	}
	return "unknown"
}

// Positional reports whether parameters are passed by position.
func (p ParamStyle) Positional() bool {
	switch p {
	case ParamQmark, ParamNumeric, ParamDollar, ParamFormat:
		return true
	}
	return false
}

// Placeholder renders the placeholder for a parameter. index is 1-based
// and only used by numbered styles.
func (p ParamStyle) Placeholder(name string, index int) string {
	switch p {
	case ParamQmark:
		return "?"
	case ParamNumeric:
		return ":" + strconv.Itoa(index)
	case ParamDollar:
		return "$" + strconv.Itoa(index)
	case ParamFormat:
		return "%s"
	case ParamPyformat:
		return "%(" + name + ")s"
	default:
		return ":" + name
	}
}

// ParseParamStyle parses a style name as printed by String.
func ParseParamStyle(s string) (ParamStyle, bool) {
	for i, name := range paramStyleNames {
		if strings.EqualFold(s, name) {
			return ParamStyle(i), true
		}
	}
	return ParamNamed, false
}

// NormalizationStrategy defines how unquoted identifiers are folded by the
// database.
type NormalizationStrategy int

const (
	// NormLowercase folds unquoted identifiers to lowercase.
	NormLowercase NormalizationStrategy = iota
	// NormUppercase folds unquoted identifiers to uppercase.
	NormUppercase
	// NormCaseSensitive preserves identifier case.
	NormCaseSensitive
	// NormCaseInsensitive compares case-insensitively and stores lowercase.
	NormCaseInsensitive
)

// IdentifierConfig defines how identifiers are quoted and normalized.
type IdentifierConfig struct {
	Quote         string // opening quote: ", `, [
	QuoteEnd      string // closing quote
	Escape        string // escaped closing quote: "", ``, ]]
	Normalization NormalizationStrategy
}

// Features lists the optional constructs a dialect supports. The compiler
// rejects a construct whose feature is off.
type Features struct {
	Returning       bool
	MultiRowInsert  bool
	NativeBoolean   bool
	NativeArray     bool
	Sequences       bool
	NullsOrdering   bool
	IntersectExcept bool
	DefaultValues   bool
	FullOuterJoin   bool
	Ilike           bool
	CastOperator    bool
	// FetchFirst renders OFFSET n ROWS FETCH FIRST m ROWS ONLY instead of
	// LIMIT/OFFSET.
	FetchFirst bool
}

// Config is the pure data description of a dialect. The Builder reads its
// feature flags and wires the matching operators when Build is called.
type Config struct {
	Name                string
	DriverName          string // database/sql driver name, if any
	ParamStyle          ParamStyle
	MaxIdentifierLength int
	Identifiers         IdentifierConfig
	DefaultSchema       string
	Features            Features
	ReservedWords       []string
	TypeNames           map[types.Affinity]string
}

// Renderer is the compiler surface available to override handlers.
type Renderer interface {
	Dialect() *Dialect
	// Write appends raw SQL text.
	Write(s string)
	// Render compiles n with full dispatch, overrides included.
	Render(n core.Node) error
	// RenderDefault compiles n with the built-in handler for its kind.
	RenderDefault(n core.Node) error
	// RenderList compiles items joined by sep.
	RenderList(items []core.Expr, sep string) error
	// Quote quotes an identifier if the dialect requires it.
	Quote(ident string) string
}

// Handler renders one node.
type Handler func(r Renderer, n core.Node) error

// TypeAdapter maps a core type to the dialect's implementation of it.
type TypeAdapter func(t types.Type) types.Type

// Dialect is an immutable dialect descriptor.
type Dialect struct {
	Name                string
	DriverName          string
	ParamStyle          ParamStyle
	MaxIdentifierLength int
	Identifiers         IdentifierConfig
	DefaultSchema       string
	Features            Features

	reservedWords map[string]struct{}
	typeNames     map[types.Affinity]string
	overrides     map[core.Kind]Handler
	functions     map[string]Handler
	operators     map[operator.Op]Handler
	typeAdapters  map[types.Affinity]TypeAdapter
}

// NormalizeName folds an identifier the way the database folds unquoted
// identifiers.
func (d *Dialect) NormalizeName(name string) string {
	switch d.Identifiers.Normalization {
	case NormUppercase:
		return cases.Upper(language.Und).String(name)
	case NormLowercase, NormCaseInsensitive:
		return cases.Lower(language.Und).String(name)
	default:
		return name
	}
}

// IsReservedWord reports whether word must be quoted as an identifier.
func (d *Dialect) IsReservedWord(word string) bool {
	_, ok := d.reservedWords[strings.ToLower(word)]
	return ok
}

// QuoteIdentifier quotes name unconditionally.
func (d *Dialect) QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, d.Identifiers.QuoteEnd, d.Identifiers.Escape)
	return d.Identifiers.Quote + escaped + d.Identifiers.QuoteEnd
}

// RequiresQuotes reports whether name would not survive unquoted: it is
// reserved, contains characters outside [A-Za-z0-9_$], starts with a
// digit, or would be case-folded by the database.
func (d *Dialect) RequiresQuotes(name string) bool {
	if name == "" || d.IsReservedWord(name) {
		return true
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r == '$' || (r >= '0' && r <= '9')):
		default:
			return true
		}
	}
	if d.Identifiers.Normalization == NormCaseSensitive {
		return false
	}
	// Lower case is the case-insensitive spelling on every folding
	// dialect, including ones that fold to upper case.
	return cases.Lower(language.Und).String(name) != name
}

// QuoteIdentifierIfNeeded quotes name only when RequiresQuotes.
func (d *Dialect) QuoteIdentifierIfNeeded(name string) string {
	if d.RequiresQuotes(name) {
		return d.QuoteIdentifier(name)
	}
	return name
}

// Truncate shortens a generated name (label, alias, bind name) that
// exceeds MaxIdentifierLength, replacing the tail with a 4 hex digit hash
// of the full name so distinct long names stay distinct. The cut never
// splits a multi-byte rune.
func (d *Dialect) Truncate(name string) string {
	if d.MaxIdentifierLength <= 5 || len(name) <= d.MaxIdentifierLength {
		return name
	}
	cut := d.MaxIdentifierLength - 5
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return fmt.Sprintf("%s_%04x", name[:cut], xxh3.HashString(name)&0xffff)
}

// TypeName implements types.Namer.
func (d *Dialect) TypeName(a types.Affinity) (string, bool) {
	name, ok := d.typeNames[a]
	return name, ok
}

// Override returns the handler registered for a node kind.
func (d *Dialect) Override(k core.Kind) (Handler, bool) {
	h, ok := d.overrides[k]
	return h, ok
}

// Overrides returns a copy of the node-kind override table.
func (d *Dialect) Overrides() map[core.Kind]Handler {
	out := make(map[core.Kind]Handler, len(d.overrides))
	for k, h := range d.overrides {
		out[k] = h
	}
	return out
}

// FunctionOverride returns the handler registered for a function name.
func (d *Dialect) FunctionOverride(name string) (Handler, bool) {
	h, ok := d.functions[strings.ToLower(name)]
	return h, ok
}

// OperatorOverride returns the handler registered for an operator.
func (d *Dialect) OperatorOverride(op operator.Op) (Handler, bool) {
	h, ok := d.operators[op]
	return h, ok
}

// AdaptType returns the dialect implementation of t, or t itself when the
// dialect has no adapter for its affinity. Prefer TypeImpl, which caches.
func (d *Dialect) AdaptType(t types.Type) types.Type {
	t = types.Of(t)
	if adapt, ok := d.typeAdapters[t.Affinity()]; ok {
		return adapt(t)
	}
	return t
}

// Builder constructs a Dialect.
type Builder struct {
	dialect *Dialect
}

// New creates a builder from a Config. Feature-dependent operators are
// wired when Build is called.
func New(cfg *Config) *Builder {
	d := &Dialect{
		Name:                cfg.Name,
		DriverName:          cfg.DriverName,
		ParamStyle:          cfg.ParamStyle,
		MaxIdentifierLength: cfg.MaxIdentifierLength,
		Identifiers:         cfg.Identifiers,
		DefaultSchema:       cfg.DefaultSchema,
		Features:            cfg.Features,
		reservedWords:       make(map[string]struct{}),
		typeNames:           make(map[types.Affinity]string),
		overrides:           make(map[core.Kind]Handler),
		functions:           make(map[string]Handler),
		operators:           make(map[operator.Op]Handler),
		typeAdapters:        make(map[types.Affinity]TypeAdapter),
	}
	if d.MaxIdentifierLength == 0 {
		d.MaxIdentifierLength = 63
	}
	if d.Identifiers.Quote == "" {
		d.Identifiers = IdentifierConfig{Quote: `"`, QuoteEnd: `"`, Escape: `""`, Normalization: d.Identifiers.Normalization}
	}
	b := &Builder{dialect: d}
	b.WithReservedWords(cfg.ReservedWords...)
	for a, name := range cfg.TypeNames {
		d.typeNames[a] = name
	}
	return b
}

// WithReservedWords registers words that need quoting as identifiers.
func (b *Builder) WithReservedWords(words ...string) *Builder {
	for _, w := range words {
		b.dialect.reservedWords[strings.ToLower(w)] = struct{}{}
	}
	return b
}

// TypeName sets the physical name for an affinity.
func (b *Builder) TypeName(a types.Affinity, name string) *Builder {
	b.dialect.typeNames[a] = name
	return b
}

// Override replaces the handler for a node kind.
func (b *Builder) Override(k core.Kind, h Handler) *Builder {
	b.dialect.overrides[k] = h
	return b
}

// FunctionOverride replaces rendering of a function by name.
func (b *Builder) FunctionOverride(name string, h Handler) *Builder {
	b.dialect.functions[strings.ToLower(name)] = h
	return b
}

// OperatorOverride replaces rendering of an operator.
func (b *Builder) OperatorOverride(op operator.Op, h Handler) *Builder {
	b.dialect.operators[op] = h
	return b
}

// TypeAdapter installs the dialect implementation for an affinity.
func (b *Builder) TypeAdapter(a types.Affinity, adapt TypeAdapter) *Builder {
	b.dialect.typeAdapters[a] = adapt
	return b
}

// ParamStyle overrides the configured parameter style.
func (b *Builder) ParamStyle(style ParamStyle) *Builder {
	b.dialect.ParamStyle = style
	return b
}

// Build returns the constructed dialect. Dialects without native ILIKE
// get the lower() fallback unless they installed their own override.
func (b *Builder) Build() *Dialect {
	d := b.dialect
	if !d.Features.Ilike {
		for _, op := range []operator.Op{ILike(), NotILike()} {
			if _, ok := d.operators[op]; !ok {
				d.operators[op] = ILikeFallback
			}
		}
	}
	return d
}

// Clone returns a builder seeded with a copy of d, for deriving variants
// (e.g. a different paramstyle) from a registered dialect.
func Clone(d *Dialect, name string) *Builder {
	cp := *d
	cp.Name = name
	cp.reservedWords = copyMap(d.reservedWords)
	cp.typeNames = copyMap(d.typeNames)
	cp.overrides = copyMap(d.overrides)
	cp.functions = copyMap(d.functions)
	cp.operators = copyMap(d.operators)
	cp.typeAdapters = copyMap(d.typeAdapters)
	return &Builder{dialect: &cp}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
