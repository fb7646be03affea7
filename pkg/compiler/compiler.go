// Package compiler turns statement trees into dialect-specific SQL.
//
// A Compiler is built once per dialect: the dialect's override table is
// merged over the default handler table and the result is memoized.
// Compilation is deterministic; the same tree and dialect always yield
// byte-identical SQL and bind names.
package compiler

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/leapstack-labs/sqlforge/pkg/core"
	"github.com/leapstack-labs/sqlforge/pkg/dialect"
	"github.com/leapstack-labs/sqlforge/pkg/sqlerr"
)

// Compiler renders trees for one dialect.
type Compiler struct {
	dialect  *dialect.Dialect
	handlers map[core.Kind]dialect.Handler
}

var defaultHandlers map[core.Kind]dialect.Handler

func init() {
	defaultHandlers = map[core.Kind]dialect.Handler{
		core.KindColumn:         renderColumn,
		core.KindLiteral:        renderLiteral,
		core.KindBindParameter:  renderBind,
		core.KindUnaryOp:        renderUnary,
		core.KindBinaryOp:       renderBinary,
		core.KindFunctionCall:   renderFunction,
		core.KindLabel:          renderLabel,
		core.KindAlias:          renderAlias,
		core.KindSelect:         renderSelect,
		core.KindInsert:         renderInsert,
		core.KindUpdate:         renderUpdate,
		core.KindDelete:         renderDelete,
		core.KindCompoundSelect: renderCompound,
		core.KindJoin:           renderJoin,
		core.KindTable:          renderTable,
		core.KindCase:           renderCase,
		core.KindCast:           renderCast,
		core.KindGrouping:       renderGrouping,
		core.KindNull:           renderConstant,
		core.KindTrue:           renderConstant,
		core.KindFalse:          renderConstant,
		core.KindClauseList:     renderClauseList,
		core.KindScalarSubquery: renderScalarSubquery,
		core.KindStar:           renderStar,
		core.KindLimit:          renderLimit,
	}
}

// New builds a compiler for d, merging d's overrides over the defaults.
// Prefer For, which memoizes.
func New(d *dialect.Dialect) *Compiler {
	handlers := make(map[core.Kind]dialect.Handler, len(defaultHandlers))
	for k, h := range defaultHandlers {
		handlers[k] = h
	}
	for k, h := range d.Overrides() {
		handlers[k] = h
	}
	return &Compiler{dialect: d, handlers: handlers}
}

var compilers sync.Map // *dialect.Dialect -> *Compiler

func init() {
	dialect.OnDeregister(func(name string) {
		compilers.Range(func(k, _ any) bool {
			if d := k.(*dialect.Dialect); strings.EqualFold(d.Name, name) {
				compilers.Delete(k)
			}
			return true
		})
	})
}

// For returns the memoized compiler for d.
func For(d *dialect.Dialect) *Compiler {
	if c, ok := compilers.Load(d); ok {
		return c.(*Compiler)
	}
	c, _ := compilers.LoadOrStore(d, New(d))
	return c.(*Compiler)
}

// Compile compiles n for d.
func Compile(n core.Node, d *dialect.Dialect) (*CompiledStatement, error) {
	if d == nil {
		return nil, dialect.ErrDialectRequired
	}
	return For(d).Compile(n)
}

// Dialect returns the compiler's dialect.
func (c *Compiler) Dialect() *dialect.Dialect { return c.dialect }

// Compile compiles n.
func (c *Compiler) Compile(n core.Node) (*CompiledStatement, error) {
	key, binds := core.CacheKey(n)
	return c.compile(n, key, binds)
}

func (c *Compiler) compile(n core.Node, key core.Key, binds []*core.BindParameter) (*CompiledStatement, error) {
	if stmt, ok := n.(core.Statement); ok {
		if err := stmt.Err(); err != nil {
			return nil, err
		}
	}
	s := newState(c, binds)
	if err := s.Render(n); err != nil {
		return nil, err
	}
	return s.finish(n, key), nil
}

// state is the per-compilation renderer. It implements dialect.Renderer.
type state struct {
	compiler *Compiler
	dialect  *dialect.Dialect
	output   *bytes.Buffer

	// bind naming
	bindIndex map[*core.BindParameter]int
	bindNames map[*core.BindParameter]string
	slots     []slot
	slotByKey map[string]int
	positions []string

	// anonymous alias names
	aliasNames map[*core.Alias]string
	aliasSeq   int

	// correlation: FROM entries of the enclosing SELECTs
	enclosing []core.FromClause
	// dmlTable renders its columns unqualified
	dmlTable *core.Table
	// inOrderBy renders labels by name
	inOrderBy bool
	// bareColumns renders columns unqualified (compound ORDER BY)
	bareColumns bool

	results   []ResultColumn
	returning bool
	depth     int
}

type slot struct {
	name   string
	bind   *core.BindParameter
	source int // index into the key-walk bind list
}

func newState(c *Compiler, binds []*core.BindParameter) *state {
	s := &state{
		compiler:   c,
		dialect:    c.dialect,
		output:     &bytes.Buffer{},
		bindIndex:  make(map[*core.BindParameter]int, len(binds)),
		bindNames:  make(map[*core.BindParameter]string, len(binds)),
		slotByKey:  make(map[string]int),
		aliasNames: make(map[*core.Alias]string),
	}
	s.nameBinds(binds)
	return s
}

var unsafeBindChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

// nameBinds assigns slot names in key-walk order. Named binds keep their
// key; anonymous binds become <key>_<n> with a counter per key, skipping
// names taken by named binds.
func (s *state) nameBinds(binds []*core.BindParameter) {
	taken := make(map[string]bool)
	for _, b := range binds {
		if !b.IsUnique() {
			taken[s.sanitize(b.Key())] = true
		}
	}
	counters := make(map[string]int)
	for i, b := range binds {
		s.bindIndex[b] = i
		if !b.IsUnique() {
			s.bindNames[b] = s.sanitize(b.Key())
			continue
		}
		base := s.sanitize(b.Key())
		for {
			counters[base]++
			name := s.dialect.Truncate(fmt.Sprintf("%s_%d", base, counters[base]))
			if !taken[name] {
				taken[name] = true
				s.bindNames[b] = name
				break
			}
		}
	}
}

func (s *state) sanitize(key string) string {
	if key == "" {
		key = "param"
	}
	key = unsafeBindChars.ReplaceAllString(key, "_")
	if key[0] >= '0' && key[0] <= '9' {
		key = "p_" + key
	}
	return s.dialect.Truncate(key)
}

// --- dialect.Renderer ---

func (s *state) Dialect() *dialect.Dialect { return s.dialect }

func (s *state) Write(str string) { s.output.WriteString(str) }

// Render dispatches n through operator, function and node overrides.
func (s *state) Render(n core.Node) error {
	if n == nil {
		return nil
	}
	switch x := n.(type) {
	case *core.BinaryOp:
		if h, ok := s.dialect.OperatorOverride(x.Op()); ok {
			return h(s, n)
		}
	case *core.UnaryOp:
		if h, ok := s.dialect.OperatorOverride(x.Op()); ok {
			return h(s, n)
		}
	case *core.FunctionCall:
		if h, ok := s.dialect.FunctionOverride(x.Name()); ok {
			return h(s, n)
		}
	}
	h, ok := s.compiler.handlers[n.Kind()]
	if !ok {
		return s.unsupported(fmt.Sprintf("node kind %s", n.Kind()), "")
	}
	return h(s, n)
}

// RenderDefault renders n with the built-in handler for its kind.
func (s *state) RenderDefault(n core.Node) error {
	h, ok := defaultHandlers[n.Kind()]
	if !ok {
		return s.unsupported(fmt.Sprintf("node kind %s", n.Kind()), "")
	}
	return h(s, n)
}

func (s *state) RenderList(items []core.Expr, sep string) error {
	for i, item := range items {
		if i > 0 {
			s.Write(sep)
		}
		if err := s.Render(item); err != nil {
			return err
		}
	}
	return nil
}

func (s *state) Quote(ident string) string {
	return s.dialect.QuoteIdentifierIfNeeded(ident)
}

// --- helpers ---

// formatList renders count items separated by sep.
func (s *state) formatList(count int, format func(i int) error, sep string) error {
	for i := 0; i < count; i++ {
		if i > 0 {
			s.Write(sep)
		}
		if err := format(i); err != nil {
			return err
		}
	}
	return nil
}

func (s *state) unsupported(construct, hint string) error {
	return &sqlerr.UnsupportedCompilationError{Dialect: s.dialect.Name, Construct: construct, Hint: hint}
}

// label quotes a generated or user label, truncating it first.
func (s *state) label(name string) string {
	return s.Quote(s.dialect.Truncate(name))
}

// aliasName returns the rendered name of an alias, assigning anon_<n> to
// unnamed aliases in first-render order.
func (s *state) aliasName(a *core.Alias) string {
	if a.Name() != "" {
		return s.dialect.Truncate(a.Name())
	}
	if name, ok := s.aliasNames[a]; ok {
		return name
	}
	s.aliasSeq++
	name := fmt.Sprintf("anon_%d", s.aliasSeq)
	s.aliasNames[a] = name
	return name
}

// placeholder records one occurrence of b and returns its placeholder.
func (s *state) placeholder(b *core.BindParameter) string {
	name, ok := s.bindNames[b]
	if !ok {
		// A bind created during rendering; name it on the spot.
		name = s.sanitize(b.Key())
		s.bindNames[b] = name
		s.bindIndex[b] = -1
	}
	idx, seen := s.slotByKey[name]
	if !seen {
		idx = len(s.slots)
		s.slotByKey[name] = idx
		s.slots = append(s.slots, slot{name: name, bind: b, source: s.bindIndex[b]})
	}
	style := s.dialect.ParamStyle
	switch style {
	case dialect.ParamNumeric, dialect.ParamDollar:
		// Numbered styles reuse the slot number for repeated names.
		if !seen {
			s.positions = append(s.positions, name)
		}
		return style.Placeholder(name, idx+1)
	case dialect.ParamQmark, dialect.ParamFormat:
		s.positions = append(s.positions, name)
	}
	return style.Placeholder(name, len(s.positions))
}
