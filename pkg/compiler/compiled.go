package compiler

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/leapstack-labs/sqlforge/pkg/core"
	"github.com/leapstack-labs/sqlforge/pkg/dialect"
	"github.com/leapstack-labs/sqlforge/pkg/sqlerr"
	"github.com/leapstack-labs/sqlforge/pkg/types"
)

// ResultColumn describes one column of a statement's result rows.
type ResultColumn struct {
	Name string
	Type types.Type
}

func resultColumns(rcs []core.ResultColumn) []ResultColumn {
	out := make([]ResultColumn, len(rcs))
	for i, rc := range rcs {
		out[i] = ResultColumn{Name: rc.Name, Type: types.Of(rc.Expr.Type())}
	}
	return out
}

// CompiledStatement is the immutable result of compiling a tree. It is
// safe to share between goroutines and is what the statement cache
// stores.
type CompiledStatement struct {
	SQL     string
	Dialect *dialect.Dialect
	Key     core.Key

	// BindNames lists every bind slot in first-appearance order.
	BindNames []string
	// PositionalNames lists the slot name behind each positional
	// argument. Empty for named paramstyles.
	PositionalNames []string
	// Positions maps a slot name to its indexes in the argument list.
	Positions map[string][]int
	// Binds maps a slot name to the bind it was compiled from.
	Binds map[string]*core.BindParameter

	ResultColumns []ResultColumn
	IsDML         bool
	Returning     bool

	// sources maps BindNames[i] to its index in core.ExtractParameters
	// order, -1 when the bind was not part of the tree walk.
	sources []int
}

func (s *state) finish(n core.Node, key core.Key) *CompiledStatement {
	cs := &CompiledStatement{
		SQL:           s.output.String(),
		Dialect:       s.dialect,
		Key:           key,
		Positions:     make(map[string][]int),
		Binds:         make(map[string]*core.BindParameter, len(s.slots)),
		ResultColumns: s.results,
		Returning:     s.returning,
	}
	switch n.(type) {
	case *core.InsertStmt, *core.UpdateStmt, *core.DeleteStmt:
		cs.IsDML = true
	}
	for _, sl := range s.slots {
		cs.BindNames = append(cs.BindNames, sl.name)
		cs.Binds[sl.name] = sl.bind
		cs.sources = append(cs.sources, sl.source)
	}
	if s.dialect.ParamStyle.Positional() {
		cs.PositionalNames = s.positions
		for i, name := range s.positions {
			cs.Positions[name] = append(cs.Positions[name], i)
		}
	} else {
		for i, name := range cs.BindNames {
			cs.Positions[name] = []int{i}
		}
	}
	return cs
}

func (cs *CompiledStatement) String() string { return cs.SQL }

// shape returns a copy of cs whose tree binds carry no values, the form
// the cache retains. Binds created during rendering keep theirs.
func (cs *CompiledStatement) shape() *CompiledStatement {
	cp := *cs
	cp.Binds = make(map[string]*core.BindParameter, len(cs.Binds))
	for i, name := range cs.BindNames {
		b := cs.Binds[name]
		if cs.sources[i] >= 0 {
			b = b.WithoutValue()
		}
		cp.Binds[name] = b
	}
	return &cp
}

// rebind returns a copy of cs carrying binds, the parameters extracted
// from a tree sharing cs's key.
func (cs *CompiledStatement) rebind(binds []*core.BindParameter) *CompiledStatement {
	cp := *cs
	cp.Binds = make(map[string]*core.BindParameter, len(cs.Binds))
	for i, name := range cs.BindNames {
		b := cs.Binds[name]
		if src := cs.sources[i]; src >= 0 && src < len(binds) {
			b = binds[src]
		}
		cp.Binds[name] = b
	}
	return &cp
}

// Params builds the driver argument list from explicit values and the
// values carried by the compiled tree's binds. Positional paramstyles get
// an ordered slice; named paramstyles get sql.NamedArg values.
func (cs *CompiledStatement) Params(values map[string]any) ([]any, error) {
	return cs.args(nil, values, -1)
}

// ParamGroups builds one argument list per group, for executemany.
func (cs *CompiledStatement) ParamGroups(groups []map[string]any) ([][]any, error) {
	out := make([][]any, len(groups))
	for i, g := range groups {
		args, err := cs.args(nil, g, i)
		if err != nil {
			return nil, err
		}
		out[i] = args
	}
	return out, nil
}

// args resolves every slot. When extracted is set, bind values come from
// those binds (a tree sharing cs's key) instead of the compiled ones.
func (cs *CompiledStatement) args(extracted []*core.BindParameter, values map[string]any, group int) ([]any, error) {
	resolved := make(map[string]any, len(cs.BindNames))
	for i, name := range cs.BindNames {
		b := cs.Binds[name]
		if src := cs.sources[i]; extracted != nil && src >= 0 && src < len(extracted) {
			b = extracted[src]
		}
		v, ok := values[name]
		if !ok {
			v, ok = b.Resolve()
		}
		if !ok && b.IsRequired() {
			return nil, &sqlerr.MissingParameterError{Name: name, Group: group}
		}
		out, err := dialect.TypeImpl(cs.Dialect, b.Type()).BindTransform(v)
		if err != nil {
			return nil, withColumn(err, name)
		}
		resolved[name] = out
	}

	if cs.Dialect.ParamStyle.Positional() {
		args := make([]any, len(cs.PositionalNames))
		for i, name := range cs.PositionalNames {
			args[i] = resolved[name]
		}
		return args, nil
	}
	args := make([]any, len(cs.BindNames))
	for i, name := range cs.BindNames {
		args[i] = sql.Named(name, resolved[name])
	}
	return args, nil
}

func withColumn(err error, name string) error {
	var tce *sqlerr.TypeCoercionError
	if errors.As(err, &tce) && tce.Column == "" {
		cp := *tce
		cp.Column = name
		return &cp
	}
	return err
}

// ProcessRow applies the result transforms of ResultColumns to a row
// scanned in column order.
func (cs *CompiledStatement) ProcessRow(row []any) ([]any, error) {
	if len(row) != len(cs.ResultColumns) {
		return nil, fmt.Errorf("row has %d values, statement returns %d columns", len(row), len(cs.ResultColumns))
	}
	out := make([]any, len(row))
	for i, v := range row {
		if v == nil {
			continue
		}
		col := cs.ResultColumns[i]
		tv, err := dialect.TypeImpl(cs.Dialect, col.Type).ResultTransform(v)
		if err != nil {
			return nil, withColumn(err, col.Name)
		}
		out[i] = tv
	}
	return out, nil
}

// Statement pairs a compiled statement, possibly shared through the
// cache, with the binds of the tree it is executed for.
type Statement struct {
	*CompiledStatement
	binds []*core.BindParameter
}

// Bind pairs cs with the binds of n. n must share cs's cache key.
func (cs *CompiledStatement) Bind(n core.Node) (*Statement, error) {
	key, binds := core.CacheKey(n)
	if key != cs.Key {
		return nil, &sqlerr.ArgumentError{Op: "bind", Message: "statement tree does not match the compiled statement"}
	}
	return &Statement{CompiledStatement: cs, binds: binds}, nil
}

// Params builds the argument list using the statement's own bind values
// for every slot values does not name.
func (s *Statement) Params(values map[string]any) ([]any, error) {
	return s.args(s.binds, values, -1)
}

// BindValues returns the resolved value of every slot, before type
// transforms, keyed by slot name.
func (s *Statement) BindValues() map[string]any {
	out := make(map[string]any, len(s.BindNames))
	for i, name := range s.BindNames {
		b := s.Binds[name]
		if src := s.sources[i]; src >= 0 && src < len(s.binds) {
			b = s.binds[src]
		}
		if v, ok := b.Resolve(); ok {
			out[name] = v
		}
	}
	return out
}
