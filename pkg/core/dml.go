package core

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/sqlforge/pkg/sqlerr"
)

// InsertStmt is an INSERT statement. Build it with Insert.
type InsertStmt struct {
	table     *Table
	columns   []*Column
	rows      [][]Expr
	raw       []map[string]any
	query     Selectable
	returning []Expr
	err       error
}

// Insert starts an INSERT into t. Without values it renders
// INSERT ... DEFAULT VALUES.
func Insert(t *Table) *InsertStmt { return &InsertStmt{table: t} }

// Values adds rows given as column name -> value. Go values become binds
// named after the column (name) or, once there is more than one row, after
// the column and row (name_m0, name_m1). Every row must name the same
// columns. Columns with a client-side default that a row omits receive
// the default.
func (s *InsertStmt) Values(rows ...map[string]any) *InsertStmt {
	cp := *s
	cp.raw = grow(s.raw, rows...)
	if err := cp.materialize(); err != nil {
		cp.err = err
	}
	return &cp
}

// FromSelect renders INSERT INTO t (cols) SELECT ....
func (s *InsertStmt) FromSelect(columns []string, sel Selectable) *InsertStmt {
	cp := *s
	cp.columns = nil
	for _, name := range columns {
		c := s.table.C(name)
		if c == nil {
			cp.err = unknownColumn("insert", s.table, name)
			return &cp
		}
		cp.columns = append(cp.columns, c)
	}
	cp.query = sel
	cp.rows, cp.raw = nil, nil
	if err := sel.Err(); err != nil && cp.err == nil {
		cp.err = err
	}
	return &cp
}

// Returning adds a RETURNING clause.
func (s *InsertStmt) Returning(cols ...Expr) *InsertStmt {
	cp := *s
	cp.returning = grow(s.returning, cols...)
	return &cp
}

func unknownColumn(op string, t *Table, name string) error {
	return &sqlerr.ArgumentError{Op: op, Message: fmt.Sprintf("unknown column %q on table %s", name, t.FullName())}
}

func (s *InsertStmt) materialize() error {
	if len(s.raw) == 0 {
		return nil
	}
	present := make(map[string]bool)
	for name := range s.raw[0] {
		if s.table.C(name) == nil {
			return unknownColumn("insert", s.table, name)
		}
		present[name] = true
	}
	for i, row := range s.raw[1:] {
		if len(row) != len(present) {
			return &sqlerr.ArgumentError{Op: "insert", Message: fmt.Sprintf("row %d names different columns than row 0", i+1)}
		}
		for name := range row {
			if !present[name] {
				return &sqlerr.ArgumentError{Op: "insert", Message: fmt.Sprintf("row %d names different columns than row 0", i+1)}
			}
		}
	}

	s.columns = nil
	for _, c := range s.table.columns {
		if present[c.name] || c.hasDefault {
			s.columns = append(s.columns, c)
		}
	}
	multi := len(s.raw) > 1
	s.rows = make([][]Expr, len(s.raw))
	for i, row := range s.raw {
		exprs := make([]Expr, len(s.columns))
		for j, c := range s.columns {
			v, ok := row[c.name]
			if !ok {
				v, _ = c.DefaultValue()
			}
			if e, isExpr := v.(Expr); isExpr {
				exprs[j] = e
				continue
			}
			name := c.name
			if multi {
				name = fmt.Sprintf("%s_m%d", c.name, i)
			}
			exprs[j] = Bind(name, c.typ, Value(v))
		}
		s.rows[i] = exprs
	}
	return nil
}

func (*InsertStmt) Kind() Kind { return KindInsert }

func (s *InsertStmt) writeKey(kb *KeyBuilder) {
	kb.kind(KindInsert)
	kb.node(s.table)
	kb.int(int64(len(s.columns)))
	for _, c := range s.columns {
		kb.str(c.name)
	}
	kb.int(int64(len(s.rows)))
	for _, row := range s.rows {
		kb.exprs(row)
	}
	kb.node(s.query)
	kb.exprs(s.returning)
}

// Table returns the target table.
func (s *InsertStmt) Table() *Table { return s.table }

// TargetColumns returns the inserted columns in table order.
func (s *InsertStmt) TargetColumns() []*Column { return s.columns }

// Rows returns the VALUES rows, aligned with TargetColumns.
func (s *InsertStmt) Rows() [][]Expr { return s.rows }

// Query returns the INSERT ... SELECT source, or nil.
func (s *InsertStmt) Query() Selectable { return s.query }

// ReturningClause returns the RETURNING expressions.
func (s *InsertStmt) ReturningClause() []Expr { return s.returning }

// Err returns the first builder error.
func (s *InsertStmt) Err() error { return s.err }

type setClause struct {
	column *Column
	value  Expr
}

// UpdateStmt is an UPDATE statement. Build it with Update.
type UpdateStmt struct {
	table     *Table
	sets      []setClause
	where     Expr
	returning []Expr
	err       error
}

// Update starts an UPDATE of t.
func Update(t *Table) *UpdateStmt { return &UpdateStmt{table: t} }

// Set assigns columns. Go values become binds named after the column.
// Assignments are kept in table column order; setting a column twice
// keeps the last value.
func (s *UpdateStmt) Set(values map[string]any) *UpdateStmt {
	cp := *s
	byName := make(map[string]Expr, len(s.sets)+len(values))
	for _, sc := range s.sets {
		byName[sc.column.name] = sc.value
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := s.table.C(name)
		if c == nil {
			cp.err = unknownColumn("update", s.table, name)
			return &cp
		}
		v := values[name]
		if e, ok := v.(Expr); ok {
			byName[name] = e
		} else {
			byName[name] = Bind(name, c.typ, Value(v))
		}
	}
	cp.sets = nil
	for _, c := range s.table.columns {
		if e, ok := byName[c.name]; ok {
			cp.sets = append(cp.sets, setClause{column: c, value: e})
		}
	}
	return &cp
}

// Where adds criteria joined with AND.
func (s *UpdateStmt) Where(criteria ...any) *UpdateStmt {
	cp := *s
	pred, err := checkPredicate("where", criteria)
	if err != nil {
		if cp.err == nil {
			cp.err = err
		}
		return &cp
	}
	if pred != nil {
		cp.where = And(s.where, pred)
	}
	return &cp
}

// Returning adds a RETURNING clause.
func (s *UpdateStmt) Returning(cols ...Expr) *UpdateStmt {
	cp := *s
	cp.returning = grow(s.returning, cols...)
	return &cp
}

func (*UpdateStmt) Kind() Kind { return KindUpdate }

func (s *UpdateStmt) writeKey(kb *KeyBuilder) {
	kb.kind(KindUpdate)
	kb.node(s.table)
	kb.int(int64(len(s.sets)))
	for _, sc := range s.sets {
		kb.str(sc.column.name)
		kb.node(sc.value)
	}
	kb.node(s.where)
	kb.exprs(s.returning)
}

// Table returns the target table.
func (s *UpdateStmt) Table() *Table { return s.table }

// Assignments returns the SET columns and values in table order.
func (s *UpdateStmt) Assignments() ([]*Column, []Expr) {
	cols := make([]*Column, len(s.sets))
	vals := make([]Expr, len(s.sets))
	for i, sc := range s.sets {
		cols[i], vals[i] = sc.column, sc.value
	}
	return cols, vals
}

// WhereClause returns the criteria, or nil.
func (s *UpdateStmt) WhereClause() Expr { return s.where }

// ReturningClause returns the RETURNING expressions.
func (s *UpdateStmt) ReturningClause() []Expr { return s.returning }

// Err returns the first builder error.
func (s *UpdateStmt) Err() error { return s.err }

// DeleteStmt is a DELETE statement. Build it with Delete.
type DeleteStmt struct {
	table     *Table
	where     Expr
	returning []Expr
	err       error
}

// Delete starts a DELETE from t.
func Delete(t *Table) *DeleteStmt { return &DeleteStmt{table: t} }

// Where adds criteria joined with AND.
func (s *DeleteStmt) Where(criteria ...any) *DeleteStmt {
	cp := *s
	pred, err := checkPredicate("where", criteria)
	if err != nil {
		if cp.err == nil {
			cp.err = err
		}
		return &cp
	}
	if pred != nil {
		cp.where = And(s.where, pred)
	}
	return &cp
}

// Returning adds a RETURNING clause.
func (s *DeleteStmt) Returning(cols ...Expr) *DeleteStmt {
	cp := *s
	cp.returning = grow(s.returning, cols...)
	return &cp
}

func (*DeleteStmt) Kind() Kind { return KindDelete }

func (s *DeleteStmt) writeKey(kb *KeyBuilder) {
	kb.kind(KindDelete)
	kb.node(s.table)
	kb.node(s.where)
	kb.exprs(s.returning)
}

// Table returns the target table.
func (s *DeleteStmt) Table() *Table { return s.table }

// WhereClause returns the criteria, or nil.
func (s *DeleteStmt) WhereClause() Expr { return s.where }

// ReturningClause returns the RETURNING expressions.
func (s *DeleteStmt) ReturningClause() []Expr { return s.returning }

// Err returns the first builder error.
func (s *DeleteStmt) Err() error { return s.err }

// Statement is any executable statement.
type Statement interface {
	Node
	Err() error
}

var (
	_ Statement = (*SelectStmt)(nil)
	_ Statement = (*CompoundSelect)(nil)
	_ Statement = (*InsertStmt)(nil)
	_ Statement = (*UpdateStmt)(nil)
	_ Statement = (*DeleteStmt)(nil)
)
