package core

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/leapstack-labs/sqlforge/pkg/types"
)

// MetaData is an ordered registry of tables. The definition order of its
// tables is the deterministic tie-break used when scheduling flushes.
type MetaData struct {
	mu     sync.RWMutex
	tables []*Table
	byName map[string]*Table
}

// NewMetaData returns an empty registry.
func NewMetaData() *MetaData {
	return &MetaData{byName: make(map[string]*Table)}
}

// Table defines a table in md. It panics if a table with the same
// qualified name already exists, mirroring how a schema definition error
// is a programming error rather than a runtime condition.
func (md *MetaData) Table(name string, items ...TableItem) *Table {
	t, err := md.AddTable(name, items...)
	if err != nil {
		panic(err)
	}
	return t
}

// AddTable is Table returning an error instead of panicking.
func (md *MetaData) AddTable(name string, items ...TableItem) (*Table, error) {
	t := &Table{
		name:     name,
		id:       tableSeq.Add(1),
		metadata: md,
		cmap:     make(map[string]*Column),
	}
	for _, item := range items {
		item.applyTable(t)
	}
	for _, c := range t.columns {
		if c.primaryKey {
			t.primaryKey = append(t.primaryKey, c)
		}
		for _, ref := range c.refs {
			fk := &ForeignKey{Name: ref.name, Deferrable: ref.deferrable, parent: t, columns: []*Column{c}}
			fk.refTable, fk.refColumns = splitTarget(ref.target)
			t.foreignKeys = append(t.foreignKeys, fk)
		}
	}
	for _, def := range t.fkDefs {
		fk := &ForeignKey{Name: def.name, Deferrable: def.deferrable, parent: t, refTable: def.refTable, refColumns: def.refColumns}
		for _, cn := range def.columns {
			c := t.cmap[cn]
			if c == nil {
				return nil, fmt.Errorf("foreign key on %s: unknown column %q", t.FullName(), cn)
			}
			fk.columns = append(fk.columns, c)
		}
		t.foreignKeys = append(t.foreignKeys, fk)
	}
	t.fkDefs = nil

	md.mu.Lock()
	defer md.mu.Unlock()
	key := t.FullName()
	if _, ok := md.byName[key]; ok {
		return nil, fmt.Errorf("table %q is already defined in this MetaData", key)
	}
	t.index = len(md.tables)
	md.tables = append(md.tables, t)
	md.byName[key] = t
	return t, nil
}

// Lookup returns the table with the given (optionally schema-qualified)
// name, or nil.
func (md *MetaData) Lookup(name string) *Table {
	md.mu.RLock()
	defer md.mu.RUnlock()
	return md.byName[name]
}

// Tables returns the tables in definition order.
func (md *MetaData) Tables() []*Table {
	md.mu.RLock()
	defer md.mu.RUnlock()
	out := make([]*Table, len(md.tables))
	copy(out, md.tables)
	return out
}

var tableSeq atomic.Uint64

// TableItem is an argument to MetaData.Table.
type TableItem interface {
	applyTable(t *Table)
}

type schemaItem string

func (s schemaItem) applyTable(t *Table) { t.schema = string(s) }

// Schema places the table in a named schema.
func Schema(name string) TableItem { return schemaItem(name) }

// Table is a schema table. It is a FromClause and is hashed into cache
// keys by identity, so two distinct Table values never share a key even
// when their names match.
type Table struct {
	name        string
	schema      string
	id          uint64
	index       int
	metadata    *MetaData
	columns     []*Column
	cmap        map[string]*Column
	primaryKey  []*Column
	foreignKeys []*ForeignKey
	fkDefs      []fkDef
}

func (*Table) Kind() Kind { return KindTable }
func (*Table) fromNode()  {}

func (t *Table) writeKey(kb *KeyBuilder) {
	kb.kind(KindTable)
	kb.int(int64(t.id))
	kb.str(t.schema)
	kb.str(t.name)
}

// Name returns the unqualified table name.
func (t *Table) Name() string { return t.name }

// Schema returns the schema name, or "".
func (t *Table) Schema() string { return t.schema }

// FullName returns schema.name, or name when there is no schema.
func (t *Table) FullName() string {
	if t.schema == "" {
		return t.name
	}
	return t.schema + "." + t.name
}

// Index is the table's position in its MetaData's definition order.
func (t *Table) Index() int { return t.index }

// MetaData returns the owning registry.
func (t *Table) MetaData() *MetaData { return t.metadata }

// Columns returns the table's columns in definition order.
func (t *Table) Columns() []*Column { return t.columns }

// C returns the named column, or nil.
func (t *Table) C(name string) *Column { return t.cmap[name] }

// PrimaryKey returns the primary key columns in definition order.
func (t *Table) PrimaryKey() []*Column { return t.primaryKey }

// ForeignKeys returns the foreign keys declared on t.
func (t *Table) ForeignKeys() []*ForeignKey { return t.foreignKeys }

// VersionColumn returns the column flagged with Version(), or nil.
func (t *Table) VersionColumn() *Column {
	for _, c := range t.columns {
		if c.version {
			return c
		}
	}
	return nil
}

// Alias returns a named alias of t, e.g. for self-joins.
func (t *Table) Alias(name string) *Alias { return newAlias(t, name) }

func (t *Table) String() string { return t.FullName() }

// ColumnOption configures a column.
type ColumnOption func(c *Column)

// PrimaryKey marks the column as part of the primary key. Primary key
// columns are not nullable.
func PrimaryKey() ColumnOption {
	return func(c *Column) {
		c.primaryKey = true
		c.nullable = false
	}
}

// NotNull marks the column as not nullable.
func NotNull() ColumnOption { return func(c *Column) { c.nullable = false } }

// Default sets a client-side default used when an insert omits the
// column. v may be a value or a func() any.
func Default(v any) ColumnOption {
	return func(c *Column) {
		c.dflt = v
		c.hasDefault = true
	}
}

// Version marks the column as the optimistic concurrency counter.
func Version() ColumnOption { return func(c *Column) { c.version = true } }

// FKOption configures a foreign key.
type FKOption func(r *fkRef)

// Deferrable marks the foreign key constraint as deferrable, which lets a
// flush break a dependency cycle through it even when it is not nullable.
func Deferrable() FKOption { return func(r *fkRef) { r.deferrable = true } }

// ConstraintName names the foreign key constraint.
func ConstraintName(name string) FKOption { return func(r *fkRef) { r.name = name } }

type fkRef struct {
	target     string
	name       string
	deferrable bool
}

// References declares a single-column foreign key to target, given as
// "table.column" or "schema.table.column". The target is resolved lazily
// so tables may be defined in any order.
func References(target string, opts ...FKOption) ColumnOption {
	r := fkRef{target: target}
	for _, o := range opts {
		o(&r)
	}
	return func(c *Column) { c.refs = append(c.refs, r) }
}

type fkDef struct {
	columns    []string
	refTable   string
	refColumns []string
	name       string
	deferrable bool
}

func (d fkDef) applyTable(t *Table) { t.fkDefs = append(t.fkDefs, d) }

// ForeignKeyConstraint declares a (possibly composite) foreign key from
// columns to refColumns of refTable.
func ForeignKeyConstraint(columns []string, refTable string, refColumns []string, opts ...FKOption) TableItem {
	r := fkRef{}
	for _, o := range opts {
		o(&r)
	}
	return fkDef{columns: columns, refTable: refTable, refColumns: refColumns, name: r.name, deferrable: r.deferrable}
}

func splitTarget(target string) (string, []string) {
	i := strings.LastIndexByte(target, '.')
	if i < 0 {
		return target, nil
	}
	return target[:i], []string{target[i+1:]}
}

// ForeignKey is a foreign key constraint from the parent table's columns
// to a referenced table.
type ForeignKey struct {
	Name       string
	Deferrable bool

	parent     *Table
	columns    []*Column
	refTable   string
	refColumns []string
}

// Parent returns the table declaring the constraint (the referencing side).
func (fk *ForeignKey) Parent() *Table { return fk.parent }

// Columns returns the referencing columns.
func (fk *ForeignKey) Columns() []*Column { return fk.columns }

// ReferredTable resolves the referenced table through the parent's
// MetaData. It returns nil when the table is not defined.
func (fk *ForeignKey) ReferredTable() *Table {
	if fk.parent == nil || fk.parent.metadata == nil {
		return nil
	}
	return fk.parent.metadata.Lookup(fk.refTable)
}

// ReferredColumns returns the referenced columns. When the constraint
// names none, the referred table's primary key is used.
func (fk *ForeignKey) ReferredColumns() []*Column {
	rt := fk.ReferredTable()
	if rt == nil {
		return nil
	}
	if len(fk.refColumns) == 0 {
		return rt.PrimaryKey()
	}
	out := make([]*Column, 0, len(fk.refColumns))
	for _, name := range fk.refColumns {
		if c := rt.C(name); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// Nullable reports whether every referencing column accepts NULL.
func (fk *ForeignKey) Nullable() bool {
	for _, c := range fk.columns {
		if !c.nullable {
			return false
		}
	}
	return len(fk.columns) > 0
}

// ColumnNames returns the referencing column names joined by commas.
func (fk *ForeignKey) ColumnNames() string {
	names := make([]string, len(fk.columns))
	for i, c := range fk.columns {
		names[i] = c.name
	}
	return strings.Join(names, ",")
}

func (fk *ForeignKey) String() string {
	return fmt.Sprintf("%s(%s) -> %s", fk.parent.FullName(), fk.ColumnNames(), fk.refTable)
}

// Column is both a schema column and a column-valued expression. Columns
// exported by an Alias are proxies carrying the alias as their table.
type Column struct {
	name       string
	typ        types.Type
	table      FromClause
	nullable   bool
	primaryKey bool
	version    bool
	hasDefault bool
	dflt       any
	refs       []fkRef
}

// NewColumn creates a column to pass to MetaData.Table. Columns are
// nullable unless they are part of the primary key or marked NotNull.
func NewColumn(name string, typ types.Type, opts ...ColumnOption) *Column {
	c := &Column{name: name, typ: types.Of(typ), nullable: true}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Column) applyTable(t *Table) {
	c.table = t
	t.columns = append(t.columns, c)
	t.cmap[c.name] = c
}

func (*Column) Kind() Kind         { return KindColumn }
func (*Column) exprNode()          {}
func (c *Column) Type() types.Type { return c.typ }

func (c *Column) writeKey(kb *KeyBuilder) {
	kb.kind(KindColumn)
	kb.node(c.table)
	kb.str(c.name)
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Table returns the FROM element that owns the column.
func (c *Column) Table() FromClause { return c.table }

// Nullable reports whether the column accepts NULL.
func (c *Column) Nullable() bool { return c.nullable }

// IsPrimaryKey reports whether the column is part of the primary key.
func (c *Column) IsPrimaryKey() bool { return c.primaryKey }

// IsVersion reports whether the column is the version counter.
func (c *Column) IsVersion() bool { return c.version }

// DefaultValue returns the client-side default, evaluating it if it is a
// func() any.
func (c *Column) DefaultValue() (any, bool) {
	if !c.hasDefault {
		return nil, false
	}
	if f, ok := c.dflt.(func() any); ok {
		return f(), true
	}
	return c.dflt, true
}

func (c *Column) String() string {
	switch t := c.table.(type) {
	case *Table:
		return t.name + "." + c.name
	case *Alias:
		return t.name + "." + c.name
	}
	return c.name
}

// proxy returns a copy of c owned by from.
func (c *Column) proxy(from FromClause) *Column {
	return &Column{name: c.name, typ: c.typ, table: from, nullable: c.nullable, primaryKey: c.primaryKey}
}
