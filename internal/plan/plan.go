// Package plan loads flush plans from YAML files.
//
// A plan file declares the tables a flush touches and the pending
// mutations against them:
//
//	dialect: postgres
//	tables:
//	  - name: customers
//	    columns:
//	      - {name: id, type: integer, pk: true}
//	      - {name: name, type: string, not_null: true}
//	  - name: orders
//	    columns:
//	      - {name: id, type: integer, pk: true}
//	      - {name: customer_id, type: integer, references: customers.id}
//	mutations:
//	  - id: acme
//	    op: insert
//	    table: customers
//	    values: {name: acme}
//	  - op: insert
//	    table: orders
//	    values: {id: 1}
//	    refs: [acme]
package plan

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/sqlforge/pkg/core"
	"github.com/leapstack-labs/sqlforge/pkg/types"
	"github.com/leapstack-labs/sqlforge/pkg/unitofwork"
)

// File is the YAML document.
type File struct {
	Dialect   string     `yaml:"dialect"`
	Tables    []Table    `yaml:"tables"`
	Mutations []Mutation `yaml:"mutations"`
}

// Table declares one table.
type Table struct {
	Name        string       `yaml:"name"`
	Schema      string       `yaml:"schema"`
	Columns     []Column     `yaml:"columns"`
	ForeignKeys []ForeignKey `yaml:"foreign_keys"`
}

// Column declares one column.
type Column struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	PrimaryKey bool   `yaml:"pk"`
	NotNull    bool   `yaml:"not_null"`
	Version    bool   `yaml:"version"`
	Default    any    `yaml:"default"`
	// References is a single-column foreign key target, "table.column".
	References string `yaml:"references"`
	Deferrable bool   `yaml:"deferrable"`
}

// ForeignKey declares a table-level, possibly composite, foreign key.
type ForeignKey struct {
	Name       string   `yaml:"name"`
	Columns    []string `yaml:"columns"`
	References string   `yaml:"references"`
	RefColumns []string `yaml:"ref_columns"`
	Deferrable bool     `yaml:"deferrable"`
}

// Mutation is one pending row change.
type Mutation struct {
	ID      string         `yaml:"id"`
	Op      string         `yaml:"op"`
	Table   string         `yaml:"table"`
	Key     map[string]any `yaml:"key"`
	Values  map[string]any `yaml:"values"`
	Refs    []Ref          `yaml:"refs"`
	Version *Version       `yaml:"version"`
}

// Ref names another mutation this row references. It is written either
// as the mutation id or as a mapping that also picks the foreign key by
// its columns.
type Ref struct {
	Target  string   `yaml:"target"`
	Columns []string `yaml:"columns"`
}

// UnmarshalYAML accepts a bare id or a mapping.
func (r *Ref) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		r.Target = n.Value
		return nil
	}
	type plain Ref
	return n.Decode((*plain)(r))
}

// Version is an optimistic concurrency check.
type Version struct {
	Column   string `yaml:"column"`
	Expected any    `yaml:"expected"`
	Next     any    `yaml:"next"`
}

// Loaded is a plan converted into schema and records.
type Loaded struct {
	Dialect  string
	MetaData *core.MetaData
	Records  []*unitofwork.MutationRecord
}

// LoadFile reads and converts the plan at path.
func LoadFile(path string) (*Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	l, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// Load decodes a plan and converts it.
func Load(r io.Reader) (*Loaded, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	return f.Convert()
}

// Convert builds the MetaData and mutation records described by f.
func (f *File) Convert() (*Loaded, error) {
	md := core.NewMetaData()
	for _, t := range f.Tables {
		if err := addTable(md, t); err != nil {
			return nil, err
		}
	}

	records := make([]*unitofwork.MutationRecord, len(f.Mutations))
	byID := make(map[string]*unitofwork.MutationRecord, len(f.Mutations))
	for i, m := range f.Mutations {
		r, err := record(md, m)
		if err != nil {
			return nil, fmt.Errorf("mutation %d: %w", i+1, err)
		}
		records[i] = r
		if m.ID != "" {
			if _, dup := byID[m.ID]; dup {
				return nil, fmt.Errorf("mutation %d: duplicate id %q", i+1, m.ID)
			}
			byID[m.ID] = r
		}
	}
	for i, m := range f.Mutations {
		for _, ref := range m.Refs {
			target, ok := byID[ref.Target]
			if !ok {
				return nil, fmt.Errorf("mutation %d: unknown ref %q", i+1, ref.Target)
			}
			out := unitofwork.Reference{Target: target}
			if len(ref.Columns) > 0 {
				fk, err := foreignKeyByColumns(records[i].Table, ref.Columns)
				if err != nil {
					return nil, fmt.Errorf("mutation %d: %w", i+1, err)
				}
				out.FK = fk
			}
			records[i].DependsOn = append(records[i].DependsOn, out)
		}
	}
	return &Loaded{Dialect: f.Dialect, MetaData: md, Records: records}, nil
}

func addTable(md *core.MetaData, t Table) error {
	if t.Name == "" {
		return errors.New("table without a name")
	}
	var items []core.TableItem
	if t.Schema != "" {
		items = append(items, core.Schema(t.Schema))
	}
	for _, c := range t.Columns {
		typ, err := ParseType(c.Type)
		if err != nil {
			return fmt.Errorf("table %s column %s: %w", t.Name, c.Name, err)
		}
		var opts []core.ColumnOption
		if c.PrimaryKey {
			opts = append(opts, core.PrimaryKey())
		}
		if c.NotNull {
			opts = append(opts, core.NotNull())
		}
		if c.Version {
			opts = append(opts, core.Version())
		}
		if c.Default != nil {
			opts = append(opts, core.Default(c.Default))
		}
		if c.References != "" {
			var fkOpts []core.FKOption
			if c.Deferrable {
				fkOpts = append(fkOpts, core.Deferrable())
			}
			opts = append(opts, core.References(c.References, fkOpts...))
		}
		items = append(items, core.NewColumn(c.Name, typ, opts...))
	}
	for _, fk := range t.ForeignKeys {
		var opts []core.FKOption
		if fk.Deferrable {
			opts = append(opts, core.Deferrable())
		}
		if fk.Name != "" {
			opts = append(opts, core.ConstraintName(fk.Name))
		}
		items = append(items, core.ForeignKeyConstraint(fk.Columns, fk.References, fk.RefColumns, opts...))
	}
	_, err := md.AddTable(t.Name, items...)
	return err
}

// ParseType maps a type name used in plan files to a column type.
func ParseType(name string) (types.Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "integer", "int":
		return types.Integer{}, nil
	case "bigint", "biginteger":
		return types.BigInteger{}, nil
	case "smallint", "smallinteger":
		return types.SmallInteger{}, nil
	case "numeric", "decimal":
		return types.Numeric{}, nil
	case "float", "double", "real":
		return types.Float{}, nil
	case "string", "varchar":
		return types.String{}, nil
	case "text":
		return types.Text{}, nil
	case "boolean", "bool":
		return types.Boolean{}, nil
	case "datetime", "timestamp":
		return types.DateTime{}, nil
	case "timestamptz":
		return types.DateTime{Timezone: true}, nil
	case "date":
		return types.Date{}, nil
	case "interval":
		return types.Interval{}, nil
	case "binary", "blob", "bytea":
		return types.LargeBinary{}, nil
	case "json":
		return types.JSON{}, nil
	}
	return nil, fmt.Errorf("unknown column type %q", name)
}

func record(md *core.MetaData, m Mutation) (*unitofwork.MutationRecord, error) {
	t := md.Lookup(m.Table)
	if t == nil {
		return nil, fmt.Errorf("unknown table %q", m.Table)
	}
	r := &unitofwork.MutationRecord{ID: m.ID, Table: t, PK: m.Key, Values: m.Values}
	switch strings.ToLower(m.Op) {
	case "insert":
		r.Op = unitofwork.Insert
	case "update":
		r.Op = unitofwork.Update
	case "delete":
		r.Op = unitofwork.Delete
	default:
		return nil, fmt.Errorf("unknown op %q", m.Op)
	}
	if m.Version != nil {
		r.Version = &unitofwork.VersionCheck{Column: m.Version.Column, Expected: m.Version.Expected, Next: m.Version.Next}
	}
	return r, nil
}

func foreignKeyByColumns(t *core.Table, columns []string) (*core.ForeignKey, error) {
	want := strings.Join(columns, ",")
	for _, fk := range t.ForeignKeys() {
		if fk.ColumnNames() == want {
			return fk, nil
		}
	}
	return nil, fmt.Errorf("no foreign key on %s over (%s)", t.FullName(), want)
}
