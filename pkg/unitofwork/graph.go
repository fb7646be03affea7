// Package unitofwork orders pending row mutations into executable DML.
//
// Callers describe each pending change as a MutationRecord, naming the
// records it references through foreign keys. BuildGraph turns those
// references into ordering edges; a Scheduler sorts the graph, breaks
// cycles through nullable or deferrable foreign keys, and executes the
// resulting plan through an adapter.Executor.
package unitofwork

import (
	"fmt"

	"github.com/leapstack-labs/sqlforge/pkg/core"
	"github.com/leapstack-labs/sqlforge/pkg/sqlerr"
)

// Op is the kind of change a record applies.
type Op int

const (
	Insert Op = iota
	Update
	Delete
)

func (o Op) String() string {
	switch o {
	case Insert:
		return "INSERT"
	case Update:
		return "UPDATE"
	case Delete:
		return "DELETE"
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// RelationshipProvider supplies the foreign keys from child to parent.
type RelationshipProvider interface {
	ForeignKeys(child, parent *core.Table) []*core.ForeignKey
}

// MetaDataProvider reads foreign keys from table definitions. When
// MetaData is set, tables outside it have no relationships.
type MetaDataProvider struct {
	MetaData *core.MetaData
}

// ForeignKeys returns the constraints declared on child that refer to parent.
func (p MetaDataProvider) ForeignKeys(child, parent *core.Table) []*core.ForeignKey {
	if p.MetaData != nil && (child.MetaData() != p.MetaData || parent.MetaData() != p.MetaData) {
		return nil
	}
	var out []*core.ForeignKey
	for _, fk := range child.ForeignKeys() {
		if fk.ReferredTable() == parent {
			out = append(out, fk)
		}
	}
	return out
}

// VersionCheck guards an update or delete with an optimistic
// concurrency counter.
type VersionCheck struct {
	// Column defaults to the table's version column.
	Column string
	// Expected is the value the row must still hold.
	Expected any
	// Next is written by updates. When nil and Expected is an integer,
	// Expected+1 is written.
	Next any
}

func (v *VersionCheck) next() any {
	if v.Next != nil {
		return v.Next
	}
	switch x := v.Expected.(type) {
	case int:
		return x + 1
	case int64:
		return x + 1
	case int32:
		return x + 1
	}
	return v.Expected
}

// MutationRecord is one pending row change.
type MutationRecord struct {
	// ID labels the record in plans and errors. Defaults to table#n.
	ID    string
	Op    Op
	Table *core.Table
	// PK identifies the row for updates and deletes, and may carry
	// explicit keys for inserts.
	PK map[string]any
	// Values holds the changed columns.
	Values map[string]any
	// DependsOn lists the records whose rows this row references.
	DependsOn []Reference
	Version   *VersionCheck

	seq       int
	label     string
	generated map[string]any
}

// Reference says the owning record's row refers to Target's row. FK may
// be nil when exactly one foreign key links the two tables.
type Reference struct {
	Target *MutationRecord
	FK     *core.ForeignKey
}

// Label returns the record's name in plans and errors.
func (r *MutationRecord) Label() string {
	if r.label != "" {
		return r.label
	}
	return r.ID
}

// Value returns the value the row holds for column once the record is
// applied. Foreign key columns named by a reference follow the
// referenced row, so keys generated during the flush propagate.
func (r *MutationRecord) Value(column string) (any, bool) {
	if v, ok := r.generated[column]; ok {
		return v, true
	}
	for _, ref := range r.DependsOn {
		if ref.FK == nil || ref.Target == nil {
			continue
		}
		refCols := ref.FK.ReferredColumns()
		for i, c := range ref.FK.Columns() {
			if c.Name() != column || i >= len(refCols) {
				continue
			}
			if ref.Target == r {
				return r.ownValue(refCols[i].Name())
			}
			return ref.Target.Value(refCols[i].Name())
		}
	}
	return r.ownValue(column)
}

func (r *MutationRecord) ownValue(column string) (any, bool) {
	if v, ok := r.generated[column]; ok {
		return v, true
	}
	if v, ok := r.Values[column]; ok {
		return v, true
	}
	v, ok := r.PK[column]
	return v, ok
}

// keyValue returns the value identifying the row before the change.
func (r *MutationRecord) keyValue(column string) (any, bool) {
	if v, ok := r.PK[column]; ok {
		return v, true
	}
	return r.Value(column)
}

func (r *MutationRecord) setGenerated(column string, v any) {
	if r.generated == nil {
		r.generated = make(map[string]any)
	}
	r.generated[column] = v
}

// EdgeReason says why an edge exists.
type EdgeReason int

const (
	// ForeignKeyOrdering edges keep a referenced row present while the
	// referencing row needs it.
	ForeignKeyOrdering EdgeReason = iota
	// Related edges move a referencing row away before its old parent
	// is deleted.
	Related
)

func (r EdgeReason) String() string {
	if r == Related {
		return "related"
	}
	return "foreign key"
}

// Edge orders From before To.
type Edge struct {
	From, To *MutationRecord
	Reason   EdgeReason
	FK       *core.ForeignKey
}

// Child returns the record whose row holds the foreign key.
func (e Edge) Child() *MutationRecord {
	if e.To.Op == Delete || e.Reason == Related {
		return e.From
	}
	return e.To
}

// breakable reports whether the edge may be relaxed to resolve a cycle:
// the child is written with the key unset and fixed up afterwards, or
// the constraint is checked at commit.
func (e Edge) breakable() bool {
	if e.Reason != ForeignKeyOrdering || e.FK == nil {
		return false
	}
	return e.FK.Nullable() || e.FK.Deferrable
}

func (e Edge) sqlerrEdge() sqlerr.Edge {
	out := sqlerr.Edge{From: e.From.Label(), To: e.To.Label()}
	if e.FK != nil {
		out.Table = e.FK.Parent().Name()
		out.Column = e.FK.ColumnNames()
	}
	return out
}

func (e Edge) String() string { return e.sqlerrEdge().String() }

// DependencyGraph is the set of records of one flush and the edges
// between them.
type DependencyGraph struct {
	Records []*MutationRecord
	Edges   []Edge
}

// BuildGraph derives ordering edges from the records' references.
// Edges are only drawn between individual rows, so rows of a
// self-referencing table are ordered against the rows they point at and
// nothing else. A row that references itself needs no edge.
func BuildGraph(records []*MutationRecord, provider RelationshipProvider) (*DependencyGraph, error) {
	if provider == nil {
		provider = MetaDataProvider{}
	}
	member := make(map[*MutationRecord]bool, len(records))
	labels := make(map[string]bool, len(records))
	perTable := make(map[*core.Table]int)
	for i, r := range records {
		if r.Table == nil {
			return nil, &sqlerr.ArgumentError{Op: "flush", Message: fmt.Sprintf("record %d has no table", i)}
		}
		if member[r] {
			return nil, &sqlerr.ArgumentError{Op: "flush", Message: fmt.Sprintf("record %d was added twice", i)}
		}
		member[r] = true
		r.seq = i
		perTable[r.Table]++
		r.label = r.ID
		if r.label == "" {
			r.label = fmt.Sprintf("%s#%d", r.Table.Name(), perTable[r.Table])
		}
		if labels[r.label] {
			return nil, &sqlerr.ArgumentError{Op: "flush", Message: fmt.Sprintf("duplicate record id %q", r.label)}
		}
		labels[r.label] = true
	}

	g := &DependencyGraph{Records: records}
	for _, r := range records {
		for i := range r.DependsOn {
			ref := &r.DependsOn[i]
			if ref.Target == nil || !member[ref.Target] {
				return nil, &sqlerr.ArgumentError{Op: "flush", Message: fmt.Sprintf("%s references a record outside the flush", r.Label())}
			}
			fk, err := resolveFK(r, ref, provider)
			if err != nil {
				return nil, err
			}
			ref.FK = fk
			if ref.Target == r {
				continue
			}
			edge, ok, err := edgeFor(r, ref.Target, fk)
			if err != nil {
				return nil, err
			}
			if ok {
				g.Edges = append(g.Edges, edge)
			}
		}
	}
	return g, nil
}

func resolveFK(r *MutationRecord, ref *Reference, provider RelationshipProvider) (*core.ForeignKey, error) {
	target := ref.Target
	if ref.FK != nil {
		if ref.FK.Parent() != r.Table || ref.FK.ReferredTable() != target.Table {
			return nil, &sqlerr.ArgumentError{Op: "flush", Message: fmt.Sprintf("%s: foreign key %s does not link %s to %s",
				r.Label(), ref.FK, r.Table.FullName(), target.Table.FullName())}
		}
		return ref.FK, nil
	}
	fks := provider.ForeignKeys(r.Table, target.Table)
	switch len(fks) {
	case 1:
		return fks[0], nil
	case 0:
		return nil, &sqlerr.ArgumentError{Op: "flush", Message: fmt.Sprintf("%s: no foreign key links %s to %s",
			r.Label(), r.Table.FullName(), target.Table.FullName())}
	}
	return nil, &sqlerr.ArgumentError{Op: "flush", Message: fmt.Sprintf("%s: %d foreign keys link %s to %s, name one in the reference",
		r.Label(), len(fks), r.Table.FullName(), target.Table.FullName())}
}

// edgeFor orders child record r against the parent record it references.
func edgeFor(r, parent *MutationRecord, fk *core.ForeignKey) (Edge, bool, error) {
	switch {
	case r.Op == Delete && parent.Op == Delete:
		// The referencing row goes first.
		return Edge{From: r, To: parent, Reason: ForeignKeyOrdering, FK: fk}, true, nil
	case r.Op == Delete:
		return Edge{}, false, nil
	case parent.Op == Delete && r.Op == Update:
		return Edge{From: r, To: parent, Reason: Related, FK: fk}, true, nil
	case parent.Op == Delete:
		return Edge{}, false, &sqlerr.ArgumentError{Op: "flush",
			Message: fmt.Sprintf("%s references %s, which is being deleted", r.Label(), parent.Label())}
	}
	return Edge{From: parent, To: r, Reason: ForeignKeyOrdering, FK: fk}, true, nil
}
