package unitofwork

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqlforge/pkg/core"
)

// StepKind is the kind of statement a step runs.
type StepKind int

const (
	StepInsert StepKind = iota
	StepUpdate
	StepDelete
	// StepPostUpdate sets foreign keys left NULL to break a cycle.
	StepPostUpdate
	// StepPreDelete clears foreign keys so cyclic rows can be deleted.
	StepPreDelete
)

func (k StepKind) String() string {
	switch k {
	case StepInsert:
		return "insert"
	case StepUpdate:
		return "update"
	case StepDelete:
		return "delete"
	case StepPostUpdate:
		return "post-update"
	case StepPreDelete:
		return "pre-delete"
	}
	return fmt.Sprintf("StepKind(%d)", int(k))
}

// Step is one unit of execution. Batched inserts carry several records;
// every other step carries one.
type Step struct {
	Index   int
	Kind    StepKind
	Table   *core.Table
	Records []*MutationRecord
	// Statement is the statement of the first record. Batched steps run
	// the same shape once per record.
	Statement core.Node

	nodes []core.Node
	// columns and unset describe batched insert rows.
	columns []*core.Column
	unset   []map[string]bool
	// generate names the key column filled in by the database.
	generate *core.Column
}

// Statements returns one statement per record.
func (s *Step) Statements() []core.Node { return s.nodes }

// Labels returns the labels of the step's records.
func (s *Step) Labels() []string {
	out := make([]string, len(s.Records))
	for i, r := range s.Records {
		out[i] = r.Label()
	}
	return out
}

func (s *Step) String() string {
	return fmt.Sprintf("%s %s [%s]", s.Kind, s.Table.FullName(), strings.Join(s.Labels(), " "))
}

// Plan is the ordered list of steps for one flush.
type Plan struct {
	FlushID string
	Steps   []*Step
	// Broken lists the edges relaxed to resolve cycles.
	Broken []Edge
}

// Order returns the record labels in execution order, one entry per
// step and record, prefixed with the step kind.
func (p *Plan) Order() []string {
	var out []string
	for _, s := range p.Steps {
		for _, l := range s.Labels() {
			out = append(out, s.Kind.String()+" "+l)
		}
	}
	return out
}

// Result summarizes an executed flush.
type Result struct {
	FlushID      string
	Steps        int
	Statements   int
	RowsAffected int64
}

// FlushError wraps the error that stopped a flush with the failing step.
type FlushError struct {
	Step *Step
	Err  error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("flush step %d (%s): %v", e.Step.Index, e.Step, e.Err)
}

func (e *FlushError) Unwrap() error { return e.Err }
