// Package sqlerr defines the classified errors raised by statement
// construction, compilation, parameter processing and flush execution.
//
// Every error carries the structured context needed to build an
// actionable message (table, column, parameter name, cycle edges) so that
// callers never have to re-derive it from logs. Use errors.As to inspect
// them; the Is* helpers cover the common checks.
package sqlerr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidState is returned when an operation is attempted in a state
// that does not allow it (e.g. adding records to a sorted flush).
var ErrInvalidState = errors.New("sqlforge: invalid state transition")

// TypeMismatchError is returned when a builder receives an argument of the
// wrong kind, such as a non-boolean expression passed to WHERE.
type TypeMismatchError struct {
	Op       string // builder operation, e.g. "where"
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("sqlforge: %s: expected %s, got %s", e.Op, e.Expected, e.Got)
}

// ArgumentError is returned when a builder receives arguments that are
// well-typed but cannot be used, e.g. a join with no inferable ON clause.
type ArgumentError struct {
	Op      string
	Message string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("sqlforge: %s: %s", e.Op, e.Message)
}

// TypeCoercionError is returned by a type's bind or result transform when
// the value lies outside the declared domain.
type TypeCoercionError struct {
	Type   string
	Value  any
	Reason string
	Column string // optional: column or parameter the value was bound to
}

func (e *TypeCoercionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "sqlforge: cannot coerce %T(%v) to %s", e.Value, e.Value, e.Type)
	if e.Column != "" {
		fmt.Fprintf(&b, " for %q", e.Column)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

// UnsupportedCompilationError is returned when a dialect cannot express a
// construct. The compiler never degrades such a construct silently.
type UnsupportedCompilationError struct {
	Dialect   string
	Construct string
	Hint      string
}

func (e *UnsupportedCompilationError) Error() string {
	msg := fmt.Sprintf("sqlforge: dialect %q does not support %s", e.Dialect, e.Construct)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

// MissingParameterError is returned when a required bind parameter has no
// value at execution time. It is detected before the executor is called.
type MissingParameterError struct {
	Name  string
	Group int // row index for executemany, -1 otherwise
}

func (e *MissingParameterError) Error() string {
	if e.Group >= 0 {
		return fmt.Sprintf("sqlforge: a value is required for bind parameter %q, in parameter group %d", e.Name, e.Group)
	}
	return fmt.Sprintf("sqlforge: a value is required for bind parameter %q", e.Name)
}

// Edge describes one dependency edge for diagnostics.
type Edge struct {
	From   string // label of the record that must run first
	To     string // label of the dependent record
	Table  string // table owning the foreign key
	Column string // foreign key columns, comma separated
}

func (e Edge) String() string {
	if e.Column == "" {
		return e.From + " -> " + e.To
	}
	return fmt.Sprintf("%s -> %s (%s.%s)", e.From, e.To, e.Table, e.Column)
}

// CircularDependencyError is returned when flush scheduling finds a cycle
// that cannot be broken with a post-update pass.
type CircularDependencyError struct {
	Edges []Edge
}

func (e *CircularDependencyError) Error() string {
	parts := make([]string, len(e.Edges))
	for i, edge := range e.Edges {
		parts[i] = edge.String()
	}
	return "sqlforge: circular dependency detected: " + strings.Join(parts, ", ")
}

// StaleDataError is returned when an UPDATE or DELETE guarded by a version
// or primary-key criterion matched fewer rows than expected.
type StaleDataError struct {
	Table    string
	Op       string
	Expected int64
	Matched  int64
}

func (e *StaleDataError) Error() string {
	return fmt.Sprintf("sqlforge: %s statement on table %q expected to match %d row(s); %d matched",
		e.Op, e.Table, e.Expected, e.Matched)
}

// DisconnectError marks an execution failure caused by a lost connection.
// The owning connection must be discarded rather than reused.
type DisconnectError struct {
	Driver string
	Err    error
}

func (e *DisconnectError) Error() string {
	return fmt.Sprintf("sqlforge: %s: connection invalidated: %v", e.Driver, e.Err)
}

func (e *DisconnectError) Unwrap() error { return e.Err }

// ConstraintKind classifies a constraint violation.
type ConstraintKind int

// Constraint kinds.
const (
	ConstraintUnknown ConstraintKind = iota
	ConstraintUnique
	ConstraintForeignKey
	ConstraintNotNull
	ConstraintCheck
)

func (k ConstraintKind) String() string {
	switch k {
	case ConstraintUnique:
		return "unique"
	case ConstraintForeignKey:
		return "foreign key"
	case ConstraintNotNull:
		return "not null"
	case ConstraintCheck:
		return "check"
	default:
		return "integrity"
	}
}

// ConstraintError is a classified integrity violation surfaced by the
// database during execution.
type ConstraintError struct {
	Kind       ConstraintKind
	Driver     string
	Constraint string // constraint name when the driver reports it
	Table      string
	Err        error
}

func (e *ConstraintError) Error() string {
	msg := fmt.Sprintf("sqlforge: %s: %s constraint violated", e.Driver, e.Kind)
	if e.Constraint != "" {
		msg += fmt.Sprintf(" (%s)", e.Constraint)
	}
	return msg + ": " + e.Err.Error()
}

func (e *ConstraintError) Unwrap() error { return e.Err }

// DBAPIError wraps a driver error that matched no other classification.
type DBAPIError struct {
	Driver    string
	Statement string
	Err       error
}

func (e *DBAPIError) Error() string {
	return fmt.Sprintf("sqlforge: %s: %v [SQL: %s]", e.Driver, e.Err, e.Statement)
}

func (e *DBAPIError) Unwrap() error { return e.Err }

// IsDisconnect reports whether err was classified as a disconnect.
func IsDisconnect(err error) bool {
	var e *DisconnectError
	return errors.As(err, &e)
}

// IsConstraint reports whether err is a classified constraint violation.
func IsConstraint(err error) bool {
	var e *ConstraintError
	return errors.As(err, &e)
}

// IsStaleData reports whether err is a StaleDataError.
func IsStaleData(err error) bool {
	var e *StaleDataError
	return errors.As(err, &e)
}

// IsCircularDependency reports whether err is a CircularDependencyError.
func IsCircularDependency(err error) bool {
	var e *CircularDependencyError
	return errors.As(err, &e)
}
