// Package adapter provides the executor contract the flush scheduler
// hands compiled DML to, plus a database/sql implementation of it.
//
// Concrete adapters live in pkg/adapters/ subdirectories and register a
// factory under their dialect name.
package adapter

import (
	"context"
	"database/sql"

	"github.com/leapstack-labs/sqlforge/pkg/compiler"
	"github.com/leapstack-labs/sqlforge/pkg/dialect"
)

// Config holds configuration for connecting to a database.
type Config struct {
	Type     string
	DSN      string // full connection string, overrides the fields below
	Path     string // file path for embedded databases
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Options  map[string]string
	Params   map[string]any // adapter specific settings
}

// Executor runs compiled statements against a live connection. Errors are
// classified into the sqlerr taxonomy.
type Executor interface {
	// Dialect returns the dialect statements must be compiled for.
	Dialect() *dialect.Dialect

	// Exec executes a statement that doesn't return rows.
	Exec(ctx context.Context, stmt *compiler.CompiledStatement, params []any) (sql.Result, error)

	// ExecMany executes stmt once per parameter group and returns the
	// total number of affected rows.
	ExecMany(ctx context.Context, stmt *compiler.CompiledStatement, groups [][]any) (int64, error)

	// Query executes a statement that returns rows.
	Query(ctx context.Context, stmt *compiler.CompiledStatement, params []any) (*Rows, error)
}

// TxBeginner starts transactions whose statements share one connection.
type TxBeginner interface {
	BeginTx(ctx context.Context) (*Tx, error)
}

// Adapter is a connectable Executor.
type Adapter interface {
	Executor
	TxBeginner

	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error
}

// Rows wraps sql.Rows with the statement it was produced by, so values
// can be converted through the result column types.
type Rows struct {
	*sql.Rows
	stmt *compiler.CompiledStatement
}

// Values scans the current row and applies result transforms.
func (r *Rows) Values() ([]any, error) {
	cols, err := r.Columns()
	if err != nil {
		return nil, err
	}
	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := r.Scan(ptrs...); err != nil {
		return nil, err
	}
	if r.stmt == nil || len(r.stmt.ResultColumns) != len(raw) {
		return raw, nil
	}
	return r.stmt.ProcessRow(raw)
}
