package adapter

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/sqlforge/pkg/compiler"
	"github.com/leapstack-labs/sqlforge/pkg/dialect"
)

// ErrNotConnected is returned when a statement runs before Connect.
var ErrNotConnected = errors.New("database connection not established")

// ExecQuerier is the part of *sql.DB and *sql.Tx an SQLExecutor needs.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// SQLExecutor implements Executor over database/sql.
type SQLExecutor struct {
	Conn       ExecQuerier
	D          *dialect.Dialect
	DriverName string
	Classifier Classifier
	Logger     *slog.Logger
}

// Dialect returns the executor's dialect.
func (e *SQLExecutor) Dialect() *dialect.Dialect { return e.D }

func (e *SQLExecutor) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

func (e *SQLExecutor) check(stmt *compiler.CompiledStatement) error {
	if e.Conn == nil {
		return ErrNotConnected
	}
	if stmt.Dialect != e.D {
		return fmt.Errorf("statement compiled for %s cannot run on %s", stmt.Dialect.Name, e.D.Name)
	}
	return nil
}

func (e *SQLExecutor) classify(stmt *compiler.CompiledStatement, err error) error {
	return ClassifyError(e.DriverName, e.Classifier, stmt.SQL, err)
}

// Exec executes a statement that doesn't return rows.
func (e *SQLExecutor) Exec(ctx context.Context, stmt *compiler.CompiledStatement, params []any) (sql.Result, error) {
	if err := e.check(stmt); err != nil {
		return nil, err
	}
	e.logger().Debug("exec", slog.String("sql", stmt.SQL), slog.Int("params", len(params)))
	res, err := e.Conn.ExecContext(ctx, stmt.SQL, params...)
	if err != nil {
		return nil, e.classify(stmt, err)
	}
	return res, nil
}

// ExecMany prepares stmt once and executes it for every group.
func (e *SQLExecutor) ExecMany(ctx context.Context, stmt *compiler.CompiledStatement, groups [][]any) (int64, error) {
	if err := e.check(stmt); err != nil {
		return 0, err
	}
	e.logger().Debug("exec many", slog.String("sql", stmt.SQL), slog.Int("groups", len(groups)))
	prepared, err := e.Conn.PrepareContext(ctx, stmt.SQL)
	if err != nil {
		return 0, e.classify(stmt, err)
	}
	defer func() { _ = prepared.Close() }()

	var total int64
	for _, params := range groups {
		res, err := prepared.ExecContext(ctx, params...)
		if err != nil {
			return total, e.classify(stmt, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}
	}
	return total, nil
}

// Query executes a statement that returns rows.
func (e *SQLExecutor) Query(ctx context.Context, stmt *compiler.CompiledStatement, params []any) (*Rows, error) {
	if err := e.check(stmt); err != nil {
		return nil, err
	}
	e.logger().Debug("query", slog.String("sql", stmt.SQL), slog.Int("params", len(params)))
	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := e.Conn.QueryContext(ctx, stmt.SQL, params...)
	if err != nil {
		return nil, e.classify(stmt, err)
	}
	return &Rows{Rows: rows, stmt: stmt}, nil
}

// Tx is a transaction together with an executor bound to it.
type Tx struct {
	*SQLExecutor
	tx *sql.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	return ClassifyError(t.DriverName, t.Classifier, "COMMIT", t.tx.Commit())
}

// Rollback aborts the transaction.
func (t *Tx) Rollback() error { return t.tx.Rollback() }

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Exec, ExecMany, Query and BeginTx implementations.
type BaseSQLAdapter struct {
	DB         *sql.DB
	Cfg        Config
	Logger     *slog.Logger
	D          *dialect.Dialect
	DriverName string
	Classifier Classifier
}

func (b *BaseSQLAdapter) executor(conn ExecQuerier) *SQLExecutor {
	return &SQLExecutor{Conn: conn, D: b.D, DriverName: b.DriverName, Classifier: b.Classifier, Logger: b.Logger}
}

// Open opens and pings a database/sql connection.
func (b *BaseSQLAdapter) Open(ctx context.Context, dsn string) error {
	db, err := sql.Open(b.DriverName, dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s connection: %w", b.DriverName, err)
	}
	return b.attach(ctx, db)
}

// OpenConnector opens a pool over a driver connector, for drivers that
// initialize each new connection.
func (b *BaseSQLAdapter) OpenConnector(ctx context.Context, c driver.Connector) error {
	return b.attach(ctx, sql.OpenDB(c))
}

func (b *BaseSQLAdapter) attach(ctx context.Context, db *sql.DB) error {
	if b.Logger == nil {
		b.Logger = slog.New(slog.DiscardHandler)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping %s: %w", b.DriverName, ClassifyError(b.DriverName, b.Classifier, "", err))
	}
	b.DB = db
	return nil
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// Dialect returns the adapter's dialect.
func (b *BaseSQLAdapter) Dialect() *dialect.Dialect { return b.D }

func (b *BaseSQLAdapter) conn() ExecQuerier {
	if b.DB == nil {
		return nil
	}
	return b.DB
}

// Exec executes a statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, stmt *compiler.CompiledStatement, params []any) (sql.Result, error) {
	return b.executor(b.conn()).Exec(ctx, stmt, params)
}

// ExecMany executes stmt once per parameter group.
func (b *BaseSQLAdapter) ExecMany(ctx context.Context, stmt *compiler.CompiledStatement, groups [][]any) (int64, error) {
	return b.executor(b.conn()).ExecMany(ctx, stmt, groups)
}

// Query executes a statement that returns rows.
func (b *BaseSQLAdapter) Query(ctx context.Context, stmt *compiler.CompiledStatement, params []any) (*Rows, error) {
	return b.executor(b.conn()).Query(ctx, stmt, params)
}

// BeginTx starts a transaction.
func (b *BaseSQLAdapter) BeginTx(ctx context.Context) (*Tx, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, ClassifyError(b.DriverName, b.Classifier, "BEGIN", err)
	}
	return &Tx{SQLExecutor: b.executor(tx), tx: tx}, nil
}
