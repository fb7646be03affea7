package sqlite

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/leapstack-labs/sqlforge/pkg/adapter"
	sqlitedialect "github.com/leapstack-labs/sqlforge/pkg/dialects/sqlite"
	"github.com/leapstack-labs/sqlforge/pkg/sqlerr"
)

const driverName = "sqlite"

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{
			Logger:     logger,
			D:          sqlitedialect.SQLite,
			DriverName: driverName,
			Classifier: adapter.ClassifierFunc(classify),
		},
	}
}

// Connect opens the database at cfg.Path, or an in-memory database when
// no path is given. Foreign key enforcement is always switched on.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = buildDSN(cfg)
	}
	a.Logger.Debug("connecting to sqlite", slog.String("path", cfg.Path))
	if err := a.Open(ctx, dsn); err != nil {
		return err
	}
	if isMemory(cfg.Path) {
		// Every connection to :memory: is a separate database.
		a.DB.SetMaxOpenConns(1)
	}
	a.Cfg = cfg
	return nil
}

func isMemory(path string) bool {
	return path == "" || path == ":memory:"
}

// buildDSN renders a file: URI with pragmas for foreign keys, the busy
// timeout and any extra pragmas from cfg.Options.
func buildDSN(cfg adapter.Config) string {
	path := cfg.Path
	if isMemory(path) {
		path = ":memory:"
	}
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	busy := "5000"
	if v, ok := cfg.Options["busy_timeout"]; ok {
		busy = v
	}
	q.Add("_pragma", "busy_timeout("+busy+")")
	if mode, ok := cfg.Options["journal_mode"]; ok {
		q.Add("_pragma", "journal_mode("+mode+")")
	}
	return "file:" + path + "?" + q.Encode()
}

// classify maps SQLite extended result codes.
func classify(err error) error {
	var sqlErr *moderncsqlite.Error
	if !errors.As(err, &sqlErr) {
		return nil
	}
	ce := &sqlerr.ConstraintError{Driver: driverName, Err: err}
	switch sqlErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		ce.Kind = sqlerr.ConstraintUnique
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		ce.Kind = sqlerr.ConstraintForeignKey
	case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		ce.Kind = sqlerr.ConstraintNotNull
	case sqlite3.SQLITE_CONSTRAINT_CHECK:
		ce.Kind = sqlerr.ConstraintCheck
	default:
		if sqlErr.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
			return nil
		}
		ce.Kind = kindFromMessage(sqlErr.Error())
	}
	ce.Table = constraintTable(sqlErr.Error())
	return ce
}

// kindFromMessage covers connections that report only the primary
// SQLITE_CONSTRAINT code.
func kindFromMessage(msg string) sqlerr.ConstraintKind {
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return sqlerr.ConstraintUnique
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return sqlerr.ConstraintForeignKey
	case strings.Contains(msg, "NOT NULL constraint failed"):
		return sqlerr.ConstraintNotNull
	case strings.Contains(msg, "CHECK constraint failed"):
		return sqlerr.ConstraintCheck
	}
	return sqlerr.ConstraintUnknown
}

// constraintTable extracts the table from messages such as
// "UNIQUE constraint failed: users.email".
func constraintTable(msg string) string {
	_, rest, ok := strings.Cut(msg, "constraint failed: ")
	if !ok {
		return ""
	}
	table, _, ok := strings.Cut(rest, ".")
	if !ok {
		return ""
	}
	return table
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
