package duckdb

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/marcboeker/go-duckdb"

	"github.com/leapstack-labs/sqlforge/pkg/adapter"
	duckdbdialect "github.com/leapstack-labs/sqlforge/pkg/dialects/duckdb"
	"github.com/leapstack-labs/sqlforge/pkg/sqlerr"
)

const driverName = "duckdb"

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
	params *Params
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{
			Logger:     logger,
			D:          duckdbdialect.DuckDB,
			DriverName: driverName,
			Classifier: adapter.ClassifierFunc(classify),
		},
	}
}

// Connect opens the database at cfg.Path, or an in-memory database when
// no path is given. Extensions and settings from cfg.Params are applied
// to every pooled connection; secrets are created once.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}
	path := cfg.DSN
	if path == "" {
		path = cfg.Path
	}
	if path == ":memory:" {
		path = ""
	}
	a.Logger.Debug("connecting to duckdb", slog.String("path", cfg.Path),
		slog.Int("extensions", len(params.Extensions)), slog.Int("settings", len(params.Settings)))

	connector, err := duckdb.NewConnector(path, func(execer driver.ExecerContext) error {
		return initConn(context.Background(), execer, params)
	})
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := a.OpenConnector(ctx, connector); err != nil {
		return err
	}
	for _, s := range params.Secrets {
		if _, err := a.DB.ExecContext(ctx, buildCreateSecretSQL(s)); err != nil {
			_ = a.DB.Close()
			a.DB = nil
			return fmt.Errorf("failed to create %s secret: %w", s.Type, err)
		}
	}
	a.Cfg = cfg
	a.params = params
	return nil
}

// initConn loads extensions, installing them when they are not yet
// available locally, then applies settings.
func initConn(ctx context.Context, execer driver.ExecerContext, p *Params) error {
	exec := func(query string) error {
		_, err := execer.ExecContext(ctx, query, nil)
		return err
	}
	for _, ext := range p.Extensions {
		if err := exec("LOAD " + ext); err == nil {
			continue
		}
		if err := exec("INSTALL " + ext); err != nil {
			return fmt.Errorf("failed to install extension %s: %w", ext, err)
		}
		if err := exec("LOAD " + ext); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}
	for name, value := range p.Settings {
		if err := exec(fmt.Sprintf("SET %s = %s", name, quoteLiteral(value))); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", name, err)
		}
	}
	return nil
}

// classify maps DuckDB errors by their message, which carries the error
// class as a prefix.
func classify(err error) error {
	var dErr *duckdb.Error
	if !errors.As(err, &dErr) {
		return nil
	}
	msg := dErr.Msg
	switch {
	case strings.HasPrefix(msg, "Connection Error"):
		return &sqlerr.DisconnectError{Driver: driverName, Err: err}
	case !strings.HasPrefix(msg, "Constraint Error"):
		return nil
	}
	ce := &sqlerr.ConstraintError{Driver: driverName, Err: err}
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "unique constraint"), strings.Contains(lower, "primary key constraint"):
		ce.Kind = sqlerr.ConstraintUnique
	case strings.Contains(lower, "foreign key constraint"):
		ce.Kind = sqlerr.ConstraintForeignKey
	case strings.Contains(lower, "not null constraint"):
		ce.Kind = sqlerr.ConstraintNotNull
	case strings.Contains(lower, "check constraint"):
		ce.Kind = sqlerr.ConstraintCheck
	default:
		ce.Kind = sqlerr.ConstraintUnknown
	}
	if _, rest, ok := strings.Cut(msg, "constraint failed: "); ok {
		ce.Table, _, _ = strings.Cut(rest, ".")
	}
	return ce
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
