package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx database/sql driver

	"github.com/leapstack-labs/sqlforge/pkg/adapter"
	pgdialect "github.com/leapstack-labs/sqlforge/pkg/dialects/postgres"
	"github.com/leapstack-labs/sqlforge/pkg/sqlerr"
)

const driverName = "pgx"

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{
			Logger:     logger,
			D:          pgdialect.Postgres,
			DriverName: driverName,
			Classifier: adapter.ClassifierFunc(classify),
		},
	}
}

// Connect establishes a connection to PostgreSQL. cfg.DSN, when set, is
// passed to pgx unchanged.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = buildPostgresDSN(cfg)
	}
	a.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))
	if err := a.Open(ctx, dsn); err != nil {
		return err
	}
	a.Cfg = cfg
	return nil
}

// buildPostgresDSN constructs a PostgreSQL connection string.
func buildPostgresDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)

	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}
	return dsn
}

// classify maps SQLSTATE codes: class 23 is integrity constraint
// violation, class 08 and 57P01 mean the connection is gone.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	ce := &sqlerr.ConstraintError{Driver: driverName, Constraint: pgErr.ConstraintName, Table: pgErr.TableName, Err: err}
	switch pgErr.Code {
	case "23505":
		ce.Kind = sqlerr.ConstraintUnique
	case "23503":
		ce.Kind = sqlerr.ConstraintForeignKey
	case "23502":
		ce.Kind = sqlerr.ConstraintNotNull
	case "23514":
		ce.Kind = sqlerr.ConstraintCheck
	case "57P01":
		return &sqlerr.DisconnectError{Driver: driverName, Err: err}
	default:
		switch {
		case strings.HasPrefix(pgErr.Code, "23"):
			ce.Kind = sqlerr.ConstraintUnknown
		case strings.HasPrefix(pgErr.Code, "08"):
			return &sqlerr.DisconnectError{Driver: driverName, Err: err}
		default:
			return nil
		}
	}
	return ce
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
