package mysql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/leapstack-labs/sqlforge/pkg/adapter"
	"github.com/leapstack-labs/sqlforge/pkg/dialect"
	mysqldialect "github.com/leapstack-labs/sqlforge/pkg/dialects/mysql"
	"github.com/leapstack-labs/sqlforge/pkg/sqlerr"
)

const driverName = "mysql"

// Dialect is the MySQL dialect rendering ? placeholders, the style
// go-sql-driver/mysql accepts.
var Dialect = dialect.Clone(mysqldialect.MySQL, "mysql").
	ParamStyle(dialect.ParamQmark).
	Build()

// MySQL server error numbers.
const (
	errDuplicateEntry   = 1062
	errRowIsReferenced  = 1451 // cannot delete or update a parent row
	errNoReferencedRow  = 1452 // cannot add or update a child row
	errBadNull          = 1048
	errNoDefaultForNull = 1364
	errCheckViolated    = 3819
	errServerGone       = 2006
	errServerLost       = 2013
	errServerShutdown   = 1053
)

// Adapter implements the adapter.Adapter interface for MySQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new MySQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{
			Logger:     logger,
			D:          Dialect,
			DriverName: driverName,
			Classifier: adapter.ClassifierFunc(classify),
		},
	}
}

// Connect establishes a connection to MySQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return err
	}
	a.Logger.Debug("connecting to mysql", slog.String("host", cfg.Host), slog.String("database", cfg.Database))
	if err := a.Open(ctx, dsn); err != nil {
		return err
	}
	a.Cfg = cfg
	return nil
}

// buildDSN renders cfg through mysql.Config. A DSN given in cfg is parsed
// so the required flags can still be forced on.
func buildDSN(cfg adapter.Config) (string, error) {
	var mc *mysql.Config
	if cfg.DSN != "" {
		parsed, err := mysql.ParseDSN(cfg.DSN)
		if err != nil {
			return "", fmt.Errorf("invalid mysql dsn: %w", err)
		}
		mc = parsed
	} else {
		mc = mysql.NewConfig()
		host := cfg.Host
		if host == "" {
			host = "localhost"
		}
		port := cfg.Port
		if port == 0 {
			port = 3306
		}
		mc.Net = "tcp"
		mc.Addr = fmt.Sprintf("%s:%d", host, port)
		mc.DBName = cfg.Database
		mc.User = cfg.Username
		mc.Passwd = cfg.Password
	}
	mc.ClientFoundRows = true
	mc.ParseTime = true
	for k, v := range cfg.Options {
		if mc.Params == nil {
			mc.Params = make(map[string]string)
		}
		mc.Params[k] = v
	}
	return mc.FormatDSN(), nil
}

// classify maps MySQL server error numbers.
func classify(err error) error {
	if errors.Is(err, mysql.ErrInvalidConn) {
		return &sqlerr.DisconnectError{Driver: driverName, Err: err}
	}
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return nil
	}
	ce := &sqlerr.ConstraintError{Driver: driverName, Err: err}
	switch myErr.Number {
	case errDuplicateEntry:
		ce.Kind = sqlerr.ConstraintUnique
		ce.Constraint = duplicateKey(myErr.Message)
	case errRowIsReferenced, errNoReferencedRow:
		ce.Kind = sqlerr.ConstraintForeignKey
	case errBadNull, errNoDefaultForNull:
		ce.Kind = sqlerr.ConstraintNotNull
	case errCheckViolated:
		ce.Kind = sqlerr.ConstraintCheck
	case errServerGone, errServerLost, errServerShutdown:
		return &sqlerr.DisconnectError{Driver: driverName, Err: err}
	default:
		return nil
	}
	return ce
}

// duplicateKey extracts the key name from messages such as
// "Duplicate entry 'a' for key 'users.email'".
func duplicateKey(msg string) string {
	_, rest, ok := strings.Cut(msg, "for key '")
	if !ok {
		return ""
	}
	key, _, _ := strings.Cut(rest, "'")
	return key
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
