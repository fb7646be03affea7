// Package postgres provides the PostgreSQL adapter, backed by pgx.
//
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/sqlforge/pkg/adapters/postgres"
package postgres

import (
	"log/slog"

	"github.com/leapstack-labs/sqlforge/pkg/adapter"
)

func init() {
	adapter.Register("postgres", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
