// Package mysql provides a MySQL adapter built on go-sql-driver/mysql.
//
// The adapter registers itself under "mysql". Connections always enable
// CLIENT_FOUND_ROWS so an UPDATE reports the rows its WHERE clause
// matched, which optimistic version checks rely on.
package mysql

import (
	"log/slog"

	"github.com/leapstack-labs/sqlforge/pkg/adapter"
)

func init() {
	adapter.Register("mysql", func(logger *slog.Logger) adapter.Adapter {
		return New(logger)
	})
}
