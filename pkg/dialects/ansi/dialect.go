package ansi

import "github.com/leapstack-labs/sqlforge/pkg/dialect"

func init() {
	dialect.Register(ANSI)
}

// ANSI is the base ANSI SQL dialect.
var ANSI = dialect.New(Config).Build()
