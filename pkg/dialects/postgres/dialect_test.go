package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlforge/pkg/core"
	"github.com/leapstack-labs/sqlforge/pkg/dialect"
	"github.com/leapstack-labs/sqlforge/pkg/types"
)

func TestBuild(t *testing.T) {
	d := Postgres

	assert.Equal(t, "postgres", d.Name)
	assert.Equal(t, "pgx", d.DriverName)
	assert.Equal(t, "public", d.DefaultSchema)
	assert.Equal(t, dialect.ParamDollar, d.ParamStyle)
	assert.True(t, d.Features.Returning)
	assert.True(t, d.Features.Ilike)

	_, ok := d.Override(core.KindCast)
	assert.True(t, ok)
	_, ok = d.OperatorOverride(dialect.ILike())
	assert.False(t, ok, "ILIKE is native")
}

func TestDialectRegistration(t *testing.T) {
	d, ok := dialect.Get("postgres")
	require.True(t, ok)
	assert.Same(t, Postgres, d)
}

func TestReservedWords(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"user", `"user"`},
		{"order", `"order"`},
		{"returning", `"returning"`},
		{"customer", "customer"},
		{"CustomerID", `"CustomerID"`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Postgres.QuoteIdentifierIfNeeded(tt.in), tt.in)
	}
}

func TestTypeNames(t *testing.T) {
	assert.Equal(t, "DOUBLE PRECISION", types.Render(types.Float{}, Postgres))
	assert.Equal(t, "BYTEA", types.Render(types.LargeBinary{}, Postgres))
	assert.Equal(t, "JSONB", types.Render(types.JSON{}, Postgres))
}
