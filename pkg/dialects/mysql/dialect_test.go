package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlforge/pkg/dialect"
	"github.com/leapstack-labs/sqlforge/pkg/operator"
	"github.com/leapstack-labs/sqlforge/pkg/types"
)

func TestBuild(t *testing.T) {
	d := MySQL

	assert.Equal(t, "mysql", d.Name)
	assert.Equal(t, dialect.ParamFormat, d.ParamStyle)
	assert.Equal(t, 64, d.MaxIdentifierLength)
	assert.False(t, d.Features.Returning)
	assert.False(t, d.Features.IntersectExcept)

	_, ok := d.OperatorOverride(operator.Concat)
	assert.True(t, ok)
	_, ok = d.FunctionOverride("LENGTH")
	assert.True(t, ok)
}

func TestDialectRegistration(t *testing.T) {
	d, ok := dialect.Get("mysql")
	require.True(t, ok)
	assert.Same(t, MySQL, d)
}

func TestIdentifierQuoting(t *testing.T) {
	assert.Equal(t, "users", MySQL.QuoteIdentifierIfNeeded("users"))
	assert.Equal(t, "`key`", MySQL.QuoteIdentifierIfNeeded("key"))
	assert.Equal(t, "`CamelCase`", MySQL.QuoteIdentifierIfNeeded("CamelCase"))
	assert.Equal(t, "`a``b`", MySQL.QuoteIdentifier("a`b"))
}

func TestTruncate(t *testing.T) {
	long := "a_label_that_is_much_longer_than_the_sixty_four_characters_mysql_allows"
	got := MySQL.Truncate(long)
	assert.Len(t, got, 64)
	assert.Equal(t, got, MySQL.Truncate(long))
}

func TestBooleanAdapter(t *testing.T) {
	v, err := dialect.TypeImpl(MySQL, types.Boolean{}).BindTransform(false)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)
	assert.Equal(t, "BOOL", types.Render(types.Boolean{}, MySQL))
}
