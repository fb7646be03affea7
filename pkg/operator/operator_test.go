package operator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinMetadata(t *testing.T) {
	assert.Equal(t, "=", Eq.String())
	assert.Equal(t, "NOT LIKE", NotLike.String())
	assert.True(t, IsComparison(Gt))
	assert.True(t, IsBoolean(And))
	assert.False(t, IsBoolean(Add))
	assert.Greater(t, Precedence(Mul), Precedence(Add))
	assert.Greater(t, Precedence(And), Precedence(Or))
	assert.True(t, IsAssociative(Add))
	assert.False(t, IsAssociative(Sub))
	assert.Equal(t, "OP(12345)", Op(12345).String())
}

func TestNegate(t *testing.T) {
	pairs := map[Op]Op{Eq: Ne, Lt: Ge, Gt: Le, Is: IsNot, Like: NotLike, In: NotIn, Between: NotBetween}
	for op, want := range pairs {
		got, ok := Negate(op)
		require.True(t, ok, op.String())
		assert.Equal(t, want, got)

		back, ok := Negate(got)
		require.True(t, ok)
		assert.Equal(t, op, back)
	}

	_, ok := Negate(Add)
	assert.False(t, ok)
}

func TestRegister(t *testing.T) {
	op := Register("test_contains", "@>", PrecedenceComparison, true)
	assert.True(t, IsDynamic(op))
	assert.Equal(t, "@>", op.String())
	assert.True(t, IsComparison(op))
	assert.Equal(t, PrecedenceComparison, Precedence(op))

	again := Register("TEST_CONTAINS", "@>", PrecedenceComparison, true)
	assert.Equal(t, op, again)

	found, ok := Lookup("test_contains")
	require.True(t, ok)
	assert.Equal(t, op, found)

	_, ok = Lookup("nope")
	assert.False(t, ok)
}
