package sqlerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "type mismatch",
			err:  &TypeMismatchError{Op: "where", Expected: "boolean expression", Got: "string"},
			want: "sqlforge: where: expected boolean expression, got string",
		},
		{
			name: "missing parameter",
			err:  &MissingParameterError{Name: "age_1", Group: -1},
			want: `sqlforge: a value is required for bind parameter "age_1"`,
		},
		{
			name: "missing parameter in group",
			err:  &MissingParameterError{Name: "name", Group: 2},
			want: `sqlforge: a value is required for bind parameter "name", in parameter group 2`,
		},
		{
			name: "unsupported",
			err:  &UnsupportedCompilationError{Dialect: "mysql", Construct: "RETURNING"},
			want: `sqlforge: dialect "mysql" does not support RETURNING`,
		},
		{
			name: "stale",
			err:  &StaleDataError{Table: "users", Op: "UPDATE", Expected: 1, Matched: 0},
			want: `sqlforge: UPDATE statement on table "users" expected to match 1 row(s); 0 matched`,
		},
		{
			name: "cycle",
			err: &CircularDependencyError{Edges: []Edge{
				{From: "a#1", To: "b#1", Table: "b", Column: "a_id"},
				{From: "b#1", To: "a#1", Table: "a", Column: "b_id"},
			}},
			want: "sqlforge: circular dependency detected: a#1 -> b#1 (b.a_id), b#1 -> a#1 (a.b_id)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestClassificationHelpers(t *testing.T) {
	base := errors.New("boom")

	disconnect := fmt.Errorf("flush: %w", &DisconnectError{Driver: "pgx", Err: base})
	assert.True(t, IsDisconnect(disconnect))
	assert.ErrorIs(t, disconnect, base)
	assert.False(t, IsConstraint(disconnect))

	constraint := &ConstraintError{Kind: ConstraintForeignKey, Driver: "sqlite", Err: base}
	assert.True(t, IsConstraint(constraint))
	assert.Contains(t, constraint.Error(), "foreign key constraint violated")

	assert.True(t, IsStaleData(fmt.Errorf("x: %w", &StaleDataError{})))
	assert.True(t, IsCircularDependency(&CircularDependencyError{}))
	assert.False(t, IsCircularDependency(base))
}
