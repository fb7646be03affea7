package unitofwork

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlforge/internal/testutil"
	"github.com/leapstack-labs/sqlforge/pkg/adapter"
	"github.com/leapstack-labs/sqlforge/pkg/compiler"
	"github.com/leapstack-labs/sqlforge/pkg/core"
	"github.com/leapstack-labs/sqlforge/pkg/dialect"
	"github.com/leapstack-labs/sqlforge/pkg/dialects/sqlite"
	"github.com/leapstack-labs/sqlforge/pkg/sqlerr"
	"github.com/leapstack-labs/sqlforge/pkg/types"
)

type call struct {
	SQL  string
	Args []any
}

// recorder is an Executor that records statements instead of running
// them.
type recorder struct {
	d          *dialect.Dialect
	calls      []call
	affected   map[int]int64
	errs       map[int]error
	noRowcount bool
}

// noRowcount is a driver result that cannot report affected rows.
type noRowcount struct{}

func (noRowcount) LastInsertId() (int64, error) { return 0, errors.New("no insert id") }
func (noRowcount) RowsAffected() (int64, error) { return 0, errors.New("rowcount not supported") }

func newRecorder() *recorder { return &recorder{d: sqlite.SQLite} }

func (r *recorder) Dialect() *dialect.Dialect { return r.d }

func (r *recorder) Exec(_ context.Context, stmt *compiler.CompiledStatement, params []any) (sql.Result, error) {
	i := len(r.calls)
	r.calls = append(r.calls, call{SQL: stmt.SQL, Args: params})
	if err := r.errs[i]; err != nil {
		return nil, err
	}
	if r.noRowcount {
		return noRowcount{}, nil
	}
	n, ok := r.affected[i]
	if !ok {
		n = 1
	}
	return driver.RowsAffected(n), nil
}

func (r *recorder) ExecMany(_ context.Context, stmt *compiler.CompiledStatement, groups [][]any) (int64, error) {
	for _, g := range groups {
		r.calls = append(r.calls, call{SQL: stmt.SQL, Args: g})
	}
	return int64(len(groups)), nil
}

func (r *recorder) Query(context.Context, *compiler.CompiledStatement, []any) (*adapter.Rows, error) {
	return nil, errors.New("unexpected query")
}

func mutualSchema(nullable bool) (a, b *core.Table) {
	md := core.NewMetaData()
	opt := core.NotNull()
	if nullable {
		opt = func(*core.Column) {}
	}
	a = md.Table("a",
		core.NewColumn("id", types.Integer{}, core.PrimaryKey()),
		core.NewColumn("b_id", types.Integer{}, opt, core.References("b.id")),
	)
	b = md.Table("b",
		core.NewColumn("id", types.Integer{}, core.PrimaryKey()),
		core.NewColumn("a_id", types.Integer{}, opt, core.References("a.id")),
	)
	return a, b
}

func newScheduler(t *testing.T, records ...*MutationRecord) *Scheduler {
	t.Helper()
	s := New(Config{Logger: testutil.NewTestLogger(t)})
	require.NoError(t, s.Add(records...))
	return s
}

func TestScheduler_ParentBeforeChild(t *testing.T) {
	shop := newShop()
	c := &MutationRecord{Op: Insert, Table: shop.customers, Values: map[string]any{"id": 1, "name": "acme"}}
	o := &MutationRecord{Op: Insert, Table: shop.orders, Values: map[string]any{"id": 10, "total": 5}, DependsOn: []Reference{{Target: c}}}

	s := newScheduler(t, o, c)
	plan, err := s.Sort()
	require.NoError(t, err)
	assert.Equal(t, []string{"insert customers#1", "insert orders#1"}, plan.Order())

	rec := newRecorder()
	res, err := s.Execute(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, []call{
		{SQL: "INSERT INTO customers (id, name) VALUES (?, ?)", Args: []any{int64(1), "acme"}},
		{SQL: "INSERT INTO orders (id, customer_id, total) VALUES (?, ?, ?)", Args: []any{int64(10), int64(1), int64(5)}},
	}, rec.calls)
	assert.Equal(t, 2, res.Statements)
	assert.Equal(t, StateCommitted, s.State())
	assert.Equal(t, s.ID(), res.FlushID)
}

func TestScheduler_UnbreakableCycle(t *testing.T) {
	ta, tb := mutualSchema(false)
	ra := &MutationRecord{Op: Insert, Table: ta, Values: map[string]any{"id": 1}}
	rb := &MutationRecord{Op: Insert, Table: tb, Values: map[string]any{"id": 2}}
	ra.DependsOn = []Reference{{Target: rb}}
	rb.DependsOn = []Reference{{Target: ra}}

	s := newScheduler(t, ra, rb)
	_, err := s.Sort()
	var cycle *sqlerr.CircularDependencyError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []sqlerr.Edge{
		{From: "a#1", To: "b#1", Table: "b", Column: "a_id"},
		{From: "b#1", To: "a#1", Table: "a", Column: "b_id"},
	}, cycle.Edges)
	assert.Equal(t, StateFailed, s.State())
}

func TestScheduler_NullableCycleUsesPostUpdate(t *testing.T) {
	ta, tb := mutualSchema(true)
	ra := &MutationRecord{Op: Insert, Table: ta, Values: map[string]any{"id": 1}}
	rb := &MutationRecord{Op: Insert, Table: tb, Values: map[string]any{"id": 2}}
	ra.DependsOn = []Reference{{Target: rb}}
	rb.DependsOn = []Reference{{Target: ra}}

	s := newScheduler(t, rb, ra)
	plan, err := s.Sort()
	require.NoError(t, err)
	assert.Equal(t, []string{"insert a#1", "insert b#1", "post-update a#1"}, plan.Order())
	require.Len(t, plan.Broken, 1)
	assert.Same(t, ra, plan.Broken[0].Child())

	rec := newRecorder()
	_, err = s.Execute(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, []call{
		{SQL: "INSERT INTO a (id, b_id) VALUES (?, ?)", Args: []any{int64(1), nil}},
		{SQL: "INSERT INTO b (id, a_id) VALUES (?, ?)", Args: []any{int64(2), int64(1)}},
		{SQL: "UPDATE a SET b_id = ? WHERE id = ?", Args: []any{int64(2), int64(1)}},
	}, rec.calls)
	assert.Equal(t, StateCommitted, s.State())
}

func TestScheduler_DeferrableCycleIsRelaxed(t *testing.T) {
	md := core.NewMetaData()
	ta := md.Table("a",
		core.NewColumn("id", types.Integer{}, core.PrimaryKey()),
		core.NewColumn("b_id", types.Integer{}, core.NotNull(), core.References("b.id", core.Deferrable())),
	)
	tb := md.Table("b",
		core.NewColumn("id", types.Integer{}, core.PrimaryKey()),
		core.NewColumn("a_id", types.Integer{}, core.NotNull(), core.References("a.id")),
	)
	ra := &MutationRecord{Op: Insert, Table: ta, Values: map[string]any{"id": 1}}
	rb := &MutationRecord{Op: Insert, Table: tb, Values: map[string]any{"id": 2}}
	ra.DependsOn = []Reference{{Target: rb}}
	rb.DependsOn = []Reference{{Target: ra}}

	s := newScheduler(t, ra, rb)
	plan, err := s.Sort()
	require.NoError(t, err)
	assert.Equal(t, []string{"insert a#1", "insert b#1"}, plan.Order())

	rec := newRecorder()
	_, err = s.Execute(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2)}, rec.calls[0].Args)
}

func TestScheduler_DeleteCycleUsesPreDelete(t *testing.T) {
	ta, tb := mutualSchema(true)
	ra := &MutationRecord{Op: Delete, Table: ta, PK: map[string]any{"id": 1}}
	rb := &MutationRecord{Op: Delete, Table: tb, PK: map[string]any{"id": 2}}
	ra.DependsOn = []Reference{{Target: rb}}
	rb.DependsOn = []Reference{{Target: ra}}

	s := newScheduler(t, ra, rb)
	plan, err := s.Sort()
	require.NoError(t, err)
	assert.Equal(t, []string{"pre-delete b#1", "delete a#1", "delete b#1"}, plan.Order())

	rec := newRecorder()
	_, err = s.Execute(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, []call{
		{SQL: "UPDATE b SET a_id = NULL WHERE id = ?", Args: []any{int64(2)}},
		{SQL: "DELETE FROM a WHERE id = ?", Args: []any{int64(1)}},
		{SQL: "DELETE FROM b WHERE id = ?", Args: []any{int64(2)}},
	}, rec.calls)
}

func TestScheduler_SelfReferencingRows(t *testing.T) {
	md := core.NewMetaData()
	emp := md.Table("employees",
		core.NewColumn("id", types.Integer{}, core.PrimaryKey()),
		core.NewColumn("manager_id", types.Integer{}, core.References("employees.id")),
		core.NewColumn("name", types.String{}),
	)
	boss := &MutationRecord{ID: "boss", Op: Insert, Table: emp, Values: map[string]any{"id": 2, "name": "ann"}}
	worker := &MutationRecord{ID: "worker", Op: Insert, Table: emp, Values: map[string]any{"id": 1, "name": "bob"},
		DependsOn: []Reference{{Target: boss}}}

	s := newScheduler(t, worker, boss)
	plan, err := s.Sort()
	require.NoError(t, err)
	// Key order would put worker first; the row edge wins.
	assert.Equal(t, []string{"insert boss", "insert worker"}, plan.Order())
	assert.Empty(t, plan.Broken)
}

func TestScheduler_TieBreak(t *testing.T) {
	shop := newShop()
	add := func(id any) *MutationRecord {
		return &MutationRecord{Op: Delete, Table: shop.customers, PK: map[string]any{"id": id}}
	}
	o := &MutationRecord{Op: Delete, Table: shop.orders, PK: map[string]any{"id": 1}}
	s := newScheduler(t, o, add(30), add(4), add(nil), add("b"), add("a"))

	plan, err := s.Sort()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"delete customers#2", "delete customers#1", "delete customers#5",
		"delete customers#4", "delete customers#3", "delete orders#1",
	}, plan.Order())
}

func TestCompareKeys(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want int
	}{
		{name: "ints", a: 2, b: 10, want: -1},
		{name: "mixed numeric", a: int64(3), b: 2.5, want: 1},
		{name: "large ints", a: int64(1 << 60), b: int64(1<<60 + 1), want: -1},
		{name: "numbers before strings", a: "1", b: 9, want: 1},
		{name: "strings", a: "a", b: "b", want: -1},
		{name: "nil last", a: nil, b: "z", want: 1},
		{name: "equal", a: 7, b: int32(7), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compareKeys(tt.a, true, tt.b, true))
		})
	}
	assert.Equal(t, -1, compareKeys(1, true, nil, false))
}

func TestScheduler_BatchesInserts(t *testing.T) {
	shop := newShop()
	records := func() []*MutationRecord {
		return []*MutationRecord{
			{Op: Insert, Table: shop.customers, Values: map[string]any{"id": 3, "name": "c"}},
			{Op: Insert, Table: shop.customers, Values: map[string]any{"id": 1, "name": "a"}},
			{Op: Insert, Table: shop.customers, Values: map[string]any{"id": 2, "name": "b"}},
		}
	}

	t.Run("multi-row values", func(t *testing.T) {
		s := newScheduler(t, records()...)
		plan, err := s.Sort()
		require.NoError(t, err)
		require.Len(t, plan.Steps, 1)
		assert.Len(t, plan.Steps[0].Statements(), 3)

		rec := newRecorder()
		res, err := s.Execute(context.Background(), rec)
		require.NoError(t, err)
		assert.Equal(t, []call{{
			SQL:  "INSERT INTO customers (id, name) VALUES (?, ?), (?, ?), (?, ?)",
			Args: []any{int64(1), "a", int64(2), "b", int64(3), "c"},
		}}, rec.calls)
		assert.Equal(t, 1, res.Statements)
	})

	t.Run("batch size", func(t *testing.T) {
		s := New(Config{BatchSize: 2, Logger: testutil.NewTestLogger(t)})
		require.NoError(t, s.Add(records()...))
		plan, err := s.Sort()
		require.NoError(t, err)
		require.Len(t, plan.Steps, 2)
		assert.Equal(t, []string{"customers#2", "customers#3"}, plan.Steps[0].Labels())
		assert.Equal(t, []string{"customers#1"}, plan.Steps[1].Labels())
	})

	t.Run("executemany without multi-row values", func(t *testing.T) {
		cfg := *sqlite.Config
		cfg.Name = "sqlite_single_row"
		cfg.Features.MultiRowInsert = false
		rec := &recorder{d: dialect.New(&cfg).Build()}

		s := newScheduler(t, records()...)
		_, err := s.Sort()
		require.NoError(t, err)
		res, err := s.Execute(context.Background(), rec)
		require.NoError(t, err)
		sqlText := "INSERT INTO customers (id, name) VALUES (?, ?)"
		assert.Equal(t, []call{
			{SQL: sqlText, Args: []any{int64(1), "a"}},
			{SQL: sqlText, Args: []any{int64(2), "b"}},
			{SQL: sqlText, Args: []any{int64(3), "c"}},
		}, rec.calls)
		assert.Equal(t, 3, res.Statements)
		assert.Equal(t, int64(3), res.RowsAffected)
	})
}

func accounts() *core.Table {
	md := core.NewMetaData()
	return md.Table("accounts",
		core.NewColumn("id", types.Integer{}, core.PrimaryKey()),
		core.NewColumn("balance", types.Integer{}),
		core.NewColumn("version", types.Integer{}, core.Version()),
	)
}

func TestScheduler_VersionedUpdate(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		stale    bool
	}{
		{name: "row matched", affected: 1},
		{name: "row changed underneath", affected: 0, stale: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &MutationRecord{Op: Update, Table: accounts(), PK: map[string]any{"id": 7},
				Values: map[string]any{"balance": 50}, Version: &VersionCheck{Column: "version", Expected: 3}}
			s := newScheduler(t, r)
			_, err := s.Sort()
			require.NoError(t, err)

			rec := newRecorder()
			rec.affected = map[int]int64{0: tt.affected}
			_, err = s.Execute(context.Background(), rec)
			assert.Equal(t, []call{{
				SQL:  "UPDATE accounts SET balance = ?, version = ? WHERE id = ? AND version = ?",
				Args: []any{int64(50), int64(4), int64(7), int64(3)},
			}}, rec.calls)

			if !tt.stale {
				require.NoError(t, err)
				return
			}
			var stale *sqlerr.StaleDataError
			require.ErrorAs(t, err, &stale)
			assert.Equal(t, sqlerr.StaleDataError{Table: "accounts", Op: "UPDATE", Expected: 1, Matched: 0}, *stale)
			var flushErr *FlushError
			require.ErrorAs(t, err, &flushErr)
			assert.Equal(t, StepUpdate, flushErr.Step.Kind)
			assert.Equal(t, StateFailed, s.State())
		})
	}
}

func TestScheduler_UnversionedDeleteSkipsRowcount(t *testing.T) {
	r := &MutationRecord{Op: Delete, Table: accounts(), PK: map[string]any{"id": 7}}
	s := newScheduler(t, r)
	_, err := s.Sort()
	require.NoError(t, err)

	rec := newRecorder()
	rec.affected = map[int]int64{0: 0}
	_, err = s.Execute(context.Background(), rec)
	assert.NoError(t, err)
}

func TestScheduler_UnavailableRowcountIsLogged(t *testing.T) {
	r := &MutationRecord{Op: Update, Table: accounts(), PK: map[string]any{"id": 7},
		Values: map[string]any{"balance": 50}, Version: &VersionCheck{Column: "version", Expected: 3}}
	var buf bytes.Buffer
	s := New(Config{Logger: slog.New(slog.NewTextHandler(&buf, nil))})
	require.NoError(t, s.Add(r))
	_, err := s.Sort()
	require.NoError(t, err)

	rec := newRecorder()
	rec.noRowcount = true
	res, err := s.Execute(context.Background(), rec)
	require.NoError(t, err)
	assert.Zero(t, res.RowsAffected)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "skipping stale data check")
	assert.Contains(t, buf.String(), "rowcount not supported")
}

func TestScheduler_ExecutionErrorIsWrapped(t *testing.T) {
	shop := newShop()
	c := &MutationRecord{Op: Insert, Table: shop.customers, Values: map[string]any{"id": 1}}
	o := &MutationRecord{Op: Insert, Table: shop.orders, Values: map[string]any{"id": 1, "total": 1}, DependsOn: []Reference{{Target: c}}}
	s := newScheduler(t, c, o)
	_, err := s.Sort()
	require.NoError(t, err)

	cause := &sqlerr.ConstraintError{Kind: sqlerr.ConstraintForeignKey, Driver: "test"}
	rec := newRecorder()
	rec.errs = map[int]error{1: cause}
	_, err = s.Execute(context.Background(), rec)

	var flushErr *FlushError
	require.ErrorAs(t, err, &flushErr)
	assert.Equal(t, 1, flushErr.Step.Index)
	assert.Same(t, shop.orders, flushErr.Step.Table)
	var ce *sqlerr.ConstraintError
	require.ErrorAs(t, err, &ce)
	assert.Same(t, cause, ce)
}

func TestScheduler_InvalidTransitions(t *testing.T) {
	shop := newShop()
	r := &MutationRecord{Op: Insert, Table: shop.customers, Values: map[string]any{"id": 1}}
	s := newScheduler(t, r)

	_, err := s.Execute(context.Background(), newRecorder())
	assert.ErrorIs(t, err, sqlerr.ErrInvalidState)

	_, err = s.Sort()
	require.NoError(t, err)
	assert.ErrorIs(t, s.Add(r), sqlerr.ErrInvalidState)
	_, err = s.Sort()
	assert.ErrorIs(t, err, sqlerr.ErrInvalidState)

	_, err = s.Execute(context.Background(), newRecorder())
	require.NoError(t, err)
	_, err = s.Execute(context.Background(), newRecorder())
	assert.ErrorIs(t, err, sqlerr.ErrInvalidState)
}

func TestScheduler_AddValidates(t *testing.T) {
	shop := newShop()
	tests := []struct {
		name string
		r    *MutationRecord
	}{
		{name: "no table", r: &MutationRecord{Op: Insert}},
		{name: "update without key", r: &MutationRecord{Op: Update, Table: shop.customers}},
		{name: "unknown column", r: &MutationRecord{Op: Insert, Table: shop.customers, Values: map[string]any{"nope": 1}}},
		{name: "non-key column in key", r: &MutationRecord{Op: Delete, Table: shop.customers, PK: map[string]any{"id": 1, "name": "x"}}},
		{name: "versioned insert", r: &MutationRecord{Op: Insert, Table: shop.customers, Version: &VersionCheck{Column: "id"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var argErr *sqlerr.ArgumentError
			assert.ErrorAs(t, New(Config{}).Add(tt.r), &argErr)
		})
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "building", StateBuilding.String())
	assert.Equal(t, "post-updating", StatePostUpdating.String())
	assert.Equal(t, "committed", StateCommitted.String())
	assert.Equal(t, "State(42)", State(42).String())
}

func TestScheduler_FlushGeneratedKeys(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	a := &adapter.BaseSQLAdapter{DB: db, D: sqlite.SQLite, DriverName: "sqlmock", Logger: testutil.NewTestLogger(t)}

	shop := newShop()
	c := &MutationRecord{Op: Insert, Table: shop.customers, Values: map[string]any{"name": "acme"}}
	o := &MutationRecord{Op: Insert, Table: shop.orders, Values: map[string]any{"id": 10, "total": 5}, DependsOn: []Reference{{Target: c}}}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO customers (name) VALUES (?) RETURNING id").
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec("INSERT INTO orders (id, customer_id, total) VALUES (?, ?, ?)").
		WithArgs(int64(10), int64(42), int64(5)).
		WillReturnResult(sqlmock.NewResult(10, 1))
	mock.ExpectCommit()

	s := newScheduler(t, o, c)
	res, err := s.Flush(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Statements)
	v, _ := c.Value("id")
	assert.Equal(t, int64(42), v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduler_FlushRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	a := &adapter.BaseSQLAdapter{DB: db, D: sqlite.SQLite, DriverName: "sqlmock"}

	r := &MutationRecord{Op: Update, Table: accounts(), PK: map[string]any{"id": 1}, Values: map[string]any{"balance": 0}}
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts SET balance = ? WHERE id = ?").
		WithArgs(int64(0), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	s := newScheduler(t, r)
	_, err = s.Flush(context.Background(), a)
	assert.True(t, sqlerr.IsStaleData(err))
	assert.Equal(t, StateFailed, s.State())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduler_FlushCommitFails(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	a := &adapter.BaseSQLAdapter{DB: db, D: sqlite.SQLite, DriverName: "sqlmock", Logger: testutil.NewTestLogger(t)}

	r := &MutationRecord{Op: Update, Table: accounts(), PK: map[string]any{"id": 1}, Values: map[string]any{"balance": 0}}
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts SET balance = ? WHERE id = ?").
		WithArgs(int64(0), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	s := newScheduler(t, r)
	_, err = s.Flush(context.Background(), a)
	require.Error(t, err)
	assert.Equal(t, StateFailed, s.State())
	assert.ErrorContains(t, err, "connection reset")
	assert.NotContains(t, err.Error(), "rollback")
	var dbErr *sqlerr.DBAPIError
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, "COMMIT", dbErr.Statement)
	assert.NoError(t, mock.ExpectationsWereMet())
}
