package cli

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlforge/internal/testutil"
)

const shopPlan = `
dialect: sqlite
tables:
  - name: customers
    columns:
      - {name: id, type: integer, pk: true}
      - {name: name, type: text, not_null: true}
  - name: orders
    columns:
      - {name: id, type: integer, pk: true}
      - {name: customer_id, type: integer, not_null: true, references: customers.id}
      - {name: total, type: integer}
mutations:
  - op: insert
    table: orders
    values: {id: 10, total: 250}
    refs: [acme]
  - id: acme
    op: insert
    table: customers
    values: {name: acme}
`

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile("shop.yaml", []byte(shopPlan), 0o600))
	return dir
}

func migratedDB(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "shop.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	require.NoError(t, testutil.Migrate(db))
	return path
}

func TestRoot_Commands(t *testing.T) {
	root := NewRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"version", "dialects", "plan", "flush", "completion"})

	for _, flag := range []string{"config", "dialect", "verbose", "output", "target", "dsn", "database", "batch-size"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestDialects_JSON(t *testing.T) {
	workspace(t)
	stdout, _, err := execute(t, "dialects", "-o", "json")
	require.NoError(t, err)

	var got []struct {
		Name       string `json:"name"`
		ParamStyle string `json:"param_style"`
		Returning  bool   `json:"returning"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))

	byName := map[string]bool{}
	for _, d := range got {
		byName[d.Name] = d.Returning
	}
	assert.Contains(t, byName, "ansi")
	assert.True(t, byName["postgres"])
	assert.False(t, byName["mysql"])
}

func TestDialects_Markdown(t *testing.T) {
	workspace(t)
	stdout, _, err := execute(t, "dialects", "-o", "markdown")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "# Dialects"))
	assert.Contains(t, stdout, "| postgres |")
}

func TestPlan(t *testing.T) {
	workspace(t)
	stdout, _, err := execute(t, "plan", "shop.yaml", "-o", "json")
	require.NoError(t, err)

	var got struct {
		Dialect string `json:"dialect"`
		Steps   []struct {
			Kind    string   `json:"kind"`
			Table   string   `json:"table"`
			Records []string `json:"records"`
			SQL     string   `json:"sql"`
		} `json:"steps"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))

	assert.Equal(t, "sqlite", got.Dialect)
	require.Len(t, got.Steps, 2)
	assert.Equal(t, "customers", got.Steps[0].Table)
	assert.Equal(t, []string{"acme"}, got.Steps[0].Records)
	assert.True(t, strings.HasPrefix(got.Steps[0].SQL, "INSERT INTO customers"))
	assert.Equal(t, "orders", got.Steps[1].Table)
	assert.Contains(t, got.Steps[1].SQL, "customer_id")
}

func TestPlan_DialectFlagWins(t *testing.T) {
	workspace(t)
	stdout, _, err := execute(t, "plan", "shop.yaml", "--dialect", "postgres", "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, stdout, "- **Dialect:** postgres")
	assert.Contains(t, stdout, "```sql\nINSERT INTO customers")
}

func TestPlan_Errors(t *testing.T) {
	workspace(t)

	_, _, err := execute(t, "plan", "missing.yaml")
	assert.ErrorContains(t, err, "failed to read plan")

	_, _, err = execute(t, "plan", "shop.yaml", "--dialect", "cobol")
	assert.ErrorContains(t, err, `unknown dialect "cobol"`)
}

func TestFlush_SQLite(t *testing.T) {
	dir := workspace(t)
	path := migratedDB(t, dir)

	stdout, _, err := execute(t, "flush", "shop.yaml", "--target", "sqlite", "--database", path, "-o", "json")
	require.NoError(t, err)

	var got struct {
		Target       string `json:"target"`
		Steps        int    `json:"steps"`
		RowsAffected int64  `json:"rows_affected"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "sqlite", got.Target)
	assert.Equal(t, 2, got.Steps)
	assert.Equal(t, int64(2), got.RowsAffected)

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var n int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM orders o JOIN customers c ON c.id = o.customer_id WHERE c.name = 'acme' AND o.total = 250`).Scan(&n))
	assert.Equal(t, 1, n)

	// Replaying the plan violates the unique name and rolls back.
	_, stderr, err := execute(t, "flush", "shop.yaml", "--target", "sqlite", "--database", path)
	require.Error(t, err)
	assert.Contains(t, stderr, "step 1 failed")

	require.NoError(t, db.QueryRow(`SELECT count(*) FROM customers`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestFlush_ConfigFileTarget(t *testing.T) {
	dir := workspace(t)
	path := migratedDB(t, dir)
	cfg := "target:\n  type: SQLite\n  database: " + path + "\noutput: markdown\n"
	require.NoError(t, os.WriteFile("sqlforge.yaml", []byte(cfg), 0o600))

	stdout, _, err := execute(t, "flush", "shop.yaml")
	require.NoError(t, err)
	assert.Contains(t, stdout, "flushed 2 rows in 2 steps")
	assert.Contains(t, stdout, "- **Target:** sqlite")
}

func TestFlush_NoTarget(t *testing.T) {
	workspace(t)
	_, _, err := execute(t, "flush", "shop.yaml")
	assert.ErrorContains(t, err, "no target configured")
}
