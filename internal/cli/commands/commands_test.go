package commands

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlforge/internal/cli/testutil"
	"github.com/leapstack-labs/sqlforge/internal/plan"
	"github.com/leapstack-labs/sqlforge/pkg/compiler"
	_ "github.com/leapstack-labs/sqlforge/pkg/dialects/mysql"
	pgdialect "github.com/leapstack-labs/sqlforge/pkg/dialects/postgres"
	"github.com/leapstack-labs/sqlforge/pkg/sqlerr"
	"github.com/leapstack-labs/sqlforge/pkg/unitofwork"
)

const teamsPlan = `
tables:
  - name: teams
    columns:
      - {name: id, type: integer, pk: true}
      - {name: captain_id, type: integer, references: players.id}
  - name: players
    columns:
      - {name: id, type: integer, pk: true}
      - {name: team_id, type: integer, references: teams.id}
mutations:
  - {id: red, op: insert, table: teams, key: {id: 1}, refs: [alice]}
  - {id: alice, op: insert, table: players, key: {id: 7}, refs: [red]}
`

func sortedPlan(t *testing.T, doc string) *unitofwork.Plan {
	t.Helper()
	l, err := plan.Load(strings.NewReader(doc))
	require.NoError(t, err)
	s := unitofwork.New(unitofwork.Config{})
	require.NoError(t, s.Add(l.Records...))
	p, err := s.Sort()
	require.NoError(t, err)
	return p
}

func TestDescribePlan_Cycle(t *testing.T) {
	p := sortedPlan(t, teamsPlan)

	out, err := describePlan(p, pgdialect.Postgres, compiler.NewCache(16))
	require.NoError(t, err)

	assert.Equal(t, "postgres", out.Dialect)
	require.Len(t, out.Broken, 1)

	var kinds []string
	for i, s := range out.Steps {
		assert.Equal(t, i+1, s.Index)
		assert.NotEmpty(t, s.SQL)
		kinds = append(kinds, s.Kind)
	}
	assert.Equal(t, []string{"insert", "insert", "post-update"}, kinds)
	assert.True(t, strings.HasPrefix(out.Steps[2].SQL, "UPDATE"))
}

func TestRenderPlan_Markdown(t *testing.T) {
	p := sortedPlan(t, teamsPlan)
	out, err := describePlan(p, pgdialect.Postgres, compiler.NewCache(16))
	require.NoError(t, err)

	tr := testutil.NewTestRendererMarkdown()
	require.NoError(t, renderPlan(tr.Renderer, out))

	md := tr.Output()
	testutil.AssertNoANSI(t, md)
	testutil.AssertValidMarkdown(t, md)
	assert.Contains(t, md, "# Flush plan")
	assert.Contains(t, md, "- **Steps:** 3")
	assert.Contains(t, md, "- **Cycles broken at:**")
	assert.Contains(t, md, "## 3. post-update")
}

func TestRenderPlan_JSON(t *testing.T) {
	p := sortedPlan(t, teamsPlan)
	out, err := describePlan(p, pgdialect.Postgres, compiler.NewCache(16))
	require.NoError(t, err)

	tr := testutil.NewTestRendererJSON()
	require.NoError(t, renderPlan(tr.Renderer, out))

	var decoded planOutput
	require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &decoded))
	assert.Equal(t, out.FlushID, decoded.FlushID)
	assert.Len(t, decoded.Steps, 3)
}

func TestFormatParams(t *testing.T) {
	got := formatParams(map[string]any{"team_id": nil, "id": 7})
	assert.Equal(t, "id=7 team_id=NULL", got)
}

func TestRenderFlush(t *testing.T) {
	res := &flushOutput{FlushID: "f-1", Target: "sqlite", Steps: 2, Statements: 2, RowsAffected: 3}

	tr := testutil.NewTestRendererMarkdown()
	require.NoError(t, renderFlush(tr.Renderer, res))
	assert.Contains(t, tr.Output(), "flushed 3 rows in 2 steps")
	assert.Contains(t, tr.Output(), "- **Flush:** f-1")

	tr = testutil.NewTestRendererJSON()
	require.NoError(t, renderFlush(tr.Renderer, res))
	assert.JSONEq(t, `{"flush_id":"f-1","target":"sqlite","steps":2,"statements":2,"rows_affected":3,"duration_ms":0}`, tr.Output())
}

func TestReportFlushError(t *testing.T) {
	p := sortedPlan(t, teamsPlan)
	stale := &sqlerr.StaleDataError{Table: "teams", Op: "UPDATE", Expected: 1}
	err := &unitofwork.FlushError{Step: p.Steps[2], Err: stale}

	tr := testutil.NewTestRendererMarkdown()
	reportFlushError(tr.Renderer, err)
	assert.Contains(t, tr.ErrorOutput(), "step 3 failed")
	assert.Contains(t, tr.ErrorOutput(), "reload it and retry")

	tr.Reset()
	reportFlushError(tr.Renderer, errors.New("connection refused"))
	assert.Empty(t, tr.ErrorOutput())
}

func TestRunDialects(t *testing.T) {
	tr := testutil.NewTestRendererJSON()
	require.NoError(t, runDialects(&CommandContext{Renderer: tr.Renderer}))

	var infos []dialectInfo
	require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &infos))
	byName := map[string]dialectInfo{}
	for _, d := range infos {
		byName[d.Name] = d
	}
	require.Contains(t, byName, "postgres")
	assert.True(t, byName["postgres"].Returning)
	require.Contains(t, byName, "mysql")
	assert.False(t, byName["mysql"].Returning)
}

func TestCommandMetadata(t *testing.T) {
	for _, cmd := range []struct {
		use  string
		newF func() string
	}{
		{"dialects", func() string { return NewDialectsCommand().Use }},
		{"plan <file.yaml>", func() string { return NewPlanCommand().Use }},
		{"flush <file.yaml>", func() string { return NewFlushCommand().Use }},
	} {
		assert.Equal(t, cmd.use, cmd.newF())
	}
	assert.NotEmpty(t, NewPlanCommand().Example)
	assert.NotEmpty(t, NewFlushCommand().Example)
}
