package unitofwork

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/leapstack-labs/sqlforge/internal/dag"
	"github.com/leapstack-labs/sqlforge/pkg/adapter"
	"github.com/leapstack-labs/sqlforge/pkg/compiler"
	"github.com/leapstack-labs/sqlforge/pkg/core"
	"github.com/leapstack-labs/sqlforge/pkg/sqlerr"
)

// State is the lifecycle state of a flush.
type State int

const (
	StateBuilding State = iota
	StateSorted
	StateExecuting
	// StatePostUpdating runs the post-update steps that close broken
	// cycles, after every other step succeeded.
	StatePostUpdating
	StateCommitted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateSorted:
		return "sorted"
	case StateExecuting:
		return "executing"
	case StatePostUpdating:
		return "post-updating"
	case StateCommitted:
		return "committed"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var transitions = map[State][]State{
	StateBuilding:     {StateSorted, StateFailed},
	StateSorted:       {StateExecuting, StateFailed},
	StateExecuting:    {StatePostUpdating, StateFailed},
	StatePostUpdating: {StateCommitted, StateFailed},
}

// DefaultBatchSize caps the number of rows in one batched insert.
const DefaultBatchSize = 100

// Config configures a Scheduler.
type Config struct {
	// Provider resolves references that do not name a foreign key.
	// Defaults to MetaDataProvider{}.
	Provider RelationshipProvider
	// Cache compiles statements. Defaults to compiler.DefaultCache().
	Cache     *compiler.Cache
	Logger    *slog.Logger
	BatchSize int
}

// Scheduler orders and executes the records of one flush. It is not
// safe for concurrent use.
type Scheduler struct {
	cfg     Config
	id      string
	logger  *slog.Logger
	state   State
	records []*MutationRecord
	plan    *Plan
}

// New creates a scheduler in the building state.
func New(cfg Config) *Scheduler {
	if cfg.Provider == nil {
		cfg.Provider = MetaDataProvider{}
	}
	if cfg.Cache == nil {
		cfg.Cache = compiler.DefaultCache()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	id := uuid.NewString()
	return &Scheduler{cfg: cfg, id: id, logger: cfg.Logger.With("flush_id", id)}
}

// ID returns the flush id used in logs and plans.
func (s *Scheduler) ID() string { return s.id }

// State returns the current state.
func (s *Scheduler) State() State { return s.state }

// Plan returns the sorted plan, or nil before Sort.
func (s *Scheduler) Plan() *Plan { return s.plan }

func (s *Scheduler) transition(to State) error {
	for _, next := range transitions[s.state] {
		if next == to {
			s.logger.Debug("flush state", "from", s.state.String(), "to", to.String())
			s.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", sqlerr.ErrInvalidState, s.state, to)
}

func (s *Scheduler) fail(err error) error {
	s.logger.Info("flush failed", "state", s.state.String(), "error", err.Error())
	s.state = StateFailed
	return err
}

// Add queues records. It is only allowed while building.
func (s *Scheduler) Add(records ...*MutationRecord) error {
	if s.state != StateBuilding {
		return fmt.Errorf("%w: cannot add records while %s", sqlerr.ErrInvalidState, s.state)
	}
	for _, r := range records {
		if err := validate(r); err != nil {
			return err
		}
	}
	s.records = append(s.records, records...)
	return nil
}

func validate(r *MutationRecord) error {
	if r == nil || r.Table == nil {
		return &sqlerr.ArgumentError{Op: "flush", Message: "record has no table"}
	}
	t := r.Table
	switch r.Op {
	case Insert:
	case Update, Delete:
		if len(t.PrimaryKey()) == 0 {
			return &sqlerr.ArgumentError{Op: "flush", Message: fmt.Sprintf("%s of %s needs a primary key", r.Op, t.FullName())}
		}
		for _, c := range t.PrimaryKey() {
			if _, ok := r.PK[c.Name()]; !ok {
				return &sqlerr.ArgumentError{Op: "flush", Message: fmt.Sprintf("%s of %s is missing key column %q", r.Op, t.FullName(), c.Name())}
			}
		}
	default:
		return &sqlerr.ArgumentError{Op: "flush", Message: fmt.Sprintf("unknown operation %s", r.Op)}
	}
	for name := range r.Values {
		if t.C(name) == nil {
			return &sqlerr.ArgumentError{Op: "flush", Message: fmt.Sprintf("unknown column %q on table %s", name, t.FullName())}
		}
	}
	for name := range r.PK {
		if c := t.C(name); c == nil || !c.IsPrimaryKey() {
			return &sqlerr.ArgumentError{Op: "flush", Message: fmt.Sprintf("%q is not a key column of %s", name, t.FullName())}
		}
	}
	if r.Version != nil {
		if r.Op == Insert {
			return &sqlerr.ArgumentError{Op: "flush", Message: "inserts cannot carry a version check"}
		}
		if r.Version.Column == "" {
			if vc := t.VersionColumn(); vc != nil {
				r.Version.Column = vc.Name()
			}
		}
		if t.C(r.Version.Column) == nil {
			return &sqlerr.ArgumentError{Op: "flush", Message: fmt.Sprintf("unknown version column %q on table %s", r.Version.Column, t.FullName())}
		}
	}
	return nil
}

// Sort builds the dependency graph, resolves cycles and produces the
// plan.
func (s *Scheduler) Sort() (*Plan, error) {
	if s.state != StateBuilding {
		return nil, fmt.Errorf("%w: cannot sort while %s", sqlerr.ErrInvalidState, s.state)
	}
	plan, err := s.sort()
	if err != nil {
		return nil, s.fail(err)
	}
	s.plan = plan
	if err := s.transition(StateSorted); err != nil {
		return nil, err
	}
	s.logger.Info("flush sorted", "records", len(s.records), "steps", len(plan.Steps), "broken_edges", len(plan.Broken))
	return plan, nil
}

func (s *Scheduler) sort() (*Plan, error) {
	g, err := BuildGraph(s.records, s.cfg.Provider)
	if err != nil {
		return nil, err
	}

	d := dag.NewGraph()
	for _, r := range g.Records {
		d.AddNode(r.Label(), r)
	}
	pairs := make(map[[2]string][]Edge)
	for _, e := range g.Edges {
		k := [2]string{e.From.Label(), e.To.Label()}
		pairs[k] = append(pairs[k], e)
		if err := d.AddEdge(k[0], k[1]); err != nil {
			return nil, err
		}
	}

	var broken []Edge
	for _, scc := range d.StronglyConnected() {
		if len(scc) < 2 {
			continue
		}
		b, err := breakCycles(d, scc, pairs)
		if err != nil {
			return nil, err
		}
		broken = append(broken, b...)
	}

	sorted, err := d.TopologicalSort(func(a, b *dag.Node) bool {
		return lessRecord(a.Data.(*MutationRecord), b.Data.(*MutationRecord))
	})
	if err != nil {
		return nil, err
	}
	order := make([]*MutationRecord, len(sorted))
	for i, n := range sorted {
		order[i] = n.Data.(*MutationRecord)
	}
	for _, e := range broken {
		s.logger.Debug("relaxed edge", "edge", e.String())
	}
	return s.buildPlan(order, broken), nil
}

// breakCycles relaxes breakable edges inside one strongly connected
// component until it is acyclic. Edges running against the tie-break
// order are tried first, so the result stays as close to that order as
// possible.
func breakCycles(d *dag.Graph, scc []string, pairs map[[2]string][]Edge) ([]Edge, error) {
	members := make([]*MutationRecord, len(scc))
	for i, id := range scc {
		n, _ := d.GetNode(id)
		members[i] = n.Data.(*MutationRecord)
	}
	sort.Slice(members, func(i, j int) bool { return lessRecord(members[i], members[j]) })
	rank := make(map[string]int, len(members))
	for i, r := range members {
		rank[r.Label()] = i
	}

	var candidates [][2]string
	for _, id := range scc {
		for _, child := range d.GetChildren(id) {
			if _, ok := rank[child]; ok {
				candidates = append(candidates, [2]string{id, child})
			}
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		aBack, bBack := rank[a[1]] < rank[a[0]], rank[b[1]] < rank[b[0]]
		if aBack != bBack {
			return aBack
		}
		if rank[a[1]] != rank[b[1]] {
			return rank[a[1]] < rank[b[1]]
		}
		return rank[a[0]] > rank[b[0]]
	})

	var broken []Edge
	for _, c := range candidates {
		comp := cyclicComponents(d.Subgraph(scc))
		if len(comp) == 0 {
			break
		}
		if comp[c[0]] == 0 || comp[c[0]] != comp[c[1]] {
			continue
		}
		edges := pairs[c]
		if !allBreakable(edges) {
			continue
		}
		d.RemoveEdge(c[0], c[1])
		broken = append(broken, edges...)
	}

	if ok, path := d.Subgraph(scc).HasCycle(); ok {
		err := &sqlerr.CircularDependencyError{}
		for i := 0; i+1 < len(path); i++ {
			for _, e := range pairs[[2]string{path[i], path[i+1]}] {
				err.Edges = append(err.Edges, e.sqlerrEdge())
			}
		}
		return nil, err
	}
	return broken, nil
}

// cyclicComponents numbers the nodes of every component with more than
// one node, starting at 1.
func cyclicComponents(g *dag.Graph) map[string]int {
	out := make(map[string]int)
	n := 0
	for _, scc := range g.StronglyConnected() {
		if len(scc) < 2 {
			continue
		}
		n++
		for _, id := range scc {
			out[id] = n
		}
	}
	return out
}

func allBreakable(edges []Edge) bool {
	for _, e := range edges {
		if !e.breakable() {
			return false
		}
	}
	return len(edges) > 0
}

// lessRecord orders records that are free to run at the same time:
// table definition order, then primary key value, then the order the
// records were added.
func lessRecord(a, b *MutationRecord) bool {
	if ai, bi := a.Table.Index(), b.Table.Index(); ai != bi {
		return ai < bi
	}
	for _, c := range a.Table.PrimaryKey() {
		va, oka := a.keyValue(c.Name())
		vb, okb := b.keyValue(c.Name())
		if cmp := compareKeys(va, oka, vb, okb); cmp != 0 {
			return cmp < 0
		}
	}
	return a.seq < b.seq
}

// compareKeys orders numbers before strings before anything else;
// missing and NULL keys sort last.
func compareKeys(a any, aok bool, b any, bok bool) int {
	aok, bok = aok && a != nil, bok && b != nil
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return 1
	case !bok:
		return -1
	}
	ra, rb := keyRank(a), keyRank(b)
	if ra != rb {
		return ra - rb
	}
	switch ra {
	case 0:
		if ia, ok := asInt64(a); ok {
			if ib, ok := asInt64(b); ok {
				return cmpOrdered(ia, ib)
			}
		}
		fa, _ := asFloat64(a)
		fb, _ := asFloat64(b)
		return cmpOrdered(fa, fb)
	case 1:
		return strings.Compare(a.(string), b.(string))
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func keyRank(v any) int {
	if _, ok := asFloat64(v); ok {
		return 0
	}
	if _, ok := v.(string); ok {
		return 1
	}
	return 2
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	}
	return 0, false
}

func asFloat64(v any) (float64, bool) {
	if i, ok := asInt64(v); ok {
		return float64(i), true
	}
	switch x := v.(type) {
	case uint:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// relaxed collects the foreign keys each record must leave unset.
type relaxed map[*MutationRecord][]*core.ForeignKey

func (m relaxed) add(r *MutationRecord, fk *core.ForeignKey) {
	for _, have := range m[r] {
		if have == fk {
			return
		}
	}
	m[r] = append(m[r], fk)
}

func (m relaxed) columns(r *MutationRecord) map[string]bool {
	out := make(map[string]bool)
	for _, fk := range m[r] {
		for _, c := range fk.Columns() {
			out[c.Name()] = true
		}
	}
	return out
}

func (s *Scheduler) buildPlan(order []*MutationRecord, broken []Edge) *Plan {
	post, pre := relaxed{}, relaxed{}
	for _, e := range broken {
		// Non-nullable deferrable keys are left to the database to check
		// at commit.
		if !e.FK.Nullable() {
			continue
		}
		child := e.Child()
		if child.Op == Delete {
			pre.add(child, e.FK)
		} else {
			post.add(child, e.FK)
		}
	}

	plan := &Plan{FlushID: s.id, Broken: broken}
	add := func(st *Step) {
		st.Index = len(plan.Steps)
		plan.Steps = append(plan.Steps, st)
	}

	for _, r := range order {
		if len(pre[r]) > 0 {
			add(preDeleteStep(r, pre.columns(r)))
		}
	}

	var last *Step
	for _, r := range order {
		var st *Step
		switch r.Op {
		case Insert:
			st = insertStep(r, post.columns(r))
			if last != nil && last.canBatch(st, s.cfg.BatchSize) {
				last.merge(st)
				continue
			}
		case Update:
			st = updateStep(r, post.columns(r))
		case Delete:
			st = deleteStep(r)
		}
		if st == nil {
			continue
		}
		add(st)
		last = st
	}

	for _, r := range order {
		if len(post[r]) > 0 {
			add(postUpdateStep(r, post.columns(r)))
		}
	}
	return plan
}

// hasSource reports whether the record supplies a value for column.
func (r *MutationRecord) hasSource(column string) bool {
	if _, ok := r.Values[column]; ok {
		return true
	}
	if _, ok := r.PK[column]; ok {
		return true
	}
	return r.isRefColumn(column)
}

func (r *MutationRecord) isRefColumn(column string) bool {
	for _, ref := range r.DependsOn {
		if ref.FK == nil {
			continue
		}
		for _, c := range ref.FK.Columns() {
			if c.Name() == column {
				return true
			}
		}
	}
	return false
}

// valueExpr is the expression written for column: a bind reading the
// record when the statement executes, or an explicit NULL for a relaxed
// key.
func valueExpr(r *MutationRecord, c *core.Column, name string, unset bool) core.Expr {
	if unset {
		return core.Bind(name, c.Type(), core.Callable(func() any { return nil }))
	}
	if v, ok := r.Values[c.Name()]; ok && !r.isRefColumn(c.Name()) {
		if e, isExpr := v.(core.Expr); isExpr {
			return e
		}
	}
	column := c.Name()
	return core.Bind(name, c.Type(), core.Callable(func() any {
		v, _ := r.Value(column)
		return v
	}))
}

func keyPredicate(r *MutationRecord, lookup func(string) (any, bool)) core.Expr {
	var preds []core.Expr
	for _, c := range r.Table.PrimaryKey() {
		column := c.Name()
		preds = append(preds, c.Eq(core.Bind(column, c.Type(), core.Unique(), core.Callable(func() any {
			v, _ := lookup(column)
			return v
		}))))
	}
	return core.And(preds...)
}

func versionPredicate(r *MutationRecord) core.Expr {
	c := r.Table.C(r.Version.Column)
	return c.Eq(core.Bind(c.Name(), c.Type(), core.Unique(), core.Value(r.Version.Expected)))
}

func insertStep(r *MutationRecord, unset map[string]bool) *Step {
	var cols []*core.Column
	for _, c := range r.Table.Columns() {
		if unset[c.Name()] || r.hasSource(c.Name()) {
			cols = append(cols, c)
		}
	}
	st := &Step{
		Kind:    StepInsert,
		Table:   r.Table,
		Records: []*MutationRecord{r},
		columns: cols,
		unset:   []map[string]bool{unset},
	}
	if pk := r.Table.PrimaryKey(); len(pk) == 1 && !r.hasSource(pk[0].Name()) {
		st.generate = pk[0]
	}
	n := core.Insert(r.Table).Values(insertRow(r, cols, unset, ""))
	st.Statement = n
	st.nodes = []core.Node{n}
	return st
}

func insertRow(r *MutationRecord, cols []*core.Column, unset map[string]bool, suffix string) map[string]any {
	row := make(map[string]any, len(cols))
	for _, c := range cols {
		row[c.Name()] = valueExpr(r, c, c.Name()+suffix, unset[c.Name()])
	}
	return row
}

// canBatch reports whether next can run in the same statement as s.
func (s *Step) canBatch(next *Step, limit int) bool {
	if s.Kind != StepInsert || next.Kind != StepInsert || s.Table != next.Table {
		return false
	}
	if s.generate != nil || next.generate != nil || len(s.Records) >= limit {
		return false
	}
	if len(s.columns) != len(next.columns) {
		return false
	}
	for i, c := range s.columns {
		if next.columns[i] != c || s.unset[0][c.Name()] != next.unset[0][c.Name()] {
			return false
		}
	}
	a, _ := core.CacheKey(s.nodes[0])
	b, _ := core.CacheKey(next.nodes[0])
	return a == b
}

func (s *Step) merge(next *Step) {
	s.Records = append(s.Records, next.Records...)
	s.nodes = append(s.nodes, next.nodes...)
	s.unset = append(s.unset, next.unset...)
}

func updateStep(r *MutationRecord, unset map[string]bool) *Step {
	set := make(map[string]any)
	for _, c := range r.Table.Columns() {
		name := c.Name()
		if unset[name] || (r.Version != nil && name == r.Version.Column) {
			continue
		}
		if _, ok := r.Values[name]; ok || r.isRefColumn(name) {
			set[name] = valueExpr(r, c, name, false)
		}
	}
	if r.Version != nil {
		c := r.Table.C(r.Version.Column)
		set[c.Name()] = core.Bind(c.Name(), c.Type(), core.Value(r.Version.next()))
	}
	if len(set) == 0 {
		return nil
	}
	stmt := core.Update(r.Table).Set(set).Where(keyPredicate(r, r.keyValue))
	if r.Version != nil {
		stmt = stmt.Where(versionPredicate(r))
	}
	return single(StepUpdate, r, stmt)
}

func deleteStep(r *MutationRecord) *Step {
	stmt := core.Delete(r.Table).Where(keyPredicate(r, r.keyValue))
	if r.Version != nil {
		stmt = stmt.Where(versionPredicate(r))
	}
	return single(StepDelete, r, stmt)
}

func postUpdateStep(r *MutationRecord, columns map[string]bool) *Step {
	set := make(map[string]any, len(columns))
	for _, c := range r.Table.Columns() {
		if columns[c.Name()] {
			set[c.Name()] = valueExpr(r, c, c.Name(), false)
		}
	}
	return single(StepPostUpdate, r, core.Update(r.Table).Set(set).Where(keyPredicate(r, r.Value)))
}

func preDeleteStep(r *MutationRecord, columns map[string]bool) *Step {
	set := make(map[string]any, len(columns))
	for name := range columns {
		set[name] = core.Null()
	}
	return single(StepPreDelete, r, core.Update(r.Table).Set(set).Where(keyPredicate(r, r.keyValue)))
}

func single(kind StepKind, r *MutationRecord, n core.Node) *Step {
	return &Step{Kind: kind, Table: r.Table, Records: []*MutationRecord{r}, Statement: n, nodes: []core.Node{n}}
}

// Execute runs the sorted plan and marks the flush committed. The caller
// owns the transaction: exec is usually an *adapter.Tx.
func (s *Scheduler) Execute(ctx context.Context, exec adapter.Executor) (*Result, error) {
	res, err := s.execute(ctx, exec)
	if err != nil {
		return res, err
	}
	return res, s.complete(res)
}

// execute runs every step, leaving the scheduler in StatePostUpdating.
func (s *Scheduler) execute(ctx context.Context, exec adapter.Executor) (*Result, error) {
	if s.state != StateSorted {
		return nil, fmt.Errorf("%w: cannot execute while %s", sqlerr.ErrInvalidState, s.state)
	}
	if err := s.transition(StateExecuting); err != nil {
		return nil, err
	}
	res := &Result{FlushID: s.id}
	for _, step := range s.plan.Steps {
		if step.Kind == StepPostUpdate && s.state == StateExecuting {
			if err := s.transition(StatePostUpdating); err != nil {
				return res, err
			}
		}
		if err := ctx.Err(); err != nil {
			return res, s.fail(&FlushError{Step: step, Err: err})
		}
		s.logger.Debug("executing step", "step", step.Index, "kind", step.Kind.String(), "table", step.Table.FullName(), "rows", len(step.Records))
		if err := s.runStep(ctx, exec, step, res); err != nil {
			return res, s.fail(&FlushError{Step: step, Err: err})
		}
		res.Steps++
	}
	if s.state == StateExecuting {
		if err := s.transition(StatePostUpdating); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (s *Scheduler) complete(res *Result) error {
	if err := s.transition(StateCommitted); err != nil {
		return err
	}
	s.logger.Info("flush completed", "steps", res.Steps, "statements", res.Statements, "rows", res.RowsAffected)
	return nil
}

// Flush sorts the queued records if needed and executes them inside one
// transaction of a, rolling back when a step fails. The flush is
// committed only once the transaction is.
func (s *Scheduler) Flush(ctx context.Context, a adapter.TxBeginner) (*Result, error) {
	if s.state == StateBuilding {
		if _, err := s.Sort(); err != nil {
			return nil, err
		}
	}
	tx, err := a.BeginTx(ctx)
	if err != nil {
		return nil, s.fail(err)
	}
	res, err := s.execute(ctx, tx)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return res, err
	}
	if err := tx.Commit(); err != nil {
		return res, s.fail(fmt.Errorf("commit flush %s: %w", s.id, err))
	}
	return res, s.complete(res)
}

func (s *Scheduler) runStep(ctx context.Context, exec adapter.Executor, step *Step, res *Result) error {
	switch {
	case len(step.Records) > 1:
		return s.runBatch(ctx, exec, step, res)
	case step.generate != nil:
		return s.runGenerated(ctx, exec, step, res)
	}

	st, err := s.cfg.Cache.Prepare(step.Statement, exec.Dialect())
	if err != nil {
		return err
	}
	params, err := st.Params(nil)
	if err != nil {
		return err
	}
	result, err := exec.Exec(ctx, st.CompiledStatement, params)
	if err != nil {
		return err
	}
	res.Statements++
	n, rerr := result.RowsAffected()
	if rerr != nil {
		s.logger.Warn("rowcount unavailable, skipping stale data check",
			"step", step.Index, "table", step.Table.FullName(), "error", rerr.Error())
		return nil
	}
	res.RowsAffected += n
	r := step.Records[0]
	checked := step.Kind == StepUpdate || (step.Kind == StepDelete && r.Version != nil)
	if checked && n != 1 {
		return &sqlerr.StaleDataError{Table: step.Table.FullName(), Op: r.Op.String(), Expected: 1, Matched: n}
	}
	return nil
}

// runBatch writes several rows with one multi-row INSERT, or with one
// prepared statement executed per row when the dialect lacks multi-row
// VALUES.
func (s *Scheduler) runBatch(ctx context.Context, exec adapter.Executor, step *Step, res *Result) error {
	d := exec.Dialect()
	if d.Features.MultiRowInsert {
		rows := make([]map[string]any, len(step.Records))
		for i, r := range step.Records {
			rows[i] = insertRow(r, step.columns, step.unset[i], fmt.Sprintf("_m%d", i))
		}
		st, err := s.cfg.Cache.Prepare(core.Insert(step.Table).Values(rows...), d)
		if err != nil {
			return err
		}
		params, err := st.Params(nil)
		if err != nil {
			return err
		}
		result, err := exec.Exec(ctx, st.CompiledStatement, params)
		if err != nil {
			return err
		}
		res.Statements++
		if n, err := result.RowsAffected(); err == nil {
			res.RowsAffected += n
		}
		return nil
	}

	cs, err := s.cfg.Cache.GetOrCompile(step.nodes[0], d)
	if err != nil {
		return err
	}
	groups := make([][]any, len(step.nodes))
	for i, n := range step.nodes {
		st, err := cs.Bind(n)
		if err != nil {
			return err
		}
		if groups[i], err = st.Params(nil); err != nil {
			return err
		}
	}
	n, err := exec.ExecMany(ctx, cs, groups)
	if err != nil {
		return err
	}
	res.Statements += len(groups)
	res.RowsAffected += n
	return nil
}

// runGenerated inserts one row and records the key the database
// assigned, through RETURNING when the dialect has it.
func (s *Scheduler) runGenerated(ctx context.Context, exec adapter.Executor, step *Step, res *Result) error {
	d := exec.Dialect()
	r, col := step.Records[0], step.generate
	res.Statements++

	if d.Features.Returning {
		stmt := step.Statement.(*core.InsertStmt).Returning(col)
		st, err := s.cfg.Cache.Prepare(stmt, d)
		if err != nil {
			return err
		}
		params, err := st.Params(nil)
		if err != nil {
			return err
		}
		rows, err := exec.Query(ctx, st.CompiledStatement, params)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return err
			}
			return fmt.Errorf("insert into %s returned no %s", step.Table.FullName(), col.Name())
		}
		vals, err := rows.Values()
		if err != nil {
			return err
		}
		r.setGenerated(col.Name(), vals[0])
		res.RowsAffected++
		return rows.Err()
	}

	st, err := s.cfg.Cache.Prepare(step.Statement, d)
	if err != nil {
		return err
	}
	params, err := st.Params(nil)
	if err != nil {
		return err
	}
	result, err := exec.Exec(ctx, st.CompiledStatement, params)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading generated %s of %s: %w", col.Name(), step.Table.FullName(), err)
	}
	r.setGenerated(col.Name(), id)
	if n, err := result.RowsAffected(); err == nil {
		res.RowsAffected += n
	}
	return nil
}
