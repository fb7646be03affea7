package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlforge/internal/cli/output"
	"github.com/leapstack-labs/sqlforge/pkg/compiler"
	"github.com/leapstack-labs/sqlforge/pkg/dialect"
	"github.com/leapstack-labs/sqlforge/pkg/unitofwork"
)

type planOutput struct {
	FlushID string       `json:"flush_id"`
	Dialect string       `json:"dialect"`
	Broken  []string     `json:"broken_edges,omitempty"`
	Steps   []stepOutput `json:"steps"`
}

type stepOutput struct {
	Index   int              `json:"index"`
	Kind    string           `json:"kind"`
	Table   string           `json:"table"`
	Records []string         `json:"records"`
	SQL     string           `json:"sql"`
	Params  []map[string]any `json:"params"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "plan <file.yaml>",
		Short: "Show the statements a flush would run",
		Long: `Load tables and pending mutations from a plan file, order them by their
foreign key dependencies and print every step with its compiled SQL.

Nothing is executed. Values that come from keys generated during the
flush are not known yet and show as NULL.`,
		Example: `  sqlforge plan shop.yaml
  sqlforge plan shop.yaml --dialect postgres -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContext(cmd)
			cache := c.Cache()
			l, s, err := c.Scheduler(args[0], cache)
			if err != nil {
				return err
			}
			d, err := resolveDialect(cmd, c.Cfg, l.Dialect)
			if err != nil {
				return err
			}
			p, err := s.Sort()
			if err != nil {
				return err
			}
			out, err := describePlan(p, d, cache)
			if err != nil {
				return err
			}
			return renderPlan(c.Renderer, out)
		},
	}
}

func describePlan(p *unitofwork.Plan, d *dialect.Dialect, cache *compiler.Cache) (*planOutput, error) {
	out := &planOutput{FlushID: p.FlushID, Dialect: d.Name}
	for _, e := range p.Broken {
		out.Broken = append(out.Broken, e.String())
	}
	for _, step := range p.Steps {
		so := stepOutput{
			Index:   step.Index + 1,
			Kind:    step.Kind.String(),
			Table:   step.Table.FullName(),
			Records: step.Labels(),
		}
		for i, n := range step.Statements() {
			stmt, err := cache.Prepare(n, d)
			if err != nil {
				return nil, fmt.Errorf("step %d (%s): %w", so.Index, step, err)
			}
			if i == 0 {
				so.SQL = stmt.SQL
			}
			so.Params = append(so.Params, params(stmt))
		}
		out.Steps = append(out.Steps, so)
	}
	return out, nil
}

// params returns the statement's slot values as known before execution.
func params(stmt *compiler.Statement) map[string]any {
	values := stmt.BindValues()
	out := make(map[string]any, len(stmt.BindNames))
	for _, name := range stmt.BindNames {
		out[name] = values[name]
	}
	return out
}

func renderPlan(r *output.Renderer, p *planOutput) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(p)
	}

	r.Header(1, "Flush plan")
	r.KeyValue("Dialect", p.Dialect)
	r.KeyValue("Steps", fmt.Sprintf("%d", len(p.Steps)))
	if len(p.Broken) > 0 {
		r.KeyValue("Cycles broken at", strings.Join(p.Broken, "; "))
	}
	r.Println()

	for _, s := range p.Steps {
		r.Header(2, fmt.Sprintf("%d. %s %s", s.Index, s.Kind, s.Table))
		r.Muted(strings.Join(s.Records, ", "))
		r.Code("sql", s.SQL)
		for _, ps := range s.Params {
			if len(ps) > 0 {
				r.Muted("  " + formatParams(ps))
			}
		}
		r.Println()
	}
	return nil
}

func formatParams(ps map[string]any) string {
	names := make([]string, 0, len(ps))
	for name := range ps {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		v := ps[name]
		if v == nil {
			v = "NULL"
		}
		parts[i] = fmt.Sprintf("%s=%v", name, v)
	}
	return strings.Join(parts, " ")
}
