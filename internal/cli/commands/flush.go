package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlforge/internal/cli/output"
	"github.com/leapstack-labs/sqlforge/pkg/adapter"
	"github.com/leapstack-labs/sqlforge/pkg/sqlerr"
	"github.com/leapstack-labs/sqlforge/pkg/unitofwork"
)

type flushOutput struct {
	FlushID      string `json:"flush_id"`
	Target       string `json:"target"`
	Steps        int    `json:"steps"`
	Statements   int    `json:"statements"`
	RowsAffected int64  `json:"rows_affected"`
	DurationMS   int64  `json:"duration_ms"`
}

// NewFlushCommand creates the flush command.
func NewFlushCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "flush <file.yaml>",
		Short: "Execute a plan against the configured target",
		Long: `Load a plan file, order its mutations and run them against the target
database inside a single transaction. Any failure rolls the whole flush
back.

The target comes from the target section of sqlforge.yaml, SQLFORGE_TARGET__*
environment variables or the --target/--dsn/--database flags.`,
		Example: `  sqlforge flush shop.yaml --target sqlite --database ./shop.db
  SQLFORGE_TARGET__TYPE=postgres SQLFORGE_TARGET__DSN=postgres://localhost/shop sqlforge flush shop.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContext(cmd)
			if c.Cfg.Target == nil {
				return errors.New("no target configured: set target.type in sqlforge.yaml or pass --target")
			}
			ctx := cmd.Context()

			a, err := adapter.NewAdapter(c.Cfg.Target.AdapterConfig(), c.Logger)
			if err != nil {
				return err
			}
			if err := a.Connect(ctx, c.Cfg.Target.AdapterConfig()); err != nil {
				return fmt.Errorf("failed to connect to %s: %w", c.Cfg.Target.Type, err)
			}
			defer func() { _ = a.Close() }()

			l, s, err := c.Scheduler(args[0], c.Cache())
			if err != nil {
				return err
			}
			if l.Dialect != "" && l.Dialect != a.Dialect().Name {
				c.Renderer.Warning(fmt.Sprintf("plan is written for %s, flushing with the %s adapter", l.Dialect, a.Dialect().Name))
			}

			start := time.Now()
			res, err := s.Flush(ctx, a)
			if err != nil {
				reportFlushError(c.Renderer, err)
				return err
			}
			return renderFlush(c.Renderer, &flushOutput{
				FlushID:      res.FlushID,
				Target:       c.Cfg.Target.Type,
				Steps:        res.Steps,
				Statements:   res.Statements,
				RowsAffected: res.RowsAffected,
				DurationMS:   time.Since(start).Milliseconds(),
			})
		},
	}
}

func reportFlushError(r *output.Renderer, err error) {
	var fe *unitofwork.FlushError
	if errors.As(err, &fe) {
		r.Error(fmt.Sprintf("step %d failed: %s", fe.Step.Index+1, fe.Step))
	}
	var stale *sqlerr.StaleDataError
	if errors.As(err, &stale) {
		r.Warning("a row changed since it was read; reload it and retry")
	}
}

func renderFlush(r *output.Renderer, out *flushOutput) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}
	r.Success(fmt.Sprintf("flushed %d rows in %d steps", out.RowsAffected, out.Steps))
	r.KeyValue("Flush", out.FlushID)
	r.KeyValue("Target", out.Target)
	r.KeyValue("Statements", fmt.Sprintf("%d", out.Statements))
	r.KeyValue("Duration", fmt.Sprintf("%dms", out.DurationMS))
	return nil
}
