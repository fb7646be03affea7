package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlforge/internal/cli/output"
	"github.com/leapstack-labs/sqlforge/internal/config"
	"github.com/leapstack-labs/sqlforge/internal/plan"
	"github.com/leapstack-labs/sqlforge/pkg/compiler"
	"github.com/leapstack-labs/sqlforge/pkg/dialect"
	"github.com/leapstack-labs/sqlforge/pkg/unitofwork"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Loaded
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext reads the configuration and logger the root command
// stored in cmd's context and builds a renderer for cmd's writers.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := config.FromContext(cmd.Context())
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ParseMode(cfg.Output)),
	}
}

// Cache builds the compiled statement cache for one command run.
func (c *CommandContext) Cache() *compiler.Cache {
	return compiler.NewCache(c.Cfg.Cache.Size, compiler.WithLogger(c.Logger))
}

// Scheduler loads the plan at path and queues its records on a new
// scheduler.
func (c *CommandContext) Scheduler(path string, cache *compiler.Cache) (*plan.Loaded, *unitofwork.Scheduler, error) {
	l, err := plan.LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	s := unitofwork.New(unitofwork.Config{
		Cache:     cache,
		Logger:    c.Logger,
		BatchSize: c.Cfg.Flush.BatchSize,
	})
	if err := s.Add(l.Records...); err != nil {
		return nil, nil, err
	}
	c.Logger.Debug("plan loaded", "path", path, "tables", len(l.MetaData.Tables()), "records", len(l.Records))
	return l, s, nil
}

// resolveDialect picks the dialect for a plan: an explicit --dialect
// wins, then the plan's own dialect, then the configured default.
func resolveDialect(cmd *cobra.Command, cfg *config.Loaded, fromPlan string) (*dialect.Dialect, error) {
	name := cfg.Dialect
	if fromPlan != "" && !cmd.Flags().Changed("dialect") {
		name = fromPlan
	}
	d, ok := dialect.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown dialect %q", dialect.ErrDialectRequired, name)
	}
	return d, nil
}
