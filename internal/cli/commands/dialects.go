package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlforge/internal/cli/output"
	"github.com/leapstack-labs/sqlforge/pkg/dialect"
)

type dialectInfo struct {
	Name           string `json:"name"`
	ParamStyle     string `json:"param_style"`
	Returning      bool   `json:"returning"`
	MultiRowInsert bool   `json:"multi_row_insert"`
	FetchFirst     bool   `json:"fetch_first"`
	MaxIdentifier  int    `json:"max_identifier_length"`
	DefaultSchema  string `json:"default_schema,omitempty"`
}

// NewDialectsCommand creates the dialects command.
func NewDialectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List registered SQL dialects",
		Long:  `List every registered dialect with its parameter style and the features the compiler and flush scheduler rely on.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDialects(NewCommandContext(cmd))
		},
	}
}

func runDialects(c *CommandContext) error {
	var infos []dialectInfo
	for _, name := range dialect.List() {
		d, ok := dialect.Get(name)
		if !ok {
			continue
		}
		infos = append(infos, dialectInfo{
			Name:           d.Name,
			ParamStyle:     d.ParamStyle.String(),
			Returning:      d.Features.Returning,
			MultiRowInsert: d.Features.MultiRowInsert,
			FetchFirst:     d.Features.FetchFirst,
			MaxIdentifier:  d.MaxIdentifierLength,
			DefaultSchema:  d.DefaultSchema,
		})
	}

	r := c.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}

	r.Header(1, "Dialects")
	rows := make([][]any, len(infos))
	for i, d := range infos {
		rows[i] = []any{d.Name, d.ParamStyle, yesNo(d.Returning), yesNo(d.MultiRowInsert), yesNo(d.FetchFirst), d.MaxIdentifier}
	}
	r.Table([]string{"Dialect", "Params", "RETURNING", "Multi-row INSERT", "FETCH FIRST", "Max identifier"}, rows)
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
