package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{
		"":         ModeAuto,
		"auto":     ModeAuto,
		"text":     ModeText,
		"markdown": ModeMarkdown,
		"json":     ModeJSON,
		"yaml":     ModeAuto,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseMode(in), in)
	}
}

func TestRenderer_EffectiveMode(t *testing.T) {
	var buf bytes.Buffer

	r := NewRenderer(&buf, &buf, ModeAuto)
	assert.False(t, r.IsTTY())
	assert.Equal(t, ModeMarkdown, r.EffectiveMode(), "non-TTY auto renders markdown")

	for _, m := range []Mode{ModeText, ModeMarkdown, ModeJSON} {
		assert.Equal(t, m, NewRenderer(&buf, &buf, m).EffectiveMode())
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "# Plan", FormatHeader(1, "Plan"))
	assert.Equal(t, "### Steps", FormatHeader(3, "Steps"))
	assert.Equal(t, "# Plan", FormatHeader(0, "Plan"))
	assert.Equal(t, "- **Dialect:** sqlite", FormatKeyValue("Dialect", "sqlite"))
	assert.Equal(t, "```sql\nSELECT 1\n```", FormatCode("sql", "SELECT 1\n"))
}

func TestRenderer_Markdown(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRenderer(&out, &errOut, ModeMarkdown)

	r.Header(2, "Steps")
	r.KeyValue("Statements", "3")
	r.Code("sql", "INSERT INTO t (a) VALUES (?)")
	r.Warning("cycle broken")

	assert.Equal(t, "## Steps\n\n- **Statements:** 3\n```sql\nINSERT INTO t (a) VALUES (?)\n```\n", out.String())
	assert.Contains(t, errOut.String(), "cycle broken")
}

func TestRenderer_TextHasNoEscapesWithoutTerminal(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, &out, ModeText)

	r.Header(1, "Dialects")
	r.StatusLine("insert customers", "success", "1 row")
	r.Success("flushed")

	s := out.String()
	assert.NotContains(t, s, "\x1b[")
	assert.Contains(t, s, "Dialects")
	assert.Contains(t, s, "✓ insert customers 1 row")
	assert.Contains(t, s, "✓ flushed")
}

func TestRenderer_Table(t *testing.T) {
	header := []string{"Dialect", "Returning"}
	rows := [][]any{{"postgres", "yes"}, {"mysql", "no"}}

	var md bytes.Buffer
	NewRenderer(&md, &md, ModeMarkdown).Table(header, rows)
	assert.Contains(t, md.String(), "| Dialect | Returning |")
	assert.Contains(t, md.String(), "| postgres | yes |")

	var text bytes.Buffer
	NewRenderer(&text, &text, ModeText).Table(header, rows)
	assert.Contains(t, text.String(), "┌")
	assert.Contains(t, text.String(), "mysql")
}

func TestRenderer_JSON(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, &out, ModeJSON)
	require.NoError(t, r.JSON(map[string]int{"statements": 2}))
	assert.Equal(t, "{\n  \"statements\": 2\n}", strings.TrimSpace(out.String()))
}
