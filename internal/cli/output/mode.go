// Package output renders command results for terminals, markdown
// consumers and JSON tooling.
package output

// Mode selects how results are rendered.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"     // text on a TTY, markdown otherwise
	ModeText     Mode = "text"     // styled text
	ModeMarkdown Mode = "markdown" // plain markdown
	ModeJSON     Mode = "json"     // machine readable
)

// ParseMode returns the mode for s. Unknown or empty values select ModeAuto.
func ParseMode(s string) Mode {
	switch m := Mode(s); m {
	case ModeText, ModeMarkdown, ModeJSON:
		return m
	default:
		return ModeAuto
	}
}
