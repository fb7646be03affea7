// This file contains the pre-built configuration pieces that concrete
// dialects compose from: reserved words, physical type names and
// identifier styles.

package dialect

import "github.com/leapstack-labs/sqlforge/pkg/types"

// --- Identifier styles ---

var (
	// DoubleQuoted is the ANSI identifier style.
	DoubleQuoted = IdentifierConfig{Quote: `"`, QuoteEnd: `"`, Escape: `""`, Normalization: NormLowercase}

	// Backticked is the MySQL identifier style.
	Backticked = IdentifierConfig{Quote: "`", QuoteEnd: "`", Escape: "``", Normalization: NormCaseInsensitive}
)

// --- Reserved words ---

// ANSIReservedWords are the SQL:2016 reserved words most likely to collide
// with column and table names.
var ANSIReservedWords = []string{
	"all", "alter", "and", "any", "as", "asc", "between", "by", "case",
	"cast", "check", "column", "constraint", "create", "cross", "current",
	"current_date", "current_time", "current_timestamp", "current_user",
	"default", "delete", "desc", "distinct", "drop", "else", "end",
	"except", "exists", "false", "fetch", "for", "foreign", "from", "full",
	"grant", "group", "having", "in", "inner", "insert", "intersect",
	"into", "is", "join", "left", "like", "limit", "natural", "not", "null",
	"of", "offset", "on", "or", "order", "outer", "primary", "references",
	"right", "select", "session_user", "set", "some", "table", "then", "to",
	"true", "union", "unique", "update", "user", "using", "values", "when",
	"where", "with",
}

// --- Type names ---

// ANSITypeNames are the physical names used when a dialect does not
// override an affinity.
var ANSITypeNames = map[types.Affinity]string{
	types.AffinityInteger:  "INTEGER",
	types.AffinityNumeric:  "NUMERIC",
	types.AffinityFloat:    "FLOAT",
	types.AffinityString:   "VARCHAR",
	types.AffinityBoolean:  "BOOLEAN",
	types.AffinityDateTime: "TIMESTAMP",
	types.AffinityDate:     "DATE",
	types.AffinityInterval: "INTERVAL",
	types.AffinityBinary:   "BLOB",
	types.AffinityJSON:     "JSON",
}

// TypeNames returns ANSITypeNames with the given overrides applied.
func TypeNames(overrides map[types.Affinity]string) map[types.Affinity]string {
	out := copyMap(ANSITypeNames)
	for a, name := range overrides {
		out[a] = name
	}
	return out
}

// Words concatenates reserved word lists.
func Words(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
