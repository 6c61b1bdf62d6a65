// Package classify categorizes SQL statements as read or write based on
// their first significant keyword. It is a textual heuristic, not a parser:
// it cannot detect side effects hidden inside a nominally read-only
// statement (e.g. a SELECT calling a mutating function). Callers must treat
// Unknown as Write.
package classify

import "strings"

// Kind is the policy classification of a SQL statement.
type Kind int

const (
	// Read covers SELECT and WITH (CTE-prefixed SELECT).
	Read Kind = iota
	// Write covers DML (INSERT, UPDATE, DELETE, MERGE) and DDL
	// (CREATE, ALTER, DROP, TRUNCATE).
	Write
	// Unknown covers everything else: PL/SQL blocks, CALL, GRANT,
	// multi-statement text, unrecognized verbs. Treated as Write for
	// policy purposes.
	Unknown
)

// String returns the kind name for logging.
func (k Kind) String() string {
	switch k {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return "unknown"
	}
}

var readVerbs = map[string]bool{
	"SELECT": true,
	"WITH":   true,
}

var writeVerbs = map[string]bool{
	"INSERT":   true,
	"UPDATE":   true,
	"DELETE":   true,
	"MERGE":    true,
	"CREATE":   true,
	"ALTER":    true,
	"DROP":     true,
	"TRUNCATE": true,
}

// Classify inspects the first significant keyword of sql and returns its
// Kind. Leading whitespace, -- line comments, and /* */ block comments are
// skipped before the keyword is read.
func Classify(sql string) Kind {
	verb := firstKeyword(sql)
	if verb == "" {
		return Unknown
	}
	if readVerbs[verb] {
		return Read
	}
	if writeVerbs[verb] {
		return Write
	}
	return Unknown
}

// firstKeyword returns the first SQL keyword in upper case, skipping
// whitespace and comments. Returns "" if the text contains no keyword.
func firstKeyword(sql string) string {
	i := 0
	n := len(sql)
	for i < n {
		switch {
		case sql[i] == ' ' || sql[i] == '\t' || sql[i] == '\n' || sql[i] == '\r':
			i++
		case strings.HasPrefix(sql[i:], "--"):
			nl := strings.IndexByte(sql[i:], '\n')
			if nl < 0 {
				return ""
			}
			i += nl + 1
		case strings.HasPrefix(sql[i:], "/*"):
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				return "" // unterminated comment, nothing significant follows
			}
			i += 2 + end + 2
		default:
			start := i
			for i < n && isKeywordByte(sql[i]) {
				i++
			}
			if i == start {
				return "" // first significant char is not a letter
			}
			return strings.ToUpper(sql[start:i])
		}
	}
	return ""
}

func isKeywordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
