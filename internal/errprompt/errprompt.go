// Package errprompt appends operator-configured guidance to database error
// messages, steering the calling agent toward a fix, e.g. pointing
// ORA-00942 at the list_tables tool.
package errprompt

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule maps an error-message regex to a guidance message.
type Rule struct {
	Pattern string
	Message string
}

// Guide holds the compiled rules. Rules are evaluated in configuration
// order and every match contributes.
type Guide struct {
	patterns []*regexp.Regexp
	messages []string
}

// New compiles the rules. Returns an error on an invalid regex.
func New(rules []Rule) (*Guide, error) {
	g := &Guide{
		patterns: make([]*regexp.Regexp, len(rules)),
		messages: make([]string, len(rules)),
	}
	for i, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("errprompt: invalid regex pattern %q: %v", r.Pattern, err)
		}
		g.patterns[i] = re
		g.messages[i] = r.Message
	}
	return g, nil
}

// Lookup scans errMsg against every rule in one pass. It returns the
// matching guidance messages joined with newlines (empty when nothing
// matched) and the patterns that fired, for logging.
func (g *Guide) Lookup(errMsg string) (guidance string, fired []string) {
	var msgs []string
	for i, re := range g.patterns {
		if re.MatchString(errMsg) {
			msgs = append(msgs, g.messages[i])
			fired = append(fired, re.String())
		}
	}
	return strings.Join(msgs, "\n"), fired
}
