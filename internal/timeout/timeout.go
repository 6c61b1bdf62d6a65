// Package timeout resolves per-query wall-clock deadlines from configurable
// SQL pattern rules, falling back to a default.
package timeout

import (
	"fmt"
	"regexp"
	"time"
)

// Rule maps a SQL regex pattern to a timeout.
type Rule struct {
	Pattern string
	Timeout time.Duration
}

// Config is the resolver's own config type.
type Config struct {
	DefaultTimeout time.Duration
	Rules          []Rule
}

type compiledRule struct {
	pattern *regexp.Regexp
	timeout time.Duration
}

// Resolver picks the query timeout for a piece of SQL. First matching rule
// wins; no match falls back to the default.
type Resolver struct {
	rules          []compiledRule
	defaultTimeout time.Duration
}

// NewResolver compiles the rules. Panics on an invalid regex (config is
// validated at startup; a bad pattern is operator error).
func NewResolver(config Config) *Resolver {
	compiled := make([]compiledRule, len(config.Rules))
	for i, r := range config.Rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			panic(fmt.Sprintf("timeout: invalid regex pattern %q: %v", r.Pattern, err))
		}
		compiled[i] = compiledRule{pattern: re, timeout: r.Timeout}
	}
	return &Resolver{rules: compiled, defaultTimeout: config.DefaultTimeout}
}

// Resolve returns the timeout for the given SQL.
func (r *Resolver) Resolve(sql string) time.Duration {
	d, _ := r.ResolveWithPattern(sql)
	return d
}

// ResolveWithPattern returns the timeout and the pattern of the rule that
// matched, or "" when the default applied. The pattern is used for logging.
func (r *Resolver) ResolveWithPattern(sql string) (time.Duration, string) {
	for _, rule := range r.rules {
		if rule.pattern.MatchString(sql) {
			return rule.timeout, rule.pattern.String()
		}
	}
	return r.defaultTimeout, ""
}
