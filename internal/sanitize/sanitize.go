// Package sanitize applies regex replacement rules to result cells, used to
// mask sensitive values before they leave the tool boundary.
package sanitize

import (
	"fmt"
	"regexp"
)

// Rule replaces matches of Pattern in string cells. When ColumnPattern is
// non-empty, the rule only applies to columns whose name matches it.
type Rule struct {
	Pattern       string
	Replacement   string
	ColumnPattern string
}

type compiledRule struct {
	pattern     *regexp.Regexp
	replacement string
	column      *regexp.Regexp // nil means every column
}

// Sanitizer masks string cells in query results.
type Sanitizer struct {
	rules []compiledRule
}

// NewSanitizer compiles the rules. Returns an error on an invalid regex.
func NewSanitizer(rules []Rule) (*Sanitizer, error) {
	compiled := make([]compiledRule, len(rules))
	for i, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("sanitize: invalid regex pattern %q: %v", r.Pattern, err)
		}
		var col *regexp.Regexp
		if r.ColumnPattern != "" {
			col, err = regexp.Compile(r.ColumnPattern)
			if err != nil {
				return nil, fmt.Errorf("sanitize: invalid column pattern %q: %v", r.ColumnPattern, err)
			}
		}
		compiled[i] = compiledRule{pattern: re, replacement: r.Replacement, column: col}
	}
	return &Sanitizer{rules: compiled}, nil
}

// HasRules returns true if any rules are configured.
func (s *Sanitizer) HasRules() bool {
	return len(s.rules) > 0
}

// SanitizeRows applies every applicable rule to each string cell in rows.
// Rows are positional; columns gives the name for each position. Non-string
// cells pass through unchanged.
func (s *Sanitizer) SanitizeRows(columns []string, rows [][]any) [][]any {
	if len(s.rules) == 0 {
		return rows
	}
	for _, row := range rows {
		for i := range row {
			cell, ok := row[i].(string)
			if !ok {
				continue
			}
			name := ""
			if i < len(columns) {
				name = columns[i]
			}
			row[i] = s.sanitizeCell(name, cell)
		}
	}
	return rows
}

// SanitizeString applies every unscoped rule to a single string. Used to
// mask credentials in error text before it leaves the tool boundary.
func (s *Sanitizer) SanitizeString(v string) string {
	for _, rule := range s.rules {
		if rule.column != nil {
			continue
		}
		v = rule.pattern.ReplaceAllString(v, rule.replacement)
	}
	return v
}

func (s *Sanitizer) sanitizeCell(column, cell string) string {
	for _, rule := range s.rules {
		if rule.column != nil && !rule.column.MatchString(column) {
			continue
		}
		cell = rule.pattern.ReplaceAllString(cell, rule.replacement)
	}
	return cell
}
