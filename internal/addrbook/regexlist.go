package addrbook

import (
	"fmt"
	"regexp"
)

// RegexList is an ordered list of case-insensitive regular expressions,
// as used by the alternates, lists and subscribe settings.
//
// RegexList is not safe for concurrent mutation; Book guards its lists.
type RegexList struct {
	sources []string
	res     []*regexp.Regexp
}

// Add compiles expr and appends it. Adding an expression already in the
// list is a no-op.
func (l *RegexList) Add(expr string) error {
	for _, s := range l.sources {
		if s == expr {
			return nil
		}
	}
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return fmt.Errorf("invalid address regex %q: %w", expr, err)
	}
	l.sources = append(l.sources, expr)
	l.res = append(l.res, re)
	return nil
}

// Remove drops expr from the list. "*" clears the list. It reports whether
// anything was removed.
func (l *RegexList) Remove(expr string) bool {
	if expr == "*" {
		removed := len(l.sources) > 0
		l.sources, l.res = nil, nil
		return removed
	}
	for i, s := range l.sources {
		if s == expr {
			l.sources = append(l.sources[:i], l.sources[i+1:]...)
			l.res = append(l.res[:i], l.res[i+1:]...)
			return true
		}
	}
	return false
}

// Match reports whether any expression matches s.
func (l *RegexList) Match(s string) bool {
	for _, re := range l.res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// Len returns the number of expressions.
func (l *RegexList) Len() int { return len(l.sources) }

// Sources returns the expressions in insertion order.
func (l *RegexList) Sources() []string {
	return append([]string(nil), l.sources...)
}
