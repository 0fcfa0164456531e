package pattern

import (
	"strings"
	"unicode"
)

// DefaultSimpleSearch is the template used to expand a simple search when
// none is configured.
const DefaultSimpleSearch = "~f %s | ~s %s"

var simpleKeywords = map[string]string{
	"all":    "~A",
	"del":    "~D",
	"flag":   "~F",
	"new":    "~N",
	"old":    "~O",
	"repl":   "~Q",
	"read":   "~R",
	"tag":    "~T",
	"unread": "~U",
}

// ExpandSimple turns a search without operators into a full pattern.
//
// Input that contains an unescaped ~, = or % is returned unchanged. The
// keywords all, del, flag, new, old, repl, read, tag and unread (and "."
// or "^" for all) map to their status operators. Anything else is quoted
// and substituted for every %s in template.
func ExpandSimple(input, template string) string {
	for i := 0; i < len(input); i++ {
		switch input[i] {
		case '\\':
			i++
		case '~', '=', '%':
			return input
		}
	}

	if input == "." || input == "^" {
		return "~A"
	}
	if op, ok := simpleKeywords[strings.ToLower(input)]; ok {
		return op
	}

	if template == "" {
		template = DefaultSimpleSearch
	}
	return strings.ReplaceAll(template, "%s", quoteSimple(input))
}

// quoteSimple wraps s in double quotes, escaping backslashes and quotes.
func quoteSimple(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' || s[i] == '"' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	sb.WriteByte('"')
	return sb.String()
}

// CaseSensitive reports whether s asks for case-sensitive matching, which
// is the case when it contains an upper-case letter.
func CaseSensitive(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}
