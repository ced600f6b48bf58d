// Package htmlsanitize reduces user-supplied text to plain text.
//
// Review feedback and project descriptions are stored as plain strings and
// rendered by whatever UI sits on top, so any markup is stripped on the way
// in rather than trusted on the way out.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// PlainText strips every tag (and the body of script and style elements)
// from s, unescapes entities and trims surrounding whitespace.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// IsPlainText reports whether s contains nothing that looks like a tag.
func IsPlainText(s string) bool {
	return !strings.ContainsAny(s, "<>")
}
