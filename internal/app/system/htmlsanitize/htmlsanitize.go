// Package htmlsanitize cleans user-supplied text before it is stored or
// rendered.
package htmlsanitize

import (
	"html/template"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	initOnce sync.Once
	rich     *bluemonday.Policy
	strict   *bluemonday.Policy
)

func policies() (*bluemonday.Policy, *bluemonday.Policy) {
	initOnce.Do(func() {
		rich = bluemonday.UGCPolicy()
		rich.AllowElements("u", "s", "mark")
		strict = bluemonday.StrictPolicy()
	})
	return rich, strict
}

// Sanitize keeps basic formatting (paragraphs, lists, links, tables) and
// drops scripts, event handlers, iframes and unsafe URLs. Billing notes that
// contain markup pass through here before they are stored.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	p, _ := policies()
	return p.Sanitize(s)
}

// SanitizeToHTML is Sanitize for direct use in templates.
func SanitizeToHTML(s string) template.HTML {
	return template.HTML(Sanitize(s))
}

// Plain strips every tag and trims the result. Used for organization
// descriptions, cost centers and business unit names, which are plain text.
func Plain(s string) string {
	if s == "" {
		return ""
	}
	_, p := policies()
	return strings.TrimSpace(p.Sanitize(s))
}

// IsPlainText reports whether s looks free of markup: a lone "<" or ">"
// (as in "5 < 10") still counts as plain text.
func IsPlainText(s string) bool {
	return !(strings.Contains(s, "<") && strings.Contains(s, ">"))
}

// PlainTextToHTML escapes s and wraps it in a paragraph, turning newlines
// into line breaks.
func PlainTextToHTML(s string) string {
	if s == "" {
		return ""
	}
	escaped := template.HTMLEscapeString(s)
	return "<p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p>"
}

// PrepareForDisplay renders stored notes: plain text is escaped and
// paragraphed, markup is sanitized.
func PrepareForDisplay(s string) template.HTML {
	if s == "" {
		return ""
	}
	if IsPlainText(s) {
		return template.HTML(PlainTextToHTML(s))
	}
	return SanitizeToHTML(s)
}
