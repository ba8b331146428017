// Package format applies the widget's small, fixed inline formatting to
// assistant replies. Only bold, italic and line breaks are recognised.
// Nothing is escaped or sanitized.
package format

import (
	"regexp"
	"strings"
)

var (
	boldPattern   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicPattern = regexp.MustCompile(`\*(.*?)\*`)
)

// InlineHTML turns **x** into <strong>x</strong>, *x* into <em>x</em> and
// newlines into <br>. Bold runs first so that ** is never read as two
// italics.
func InlineHTML(s string) string {
	s = boldPattern.ReplaceAllString(s, "<strong>$1</strong>")
	s = italicPattern.ReplaceAllString(s, "<em>$1</em>")
	return strings.ReplaceAll(s, "\n", "<br>")
}

// InlineANSI applies the same substitutions using terminal escape codes
func InlineANSI(s string) string {
	s = boldPattern.ReplaceAllString(s, "\033[1m$1\033[22m")
	return italicPattern.ReplaceAllString(s, "\033[3m$1\033[23m")
}

// InlineMarkdown prepares a reply for a markdown renderer. Emphasis is
// already markdown; newlines become hard breaks so they survive rendering.
func InlineMarkdown(s string) string {
	return strings.ReplaceAll(s, "\n", "  \n")
}
