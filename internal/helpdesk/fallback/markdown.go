package fallback

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	headingRe = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	strongRe  = regexp.MustCompile(`\*\*(.+?)\*\*`)

	// Delimited emphasis. The body may not start or end with whitespace, so "qty * rate"
	// is left alone; word boundaries are checked in stripEmphasis.
	strongUnderscoreRe = regexp.MustCompile(`__([^\s_](?:[^_\n]*[^\s_])?)__`)
	emphasisStarRe     = regexp.MustCompile(`\*([^\s*](?:[^*\n]*[^\s*])?)\*`)
	emphasisUnderRe    = regexp.MustCompile(`_([^\s_](?:[^_\n]*[^\s_])?)_`)
)

var markdownRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?m)^[-*_]{3,}$`), ""},
	{regexp.MustCompile("`([^`]+)`"), "$1"},
	{regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`), "$1"},
	{regexp.MustCompile(`(?m)^\s*[-*]\s+`), ""},
	{regexp.MustCompile(`(?m)^\s*\d+\.\s+`), ""},
	{regexp.MustCompile(`\|`), ""},
	{regexp.MustCompile(`\n{3,}`), "\n\n"},
}

// RemoveMarkdown turns model output into plain text for the chat widget. Field names such
// as stock_uom and arithmetic such as qty * rate pass through unchanged.
func RemoveMarkdown(text string) string {
	if text == "" {
		return text
	}
	text = headingRe.ReplaceAllString(text, "")
	text = strongRe.ReplaceAllString(text, "$1")
	text = stripEmphasis(text, strongUnderscoreRe)
	text = stripEmphasis(text, emphasisStarRe)
	text = stripEmphasis(text, emphasisUnderRe)
	for _, rule := range markdownRules {
		text = rule.re.ReplaceAllString(text, rule.repl)
	}
	return strings.TrimSpace(text)
}

// stripEmphasis replaces each match of re with its first group when the delimiters are
// not joined to a word on the outside.
func stripEmphasis(text string, re *regexp.Regexp) string {
	matches := re.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		if wordBefore(text, m[0]) || wordAfter(text, m[1]) {
			continue
		}
		b.WriteString(text[last:m[0]])
		b.WriteString(text[m[2]:m[3]])
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

func wordBefore(text string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return isWordRune(r)
}

func wordAfter(text string, i int) bool {
	if i >= len(text) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return isWordRune(r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
