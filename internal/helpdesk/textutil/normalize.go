// Package textutil holds the text normalisation shared by intent matching and ranking.
package textutil

import (
	"strings"
	"unicode"
)

// Normalize lower-cases text, drops apostrophes and combining marks, turns every other
// non-alphanumeric rune into a space and collapses whitespace.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case r == '\'' || r == '’' || unicode.Is(unicode.Mn, r):
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Pad surrounds normalized text with spaces so phrase lookups can match on word
// boundaries with strings.Contains.
func Pad(norm string) string {
	return " " + norm + " "
}

// ContainsPhrase reports whether the padded text holds phrase as whole words.
func ContainsPhrase(padded, phrase string) bool {
	return phrase != "" && strings.Contains(padded, " "+phrase+" ")
}

// ContentTokens returns the distinct non-stop-word tokens of normalized text.
func ContentTokens(norm string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range strings.Fields(norm) {
		if _, stop := stopWords[tok]; stop {
			continue
		}
		out[tok] = struct{}{}
	}
	return out
}

// TokenSet returns the distinct tokens of normalized text, stop words included.
func TokenSet(norm string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range strings.Fields(norm) {
		out[tok] = struct{}{}
	}
	return out
}

// Dice is the Sørensen–Dice coefficient of two token sets.
func Dice(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(a)+len(b))
}

var stopWords = toSet(
	// English
	"a", "an", "the", "i", "we", "you", "my", "our", "do", "does", "did", "is", "are", "was",
	"to", "of", "in", "on", "for", "and", "or", "how", "what", "can", "it", "this", "that",
	"with", "me", "please", "be", "should", "would", "from", "at", "by",
	// roman Urdu
	"hai", "hain", "ka", "ki", "ke", "ko", "mein", "main", "kya", "kia", "se", "aur",
	// Urdu
	"کیا", "ہے", "ہیں", "میں", "کی", "کے", "کا", "کو", "سے", "اور", "یہ", "وہ",
)

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
