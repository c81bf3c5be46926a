// Package language resolves the language of an utterance from its script.
package language

import (
	"strings"
	"unicode"

	"erp-helpdesk-workers/internal/models"
)

// DefaultUrduDensity is the minimum share of Arabic-script letters for a message to be
// treated as Urdu regardless of the declared preference.
const DefaultUrduDensity = 0.2

// urduScript covers the Arabic blocks used to write Urdu, including the presentation forms.
var urduScript = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0600, Hi: 0x06FF, Stride: 1},
		{Lo: 0x0750, Hi: 0x077F, Stride: 1},
		{Lo: 0xFB50, Hi: 0xFDFF, Stride: 1},
		{Lo: 0xFE70, Hi: 0xFEFF, Stride: 1},
	},
}

type Detector struct {
	threshold float64
}

func NewDetector(threshold float64) *Detector {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultUrduDensity
	}
	return &Detector{threshold: threshold}
}

// Counts is the per-script letter tally of a text.
type Counts struct {
	Urdu  int
	Latin int
	Other int
}

func (c Counts) Letters() int { return c.Urdu + c.Latin + c.Other }

// Count tallies letters by script. Digits, punctuation and spaces are ignored, and so
// are Arabic-block code points that are not letters (Arabic digits, diacritics).
func Count(text string) Counts {
	var c Counts
	for _, r := range text {
		switch {
		case unicode.Is(urduScript, r):
			if unicode.IsLetter(r) {
				c.Urdu++
			}
		case unicode.IsLetter(r) && unicode.Is(unicode.Latin, r):
			c.Latin++
		case unicode.IsLetter(r):
			c.Other++
		}
	}
	return c
}

// Detect resolves the language of text. Script evidence above the Urdu threshold wins
// over the declared preference; otherwise an explicit preference is honoured; otherwise
// a Latin-majority text is English.
func (d *Detector) Detect(text string, pref models.LanguagePreference) models.Language {
	if strings.TrimSpace(text) == "" {
		return models.LanguageUnknown
	}

	c := Count(text)
	letters := c.Letters()
	if letters > 0 && c.Urdu > 0 && float64(c.Urdu)/float64(letters) >= d.threshold {
		return models.LanguageUrdu
	}

	if lang := pref.Language(); lang != models.LanguageUnknown {
		return lang
	}

	if letters > 0 && c.Latin*2 > letters {
		return models.LanguageEnglish
	}
	return models.LanguageUnknown
}
