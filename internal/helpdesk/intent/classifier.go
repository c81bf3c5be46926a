// Package intent classifies utterances into coarse help-desk intents with ordered
// keyword rules.
package intent

import (
	"erp-helpdesk-workers/internal/helpdesk/textutil"
	"erp-helpdesk-workers/internal/models"
)

// MatchMode controls how a rule's keywords combine.
type MatchMode int

const (
	// Any matches when one keyword is present.
	Any MatchMode = iota
	// All matches when every keyword is present.
	All
)

// Rule maps keywords to an intent. Keywords may be multi-word phrases and match on
// word boundaries of the normalized text.
type Rule struct {
	Intent   models.Intent
	Mode     MatchMode
	Keywords []string
}

// RuleSet holds the ordered rules per language. The first matching rule wins.
type RuleSet map[models.Language][]Rule

type Classifier struct {
	rules RuleSet
}

type Option func(*Classifier)

// WithRules replaces the rules for one language.
func WithRules(lang models.Language, rules []Rule) Option {
	return func(c *Classifier) {
		c.rules[lang] = normalizeRules(rules)
	}
}

func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{rules: RuleSet{
		models.LanguageEnglish: normalizeRules(DefaultEnglishRules()),
		models.LanguageUrdu:    normalizeRules(DefaultUrduRules()),
	}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the intent of text. The detected language's rules are tried first and
// the other language's second, since mixed-script and roman-Urdu messages are common.
// Unknown language tries English then Urdu.
func (c *Classifier) Classify(text string, lang models.Language) models.Intent {
	norm := textutil.Normalize(text)
	if norm == "" {
		return models.IntentUnknown
	}
	padded := textutil.Pad(norm)

	for _, l := range searchOrder(lang) {
		for _, r := range c.rules[l] {
			if r.matches(padded) {
				return r.Intent
			}
		}
	}
	return models.IntentUnknown
}

func searchOrder(lang models.Language) []models.Language {
	if lang == models.LanguageUrdu {
		return []models.Language{models.LanguageUrdu, models.LanguageEnglish}
	}
	return []models.Language{models.LanguageEnglish, models.LanguageUrdu}
}

func (r Rule) matches(padded string) bool {
	if len(r.Keywords) == 0 {
		return false
	}
	for _, kw := range r.Keywords {
		found := textutil.ContainsPhrase(padded, kw)
		if r.Mode == Any && found {
			return true
		}
		if r.Mode == All && !found {
			return false
		}
	}
	return r.Mode == All
}

func normalizeRules(rules []Rule) []Rule {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		kws := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			if n := textutil.Normalize(kw); n != "" {
				kws = append(kws, n)
			}
		}
		out = append(out, Rule{Intent: r.Intent, Mode: r.Mode, Keywords: kws})
	}
	return out
}
