package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseLanguagePreference(t *testing.T) {
	tests := []struct {
		in   string
		want LanguagePreference
		lang Language
	}{
		{"English", PreferenceEnglish, LanguageEnglish},
		{" urdu ", PreferenceUrdu, LanguageUrdu},
		{"ur", PreferenceUrdu, LanguageUrdu},
		{"Auto Detect", PreferenceAuto, LanguageUnknown},
		{"", PreferenceAuto, LanguageUnknown},
		{"French", PreferenceAuto, LanguageUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseLanguagePreference(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.lang, got.Language())
		})
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		in     string
		want   Rating
		wantOK bool
	}{
		{"Helpful", RatingHelpful, true},
		{"Not Helpful", RatingNotHelpful, true},
		{"unhelpful", RatingNotHelpful, true},
		{"Partially Helpful", RatingPartiallyHelpful, true},
		{"great", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRating(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArticleLanguage(t *testing.T) {
	a := &KnowledgeArticle{Language: LanguageEnglish, Answer: "Open Stock Entry.", AnswerUrdu: "اسٹاک انٹری کھولیں۔"}
	assert.Equal(t, "اسٹاک انٹری کھولیں۔", a.AnswerFor(LanguageUrdu))
	assert.Equal(t, "Open Stock Entry.", a.AnswerFor(LanguageEnglish))
	assert.True(t, a.SupportsLanguage(LanguageUrdu))
	assert.True(t, a.SupportsLanguage(LanguageUnknown))

	englishOnly := &KnowledgeArticle{Language: LanguageEnglish, Answer: "x"}
	assert.Equal(t, "x", englishOnly.AnswerFor(LanguageUrdu))
	assert.False(t, englishOnly.SupportsLanguage(LanguageUrdu))

	bilingual := &KnowledgeArticle{Language: LanguageBilingual}
	assert.True(t, bilingual.SupportsLanguage(LanguageUrdu))
}

func TestSplitKeywords(t *testing.T) {
	assert.Equal(t, []string{"stock", "warehouse entry"}, SplitKeywords(" Stock, ,Warehouse Entry ,"))
	assert.Empty(t, SplitKeywords(""))
}

func TestPriorityAndFrequency(t *testing.T) {
	assert.Greater(t, PriorityCritical.Rank(), PriorityHigh.Rank())
	assert.Greater(t, PriorityLow.Rank(), Priority("bogus").Rank())
	assert.Equal(t, PriorityLow, ParsePriority("whatever"))
	assert.Equal(t, PriorityCritical, ParsePriority(" CRITICAL "))

	assert.Equal(t, time.Duration(0), ParseFrequency("").Interval())
	assert.Equal(t, time.Hour, ParseFrequency("hourly").Interval())
	assert.Equal(t, 7*24*time.Hour, FrequencyWeekly.Interval())
}

func TestRuleTemplate(t *testing.T) {
	r := &ProactiveRule{TemplateEN: "Low stock: {item_code}", TemplateUR: "کم اسٹاک: {item_code}"}
	assert.Equal(t, "کم اسٹاک: {item_code}", r.Template(LanguageUrdu))
	assert.Equal(t, "Low stock: {item_code}", r.Template(LanguageEnglish))

	r.TemplateUR = "  "
	assert.Equal(t, "Low stock: {item_code}", r.Template(LanguageUrdu))
}

func TestSession(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &ChatSession{LastActivity: now.Add(-31 * time.Minute)}
	assert.True(t, s.IsExpired(now, 30*time.Minute))
	assert.False(t, s.IsExpired(now, time.Hour))
	assert.False(t, s.IsExpired(now, 0))

	s.Touch(now, "how do I create a sales invoice")
	assert.Equal(t, 1, s.TurnCount)
	assert.Equal(t, now, s.LastActivity)
	assert.False(t, s.IsExpired(now, 30*time.Minute))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "اسٹ", Truncate("اسٹاک", 3))
}
