// internal/models/article.go
package models

import (
	"strings"
	"time"
)

// KnowledgeArticle is a curated question/answer pair.
type KnowledgeArticle struct {
	ID             int64     `json:"id" db:"id"`
	Title          string    `json:"title" db:"title"`
	Category       string    `json:"category" db:"category"`
	Keywords       []string  `json:"keywords" db:"keywords"`
	Question       string    `json:"question" db:"question"`
	Answer         string    `json:"answer" db:"answer"`
	AnswerUrdu     string    `json:"answerUrdu,omitempty" db:"answer_urdu"`
	Language       Language  `json:"language" db:"language"`
	RelatedDoctype string    `json:"relatedDoctype,omitempty" db:"related_doctype"`
	IsActive       bool      `json:"isActive" db:"is_active"`
	UsageCount     int       `json:"usageCount" db:"usage_count"`
	HelpfulCount   int       `json:"helpfulCount" db:"helpful_count"`
	UnhelpfulCount int       `json:"unhelpfulCount" db:"unhelpful_count"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// AnswerFor returns the Urdu answer for Urdu when the article has one.
func (a *KnowledgeArticle) AnswerFor(lang Language) string {
	if lang == LanguageUrdu && strings.TrimSpace(a.AnswerUrdu) != "" {
		return a.AnswerUrdu
	}
	return a.Answer
}

// SupportsLanguage reports whether the article may answer a query in lang.
func (a *KnowledgeArticle) SupportsLanguage(lang Language) bool {
	switch {
	case lang == LanguageUnknown:
		return true
	case a.Language == LanguageBilingual:
		return true
	case a.Language == lang:
		return true
	case lang == LanguageUrdu && strings.TrimSpace(a.AnswerUrdu) != "":
		return true
	default:
		return false
	}
}

// SplitKeywords parses the comma separated keyword column.
func SplitKeywords(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if kw := strings.ToLower(strings.TrimSpace(p)); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// MatchResult is one ranked article.
type MatchResult struct {
	Article         KnowledgeArticle `json:"article"`
	Score           float64          `json:"score"`
	MatchedKeywords []string         `json:"matchedKeywords,omitempty"`
	Confident       bool             `json:"confident"`
}

// ArticleFilter narrows the candidate articles read from storage.
type ArticleFilter struct {
	Language Language
	Category string
	Limit    int
}
