package fallback

import (
	"fmt"
	"strings"

	"erp-helpdesk-workers/internal/models"
)

const (
	systemPrompt = "You are a helpful ERP assistant. Answer the user's question clearly and concisely. " +
		"Always respond in plain text without markdown formatting (no **, ###, ---, or bullet points)."

	urduSuffix = "\n\nPlease respond in Urdu (اردو میں جواب دیں)."

	maxContextArticles = 3
	maxContextAnswer   = 300
)

// Prompt is the system and user text handed to a provider.
type Prompt struct {
	System string
	User   string
}

// BuildPrompt grounds the question on the best partial matches, if any.
func BuildPrompt(utterance string, lang models.Language, matches []models.MatchResult) Prompt {
	system := systemPrompt
	if len(matches) > 0 {
		var b strings.Builder
		for i, m := range matches {
			if i == maxContextArticles {
				break
			}
			fmt.Fprintf(&b, "- %s: %s\n", m.Article.Title, models.Truncate(m.Article.Answer, maxContextAnswer))
		}
		if b.Len() > 0 {
			system += "\n\nUse this context to answer:\n" + strings.TrimRight(b.String(), "\n")
		}
	}

	user := strings.TrimSpace(utterance)
	if lang == models.LanguageUrdu {
		user += urduSuffix
	}
	return Prompt{System: system, User: user}
}
