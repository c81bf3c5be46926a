package resolvequery

import (
	"erp-helpdesk-workers/internal/helpdesk/composer"
	"erp-helpdesk-workers/internal/models"
)

type Input struct {
	Message        *string `json:"message"`
	SessionID      string  `json:"sessionId"`
	ContextDoctype string  `json:"contextDoctype"`
	ContextDocname string  `json:"contextDocname"`
	Language       string  `json:"language"`
}

type Output struct {
	Success     bool                  `json:"success"`
	SessionID   string                `json:"sessionId,omitempty"`
	MessageID   string                `json:"messageId,omitempty"`
	Answer      string                `json:"answer"`
	Source      models.Source         `json:"source,omitempty"`
	Confidence  float64               `json:"confidence"`
	Language    models.Language       `json:"language,omitempty"`
	Intent      models.Intent         `json:"intent,omitempty"`
	Suggestions []composer.Suggestion `json:"suggestions"`
	ArticleID   *int64                `json:"articleId,omitempty"`
	Error       string                `json:"error,omitempty"`
}
