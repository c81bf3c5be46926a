// internal/models/session.go
package models

import "time"

// ChatSession groups the turns of one conversation.
type ChatSession struct {
	ID             string    `json:"id" db:"id"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	LastActivity   time.Time `json:"lastActivity" db:"last_activity"`
	ContextDoctype string    `json:"contextDoctype,omitempty" db:"context_doctype"`
	ContextDocname string    `json:"contextDocname,omitempty" db:"context_docname"`
	Language       Language  `json:"language" db:"language"`
	TurnCount      int       `json:"turnCount" db:"message_count"`
	LastMessage    string    `json:"lastMessage,omitempty" db:"last_message"`
}

// IsExpired reports whether the session has been idle for longer than timeout.
func (s *ChatSession) IsExpired(now time.Time, timeout time.Duration) bool {
	if timeout <= 0 {
		return false
	}
	return now.Sub(s.LastActivity) > timeout
}

// Touch records a new turn on the session.
func (s *ChatSession) Touch(now time.Time, message string) {
	s.TurnCount++
	s.LastActivity = now
	s.LastMessage = Truncate(message, 200)
}

// ChatTurn is one utterance and the answer given to it.
type ChatTurn struct {
	ID               string    `json:"id" db:"id"`
	SessionID        string    `json:"sessionId" db:"session_id"`
	Utterance        string    `json:"utterance" db:"user_message"`
	DetectedLanguage Language  `json:"detectedLanguage" db:"detected_language"`
	Intent           Intent    `json:"intent" db:"intent"`
	Answer           string    `json:"answer" db:"bot_response"`
	Source           Source    `json:"source" db:"response_source"`
	Confidence       float64   `json:"confidence" db:"confidence_score"`
	ArticleID        *int64    `json:"articleId,omitempty" db:"article_id"`
	CreatedAt        time.Time `json:"createdAt" db:"created_at"`
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
