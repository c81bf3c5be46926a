// internal/models/feedback.go
package models

import (
	"strings"
	"time"
)

type Rating string

const (
	RatingHelpful          Rating = "Helpful"
	RatingNotHelpful       Rating = "NotHelpful"
	RatingPartiallyHelpful Rating = "PartiallyHelpful"
)

// ParseRating accepts both the compact and the spaced spellings.
func ParseRating(s string) (Rating, bool) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	switch norm {
	case "helpful":
		return RatingHelpful, true
	case "nothelpful", "unhelpful":
		return RatingNotHelpful, true
	case "partiallyhelpful":
		return RatingPartiallyHelpful, true
	default:
		return "", false
	}
}

// Feedback is a user's judgement of one turn. It is append-only.
type Feedback struct {
	ID           string    `json:"id" db:"id"`
	TurnID       string    `json:"turnId" db:"message_id"`
	Rating       Rating    `json:"rating" db:"rating"`
	FeedbackText string    `json:"feedbackText,omitempty" db:"feedback_text"`
	Correction   string    `json:"correction,omitempty" db:"correct_answer"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
