// Package feedback records users' judgements of answers.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"erp-helpdesk-workers/internal/common/logger"
	"erp-helpdesk-workers/internal/common/metrics"
	"erp-helpdesk-workers/internal/helpdesk/store"
	"erp-helpdesk-workers/internal/models"
)

var (
	ErrTurnNotFound  = errors.New("turn not found")
	ErrInvalidRating = errors.New("invalid rating")
	ErrMissingTurnID = errors.New("turn id is required")
)

const maxTextLength = 2000

// Store is the persistence the recorder needs.
type Store interface {
	GetTurn(ctx context.Context, id string) (*models.ChatTurn, error)
	RecordFeedback(ctx context.Context, fb *models.Feedback, articleID *int64) error
}

type Recorder struct {
	store  Store
	logger logger.Logger
	now    func() time.Time
}

func NewRecorder(s Store, log logger.Logger) *Recorder {
	return &Recorder{store: s, logger: log, now: time.Now}
}

// Record validates fb and appends it. The turn itself is never modified. When the turn was
// answered from the knowledge base the article's helpful counters move with it.
func (r *Recorder) Record(ctx context.Context, fb models.Feedback) (*models.Feedback, error) {
	fb.TurnID = strings.TrimSpace(fb.TurnID)
	if fb.TurnID == "" {
		return nil, ErrMissingTurnID
	}
	rating, ok := models.ParseRating(string(fb.Rating))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRating, fb.Rating)
	}
	fb.Rating = rating
	fb.FeedbackText = models.Truncate(strings.TrimSpace(fb.FeedbackText), maxTextLength)
	fb.Correction = models.Truncate(strings.TrimSpace(fb.Correction), maxTextLength)
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = r.now().UTC()
	}

	turn, err := r.store.GetTurn(ctx, fb.TurnID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTurnNotFound, fb.TurnID)
	}
	if err != nil {
		return nil, err
	}

	var articleID *int64
	if turn.Source == models.SourceKnowledgeBase && turn.ArticleID != nil {
		articleID = turn.ArticleID
	}

	if err := r.store.RecordFeedback(ctx, &fb, articleID); err != nil {
		return nil, err
	}
	metrics.FeedbackRecorded.WithLabelValues(string(fb.Rating)).Inc()

	fields := map[string]interface{}{
		"feedbackId": fb.ID,
		"turnId":     fb.TurnID,
		"rating":     fb.Rating,
	}
	if articleID != nil {
		fields["articleId"] = *articleID
	}
	r.logger.Info("feedback recorded", fields)
	return &fb, nil
}
