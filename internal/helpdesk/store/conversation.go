package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"erp-helpdesk-workers/internal/models"
)

const defaultHistoryLimit = 50

// GetSession loads a session or returns ErrNotFound.
func (s *PostgresStore) GetSession(ctx context.Context, id string) (*models.ChatSession, error) {
	var sess models.ChatSession
	var language string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, last_activity, COALESCE(context_doctype, ''),
		       COALESCE(context_docname, ''), language, message_count, COALESCE(last_message, '')
		FROM helpdesk_sessions
		WHERE id = $1`, id).Scan(
		&sess.ID, &sess.CreatedAt, &sess.LastActivity, &sess.ContextDoctype,
		&sess.ContextDocname, &language, &sess.TurnCount, &sess.LastMessage,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	sess.Language = models.ParseLanguage(language)
	return &sess, nil
}

// SaveSession inserts the session or updates its activity columns.
func (s *PostgresStore) SaveSession(ctx context.Context, sess *models.ChatSession) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.now().UTC()
	}
	if sess.LastActivity.IsZero() {
		sess.LastActivity = sess.CreatedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO helpdesk_sessions
			(id, created_at, last_activity, context_doctype, context_docname, language, message_count, last_message)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, NULLIF($8, ''))
		ON CONFLICT (id) DO UPDATE SET
			last_activity = EXCLUDED.last_activity,
			context_doctype = EXCLUDED.context_doctype,
			context_docname = EXCLUDED.context_docname,
			language = EXCLUDED.language,
			message_count = EXCLUDED.message_count,
			last_message = EXCLUDED.last_message`,
		sess.ID, sess.CreatedAt, sess.LastActivity, sess.ContextDoctype, sess.ContextDocname,
		string(sess.Language), sess.TurnCount, sess.LastMessage,
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return nil
}

// InsertTurn appends a turn. Turns are never updated.
func (s *PostgresStore) InsertTurn(ctx context.Context, turn *models.ChatTurn) error {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = s.now().UTC()
	}

	var articleID sql.NullInt64
	if turn.ArticleID != nil {
		articleID = sql.NullInt64{Int64: *turn.ArticleID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO helpdesk_turns
			(id, session_id, user_message, detected_language, intent, bot_response,
			 response_source, confidence_score, article_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		turn.ID, turn.SessionID, turn.Utterance, string(turn.DetectedLanguage), string(turn.Intent),
		turn.Answer, string(turn.Source), turn.Confidence, articleID, turn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

const turnColumns = `id, session_id, user_message, detected_language, intent, bot_response,
	response_source, confidence_score, article_id, created_at`

// GetTurn loads one turn or returns ErrNotFound.
func (s *PostgresStore) GetTurn(ctx context.Context, id string) (*models.ChatTurn, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+turnColumns+` FROM helpdesk_turns WHERE id = $1`, id)
	turn, err := scanTurn(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get turn %s: %w", id, err)
	}
	return turn, nil
}

// SessionHistory returns the latest limit turns of a session, oldest first.
func (s *PostgresStore) SessionHistory(ctx context.Context, sessionID string, limit int) ([]models.ChatTurn, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+turnColumns+`
		FROM helpdesk_turns
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("session history %s: %w", sessionID, err)
	}
	defer rows.Close()

	turns := []models.ChatTurn{}
	for rows.Next() {
		turn, err := scanTurn(rows)
		if err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, *turn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTurn(row rowScanner) (*models.ChatTurn, error) {
	var t models.ChatTurn
	var language, intent, source string
	var articleID sql.NullInt64
	if err := row.Scan(&t.ID, &t.SessionID, &t.Utterance, &language, &intent, &t.Answer,
		&source, &t.Confidence, &articleID, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.DetectedLanguage = models.ParseLanguage(language)
	t.Intent = models.Intent(intent)
	t.Source = models.Source(source)
	if articleID.Valid {
		id := articleID.Int64
		t.ArticleID = &id
	}
	return &t, nil
}

// RecordFeedback appends the feedback row and, when articleID is set, bumps the article's
// helpful or unhelpful counter in the same transaction.
func (s *PostgresStore) RecordFeedback(ctx context.Context, fb *models.Feedback, articleID *int64) error {
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = s.now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin feedback tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO helpdesk_feedback (id, message_id, rating, feedback_text, correct_answer, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6)`,
		fb.ID, fb.TurnID, string(fb.Rating), fb.FeedbackText, fb.Correction, fb.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}

	if articleID != nil {
		var counter string
		switch fb.Rating {
		case models.RatingHelpful:
			counter = "helpful_count"
		case models.RatingNotHelpful:
			counter = "unhelpful_count"
		}
		if counter != "" {
			if _, err := tx.ExecContext(ctx,
				`UPDATE helpdesk_articles SET `+counter+` = `+counter+` + 1 WHERE id = $1`, *articleID,
			); err != nil {
				return fmt.Errorf("update article counters: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit feedback: %w", err)
	}
	return nil
}
