package feedback

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"erp-helpdesk-workers/internal/common/logger"
	"erp-helpdesk-workers/internal/helpdesk/store"
	"erp-helpdesk-workers/internal/models"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetTurn(ctx context.Context, id string) (*models.ChatTurn, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatTurn), args.Error(1)
}

func (m *MockStore) RecordFeedback(ctx context.Context, fb *models.Feedback, articleID *int64) error {
	return m.Called(ctx, fb, articleID).Error(0)
}

var fixedNow = time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

func newTestRecorder(t *testing.T, s Store) *Recorder {
	r := NewRecorder(s, logger.NewTestLogger(t))
	r.now = func() time.Time { return fixedNow }
	return r
}

func TestRecord_Validation(t *testing.T) {
	tests := []struct {
		name    string
		input   models.Feedback
		wantErr error
	}{
		{"missing turn", models.Feedback{Rating: models.RatingHelpful}, ErrMissingTurnID},
		{"blank turn", models.Feedback{TurnID: "  ", Rating: models.RatingHelpful}, ErrMissingTurnID},
		{"unknown rating", models.Feedback{TurnID: "t-1", Rating: "Amazing"}, ErrInvalidRating},
		{"empty rating", models.Feedback{TurnID: "t-1"}, ErrInvalidRating},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := new(MockStore)
			r := newTestRecorder(t, s)

			_, err := r.Record(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
			s.AssertNotCalled(t, "RecordFeedback", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRecord_UnknownTurn(t *testing.T) {
	s := new(MockStore)
	s.On("GetTurn", mock.Anything, "missing").Return(nil, store.ErrNotFound)

	r := newTestRecorder(t, s)
	_, err := r.Record(context.Background(), models.Feedback{TurnID: "missing", Rating: models.RatingHelpful})

	assert.ErrorIs(t, err, ErrTurnNotFound)
	s.AssertNotCalled(t, "RecordFeedback", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecord_StoreFailure(t *testing.T) {
	s := new(MockStore)
	s.On("GetTurn", mock.Anything, "t-1").Return(nil, errors.New("connection refused"))

	r := newTestRecorder(t, s)
	_, err := r.Record(context.Background(), models.Feedback{TurnID: "t-1", Rating: models.RatingHelpful})

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTurnNotFound)
}

func TestRecord_ArticleCounterOnlyForKnowledgeBaseTurns(t *testing.T) {
	articleID := int64(7)

	tests := []struct {
		name        string
		turn        *models.ChatTurn
		wantArticle *int64
	}{
		{
			name:        "knowledge base answer",
			turn:        &models.ChatTurn{ID: "t-1", Source: models.SourceKnowledgeBase, ArticleID: &articleID},
			wantArticle: &articleID,
		},
		{
			name: "generated answer",
			turn: &models.ChatTurn{ID: "t-1", Source: models.SourceGenerativeFallback},
		},
		{
			name: "default answer",
			turn: &models.ChatTurn{ID: "t-1", Source: models.SourceDefault},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := new(MockStore)
			s.On("GetTurn", mock.Anything, "t-1").Return(tt.turn, nil)
			s.On("RecordFeedback", mock.Anything, mock.MatchedBy(func(fb *models.Feedback) bool {
				return fb.TurnID == "t-1" && fb.Rating == models.RatingNotHelpful && fb.CreatedAt.Equal(fixedNow)
			}), tt.wantArticle).Return(nil)

			r := newTestRecorder(t, s)
			got, err := r.Record(context.Background(), models.Feedback{
				TurnID:       " t-1 ",
				Rating:       "not helpful",
				FeedbackText: "  wrong menu  ",
			})

			require.NoError(t, err)
			assert.Equal(t, models.RatingNotHelpful, got.Rating)
			assert.Equal(t, "wrong menu", got.FeedbackText)
			s.AssertExpectations(t)
		})
	}
}

func TestRecord_StoredOnceInPostgres(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	pg := store.NewPostgresStore(db)
	r := newTestRecorder(t, pg)

	turnCols := []string{"id", "session_id", "user_message", "detected_language", "intent", "bot_response",
		"response_source", "confidence_score", "article_id", "created_at"}
	sqlMock.ExpectQuery(regexp.QuoteMeta("FROM helpdesk_turns WHERE id = $1")).
		WithArgs("t-1").
		WillReturnRows(sqlmock.NewRows(turnCols).AddRow(
			"t-1", "s-1", "how do i create a sales invoice", "English", "HowTo", "Go to Accounts.",
			"KnowledgeBase", 75.0, int64(3), fixedNow))
	sqlMock.ExpectBegin()
	sqlMock.ExpectExec(regexp.QuoteMeta("INSERT INTO helpdesk_feedback")).
		WithArgs(sqlmock.AnyArg(), "t-1", "Helpful", "", "", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	sqlMock.ExpectExec(regexp.QuoteMeta("UPDATE helpdesk_articles SET helpful_count")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	sqlMock.ExpectCommit()

	saved, err := r.Record(context.Background(), models.Feedback{TurnID: "t-1", Rating: models.RatingHelpful})
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)
	assert.Equal(t, models.RatingHelpful, saved.Rating)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}
