package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name          string
		err           *StandardError
		expectedCode  string
		expectedRetry int
	}{
		{"turn not found is terminal", NewTurnNotFoundError("t-1"), "TURN_NOT_FOUND", 0},
		{"database failure retries", NewQueryExecutionFailedError("kb_search", fmt.Errorf("conn reset")), "QUERY_EXECUTION_FAILED", 3},
		{"fallback timeout retries once", NewFallbackTimeoutError(), "FALLBACK_TIMEOUT", 1},
		{"rule evaluation retries twice", NewRuleEvaluationFailedError(fmt.Errorf("boom")), "RULE_EVALUATION_FAILED", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, tt.expectedCode, bpmn.Code)
			assert.Equal(t, tt.expectedRetry, bpmn.Retries)
			assert.Equal(t, string(tt.err.Code), bpmn.ErrorVariables["originalErrorCode"])
		})
	}
}

func TestConvertToBPMNError_NonRetryableOverridesCode(t *testing.T) {
	err := NewQueryExecutionFailedError("x", fmt.Errorf("bad"))
	err.Retryable = false

	assert.Equal(t, 0, ConvertToBPMNError(err).Retries)
}

func TestConvertToBPMNError_CarriesMetadata(t *testing.T) {
	err := NewTurnNotFoundError("t-9").WithMetadata("messageId", "t-9")

	vars := ConvertToBPMNError(err).ToErrorVariables()
	assert.Equal(t, "t-9", vars["messageId"])
	assert.Equal(t, "TURN_NOT_FOUND", vars["errorCode"])
}

func TestNormalize(t *testing.T) {
	wrapped := fmt.Errorf("saving feedback: %w", NewTurnNotFoundError("t-2"))
	std := Normalize(wrapped)
	assert.Equal(t, ErrCodeTurnNotFound, std.Code)

	plain := Normalize(fmt.Errorf("something odd"))
	assert.Equal(t, ErrCodeInternal, plain.Code)
	assert.False(t, plain.Retryable)
	assert.Equal(t, "something odd", plain.Details)
}

func TestAsStandardError(t *testing.T) {
	_, ok := AsStandardError(fmt.Errorf("nope"))
	assert.False(t, ok)

	std, ok := AsStandardError(NewInvalidRatingError("Meh"))
	require.True(t, ok)
	assert.Equal(t, "Meh", std.Details)
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "CONVERSATION", GetErrorCategory(ErrCodeTurnNotFound))
	assert.Equal(t, "RULES", GetErrorCategory(ErrCodeRuleEvaluationFailed))
	assert.Equal(t, "AI", GetErrorCategory(ErrCodeFallbackUnavailable))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeDatabaseInsertFailed))
	assert.Equal(t, "SEARCH", GetErrorCategory(ErrCodeKBSearchFailed))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidInput))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

func TestIsRetryableErrorCode(t *testing.T) {
	assert.True(t, IsRetryableErrorCode(ErrCodeDatabaseConnectionFailed))
	assert.False(t, IsRetryableErrorCode(ErrCodeInvalidInput))
}
