package camunda

import (
	"context"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erp-helpdesk-workers/internal/common/errors"
	"erp-helpdesk-workers/internal/common/validation"
	"erp-helpdesk-workers/pkg/registry"
)

func createMockJob(variables string) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:       1,
		Type:      "helpdesk-search-kb",
		Retries:   3,
		Variables: variables,
	}}
}

type searchInput struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func TestDecodeVariables(t *testing.T) {
	reg := &registry.ActivityRegistry{Activities: []registry.Activity{{
		TaskType: "helpdesk-search-kb",
		InputSchema: map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"query"},
			"properties": map[string]interface{}{
				"query": map[string]interface{}{"type": "string"},
			},
		},
	}}}
	v, err := validation.NewValidator(reg)
	require.NoError(t, err)

	var in searchInput
	require.NoError(t, DecodeVariables(createMockJob(`{"query":"stock entry","limit":5}`), "helpdesk-search-kb", v, &in))
	assert.Equal(t, searchInput{Query: "stock entry", Limit: 5}, in)

	err = DecodeVariables(createMockJob(`{"limit":5}`), "helpdesk-search-kb", v, &in)
	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeInvalidInput, stdErr.Code)

	err = DecodeVariables(createMockJob(`not json`), "helpdesk-search-kb", nil, &in)
	assert.Error(t, err)
}

type recordedCall struct {
	taskType string
	status   string
}

type fakeRecorder struct {
	processed []recordedCall
	durations int
}

func (f *fakeRecorder) RecordJobProcessed(ctx context.Context, taskType, status string) {
	f.processed = append(f.processed, recordedCall{taskType, status})
}

func (f *fakeRecorder) RecordJobDuration(ctx context.Context, taskType string, d time.Duration, status string) {
	f.durations++
}

func TestJobRun_RecordsOnce(t *testing.T) {
	rec := &fakeRecorder{}
	run := StartJob("helpdesk-search-kb", rec)
	run.Complete(context.Background())
	run.Fail(context.Background(), errors.NewInvalidInputError("late"))

	assert.Equal(t, []recordedCall{{"helpdesk-search-kb", "completed"}}, rec.processed)
	assert.Equal(t, 1, rec.durations)
}

func TestJobRun_Fail(t *testing.T) {
	rec := &fakeRecorder{}
	run := StartJob("helpdesk-submit-feedback", rec)
	run.Fail(context.Background(), errors.NewTurnNotFoundError("t-1"))

	require.Len(t, rec.processed, 1)
	assert.Equal(t, "failed", rec.processed[0].status)
}
