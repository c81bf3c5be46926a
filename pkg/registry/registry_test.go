package registry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleActivity() Activity {
	return Activity{
		ID:          "helpdesk.query.resolve",
		DisplayName: "Resolve Help-Desk Query",
		Category:    "helpdesk",
		TaskType:    "helpdesk-resolve-query",
		Timeout:     "45s",
		Retries:     1,
		ErrorCodes:  []string{"INVALID_INPUT"},
		InputSchema: map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"message"},
			"properties": map[string]interface{}{
				"message": map[string]interface{}{"type": "string"},
			},
		},
	}
}

func TestRegistry_SaveLoadFind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "activity-registry.json")

	reg := &ActivityRegistry{Version: "1.0.0"}
	require.NoError(t, reg.Add(sampleActivity(), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, reg.Save(path))

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T00:00:00Z", loaded.LastUpdated)

	a, ok := loaded.Find("helpdesk-resolve-query")
	require.True(t, ok)
	assert.Equal(t, 45*time.Second, a.TimeoutDuration(time.Second))
	assert.True(t, a.HasErrorCode("INVALID_INPUT"))
	assert.False(t, a.HasErrorCode("TURN_NOT_FOUND"))

	_, ok = loaded.Find("unknown")
	assert.False(t, ok)
}

func TestRegistry_AddRejectsDuplicates(t *testing.T) {
	reg := &ActivityRegistry{}
	require.NoError(t, reg.Add(sampleActivity(), time.Now()))

	dup := sampleActivity()
	assert.Error(t, reg.Add(dup, time.Now()))

	dup.ID = "helpdesk.query.other"
	assert.Error(t, reg.Add(dup, time.Now()))
}

func TestRegistry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(a *Activity)
		wantErr string
	}{
		{"valid", func(a *Activity) {}, ""},
		{"missing display name", func(a *Activity) { a.DisplayName = "" }, "DisplayName"},
		{"bad timeout", func(a *Activity) { a.Timeout = "soon" }, "invalid timeout"},
		{"broken schema", func(a *Activity) { a.InputSchema = map[string]interface{}{"type": 12} }, "input schema"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := sampleActivity()
			tt.mutate(&a)
			reg := &ActivityRegistry{Activities: []Activity{a}}

			err := reg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTimeoutDuration_Fallback(t *testing.T) {
	a := Activity{}
	assert.Equal(t, 10*time.Second, a.TimeoutDuration(10*time.Second))
}
