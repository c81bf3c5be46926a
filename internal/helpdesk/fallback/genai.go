package fallback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	httpclient "erp-helpdesk-workers/internal/common/http"
)

// GenAIProvider calls the in-house generation gateway.
type GenAIProvider struct {
	baseURL    string
	model      string
	maxRetries int
	client     *httpclient.Client
}

func NewGenAIProvider(baseURL, apiKey, model string, maxRetries int) *GenAIProvider {
	client := httpclient.NewClient(0)
	if apiKey != "" {
		client.WithHeader("Authorization", "Bearer "+apiKey)
	}
	return &GenAIProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		maxRetries: maxRetries,
		client:     client,
	}
}

func (p *GenAIProvider) Name() string {
	return "genai"
}

type genAIRequest struct {
	Prompt      string                 `json:"prompt"`
	Context     map[string]interface{} `json:"context"`
	MaxTokens   int                    `json:"max_tokens"`
	Temperature float64                `json:"temperature"`
	Model       string                 `json:"model,omitempty"`
}

type genAIResponse struct {
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Sources    []string `json:"sources"`
}

func (p *GenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}
	body := genAIRequest{
		Prompt:      req.Prompt,
		Context:     map[string]interface{}{"system": req.System},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Model:       model,
	}

	var out genAIResponse
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		lastErr = p.client.PostJSON(ctx, p.baseURL+"/api/ai/generate", body, &out)
		if lastErr == nil {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var statusErr *httpclient.StatusError
		if errors.As(lastErr, &statusErr) && !statusErr.Retryable() {
			break
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("genai request failed: %w", lastErr)
	}

	return &CompletionResponse{Content: out.Text, Model: model}, nil
}
