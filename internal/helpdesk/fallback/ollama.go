package fallback

import (
	"context"
	"fmt"
	"strings"

	httpclient "erp-helpdesk-workers/internal/common/http"
)

// DefaultOllamaModel is small enough to run on a CPU-only worker node.
const DefaultOllamaModel = "llama3.2:3b"

// OllamaProvider talks to a local Ollama daemon. The model is pulled on first acquisition.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *httpclient.Client
}

func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  httpclient.NewClient(0),
	}
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

func (p *OllamaProvider) Local() bool {
	return true
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

type ollamaPullRequest struct {
	Model  string `json:"model"`
	Stream bool   `json:"stream"`
}

type ollamaPullResponse struct {
	Status string `json:"status"`
}

func (p *OllamaProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	body := ollamaGenerateRequest{
		Model:  model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: false,
		Options: ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	}

	var out ollamaGenerateResponse
	if err := p.client.PostJSON(ctx, p.baseURL+"/api/generate", body, &out); err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	return &CompletionResponse{Content: out.Response, Model: out.Model}, nil
}

// Acquire makes sure the model is present locally, pulling it when the daemon does not have it.
func (p *OllamaProvider) Acquire(ctx context.Context) error {
	var tags ollamaTagsResponse
	if err := p.client.GetJSON(ctx, p.baseURL+"/api/tags", &tags); err != nil {
		return fmt.Errorf("ollama list models: %w", err)
	}
	for _, m := range tags.Models {
		if m.Name == p.model || m.Model == p.model {
			return nil
		}
	}

	var pull ollamaPullResponse
	if err := p.client.PostJSON(ctx, p.baseURL+"/api/pull", ollamaPullRequest{Model: p.model, Stream: false}, &pull); err != nil {
		return fmt.Errorf("ollama pull %s: %w", p.model, err)
	}
	if pull.Status != "success" {
		return fmt.Errorf("ollama pull %s: status %q", p.model, pull.Status)
	}
	return nil
}
