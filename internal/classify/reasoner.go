package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ContentRadar/internal/config"
	"ContentRadar/internal/ports"
)

// ChatReasoner implements ports.Reasoner backed by OpenAI-compatible
// chat-completion APIs.
type ChatReasoner struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

var _ ports.Reasoner = (*ChatReasoner)(nil)

// NewChatReasoner builds a client from configuration.
func NewChatReasoner(cfg config.ClassifierConfig) *ChatReasoner {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &ChatReasoner{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Submit posts the prompt as a user message and returns the first choice's
// content together with the reported token usage.
func (r *ChatReasoner) Submit(ctx context.Context, prompt string) (string, ports.TokenUsage, error) {
	if r == nil {
		return "", ports.TokenUsage{}, fmt.Errorf("reasoner client is nil")
	}
	if r.apiKey == "" || r.endpoint == "" || r.model == "" {
		return "", ports.TokenUsage{}, fmt.Errorf("reasoner client misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model": r.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", ports.TokenUsage{}, fmt.Errorf("marshal reasoner payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", ports.TokenUsage{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", ports.TokenUsage{}, fmt.Errorf("submit prompt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", ports.TokenUsage{}, fmt.Errorf("reasoner error %s: %s",
			resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", ports.TokenUsage{}, fmt.Errorf("decode reasoner response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", ports.TokenUsage{}, fmt.Errorf("reasoner returned no choices")
	}

	usage := ports.TokenUsage{
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
	}
	return parsed.Choices[0].Message.Content, usage, nil
}
