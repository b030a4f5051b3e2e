// Package openai implements the llm.Client contract against any
// OpenAI-compatible chat-completions endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/kaptinlin/jsonrepair"

	"github.com/kursio/weft/pkg/llm"
)

const (
	defaultBaseURL  = "https://api.openai.com/v1"
	defaultModel    = "gpt-4o-mini"
	completionsPath = "/chat/completions"
)

// Provider calls an OpenAI-compatible chat-completions API.
type Provider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// Option configures the provider.
type Option func(*Provider)

// WithAPIKey sets the API key (default: OPENAI_API_KEY env).
func WithAPIKey(key string) Option {
	return func(p *Provider) {
		p.apiKey = key
	}
}

// WithBaseURL overrides the API base URL (default: OPENAI_API_BASE_URL env,
// then the public endpoint).
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		p.baseURL = url
	}
}

// WithModel sets the model identifier.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithHTTPClient sets the HTTP client used for outbound requests.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		p.client = client
	}
}

// New creates a provider with defaults taken from the environment.
func New(opts ...Option) *Provider {
	p := &Provider{
		apiKey:  os.Getenv("OPENAI_API_KEY"),
		baseURL: os.Getenv("OPENAI_API_BASE_URL"),
		model:   defaultModel,
		client:  &http.Client{},
	}
	if p.baseURL == "" {
		p.baseURL = defaultBaseURL
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Complete implements llm.Client.
func (p *Provider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("openai: API key is not set")
	}

	body, err := json.Marshal(toWire(p.model, req))
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	res, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai: send request: %w", err)
	}
	defer res.Body.Close()

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("openai: read response: %w", err)
	}

	var wire chatResponse
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return nil, fmt.Errorf("openai: decode response (status %d): %w", res.StatusCode, err)
	}
	if wire.Error != nil {
		return nil, fmt.Errorf("openai: API error (status %d): %s", res.StatusCode, wire.Error.Message)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("openai: unexpected status %d", res.StatusCode)
	}
	if len(wire.Choices) == 0 {
		return nil, fmt.Errorf("openai: no choices in response")
	}

	return fromWire(wire.Choices[0].Message)
}

func toWire(model string, req llm.Request) chatRequest {
	out := chatRequest{
		Model:       model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	if req.System != "" {
		out.Messages = append(out.Messages, chatMessage{Role: llm.RoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, chatMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			Name:       m.Name,
		})
	}
	for _, t := range req.Tools {
		out.Tools = append(out.Tools, chatTool{
			Type: "function",
			Function: chatFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}

func fromWire(msg chatMessage) (*llm.Response, error) {
	resp := &llm.Response{Content: msg.Content}

	for _, tc := range msg.ToolCalls {
		args, err := decodeArguments(tc.Function.Arguments)
		if err != nil {
			return nil, fmt.Errorf("openai: decode arguments for tool %s: %w", tc.Function.Name, err)
		}
		id := tc.ID
		if id == "" {
			id = uuid.NewString()
		}
		resp.ToolCalls = append(resp.ToolCalls, llm.ToolCall{
			ID:   id,
			Name: tc.Function.Name,
			Args: args,
		})
	}
	return resp, nil
}

// decodeArguments parses the tool-call argument string. Models occasionally
// emit malformed JSON; a repair pass is attempted before giving up.
func decodeArguments(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(raw)
		if repairErr != nil {
			return nil, fmt.Errorf("unmarshal error: %w, repair error: %v", err, repairErr)
		}
		if err := json.Unmarshal([]byte(repaired), &args); err != nil {
			return nil, err
		}
	}
	return args, nil
}
