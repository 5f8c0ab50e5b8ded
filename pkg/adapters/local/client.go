package local

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/your-org/llm-orchestrator/pkg/adapters"
)

// ProviderName is the registry key for this adapter.
const ProviderName = "local"

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "llama3.1"
)

var capabilities = adapters.Capabilities{
	MaxContextTokens:   8192,
	MaxOutputTokens:    2048,
	ToolCallSupport:    adapters.ToolCallNone,
	FunctionCallFormat: adapters.FunctionCallNone,
	Streaming:          true,
	JSONMode:           true,
	Reasoning:          false,
	Availability:       adapters.AvailabilityVariable,
}

// Client talks to an Ollama-compatible chat endpoint. It needs no API key.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewClient(httpClient *http.Client, baseURL string, model string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{httpClient: httpClient, baseURL: strings.TrimRight(baseURL, "/"), model: model}
}

// New is the registry constructor. APIKey is ignored.
func New(cfg adapters.ProviderConfig) (adapters.Provider, error) {
	return NewClient(cfg.HTTPClient, cfg.BaseURL, cfg.Model), nil
}

func (c *Client) Name() string { return ProviderName }

func (c *Client) DetectCapabilities() adapters.Capabilities { return capabilities }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Format   string         `json:"format,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	DoneReason      string      `json:"done_reason"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
}

func (c *Client) Generate(ctx context.Context, req adapters.GenerateRequest) (adapters.GenerationResponse, error) {
	if !req.Tools.Empty() {
		return adapters.GenerationResponse{}, adapters.ErrToolsUnsupported
	}
	settings := req.ResolvedSettings()
	started := time.Now()

	hReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", nil)
	if err != nil {
		return adapters.GenerationResponse{}, fmt.Errorf("build request: %w", err)
	}
	body, err := adapters.DoJSON(ctx, c.httpClient, hReq, c.buildRequest(req, settings))
	if err != nil {
		return adapters.GenerationResponse{}, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return adapters.GenerationResponse{}, fmt.Errorf("parse response: %w", err)
	}

	model := parsed.Model
	if model == "" {
		model = c.model
	}
	out := adapters.NewResponse(ProviderName, model, parsed.PromptEvalCount, parsed.EvalCount, adapters.ElapsedMS(started))
	out.Text = parsed.Message.Content
	out.SafetyFlags["safety_level"] = string(settings.SafetyOrDefault())
	if parsed.DoneReason == "length" {
		out.ConfidenceState = adapters.ConfidenceMinimal
	}
	return out, nil
}

// Streaming is never requested; the response is read in one piece.
func (c *Client) buildRequest(req adapters.GenerateRequest, s adapters.GenerationSettings) chatRequest {
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	opts := map[string]any{"temperature": s.Temperature}
	if s.MaxTokens != nil {
		opts["num_predict"] = *s.MaxTokens
	}
	if s.TopP != nil {
		opts["top_p"] = *s.TopP
	}
	if s.TopK != nil {
		opts["top_k"] = *s.TopK
	}
	if s.PresencePenalty != nil {
		opts["presence_penalty"] = *s.PresencePenalty
	}
	if s.FrequencyPenalty != nil {
		opts["frequency_penalty"] = *s.FrequencyPenalty
	}

	out := chatRequest{Model: c.model, Messages: messages, Stream: false, Options: opts}
	if s.JSONMode {
		out.Format = "json"
	}
	return out
}
