package anthropic

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
const ProviderName = "anthropic"

const (
	defaultBaseURL   = "https://api.anthropic.com"
	defaultMaxTokens = 1024
	apiVersion       = "2023-06-01"
)

// Client implements adapters.Provider for Anthropic Messages API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewClient(apiKey string, httpClient *http.Client, baseURL string, model string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{apiKey: apiKey, httpClient: httpClient, baseURL: strings.TrimRight(baseURL, "/"), model: model}
}

// New is the registry constructor.
func New(cfg adapters.ProviderConfig) (adapters.Provider, error) {
	return NewClient(cfg.APIKey, cfg.HTTPClient, cfg.BaseURL, cfg.Model), nil
}

func (c *Client) Name() string { return ProviderName }

func (c *Client) DetectCapabilities() adapters.Capabilities {
	return capabilitiesFor(c.model)
}

func (c *Client) Generate(ctx context.Context, req adapters.GenerateRequest) (adapters.GenerationResponse, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return adapters.GenerationResponse{}, adapters.ErrMissingAPIKey
	}
	settings := req.ResolvedSettings()
	started := time.Now()

	url := c.baseURL + "/v1/messages"
	hReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return adapters.GenerationResponse{}, fmt.Errorf("build request: %w", err)
	}
	hReq.Header.Set("x-api-key", c.apiKey)
	hReq.Header.Set("anthropic-version", apiVersion)

	body, err := adapters.DoJSON(ctx, c.httpClient, hReq, c.buildPayload(req, settings))
	if err != nil {
		return adapters.GenerationResponse{}, err
	}

	var parsed struct {
		Model   string `json:"model"`
		Content []struct {
			Type  string         `json:"type"`
			Text  string         `json:"text"`
			Name  string         `json:"name"`
			Input map[string]any `json:"input"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
		Usage      struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return adapters.GenerationResponse{}, fmt.Errorf("parse response: %w", err)
	}

	model := parsed.Model
	if model == "" {
		model = c.model
	}
	out := adapters.NewResponse(ProviderName, model, parsed.Usage.InputTokens, parsed.Usage.OutputTokens, adapters.ElapsedMS(started))
	out.SafetyFlags["safety_level"] = string(settings.SafetyOrDefault())

	text := ""
	for _, block := range parsed.Content {
		switch block.Type {
		case "tool_use":
			args := block.Input
			if args == nil {
				args = map[string]any{}
			}
			out.ToolCalls = append(out.ToolCalls, adapters.ToolCall{Name: block.Name, Arguments: args})
		case "text":
			text += block.Text
		}
	}
	out.Text = text

	switch parsed.StopReason {
	case "max_tokens":
		out.ConfidenceState = adapters.ConfidenceMinimal
	case "refusal":
		out.SafetyFlags["refusal"] = true
	}
	if parsed.StopReason != "" {
		out.SafetyFlags["stop_reason"] = parsed.StopReason
	}
	return out, nil
}

func (c *Client) buildPayload(req adapters.GenerateRequest, s adapters.GenerationSettings) map[string]any {
	payload := map[string]any{
		"model":       c.model,
		"max_tokens":  s.MaxTokensOr(defaultMaxTokens),
		"temperature": min(s.Temperature, 1),
		"messages": []map[string]any{{
			"role":    "user",
			"content": req.Prompt,
		}},
	}
	if req.System != "" {
		payload["system"] = req.System
	}
	if s.TopP != nil {
		payload["top_p"] = *s.TopP
	}
	if s.TopK != nil {
		payload["top_k"] = *s.TopK
	}
	if !req.Tools.Empty() {
		tools := make([]map[string]any, 0, len(req.Tools))
		for _, def := range req.Tools.Definitions() {
			tools = append(tools, map[string]any{
				"name":         def.Name,
				"description":  def.Description,
				"input_schema": def.Parameters,
			})
		}
		payload["tools"] = tools
	}
	return payload
}
