package openai

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
const ProviderName = "openai"

const (
	defaultBaseURL   = "https://api.openai.com"
	defaultMaxTokens = 512
)

// Client implements adapters.Provider for OpenAI Responses API.
type Client struct {
	apiKey       string
	baseURL      string
	model        string
	organization string
	httpClient   *http.Client
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
	c := NewClient(cfg.APIKey, cfg.HTTPClient, cfg.BaseURL, cfg.Model)
	c.organization = cfg.Extra["organization"]
	return c, nil
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

	url := c.baseURL + "/v1/responses"
	hReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return adapters.GenerationResponse{}, fmt.Errorf("build request: %w", err)
	}
	hReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.organization != "" {
		hReq.Header.Set("OpenAI-Organization", c.organization)
	}

	body, err := adapters.DoJSON(ctx, c.httpClient, hReq, c.buildPayload(req, settings))
	if err != nil {
		return adapters.GenerationResponse{}, err
	}

	var parsed struct {
		Model  string `json:"model"`
		Status string `json:"status"`
		Output []struct {
			Type      string `json:"type"`
			Name      string `json:"name"`
			Arguments string `json:"arguments"`
			Content   []struct {
				Type    string `json:"type"`
				Text    string `json:"text"`
				Refusal string `json:"refusal"`
			} `json:"content"`
		} `json:"output"`
		OutputText        string `json:"output_text"`
		IncompleteDetails *struct {
			Reason string `json:"reason"`
		} `json:"incomplete_details"`
		Usage struct {
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

	text := strings.TrimSpace(parsed.OutputText)
	collectText := text == ""
	for _, o := range parsed.Output {
		switch o.Type {
		case "function_call":
			out.ToolCalls = append(out.ToolCalls, adapters.ToolCall{Name: o.Name, Arguments: adapters.DecodeArguments(o.Arguments)})
		default:
			for _, part := range o.Content {
				if part.Type == "refusal" || part.Refusal != "" {
					out.SafetyFlags["refusal"] = part.Refusal
					continue
				}
				if collectText && (part.Type == "output_text" || part.Text != "") {
					text += part.Text
				}
			}
		}
	}
	out.Text = text

	if parsed.Status == "incomplete" {
		out.ConfidenceState = adapters.ConfidenceMinimal
		if parsed.IncompleteDetails != nil {
			out.SafetyFlags["incomplete_reason"] = parsed.IncompleteDetails.Reason
			if parsed.IncompleteDetails.Reason == "content_filter" {
				out.SafetyFlags["content_filtered"] = true
			}
		}
	}
	return out, nil
}

func (c *Client) buildPayload(req adapters.GenerateRequest, s adapters.GenerationSettings) map[string]any {
	payload := map[string]any{
		"model":             c.model,
		"input":             req.Prompt,
		"max_output_tokens": s.MaxTokensOr(defaultMaxTokens),
		"temperature":       s.Temperature,
	}
	if req.System != "" {
		payload["instructions"] = req.System
	}
	if s.TopP != nil {
		payload["top_p"] = *s.TopP
	}
	if s.JSONMode {
		payload["text"] = map[string]any{"format": map[string]any{"type": "json_object"}}
	}
	if !req.Tools.Empty() {
		tools := make([]map[string]any, 0, len(req.Tools))
		for _, def := range req.Tools.Definitions() {
			tools = append(tools, map[string]any{
				"type":        "function",
				"name":        def.Name,
				"description": def.Description,
				"parameters":  def.Parameters,
			})
		}
		payload["tools"] = tools
	}
	return payload
}
