package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/your-org/llm-orchestrator/pkg/adapters"
)

// ProviderName is the registry key for this adapter.
const ProviderName = "gemini"

const (
	defaultBaseURL   = "https://generativelanguage.googleapis.com"
	defaultMaxTokens = 512
)

var harmCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

// Client implements adapters.Provider for Gemini generateContent API.
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

	// The key travels in a header. Transport errors quote the request URL.
	urlStr := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	hReq, err := http.NewRequestWithContext(ctx, http.MethodPost, urlStr, nil)
	if err != nil {
		return adapters.GenerationResponse{}, fmt.Errorf("build request: %w", err)
	}
	hReq.Header.Set("x-goog-api-key", c.apiKey)

	body, err := adapters.DoJSON(ctx, c.httpClient, hReq, c.buildPayload(req, settings))
	if err != nil {
		return adapters.GenerationResponse{}, err
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text         string `json:"text"`
					FunctionCall *struct {
						Name string         `json:"name"`
						Args map[string]any `json:"args"`
					} `json:"functionCall"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
		} `json:"candidates"`
		PromptFeedback struct {
			BlockReason string `json:"blockReason"`
		} `json:"promptFeedback"`
		UsageMetadata struct {
			PromptTokenCount     int `json:"promptTokenCount"`
			CandidatesTokenCount int `json:"candidatesTokenCount"`
		} `json:"usageMetadata"`
		ModelVersion string `json:"modelVersion"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return adapters.GenerationResponse{}, fmt.Errorf("parse response: %w", err)
	}

	model := parsed.ModelVersion
	if model == "" {
		model = c.model
	}
	out := adapters.NewResponse(ProviderName, model, parsed.UsageMetadata.PromptTokenCount, parsed.UsageMetadata.CandidatesTokenCount, adapters.ElapsedMS(started))
	out.SafetyFlags["safety_level"] = string(settings.SafetyOrDefault())
	if parsed.PromptFeedback.BlockReason != "" {
		out.SafetyFlags["block_reason"] = parsed.PromptFeedback.BlockReason
	}

	text := ""
	for _, cand := range parsed.Candidates {
		for _, p := range cand.Content.Parts {
			if p.FunctionCall != nil {
				args := p.FunctionCall.Args
				if args == nil {
					args = map[string]any{}
				}
				out.ToolCalls = append(out.ToolCalls, adapters.ToolCall{Name: p.FunctionCall.Name, Arguments: args})
				continue
			}
			text += p.Text
		}
		switch cand.FinishReason {
		case "MAX_TOKENS":
			out.ConfidenceState = adapters.ConfidenceMinimal
		case "SAFETY", "PROHIBITED_CONTENT", "BLOCKLIST":
			out.SafetyFlags["finish_reason"] = cand.FinishReason
		}
	}
	out.Text = text
	return out, nil
}

func (c *Client) buildPayload(req adapters.GenerateRequest, s adapters.GenerationSettings) map[string]any {
	genCfg := map[string]any{
		"temperature":     s.Temperature,
		"maxOutputTokens": s.MaxTokensOr(defaultMaxTokens),
	}
	if s.TopP != nil {
		genCfg["topP"] = *s.TopP
	}
	if s.TopK != nil {
		genCfg["topK"] = *s.TopK
	}
	if s.PresencePenalty != nil {
		genCfg["presencePenalty"] = *s.PresencePenalty
	}
	if s.FrequencyPenalty != nil {
		genCfg["frequencyPenalty"] = *s.FrequencyPenalty
	}
	if s.JSONMode {
		genCfg["responseMimeType"] = "application/json"
	}

	payload := map[string]any{
		"contents": []map[string]any{{
			"role":  "user",
			"parts": []map[string]any{{"text": req.Prompt}},
		}},
		"generationConfig": genCfg,
		"safetySettings":   safetySettings(s.SafetyOrDefault()),
	}
	if req.System != "" {
		payload["systemInstruction"] = map[string]any{
			"parts": []map[string]any{{"text": req.System}},
		}
	}
	if !req.Tools.Empty() {
		decls := make([]map[string]any, 0, len(req.Tools))
		for _, def := range req.Tools.Definitions() {
			decls = append(decls, map[string]any{
				"name":        def.Name,
				"description": def.Description,
				"parameters":  def.Parameters,
			})
		}
		payload["tools"] = []map[string]any{{"functionDeclarations": decls}}
	}
	return payload
}

func safetySettings(level adapters.SafetyLevel) []map[string]any {
	threshold := "BLOCK_MEDIUM_AND_ABOVE"
	switch level {
	case adapters.SafetyStrict:
		threshold = "BLOCK_LOW_AND_ABOVE"
	case adapters.SafetyRaw:
		threshold = "BLOCK_NONE"
	}
	out := make([]map[string]any, 0, len(harmCategories))
	for _, category := range harmCategories {
		out = append(out, map[string]any{"category": category, "threshold": threshold})
	}
	return out
}
