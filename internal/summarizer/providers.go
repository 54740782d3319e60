package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Provider turns a prompt into model text.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

const requestTimeout = 60 * time.Second

// GeminiProvider calls the Gemini generateContent REST endpoint.
type GeminiProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewGeminiProvider creates a Gemini client for model.
func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	return &GeminiProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://generativelanguage.googleapis.com/v1beta",
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// Name identifies the provider in logs.
func (p *GeminiProvider) Name() string { return "gemini/" + p.model }

// Generate sends a single-turn prompt.
func (p *GeminiProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("%w: Gemini API key not set. Set GEMINI_API_KEY or gemini_api_key in config", ErrNotConfigured)
	}

	var request geminiRequest
	request.Contents = []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}}
	request.GenerationConfig.MaxOutputTokens = maxTokens

	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, p.model)
	body, status, err := postJSON(ctx, p.client, url, request, map[string]string{
		"x-goog-api-key": p.apiKey,
	})
	if err != nil {
		return "", err
	}

	var response geminiResponse
	if err := json.Unmarshal(body, &response); err != nil {
		if status != http.StatusOK {
			return "", fmt.Errorf("API error (status %d): %s", status, string(body))
		}
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if status != http.StatusOK {
		if response.Error != nil {
			return "", fmt.Errorf("API error: %s", response.Error.Message)
		}
		return "", fmt.Errorf("API error (status %d): %s", status, string(body))
	}
	if len(response.Candidates) == 0 {
		return "", fmt.Errorf("API returned no candidates")
	}

	var text strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), nil
}

// AnthropicProvider calls the Anthropic Messages API.
type AnthropicProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// AnthropicMessage represents a message in the Anthropic API format
type AnthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AnthropicRequest represents a request to the Anthropic API
type AnthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []AnthropicMessage `json:"messages"`
}

// AnthropicResponse represents a response from the Anthropic API
type AnthropicResponse struct {
	ID      string `json:"id"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropicProvider creates an Anthropic client for model.
func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	return &AnthropicProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.anthropic.com/v1",
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// Name identifies the provider in logs.
func (p *AnthropicProvider) Name() string { return "anthropic/" + p.model }

// Generate sends a single user message.
func (p *AnthropicProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("%w: Anthropic API key not set. Set ANTHROPIC_API_KEY or CLAUDE_API_KEY environment variable", ErrNotConfigured)
	}
	if maxTokens <= 0 {
		maxTokens = 4000
	}

	request := AnthropicRequest{
		Model:     p.model,
		MaxTokens: maxTokens,
		Messages:  []AnthropicMessage{{Role: "user", Content: prompt}},
	}

	body, status, err := postJSON(ctx, p.client, p.baseURL+"/messages", request, map[string]string{
		"X-API-Key":         p.apiKey,
		"anthropic-version": "2023-06-01",
	})
	if err != nil {
		return "", err
	}

	if status != http.StatusOK {
		var apiError anthropicError
		if err := json.Unmarshal(body, &apiError); err != nil || apiError.Error.Message == "" {
			return "", fmt.Errorf("API error (status %d): %s", status, string(body))
		}
		return "", fmt.Errorf("API error: %s", apiError.Error.Message)
	}

	var response AnthropicResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

func postJSON(ctx context.Context, client *http.Client, url string, payload any, headers map[string]string) ([]byte, int, error) {
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}
