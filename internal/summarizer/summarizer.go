// Package summarizer turns session text into structured notes and condenses
// archived sessions, using Gemini or Anthropic.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vanpelt/monorail/internal/config"
	"github.com/vanpelt/monorail/internal/logger"
	"github.com/vanpelt/monorail/internal/models"
)

var (
	// ErrRateLimited means the call was refused to respect the minimum
	// interval between extractions. It is flow control, not a failure.
	ErrRateLimited = errors.New("summarizer rate limited")
	// ErrNotConfigured means no API key is available for the provider.
	ErrNotConfigured = errors.New("summarizer not configured")
)

// extractMaxTokens bounds the structured extraction response.
const extractMaxTokens = 2048

// ExtractRequest is the input to an extraction.
type ExtractRequest struct {
	Text            string
	Project         string
	Tool            string
	PreviousContext string
}

// Client wraps a provider with prompt templates and the global rate limit.
type Client struct {
	provider    Provider
	templates   *Templates
	minInterval time.Duration

	mu       sync.Mutex
	lastCall time.Time
	now      func() time.Time
}

// New builds a client for the configured provider, loading prompt overrides
// from promptsDir.
func New(cfg *config.Config, promptsDir string) (*Client, error) {
	templates, err := LoadTemplates(promptsDir)
	if err != nil {
		return nil, err
	}

	var provider Provider
	switch cfg.Provider {
	case config.ProviderAnthropic:
		provider = NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	default:
		provider = NewGeminiProvider(cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	return NewWithProvider(provider, templates, cfg.MinExtractInterval()), nil
}

// NewWithProvider builds a client around an explicit provider.
func NewWithProvider(provider Provider, templates *Templates, minInterval time.Duration) *Client {
	return &Client{
		provider:    provider,
		templates:   templates,
		minInterval: minInterval,
		now:         time.Now,
	}
}

// ProviderName identifies the backing model.
func (c *Client) ProviderName() string {
	return c.provider.Name()
}

// Extract asks the model for structured notes. It returns ErrRateLimited
// without calling the provider when the previous extraction was too recent.
func (c *Client) Extract(ctx context.Context, req ExtractRequest) (*models.ExtractionResult, error) {
	if err := c.reserve(); err != nil {
		return nil, err
	}

	prompt, err := c.templates.renderExtract(ExtractData{
		Project:         req.Project,
		Tool:            req.Tool,
		Log:             req.Text,
		PreviousContext: req.PreviousContext,
	})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	response, err := c.provider.Generate(ctx, prompt, extractMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("extraction via %s failed: %w", c.provider.Name(), err)
	}
	logger.Debugf("🧠 Extraction for %s took %s (%d bytes in, %d out)", req.Project, time.Since(start).Round(time.Millisecond), len(req.Text), len(response))

	return ParseExtraction(response), nil
}

// Summarize condenses archived sessions. It is not subject to the rate limit
// since it only ever follows a successful extraction.
func (c *Client) Summarize(ctx context.Context, text string, maxTokens int) (string, error) {
	prompt, err := c.templates.renderSummarize(SummarizeData{Sessions: text, MaxTokens: maxTokens})
	if err != nil {
		return "", err
	}

	// Leave headroom over the requested length so the reply is not cut mid-sentence.
	response, err := c.provider.Generate(ctx, prompt, maxTokens*2)
	if err != nil {
		return "", fmt.Errorf("summarization via %s failed: %w", c.provider.Name(), err)
	}
	return strings.TrimSpace(response), nil
}

// reserve claims the next extraction slot.
func (c *Client) reserve() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if !c.lastCall.IsZero() && now.Sub(c.lastCall) < c.minInterval {
		return ErrRateLimited
	}
	c.lastCall = now
	return nil
}
