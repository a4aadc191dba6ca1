// Package gemini implements llm.Generator on the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/ia-avocats/backend/internal/llm"
	"google.golang.org/genai"
)

// Config selects the API keys and models.
type Config struct {
	APIKeys     []string
	TextModel   string
	VisionModel string
}

// Client is a Gemini-backed generator. It rotates through its API keys
// when a key hits its quota.
type Client struct {
	cfg     Config
	logger  *slog.Logger
	clients []*genai.Client

	mu         sync.Mutex
	currentKey int
}

// New creates one SDK client per key.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if len(cfg.APIKeys) == 0 {
		return nil, fmt.Errorf("gemini: at least one API key is required")
	}
	if cfg.TextModel == "" {
		cfg.TextModel = "gemini-2.5-flash"
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = cfg.TextModel
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{cfg: cfg, logger: logger}
	for i, key := range cfg.APIKeys {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini: create client for key %d: %w", i+1, err)
		}
		c.clients = append(c.clients, client)
	}
	return c, nil
}

// Generate implements llm.Generator.
func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	model := c.cfg.TextModel
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if req.Attachment != nil {
		model = c.cfg.VisionModel
		parts = append(parts, genai.NewPartFromBytes(req.Attachment.Data, req.Attachment.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	config := &genai.GenerateContentConfig{Temperature: genai.Ptr(req.Temperature)}

	var lastErr error
	for range c.clients {
		client, idx := c.client()

		result, err := client.Models.GenerateContent(ctx, model, contents, config)
		if err != nil {
			if isRateLimited(err) {
				c.logger.Warn("gemini key rate limited, rotating", "key", idx+1)
				c.rotate(idx)
				lastErr = err
				continue
			}
			return "", mapError(err)
		}
		return responseText(result)
	}
	return "", fmt.Errorf("gemini: all API keys exhausted: %w", lastErr)
}

func (c *Client) client() (*genai.Client, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clients[c.currentKey], c.currentKey
}

// rotate advances past idx unless another caller already did.
func (c *Client) rotate(idx int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentKey == idx {
		c.currentKey = (c.currentKey + 1) % len(c.clients)
	}
}

func responseText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", llm.ErrEmptyResponse
	}
	var b strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	return b.String(), nil
}

func isRateLimited(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED"
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

func mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized, apiErr.Code == http.StatusForbidden,
			apiErr.Status == "UNAUTHENTICATED", apiErr.Status == "PERMISSION_DENIED":
			return fmt.Errorf("%w: %v", llm.ErrUnauthenticated, err)
		}
	}
	return fmt.Errorf("gemini: generate content: %w", err)
}
