// Package vertex implements llm.Generator on Vertex AI.
package vertex

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/ia-avocats/backend/internal/llm"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Config selects the project, region and models.
type Config struct {
	ProjectID   string
	Region      string
	TextModel   string
	VisionModel string
}

// Client holds the text and vision models of one Vertex AI client.
type Client struct {
	baseClient *genai.Client
	textName   string
	visionName string
}

// New connects to Vertex AI with application default credentials.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ProjectID == "" || cfg.Region == "" {
		return nil, fmt.Errorf("vertex: projectID and region cannot be empty")
	}
	if cfg.TextModel == "" {
		cfg.TextModel = "gemini-2.5-flash"
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = cfg.TextModel
	}

	baseClient, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	return &Client{
		baseClient: baseClient,
		textName:   cfg.TextModel,
		visionName: cfg.VisionModel,
	}, nil
}

// Generate implements llm.Generator. A model handle is built per call since
// the temperature is part of the model configuration.
func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	name := c.textName
	parts := []genai.Part{genai.Text(req.Prompt)}
	if req.Attachment != nil {
		name = c.visionName
		parts = append(parts, genai.Blob{MIMEType: req.Attachment.MIMEType, Data: req.Attachment.Data})
	}

	model := c.baseClient.GenerativeModel(name)
	model.SetTemperature(req.Temperature)

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", mapError(err)
	}
	return extractText(resp)
}

// Close releases the underlying client.
func (c *Client) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", llm.ErrEmptyResponse
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String(), nil
}

func mapError(err error) error {
	switch status.Code(err) {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %v", llm.ErrUnauthenticated, err)
	}
	return fmt.Errorf("vertex: generate content: %w", err)
}
