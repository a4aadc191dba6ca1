package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ia-avocats/backend/internal/models"
)

// Assistant issues the legal prompts against a Generator.
type Assistant struct {
	gen Generator
}

// NewAssistant wraps gen.
func NewAssistant(gen Generator) *Assistant {
	return &Assistant{gen: gen}
}

func pageAttachment(page models.Page) *Attachment {
	return &Attachment{Data: page.Data, MIMEType: page.MIMEType}
}

func (a *Assistant) generate(ctx context.Context, req Request) (string, error) {
	out, err := a.gen.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// Label asks for TEXT, IMAGE or SKIP. The raw answer is upper-cased.
func (a *Assistant) Label(ctx context.Context, page models.Page) (string, error) {
	out, err := a.generate(ctx, Request{Prompt: classificationPrompt, Attachment: pageAttachment(page)})
	if err != nil {
		return "", fmt.Errorf("classify page %d: %w", page.Index, err)
	}
	return strings.ToUpper(out), nil
}

// Describe asks for a short factual description of an image page.
func (a *Assistant) Describe(ctx context.Context, page models.Page) (string, error) {
	out, err := a.generate(ctx, Request{Prompt: imagePrompt, Attachment: pageAttachment(page), Temperature: 1})
	if err != nil {
		return "", fmt.Errorf("describe page %d: %w", page.Index, err)
	}
	return out, nil
}

// Summarize summarizes a document transcript into a dated paragraph.
func (a *Assistant) Summarize(ctx context.Context, transcript string) (string, error) {
	out, err := a.generate(ctx, Request{Prompt: fmt.Sprintf(summaryPrompt, transcript)})
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return out, nil
}

// ImageTitle titles an images-only document from its descriptions.
func (a *Assistant) ImageTitle(ctx context.Context, descriptions string) (string, error) {
	out, err := a.generate(ctx, Request{Prompt: fmt.Sprintf(imageTitlePrompt, descriptions)})
	if err != nil {
		return "", fmt.Errorf("image title: %w", err)
	}
	return out, nil
}

// BordereauTitle generates the exhibit-list title of a document.
func (a *Assistant) BordereauTitle(ctx context.Context, text string) (string, error) {
	out, err := a.generate(ctx, Request{Prompt: fmt.Sprintf(bordereauPrompt, text)})
	if err != nil {
		return "", fmt.Errorf("bordereau title: %w", err)
	}
	return out, nil
}

// SummarizeChunk summarizes one chunk of a long document.
func (a *Assistant) SummarizeChunk(ctx context.Context, text string) (string, error) {
	out, err := a.generate(ctx, Request{Prompt: fmt.Sprintf(generalPrompt, text)})
	if err != nil {
		return "", fmt.Errorf("summarize chunk: %w", err)
	}
	return out, nil
}
