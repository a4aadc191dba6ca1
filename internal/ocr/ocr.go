// Package ocr extracts the text of a rendered page.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ia-avocats/backend/internal/llm"
	"github.com/ia-avocats/backend/internal/models"
)

var (
	ErrNoTextLayer = errors.New("ocr: page has no text layer")
	ErrRefused     = errors.New("ocr: model refused to transcribe")
)

// Extractor returns the text of one page.
type Extractor interface {
	ExtractText(ctx context.Context, page models.Page) (string, error)
}

var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot provide",
	"as a large language model",
	"je ne peux pas",
	"je suis incapable",
}

// Vision transcribes pages with a multimodal model.
type Vision struct {
	gen llm.Generator
}

func NewVision(gen llm.Generator) *Vision {
	return &Vision{gen: gen}
}

func (v *Vision) ExtractText(ctx context.Context, page models.Page) (string, error) {
	out, err := v.gen.Generate(ctx, llm.Request{
		Prompt:     llm.TranscriptionPrompt,
		Attachment: &llm.Attachment{Data: page.Data, MIMEType: page.MIMEType},
	})
	if err != nil {
		return "", fmt.Errorf("transcribe page %d: %w", page.Index, err)
	}

	lower := strings.ToLower(out)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return "", fmt.Errorf("%w: page %d", ErrRefused, page.Index)
		}
	}
	return strings.TrimSpace(out), nil
}

// Hybrid reads the embedded text layer and falls back to the vision model
// for scanned pages.
type Hybrid struct {
	layer  Extractor
	vision Extractor
}

func NewHybrid(layer, vision Extractor) *Hybrid {
	return &Hybrid{layer: layer, vision: vision}
}

func (h *Hybrid) ExtractText(ctx context.Context, page models.Page) (string, error) {
	text, err := h.layer.ExtractText(ctx, page)
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	return h.vision.ExtractText(ctx, page)
}
