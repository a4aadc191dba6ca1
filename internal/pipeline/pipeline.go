// Package pipeline turns uploaded exhibits into summaries, an exhibit list
// and Word documents, reporting progress as it goes.
package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ia-avocats/backend/internal/chunker"
	"github.com/ia-avocats/backend/internal/classify"
	"github.com/ia-avocats/backend/internal/llm"
	"github.com/ia-avocats/backend/internal/models"
)

// Renderer splits a document into pages.
type Renderer interface {
	Render(ctx context.Context, doc models.Document) ([]models.Page, error)
}

// OCR extracts the text of one page.
type OCR interface {
	ExtractText(ctx context.Context, page models.Page) (string, error)
}

// PageClassifier labels a page whose OCR text is known.
type PageClassifier interface {
	Classify(ctx context.Context, page models.Page) (classify.Result, error)
}

// TextService drafts the summaries and titles.
type TextService interface {
	Summarize(ctx context.Context, transcript string) (string, error)
	ImageTitle(ctx context.Context, descriptions string) (string, error)
	BordereauTitle(ctx context.Context, text string) (string, error)
	SummarizeChunk(ctx context.Context, text string) (string, error)
}

// WordWriter renders Word documents.
type WordWriter interface {
	SummaryDocument(title, body string) ([]byte, error)
	PagesDocument(title string, pages []string) ([]byte, error)
}

// Converter turns one PDF into a Word document.
type Converter interface {
	Convert(ctx context.Context, doc models.Document, report Reporter) (models.FilePayload, error)
}

// Reporter receives progress updates. pct is in [0,100].
type Reporter func(pct int, msg string)

func (r Reporter) report(pct int, msg string) {
	if r != nil {
		r(pct, msg)
	}
}

// Options tune the pipeline.
type Options struct {
	PageConcurrency int
	ChunkTokens     int
	CharsPerToken   int
	NaturalOrder    bool
}

// Deps are the collaborators of a Pipeline. Converter may be nil, in which
// case an OCRConverter built from the other collaborators is used.
type Deps struct {
	Renderer   Renderer
	OCR        OCR
	Classifier PageClassifier
	Text       TextService
	Word       WordWriter
	Converter  Converter
}

// Pipeline runs the three job flows.
type Pipeline struct {
	renderer   Renderer
	ocr        OCR
	classifier PageClassifier
	text       TextService
	word       WordWriter
	converter  Converter
	opts       Options
	logger     *slog.Logger
}

// New wires a Pipeline.
func New(deps Deps, opts Options, logger *slog.Logger) *Pipeline {
	if opts.PageConcurrency <= 0 {
		opts.PageConcurrency = 1
	}
	if opts.ChunkTokens <= 0 {
		opts.ChunkTokens = chunker.DefaultMaxTokens
	}
	if opts.CharsPerToken <= 0 {
		opts.CharsPerToken = chunker.DefaultCharsPerToken
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pipeline{
		renderer:   deps.Renderer,
		ocr:        deps.OCR,
		classifier: deps.Classifier,
		text:       deps.Text,
		word:       deps.Word,
		converter:  deps.Converter,
		opts:       opts,
		logger:     logger,
	}
	if p.converter == nil {
		p.converter = &OCRConverter{pipeline: p}
	}
	return p
}

// isFatal reports errors that must abort the whole job rather than degrade
// one page or document.
func isFatal(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, llm.ErrUnauthenticated) {
		return true
	}
	return ctx.Err() != nil
}
