// Package testutil provides deterministic stand-ins for the OCR, vision and
// text services used in tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ia-avocats/backend/internal/llm"
	"github.com/ia-avocats/backend/internal/models"
)

// Markers placed in page text to trigger fake behaviours.
const (
	MarkImage       = "[IMAGE]"
	MarkBlank       = "[BLANK]"
	MarkOCRFail     = "[OCR-FAIL]"
	MarkAuthFail    = "[AUTH-FAIL]"
	MarkSummaryFail = "[SUMMARY-FAIL]"
	MarkTitleFail   = "[TITLE-FAIL]"
	MarkPanic       = "[PANIC]"
)

// PageBreak separates pages in a fake document body.
const PageBreak = "\f"

var ErrFake = errors.New("testutil: simulated failure")

// NewTextDocument builds a document whose pages are the PageBreak-separated
// parts of body. Only FakeRenderer understands it.
func NewTextDocument(name string, pages ...string) models.Document {
	return models.NewDocument(name, []byte(strings.Join(pages, PageBreak)), models.MIMEPDF)
}

// FakeRenderer splits document bodies on PageBreak.
type FakeRenderer struct {
	Err error
}

func (r *FakeRenderer) Render(_ context.Context, doc models.Document) ([]models.Page, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	var pages []models.Page
	for i, part := range strings.Split(string(doc.Data), PageBreak) {
		pages = append(pages, models.Page{
			Exhibit:  doc.Exhibit,
			Index:    i + 1,
			Data:     []byte(part),
			MIMEType: doc.MIMEType,
		})
	}
	return pages, nil
}

// FakeOCR returns the page body as its text.
type FakeOCR struct {
	mu    sync.Mutex
	Calls int
}

func (o *FakeOCR) ExtractText(_ context.Context, page models.Page) (string, error) {
	o.mu.Lock()
	o.Calls++
	o.mu.Unlock()

	text := string(page.Data)
	switch {
	case strings.Contains(text, MarkAuthFail):
		return "", fmt.Errorf("ocr: %w", llm.ErrUnauthenticated)
	case strings.Contains(text, MarkOCRFail):
		return "", ErrFake
	case strings.Contains(text, MarkPanic):
		panic("fake ocr panic")
	case strings.Contains(text, MarkImage), strings.Contains(text, MarkBlank):
		return "", nil
	}
	return text, nil
}

// FakeLabeler labels pages from their markers. Unmarked short pages are TEXT.
type FakeLabeler struct{}

func (FakeLabeler) Label(_ context.Context, page models.Page) (string, error) {
	body := string(page.Data)
	switch {
	case strings.Contains(body, MarkImage):
		return "IMAGE", nil
	case strings.Contains(body, MarkBlank):
		return "SKIP", nil
	}
	return "TEXT", nil
}

func (FakeLabeler) Describe(_ context.Context, page models.Page) (string, error) {
	body := strings.TrimSpace(strings.ReplaceAll(string(page.Data), MarkImage, ""))
	return "La pièce image montre " + body + ".", nil
}

// FakeText drafts summaries from the input's first line.
type FakeText struct{}

func fail(text string) error {
	switch {
	case strings.Contains(text, MarkAuthFail):
		return fmt.Errorf("text: %w", llm.ErrUnauthenticated)
	case strings.Contains(text, MarkSummaryFail):
		return ErrFake
	}
	return nil
}

// Summarize echoes the first line when it is dated, so tests control the
// chronological order through page text.
func (FakeText) Summarize(_ context.Context, transcript string) (string, error) {
	if err := fail(transcript); err != nil {
		return "", err
	}
	first, _, _ := strings.Cut(strings.TrimSpace(transcript), "\n")
	if strings.HasPrefix(first, "Le ") {
		return first, nil
	}
	return "Résumé sans date.", nil
}

func (FakeText) ImageTitle(_ context.Context, descriptions string) (string, error) {
	if err := fail(descriptions); err != nil {
		return "", err
	}
	return "Photographies.", nil
}

func (FakeText) BordereauTitle(_ context.Context, text string) (string, error) {
	if err := fail(text); err != nil {
		return "", err
	}
	if strings.Contains(text, MarkTitleFail) {
		return "", ErrFake
	}
	return "Pièce justificative", nil
}

func (FakeText) SummarizeChunk(_ context.Context, text string) (string, error) {
	if err := fail(text); err != nil {
		return "", err
	}
	return fmt.Sprintf("Synthèse de %d caractères.", len([]rune(text))), nil
}

// FakeWord renders documents as plain text.
type FakeWord struct{}

func (FakeWord) SummaryDocument(title, body string) ([]byte, error) {
	return []byte(title + "\n\n" + body), nil
}

func (FakeWord) PagesDocument(title string, pages []string) ([]byte, error) {
	return []byte(title + strings.Join(pages, PageBreak)), nil
}
