package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ia-avocats/backend/internal/bordereau"
	"github.com/ia-avocats/backend/internal/classify"
	"github.com/ia-avocats/backend/internal/models"
	"golang.org/x/sync/errgroup"
)

const imagesFallbackTitle = "Images"

// DocumentOutcome is what one document contributes to a batch. Summary is
// nil when the summary could not be produced, which excludes the document.
// Entry is nil when only its exhibit-list line failed.
type DocumentOutcome struct {
	Exhibit      string
	Summary      *models.Summary
	Entry        *models.BordereauEntry
	Pages        []classify.Result
	SummaryErr   error
	BordereauErr error
}

// SummarizeDocument renders, reads and summarizes one exhibit. The returned
// error is fatal to the job; recoverable failures are recorded in the
// outcome.
func (p *Pipeline) SummarizeDocument(ctx context.Context, doc models.Document) (DocumentOutcome, error) {
	logCtx := p.logger.With("exhibit", doc.Exhibit, "document", doc.Name)
	out := DocumentOutcome{Exhibit: doc.Exhibit}

	pages, err := p.renderer.Render(ctx, doc)
	if err != nil {
		return out, fmt.Errorf("render %s: %w", doc.Name, err)
	}
	logCtx.Info("document rendered", "pageCount", len(pages))

	results, err := p.extractPages(ctx, logCtx, pages, true)
	if err != nil {
		return out, fmt.Errorf("pages of %s: %w", doc.Name, err)
	}
	out.Pages = results

	var transcript, descriptions []string
	for _, r := range results {
		switch {
		case r.Class == models.ClassText:
			transcript = append(transcript, r.Text)
		case r.Class == models.ClassImage && r.Description != "":
			descriptions = append(descriptions, r.Description)
		}
	}
	fullTranscript := strings.Join(transcript, "\n\n")
	imagesText := strings.Join(descriptions, "\n\n")
	suffix := models.ExhibitSuffix(doc.Exhibit)

	var summary string
	switch {
	case fullTranscript != "":
		s, err := p.text.Summarize(ctx, fullTranscript)
		if err != nil {
			if isFatal(ctx, err) {
				return out, err
			}
			logCtx.Warn("summary failed, document excluded", "error", err)
			out.SummaryErr = err
			return out, nil
		}
		summary = s + imagesText + suffix
	case imagesText != "":
		title, err := p.text.ImageTitle(ctx, imagesText)
		if err != nil {
			if isFatal(ctx, err) {
				return out, err
			}
			logCtx.Warn("image title failed, using fallback", "error", err)
			title = imagesFallbackTitle
		}
		summary = fmt.Sprintf("Le %s, %s\n\n%s%s", models.DatePlaceholder, title, imagesText, suffix)
	default:
		summary = "Pièce vide" + suffix
	}
	out.Summary = &models.Summary{Exhibit: doc.Exhibit, Text: summary}

	entry, err := p.bordereauEntry(ctx, doc, fullTranscript, imagesText, summary)
	if err != nil {
		if isFatal(ctx, err) {
			return out, err
		}
		logCtx.Warn("bordereau title failed, line omitted", "error", err)
		out.BordereauErr = err
		return out, nil
	}
	out.Entry = &entry

	logCtx.Info("document summarized", "textPages", len(transcript), "imagePages", len(descriptions))
	return out, nil
}

func (p *Pipeline) bordereauEntry(ctx context.Context, doc models.Document, transcript, imagesText, summary string) (models.BordereauEntry, error) {
	var parts []string
	for _, s := range []string{transcript, imagesText} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return bordereau.NewEntry(doc.Exhibit, "Pièce vide", summary), nil
	}

	title, err := p.text.BordereauTitle(ctx, strings.Join(parts, "\n\n"))
	if err != nil {
		return models.BordereauEntry{}, err
	}
	return bordereau.NewEntry(doc.Exhibit, bordereau.NormalizeTitle(title), summary), nil
}

// extractPages OCRs, and optionally classifies, pages with bounded
// concurrency. Results keep page order regardless of completion order.
func (p *Pipeline) extractPages(ctx context.Context, logCtx *slog.Logger, pages []models.Page, classifyPages bool) ([]classify.Result, error) {
	results := make([]classify.Result, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.PageConcurrency)

	for i := range pages {
		g.Go(func() error {
			res, err := p.processPage(gctx, logCtx, pages[i], classifyPages)
			if err != nil {
				return fmt.Errorf("page %d: %w", pages[i].Index, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Pipeline) processPage(ctx context.Context, logCtx *slog.Logger, page models.Page, classifyPage bool) (res classify.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			logCtx.Error("page processing panicked", "page", page.Index, "panic", r)
			res = classify.Result{Index: page.Index, Class: models.ClassSkip, Status: classify.StatusFailed, Err: fmt.Errorf("panic: %v", r)}
			err = nil
		}
	}()

	if err := ctx.Err(); err != nil {
		return classify.Result{}, err
	}

	text, err := p.ocr.ExtractText(ctx, page)
	if err != nil {
		if isFatal(ctx, err) {
			return classify.Result{}, err
		}
		// A page whose extraction failed is not classified or described.
		logCtx.Warn("ocr failed", "page", page.Index, "error", err)
		return classify.Result{Index: page.Index, Class: models.ClassSkip, Status: classify.StatusFailed, Err: err}, nil
	}
	page.Text = text

	if !classifyPage {
		return classify.Result{Index: page.Index, Class: models.ClassText, Text: text, Status: classify.StatusOK}, nil
	}

	return p.classifier.Classify(ctx, page)
}
