package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/ia-avocats/backend/internal/chunker"
	"github.com/ia-avocats/backend/internal/docx"
	"github.com/ia-avocats/backend/internal/models"
)

const extractShare = 10

// SummarizeSingle summarizes one long PDF or Word document chunk by chunk
// and returns it as a Word document along with the plain text.
func (p *Pipeline) SummarizeSingle(ctx context.Context, doc models.Document, report Reporter) (models.FilePayload, error) {
	logCtx := p.logger.With("document", doc.Name)

	report.report(0, "Extraction du texte…")
	text, err := p.documentText(ctx, doc)
	if err != nil {
		return models.FilePayload{}, err
	}
	report.report(extractShare, "Texte extrait")

	budget := chunker.Budget(p.opts.ChunkTokens, p.opts.CharsPerToken)
	chunks := chunker.SplitText(text, budget)
	logCtx.Info("document chunked", "chunks", len(chunks), "budget", budget)

	var parts []string
	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			return models.FilePayload{}, err
		}
		pct := extractShare + (i+1)*80/len(chunks)
		report.report(pct, fmt.Sprintf("Résumé de la partie %d/%d…", i+1, len(chunks)))

		s, err := p.text.SummarizeChunk(ctx, c.Text())
		if err != nil {
			if isFatal(ctx, err) {
				return models.FilePayload{}, err
			}
			logCtx.Warn("chunk summary failed, chunk omitted", "chunk", i+1, "error", err)
			report.report(pct, fmt.Sprintf("Partie %d/%d : résumé impossible, partie omise", i+1, len(chunks)))
			continue
		}
		parts = append(parts, s)
	}

	title := "Résumé - " + doc.BaseName()
	body := strings.Join(parts, "\n\n")
	final := title + "\n\n" + body

	report.report(95, "Création du document Word…")
	data, err := p.word.SummaryDocument(title, body)
	if err != nil {
		return models.FilePayload{}, fmt.Errorf("word document: %w", err)
	}

	report.report(100, "Fini!")
	return models.FilePayload{
		Filename: title + ".docx",
		MIMEType: models.MIMEDOCX,
		Base64:   base64.StdEncoding.EncodeToString(data),
		Text:     final,
	}, nil
}

// documentText returns the full text of a Word document, or of a PDF or
// image through OCR, with blocks separated by a blank line.
func (p *Pipeline) documentText(ctx context.Context, doc models.Document) (string, error) {
	if doc.IsWord() {
		paragraphs, err := docx.Paragraphs(doc.Data)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", doc.Name, err)
		}
		return strings.Join(paragraphs, "\n\n"), nil
	}

	texts, err := p.ocrPages(ctx, doc)
	if err != nil {
		return "", err
	}
	var nonEmpty []string
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			nonEmpty = append(nonEmpty, t)
		}
	}
	return strings.Join(nonEmpty, "\n\n"), nil
}

// ocrPages renders doc and returns the text of each page in order. Pages
// whose OCR failed yield "".
func (p *Pipeline) ocrPages(ctx context.Context, doc models.Document) ([]string, error) {
	logCtx := p.logger.With("document", doc.Name)

	pages, err := p.renderer.Render(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", doc.Name, err)
	}
	results, err := p.extractPages(ctx, logCtx, pages, false)
	if err != nil {
		return nil, fmt.Errorf("pages of %s: %w", doc.Name, err)
	}

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	return texts, nil
}
