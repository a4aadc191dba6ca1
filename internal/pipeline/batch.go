package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/ia-avocats/backend/internal/bordereau"
	"github.com/ia-avocats/backend/internal/chrono"
	"github.com/ia-avocats/backend/internal/models"
)

// ErrNoDocuments is returned for an empty batch.
var ErrNoDocuments = errors.New("pipeline: no documents")

const documentsShare = 70

// RunBatch summarizes every document in order and assembles the original
// and chronological texts, each followed by the exhibit list.
func (p *Pipeline) RunBatch(ctx context.Context, docs []models.Document, report Reporter) (models.BatchResult, error) {
	if len(docs) == 0 {
		return models.BatchResult{}, ErrNoDocuments
	}
	if p.opts.NaturalOrder {
		docs = SortNatural(docs)
	}

	total := len(docs)
	var summaries []string
	var entries []models.BordereauEntry

	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return models.BatchResult{}, err
		}

		n := i + 1
		pct := n * documentsShare / total
		report.report(pct, fmt.Sprintf("L'IA traite les PDFs… (%d/%d)", n, total))

		out, err := p.SummarizeDocument(ctx, doc)
		if err != nil {
			return models.BatchResult{}, fmt.Errorf("pièce nº%s: %w", doc.Exhibit, err)
		}

		if out.Summary == nil {
			report.report(pct, fmt.Sprintf("Pièce nº%s : résumé impossible, pièce exclue (%d/%d)", doc.Exhibit, n, total))
			continue
		}
		summaries = append(summaries, out.Summary.Text)

		if out.Entry == nil {
			report.report(pct, fmt.Sprintf("Pièce nº%s : ligne de bordereau impossible (%d/%d)", doc.Exhibit, n, total))
		} else {
			entries = append(entries, *out.Entry)
		}
		report.report(pct, fmt.Sprintf("Pièce nº%s traitée (%d/%d)", doc.Exhibit, n, total))
	}

	report.report(documentsShare, "Tri chronologique des résumés…")
	combined := chrono.Join(summaries)
	chronological := chrono.SortSummaries(combined)

	report.report(85, "Finalisation…")
	result := models.BatchResult{
		Original:      bordereau.Attach(combined, entries),
		Chronological: bordereau.Attach(chronological, entries),
	}

	report.report(100, "Fini!")
	return result, nil
}
