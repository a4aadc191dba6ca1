package pipeline

import (
	"context"
	"fmt"

	"github.com/ia-avocats/backend/internal/models"
)

// Run dispatches a committed batch to the flow selected by mode and returns
// the result payload.
func (p *Pipeline) Run(ctx context.Context, mode models.JobMode, docs []models.Document, report Reporter) (any, error) {
	switch mode {
	case models.ModeSummaries:
		return p.RunBatch(ctx, docs, report)
	case models.ModeSummary, models.ModeConvert:
		if len(docs) != 1 {
			return nil, fmt.Errorf("pipeline: mode %s needs exactly one document, got %d", mode, len(docs))
		}
		if mode == models.ModeSummary {
			return p.SummarizeSingle(ctx, docs[0], report)
		}
		return p.Convert(ctx, docs[0], report)
	default:
		return nil, fmt.Errorf("pipeline: unknown mode %q", mode)
	}
}
