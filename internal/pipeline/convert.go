package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/ia-avocats/backend/internal/models"
)

// Convert turns one PDF into a Word document through the configured
// Converter.
func (p *Pipeline) Convert(ctx context.Context, doc models.Document, report Reporter) (models.FilePayload, error) {
	return p.converter.Convert(ctx, doc, report)
}

// OCRConverter rebuilds a PDF as a Word document from the OCR text of its
// pages, one section per page.
type OCRConverter struct {
	pipeline *Pipeline
}

func (c *OCRConverter) Convert(ctx context.Context, doc models.Document, report Reporter) (models.FilePayload, error) {
	report.report(0, "Conversion du PDF…")

	texts, err := c.pipeline.ocrPages(ctx, doc)
	if err != nil {
		return models.FilePayload{}, err
	}
	report.report(80, fmt.Sprintf("%d pages lues", len(texts)))

	data, err := c.pipeline.word.PagesDocument("", texts)
	if err != nil {
		return models.FilePayload{}, fmt.Errorf("word document: %w", err)
	}

	report.report(100, "Fini!")
	return models.FilePayload{
		Filename: doc.BaseName() + ".docx",
		MIMEType: models.MIMEDOCX,
		Base64:   base64.StdEncoding.EncodeToString(data),
	}, nil
}
