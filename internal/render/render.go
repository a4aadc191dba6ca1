// Package render turns uploaded documents into single-page units.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ia-avocats/backend/internal/models"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	ErrUnsupportedFormat = errors.New("render: unsupported document format")
	ErrMalformed         = errors.New("render: malformed document")
)

// PDFRenderer splits PDFs into one standalone PDF per page. Image uploads
// pass through as a single page.
type PDFRenderer struct {
	tempDir string
	logger  *slog.Logger
}

// New creates a renderer that works under tempDir ("" means os.TempDir).
func New(tempDir string, logger *slog.Logger) *PDFRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFRenderer{tempDir: tempDir, logger: logger}
}

// Render returns the document's pages in order, indexed from 1.
func (r *PDFRenderer) Render(ctx context.Context, doc models.Document) ([]models.Page, error) {
	switch {
	case doc.IsImage():
		return []models.Page{{
			Exhibit:  doc.Exhibit,
			Index:    1,
			Data:     doc.Data,
			MIMEType: doc.MIMEType,
		}}, nil
	case doc.IsPDF():
		return r.splitPDF(ctx, doc)
	default:
		return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupportedFormat, doc.Name, doc.MIMEType)
	}
}

func (r *PDFRenderer) splitPDF(ctx context.Context, doc models.Document) ([]models.Page, error) {
	workDir, err := os.MkdirTemp(r.tempDir, "render-*")
	if err != nil {
		return nil, fmt.Errorf("render: create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	source := filepath.Join(workDir, "source.pdf")
	if err := os.WriteFile(source, doc.Data, 0644); err != nil {
		return nil, fmt.Errorf("render: write source: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pageCount, err := api.PageCountFile(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, doc.Name, err)
	}
	if pageCount == 0 {
		return nil, nil
	}
	if err := api.SplitFile(source, workDir, 1, conf); err != nil {
		return nil, fmt.Errorf("%w: %s: split: %v", ErrMalformed, doc.Name, err)
	}

	pages := make([]models.Page, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(splitPagePath(source, i))
		if err != nil {
			return nil, fmt.Errorf("render: read page %d of %s: %w", i, doc.Name, err)
		}
		pages = append(pages, models.Page{
			Exhibit:  doc.Exhibit,
			Index:    i,
			Data:     data,
			MIMEType: models.MIMEPDF,
		})
	}

	r.logger.Debug("document split", "document", doc.Name, "pageCount", pageCount)
	return pages, nil
}

// splitPagePath is the file SplitFile writes for a span of one page.
func splitPagePath(source string, page int) string {
	base := source[:len(source)-len(filepath.Ext(source))]
	return fmt.Sprintf("%s_%d.pdf", base, page)
}
