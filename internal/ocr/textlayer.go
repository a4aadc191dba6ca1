package ocr

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ia-avocats/backend/internal/models"
	"github.com/ledongthuc/pdf"
)

// TextLayer reads the text embedded in PDF pages. Scans and images have
// none and yield ErrNoTextLayer.
type TextLayer struct{}

func NewTextLayer() TextLayer {
	return TextLayer{}
}

func (TextLayer) ExtractText(_ context.Context, page models.Page) (string, error) {
	if page.MIMEType != models.MIMEPDF {
		return "", ErrNoTextLayer
	}
	return PDFText(page.Data)
}

// PDFText concatenates the plain text of every page of a PDF. The reader
// panics on some malformed content streams; that is reported as an error.
func PDFText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("ocr: pdf reader panicked: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("ocr: open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("ocr: page %d text: %w", i, err)
		}
		b.WriteString(pageText)
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", ErrNoTextLayer
	}
	return b.String(), nil
}
