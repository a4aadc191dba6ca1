// Package classify decides how each page contributes to a document summary.
package classify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/ia-avocats/backend/internal/llm"
	"github.com/ia-avocats/backend/internal/models"
)

// DefaultThreshold is the OCR length above which a page is taken as text
// without asking the labeler.
const DefaultThreshold = 700

// Labeler is the vision capability used for short pages.
type Labeler interface {
	Label(ctx context.Context, page models.Page) (string, error)
	Describe(ctx context.Context, page models.Page) (string, error)
}

// Status records how a page was handled.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Result is the outcome for one page. Text is set for TEXT pages and
// Description for IMAGE pages whose description succeeded.
type Result struct {
	Index       int
	Class       models.Classification
	Text        string
	Description string
	Status      Status
	Err         error
}

// Classifier labels pages.
type Classifier struct {
	labeler   Labeler
	threshold int
	logger    *slog.Logger
}

// New creates a Classifier. A non-positive threshold selects DefaultThreshold.
func New(labeler Labeler, threshold int, logger *slog.Logger) *Classifier {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{labeler: labeler, threshold: threshold, logger: logger}
}

// Classify labels a page whose OCR text is already in page.Text. Labeler
// failures degrade to SKIP or to an undescribed image; only an
// authentication failure is returned as an error.
func (c *Classifier) Classify(ctx context.Context, page models.Page) (Result, error) {
	res := Result{Index: page.Index}

	if utf8.RuneCountInString(page.Text) > c.threshold {
		res.Class = models.ClassText
		res.Text = page.Text
		res.Status = StatusOK
		return res, nil
	}

	raw, err := c.labeler.Label(ctx, page)
	if err != nil {
		if errors.Is(err, llm.ErrUnauthenticated) {
			return res, err
		}
		c.logger.Warn("page classification failed", "exhibit", page.Exhibit, "page", page.Index, "error", err)
		res.Class = models.ClassSkip
		res.Status = StatusFailed
		res.Err = err
		return res, nil
	}

	class := Normalize(raw)
	res.Class = class
	switch class {
	case models.ClassText:
		res.Text = page.Text
		res.Status = StatusOK
	case models.ClassImage:
		res.Status = StatusOK
		desc, err := c.labeler.Describe(ctx, page)
		if err != nil {
			if errors.Is(err, llm.ErrUnauthenticated) {
				return res, err
			}
			c.logger.Warn("image description failed", "exhibit", page.Exhibit, "page", page.Index, "error", err)
			res.Status = StatusFailed
			res.Err = err
			break
		}
		res.Description = strings.TrimSpace(desc)
	default:
		res.Status = StatusSkipped
	}
	return res, nil
}

// Normalize maps a raw labeler response to a label. Anything other than
// one of the three known labels becomes SKIP.
func Normalize(raw string) models.Classification {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.Trim(s, "\"'`.!*« »")
	if class, ok := models.ParseClassification(s); ok {
		return class
	}
	return models.ClassSkip
}
