// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/ia-avocats/backend/internal/models"
	"github.com/ia-avocats/backend/internal/pipeline"
	"github.com/labstack/echo/v4"
)

// JobHandler handles job lifecycle operations
type JobHandler interface {
	HandleCreateJob(c echo.Context) error
	HandleUploadFiles(c echo.Context) error
	HandleCommitJob(c echo.Context) error
	HandleGetJob(c echo.Context) error
	HandleCancelJob(c echo.Context) error
	HandleGetResult(c echo.Context) error
}

// StreamHandler handles progress streaming
type StreamHandler interface {
	HandleJobStream(c echo.Context) error
	HandleJobWebSocket(c echo.Context) error
	HandleOneShotStream(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// Runner executes a committed batch. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, mode models.JobMode, docs []models.Document, report pipeline.Reporter) (any, error)
}

// WordWriter renders downloadable Word documents.
type WordWriter interface {
	SummaryDocument(title, body string) ([]byte, error)
}
