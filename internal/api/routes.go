// routes.go - Route registration helpers
package api

import (
	"log/slog"

	"github.com/ia-avocats/backend/internal/jobs"
	"github.com/ia-avocats/backend/internal/storage"
	"github.com/ia-avocats/backend/internal/upload"
	"github.com/labstack/echo/v4"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Jobs    *jobs.Manager
	Uploads *upload.Buffer
	Results storage.Store
	Runner  Runner
	Word    WordWriter
	Version string
	Logger  *slog.Logger
}

// Handlers holds all handler instances
type Handlers struct {
	Health HealthHandler
	Jobs   JobHandler
	Stream StreamHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	l := &launcher{
		jobs:    deps.Jobs,
		uploads: deps.Uploads,
		results: deps.Results,
		runner:  deps.Runner,
		logger:  logger.With("component", "api"),
	}
	return &Handlers{
		Health: NewHealthHandler(deps.Version, deps.Jobs),
		Jobs:   NewJobHandler(l, deps.Word),
		Stream: NewStreamHandler(l),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	e.GET("/health", handlers.Health.HandleHealth)

	apiGroup := e.Group("/api")
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Job lifecycle
	jobGroup := apiGroup.Group("/jobs")
	jobGroup.POST("", handlers.Jobs.HandleCreateJob)
	jobGroup.GET("/:jobId", handlers.Jobs.HandleGetJob)
	jobGroup.DELETE("/:jobId", handlers.Jobs.HandleCancelJob)
	jobGroup.POST("/:jobId/files", handlers.Jobs.HandleUploadFiles)
	jobGroup.POST("/:jobId/commit", handlers.Jobs.HandleCommitJob)
	jobGroup.GET("/:jobId/result", handlers.Jobs.HandleGetResult)

	// Progress streams
	jobGroup.GET("/:jobId/stream", handlers.Stream.HandleJobStream)
	jobGroup.GET("/:jobId/ws", handlers.Stream.HandleJobWebSocket)
	apiGroup.POST("/summaries/stream", handlers.Stream.HandleOneShotStream)
}

// SetupMiddleware installs the structured error handler.
func SetupMiddleware(e *echo.Echo, showDetails bool) {
	ShowErrorDetails = showDetails
	e.HTTPErrorHandler = ErrorHandler
}
