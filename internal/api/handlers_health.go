// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/ia-avocats/backend/internal/jobs"
	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version string
	jobs    *jobs.Manager
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, jobMgr *jobs.Manager) HealthHandler {
	return &HealthHandlerImpl{
		version: version,
		jobs:    jobMgr,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	resp := map[string]interface{}{
		"status":  "ok",
		"version": h.version,
	}
	if h.jobs != nil {
		resp["jobs"] = h.jobs.Count()
	}
	return c.JSON(http.StatusOK, resp)
}
