// handlers_stream.go - Server-sent event progress streams
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ia-avocats/backend/internal/jobs"
	"github.com/ia-avocats/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// StreamHandlerImpl implements the StreamHandler interface
type StreamHandlerImpl struct {
	*launcher
	ws *WebSocketHandler
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(l *launcher) StreamHandler {
	return &StreamHandlerImpl{launcher: l, ws: NewWebSocketHandler(l)}
}

// HandleJobStream replays and follows a job's events as SSE
func (h *StreamHandlerImpl) HandleJobStream(c echo.Context) error {
	id := c.Param("jobId")
	reader, err := h.jobs.Subscribe(id)
	if err != nil {
		return NewNotFoundError("job", id)
	}

	setSSEHeaders(c)
	return h.streamEvents(c, id, reader)
}

// HandleJobWebSocket is the WebSocket variant of HandleJobStream
func (h *StreamHandlerImpl) HandleJobWebSocket(c echo.Context) error {
	return h.ws.HandleJobWebSocket(c)
}

// HandleOneShotStream stages, commits and streams a job in one request.
// The multipart form carries "files" and an optional "mode".
func (h *StreamHandlerImpl) HandleOneShotStream(c echo.Context) error {
	mode, ok := models.ParseJobMode(c.FormValue("mode"))
	if !ok {
		return NewValidationError("mode")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return NewBadRequestError("invalid multipart form", err)
	}
	files := form.File["files"]
	if len(files) == 0 {
		return NewValidationError("files")
	}

	job := h.newJob()
	fail := func(err error) error {
		h.uploads.Discard(job.ID)
		h.jobs.Remove(job.ID)
		if apiErr := fromDomainError(err, job.ID); apiErr != nil {
			return apiErr
		}
		return NewInternalError("failed to start job", err)
	}

	if _, err := h.addFiles(job.ID, files); err != nil {
		return fail(err)
	}
	reader := job.Subscribe(h.keepAlive())
	if _, err := h.commitAndStart(job, mode); err != nil {
		return fail(err)
	}

	setSSEHeaders(c)
	return h.streamEvents(c, job.ID, reader)
}

func (h *StreamHandlerImpl) keepAlive() time.Duration {
	return h.jobs.KeepAlive()
}

// streamEvents writes events until done or client disconnect. A disconnect
// does not cancel the job.
func (h *StreamHandlerImpl) streamEvents(c echo.Context, id string, reader *jobs.Reader) error {
	ctx := c.Request().Context()
	logCtx := h.logger.With("jobId", id)

	for {
		ev, ok, err := reader.Next(ctx)
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			logCtx.Info("stream client disconnected", "error", err)
			return nil
		case !ok:
			if err := writeSSEComment(c, "keep-alive"); err != nil {
				return nil
			}
			continue
		}

		if err := writeSSEEvent(c, ev); err != nil {
			logCtx.Warn("stream write failed", "error", err)
			return nil
		}
		if ev.Terminal() {
			h.jobs.Remove(id)
			return nil
		}
	}
}

func setSSEHeaders(c echo.Context) {
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Flush()
}

func writeSSEEvent(c echo.Context, ev models.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.Response(), "data: %s\n\n", data); err != nil {
		return err
	}
	c.Response().Flush()
	return nil
}

func writeSSEComment(c echo.Context, comment string) error {
	if _, err := fmt.Fprintf(c.Response(), ": %s\n\n", comment); err != nil {
		return err
	}
	c.Response().Flush()
	return nil
}
