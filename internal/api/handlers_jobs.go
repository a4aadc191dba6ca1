// handlers_jobs.go - Job lifecycle handlers
package api

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/ia-avocats/backend/internal/jobs"
	"github.com/ia-avocats/backend/internal/models"
	"github.com/ia-avocats/backend/internal/storage"
	"github.com/labstack/echo/v4"
)

const mimeMsgpack = "application/msgpack"

// JobHandlerImpl implements the JobHandler interface
type JobHandlerImpl struct {
	*launcher
	word WordWriter
}

// NewJobHandler creates a new job handler
func NewJobHandler(l *launcher, word WordWriter) JobHandler {
	return &JobHandlerImpl{launcher: l, word: word}
}

// HandleCreateJob registers a job with an empty upload buffer
func (h *JobHandlerImpl) HandleCreateJob(c echo.Context) error {
	if h.jobs.ShuttingDown() {
		return fromDomainError(jobs.ErrShuttingDown, "")
	}
	job := h.newJob()
	return c.JSON(http.StatusCreated, map[string]string{"jobId": job.ID})
}

// HandleUploadFiles stages the multipart "files" of a job
func (h *JobHandlerImpl) HandleUploadFiles(c echo.Context) error {
	id := c.Param("jobId")
	if _, ok := h.jobs.Get(id); !ok {
		return NewNotFoundError("job", id)
	}

	form, err := c.MultipartForm()
	if err != nil {
		return NewBadRequestError("invalid multipart form", err)
	}
	files := form.File["files"]
	if len(files) == 0 {
		return NewValidationError("files")
	}

	infos, err := h.addFiles(id, files)
	if err != nil {
		if apiErr := fromDomainError(err, id); apiErr != nil {
			return apiErr
		}
		return NewInternalError("failed to stage files", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"jobId": id,
		"files": infos,
	})
}

type commitRequest struct {
	Mode string `json:"mode"`
}

// HandleCommitJob closes the upload buffer and starts processing
func (h *JobHandlerImpl) HandleCommitJob(c echo.Context) error {
	id := c.Param("jobId")
	job, ok := h.jobs.Get(id)
	if !ok {
		return NewNotFoundError("job", id)
	}

	var req commitRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return NewBadRequestError("invalid request body", err)
		}
	}
	mode, ok := models.ParseJobMode(req.Mode)
	if !ok {
		return NewValidationError("mode")
	}

	count, err := h.commitAndStart(job, mode)
	if err != nil {
		if apiErr := fromDomainError(err, id); apiErr != nil {
			return apiErr
		}
		return NewInternalError("failed to start job", err)
	}

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"jobId":     id,
		"mode":      mode,
		"documents": count,
	})
}

// HandleGetJob returns the job state
func (h *JobHandlerImpl) HandleGetJob(c echo.Context) error {
	id := c.Param("jobId")
	job, ok := h.jobs.Get(id)
	if !ok {
		return NewNotFoundError("job", id)
	}
	return c.JSON(http.StatusOK, job.Info())
}

// HandleCancelJob stops a job and drops its staged uploads
func (h *JobHandlerImpl) HandleCancelJob(c echo.Context) error {
	id := c.Param("jobId")
	if err := h.jobs.Cancel(id); err != nil {
		return NewNotFoundError("job", id)
	}
	h.uploads.Discard(id)
	return c.JSON(http.StatusOK, map[string]string{
		"jobId":  id,
		"status": "cancelled",
	})
}

// HandleGetResult downloads a stored result as JSON, msgpack, text or Word
func (h *JobHandlerImpl) HandleGetResult(c echo.Context) error {
	id := c.Param("jobId")
	format := strings.ToLower(c.QueryParam("format"))

	if format == "msgpack" {
		data, err := h.results.Raw(id)
		if err != nil {
			return h.resultError(err, id)
		}
		return c.Blob(http.StatusOK, mimeMsgpack, data)
	}

	rec, err := h.results.Get(id)
	if err != nil {
		return h.resultError(err, id)
	}

	switch format {
	case "", "json":
		return c.JSON(http.StatusOK, rec)
	case "txt":
		name, text, ok := resultText(rec, c.QueryParam("variant"))
		if !ok {
			return NewBadRequestError("result has no text", nil)
		}
		return attachment(c, name+".txt", models.MIMEText, []byte(text))
	case "docx":
		return h.resultDocx(c, rec)
	default:
		return NewValidationError("format")
	}
}

func (h *JobHandlerImpl) resultError(err error, id string) error {
	if apiErr := fromDomainError(err, id); apiErr != nil {
		return apiErr
	}
	return NewInternalError("failed to load result", err)
}

func (h *JobHandlerImpl) resultDocx(c echo.Context, rec *storage.Record) error {
	if rec.File != nil && rec.File.MIMEType == models.MIMEDOCX {
		data, err := base64.StdEncoding.DecodeString(rec.File.Base64)
		if err != nil {
			return NewInternalError("stored document is corrupt", err)
		}
		return attachment(c, rec.File.Filename, models.MIMEDOCX, data)
	}

	name, text, ok := resultText(rec, c.QueryParam("variant"))
	if !ok {
		return NewBadRequestError("result has no text", nil)
	}
	data, err := h.word.SummaryDocument(name, text)
	if err != nil {
		return NewInternalError("failed to build document", err)
	}
	return attachment(c, name+".docx", models.MIMEDOCX, data)
}

// resultText picks the downloadable text of a record. Batch results default
// to the chronological variant.
func resultText(rec *storage.Record, variant string) (name, text string, ok bool) {
	switch {
	case rec.Batch != nil && variant == "original":
		return "Résumés", rec.Batch.Original, true
	case rec.Batch != nil:
		return "Résumés chronologiques", rec.Batch.Chronological, true
	case rec.File != nil && rec.File.Text != "":
		return strings.TrimSuffix(rec.File.Filename, ".docx"), rec.File.Text, true
	}
	return "", "", false
}

func attachment(c echo.Context, filename, contentType string, data []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, contentType, data)
}
