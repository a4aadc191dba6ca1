package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"

	"github.com/ia-avocats/backend/internal/jobs"
	"github.com/ia-avocats/backend/internal/models"
	"github.com/ia-avocats/backend/internal/storage"
	"github.com/ia-avocats/backend/internal/upload"
)

var errDocumentCount = errors.New("wrong number of documents for mode")

// launcher is shared by the job and stream handlers: it stages uploads,
// commits them and starts the pipeline.
type launcher struct {
	jobs    *jobs.Manager
	uploads *upload.Buffer
	results storage.Store
	runner  Runner
	logger  *slog.Logger
}

// newJob registers a job and opens its upload buffer.
func (l *launcher) newJob() *jobs.Job {
	job := l.jobs.Create()
	l.uploads.Open(job.ID)
	return job
}

func (l *launcher) addFiles(jobID string, files []*multipart.FileHeader) ([]models.FileInfo, error) {
	infos := make([]models.FileInfo, 0, len(files))
	for _, fh := range files {
		src, err := fh.Open()
		if err != nil {
			return infos, fmt.Errorf("opening %s: %w", fh.Filename, err)
		}
		info, err := l.uploads.Add(jobID, fh.Filename, fh.Header.Get("Content-Type"), src)
		src.Close()
		if err != nil {
			return infos, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// commitAndStart hands the staged documents to the pipeline. It returns
// the number of documents committed.
func (l *launcher) commitAndStart(job *jobs.Job, mode models.JobMode) (int, error) {
	if l.jobs.ShuttingDown() {
		return 0, jobs.ErrShuttingDown
	}
	docs, err := l.uploads.Commit(job.ID, func(docs []models.Document) error {
		if mode.SingleDocument() && len(docs) != 1 {
			return fmt.Errorf("%w: %s needs exactly one, got %d", errDocumentCount, mode, len(docs))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logCtx := l.logger.With("jobId", job.ID, "mode", mode)
	err = l.jobs.Start(job, mode, func(ctx context.Context, report func(int, string)) (any, error) {
		res, err := l.runner.Run(ctx, mode, docs, report)
		if err != nil {
			return nil, err
		}
		if _, err := l.results.Save(job.ID, mode, res); err != nil {
			logCtx.Warn("result not stored", "error", err)
		}
		return res, nil
	})
	if err != nil {
		return 0, err
	}
	logCtx.Info("job committed", "documents", len(docs))
	return len(docs), nil
}
