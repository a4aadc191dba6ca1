// Package upload stages documents per job until the job is committed.
package upload

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ia-avocats/backend/internal/models"
)

var (
	// ErrUnknownJob is returned for a job with no open buffer, including a
	// job that was already committed.
	ErrUnknownJob = errors.New("upload: unknown or committed job")
	// ErrUnsupportedType is returned for files other than PDF, DOCX, PNG and JPEG.
	ErrUnsupportedType = errors.New("upload: unsupported file type")
	// ErrTooLarge is returned when a file or the job total exceeds its limit.
	ErrTooLarge = errors.New("upload: file too large")
	// ErrTooManyFiles is returned when a job reaches its file limit.
	ErrTooManyFiles = errors.New("upload: too many files")
	// ErrEmpty is returned when committing a job without files.
	ErrEmpty = errors.New("upload: no files")
)

// Limits bounds what a single job may stage. Zero means unlimited.
type Limits struct {
	MaxFiles     int
	MaxFileBytes int64
	MaxJobBytes  int64
}

// Buffer holds uploaded documents per job id.
type Buffer struct {
	mu      sync.Mutex
	entries map[string]*entry
	limits  Limits
	logger  *slog.Logger
}

type entry struct {
	mu        sync.Mutex
	docs      []models.Document
	size      int64
	committed bool
	createdAt time.Time
}

// NewBuffer creates an upload buffer.
func NewBuffer(limits Limits, logger *slog.Logger) *Buffer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Buffer{
		entries: make(map[string]*entry),
		limits:  limits,
		logger:  logger.With("component", "upload"),
	}
}

// Open starts a buffer for jobID. Opening an existing buffer is a no-op.
func (b *Buffer) Open(jobID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.entries[jobID]; !ok {
		b.entries[jobID] = &entry{createdAt: time.Now()}
	}
}

func (b *Buffer) get(jobID string) (*entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[jobID]
	if !ok {
		return nil, ErrUnknownJob
	}
	return e, nil
}

// Add reads one file and appends it to the job's buffer.
func (b *Buffer) Add(jobID, name, mimeType string, r io.Reader) (models.FileInfo, error) {
	e, err := b.get(jobID)
	if err != nil {
		return models.FileInfo{}, err
	}

	mimeType = acceptedType(name, mimeType)
	if mimeType == "" {
		return models.FileInfo{}, fmt.Errorf("%w: %s", ErrUnsupportedType, name)
	}

	if b.limits.MaxFileBytes > 0 {
		r = io.LimitReader(r, b.limits.MaxFileBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return models.FileInfo{}, fmt.Errorf("reading %s: %w", name, err)
	}
	if b.limits.MaxFileBytes > 0 && int64(len(data)) > b.limits.MaxFileBytes {
		return models.FileInfo{}, fmt.Errorf("%w: %s", ErrTooLarge, name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.committed {
		return models.FileInfo{}, ErrUnknownJob
	}
	if b.limits.MaxFiles > 0 && len(e.docs) >= b.limits.MaxFiles {
		return models.FileInfo{}, ErrTooManyFiles
	}
	if b.limits.MaxJobBytes > 0 && e.size+int64(len(data)) > b.limits.MaxJobBytes {
		return models.FileInfo{}, fmt.Errorf("%w: job total", ErrTooLarge)
	}

	doc := models.NewDocument(name, data, mimeType)
	e.docs = append(e.docs, doc)
	e.size += int64(len(data))

	b.logger.Debug("file staged", "jobId", jobID, "name", name, "size", len(data), "exhibit", doc.Exhibit)
	return doc.Info(), nil
}

// acceptedType prefers the type implied by the extension and falls back to
// the declared one. It returns "" for anything not accepted.
func acceptedType(name, declared string) string {
	for _, t := range []string{models.MIMETypeForName(name), strings.TrimSpace(strings.Split(declared, ";")[0])} {
		switch t {
		case models.MIMEPDF, models.MIMEDOCX, models.MIMEPNG, models.MIMEJPEG:
			return t
		}
	}
	return ""
}

// Files lists the documents staged for a job.
func (b *Buffer) Files(jobID string) ([]models.FileInfo, error) {
	e, err := b.get(jobID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]models.FileInfo, len(e.docs))
	for i, d := range e.docs {
		out[i] = d.Info()
	}
	return out, nil
}

// Commit hands the staged documents over exactly once. validate runs under
// the buffer lock; when it fails the buffer stays open. A second commit
// returns ErrUnknownJob.
func (b *Buffer) Commit(jobID string, validate func([]models.Document) error) ([]models.Document, error) {
	e, err := b.get(jobID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.committed {
		return nil, ErrUnknownJob
	}
	if len(e.docs) == 0 {
		return nil, ErrEmpty
	}
	if validate != nil {
		if err := validate(e.docs); err != nil {
			return nil, err
		}
	}

	e.committed = true
	docs := e.docs
	e.docs = nil

	b.mu.Lock()
	delete(b.entries, jobID)
	b.mu.Unlock()

	b.logger.Info("upload committed", "jobId", jobID, "files", len(docs), "bytes", e.size)
	return docs, nil
}

// Discard drops a job's buffer without committing it.
func (b *Buffer) Discard(jobID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.entries[jobID]; ok {
		e.mu.Lock()
		e.committed = true
		e.docs = nil
		e.mu.Unlock()
		delete(b.entries, jobID)
	}
}

// CleanupOldUploads drops buffers opened before maxAge ago.
func (b *Buffer) CleanupOldUploads(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for id, e := range b.entries {
		if e.createdAt.Before(cutoff) {
			delete(b.entries, id)
			removed++
		}
	}
	return removed
}
