// Package jobs runs pipeline work in the background and fans its progress
// events out to stream readers.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ia-avocats/backend/internal/models"
)

// WorkFunc is the job body. report pushes progress events.
type WorkFunc func(ctx context.Context, report func(pct int, msg string)) (any, error)

// Options tunes a Manager.
type Options struct {
	MaxConcurrent int
	QueueSize     int
	KeepAlive     time.Duration
}

// Manager is the job registry.
type Manager struct {
	jobs   sync.Map
	sem    *semaphore
	opts   Options
	ctx    context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewManager creates a job manager.
func NewManager(opts Options, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 2
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = 15 * time.Second
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Manager{
		sem:    newSemaphore(opts.MaxConcurrent),
		opts:   opts,
		ctx:    ctx,
		stop:   stop,
		logger: logger.With("component", "jobs"),
	}
}

// Create registers a new pending job under a fresh id.
func (m *Manager) Create() *Job {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	job := newJob(m.ctx, id, m.opts.QueueSize)
	m.jobs.Store(id, job)
	m.logger.Info("job created", "jobId", id)
	return job
}

// Get retrieves a job by id.
func (m *Manager) Get(id string) (*Job, bool) {
	v, ok := m.jobs.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Job), true
}

// Subscribe returns a reader for the job using the configured keep-alive.
func (m *Manager) Subscribe(id string) (*Reader, error) {
	job, ok := m.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return job.Subscribe(m.opts.KeepAlive), nil
}

// KeepAlive is the interval after which idle readers report a keep-alive.
func (m *Manager) KeepAlive() time.Duration { return m.opts.KeepAlive }

// Remove forgets a job. A running job is cancelled first.
func (m *Manager) Remove(id string) {
	if v, ok := m.jobs.LoadAndDelete(id); ok {
		m.abort(v.(*Job))
	}
}

// Cancel stops a job's work. The job stays readable until it expires.
func (m *Manager) Cancel(id string) error {
	job, ok := m.Get(id)
	if !ok {
		return ErrNotFound
	}
	m.abort(job)
	m.logger.Info("job cancelled", "jobId", id)
	return nil
}

// abort cancels the job context. A job that never started is finished here
// so that its readers terminate.
func (m *Manager) abort(job *Job) {
	job.Cancel()

	job.mu.Lock()
	started := job.started
	job.started = true
	job.mu.Unlock()
	if !started {
		m.finish(job, nil, context.Canceled)
	}
}

// Start runs work for the job in the background. The job's stream always
// ends with done, preceded by exactly one result or error event.
func (m *Manager) Start(job *Job, mode models.JobMode, work WorkFunc) error {
	if m.ShuttingDown() {
		return ErrShuttingDown
	}
	if err := job.markStarted(mode); err != nil {
		return err
	}
	m.wg.Add(1)
	go m.processJob(job, mode, work)
	return nil
}

func (m *Manager) processJob(job *Job, mode models.JobMode, work WorkFunc) {
	defer m.wg.Done()
	logCtx := m.logger.With("jobId", job.ID, "mode", mode)

	var (
		result any
		err    error
	)
	defer func() {
		if r := recover(); r != nil {
			logCtx.Error("job panicked", "panic", r)
			result, err = nil, fmt.Errorf("internal error: %v", r)
		}
		m.finish(job, result, err)
	}()

	_ = job.Push(models.Started())

	if err = m.sem.acquire(job.ctx); err != nil {
		return
	}
	defer m.sem.release()

	start := time.Now()
	logCtx.Info("job running")
	result, err = work(job.ctx, func(pct int, msg string) {
		_ = job.Push(models.Progress(pct, msg))
	})
	if err != nil {
		logCtx.Error("job failed", "error", err, "duration", time.Since(start))
		return
	}
	logCtx.Info("job complete", "duration", time.Since(start))
}

func (m *Manager) finish(job *Job, result any, err error) {
	if err != nil {
		_ = job.Push(models.Failure(failureDetail(err)))
	} else {
		_ = job.Push(models.Result(result))
	}
	_ = job.Push(models.Done())
}

func failureDetail(err error) string {
	if errors.Is(err, context.Canceled) {
		return "traitement annulé"
	}
	return err.Error()
}

// CleanupOldJobs removes finished jobs completed before maxAge ago and
// jobs created before that which were never started. Started jobs are
// left to run to completion.
func (m *Manager) CleanupOldJobs(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	m.jobs.Range(func(key, value any) bool {
		job := value.(*Job)
		info := job.Info()
		var expired bool
		switch {
		case info.CompletedAt != nil:
			expired = info.CompletedAt.Before(cutoff)
		case !job.isStarted():
			expired = info.CreatedAt.Before(cutoff)
		}
		if expired {
			m.Remove(key.(string))
			removed++
		}
		return true
	})
	if removed > 0 {
		m.logger.Info("expired jobs removed", "count", removed)
	}
	return removed
}

// ShuttingDown reports whether Shutdown has been called.
func (m *Manager) ShuttingDown() bool {
	return m.ctx.Err() != nil
}

// Count returns the number of registered jobs.
func (m *Manager) Count() int {
	n := 0
	m.jobs.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Shutdown cancels every job and waits for running work to return or ctx
// to end.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.stop()
	m.jobs.Range(func(_, value any) bool {
		m.abort(value.(*Job))
		return true
	})

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
