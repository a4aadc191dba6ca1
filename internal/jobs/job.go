package jobs

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/ia-avocats/backend/internal/models"
)

var (
	// ErrJobDone is returned when pushing after the done event.
	ErrJobDone = errors.New("jobs: job already finished")
	// ErrNotFound is returned for unknown job ids.
	ErrNotFound = errors.New("jobs: job not found")
	// ErrAlreadyStarted is returned when a job is started twice.
	ErrAlreadyStarted = errors.New("jobs: job already started")
	// ErrShuttingDown is returned by Start once the manager is shutting down.
	ErrShuttingDown = errors.New("jobs: manager shutting down")
)

// DefaultQueueSize bounds the events waiting to be dispatched to the log.
const DefaultQueueSize = 64

// Job is one unit of work and its progress stream. A single producer
// pushes events; any number of readers replay them from the first one.
type Job struct {
	ID        string
	CreatedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc

	pushMu sync.Mutex
	in     chan models.Event
	closed bool

	mu          sync.RWMutex
	mode        models.JobMode
	started     bool
	events      []models.Event
	signal      chan struct{}
	finished    bool
	status      models.JobStatus
	errMsg      string
	completedAt *time.Time
}

func newJob(parent context.Context, id string, queueSize int) *Job {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	ctx, cancel := context.WithCancel(parent)
	j := &Job{
		ID:        id,
		CreatedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		in:        make(chan models.Event, queueSize),
		signal:    make(chan struct{}),
		status:    models.JobStatusPending,
	}
	go j.dispatch()
	return j
}

// Context is cancelled when the job is cancelled or the server shuts down.
func (j *Job) Context() context.Context { return j.ctx }

// Cancel asks the running work to stop. The job still ends with error
// and done events.
func (j *Job) Cancel() { j.cancel() }

// Push enqueues an event. Events after done are rejected with ErrJobDone.
func (j *Job) Push(ev models.Event) error {
	j.pushMu.Lock()
	defer j.pushMu.Unlock()

	if j.closed {
		return ErrJobDone
	}
	j.in <- ev
	if ev.Terminal() {
		j.closed = true
		close(j.in)
	}
	return nil
}

// dispatch moves queued events to the log in FIFO order and wakes readers.
func (j *Job) dispatch() {
	for ev := range j.in {
		j.mu.Lock()
		j.events = append(j.events, ev)
		switch ev.Kind {
		case models.EventStarted:
			j.status = models.JobStatusRunning
		case models.EventResult:
			j.status = models.JobStatusComplete
		case models.EventError:
			j.status = models.JobStatusError
			j.errMsg = ev.Detail
		case models.EventDone:
			now := time.Now()
			j.completedAt = &now
			j.finished = true
		}
		close(j.signal)
		j.signal = make(chan struct{})
		j.mu.Unlock()
	}
	j.cancel()
}

// Done reports whether the done event has been dispatched.
func (j *Job) Done() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.finished
}

// Info returns a snapshot of the job state.
func (j *Job) Info() models.JobInfo {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return models.JobInfo{
		ID:          j.ID,
		Status:      j.status,
		Mode:        j.mode,
		Events:      len(j.events),
		Error:       j.errMsg,
		CreatedAt:   j.CreatedAt,
		CompletedAt: j.completedAt,
	}
}

func (j *Job) isStarted() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.started
}

// Subscribe returns a reader positioned before the first event.
func (j *Job) Subscribe(keepAlive time.Duration) *Reader {
	return &Reader{job: j, keepAlive: keepAlive}
}

func (j *Job) markStarted(mode models.JobMode) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.started {
		return ErrAlreadyStarted
	}
	j.started = true
	j.mode = mode
	return nil
}

// Reader walks a job's event log with its own cursor.
type Reader struct {
	job       *Job
	cursor    int
	keepAlive time.Duration
}

// Next returns the next event. It returns ok == false with a nil error when
// the keep-alive interval elapsed with nothing new, and io.EOF once the done
// event has been read.
func (r *Reader) Next(ctx context.Context) (ev models.Event, ok bool, err error) {
	for {
		r.job.mu.RLock()
		if r.cursor < len(r.job.events) {
			ev = r.job.events[r.cursor]
			r.cursor++
			r.job.mu.RUnlock()
			return ev, true, nil
		}
		finished := r.job.finished
		signal := r.job.signal
		r.job.mu.RUnlock()

		if finished {
			return models.Event{}, false, io.EOF
		}

		var tick <-chan time.Time
		var timer *time.Timer
		if r.keepAlive > 0 {
			timer = time.NewTimer(r.keepAlive)
			tick = timer.C
		}

		select {
		case <-signal:
			if timer != nil {
				timer.Stop()
			}
		case <-tick:
			return models.Event{}, false, nil
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return models.Event{}, false, ctx.Err()
		}
	}
}
