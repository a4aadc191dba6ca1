// Package storage keeps finished job results on disk so they can be
// downloaded after the progress stream has ended.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ia-avocats/backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrNotFound is returned for a job without a stored result.
var ErrNotFound = errors.New("storage: result not found")

// Record is a stored job result. Exactly one of Batch and File is set.
type Record struct {
	JobID     string              `json:"jobId" msgpack:"jobId"`
	Mode      models.JobMode      `json:"mode" msgpack:"mode"`
	Batch     *models.BatchResult `json:"batch,omitempty" msgpack:"batch,omitempty"`
	File      *models.FilePayload `json:"file,omitempty" msgpack:"file,omitempty"`
	CreatedAt time.Time           `json:"createdAt" msgpack:"createdAt"`
}

// Store persists job results.
type Store interface {
	Save(jobID string, mode models.JobMode, result any) (*Record, error)
	Get(jobID string) (*Record, error)
	Raw(jobID string) ([]byte, error)
	Delete(jobID string) error
}

// ResultStore implements Store on the local filesystem, one msgpack file
// per job.
type ResultStore struct {
	mu      sync.RWMutex
	dir     string
	created map[string]time.Time
}

// NewResultStore creates the result directory and indexes any results
// left by a previous run.
func NewResultStore(dir string) (*ResultStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating result directory: %w", err)
	}

	s := &ResultStore{
		dir:     dir,
		created: make(map[string]time.Time),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing result directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".msgpack" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		id := e.Name()[:len(e.Name())-len(".msgpack")]
		s.created[id] = info.ModTime()
	}
	return s, nil
}

func (s *ResultStore) path(jobID string) string {
	return filepath.Join(s.dir, filepath.Base(jobID)+".msgpack")
}

// Save encodes and writes a BatchResult or FilePayload.
func (s *ResultStore) Save(jobID string, mode models.JobMode, result any) (*Record, error) {
	rec := &Record{JobID: jobID, Mode: mode, CreatedAt: time.Now()}
	switch r := result.(type) {
	case models.BatchResult:
		rec.Batch = &r
	case *models.BatchResult:
		rec.Batch = r
	case models.FilePayload:
		rec.File = &r
	case *models.FilePayload:
		rec.File = r
	default:
		return nil, fmt.Errorf("unsupported result type %T", result)
	}

	data, err := msgpack.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}

	tmp := s.path(jobID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return nil, fmt.Errorf("writing result: %w", err)
	}
	if err := os.Rename(tmp, s.path(jobID)); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("writing result: %w", err)
	}

	s.mu.Lock()
	s.created[jobID] = rec.CreatedAt
	s.mu.Unlock()
	return rec, nil
}

// Raw returns the encoded record as written to disk.
func (s *ResultStore) Raw(jobID string) ([]byte, error) {
	s.mu.RLock()
	_, ok := s.created[jobID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	data, err := os.ReadFile(s.path(jobID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading result: %w", err)
	}
	return data, nil
}

// Get decodes a stored record.
func (s *ResultStore) Get(jobID string) (*Record, error) {
	data, err := s.Raw(jobID)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding result: %w", err)
	}
	return &rec, nil
}

// Delete removes a stored result.
func (s *ResultStore) Delete(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.created[jobID]; !ok {
		return ErrNotFound
	}
	delete(s.created, jobID)
	if err := os.Remove(s.path(jobID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting result: %w", err)
	}
	return nil
}

// List returns stored job ids, newest first.
func (s *ResultStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.created))
	for id := range s.created {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.created[ids[i]].After(s.created[ids[j]])
	})
	return ids
}

// CleanupOlderThan deletes results saved before maxAge ago.
func (s *ResultStore) CleanupOlderThan(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, at := range s.created {
		if at.Before(cutoff) {
			delete(s.created, id)
			os.Remove(s.path(id))
			removed++
		}
	}
	return removed
}
