// results_test.go - Tests for the job result store
package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ia-avocats/backend/internal/models"
)

func createTestStore(t *testing.T) *ResultStore {
	t.Helper()
	store, err := NewResultStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store
}

func TestNewResultStore(t *testing.T) {
	t.Run("creates result directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "results")

		if _, err := NewResultStore(dir); err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			t.Error("Expected result directory to be created")
		}
	})

	t.Run("indexes existing results", func(t *testing.T) {
		dir := t.TempDir()
		first, err := NewResultStore(dir)
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
		if _, err := first.Save("abc", models.ModeSummaries, models.BatchResult{Original: "o"}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		second, err := NewResultStore(dir)
		if err != nil {
			t.Fatalf("Failed to reopen store: %v", err)
		}
		rec, err := second.Get("abc")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if rec.Batch == nil || rec.Batch.Original != "o" {
			t.Errorf("Unexpected record: %+v", rec)
		}
	})
}

func TestSaveAndGet(t *testing.T) {
	store := createTestStore(t)

	t.Run("batch result", func(t *testing.T) {
		in := models.BatchResult{Original: "Le 1 mai 2020, a.", Chronological: "Le 1 mai 2020, a."}
		if _, err := store.Save("job1", models.ModeSummaries, in); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		rec, err := store.Get("job1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if rec.Mode != models.ModeSummaries {
			t.Errorf("Expected mode summaries, got %s", rec.Mode)
		}
		if rec.Batch == nil || *rec.Batch != in {
			t.Errorf("Expected %+v, got %+v", in, rec.Batch)
		}
		if rec.File != nil {
			t.Error("Expected no file payload")
		}
	})

	t.Run("file payload", func(t *testing.T) {
		in := &models.FilePayload{Filename: "a.docx", MIMEType: models.MIMEDOCX, Base64: "AAEC"}
		if _, err := store.Save("job2", models.ModeConvert, in); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		rec, err := store.Get("job2")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if rec.File == nil || *rec.File != *in {
			t.Errorf("Expected %+v, got %+v", in, rec.File)
		}
	})

	t.Run("unsupported type", func(t *testing.T) {
		if _, err := store.Save("job3", models.ModeSummaries, "text"); err == nil {
			t.Error("Expected error for unsupported result type")
		}
	})

	t.Run("missing result", func(t *testing.T) {
		if _, err := store.Get("nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestDelete(t *testing.T) {
	store := createTestStore(t)
	if _, err := store.Save("job", models.ModeSummaries, models.BatchResult{}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := store.Delete("job"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Raw("job"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete("job"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestListAndCleanup(t *testing.T) {
	store := createTestStore(t)
	for _, id := range []string{"a", "b"} {
		if _, err := store.Save(id, models.ModeSummaries, models.BatchResult{}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	if got := len(store.List()); got != 2 {
		t.Fatalf("Expected 2 results, got %d", got)
	}

	store.mu.Lock()
	store.created["a"] = time.Now().Add(-2 * time.Hour)
	store.mu.Unlock()

	if removed := store.CleanupOlderThan(time.Hour); removed != 1 {
		t.Errorf("Expected 1 removed, got %d", removed)
	}
	ids := store.List()
	if len(ids) != 1 || ids[0] != "b" {
		t.Errorf("Expected [b], got %v", ids)
	}
}
