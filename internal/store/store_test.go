package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_New_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/path/test.db")
	if err == nil {
		t.Error("expected error for invalid path")
	}
}

func TestStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := s.SaveMemory(context.Background(), "Hello", "en", "uk", "Привіт", "deepseek"); err != nil {
		t.Fatalf("SaveMemory failed: %v", err)
	}
	s.Close()

	s, err = New(path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer s.Close()
	if _, ok, _ := s.LookupMemory(context.Background(), "Hello", "en", "uk"); !ok {
		t.Error("expected entry to survive reopen")
	}
}

func TestNormalizeText(t *testing.T) {
	decomposed := "  cafe\u0301 "
	if got := normalizeText(decomposed); got != "caf\u00e9" {
		t.Errorf("expected NFC, trimmed text, got %q", got)
	}
}

func TestStore_SaveAndGetJob(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := JobRecord{
		ID:           "job-1",
		SourceLang:   "en",
		TargetLang:   "uk",
		Backend:      "deepseek",
		SourceChars:  42,
		Chunks:       2,
		FailedChunks: 1,
		Status:       StatusCompleted,
		Output:       "Привіт [TRANSLATION ERROR: timeout]",
		Duration:     1500 * time.Millisecond,
	}
	chunks := []ChunkRecord{
		{Index: 1, Source: "World", Error: "timeout"},
		{Index: 0, Source: "Hello", Translation: "Привіт"},
	}
	if err := s.SaveJob(ctx, job, chunks); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}

	got, gotChunks, err := s.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if got.Output != job.Output || got.FailedChunks != 1 || got.Duration != job.Duration || got.Backend != "deepseek" {
		t.Errorf("unexpected job %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
	if len(gotChunks) != 2 || gotChunks[0].Index != 0 || gotChunks[1].Error != "timeout" {
		t.Errorf("unexpected chunks %+v", gotChunks)
	}
}

func TestStore_GetJob_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.GetJob(context.Background(), "missing")
	if !errors.Is(err, ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestStore_SaveJob_DuplicateRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	job := JobRecord{ID: "dup", SourceLang: "en", TargetLang: "de", Chunks: 1, Status: StatusCompleted}

	if err := s.SaveJob(ctx, job, []ChunkRecord{{Index: 0, Source: "a"}}); err != nil {
		t.Fatalf("first SaveJob failed: %v", err)
	}
	if err := s.SaveJob(ctx, job, []ChunkRecord{{Index: 0, Source: "b"}}); err == nil {
		t.Fatal("expected duplicate job id to fail")
	}
	_, chunks, err := s.GetJob(ctx, "dup")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Source != "a" {
		t.Errorf("failed save must not change stored chunks, got %+v", chunks)
	}
}

func TestStore_ListJobsAndStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	records := []JobRecord{
		{ID: "a", SourceLang: "en", TargetLang: "uk", SourceChars: 100, Chunks: 1, Status: StatusCompleted, Duration: time.Second, CreatedAt: base},
		{ID: "b", SourceLang: "en", TargetLang: "de", SourceChars: 300, Chunks: 3, FailedChunks: 3, Status: StatusFailed, Error: "empty", Duration: 3 * time.Second, CreatedAt: base.Add(time.Minute)},
		{ID: "c", SourceLang: "fr", TargetLang: "uk", SourceChars: 200, Chunks: 2, FailedChunks: 1, Status: StatusCompleted, Duration: 2 * time.Second, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, r := range records {
		if err := s.SaveJob(ctx, r, nil); err != nil {
			t.Fatalf("SaveJob(%s) failed: %v", r.ID, err)
		}
	}

	jobs, err := s.ListJobs(ctx, 2)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(jobs) != 2 || jobs[0].ID != "c" || jobs[1].ID != "b" {
		t.Errorf("expected newest two jobs, got %+v", jobs)
	}

	stats, err := s.JobStats(ctx)
	if err != nil {
		t.Fatalf("JobStats failed: %v", err)
	}
	want := JobStats{Total: 3, Completed: 2, Failed: 1, Chunks: 6, FailedChunks: 4, SourceChars: 600, AvgDuration: 2 * time.Second}
	if *stats != want {
		t.Errorf("got %+v, want %+v", *stats, want)
	}
}

func TestStore_DeleteJob(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.SaveJob(ctx, JobRecord{ID: "x", Status: StatusCompleted}, []ChunkRecord{{Index: 0, Source: "s"}}); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}
	if err := s.DeleteJob(ctx, "x"); err != nil {
		t.Fatalf("DeleteJob failed: %v", err)
	}
	if _, _, err := s.GetJob(ctx, "x"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("expected job to be gone, got %v", err)
	}
	if err := s.DeleteJob(ctx, "x"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound on second delete, got %v", err)
	}
}
