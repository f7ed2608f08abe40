package pipeline

import (
	"testing"
	"time"

	"hwingest/internal/chunker"
	"hwingest/internal/hwdoc"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	// SHA-256 of "hello world" is well-known.
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestContentHashHex_DifferentInputs(t *testing.T) {
	h1 := ContentHashHex([]byte("aaa"))
	h2 := ContentHashHex([]byte("bbb"))
	if h1 == h2 {
		t.Error("expected different hashes for different inputs")
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := &Job{
		ID:        "test-1",
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusParsing, "parsing"},
		{StatusChunking, "chunking"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		// Small sleep to ensure time difference is detectable.
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestJob_AddError(t *testing.T) {
	job := &Job{ID: "err-test", UpdatedAt: time.Now()}
	job.AddError("parse failed")
	job.AddError("no extractable content")

	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Progress.Errors))
	}
	if snap.Progress.Errors[0] != "parse failed" {
		t.Errorf("expected first error %q, got %q", "parse failed", snap.Progress.Errors[0])
	}
}

func TestJob_SetChunks(t *testing.T) {
	job := &Job{ID: "chunks-test", UpdatedAt: time.Now()}
	job.SetChunks([]hwdoc.Chunk{
		{ChunkID: "d_chunk_0000_aaaaaaaa", TokenCount: 100},
		{ChunkID: "d_chunk_0001_bbbbbbbb", TokenCount: 42},
	})

	snap := job.Snapshot()
	if snap.Progress.TotalChunks != 2 {
		t.Errorf("expected 2 total chunks, got %d", snap.Progress.TotalChunks)
	}
	if snap.Progress.TotalTokens != 142 {
		t.Errorf("expected 142 total tokens, got %d", snap.Progress.TotalTokens)
	}
	if got := job.Chunks(); len(got) != 2 || got[0].ChunkID != "d_chunk_0000_aaaaaaaa" {
		t.Errorf("unexpected chunks: %+v", got)
	}
}

func TestJob_ChunkConfigOverride(t *testing.T) {
	job := &Job{ID: "cfg-test"}
	if _, ok := job.ChunkConfig(); ok {
		t.Fatal("expected no override on a fresh job")
	}
	job.SetChunkConfig(chunker.Config{MaxTokens: 256, OverlapTokens: 32, MinTokens: 10})
	cfg, ok := job.ChunkConfig()
	if !ok {
		t.Fatal("expected override to be set")
	}
	if cfg.MaxTokens != 256 || cfg.OverlapTokens != 32 || cfg.MinTokens != 10 {
		t.Errorf("unexpected override: %+v", cfg)
	}
}

func TestJob_FileData(t *testing.T) {
	job := &Job{ID: "data-test"}
	data := []byte("file content here")
	job.SetFileData(data)
	got := job.FileData()
	if string(got) != string(data) {
		t.Errorf("expected file data %q, got %q", data, got)
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	// Snapshot should always return non-nil errors slice.
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
	if len(snap.Progress.Errors) != 0 {
		t.Errorf("expected empty errors, got %d", len(snap.Progress.Errors))
	}
}

func TestJob_ReconcileIdentity(t *testing.T) {
	job := &Job{ID: "ident-test", DocID: "forced_id"}
	docID, title, chip := job.ReconcileIdentity("parsed_id", "Parsed Title", "STM32F407")
	if docID != "forced_id" {
		t.Errorf("doc id = %q, want the submitted override to win", docID)
	}
	if title != "Parsed Title" || chip != "STM32F407" {
		t.Errorf("title/chip = %q/%q, want parser values where no override", title, chip)
	}

	job.SetContentHash("abc123")
	snap := job.Snapshot()
	if snap.DocID != "forced_id" || snap.Title != "Parsed Title" || snap.Chip != "STM32F407" {
		t.Errorf("snapshot identity = %q/%q/%q", snap.DocID, snap.Title, snap.Chip)
	}
	if snap.ContentHash != "abc123" {
		t.Errorf("snapshot content hash = %q", snap.ContentHash)
	}
}

func TestJob_ConcurrentIdentityAndSnapshot(t *testing.T) {
	// Worker-side identity writes and handler-side snapshots overlap in
	// production; the race detector flags any unlocked field access here.
	job := &Job{ID: "race-test"}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			job.ReconcileIdentity("doc", "Title", "chip")
			job.SetContentHash("hash")
			job.SetStatus(StatusParsing, "parsing")
		}
	}()
	for i := 0; i < 200; i++ {
		job.Snapshot()
	}
	<-done
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "store-1", UpdatedAt: time.Now()}
	store.Put(job)

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != "store-1" {
		t.Errorf("expected ID %q, got %q", "store-1", got.ID)
	}
}

func TestJobStore_GetMissing(t *testing.T) {
	store := NewJobStore(time.Hour)
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_ClaimHash(t *testing.T) {
	store := NewJobStore(time.Hour)

	owner, claimed := store.ClaimHash("abc123", "doc_a")
	if !claimed || owner != "doc_a" {
		t.Fatalf("expected first claim to succeed, got (%q, %v)", owner, claimed)
	}

	owner, claimed = store.ClaimHash("abc123", "doc_b")
	if claimed {
		t.Error("expected second claim of same hash to fail")
	}
	if owner != "doc_a" {
		t.Errorf("expected original owner doc_a, got %q", owner)
	}

	if _, claimed := store.ClaimHash("other", "doc_b"); !claimed {
		t.Error("expected claim of a new hash to succeed")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := &Job{ID: "old", DocID: "doc_old", ContentHash: "hash_old", UpdatedAt: time.Now()}
	store.Put(expired)
	store.ClaimHash("hash_old", "doc_old")

	// Wait for the TTL to pass.
	time.Sleep(100 * time.Millisecond)

	// Add a fresh job.
	fresh := &Job{ID: "new", UpdatedAt: time.Now()}
	store.Put(fresh)

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh job to survive cleanup")
	}
	// The hash index entry goes with the job, so the hash is claimable again.
	if _, claimed := store.ClaimHash("hash_old", "doc_new"); !claimed {
		t.Error("expected hash index entry to be evicted with its job")
	}
}

func TestJobStore_CleanupEmpty(t *testing.T) {
	store := NewJobStore(time.Hour)
	// Should not panic on empty store.
	store.Cleanup()
}
