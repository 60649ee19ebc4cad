package pipeline

import (
	"errors"
	"testing"
	"time"
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

func TestContentHashHex_EmptyInput(t *testing.T) {
	h := ContentHashHex([]byte{})
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if h != want {
		t.Errorf("expected hash %q, got %q", want, h)
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := NewJob("test-1", "a.md")
	if job.Status != StatusQueued {
		t.Fatalf("expected queued, got %q", job.Status)
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

func TestJob_Fail(t *testing.T) {
	job := NewJob("test-fail", "a.pdf")
	job.Fail("parsing", errors.New("bad pdf"))

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "parsing" {
		t.Errorf("expected failed/parsing, got %q/%q", snap.Status, snap.Phase)
	}
	if len(snap.Errors) != 1 || snap.Errors[0] != "bad pdf" {
		t.Errorf("expected recorded error, got %v", snap.Errors)
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	// Snapshot should always return non-nil errors slice.
	job := NewJob("snap-test", "a.md")
	snap := job.Snapshot()
	if snap.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
}

func TestJob_SnapshotIsCopy(t *testing.T) {
	job := NewJob("copy-test", "a.md")
	job.AddError("first")
	snap := job.Snapshot()
	job.AddError("second")
	if len(snap.Errors) != 1 {
		t.Errorf("expected snapshot to be unaffected, got %v", snap.Errors)
	}
}

func TestJob_SetChunks(t *testing.T) {
	job := NewJob("chunks", "a.md")
	job.SetChunks(42)
	if got := job.Snapshot().Chunks; got != 42 {
		t.Errorf("expected 42 chunks, got %d", got)
	}
}
