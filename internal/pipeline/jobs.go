package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// JobStatus represents the state of a conversion job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusParsing   JobStatus = "parsing"
	StatusChunking  JobStatus = "chunking"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusSkipped   JobStatus = "skipped"
)

// Job tracks the state of a single document in a batch.
type Job struct {
	mu sync.Mutex

	ID     string    `json:"job_id"`
	Path   string    `json:"path"`
	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Format      string `json:"format,omitempty"`
	ContentHash string `json:"content_hash,omitempty"`
	Nodes       int    `json:"nodes"`
	Chunks      int    `json:"chunks"`
	Partial     bool   `json:"partial"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	errors []string
}

// NewJob returns a queued job for path.
func NewJob(id, path string) *Job {
	now := time.Now()
	return &Job{
		ID:        id,
		Path:      path,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// Fail records err and moves the job to failed.
func (j *Job) Fail(phase string, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err.Error())
	j.Status = StatusFailed
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records a non-fatal problem.
func (j *Job) AddError(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, msg)
	j.UpdatedAt = time.Now()
}

// RecordResult copies conversion details onto the job.
func (j *Job) RecordResult(res *Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Format = string(res.Format)
	j.Nodes = res.Metrics.TotalNodes
	j.Partial = res.Status == StatusPartialSuccess
	if res.Document != nil {
		if h, ok := res.Document.Metadata["content_hash"].(string); ok {
			j.ContentHash = h
		}
	}
	j.UpdatedAt = time.Now()
}

// SetChunks records how many chunks the job produced.
func (j *Job) SetChunks(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Chunks = n
	j.UpdatedAt = time.Now()
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Path        string    `json:"path"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Format      string    `json:"format,omitempty"`
	ContentHash string    `json:"content_hash,omitempty"`
	Nodes       int       `json:"nodes"`
	Chunks      int       `json:"chunks"`
	Partial     bool      `json:"partial"`
	Errors      []string  `json:"errors"`
	Elapsed     string    `json:"elapsed"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.errors))
	copy(errs, j.errors)
	return JobSnapshot{
		ID:          j.ID,
		Path:        j.Path,
		Status:      j.Status,
		Phase:       j.Phase,
		Format:      j.Format,
		ContentHash: j.ContentHash,
		Nodes:       j.Nodes,
		Chunks:      j.Chunks,
		Partial:     j.Partial,
		Errors:      errs,
		Elapsed:     j.UpdatedAt.Sub(j.CreatedAt).String(),
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
