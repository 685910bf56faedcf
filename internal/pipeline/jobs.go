package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/legistruct/internal/doctree"
	"github.com/dgallion1/legistruct/internal/normalize"
)

// JobStatus represents the state of a parse job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusParsing    JobStatus = "parsing"
	StatusExporting  JobStatus = "exporting"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusPartial    JobStatus = "partial"
	StatusDupSkipped JobStatus = "duplicate_skipped"
)

// Job tracks the state of a single document parse.
type Job struct {
	mu sync.Mutex

	ID    string `json:"job_id"`
	DocID string `json:"doc_id"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Title    string    `json:"title"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	DuplicateOf string    `json:"duplicate_of,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	doc      *doctree.DocumentStructure
	errors   []string
}

// Progress tracks processing progress.
type Progress struct {
	Lines        int                   `json:"lines"`
	Articles     int                   `json:"articles"`
	Diagnostics  int                   `json:"diagnostics"`
	Filtered     normalize.FilterStats `json:"filtered"`
	FilesWritten int                   `json:"files_written"`
	Errors       []string              `json:"errors"`
}

// NewJob returns a queued job with fresh ids.
func NewJob(filename, title, docID string, data []byte) *Job {
	now := time.Now()
	if docID == "" {
		docID = NewID()
	}
	return &Job{
		ID:        NewID(),
		DocID:     docID,
		Status:    StatusQueued,
		Phase:     "queued",
		Filename:  filename,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		fileData:  data,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
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

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetResult stores the parsed document and its counters. The file bytes are
// released.
func (j *Job) SetResult(res *ParseResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.doc = res.Doc
	j.fileData = nil
	j.Progress.Lines = res.Lines
	j.Progress.Articles = len(res.Doc.Articles())
	j.Progress.Diagnostics = len(res.Doc.Diagnostics)
	j.Progress.Filtered = res.Filter
	j.UpdatedAt = time.Now()
}

// Document returns the parsed document, nil until parsing succeeded.
func (j *Job) Document() *doctree.DocumentStructure {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.doc
}

// AddFilesWritten records exported files.
func (j *Job) AddFilesWritten(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.FilesWritten += n
	j.UpdatedAt = time.Now()
}

// SetContentHash records the hash of the raw upload.
func (j *Job) SetContentHash(h string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = h
}

// MarkDuplicate records the document id that already holds this content.
func (j *Job) MarkDuplicate(docID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.DuplicateOf = docID
	j.Status = StatusDupSkipped
	j.Phase = "dedup"
	j.UpdatedAt = time.Now()
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	DocID       string    `json:"doc_id"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	ContentHash string    `json:"content_hash,omitempty"`
	DuplicateOf string    `json:"duplicate_of,omitempty"`
	Progress    Progress  `json:"progress"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	p := j.Progress
	p.Errors = errs
	return JobSnapshot{
		ID:          j.ID,
		DocID:       j.DocID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		Title:       j.Title,
		ContentHash: j.ContentHash,
		DuplicateOf: j.DuplicateOf,
		Progress:    p,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

// Done reports whether the job reached a final state.
func (s JobSnapshot) Done() bool {
	switch s.Status {
	case StatusCompleted, StatusFailed, StatusPartial, StatusDupSkipped:
		return true
	}
	return false
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
