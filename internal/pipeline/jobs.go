package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/papersumm/internal/render"
	"github.com/dgallion1/papersumm/internal/summary"
)

// JobStatus represents the state of a summarization job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusParsing    JobStatus = "parsing"
	StatusSegmenting JobStatus = "segmenting"
	StatusChunking   JobStatus = "chunking"
	StatusMapping    JobStatus = "mapping"
	StatusReducing   JobStatus = "reducing"
	StatusRendering  JobStatus = "rendering"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusPartial    JobStatus = "partial"
	StatusDupSkipped JobStatus = "duplicate_skipped"
)

// Job tracks the state of a single document summarization.
type Job struct {
	mu sync.Mutex

	ID string `json:"job_id"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Title    string    `json:"title"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData  []byte
	report    *summary.Report
	artifacts *render.Artifacts
	errors    []string
}

// Progress tracks per-phase counters.
type Progress struct {
	TotalSections    int      `json:"total_sections"`
	TotalChunks      int      `json:"total_chunks"`
	ChunksSummarized int      `json:"chunks_summarized"`
	SectionsReduced  int      `json:"sections_reduced"`
	DegradedSections int      `json:"degraded_sections"`
	Errors           []string `json:"errors"`
}

// NewJob creates a queued job for an uploaded file.
func NewJob(filename string, data []byte) *Job {
	now := time.Now()
	return &Job{
		ID:        generateULID(),
		Status:    StatusQueued,
		Phase:     "queued",
		Filename:  filename,
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

// FindCompletedByHash returns a completed job with the given content hash,
// if one is still retained. Used to skip re-summarizing identical uploads.
func (s *JobStore) FindCompletedByHash(hash string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		job.mu.Lock()
		match := job.ContentHash == hash && (job.Status == StatusCompleted || job.Status == StatusPartial)
		job.mu.Unlock()
		if match {
			return job
		}
	}
	return nil
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.UpdatedAt) > s.ttl {
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

// SetTitle records the document title once parsing reveals it.
func (j *Job) SetTitle(title string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Title = title
	j.UpdatedAt = time.Now()
}

// SetContentHash records the hash of the parsed text.
func (j *Job) SetContentHash(hash string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = hash
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

// SetTotals records section and chunk counts after segmentation.
func (j *Job) SetTotals(sections, chunks int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalSections = sections
	j.Progress.TotalChunks = chunks
	j.UpdatedAt = time.Now()
}

// SetChunksSummarized records map-phase progress.
func (j *Job) SetChunksSummarized(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.ChunksSummarized = n
	j.UpdatedAt = time.Now()
}

// SetSectionsReduced records reduce-phase progress.
func (j *Job) SetSectionsReduced(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.SectionsReduced = n
	j.UpdatedAt = time.Now()
}

// SetDegradedSections records how many report sections carry excerpt-derived
// content instead of a model summary.
func (j *Job) SetDegradedSections(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.DegradedSections = n
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

// SetResult attaches the finished report and its rendered artifacts, and
// releases the upload bytes.
func (j *Job) SetResult(report *summary.Report, artifacts *render.Artifacts) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.report = report
	j.artifacts = artifacts
	j.fileData = nil
	j.UpdatedAt = time.Now()
}

// Result returns the finished report and artifacts, nil until completion.
func (j *Job) Result() (*summary.Report, *render.Artifacts) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.report, j.artifacts
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID       string    `json:"job_id"`
	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Title    string    `json:"title"`
	Progress Progress  `json:"progress"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	return JobSnapshot{
		ID:       j.ID,
		Status:   j.Status,
		Phase:    j.Phase,
		Filename: j.Filename,
		Title:    j.Title,
		Progress: Progress{
			TotalSections:    j.Progress.TotalSections,
			TotalChunks:      j.Progress.TotalChunks,
			ChunksSummarized: j.Progress.ChunksSummarized,
			SectionsReduced:  j.Progress.SectionsReduced,
			DegradedSections: j.Progress.DegradedSections,
			Errors:           errs,
		},
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
