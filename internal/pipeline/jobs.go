package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"hwingest/internal/chunker"
	"hwingest/internal/hwdoc"
)

// JobStatus represents the state of an ingestion job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusParsing    JobStatus = "parsing"
	StatusChunking   JobStatus = "chunking"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusDupSkipped JobStatus = "duplicate_skipped"
)

// Job tracks the state of a single document ingestion.
type Job struct {
	mu sync.Mutex

	ID    string `json:"job_id"`
	DocID string `json:"doc_id"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Title    string    `json:"title"`
	Chip     string    `json:"chip"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	chunkCfg *chunker.Config
	chunks   []hwdoc.Chunk
	errors   []string
}

// Progress tracks processing progress.
type Progress struct {
	TotalChunks int      `json:"total_chunks"`
	TotalTokens int      `json:"total_tokens"`
	Errors      []string `json:"errors"`
}

// JobStore is a thread-safe in-memory job registry with TTL eviction. It
// also keeps a content-hash index so re-uploads of an identical document
// are detected while the original job is still retained.
type JobStore struct {
	mu     sync.Mutex
	jobs   map[string]*Job
	byHash map[string]string
	ttl    time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs:   make(map[string]*Job),
		byHash: make(map[string]string),
		ttl:    ttl,
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

// ClaimHash records hash -> docID if the hash is new. It returns the doc id
// that owns the hash and whether this call claimed it.
func (s *JobStore) ClaimHash(hash, docID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := s.byHash[hash]; ok {
		return owner, false
	}
	s.byHash[hash] = docID
	return docID, true
}

// Cleanup removes expired jobs and their hash index entries.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.UpdatedAt) > s.ttl {
			if job.ContentHash != "" && s.byHash[job.ContentHash] == job.DocID {
				delete(s.byHash, job.ContentHash)
			}
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

// ReconcileIdentity merges the caller-supplied doc_id, title, and chip with
// the parser's findings: a value set at submission wins, the parser fills
// the gaps. Returns the values the document should carry.
func (j *Job) ReconcileIdentity(docID, title, chip string) (string, string, string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.DocID == "" {
		j.DocID = docID
	}
	if j.Title == "" {
		j.Title = title
	}
	if j.Chip == "" {
		j.Chip = chip
	}
	j.UpdatedAt = time.Now()
	return j.DocID, j.Title, j.Chip
}

// SetContentHash records the hash of the parsed content.
func (j *Job) SetContentHash(hash string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = hash
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetChunks records the chunking result on the job.
func (j *Job) SetChunks(chunks []hwdoc.Chunk) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.chunks = chunks
	j.Progress.TotalChunks = len(chunks)
	total := 0
	for _, c := range chunks {
		total += c.TokenCount
	}
	j.Progress.TotalTokens = total
	j.UpdatedAt = time.Now()
}

// Chunks returns the chunks produced for the job, nil until completed.
func (j *Job) Chunks() []hwdoc.Chunk {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.chunks
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

// SetChunkConfig overrides the pipeline chunking defaults for this job.
func (j *Job) SetChunkConfig(cfg chunker.Config) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.chunkCfg = &cfg
}

// ChunkConfig returns the job's chunking override, or ok=false when the
// pipeline defaults apply.
func (j *Job) ChunkConfig() (chunker.Config, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.chunkCfg == nil {
		return chunker.Config{}, false
	}
	return *j.chunkCfg, true
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	DocID       string    `json:"doc_id"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	Chip        string    `json:"chip"`
	ContentHash string    `json:"content_hash,omitempty"`
	Progress    Progress  `json:"progress"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
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
		ID:          j.ID,
		DocID:       j.DocID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		Title:       j.Title,
		Chip:        j.Chip,
		ContentHash: j.ContentHash,
		Progress: Progress{
			TotalChunks: j.Progress.TotalChunks,
			TotalTokens: j.Progress.TotalTokens,
			Errors:      errs,
		},
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
