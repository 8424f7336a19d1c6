package upload

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jd-analyzer/backend/internal/models"
)

// Status represents the batch ingestion status.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusExtracting Status = "extracting"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// FileResult is the outcome of ingesting one file of a batch.
type FileResult struct {
	FileName string `json:"fileName"`
	FileID   string `json:"fileId,omitempty"`
	Format   string `json:"format,omitempty"`
	Chars    int    `json:"chars,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Job represents an async batch ingestion job.
type Job struct {
	ID          string       `json:"id"`
	TotalFiles  int          `json:"totalFiles"`
	TotalSize   int64        `json:"totalSize"`
	Processed   int          `json:"processed"`
	Status      Status       `json:"status"`
	Progress    float64      `json:"progress"`
	Stage       string       `json:"stage"` // Current stage description
	Files       []FileResult `json:"files"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
}

// Store defines the interface needed from storage layer.
type Store interface {
	Save(name string, data []byte, doc *models.ParsedDocument) (*models.FileInfo, error)
}

// Manager validates uploads, extracts their text and hands the results to
// the store. Batches are processed in the background.
type Manager struct {
	jobs      map[string]*Job
	mu        sync.RWMutex
	store     Store
	validator *Validator
	logger    *slog.Logger
}

// NewManager creates a new ingestion manager. The validator's registry is
// used for parsing as well as for format checks.
func NewManager(store Store, validator *Validator, logger *slog.Logger) *Manager {
	if validator == nil {
		validator = defaultValidator
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		jobs:      make(map[string]*Job),
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

// Validator returns the validator used by the manager.
func (m *Manager) Validator() *Validator {
	return m.validator
}

// Ingest validates, parses and stores a single upload synchronously.
func (m *Manager) Ingest(file models.UploadCandidate) (*models.FileInfo, *models.ParsedDocument, error) {
	if err := m.validator.CheckFile(candidateSize(file), file.Name); err != nil {
		return nil, nil, err
	}

	doc, err := m.validator.Formats().Parse(file.Data, file.Name)
	if err != nil {
		m.logger.Warn("extraction failed", "file", file.Name, "error", err)
		return nil, nil, err
	}

	info, err := m.store.Save(file.Name, file.Data, doc)
	if err != nil {
		return nil, nil, fmt.Errorf("saving %s: %w", file.Name, err)
	}

	m.logger.Info("document ingested", "file", file.Name, "id", info.ID, "format", doc.Format, "chars", info.Chars)
	return info, doc, nil
}

// StartJob validates the batch and begins async extraction. Validation
// failures are returned immediately and no job is created.
func (m *Manager) StartJob(files []models.UploadCandidate) (Job, error) {
	if err := m.validator.CheckBatch(files); err != nil {
		return Job{}, err
	}

	job := &Job{
		ID:         uuid.New().String(),
		TotalFiles: len(files),
		TotalSize:  totalSize(files),
		Status:     StatusProcessing,
		Stage:      "queued",
		Files:      make([]FileResult, 0, len(files)),
		CreatedAt:  time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	snapshot := job.snapshot()
	m.mu.Unlock()

	go m.processJob(job, files)

	return snapshot, nil
}

// GetJob returns a copy of the job with the given ID.
func (m *Manager) GetJob(id string) (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return job.snapshot(), true
}

// processJob extracts each file in input order.
func (m *Manager) processJob(job *Job, files []models.UploadCandidate) {
	log := m.logger.With("job_id", job.ID)
	log.Info("batch ingestion started", "files", len(files), "size", FormatSize(job.TotalSize))

	failed := 0
	for i, f := range files {
		m.updateJobStatus(job, StatusExtracting, fmt.Sprintf("extracting %s", f.Name))

		result := FileResult{FileName: f.Name}
		doc, err := m.validator.Formats().Parse(f.Data, f.Name)
		if err == nil {
			var info *models.FileInfo
			info, err = m.store.Save(f.Name, f.Data, doc)
			if err == nil {
				result.FileID = info.ID
				result.Format = info.Format
				result.Chars = info.Chars
			}
		}
		if err != nil {
			failed++
			result.Error = err.Error()
			log.Warn("file ingestion failed", "file", f.Name, "error", err)
		}

		m.recordResult(job, result, i+1)
	}

	if failed == len(files) {
		m.markJobError(job, "no file in the batch could be ingested")
		log.Error("batch ingestion failed", "files", len(files))
		return
	}
	m.markJobComplete(job)
	log.Info("batch ingestion complete", "files", len(files), "failed", failed)
}

// updateJobStatus updates job stage (thread-safe).
func (m *Manager) updateJobStatus(job *Job, status Status, stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job.Status = status
	job.Stage = stage
}

// recordResult appends a file result and advances progress (thread-safe).
func (m *Manager) recordResult(job *Job, result FileResult, processed int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job.Files = append(job.Files, result)
	job.Processed = processed
	job.Progress = float64(processed) / float64(job.TotalFiles) * 100
}

// markJobComplete marks job as complete (thread-safe).
func (m *Manager) markJobComplete(job *Job) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job.Status = StatusComplete
	job.Stage = "done"
	job.Progress = 100
	now := time.Now()
	job.CompletedAt = &now
}

// markJobError marks job as failed (thread-safe).
func (m *Manager) markJobError(job *Job, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job.Status = StatusError
	job.Stage = "done"
	job.Error = errMsg
	now := time.Now()
	job.CompletedAt = &now
}

// CleanupOldJobs removes finished jobs older than maxAge.
func (m *Manager) CleanupOldJobs(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for id, job := range m.jobs {
		if job.Status == StatusComplete || job.Status == StatusError {
			if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
				delete(m.jobs, id)
				removed++
			}
		}
	}
	return removed
}

// snapshot copies the job; callers must hold the manager lock.
func (j *Job) snapshot() Job {
	c := *j
	c.Files = make([]FileResult, len(j.Files))
	copy(c.Files, j.Files)
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return c
}
