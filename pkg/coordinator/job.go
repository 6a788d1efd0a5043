// Package coordinator runs the audio synthesis pipeline for one episode:
// validate, synthesize turns in parallel, stitch, upload. Job state is a
// forward-only machine; progress never moves backward.
package coordinator

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/harunnryd/tutorcast/pkg/errorsx"
)

// JobStatus is one phase of the synthesis pipeline.
type JobStatus string

const (
	JobPending      JobStatus = "PENDING"
	JobValidating   JobStatus = "VALIDATING"
	JobSynthesizing JobStatus = "SYNTHESIZING"
	JobStitching    JobStatus = "STITCHING"
	JobUploading    JobStatus = "UPLOADING"
	JobCompleted    JobStatus = "COMPLETED"
	JobFailed       JobStatus = "FAILED"
)

// statusRank orders the pipeline phases. FAILED is reachable from any
// non-terminal phase.
var statusRank = map[JobStatus]int{
	JobPending:      0,
	JobValidating:   1,
	JobSynthesizing: 2,
	JobStitching:    3,
	JobUploading:    4,
	JobCompleted:    5,
	JobFailed:       5,
}

// Terminal reports whether the job can no longer change state.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// canTransition enforces forward-only movement.
func canTransition(from, to JobStatus) bool {
	if from.Terminal() {
		return false
	}
	if to == JobFailed {
		return true
	}
	return statusRank[to] > statusRank[from]
}

// SynthesisJob tracks one episode's trip through the pipeline.
type SynthesisJob struct {
	JobID           string        `json:"job_id"`
	SessionID       string        `json:"session_id"`
	LessonNumber    int           `json:"lesson_number"`
	Status          JobStatus     `json:"status"`
	ProgressPercent int           `json:"progress_percent"`
	AudioKey        string        `json:"audio_key,omitempty"`
	AudioURL        string        `json:"audio_url,omitempty"`
	Duration        time.Duration `json:"duration,omitempty"`
	CharactersUsed  int64         `json:"characters_used,omitempty"`
	EstimatedCost   float64       `json:"estimated_cost,omitempty"`
	Error           string        `json:"error,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// JobStore persists synthesis jobs.
type JobStore interface {
	SaveJob(job SynthesisJob) error
	GetJob(jobID string) (SynthesisJob, error)
	ListJobs() ([]SynthesisJob, error)
	DeleteJob(jobID string) error
}

// MemoryJobStore is the in-process JobStore.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]SynthesisJob
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]SynthesisJob)}
}

func (s *MemoryJobStore) SaveJob(job SynthesisJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.JobID] = job
	return nil
}

func (s *MemoryJobStore) GetJob(jobID string) (SynthesisJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return SynthesisJob{}, errorsx.Wrap(fmt.Errorf("job %s not found", jobID), errorsx.ReasonNotFound)
	}
	return job, nil
}

func (s *MemoryJobStore) ListJobs() ([]SynthesisJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SynthesisJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryJobStore) DeleteJob(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
	return nil
}

var _ JobStore = (*MemoryJobStore)(nil)
