package jobs

import (
	"context"
	"errors"
	"time"
)

// ErrJobNotFound is returned by a JobStore for an unknown job id.
var ErrJobNotFound = errors.New("job not found")

// JobKind tells the worker what to do with a snapshot job.
type JobKind string

const (
	// JobKindBackup writes a new snapshot of the ledger.
	JobKindBackup JobKind = "backup"
	// JobKindRestore loads an existing snapshot into the ledger.
	JobKindRestore JobKind = "restore"
)

// Valid reports whether k is a known kind.
func (k JobKind) Valid() bool {
	return k == JobKindBackup || k == JobKindRestore
}

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// SnapshotJob is a backup or restore run executed off the request path.
type SnapshotJob struct {
	JobID string  `json:"job_id"`
	Kind  JobKind `json:"kind"`

	// Snapshot is the object to restore for restore jobs, and the object
	// written for completed backup jobs.
	Snapshot string `json:"snapshot,omitempty"`

	// Restored is the number of transactions written by a restore job.
	Restored int `json:"restored,omitempty"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`
}

// Publisher enqueues jobs.
type Publisher interface {
	Publish(ctx context.Context, job *SnapshotJob) error
	Close() error
}

// Consumer runs queued jobs through a handler.
type Consumer interface {
	// Start launches the workers and returns immediately.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes one job. It may record results on the job; a
// returned error marks the attempt as failed.
type JobHandler func(ctx context.Context, job *SnapshotJob) error

// JobStore keeps job state for status queries.
type JobStore interface {
	SaveJob(ctx context.Context, job *SnapshotJob) error
	GetJob(ctx context.Context, jobID string) (*SnapshotJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*SnapshotJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	Kind   JobKind
	Status JobStatus
	Limit  int
}
