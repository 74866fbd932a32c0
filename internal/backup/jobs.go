package backup

import (
	"context"
	"fmt"

	"github.com/dvloznov/pocket-ledger/internal/jobs"
)

// HandleJob runs a queued snapshot job and records its outcome on job.
// It satisfies jobs.JobHandler.
func (s *Service) HandleJob(ctx context.Context, job *jobs.SnapshotJob) error {
	switch job.Kind {
	case jobs.JobKindBackup:
		name, err := s.Backup(ctx)
		if err != nil {
			return err
		}
		job.Snapshot = name
		return nil
	case jobs.JobKindRestore:
		if job.Snapshot == "" {
			return fmt.Errorf("HandleJob: restore job %s has no snapshot", job.JobID)
		}
		n, err := s.Restore(ctx, job.Snapshot)
		job.Restored = n
		return err
	default:
		return fmt.Errorf("HandleJob: unknown job kind %q", job.Kind)
	}
}
