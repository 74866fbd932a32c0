package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/pocket-ledger/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForStatus(t *testing.T, store *Store, id string, want jobs.JobStatus) *jobs.SnapshotJob {
	t.Helper()
	var job *jobs.SnapshotJob
	require.Eventually(t, func() bool {
		var err error
		job, err = store.GetJob(context.Background(), id)
		return err == nil && job.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestQueue_RunsJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(4, 1, store)
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job *jobs.SnapshotJob) error {
		job.Snapshot = "snapshots/x.json"
		return nil
	}))
	defer q.Close()

	job := &jobs.SnapshotJob{Kind: jobs.JobKindBackup}
	require.NoError(t, q.Publish(ctx, job))
	assert.NotEmpty(t, job.JobID)

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, "snapshots/x.json", done.Snapshot)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.CompletedAt)
	assert.Empty(t, done.Error)
}

func TestQueue_RetriesThenFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(4, 1, store)
	q.retryDelay = time.Millisecond

	var attempts int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job *jobs.SnapshotJob) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("bucket unavailable")
	}))
	defer q.Close()

	job := &jobs.SnapshotJob{Kind: jobs.JobKindRestore, Snapshot: "snapshots/a.json", MaxRetries: 1}
	require.NoError(t, q.Publish(ctx, job))

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Equal(t, 1, failed.RetryCount)
	assert.Equal(t, "bucket unavailable", failed.Error)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestQueue_RejectsAfterStopAndUnknownKind(t *testing.T) {
	q := NewQueue(1, 1, nil)

	err := q.Publish(context.Background(), &jobs.SnapshotJob{Kind: "export"})
	assert.Error(t, err)

	require.NoError(t, q.Stop(context.Background()))
	require.NoError(t, q.Stop(context.Background()))

	err = q.Publish(context.Background(), &jobs.SnapshotJob{Kind: jobs.JobKindBackup})
	assert.EqualError(t, err, "queue is closed")
	assert.Error(t, q.Start(context.Background(), nil))
}

func TestStore_ListJobs(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	base := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveJob(ctx, &jobs.SnapshotJob{JobID: "a", Kind: jobs.JobKindBackup, Status: jobs.JobStatusCompleted, CreatedAt: base}))
	require.NoError(t, store.SaveJob(ctx, &jobs.SnapshotJob{JobID: "b", Kind: jobs.JobKindRestore, Status: jobs.JobStatusFailed, CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, store.SaveJob(ctx, &jobs.SnapshotJob{JobID: "c", Kind: jobs.JobKindBackup, Status: jobs.JobStatusPending, CreatedAt: base.Add(2 * time.Minute)}))

	all, err := store.ListJobs(ctx, jobs.JobFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].JobID, all[1].JobID, all[2].JobID})

	backups, err := store.ListJobs(ctx, jobs.JobFilter{Kind: jobs.JobKindBackup, Limit: 1})
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, "c", backups[0].JobID)

	failed, err := store.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "b", failed[0].JobID)

	_, err = store.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
	assert.Error(t, store.SaveJob(ctx, &jobs.SnapshotJob{}))
}

func TestQueue_StopReleasesBlockedPublisher(t *testing.T) {
	q := NewQueue(1, 1, NewStore())
	require.NoError(t, q.Publish(context.Background(), &jobs.SnapshotJob{Kind: jobs.JobKindBackup}))

	published := make(chan error, 1)
	go func() {
		published <- q.Publish(context.Background(), &jobs.SnapshotJob{Kind: jobs.JobKindBackup})
	}()

	// Give the second publisher time to block on the full buffer.
	time.Sleep(20 * time.Millisecond)

	stopped := make(chan error, 1)
	go func() { stopped <- q.Stop(context.Background()) }()

	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return while a publisher was blocked")
	}

	select {
	case err := <-published:
		assert.EqualError(t, err, "queue is closed")
	case <-time.After(2 * time.Second):
		t.Fatal("blocked publisher was not released")
	}
}
