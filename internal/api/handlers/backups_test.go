package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/dvloznov/pocket-ledger/internal/backup"
	"github.com/dvloznov/pocket-ledger/internal/jobs"
	"github.com/dvloznov/pocket-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/pocket-ledger/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLister struct {
	objects []backup.ObjectInfo
	err     error
}

func (m *mockLister) List(ctx context.Context) ([]backup.ObjectInfo, error) {
	return m.objects, m.err
}

// newBackupsMux wires the handler to a queue with no workers, so published
// jobs stay pending.
func newBackupsMux(t *testing.T, lister SnapshotLister) (*http.ServeMux, *inmemory.Store) {
	t.Helper()
	store := inmemory.NewStore()
	queue := inmemory.NewQueue(8, 1, store)
	t.Cleanup(func() { _ = queue.Close() })

	mux := http.NewServeMux()
	NewBackupsHandler(lister, queue, store, logger.NewWithWriter(&bytes.Buffer{})).Register(mux)
	return mux, store
}

func TestEnqueueBackup(t *testing.T) {
	mux, store := newBackupsMux(t, &mockLister{})

	rec := do(t, mux, http.MethodPost, "/api/backups", "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	body := decode[map[string]string](t, rec)
	assert.Equal(t, "pending", body["status"])

	job, err := store.GetJob(context.Background(), body["job_id"])
	require.NoError(t, err)
	assert.Equal(t, jobs.JobKindBackup, job.Kind)

	rec = do(t, mux, http.MethodGet, "/api/jobs/"+body["job_id"], "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, body["job_id"], decode[jobs.SnapshotJob](t, rec).JobID)
}

func TestEnqueueRestore(t *testing.T) {
	mux, store := newBackupsMux(t, &mockLister{})

	rec := do(t, mux, http.MethodPost, "/api/backups/restore", `{"snapshot":"snapshots/20240101T000000Z-x.json"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	job, err := store.GetJob(context.Background(), decode[map[string]string](t, rec)["job_id"])
	require.NoError(t, err)
	assert.Equal(t, jobs.JobKindRestore, job.Kind)
	assert.Equal(t, "snapshots/20240101T000000Z-x.json", job.Snapshot)

	assert.Equal(t, http.StatusBadRequest, do(t, mux, http.MethodPost, "/api/backups/restore", `{"snapshot":"../etc"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, mux, http.MethodPost, "/api/backups/restore", `nope`).Code)
}

func TestListSnapshots(t *testing.T) {
	created := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	mux, _ := newBackupsMux(t, &mockLister{objects: []backup.ObjectInfo{{Name: "snapshots/a.json", Size: 42, Created: created}}})

	rec := do(t, mux, http.MethodGet, "/api/backups", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]backup.ObjectInfo](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "snapshots/a.json", list[0].Name)

	mux, _ = newBackupsMux(t, &mockLister{err: errors.New("bucket gone")})
	assert.Equal(t, http.StatusInternalServerError, do(t, mux, http.MethodGet, "/api/backups", "").Code)
}

func TestJobs_NotFoundAndFilters(t *testing.T) {
	mux, _ := newBackupsMux(t, &mockLister{})

	assert.Equal(t, http.StatusNotFound, do(t, mux, http.MethodGet, "/api/jobs/missing", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, mux, http.MethodGet, "/api/jobs?limit=x", "").Code)

	do(t, mux, http.MethodPost, "/api/backups", "")
	do(t, mux, http.MethodPost, "/api/backups/restore", `{"snapshot":"snapshots/a.json"}`)

	rec := do(t, mux, http.MethodGet, "/api/jobs?kind=restore", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]jobs.SnapshotJob](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, jobs.JobKindRestore, list[0].Kind)
}

func TestEnqueue_ClosedQueue(t *testing.T) {
	store := inmemory.NewStore()
	queue := inmemory.NewQueue(1, 1, store)
	require.NoError(t, queue.Close())

	mux := http.NewServeMux()
	NewBackupsHandler(&mockLister{}, queue, store, logger.NewWithWriter(&bytes.Buffer{})).Register(mux)

	assert.Equal(t, http.StatusServiceUnavailable, do(t, mux, http.MethodPost, "/api/backups", "").Code)
}
