package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dvloznov/pocket-ledger/internal/api/middleware"
	"github.com/dvloznov/pocket-ledger/internal/backup"
	"github.com/dvloznov/pocket-ledger/internal/jobs"
	"github.com/rs/zerolog"
)

// SnapshotLister lists stored snapshots.
type SnapshotLister interface {
	List(ctx context.Context) ([]backup.ObjectInfo, error)
}

// BackupsHandler queues snapshot jobs and reports their progress.
type BackupsHandler struct {
	snapshots SnapshotLister
	publisher jobs.Publisher
	store     jobs.JobStore
	log       zerolog.Logger
}

// NewBackupsHandler creates a new backups handler.
func NewBackupsHandler(snapshots SnapshotLister, publisher jobs.Publisher, store jobs.JobStore, log zerolog.Logger) *BackupsHandler {
	return &BackupsHandler{
		snapshots: snapshots,
		publisher: publisher,
		store:     store,
		log:       log,
	}
}

// Register mounts the backup and job routes on mux.
func (h *BackupsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/backups", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.ListSnapshots(w, r)
		case http.MethodPost:
			h.EnqueueBackup(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/backups/restore", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.EnqueueRestore(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		h.GetJob(w, r, jobID)
	})
}

// ListSnapshots handles GET /api/backups
func (h *BackupsHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	objects, err := h.snapshots.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list snapshots")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list snapshots")
		return
	}
	if objects == nil {
		objects = []backup.ObjectInfo{}
	}
	middleware.WriteJSON(w, http.StatusOK, objects)
}

// EnqueueBackup handles POST /api/backups
func (h *BackupsHandler) EnqueueBackup(w http.ResponseWriter, r *http.Request) {
	h.enqueue(w, r, &jobs.SnapshotJob{Kind: jobs.JobKindBackup})
}

// EnqueueRestore handles POST /api/backups/restore
func (h *BackupsHandler) EnqueueRestore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Snapshot string `json:"snapshot"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !strings.HasPrefix(req.Snapshot, backup.SnapshotPrefix) {
		middleware.WriteError(w, http.StatusBadRequest, "snapshot must name an object under "+backup.SnapshotPrefix)
		return
	}
	h.enqueue(w, r, &jobs.SnapshotJob{Kind: jobs.JobKindRestore, Snapshot: req.Snapshot})
}

func (h *BackupsHandler) enqueue(w http.ResponseWriter, r *http.Request, job *jobs.SnapshotJob) {
	if err := h.publisher.Publish(r.Context(), job); err != nil {
		h.log.Error().Err(err).Str("kind", string(job.Kind)).Msg("Failed to enqueue snapshot job")
		middleware.WriteError(w, http.StatusServiceUnavailable, "Failed to enqueue job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("kind", string(job.Kind)).Msg("Snapshot job enqueued")
	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(jobs.JobStatusPending),
	})
}

// ListJobs handles GET /api/jobs?kind=&status=&limit=
func (h *BackupsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := jobs.JobFilter{
		Kind:   jobs.JobKind(q.Get("kind")),
		Status: jobs.JobStatus(q.Get("status")),
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		filter.Limit = limit
	}

	list, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, list)
}

// GetJob handles GET /api/jobs/{id}
func (h *BackupsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if errors.Is(err, jobs.ErrJobNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}
