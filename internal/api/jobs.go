package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Sunzheini/AegisAI-sub000/internal/ingress"
	"github.com/Sunzheini/AegisAI-sub000/internal/statestore"
	"github.com/Sunzheini/AegisAI-sub000/internal/wshub"
)

// JobHandler serves the job submission, lookup and live-stream routes.
type JobHandler struct {
	submitter *ingress.Submitter
	store     *statestore.Store
	hub       *wshub.Hub
	logger    *zap.Logger
}

// NewJobHandler builds a JobHandler. hub may be nil, in which case
// Stream responds with 404: the stream endpoint is additive (§2).
func NewJobHandler(submitter *ingress.Submitter, store *statestore.Store, hub *wshub.Hub, logger *zap.Logger) *JobHandler {
	return &JobHandler{submitter: submitter, store: store, hub: hub, logger: logger.Named("api.jobs")}
}

type submitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// Submit handles POST /jobs.
func (h *JobHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req ingress.IngestionJobRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := h.submitter.Submit(r.Context(), req)
	if err != nil {
		if errors.Is(err, ingress.ErrInvalidRequest) {
			ErrBadRequest(w, err.Error())
			return
		}
		h.logger.Error("submit failed", zap.String("job_id", req.JobID), zap.Error(err))
		ErrInternal(w)
		return
	}
	if !created {
		ErrConflict(w, "job_id already submitted")
		return
	}

	Created(w, submitResponse{JobID: req.JobID, Status: "queued"})
}

// GetByID handles GET /jobs/{job_id}.
func (h *JobHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")

	state, err := h.store.Load(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, statestore.ErrNotFound) {
			ErrNotFound(w)
			return
		}
		h.logger.Error("load failed", zap.String("job_id", jobID), zap.Error(err))
		ErrInternal(w)
		return
	}

	Ok(w, state)
}

// Stream handles GET /jobs/{job_id}/stream, upgrading to a WebSocket
// connection that receives every subsequent JobState snapshot for this
// job id.
func (h *JobHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		ErrNotFound(w)
		return
	}

	jobID := chi.URLParam(r, "job_id")
	client, err := wshub.NewClient(h.hub, w, r, jobID, h.logger)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	client.Run()
}
