package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/me/clustersim/pkg/model"
)

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	opts, apiErr := listOptions(r)
	if apiErr != nil {
		respondError(w, reqID, http.StatusBadRequest, apiErr)
		return
	}

	var filter model.JobStatus
	if v := r.URL.Query().Get("state"); v != "" {
		st, err := model.ParseJobStatus(v)
		if err != nil {
			respondError(w, reqID, http.StatusBadRequest, model.NewValidationError(err.Error(),
				model.FieldError{Field: "state", Message: "must be pending, running or completed"}))
			return
		}
		filter = st
	}

	status := s.loop.Status()
	jobs := make([]model.RunningJob, 0, len(status.Pending)+len(status.Running)+len(status.Completed))
	if filter == "" || filter == model.JobStatusPending {
		for _, j := range status.Pending {
			jobs = append(jobs, model.RunningJob{Job: j})
		}
	}
	if filter == "" || filter == model.JobStatusRunning {
		jobs = append(jobs, status.Running...)
	}
	if filter == "" || filter == model.JobStatusCompleted {
		for _, j := range status.Completed {
			jobs = append(jobs, model.RunningJob{Job: j})
		}
	}

	total := len(jobs)
	start := min(opts.Offset, total)
	end := min(start+opts.Limit, total)
	respondList(w, reqID, jobs[start:end], opts.Page(total))
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req model.JobRequest
	if apiErr := decodeBody(r, &req, false); apiErr != nil {
		respondError(w, reqID, http.StatusBadRequest, apiErr)
		return
	}
	job, err := s.loop.AddJob(req)
	if err != nil {
		respondErr(w, reqID, err)
		return
	}
	respondCreated(w, reqID, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	raw := chi.URLParam(r, "id")

	id, err := strconv.Atoi(raw)
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid job id",
			model.FieldError{Field: "id", Message: "must be an integer"}))
		return
	}
	job, ok := s.loop.Job(id)
	if !ok {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("job", id))
		return
	}
	respondOK(w, reqID, job)
}
