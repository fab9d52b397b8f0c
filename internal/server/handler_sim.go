package server

import (
	"net/http"

	"github.com/me/clustersim/pkg/model"
)

// maxTicksPerRequest is the largest count accepted by POST /tick.
const maxTicksPerRequest = 10000

type tickResponse struct {
	Time      int   `json:"time"`
	Ticks     int   `json:"ticks"`
	Completed []int `json:"completed"`
	Admitted  []int `json:"admitted"`
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	req := struct {
		Count int `json:"count"`
	}{Count: 1}
	if apiErr := decodeBody(r, &req, true); apiErr != nil {
		respondError(w, reqID, http.StatusBadRequest, apiErr)
		return
	}
	if req.Count < 1 || req.Count > maxTicksPerRequest {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid tick count",
			model.FieldError{Field: "count", Message: "must be between 1 and 10000"}))
		return
	}

	results, err := s.loop.Run(r.Context(), req.Count)
	resp := tickResponse{Ticks: len(results), Completed: []int{}, Admitted: []int{}}
	for _, res := range results {
		resp.Time = res.Time
		resp.Completed = append(resp.Completed, res.Completed...)
		resp.Admitted = append(resp.Admitted, res.Admitted...)
	}
	if err != nil {
		respondErr(w, reqID, err)
		return
	}
	respondOK(w, reqID, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, s.loop.Status())
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, s.loop.Metrics())
}
