package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/me/clustersim/internal/scheduler"
)

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	if s.store == nil {
		respondErr(w, reqID, scheduler.ErrNoStore)
		return
	}
	opts, apiErr := listOptions(r)
	if apiErr != nil {
		respondError(w, reqID, http.StatusBadRequest, apiErr)
		return
	}
	infos, total, err := s.store.ListSnapshots(r.Context(), opts)
	if err != nil {
		respondErr(w, reqID, err)
		return
	}
	respondList(w, reqID, infos, opts.Page(total))
}

func (s *Server) handleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req struct {
		Label string `json:"label"`
	}
	if apiErr := decodeBody(r, &req, true); apiErr != nil {
		respondError(w, reqID, http.StatusBadRequest, apiErr)
		return
	}
	info, err := s.loop.Save(r.Context(), req.Label)
	if err != nil {
		respondErr(w, reqID, err)
		return
	}
	respondCreated(w, reqID, info)
}

func (s *Server) handleRestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	info, err := s.loop.Restore(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, reqID, err)
		return
	}
	respondOK(w, reqID, info)
}

func (s *Server) handleDeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	if s.store == nil {
		respondErr(w, reqID, scheduler.ErrNoStore)
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteSnapshot(r.Context(), id); err != nil {
		respondErr(w, reqID, err)
		return
	}
	respondOK(w, reqID, map[string]any{"id": id, "deleted": true})
}
