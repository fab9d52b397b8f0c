package server

import (
	"net/http"

	"github.com/me/clustersim/pkg/model"
)

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, s.loop.Status().Nodes)
}

func (s *Server) handleCreateNode(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req model.NodeRequest
	if apiErr := decodeBody(r, &req, false); apiErr != nil {
		respondError(w, reqID, http.StatusBadRequest, apiErr)
		return
	}
	node, err := s.loop.AddNode(req.CPU, req.RAM)
	if err != nil {
		respondErr(w, reqID, err)
		return
	}
	respondCreated(w, reqID, node)
}
