package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, discoveryResponse{
		Name:        "clustersim API",
		Version:     "v1",
		Description: "Resource-aware job scheduling simulator",
		Endpoints: []endpointInfo{
			{"/api/v1/nodes", []string{"GET", "POST"}, "List or register resource nodes"},
			{"/api/v1/jobs", []string{"GET", "POST"}, "List jobs (?state=pending|running|completed) or submit a job"},
			{"/api/v1/jobs/{id}", []string{"GET"}, "Single job in any state"},
			{"/api/v1/tick", []string{"POST"}, "Advance the simulation by count ticks (default 1)"},
			{"/api/v1/status", []string{"GET"}, "Clock, nodes and all job stores"},
			{"/api/v1/metrics", []string{"GET"}, "Engine counters and gauges"},
			{"/api/v1/snapshots", []string{"GET", "POST"}, "List or save state snapshots"},
			{"/api/v1/snapshots/{id}", []string{"DELETE"}, "Delete a snapshot"},
			{"/api/v1/snapshots/{id}/restore", []string{"POST"}, "Replace the current state with a snapshot"},
			{"/api/v1/health", []string{"GET"}, "Server health and version"},
		},
	})
}
