package api

import "net/http"

func (s *Server) handleParseStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"queue_depth": s.orchestrator.QueueDepth(),
		"stats":       s.orchestrator.Stats().Snapshot(),
	})
}
