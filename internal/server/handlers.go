package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// handleHealth reports liveness. It answers even when the fund is closed.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.container.Supervisor.Status()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "healthy",
		"service":        "fundcore",
		"fund_id":        status.FundID,
		"fund_state":     status.State,
		"uptime_seconds": time.Since(s.startedAt).Seconds(),
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
