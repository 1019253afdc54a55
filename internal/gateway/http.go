package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// handleSessions serves GET /api/sessions, the session listing for dashboards.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]interface{}{"sessions": s.registry.List()})
}

// handleSessionMessages serves GET /api/sessions/{key}/messages.
func (s *Server) handleSessionMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	key, ok := strings.CutSuffix(rest, "/messages")
	if !ok || key == "" {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	messages, err := s.registry.History(key)
	if err != nil {
		http.Error(w, `{"error":"unknown session"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]interface{}{"sessionKey": key, "messages": messages})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write json response", "error", err)
	}
}
