package server

import (
	"encoding/json"
	"net/http"
)

// NewHTTPHandler returns an http.Handler with all routes registered. The
// authenticator resolves the caller of every request; nil selects
// development mode (X-User-ID header).
func (s *PresetsServer) NewHTTPHandler(auth *Authenticator) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/presets", s.handleSavePreset)
	mux.HandleFunc("GET /v1/presets/{id}", s.handleGetPreset)
	mux.HandleFunc("PUT /v1/presets/{id}/visibility", s.handleSetVisibility)
	mux.HandleFunc("DELETE /v1/presets/{id}", s.handleDeletePreset)
	mux.HandleFunc("POST /v1/presets/{id}/reactions", s.handleToggleReaction)
	mux.HandleFunc("GET /v1/presets/{id}/events", s.handleGetEvents)
	mux.HandleFunc("GET /v1/tools/{tool}/presets/mine", s.handleListOwned)
	mux.HandleFunc("GET /v1/tools/{tool}/presets/public", s.handleListPublic)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	return LoggingMiddleware(IdentityMiddleware(auth, mux))
}

// handleHealth handles GET /v1/health.
func (s *PresetsServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
