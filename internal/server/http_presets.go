package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/alfredjeanlab/presets/internal/model"
	"github.com/alfredjeanlab/presets/internal/rpc"
)

// handleSavePreset handles POST /v1/presets.
func (s *PresetsServer) handleSavePreset(w http.ResponseWriter, r *http.Request) {
	var in rpc.SavePresetRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		if model.IsValidation(err) {
			writeErr(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	preset, err := s.savePreset(r.Context(), &in)
	if err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, preset)
}

// handleGetPreset handles GET /v1/presets/{id}.
func (s *PresetsServer) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	preset, err := s.getPreset(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preset)
}

// handleSetVisibility handles PUT /v1/presets/{id}/visibility.
func (s *PresetsServer) handleSetVisibility(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IsPublic *bool `json:"is_public"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.IsPublic == nil {
		writeError(w, http.StatusBadRequest, "is_public is required")
		return
	}

	resp, err := s.setVisibility(r.Context(), &rpc.SetVisibilityRequest{
		ID:       r.PathValue("id"),
		IsPublic: *body.IsPublic,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDeletePreset handles DELETE /v1/presets/{id}.
func (s *PresetsServer) handleDeletePreset(w http.ResponseWriter, r *http.Request) {
	if err := s.deletePreset(r.Context(), r.PathValue("id")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleToggleReaction handles POST /v1/presets/{id}/reactions.
func (s *PresetsServer) handleToggleReaction(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Symbol string `json:"symbol"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := s.toggleReaction(r.Context(), &rpc.ToggleReactionRequest{
		PresetID: r.PathValue("id"),
		Symbol:   body.Symbol,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGetEvents handles GET /v1/presets/{id}/events.
func (s *PresetsServer) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	evts, err := s.getEvents(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": evts})
}

// handleListOwned handles GET /v1/tools/{tool}/presets/mine.
func (s *PresetsServer) handleListOwned(w http.ResponseWriter, r *http.Request) {
	s.handleList(w, r, model.ScopeOwned)
}

// handleListPublic handles GET /v1/tools/{tool}/presets/public.
func (s *PresetsServer) handleListPublic(w http.ResponseWriter, r *http.Request) {
	s.handleList(w, r, model.ScopePublic)
}

func (s *PresetsServer) handleList(w http.ResponseWriter, r *http.Request, scope model.Scope) {
	q := r.URL.Query()
	in := rpc.ListPresetsRequest{
		ToolID: r.PathValue("tool"),
		Cursor: q.Get("cursor"),
	}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "page must be an integer")
			return
		}
		in.Page = n
	}
	if v := q.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "page_size must be an integer")
			return
		}
		in.PageSize = n
	}

	page, err := s.listPresets(r.Context(), scope, &in)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
