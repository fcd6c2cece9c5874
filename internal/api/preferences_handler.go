package api

import (
	"net/http"

	"github.com/lid-trainer/backend/internal/domain/preferences"
)

// ── Request / Response types ────────────────────────────────────────────────

type UpdatePreferencesRequest struct {
	Mode     *string `json:"appMode,omitempty" example:"exam"`
	Language *string `json:"language,omitempty" example:"en"`
	Theme    *string `json:"theme,omitempty" example:"dark"`
}

type RandomizationRequest struct {
	Enabled bool `json:"enabled"`
}

// ── Handlers ────────────────────────────────────────────────────────────────

// GET /preferences
func (h *Handler) getPreferences(w http.ResponseWriter, r *http.Request) {
	p, err := h.preferences.Get(r.Context())
	if h.handleError(w, err, "preferences") {
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// updatePreferences changes the given fields and keeps the rest.
// @Summary      Update preferences
// @Tags         Preferences
// @Accept       json
// @Produce      json
// @Param        body  body      UpdatePreferencesRequest  true  "Fields to change"
// @Success      200   {object}  preferences.UserPreferences
// @Failure      400   {object}  map[string]string
// @Router       /preferences [put]
func (h *Handler) updatePreferences(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req UpdatePreferencesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.preferences.Get(ctx)
	if h.handleError(w, err, "preferences") {
		return
	}
	if req.Mode != nil {
		p.Mode = preferences.Mode(*req.Mode)
	}
	if req.Language != nil {
		p.Language = *req.Language
	}
	if req.Theme != nil {
		p.Theme = *req.Theme
	}
	if err := p.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.handleError(w, h.preferences.Save(ctx, p), "preferences") {
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// PUT /preferences/randomization
func (h *Handler) setRandomization(w http.ResponseWriter, r *http.Request) {
	var req RandomizationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if h.handleError(w, h.preferences.SetRandomization(r.Context(), req.Enabled), "preferences") {
		return
	}
	respondJSON(w, http.StatusOK, req)
}

// GET /preferences/filters
func (h *Handler) getFilters(w http.ResponseWriter, r *http.Request) {
	f, err := h.preferences.Filters(r.Context())
	if h.handleError(w, err, "filters") {
		return
	}
	respondJSON(w, http.StatusOK, f)
}

// PUT /preferences/filters
func (h *Handler) saveFilters(w http.ResponseWriter, r *http.Request) {
	var f preferences.Filters
	if !decodeJSON(w, r, &f) {
		return
	}
	if h.handleError(w, h.preferences.SaveFilters(r.Context(), f), "filters") {
		return
	}
	respondJSON(w, http.StatusOK, f)
}

// GET /preferences/browse?scope=by/all
func (h *Handler) getBrowsePosition(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		scope = "all"
	}
	pos, err := h.preferences.BrowsePosition(r.Context(), scope)
	if h.handleError(w, err, "browse position") {
		return
	}
	respondJSON(w, http.StatusOK, pos)
}
