package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/lid-trainer/backend/internal/content"
	"github.com/lid-trainer/backend/internal/domain/preferences"
	"github.com/lid-trainer/backend/internal/domain/question"
)

// ── Request / Response types ────────────────────────────────────────────────

type BrowsePageResponse struct {
	Scope      string              `json:"scope" example:"by/all"`
	Questions  []question.Question `json:"questions"`
	Pagination content.Pagination  `json:"pagination"`
	Language   string              `json:"language"`
}

// ── Handlers ────────────────────────────────────────────────────────────────

// browseQuestions serves one page of a question scope in study mode and
// remembers it as the browse position of that scope.
// @Summary      Browse questions
// @Tags         Content
// @Produce      json
// @Param        lang   path      string  true   "de, en or tr"
// @Param        state  path      string  false  "State code"
// @Param        scope  path      string  false  "Category slug or all"
// @Param        page   path      int     true   "Page number, from 1"
// @Success      200    {object}  BrowsePageResponse
// @Failure      400    {object}  map[string]string
// @Failure      404    {object}  map[string]string
// @Router       /questions/{lang}/{scope}/pages/{page} [get]
func (h *Handler) browseQuestions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lang := r.PathValue("lang")
	if !question.IsLanguage(lang) {
		respondError(w, http.StatusBadRequest, "unsupported language")
		return
	}
	n, err := strconv.Atoi(r.PathValue("page"))
	if err != nil || n < 1 {
		respondError(w, http.StatusBadRequest, "page must be a positive integer")
		return
	}

	scope := r.PathValue("scope")
	if scope == "" {
		scope = content.ScopeAll
	}
	if state := r.PathValue("state"); state != "" {
		if !question.IsState(strings.ToUpper(state)) {
			respondError(w, http.StatusBadRequest, "unknown state")
			return
		}
		scope = strings.ToLower(state) + "/" + scope
	}

	page, err := h.content.Page(ctx, lang, scope, n)
	if errors.Is(err, content.ErrNotFound) {
		respondError(w, http.StatusNotFound, "page not found")
		return
	}
	if h.handleError(w, err, "page") {
		return
	}

	if err := h.preferences.SaveBrowsePosition(ctx, preferences.BrowsePosition{Scope: scope, Page: n}); err != nil {
		h.logger.Warn("failed to save browse position", zap.String("scope", scope), zap.Error(err))
	}

	respondJSON(w, http.StatusOK, BrowsePageResponse{
		Scope:      scope,
		Questions:  page.Questions,
		Pagination: page.Pagination,
		Language:   lang,
	})
}
