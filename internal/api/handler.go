// internal/api/handler.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/lid-trainer/backend/internal/content"
	"github.com/lid-trainer/backend/internal/infrastructure/metrics"
	"github.com/lid-trainer/backend/internal/mistakes"
	"github.com/lid-trainer/backend/internal/repository"
	"github.com/lid-trainer/backend/internal/sampling"
	"github.com/lid-trainer/backend/internal/service"
	"github.com/lid-trainer/backend/internal/store"
)

// Handler holds all dependencies needed by HTTP handlers.
// Instead of relying on package-level globals, every handler method
// receives its dependencies through this struct.
type Handler struct {
	manager     *service.Manager
	results     *repository.ResultRepository
	preferences *repository.PreferencesRepository
	mistakes    *mistakes.Generator
	content     *content.Source
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

type Deps struct {
	Manager     *service.Manager
	Results     *repository.ResultRepository
	Preferences *repository.PreferencesRepository
	Mistakes    *mistakes.Generator
	Content     *content.Source
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
}

// NewHandler creates a Handler with the given dependencies.
func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		manager:     d.Manager,
		results:     d.Results,
		preferences: d.Preferences,
		mistakes:    d.Mistakes,
		content:     d.Content,
		metrics:     d.Metrics,
		logger:      logger,
	}
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads the request body into v. It writes a 400 and returns
// false when the body is not valid JSON.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

type validator interface {
	Validate() error
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, v validator) bool {
	if !decodeJSON(w, r, v) {
		return false
	}
	if err := v.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// handleError maps service and storage errors onto HTTP statuses. Returns
// true if an error was handled (caller should return).
func (h *Handler) handleError(w http.ResponseWriter, err error, entity string) bool {
	if err == nil {
		return false
	}

	var conflict *service.StateConflictError
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, repository.ErrNotFound):
		respondError(w, http.StatusNotFound, entity+" not found")
	case errors.As(err, &conflict):
		respondJSON(w, http.StatusConflict, map[string]any{
			"error":   conflict.Error(),
			"session": conflict.SessionID,
			"status":  conflict.Status,
		})
	case errors.Is(err, service.ErrValidation), errors.Is(err, sampling.ErrInvalidConfig),
		errors.Is(err, mistakes.ErrInvalidOptions):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNoMistakes):
		respondError(w, http.StatusUnprocessableEntity, "there are no mistakes to practice yet")
	case store.IsQuota(err):
		h.logger.Error("storage full", zap.String("entity", entity), zap.Error(err))
		respondError(w, http.StatusInsufficientStorage, "storage is full, older results could not be pruned")
	default:
		h.logger.Error("request failed", zap.String("entity", entity), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
	return true
}
