// internal/api/router.go
package api

import "net/http"

func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	// Sessions
	mux.HandleFunc("POST /sessions", h.createSession)
	mux.HandleFunc("POST /sessions/practice", h.createPracticeSession)
	mux.HandleFunc("GET /sessions/active", h.activeSession)
	mux.HandleFunc("GET /sessions/{sessionID}", h.getSession)
	mux.HandleFunc("PUT /sessions/{sessionID}/progress", h.saveProgress)
	mux.HandleFunc("POST /sessions/{sessionID}/answers", h.submitAnswer)
	mux.HandleFunc("POST /sessions/{sessionID}/navigate", h.navigate)
	mux.HandleFunc("POST /sessions/{sessionID}/pause", h.pauseSession)
	mux.HandleFunc("POST /sessions/{sessionID}/resume", h.resumeSession)
	mux.HandleFunc("POST /sessions/{sessionID}/complete", h.completeSession)
	mux.HandleFunc("POST /sessions/{sessionID}/abandon", h.abandonSession)
	mux.HandleFunc("GET /sessions/{sessionID}/validation", h.validateSession)
	mux.HandleFunc("GET /sessions/{sessionID}/countdown", h.countdown)

	// Results
	mux.HandleFunc("GET /results", h.listResults)
	mux.HandleFunc("GET /results/summary", h.resultsSummary)
	mux.HandleFunc("GET /results/{resultID}", h.getResult)

	// Mistakes
	mux.HandleFunc("GET /mistakes", h.listMistakes)
	mux.HandleFunc("GET /mistakes/categories", h.mistakeCategories)

	// Content
	mux.HandleFunc("GET /categories", h.listCategories)
	mux.HandleFunc("GET /questions/{lang}/pages/{page}", h.browseQuestions)
	mux.HandleFunc("GET /questions/{lang}/{scope}/pages/{page}", h.browseQuestions)
	mux.HandleFunc("GET /questions/{lang}/{state}/{scope}/pages/{page}", h.browseQuestions)

	// Preferences
	mux.HandleFunc("GET /preferences", h.getPreferences)
	mux.HandleFunc("PUT /preferences", h.updatePreferences)
	mux.HandleFunc("PUT /preferences/randomization", h.setRandomization)
	mux.HandleFunc("GET /preferences/filters", h.getFilters)
	mux.HandleFunc("PUT /preferences/filters", h.saveFilters)
	mux.HandleFunc("GET /preferences/browse", h.getBrowsePosition)

	// Export / Import
	mux.HandleFunc("GET /export", h.exportAll)
	mux.HandleFunc("POST /import", h.importAll)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", h.metrics.Handler())
}
