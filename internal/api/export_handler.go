package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/lid-trainer/backend/internal/domain/preferences"
	"github.com/lid-trainer/backend/internal/domain/testresult"
)

// ── Request / Response types ────────────────────────────────────────────────

type ExportData struct {
	Version     string                       `json:"version"`
	ExportedAt  string                       `json:"exported_at"`
	Preferences *preferences.UserPreferences `json:"preferences,omitempty"`
	Results     []*testresult.TestResult     `json:"results"`
}

type ImportResult struct {
	ResultsImported int `json:"results_imported"`
	ResultsSkipped  int `json:"results_skipped"`
}

// ── Handlers ────────────────────────────────────────────────────────────────

// exportAll downloads the learning progress as one JSON document.
// @Summary      Export progress
// @Tags         Export
// @Produce      json
// @Success      200  {object}  ExportData
// @Router       /export [get]
func (h *Handler) exportAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	results, err := h.results.List(ctx)
	if h.handleError(w, err, "results") {
		return
	}
	prefs, err := h.preferences.Get(ctx)
	if h.handleError(w, err, "preferences") {
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="lid-trainer-export.json"`)
	respondJSON(w, http.StatusOK, ExportData{
		Version:     "1.0",
		ExportedAt:  time.Now().UTC().Format(time.RFC3339),
		Preferences: prefs,
		Results:     results,
	})
}

// importAll restores an export. Results that already exist are overwritten;
// inconsistent records are skipped.
// @Summary      Import progress
// @Tags         Export
// @Accept       json
// @Produce      json
// @Param        body  body      ExportData  true  "Export document"
// @Success      200   {object}  ImportResult
// @Failure      400   {object}  map[string]string
// @Failure      507   {object}  map[string]string
// @Router       /import [post]
func (h *Handler) importAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var data ExportData
	if !decodeJSON(w, r, &data) {
		return
	}

	var out ImportResult
	for _, res := range data.Results {
		if res == nil || res.ID == "" || !res.Consistent() {
			out.ResultsSkipped++
			continue
		}
		if h.handleError(w, h.results.Save(ctx, res), "result") {
			return
		}
		out.ResultsImported++
	}

	if data.Preferences != nil {
		if err := data.Preferences.Validate(); err != nil {
			h.logger.Warn("skipping imported preferences", zap.Error(err))
		} else if h.handleError(w, h.preferences.Save(ctx, data.Preferences), "preferences") {
			return
		}
	}

	h.logger.Info("progress imported",
		zap.Int("imported", out.ResultsImported),
		zap.Int("skipped", out.ResultsSkipped),
	)
	respondJSON(w, http.StatusOK, out)
}
