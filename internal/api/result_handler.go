package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/lid-trainer/backend/internal/domain/testresult"
	"github.com/lid-trainer/backend/internal/scoring"
)

// listResults lists stored results, newest first.
// @Summary      List results
// @Tags         Results
// @Produce      json
// @Param        passed  query     bool    false  "Only passed or failed results"
// @Param        type    query     string  false  "normal or mistake-practice"
// @Param        from    query     string  false  "RFC 3339 lower bound of completion time"
// @Param        to      query     string  false  "RFC 3339 upper bound of completion time"
// @Param        limit   query     int     false  "Newest n results"
// @Success      200     {array}   testresult.TestResult
// @Failure      400     {object}  map[string]string
// @Router       /results [get]
func (h *Handler) listResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	results, err := h.results.List(ctx)
	if h.handleError(w, err, "results") {
		return
	}

	if v := q.Get("passed"); v != "" {
		passed, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "passed must be true or false")
			return
		}
		results = keep(results, func(res *testresult.TestResult) bool { return res.Passed == passed })
	}
	if v := q.Get("type"); v != "" {
		t := testresult.Type(v)
		results = keep(results, func(res *testresult.TestResult) bool { return res.Type == t })
	}
	if q.Get("from") != "" || q.Get("to") != "" {
		from, to, ok := parseRange(q.Get("from"), q.Get("to"))
		if !ok {
			respondError(w, http.StatusBadRequest, "from and to must be RFC 3339 timestamps")
			return
		}
		results = keep(results, func(res *testresult.TestResult) bool {
			return !res.CompletedAt.Before(from) && !res.CompletedAt.After(to)
		})
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		if n < len(results) {
			results = results[:n]
		}
	}

	respondJSON(w, http.StatusOK, results)
}

func keep(results []*testresult.TestResult, fn func(*testresult.TestResult) bool) []*testresult.TestResult {
	out := make([]*testresult.TestResult, 0, len(results))
	for _, res := range results {
		if fn(res) {
			out = append(out, res)
		}
	}
	return out
}

func parseRange(fromStr, toStr string) (time.Time, time.Time, bool) {
	from := time.Time{}
	to := time.Now().Add(24 * time.Hour)
	var err error
	if fromStr != "" {
		if from, err = time.Parse(time.RFC3339, fromStr); err != nil {
			return from, to, false
		}
	}
	if toStr != "" {
		if to, err = time.Parse(time.RFC3339, toStr); err != nil {
			return from, to, false
		}
	}
	return from, to, true
}

// GET /results/{resultID}
func (h *Handler) getResult(w http.ResponseWriter, r *http.Request) {
	res, err := h.manager.GetResult(r.Context(), r.PathValue("resultID"))
	if h.handleError(w, err, "result") {
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// resultsSummary aggregates all stored results.
// @Summary      Progress summary
// @Tags         Results
// @Produce      json
// @Success      200  {object}  scoring.Summary
// @Router       /results/summary [get]
func (h *Handler) resultsSummary(w http.ResponseWriter, r *http.Request) {
	results, err := h.results.List(r.Context())
	if h.handleError(w, err, "results") {
		return
	}
	respondJSON(w, http.StatusOK, scoring.Summarize(results))
}
