package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/lid-trainer/backend/internal/domain/question"
)

// ── Request / Response types ────────────────────────────────────────────────

type MistakeCategory struct {
	Category string `json:"category" example:"Politik in der Demokratie"`
	Slug     string `json:"slug" example:"politik-in-der-demokratie"`
	Count    int    `json:"count" example:"4"`
}

type MistakesResponse struct {
	Questions []question.Question `json:"questions"`
	Total     int                 `json:"total"`
}

// ── Handlers ────────────────────────────────────────────────────────────────

// listCategories returns the content categories of a language.
// @Summary      List question categories
// @Tags         Content
// @Produce      json
// @Param        lang  query     string  false  "de, en or tr"
// @Success      200   {object}  content.CategoryList
// @Failure      400   {object}  map[string]string
// @Router       /categories [get]
func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = question.Canonical
	}
	if !question.IsLanguage(lang) {
		respondError(w, http.StatusBadRequest, "unsupported language")
		return
	}

	list, err := h.content.Categories(r.Context(), lang)
	if h.handleError(w, err, "categories") {
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// listMistakes returns the deduplicated mistake pool.
// @Summary      List past mistakes
// @Tags         Mistakes
// @Produce      json
// @Param        category  query     string  false  "Category name or slug"
// @Param        tests     query     string  false  "Comma-separated result IDs"
// @Success      200       {object}  MistakesResponse
// @Router       /mistakes [get]
func (h *Handler) listMistakes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var (
		qs  []question.Question
		err error
	)
	switch {
	case q.Get("category") != "":
		qs, err = h.mistakes.MistakesByCategory(ctx, q.Get("category"))
	case q.Get("tests") != "":
		qs, err = h.mistakes.MistakesFromTests(ctx, strings.Split(q.Get("tests"), ","))
	default:
		qs, err = h.mistakes.AllMistakes(ctx)
	}
	if h.handleError(w, err, "mistakes") {
		return
	}
	if qs == nil {
		qs = []question.Question{}
	}
	respondJSON(w, http.StatusOK, MistakesResponse{Questions: qs, Total: len(qs)})
}

// mistakeCategories counts mistakes per category for the practice picker.
// @Summary      Mistakes per category
// @Tags         Mistakes
// @Produce      json
// @Success      200  {array}  MistakeCategory
// @Router       /mistakes/categories [get]
func (h *Handler) mistakeCategories(w http.ResponseWriter, r *http.Request) {
	counts, err := h.mistakes.CategoryCounts(r.Context())
	if h.handleError(w, err, "mistakes") {
		return
	}

	out := make([]MistakeCategory, 0, len(counts))
	for name, n := range counts {
		out = append(out, MistakeCategory{Category: name, Slug: question.Slug(name), Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	respondJSON(w, http.StatusOK, out)
}
