package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/lid-trainer/backend/internal/domain/question"
	"github.com/lid-trainer/backend/internal/domain/testsession"
	"github.com/lid-trainer/backend/internal/mistakes"
	"github.com/lid-trainer/backend/internal/service"
)

// ── Request / Response types ────────────────────────────────────────────────

type CreateSessionRequest struct {
	State         string `json:"state" example:"BY"`
	QuestionCount int    `json:"question_count" example:"33"`
	Language      string `json:"language" example:"de"`
	Seed          *int64 `json:"seed,omitempty"`
}

type CreatePracticeSessionRequest struct {
	Type         string   `json:"type" example:"all"`
	Category     string   `json:"category,omitempty"`
	TestIDs      []string `json:"test_ids,omitempty"`
	MaxQuestions int      `json:"max_questions,omitempty" example:"33"`
	Language     string   `json:"language,omitempty" example:"de"`
	Seed         *int64   `json:"seed,omitempty"`
}

type SubmitAnswerRequest struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer" example:"b"`
}

func (r *SubmitAnswerRequest) Validate() error {
	if r.QuestionID == "" {
		return errors.New("question_id is required")
	}
	if _, err := question.ParseOption(r.Answer); err != nil {
		return err
	}
	return nil
}

type NavigateRequest struct {
	Index *int `json:"index"`
}

func (r *NavigateRequest) Validate() error {
	if r.Index == nil {
		return errors.New("index is required")
	}
	return nil
}

type SaveProgressRequest struct {
	Answers              map[string]question.Option `json:"answers"`
	CurrentQuestionIndex int                        `json:"current_question_index"`
}

type CountdownResponse struct {
	SessionID        string             `json:"session_id"`
	Status           testsession.Status `json:"status"`
	RemainingSeconds int                `json:"remaining_seconds"`
	Expired          bool               `json:"expired"`
}

// ── Handlers ────────────────────────────────────────────────────────────────

// createSession starts a new exam session.
// @Summary      Start an exam session
// @Description  Samples questions for a new session. Only one session may be active or paused at a time.
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        body  body      CreateSessionRequest  true  "Session options"
// @Success      201   {object}  testsession.TestSession
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]any  "another session is open"
// @Failure      507   {object}  map[string]string
// @Router       /sessions [post]
func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	s, err := h.manager.CreateSession(r.Context(), testsession.SessionConfig{
		State:         req.State,
		QuestionCount: req.QuestionCount,
		Language:      req.Language,
		Seed:          req.Seed,
	})
	if h.handleError(w, err, "session") {
		return
	}
	respondJSON(w, http.StatusCreated, s)
}

// createPracticeSession starts a session built from past mistakes.
// @Summary      Start a mistake-practice session
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        body  body      CreatePracticeSessionRequest  true  "Practice options"
// @Success      201   {object}  testsession.TestSession
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]any
// @Failure      422   {object}  map[string]string  "no mistakes recorded"
// @Router       /sessions/practice [post]
func (h *Handler) createPracticeSession(w http.ResponseWriter, r *http.Request) {
	var req CreatePracticeSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	s, err := h.manager.CreateMistakePracticeSession(r.Context(), mistakes.Options{
		Type:         testsession.PracticeType(req.Type),
		Category:     req.Category,
		TestIDs:      req.TestIDs,
		MaxQuestions: req.MaxQuestions,
		Seed:         req.Seed,
	}, req.Language)
	if h.handleError(w, err, "session") {
		return
	}
	respondJSON(w, http.StatusCreated, s)
}

// GET /sessions/active
func (h *Handler) activeSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.ActiveSession(r.Context())
	if h.handleError(w, err, "active session") {
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// GET /sessions/{sessionID}
func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.GetSession(r.Context(), r.PathValue("sessionID"))
	if h.handleError(w, err, "session") {
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// saveProgress is the auto-save sink of browser clients.
// @Summary      Save session progress
// @Description  Replaces the answers and position of an open session. Last write wins.
// @Tags         Sessions
// @Accept       json
// @Param        sessionID  path  string               true  "Session ID"
// @Param        body       body  SaveProgressRequest  true  "Working copy"
// @Success      204
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]any
// @Router       /sessions/{sessionID}/progress [put]
func (h *Handler) saveProgress(w http.ResponseWriter, r *http.Request) {
	var req SaveProgressRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	working := &testsession.TestSession{
		ID:                   r.PathValue("sessionID"),
		Answers:              req.Answers,
		CurrentQuestionIndex: req.CurrentQuestionIndex,
	}
	if h.handleError(w, h.manager.SaveProgress(r.Context(), working), "session") {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// submitAnswer records one answer.
// @Summary      Answer a question
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        sessionID  path      string               true  "Session ID"
// @Param        body       body      SubmitAnswerRequest  true  "Answer"
// @Success      200        {object}  testsession.TestSession
// @Failure      400        {object}  map[string]string
// @Failure      404        {object}  map[string]string
// @Failure      409        {object}  map[string]any  "session is not active"
// @Router       /sessions/{sessionID}/answers [post]
func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req SubmitAnswerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	opt, _ := question.ParseOption(req.Answer)

	s, err := h.manager.SubmitAnswer(r.Context(), r.PathValue("sessionID"), req.QuestionID, opt)
	if h.handleError(w, err, "session") {
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// POST /sessions/{sessionID}/navigate
func (h *Handler) navigate(w http.ResponseWriter, r *http.Request) {
	var req NavigateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	s, err := h.manager.NavigateToQuestion(r.Context(), r.PathValue("sessionID"), *req.Index)
	if h.handleError(w, err, "session") {
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// POST /sessions/{sessionID}/pause
func (h *Handler) pauseSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.PauseSession(r.Context(), r.PathValue("sessionID"))
	if h.handleError(w, err, "session") {
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// POST /sessions/{sessionID}/resume
func (h *Handler) resumeSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.ResumeSession(r.Context(), r.PathValue("sessionID"))
	if h.handleError(w, err, "session") {
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// completeSession scores the session.
// @Summary      Complete a session
// @Description  Scores the session and stores the result. Completing twice returns the same result.
// @Tags         Sessions
// @Produce      json
// @Param        sessionID  path      string  true  "Session ID"
// @Success      200        {object}  testresult.TestResult
// @Failure      404        {object}  map[string]string
// @Failure      409        {object}  map[string]any
// @Failure      507        {object}  map[string]string
// @Router       /sessions/{sessionID}/complete [post]
func (h *Handler) completeSession(w http.ResponseWriter, r *http.Request) {
	res, err := h.manager.CompleteSession(r.Context(), r.PathValue("sessionID"))
	if h.handleError(w, err, "session") {
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// POST /sessions/{sessionID}/abandon
func (h *Handler) abandonSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.AbandonSession(r.Context(), r.PathValue("sessionID"))
	if h.handleError(w, err, "session") {
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// validateSession reports whether the session can be submitted.
// @Summary      Check a session before submission
// @Tags         Sessions
// @Produce      json
// @Param        sessionID  path      string  true  "Session ID"
// @Success      200        {object}  service.SubmissionCheck
// @Router       /sessions/{sessionID}/validation [get]
func (h *Handler) validateSession(w http.ResponseWriter, r *http.Request) {
	check, err := h.manager.ValidateSessionForSubmission(r.Context(), r.PathValue("sessionID"))
	if h.handleError(w, err, "session") {
		return
	}
	respondJSON(w, http.StatusOK, check)
}

// GET /sessions/{sessionID}/countdown
func (h *Handler) countdown(w http.ResponseWriter, r *http.Request) {
	c, err := h.manager.Countdown(r.Context(), r.PathValue("sessionID"))
	if h.handleError(w, err, "session") {
		return
	}
	respondJSON(w, http.StatusOK, countdownResponse(c))
}

func countdownResponse(c *service.CountdownStatus) CountdownResponse {
	return CountdownResponse{
		SessionID:        c.SessionID,
		Status:           c.Status,
		RemainingSeconds: int(c.Remaining.Round(time.Second) / time.Second),
		Expired:          c.Expired,
	}
}
