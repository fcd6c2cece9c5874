package testresult

import (
	"time"

	"github.com/lid-trainer/backend/internal/domain/question"
)

type Type string

const (
	TypeNormal          Type = "normal"
	TypeMistakePractice Type = "mistake-practice"
)

// CategoryStats is the per-category part of a result. Accuracy is
// Correct/Attempted as a rounded percentage, 0 when nothing was attempted.
type CategoryStats struct {
	Correct   int `json:"correct"`
	Total     int `json:"total"`
	Attempted int `json:"attempted"`
	Accuracy  int `json:"accuracy"`
}

// TestResult is the immutable scored outcome of a completed session.
// Only the mistake-pool cleanup after practice sessions rewrites Mistakes.
type TestResult struct {
	ID                  string                   `json:"id"`
	SessionID           string                   `json:"testSessionId"`
	Score               int                      `json:"score"`
	TotalQuestions      int                      `json:"totalQuestions"`
	Percentage          int                      `json:"percentage"`
	Passed              bool                     `json:"passed"`
	Mistakes            []question.Question      `json:"mistakes"`
	CorrectAnswers      []question.Question      `json:"correctAnswers"`
	CompletedAt         time.Time                `json:"completedAt"`
	State               string                   `json:"state"`
	TimeTakenSeconds    int                      `json:"timeTaken"`
	CategoryBreakdown   map[string]CategoryStats `json:"categoryBreakdown"`
	Completed           bool                     `json:"isCompleted"`
	UnansweredQuestions int                      `json:"unansweredQuestions"`
	Type                Type                     `json:"testType"`
	SourceTestIDs       []string                 `json:"sourceTestIds,omitempty"`
}

// Incorrect is the number of answered-but-wrong questions.
func (r *TestResult) Incorrect() int {
	return r.TotalQuestions - r.Score - r.UnansweredQuestions
}

// Consistent checks correct + incorrect + unanswered = total on the stored lists.
func (r *TestResult) Consistent() bool {
	return r.Score >= 0 && r.UnansweredQuestions >= 0 &&
		r.Score+len(r.Mistakes)+r.UnansweredQuestions <= r.TotalQuestions
}

// HasMistake reports whether questionID is among the result's mistakes.
func (r *TestResult) HasMistake(questionID string) bool {
	for i := range r.Mistakes {
		if r.Mistakes[i].ID == questionID {
			return true
		}
	}
	return false
}

// WithoutMistakes returns a copy of r whose mistake list excludes ids.
// The second return value is false when nothing was removed.
func (r *TestResult) WithoutMistakes(ids map[string]struct{}) (*TestResult, bool) {
	kept := make([]question.Question, 0, len(r.Mistakes))
	for _, q := range r.Mistakes {
		if _, drop := ids[q.ID]; drop {
			continue
		}
		kept = append(kept, q)
	}
	if len(kept) == len(r.Mistakes) {
		return r, false
	}
	c := *r
	c.Mistakes = kept
	return &c, true
}
