package testsession

import (
	"fmt"
	"time"

	"github.com/lid-trainer/backend/internal/domain/question"
	"github.com/lid-trainer/backend/internal/id"
)

const (
	// QuestionCount is the size of a normal exam.
	QuestionCount = 33
	// TimeLimit is the fixed exam duration measured from StartTime.
	TimeLimit = 60 * time.Minute
	// StaleAfter is how long an unfinished session may sit before cleanup abandons it.
	StaleAfter = 24 * time.Hour
)

// Sentinel values for StateFilter when the session is not tied to a state.
const (
	FilterGeneral         = "general"
	FilterMistakePractice = "mistake-practice"
)

type PracticeType string

const (
	PracticeAll      PracticeType = "all"
	PracticeCategory PracticeType = "category"
	PracticeTests    PracticeType = "tests"
)

func (t PracticeType) Valid() bool {
	switch t {
	case PracticeAll, PracticeCategory, PracticeTests:
		return true
	}
	return false
}

// MistakeProvenance records where the questions of a mistake-practice session came from.
type MistakeProvenance struct {
	SourceTestIDs []string     `json:"sourceTestIds,omitempty"`
	Type          PracticeType `json:"practiceType"`
	Category      string       `json:"category,omitempty"`
	TotalMistakes int          `json:"totalMistakes"`
}

// TestSession is one attempt at a fixed, ordered set of questions.
type TestSession struct {
	ID                   string                     `json:"id"`
	StateFilter          string                     `json:"state"`
	Language             string                     `json:"language"`
	Questions            []question.Question        `json:"questions"`
	Answers              map[string]question.Option `json:"answers"`
	StartTime            time.Time                  `json:"startTime"`
	EndTime              *time.Time                 `json:"endTime,omitempty"`
	UpdatedAt            time.Time                  `json:"updatedAt"`
	CurrentQuestionIndex int                        `json:"currentQuestionIndex"`
	Status               Status                     `json:"status"`
	Seed                 *int64                     `json:"seed,omitempty"`
	Practice             *MistakeProvenance         `json:"mistakePractice,omitempty"`
}

// New creates an active session over questions starting at now.
func New(stateFilter, language string, questions []question.Question, now time.Time) *TestSession {
	if stateFilter == "" {
		stateFilter = FilterGeneral
	}
	return &TestSession{
		ID:          id.GenerateID(),
		StateFilter: stateFilter,
		Language:    language,
		Questions:   questions,
		Answers:     make(map[string]question.Option),
		StartTime:   now,
		UpdatedAt:   now,
		Status:      StatusActive,
	}
}

// NewMistakePractice creates an active session built from historical mistakes.
func NewMistakePractice(language string, questions []question.Question, provenance MistakeProvenance, now time.Time) *TestSession {
	s := New(FilterMistakePractice, language, questions, now)
	s.Practice = &provenance
	return s
}

// IsMistakePractice reports whether the session was derived from mistakes.
func (s *TestSession) IsMistakePractice() bool {
	return s.Practice != nil
}

// HasQuestion reports whether questionID belongs to this session.
func (s *TestSession) HasQuestion(questionID string) bool {
	for i := range s.Questions {
		if s.Questions[i].ID == questionID {
			return true
		}
	}
	return false
}

// Answer records (or overwrites) the answer to a question.
func (s *TestSession) Answer(questionID string, answer question.Option) error {
	if !s.HasQuestion(questionID) {
		return fmt.Errorf("question %s is not part of session %s", questionID, s.ID)
	}
	if s.Answers == nil {
		s.Answers = make(map[string]question.Option)
	}
	s.Answers[questionID] = answer
	return nil
}

// Navigate moves the cursor; index must be within [0, len(Questions)).
func (s *TestSession) Navigate(index int) error {
	if index < 0 || index >= len(s.Questions) {
		return fmt.Errorf("question index %d outside [0, %d)", index, len(s.Questions))
	}
	s.CurrentQuestionIndex = index
	return nil
}

// Transition moves the session to next if the status machine allows it.
func (s *TestSession) Transition(next Status, now time.Time) error {
	if !s.Status.CanTransition(next) {
		return fmt.Errorf("cannot move session from %s to %s", s.Status, next)
	}
	s.Status = next
	if next.Terminal() {
		end := now
		s.EndTime = &end
	}
	s.UpdatedAt = now
	return nil
}

// AnsweredCount is the number of questions with a recorded answer.
func (s *TestSession) AnsweredCount() int {
	n := 0
	for i := range s.Questions {
		if _, ok := s.Answers[s.Questions[i].ID]; ok {
			n++
		}
	}
	return n
}

// Elapsed returns the wall-clock time spent since StartTime, capped at EndTime.
func (s *TestSession) Elapsed(now time.Time) time.Duration {
	end := now
	if s.EndTime != nil {
		end = *s.EndTime
	}
	if end.Before(s.StartTime) {
		return 0
	}
	return end.Sub(s.StartTime)
}

// Remaining is the exam time left; it never goes below zero.
func (s *TestSession) Remaining(now time.Time) time.Duration {
	left := TimeLimit - s.Elapsed(now)
	if left < 0 {
		return 0
	}
	return left
}

// IsStale reports whether an unfinished session started more than StaleAfter ago.
func (s *TestSession) IsStale(now time.Time) bool {
	return s.Status.Open() && now.Sub(s.StartTime) > StaleAfter
}

// Clone returns a deep copy that can be mutated without touching s.
func (s *TestSession) Clone() *TestSession {
	c := *s
	c.Questions = append([]question.Question(nil), s.Questions...)
	c.Answers = make(map[string]question.Option, len(s.Answers))
	for k, v := range s.Answers {
		c.Answers[k] = v
	}
	if s.EndTime != nil {
		end := *s.EndTime
		c.EndTime = &end
	}
	if s.Seed != nil {
		seed := *s.Seed
		c.Seed = &seed
	}
	if s.Practice != nil {
		p := *s.Practice
		p.SourceTestIDs = append([]string(nil), s.Practice.SourceTestIDs...)
		c.Practice = &p
	}
	return &c
}
