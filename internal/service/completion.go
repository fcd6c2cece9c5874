// internal/service/completion.go
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/lid-trainer/backend/internal/domain/question"
	"github.com/lid-trainer/backend/internal/domain/testresult"
	"github.com/lid-trainer/backend/internal/domain/testsession"
	"github.com/lid-trainer/backend/internal/events"
	"github.com/lid-trainer/backend/internal/id"
	"github.com/lid-trainer/backend/internal/repository"
	"github.com/lid-trainer/backend/internal/scoring"
)

// MinPlausibleDuration is the elapsed time below which a submission is
// flagged as suspiciously fast.
const MinPlausibleDuration = 60 * time.Second

// CompleteSession scores the session and stores its result. Completing a
// session that is already completed returns the stored result.
func (m *Manager) CompleteSession(ctx context.Context, sessionID string) (*testresult.TestResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.load(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		// retention may prune a completed session while its result is kept
		if res, ferr := m.results.FindBySession(ctx, sessionID); ferr == nil {
			return res, nil
		}
	}
	if err != nil {
		return nil, err
	}

	existing, err := m.results.FindBySession(ctx, s.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	switch {
	case s.Status == testsession.StatusCompleted && existing != nil:
		return existing, nil
	case s.Status == testsession.StatusCompleted:
		// the session was marked completed but its result never landed
		end := m.now()
		if s.EndTime != nil {
			end = *s.EndTime
		}
		res := scoring.Score(s, end).Result(id.GenerateID())
		if err := m.results.Save(ctx, res); err != nil {
			return nil, err
		}
		m.logger.Warn("rebuilt missing result", zap.String("session", s.ID), zap.String("result", res.ID))
		return res, nil
	case s.Status != testsession.StatusActive:
		return nil, conflict("complete", s, testsession.StatusActive)
	case existing != nil:
		// a previous attempt stored the result but not the status change
		if err := m.finish(ctx, s, existing.CompletedAt); err != nil {
			return nil, err
		}
		m.pruneCorrected(ctx, s, existing.CorrectAnswers)
		return existing, nil
	}

	now := m.now()
	snap := scoring.Score(s, now)
	res := snap.Result(id.GenerateID())

	if err := m.results.Save(ctx, res); err != nil {
		return nil, err
	}
	if err := m.finish(ctx, s, now); err != nil {
		return nil, err
	}
	m.pruneCorrected(ctx, s, snap.Correct)

	m.logger.Info("session completed",
		zap.String("session", s.ID),
		zap.String("result", res.ID),
		zap.Int("score", res.Score),
		zap.Int("total", res.TotalQuestions),
		zap.Bool("passed", res.Passed),
		zap.Duration("elapsed", snap.Timing.Elapsed),
	)
	m.metrics.SessionCompleted(string(res.Type), res.Passed)
	m.publish(ctx, events.NewSessionCompletedEvent(s.ID, res.ID, string(res.Type), res.Score, res.Passed))
	return res, nil
}

// pruneCorrected drops the questions answered correctly in a mistake
// practice session from earlier results. It runs only after the practice
// result is stored and the session is completed, so a failed completion
// leaves the mistake history untouched.
func (m *Manager) pruneCorrected(ctx context.Context, s *testsession.TestSession, correct []question.Question) {
	if !s.IsMistakePractice() || len(correct) == 0 {
		return
	}
	ids := make([]string, len(correct))
	for i, q := range correct {
		ids[i] = q.ID
	}
	if _, err := m.mistakes.RemoveCorrectlyAnswered(ctx, ids); err != nil {
		m.logger.Warn("mistake pool only partially updated", zap.String("session", s.ID), zap.Error(err))
	}
}

// finish marks the session completed and drops the shared seed so the
// next session draws fresh questions.
func (m *Manager) finish(ctx context.Context, s *testsession.TestSession, end time.Time) error {
	if err := s.Transition(testsession.StatusCompleted, end); err != nil {
		return err
	}
	if err := m.save(ctx, s); err != nil {
		return err
	}
	if m.prefs != nil {
		if err := m.prefs.ClearSeed(ctx); err != nil {
			m.logger.Warn("failed to clear shared seed", zap.Error(err))
		}
	}
	return nil
}

type IssueCode string

const (
	IssueSessionMissing  IssueCode = "session_missing"
	IssueWrongStatus     IssueCode = "wrong_status"
	IssueUnanswered      IssueCode = "unanswered_questions"
	IssueTooFast         IssueCode = "too_fast"
	IssueTimeLimitPassed IssueCode = "time_limit_passed"
)

type Issue struct {
	Code  IssueCode `json:"code"`
	Count int       `json:"count,omitempty"`
}

// SubmissionCheck is the pre-flight verdict for completing a session.
// Errors mean completion will fail; warnings only merit a confirmation.
type SubmissionCheck struct {
	SessionID string  `json:"sessionId"`
	Errors    []Issue `json:"errors"`
	Warnings  []Issue `json:"warnings"`
}

func (c *SubmissionCheck) OK() bool {
	return len(c.Errors) == 0
}

// ValidateSessionForSubmission inspects a session without changing it.
func (m *Manager) ValidateSessionForSubmission(ctx context.Context, sessionID string) (*SubmissionCheck, error) {
	check := &SubmissionCheck{SessionID: sessionID, Errors: []Issue{}, Warnings: []Issue{}}

	s, err := m.sessions.Get(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		check.Errors = append(check.Errors, Issue{Code: IssueSessionMissing})
		return check, nil
	}
	if err != nil {
		return nil, err
	}

	if s.Status != testsession.StatusActive {
		check.Errors = append(check.Errors, Issue{Code: IssueWrongStatus})
	}
	if left := len(s.Questions) - s.AnsweredCount(); left > 0 {
		check.Warnings = append(check.Warnings, Issue{Code: IssueUnanswered, Count: left})
	}
	now := m.now()
	if s.Elapsed(now) < MinPlausibleDuration {
		check.Warnings = append(check.Warnings, Issue{Code: IssueTooFast})
	}
	if s.Remaining(now) == 0 {
		check.Warnings = append(check.Warnings, Issue{Code: IssueTimeLimitPassed})
	}
	return check, nil
}
