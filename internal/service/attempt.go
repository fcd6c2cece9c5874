// internal/service/attempt.go
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lid-trainer/backend/internal/autosave"
	"github.com/lid-trainer/backend/internal/domain/question"
	"github.com/lid-trainer/backend/internal/domain/testresult"
	"github.com/lid-trainer/backend/internal/domain/testsession"
)

// Attempt is a client's working copy of an open session. Answers and
// navigation change the copy right away; the auto-save coordinator decides
// when they reach storage. Status changes go straight through the Manager.
type Attempt struct {
	manager *Manager
	saver   *autosave.Coordinator

	mu      sync.Mutex
	working *testsession.TestSession
}

// OpenAttempt loads an active or paused session into a working copy and
// starts its auto-save loop.
func (m *Manager) OpenAttempt(ctx context.Context, sessionID string, cfg autosave.Config) (*Attempt, error) {
	s, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !s.Status.Open() {
		return nil, conflict("open attempt", s, testsession.StatusActive, testsession.StatusPaused)
	}

	a := &Attempt{manager: m, working: s}
	a.saver = autosave.New(m, a.Snapshot, cfg, m.logger, m.metrics)
	a.saver.Start(ctx)
	return a, nil
}

// Snapshot returns a copy of the working state.
func (a *Attempt) Snapshot() *testsession.TestSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.working.Clone()
}

func (a *Attempt) SessionID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.working.ID
}

func (a *Attempt) Answer(questionID string, answer question.Option) error {
	a.mu.Lock()
	if a.working.Status != testsession.StatusActive {
		err := conflict("answer", a.working, testsession.StatusActive)
		a.mu.Unlock()
		return err
	}
	if err := a.working.Answer(questionID, answer); err != nil {
		a.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	a.mu.Unlock()

	a.saver.AnswerChanged()
	return nil
}

func (a *Attempt) Navigate(ctx context.Context, index int) error {
	a.mu.Lock()
	if err := a.working.Navigate(index); err != nil {
		a.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrOutOfRange, err)
	}
	a.mu.Unlock()

	return a.saver.NavigationChanged(ctx)
}

// Current returns the question under the cursor and its index.
func (a *Attempt) Current() (question.Question, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	i := a.working.CurrentQuestionIndex
	return a.working.Questions[i], i
}

func (a *Attempt) VisibilityChanged(ctx context.Context, hidden bool) error {
	return a.saver.VisibilityChanged(ctx, hidden)
}

// Remaining is the exam time left, computed from the wall clock.
func (a *Attempt) Remaining() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.working.Remaining(a.manager.now())
}

// Pause flushes pending progress and pauses the session.
func (a *Attempt) Pause(ctx context.Context) error {
	if _, err := a.saver.Flush(ctx, autosave.TriggerManual); err != nil {
		return err
	}
	s, err := a.manager.PauseSession(ctx, a.SessionID())
	if err != nil {
		return err
	}
	a.adopt(s)
	return nil
}

func (a *Attempt) Resume(ctx context.Context) error {
	s, err := a.manager.ResumeSession(ctx, a.SessionID())
	if err != nil {
		return err
	}
	a.adopt(s)
	return nil
}

// Complete flushes pending progress, completes the session and stops the
// auto-save loop.
func (a *Attempt) Complete(ctx context.Context) (*testresult.TestResult, error) {
	if _, err := a.saver.Flush(ctx, autosave.TriggerManual); err != nil {
		return nil, err
	}
	res, err := a.manager.CompleteSession(ctx, a.SessionID())
	if err != nil {
		return nil, err
	}
	a.saver.Stop()

	if s, err := a.manager.GetSession(ctx, res.SessionID); err == nil {
		a.adopt(s)
	}
	return res, nil
}

// Unload makes the last save attempt. It reports whether changes were
// left unsaved.
func (a *Attempt) Unload(ctx context.Context) bool {
	return a.saver.Unload(ctx)
}

// adopt takes the status and timestamps of a stored session while keeping
// unsaved answers and position.
func (a *Attempt) adopt(s *testsession.TestSession) {
	a.mu.Lock()
	a.working.Status = s.Status
	a.working.EndTime = s.EndTime
	a.working.UpdatedAt = s.UpdatedAt
	a.mu.Unlock()
}
