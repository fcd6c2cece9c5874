// internal/service/countdown.go
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/lid-trainer/backend/internal/domain/testresult"
	"github.com/lid-trainer/backend/internal/domain/testsession"
)

// CountdownStatus is the exam clock of a session at one instant.
type CountdownStatus struct {
	SessionID string             `json:"sessionId"`
	Status    testsession.Status `json:"status"`
	Remaining time.Duration      `json:"remaining"`
	Expired   bool               `json:"expired"`
}

// Countdown reads the remaining exam time. It is derived from the start
// timestamp each time, so it is correct after any suspension.
func (m *Manager) Countdown(ctx context.Context, sessionID string) (*CountdownStatus, error) {
	s, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	remaining := s.Remaining(m.now())
	return &CountdownStatus{
		SessionID: s.ID,
		Status:    s.Status,
		Remaining: remaining,
		Expired:   remaining == 0,
	}, nil
}

// WatchCountdown checks the clock every tick and completes the session when
// time runs out while it is active. It returns the result once the session
// is completed, by this watcher or elsewhere, and ErrStateConflict if the
// session is abandoned. A paused session keeps being watched.
func (m *Manager) WatchCountdown(ctx context.Context, sessionID string, tick time.Duration, onTick func(CountdownStatus)) (*testresult.TestResult, error) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		status, err := m.Countdown(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if onTick != nil {
			onTick(*status)
		}

		switch {
		case status.Status == testsession.StatusCompleted:
			return m.CompleteSession(ctx, sessionID)
		case status.Status.Terminal():
			return nil, &StateConflictError{Op: "watch countdown", SessionID: sessionID, Status: status.Status}
		case status.Expired && status.Status == testsession.StatusActive:
			res, err := m.CompleteSession(ctx, sessionID)
			var sc *StateConflictError
			if errors.As(err, &sc) {
				// paused or abandoned between the read and the completion
				break
			}
			if err != nil {
				return nil, err
			}
			m.logger.Info("time limit reached, session auto-completed", zap.String("session", sessionID))
			return res, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
