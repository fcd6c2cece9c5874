// internal/service/janitor.go
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/lid-trainer/backend/internal/domain/testsession"
)

// Janitor periodically abandons stale sessions and completes active
// sessions whose time limit has passed.
type Janitor struct {
	manager  *Manager
	interval time.Duration
	logger   *zap.Logger
}

func NewJanitor(m *Manager, interval time.Duration, logger *zap.Logger) *Janitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Janitor{manager: m, interval: interval, logger: logger}
}

// Run sweeps once immediately and then every interval until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		j.Sweep(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Sweep runs one cleanup pass and reports how many sessions it changed.
func (j *Janitor) Sweep(ctx context.Context) (abandoned, completed int) {
	abandoned, err := j.manager.AbandonStaleSessions(ctx)
	if err != nil {
		j.logger.Error("stale session sweep failed", zap.Error(err))
	}

	active, err := j.manager.sessions.FindByStatus(ctx, testsession.StatusActive)
	if err != nil {
		j.logger.Error("failed to list active sessions", zap.Error(err))
		return abandoned, 0
	}
	now := j.manager.now()
	for _, s := range active {
		if s.Remaining(now) > 0 {
			continue
		}
		_, err := j.manager.CompleteSession(ctx, s.ID)
		if errors.Is(err, ErrStateConflict) {
			continue
		}
		if err != nil {
			j.logger.Error("failed to complete expired session", zap.String("session", s.ID), zap.Error(err))
			continue
		}
		completed++
	}

	if abandoned > 0 || completed > 0 {
		j.logger.Info("janitor sweep", zap.Int("abandoned", abandoned), zap.Int("completed", completed))
	}
	return abandoned, completed
}
