package repository

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/lid-trainer/backend/internal/store"
)

const (
	DefaultKeepResults   = 20
	DefaultSessionMaxAge = 7 * 24 * time.Hour
)

// Retention frees storage when a write hits the quota. It keeps the most
// recent results and drops sessions that are finished or older than the
// maximum age.
type Retention struct {
	sessions      *SessionRepository
	results       *ResultRepository
	logger        *zap.Logger
	keepResults   int
	sessionMaxAge time.Duration
	now           func() time.Time
}

var _ store.Cleaner = (*Retention)(nil)

func NewRetention(sessions *SessionRepository, results *ResultRepository, logger *zap.Logger) *Retention {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retention{
		sessions:      sessions,
		results:       results,
		logger:        logger,
		keepResults:   DefaultKeepResults,
		sessionMaxAge: DefaultSessionMaxAge,
		now:           time.Now,
	}
}

func (r *Retention) WithLimits(keepResults int, sessionMaxAge time.Duration) *Retention {
	r.keepResults = keepResults
	r.sessionMaxAge = sessionMaxAge
	return r
}

func (r *Retention) Cleanup(ctx context.Context) error {
	var errs []error
	prunedResults, prunedSessions := 0, 0

	results, err := r.results.List(ctx)
	if err != nil {
		errs = append(errs, err)
	} else if len(results) > r.keepResults {
		for _, res := range results[r.keepResults:] {
			if err := r.results.Delete(ctx, res.ID); err != nil {
				errs = append(errs, err)
				continue
			}
			prunedResults++
		}
	}

	sessions, err := r.sessions.List(ctx)
	if err != nil {
		errs = append(errs, err)
	} else {
		now := r.now()
		for _, s := range sessions {
			if s.Status.Open() && now.Sub(s.StartTime) <= r.sessionMaxAge {
				continue
			}
			if err := r.sessions.Delete(ctx, s.ID); err != nil {
				errs = append(errs, err)
				continue
			}
			prunedSessions++
		}
	}

	r.logger.Info("storage cleanup finished",
		zap.Int("results_pruned", prunedResults),
		zap.Int("sessions_pruned", prunedSessions),
		zap.Int("errors", len(errs)),
	)
	return errors.Join(errs...)
}
