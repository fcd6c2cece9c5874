package repository

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/lid-trainer/backend/internal/domain/testsession"
	"github.com/lid-trainer/backend/internal/store"
)

type SessionRepository struct {
	kv     *store.Adapter
	logger *zap.Logger
}

func NewSessionRepository(kv *store.Adapter, logger *zap.Logger) *SessionRepository {
	return &SessionRepository{kv: kv, logger: logger}
}

func (r *SessionRepository) Save(ctx context.Context, s *testsession.TestSession) error {
	return r.kv.SetJSON(ctx, sessionPrefix+s.ID, s)
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*testsession.TestSession, error) {
	var s testsession.TestSession
	if err := get(ctx, r.kv, sessionPrefix+id, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	return r.kv.Delete(ctx, sessionPrefix+id)
}

// List returns all sessions, oldest first.
func (r *SessionRepository) List(ctx context.Context) ([]*testsession.TestSession, error) {
	sessions, err := scan(ctx, r.kv, r.logger, sessionPrefix, func(s *testsession.TestSession) bool {
		return s.ID != "" && s.Status.Valid()
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartTime.Before(sessions[j].StartTime)
	})
	return sessions, nil
}

// FindActive returns the session in active or paused status. Should more than
// one exist (two clients racing), the most recently started one wins.
func (r *SessionRepository) FindActive(ctx context.Context) (*testsession.TestSession, error) {
	open, err := r.FindByStatus(ctx, testsession.StatusActive, testsession.StatusPaused)
	if err != nil {
		return nil, err
	}
	if len(open) == 0 {
		return nil, ErrNotFound
	}
	return open[len(open)-1], nil
}

func (r *SessionRepository) FindByStatus(ctx context.Context, statuses ...testsession.Status) ([]*testsession.TestSession, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []*testsession.TestSession
	for _, s := range all {
		for _, st := range statuses {
			if s.Status == st {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

// FindStale returns unfinished sessions started more than StaleAfter before now.
func (r *SessionRepository) FindStale(ctx context.Context, now time.Time) ([]*testsession.TestSession, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []*testsession.TestSession
	for _, s := range all {
		if s.IsStale(now) {
			out = append(out, s)
		}
	}
	return out, nil
}
