package repository

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/lid-trainer/backend/internal/domain/testresult"
	"github.com/lid-trainer/backend/internal/store"
)

type ResultRepository struct {
	kv     *store.Adapter
	logger *zap.Logger
}

func NewResultRepository(kv *store.Adapter, logger *zap.Logger) *ResultRepository {
	return &ResultRepository{kv: kv, logger: logger}
}

// Save writes the whole record under one key, so a rewrite never leaves a
// partially updated result behind.
func (r *ResultRepository) Save(ctx context.Context, res *testresult.TestResult) error {
	return r.kv.SetJSON(ctx, resultPrefix+res.ID, res)
}

func (r *ResultRepository) Get(ctx context.Context, id string) (*testresult.TestResult, error) {
	var res testresult.TestResult
	if err := get(ctx, r.kv, resultPrefix+id, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *ResultRepository) Delete(ctx context.Context, id string) error {
	return r.kv.Delete(ctx, resultPrefix+id)
}

// List returns all results, newest first.
func (r *ResultRepository) List(ctx context.Context) ([]*testresult.TestResult, error) {
	results, err := scan(ctx, r.kv, r.logger, resultPrefix, func(res *testresult.TestResult) bool {
		return res.ID != "" && res.TotalQuestions >= 0
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CompletedAt.After(results[j].CompletedAt)
	})
	return results, nil
}

func (r *ResultRepository) filter(ctx context.Context, keep func(*testresult.TestResult) bool) ([]*testresult.TestResult, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*testresult.TestResult, 0, len(all))
	for _, res := range all {
		if keep(res) {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *ResultRepository) FindBySession(ctx context.Context, sessionID string) (*testresult.TestResult, error) {
	matches, err := r.filter(ctx, func(res *testresult.TestResult) bool {
		return res.SessionID == sessionID
	})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	return matches[0], nil
}

func (r *ResultRepository) FindByPassed(ctx context.Context, passed bool) ([]*testresult.TestResult, error) {
	return r.filter(ctx, func(res *testresult.TestResult) bool {
		return res.Passed == passed
	})
}

// FindByDateRange returns results completed in [from, to].
func (r *ResultRepository) FindByDateRange(ctx context.Context, from, to time.Time) ([]*testresult.TestResult, error) {
	return r.filter(ctx, func(res *testresult.TestResult) bool {
		return !res.CompletedAt.Before(from) && !res.CompletedAt.After(to)
	})
}

func (r *ResultRepository) FindByType(ctx context.Context, t testresult.Type) ([]*testresult.TestResult, error) {
	return r.filter(ctx, func(res *testresult.TestResult) bool {
		return res.Type == t
	})
}

// Recent returns the n newest results.
func (r *ResultRepository) Recent(ctx context.Context, n int) ([]*testresult.TestResult, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	if n >= 0 && n < len(all) {
		all = all[:n]
	}
	return all, nil
}
