package repository

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/lid-trainer/backend/internal/domain/preferences"
	"github.com/lid-trainer/backend/internal/store"
)

// PreferencesRepository holds the single preferences record and a set of
// small named flags (filters, browse position, dismissed hints).
type PreferencesRepository struct {
	kv     *store.Adapter
	logger *zap.Logger
	now    func() time.Time
}

func NewPreferencesRepository(kv *store.Adapter, logger *zap.Logger) *PreferencesRepository {
	return &PreferencesRepository{kv: kv, logger: logger, now: time.Now}
}

// Get returns the stored preferences. A missing or undecodable record is
// replaced with defaults on first access.
func (r *PreferencesRepository) Get(ctx context.Context) (*preferences.UserPreferences, error) {
	var p preferences.UserPreferences
	err := get(ctx, r.kv, prefsKey, &p)
	switch {
	case errors.Is(err, ErrNotFound):
		return r.createDefaults(ctx), nil
	case errors.Is(err, store.ErrSerialization):
		r.logger.Warn("discarding malformed preferences", zap.Error(err))
		return r.createDefaults(ctx), nil
	case err != nil:
		return nil, err
	}
	if !p.Mode.Valid() {
		p.Mode = preferences.ModeStudy
	}
	return &p, nil
}

// createDefaults stores fresh defaults. A failed write still returns them;
// the record is created again on the next access.
func (r *PreferencesRepository) createDefaults(ctx context.Context) *preferences.UserPreferences {
	p := preferences.Default(r.now())
	if err := r.kv.SetJSON(ctx, prefsKey, p); err != nil {
		r.logger.Warn("failed to store default preferences", zap.Error(err))
	}
	return p
}

func (r *PreferencesRepository) Save(ctx context.Context, p *preferences.UserPreferences) error {
	p.LastUsed = r.now()
	return r.kv.SetJSON(ctx, prefsKey, p)
}

// Update applies fn to the current preferences and saves the result.
func (r *PreferencesRepository) Update(ctx context.Context, fn func(*preferences.UserPreferences)) (*preferences.UserPreferences, error) {
	p, err := r.Get(ctx)
	if err != nil {
		return nil, err
	}
	fn(p)
	if err := r.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PreferencesRepository) GetFlag(ctx context.Context, name string, v any) error {
	return get(ctx, r.kv, flagPrefix+name, v)
}

func (r *PreferencesRepository) SetFlag(ctx context.Context, name string, v any) error {
	return r.kv.SetJSON(ctx, flagPrefix+name, v)
}

func (r *PreferencesRepository) DeleteFlag(ctx context.Context, name string) error {
	return r.kv.Delete(ctx, flagPrefix+name)
}

func (r *PreferencesRepository) Filters(ctx context.Context) (preferences.Filters, error) {
	var f preferences.Filters
	err := r.GetFlag(ctx, "filters", &f)
	if errors.Is(err, ErrNotFound) {
		return preferences.Filters{}, nil
	}
	return f, err
}

func (r *PreferencesRepository) SaveFilters(ctx context.Context, f preferences.Filters) error {
	return r.SetFlag(ctx, "filters", f)
}

// BrowsePosition returns the last viewed position in a question scope.
func (r *PreferencesRepository) BrowsePosition(ctx context.Context, scope string) (preferences.BrowsePosition, error) {
	pos := preferences.BrowsePosition{Scope: scope, Page: 1}
	err := r.GetFlag(ctx, "browse/"+scope, &pos)
	if errors.Is(err, ErrNotFound) {
		return pos, nil
	}
	return pos, err
}

func (r *PreferencesRepository) SaveBrowsePosition(ctx context.Context, pos preferences.BrowsePosition) error {
	return r.SetFlag(ctx, "browse/"+pos.Scope, pos)
}

func (r *PreferencesRepository) Randomization(ctx context.Context) (bool, error) {
	var on bool
	err := r.GetFlag(ctx, "randomization", &on)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return on, err
}

func (r *PreferencesRepository) SetRandomization(ctx context.Context, on bool) error {
	return r.SetFlag(ctx, "randomization", on)
}

// EnsureSeed returns the shared shuffle seed, drawing and storing a new one
// when none exists.
func (r *PreferencesRepository) EnsureSeed(ctx context.Context) (int64, error) {
	var seed int64
	err := r.GetFlag(ctx, "seed", &seed)
	if err == nil {
		return seed, nil
	}
	if !errors.Is(err, ErrNotFound) && !errors.Is(err, store.ErrSerialization) {
		return 0, err
	}
	seed = rand.Int63n(1 << 31)
	if err := r.SetFlag(ctx, "seed", seed); err != nil {
		return 0, err
	}
	return seed, nil
}

func (r *PreferencesRepository) ClearSeed(ctx context.Context) error {
	return r.DeleteFlag(ctx, "seed")
}
