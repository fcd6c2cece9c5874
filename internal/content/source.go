package content

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/lid-trainer/backend/internal/domain/question"
	"github.com/lid-trainer/backend/internal/infrastructure/metrics"
	"github.com/lid-trainer/backend/internal/worker"
)

// ScopeAll is the scope holding every federal question.
const ScopeAll = "all"

// CategoryScope returns the scope of a category across the federal pool.
func CategoryScope(category string) string {
	return question.Slug(category)
}

// StateScope returns the scope of a state's questions, optionally narrowed
// to one category.
func StateScope(code, category string) string {
	sub := ScopeAll
	if category != "" {
		sub = question.Slug(category)
	}
	return strings.ToLower(code) + "/" + sub
}

// Source reads the paginated question content. Full pools are cached per
// language and scope since the content never changes while running.
type Source struct {
	fetcher Fetcher
	workers int
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu    sync.Mutex
	pools map[string][]question.Question
}

func NewSource(f Fetcher, workers int, logger *zap.Logger, m *metrics.Metrics) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{
		fetcher: f,
		workers: workers,
		logger:  logger,
		metrics: m,
		pools:   make(map[string][]question.Question),
	}
}

func (s *Source) getJSON(ctx context.Context, path string, v any) error {
	data, err := s.fetcher.Fetch(ctx, path)
	if err != nil {
		s.metrics.ContentPage(false)
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.metrics.ContentPage(false)
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	s.metrics.ContentPage(true)
	return nil
}

func (s *Source) Metadata(ctx context.Context) (*Metadata, error) {
	var m Metadata
	if err := s.getJSON(ctx, "data/metadata.json", &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Source) Categories(ctx context.Context, lang string) (*CategoryList, error) {
	if !question.IsLanguage(lang) {
		return nil, fmt.Errorf("unsupported language %q", lang)
	}
	var c CategoryList
	if err := s.getJSON(ctx, "data/"+lang+"/categories.json", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Source) Page(ctx context.Context, lang, scope string, n int) (*Page, error) {
	if !question.IsLanguage(lang) {
		return nil, fmt.Errorf("unsupported language %q", lang)
	}
	if n < 1 {
		return nil, fmt.Errorf("page %d must be at least 1", n)
	}
	var p Page
	path := fmt.Sprintf("data/%s/%s/page-%d.json", lang, scope, n)
	if err := s.getJSON(ctx, path, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Questions returns the pool the sampler draws from: the federal questions,
// plus the questions of state when one is given.
func (s *Source) Questions(ctx context.Context, lang, state string) ([]question.Question, error) {
	federal, err := s.Scope(ctx, lang, ScopeAll)
	if err != nil {
		return nil, err
	}
	if state == "" {
		return federal, nil
	}
	if !question.IsState(strings.ToUpper(state)) {
		return nil, fmt.Errorf("unknown state %q", state)
	}
	local, err := s.Scope(ctx, lang, StateScope(state, ""))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(federal)+len(local))
	pool := make([]question.Question, 0, len(federal)+len(local))
	for _, part := range [][]question.Question{federal, local} {
		for _, q := range part {
			if _, dup := seen[q.ID]; dup {
				continue
			}
			seen[q.ID] = struct{}{}
			pool = append(pool, q)
		}
	}
	return pool, nil
}

// Scope fetches every page of a scope. Page 1 tells how many pages exist;
// the rest are fetched concurrently and reassembled in page order.
func (s *Source) Scope(ctx context.Context, lang, scope string) ([]question.Question, error) {
	key := lang + "/" + scope
	s.mu.Lock()
	cached, ok := s.pools[key]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	first, err := s.Page(ctx, lang, scope, 1)
	if err != nil {
		return nil, err
	}

	pages := make([][]question.Question, max(first.Pagination.TotalPages, 1))
	pages[0] = first.Questions

	if rest := len(pages) - 1; rest > 0 {
		pool := worker.NewPool[*Page](ctx, s.workers, rest)
		for n := 2; n <= len(pages); n++ {
			n := n
			pool.Submit(strconv.Itoa(n), func(ctx context.Context) (*Page, error) {
				return s.Page(ctx, lang, scope, n)
			})
		}
		pool.Close()

		var firstErr error
		for res := range pool.Results() {
			if res.Err != nil {
				if firstErr == nil {
					firstErr = res.Err
				}
				continue
			}
			n, _ := strconv.Atoi(res.JobID)
			pages[n-1] = res.Output.Questions
		}
		if firstErr != nil {
			return nil, fmt.Errorf("failed to load scope %s: %w", key, firstErr)
		}
	}

	var all []question.Question
	for _, p := range pages {
		for _, q := range p {
			if err := q.Validate(); err != nil {
				s.logger.Warn("skipping invalid question", zap.String("id", q.ID), zap.Error(err))
				continue
			}
			all = append(all, q)
		}
	}

	s.logger.Debug("question scope loaded",
		zap.String("scope", key),
		zap.Int("pages", len(pages)),
		zap.Int("questions", len(all)),
	)

	s.mu.Lock()
	s.pools[key] = all
	s.mu.Unlock()
	return all, nil
}
