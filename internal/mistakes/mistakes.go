package mistakes

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/lid-trainer/backend/internal/domain/question"
	"github.com/lid-trainer/backend/internal/domain/testresult"
	"github.com/lid-trainer/backend/internal/domain/testsession"
)

// DefaultMaxQuestions caps a practice set at the size of a normal exam.
const DefaultMaxQuestions = testsession.QuestionCount

var ErrInvalidOptions = errors.New("invalid practice options")

// ResultStore is the part of the result repository the generator needs.
type ResultStore interface {
	List(ctx context.Context) ([]*testresult.TestResult, error)
	Save(ctx context.Context, res *testresult.TestResult) error
}

type Options struct {
	Type         testsession.PracticeType
	Category     string
	TestIDs      []string
	MaxQuestions int
	Seed         *int64
}

// PracticeSet is a deduplicated selection of past mistakes.
type PracticeSet struct {
	Questions     []question.Question
	TotalMistakes int
	Provenance    testsession.MistakeProvenance
}

type Generator struct {
	results ResultStore
	logger  *zap.Logger
}

func NewGenerator(results ResultStore, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{results: results, logger: logger}
}

// collect walks results oldest first and returns the mistakes of results
// accepted by keep that pass match, each question at most once, along with
// the ids of the results that contributed.
func (g *Generator) collect(ctx context.Context, keep func(*testresult.TestResult) bool, match func(question.Question) bool) ([]question.Question, []string, error) {
	results, err := g.results.List(ctx)
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[string]struct{})
	var out []question.Question
	var sources []string
	for i := len(results) - 1; i >= 0; i-- {
		r := results[i]
		if r == nil || !keep(r) {
			continue
		}
		contributed := false
		for _, q := range r.Mistakes {
			if q.ID == "" {
				g.logger.Warn("skipping mistake without id", zap.String("result", r.ID))
				continue
			}
			if match != nil && !match(q) {
				continue
			}
			contributed = true
			if _, dup := seen[q.ID]; dup {
				continue
			}
			seen[q.ID] = struct{}{}
			out = append(out, q)
		}
		if contributed {
			sources = append(sources, r.ID)
		}
	}
	return out, sources, nil
}

func anyResult(*testresult.TestResult) bool { return true }

func inTests(ids []string) func(*testresult.TestResult) bool {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	return func(r *testresult.TestResult) bool {
		_, ok := want[r.ID]
		return ok
	}
}

func inCategory(category string) func(question.Question) bool {
	return func(q question.Question) bool {
		return q.Category == category || question.Slug(q.Category) == category
	}
}

func (g *Generator) AllMistakes(ctx context.Context) ([]question.Question, error) {
	qs, _, err := g.collect(ctx, anyResult, nil)
	return qs, err
}

func (g *Generator) MistakesFromTests(ctx context.Context, ids []string) ([]question.Question, error) {
	qs, _, err := g.collect(ctx, inTests(ids), nil)
	return qs, err
}

// MistakesByCategory matches the category by name or by slug.
func (g *Generator) MistakesByCategory(ctx context.Context, category string) ([]question.Question, error) {
	qs, _, err := g.collect(ctx, anyResult, inCategory(category))
	return qs, err
}

// CategoryCounts returns the number of distinct mistakes per category.
func (g *Generator) CategoryCounts(ctx context.Context) (map[string]int, error) {
	all, err := g.AllMistakes(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, q := range all {
		counts[q.Category]++
	}
	return counts, nil
}

// CreatePracticeSet resolves the mistake pool for opts and randomly trims it
// to opts.MaxQuestions. An empty pool is not an error here.
func (g *Generator) CreatePracticeSet(ctx context.Context, opts Options) (*PracticeSet, error) {
	if opts.Type == "" {
		opts.Type = testsession.PracticeAll
	}
	if opts.MaxQuestions == 0 {
		opts.MaxQuestions = DefaultMaxQuestions
	}

	var violations []string
	if !opts.Type.Valid() {
		violations = append(violations, fmt.Sprintf("unknown practice type %q", opts.Type))
	}
	if opts.Type == testsession.PracticeCategory && opts.Category == "" {
		violations = append(violations, "category practice needs a category")
	}
	if opts.Type == testsession.PracticeTests && len(opts.TestIDs) == 0 {
		violations = append(violations, "test practice needs at least one test id")
	}
	if opts.MaxQuestions < 0 {
		violations = append(violations, fmt.Sprintf("max questions %d is negative", opts.MaxQuestions))
	}
	if len(violations) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, violations)
	}

	var (
		pool    []question.Question
		sources []string
		err     error
	)
	switch opts.Type {
	case testsession.PracticeAll:
		pool, sources, err = g.collect(ctx, anyResult, nil)
	case testsession.PracticeCategory:
		pool, sources, err = g.collect(ctx, anyResult, inCategory(opts.Category))
	case testsession.PracticeTests:
		pool, sources, err = g.collect(ctx, inTests(opts.TestIDs), nil)
	}
	if err != nil {
		return nil, err
	}

	set := &PracticeSet{
		Questions:     pool,
		TotalMistakes: len(pool),
		Provenance: testsession.MistakeProvenance{
			Type:          opts.Type,
			Category:      opts.Category,
			SourceTestIDs: sources,
			TotalMistakes: len(pool),
		},
	}
	if len(pool) > opts.MaxQuestions {
		seed := time.Now().UnixNano()
		if opts.Seed != nil {
			seed = *opts.Seed
		}
		rng := rand.New(rand.NewSource(seed))
		picked := make([]question.Question, 0, opts.MaxQuestions)
		for _, i := range rng.Perm(len(pool))[:opts.MaxQuestions] {
			picked = append(picked, pool[i])
		}
		set.Questions = picked
	}
	return set, nil
}

// RemoveCorrectlyAnswered drops ids from the mistake list of every stored
// result. Each result is rewritten whole; a failing record is logged and
// skipped. It returns how many results were rewritten.
func (g *Generator) RemoveCorrectlyAnswered(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	results, err := g.results.List(ctx)
	if err != nil {
		return 0, err
	}

	updated := 0
	var errs []error
	for _, r := range results {
		if r == nil {
			continue
		}
		next, changed := r.WithoutMistakes(drop)
		if !changed {
			continue
		}
		if err := g.results.Save(ctx, next); err != nil {
			g.logger.Error("failed to prune mistakes from result", zap.String("result", r.ID), zap.Error(err))
			errs = append(errs, fmt.Errorf("result %s: %w", r.ID, err))
			continue
		}
		updated++
	}

	g.logger.Info("pruned corrected mistakes",
		zap.Int("questions", len(ids)),
		zap.Int("results_updated", updated),
		zap.Int("failures", len(errs)),
	)
	return updated, errors.Join(errs...)
}
