package sampling

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/lid-trainer/backend/internal/domain/question"
)

// Each random decision draws from its own generator seeded with seed+salt,
// so reordering the decisions never changes their outcome.
const (
	saltStateCount int64 = iota + 1
	saltStatePick
	saltCategories
	saltShuffle
)

// Pool supplies the candidate questions for a language and optional state.
type Pool interface {
	Questions(ctx context.Context, lang, state string) ([]question.Question, error)
}

type Metadata struct {
	PoolSize     int            `json:"poolSize"`
	StateCount   int            `json:"stateCount"`
	GeneralCount int            `json:"generalCount"`
	Categories   map[string]int `json:"categories"`
	Seed         *int64         `json:"seed,omitempty"`
}

type Selection struct {
	Questions []question.Question `json:"questions"`
	Metadata  Metadata            `json:"metadata"`
}

type Engine struct {
	pool   Pool
	logger *zap.Logger
}

func NewEngine(pool Pool, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{pool: pool, logger: logger}
}

// Generate validates cfg, loads the pool and samples from it. A nil seed
// samples non-deterministically.
func (e *Engine) Generate(ctx context.Context, cfg Config, seed *int64) (*Selection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pool, err := e.pool.Questions(ctx, cfg.Language, cfg.State)
	if err != nil {
		return nil, fmt.Errorf("failed to load question pool: %w", err)
	}

	sel, err := Sample(pool, cfg, seed)
	if err != nil {
		return nil, err
	}
	if len(sel.Questions) < cfg.QuestionCount {
		e.logger.Warn("question pool smaller than requested count",
			zap.Int("requested", cfg.QuestionCount),
			zap.Int("selected", len(sel.Questions)),
		)
	}
	return sel, nil
}

// Sample selects cfg.QuestionCount questions from pool. When cfg.State is
// set, 3 to 5 of them are that state's questions and the rest are drawn by
// balanced category sampling from the unused state questions and the
// federal questions.
func Sample(pool []question.Question, cfg Config, seed *int64) (*Selection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var base int64
	if seed != nil {
		base = *seed
	} else {
		base = rand.Int63()
	}
	rng := func(salt int64) *rand.Rand {
		return rand.New(rand.NewSource(base + salt))
	}

	var stateQs, general []question.Question
	for _, q := range pool {
		code, ok := q.StateCode()
		switch {
		case ok && cfg.State != "" && code == cfg.State:
			stateQs = append(stateQs, q)
		case q.Number.IsFederal():
			general = append(general, q)
		}
	}

	var picked, unused []question.Question
	if cfg.State != "" && len(stateQs) > 0 {
		k := MinStateQuestions + rng(saltStateCount).Intn(MaxStateQuestions-MinStateQuestions+1)
		k = min(k, len(stateQs), cfg.QuestionCount)
		for i, j := range rng(saltStatePick).Perm(len(stateQs)) {
			if i < k {
				picked = append(picked, stateQs[j])
			} else {
				unused = append(unused, stateQs[j])
			}
		}
	}

	candidates := make([]question.Question, 0, len(unused)+len(general))
	candidates = append(candidates, unused...)
	candidates = append(candidates, general...)
	rest := balanced(candidates, cfg.QuestionCount-len(picked), rng(saltCategories))

	selected := make([]question.Question, 0, len(picked)+len(rest))
	selected = append(selected, picked...)
	selected = append(selected, rest...)
	shuffler := rng(saltShuffle)
	shuffler.Shuffle(len(selected), func(i, j int) {
		selected[i], selected[j] = selected[j], selected[i]
	})

	meta := Metadata{
		PoolSize:   len(stateQs) + len(general),
		Categories: make(map[string]int),
	}
	for _, q := range selected {
		if code, ok := q.StateCode(); ok && code == cfg.State {
			meta.StateCount++
		} else {
			meta.GeneralCount++
		}
		meta.Categories[q.Category]++
	}
	if seed != nil {
		s := *seed
		meta.Seed = &s
	}

	return &Selection{Questions: selected, Metadata: meta}, nil
}
