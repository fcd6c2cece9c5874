package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lid-trainer/backend/internal/domain/question"
	"github.com/lid-trainer/backend/internal/domain/testsession"
	"github.com/lid-trainer/backend/internal/events"
	"github.com/lid-trainer/backend/internal/mistakes"
	"github.com/lid-trainer/backend/internal/repository"
	"github.com/lid-trainer/backend/internal/sampling"
	"github.com/lid-trainer/backend/internal/service"
	"github.com/lid-trainer/backend/internal/store"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type staticPool []question.Question

func (p staticPool) Questions(context.Context, string, string) ([]question.Question, error) {
	return p, nil
}

func questionPool() staticPool {
	categories := []string{"Politik in der Demokratie", "Geschichte und Verantwortung", "Mensch und Gesellschaft", "Rechte und Pflichten"}
	var pool staticPool
	for i := 1; i <= 120; i++ {
		pool = append(pool, question.Question{
			ID:       fmt.Sprintf("q%03d", i),
			Number:   question.Number(fmt.Sprint(i)),
			Question: fmt.Sprintf("Frage %d", i),
			A:        "a",
			B:        "b",
			C:        "c",
			D:        "d",
			Solution: question.Options[i%4],
			Category: categories[i%len(categories)],
		})
	}
	for i := 1; i <= 10; i++ {
		pool = append(pool, question.Question{
			ID:       fmt.Sprintf("by%02d", i),
			Number:   question.Number(fmt.Sprintf("BY-%d", i)),
			Solution: question.OptionC,
			Category: "Bayern",
		})
	}
	return pool
}

type fixture struct {
	manager  *service.Manager
	sessions *repository.SessionRepository
	results  *repository.ResultRepository
	prefs    *repository.PreferencesRepository
	mistakes *mistakes.Generator
	backend  *store.MemoryBackend
	events   *events.Recorder
	clock    *clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(t, nil)
}

// newFixtureOn lets wrap put a different backend in front of the memory
// backend the fixture keeps for inspection.
func newFixtureOn(t *testing.T, wrap func(*store.MemoryBackend) store.Backend) *fixture {
	t.Helper()

	logger := zap.NewNop()
	backend := store.NewMemory(0)
	var b store.Backend = backend
	if wrap != nil {
		b = wrap(backend)
	}
	kv := store.NewAdapter(b, "test", logger, nil)

	sessions := repository.NewSessionRepository(kv, logger)
	results := repository.NewResultRepository(kv, logger)
	prefs := repository.NewPreferencesRepository(kv, logger)
	kv.SetCleaner(repository.NewRetention(sessions, results, logger))

	gen := mistakes.NewGenerator(results, logger)
	rec := &events.Recorder{}
	// retention compares against the wall clock, so start from it
	clk := &clock{t: time.Now().UTC().Truncate(time.Second)}

	m := service.NewManager(service.Deps{
		Sessions:    sessions,
		Results:     results,
		Preferences: prefs,
		Sampler:     sampling.NewEngine(questionPool(), logger),
		Mistakes:    gen,
		Publisher:   rec,
		Logger:      logger,
	})
	m.SetClock(clk.Now)

	return &fixture{
		manager:  m,
		sessions: sessions,
		results:  results,
		prefs:    prefs,
		mistakes: gen,
		backend:  backend,
		events:   rec,
		clock:    clk,
	}
}

func (f *fixture) create(t *testing.T, seed int64) *testsession.TestSession {
	t.Helper()
	cfg := testsession.DefaultConfig()
	cfg.Seed = &seed
	s, err := f.manager.CreateSession(context.Background(), cfg)
	require.NoError(t, err)
	return s
}

func wrongOption(q question.Question) question.Option {
	if q.Solution == question.OptionA {
		return question.OptionB
	}
	return question.OptionA
}

// answerAll answers the first correct questions right and the rest wrong.
func (f *fixture) answerAll(t *testing.T, s *testsession.TestSession, correct int) {
	t.Helper()
	for i, q := range s.Questions {
		opt := q.Solution
		if i >= correct {
			opt = wrongOption(q)
		}
		_, err := f.manager.SubmitAnswer(context.Background(), s.ID, q.ID, opt)
		require.NoError(t, err)
	}
}
