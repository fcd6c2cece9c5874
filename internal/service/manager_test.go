package service_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lid-trainer/backend/internal/domain/question"
	"github.com/lid-trainer/backend/internal/domain/testresult"
	"github.com/lid-trainer/backend/internal/domain/testsession"
	"github.com/lid-trainer/backend/internal/events"
	"github.com/lid-trainer/backend/internal/mistakes"
	"github.com/lid-trainer/backend/internal/repository"
	"github.com/lid-trainer/backend/internal/sampling"
	"github.com/lid-trainer/backend/internal/service"
	"github.com/lid-trainer/backend/internal/store"
)

func TestCreateSessionStartsActive(t *testing.T) {
	f := newFixture(t)
	s := f.create(t, 1)

	assert.Equal(t, testsession.StatusActive, s.Status)
	assert.Len(t, s.Questions, testsession.QuestionCount)
	assert.Empty(t, s.Answers)
	assert.Equal(t, 0, s.CurrentQuestionIndex)
	assert.Equal(t, testsession.FilterGeneral, s.StateFilter)
	assert.Equal(t, f.clock.Now(), s.StartTime)

	stored, err := f.manager.GetSession(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, stored.ID)
	assert.Equal(t, []events.EventType{events.EventTypeSessionCreated}, f.events.Types())
}

func TestCreateSessionForState(t *testing.T) {
	f := newFixture(t)
	cfg := testsession.SessionConfig{State: "by", QuestionCount: 33, Language: "en"}

	s, err := f.manager.CreateSession(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "BY", s.StateFilter)
	assert.Equal(t, "en", s.Language)

	state := 0
	for _, q := range s.Questions {
		if _, ok := q.StateCode(); ok {
			state++
		}
	}
	assert.GreaterOrEqual(t, state, sampling.MinStateQuestions)
}

func TestCreateSessionEnforcesSingleOpenSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.create(t, 1)

	_, err := f.manager.CreateSession(ctx, testsession.DefaultConfig())
	require.ErrorIs(t, err, service.ErrStateConflict)
	var sc *service.StateConflictError
	require.ErrorAs(t, err, &sc)
	assert.Equal(t, first.ID, sc.SessionID)

	_, err = f.manager.PauseSession(ctx, first.ID)
	require.NoError(t, err)
	_, err = f.manager.CreateMistakePracticeSession(ctx, mistakes.Options{}, "de")
	assert.ErrorIs(t, err, service.ErrStateConflict, "a paused session also blocks")

	_, err = f.manager.AbandonSession(ctx, first.ID)
	require.NoError(t, err)
	_, err = f.manager.CreateSession(ctx, testsession.DefaultConfig())
	assert.NoError(t, err)
}

func TestCreateSessionAbandonsStaleOpenSession(t *testing.T) {
	f := newFixture(t)
	old := f.create(t, 1)
	f.clock.Advance(25 * time.Hour)

	fresh := f.create(t, 2)
	assert.NotEqual(t, old.ID, fresh.ID)

	stored, err := f.manager.GetSession(context.Background(), old.ID)
	require.NoError(t, err)
	assert.Equal(t, testsession.StatusAbandoned, stored.Status)
}

func TestCreateSessionValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.CreateSession(context.Background(), testsession.SessionConfig{
		State:         "XX",
		QuestionCount: 101,
		Language:      "fr",
	})
	require.ErrorIs(t, err, service.ErrValidation)
	assert.ErrorIs(t, err, sampling.ErrInvalidConfig)

	var cfgErr *sampling.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Len(t, cfgErr.Violations, 3)
}

func TestCreateSessionSharedSeed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.prefs.SetRandomization(ctx, true))

	s, err := f.manager.CreateSession(ctx, testsession.DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, s.Seed)

	shared, err := f.prefs.EnsureSeed(ctx)
	require.NoError(t, err)
	assert.Equal(t, shared, *s.Seed)

	_, err = f.manager.CompleteSession(ctx, s.ID)
	require.NoError(t, err)

	var seed int64
	assert.ErrorIs(t, f.prefs.GetFlag(ctx, "seed", &seed), repository.ErrNotFound, "completion clears the shared seed")
}

func TestCreateSessionWithoutRandomizationIsUnseeded(t *testing.T) {
	f := newFixture(t)
	s, err := f.manager.CreateSession(context.Background(), testsession.DefaultConfig())
	require.NoError(t, err)
	assert.Nil(t, s.Seed)
}

func TestSameSeedSameQuestions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, 42)
	_, err := f.manager.AbandonSession(ctx, a.ID)
	require.NoError(t, err)
	b := f.create(t, 42)

	require.Len(t, b.Questions, len(a.Questions))
	for i := range a.Questions {
		assert.Equal(t, a.Questions[i].ID, b.Questions[i].ID)
	}
}

func TestSubmitAnswer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.create(t, 1)
	q := s.Questions[0]

	updated, err := f.manager.SubmitAnswer(ctx, s.ID, q.ID, question.OptionB)
	require.NoError(t, err)
	assert.Equal(t, question.OptionB, updated.Answers[q.ID])

	updated, err = f.manager.SubmitAnswer(ctx, s.ID, q.ID, question.OptionD)
	require.NoError(t, err)
	assert.Equal(t, question.OptionD, updated.Answers[q.ID])
	assert.Len(t, updated.Answers, 1)

	_, err = f.manager.SubmitAnswer(ctx, s.ID, "not-in-session", question.OptionA)
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = f.manager.SubmitAnswer(ctx, "missing", q.ID, question.OptionA)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = f.manager.PauseSession(ctx, s.ID)
	require.NoError(t, err)
	_, err = f.manager.SubmitAnswer(ctx, s.ID, q.ID, question.OptionA)
	assert.ErrorIs(t, err, service.ErrStateConflict)
}

func TestNavigateToQuestion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.create(t, 1)

	updated, err := f.manager.NavigateToQuestion(ctx, s.ID, 32)
	require.NoError(t, err)
	assert.Equal(t, 32, updated.CurrentQuestionIndex)

	for _, idx := range []int{-1, 33} {
		_, err = f.manager.NavigateToQuestion(ctx, s.ID, idx)
		assert.ErrorIs(t, err, service.ErrOutOfRange)
		assert.ErrorIs(t, err, service.ErrValidation)
	}

	stored, err := f.manager.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 32, stored.CurrentQuestionIndex)
}

func TestPauseAndResume(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.create(t, 1)

	same, err := f.manager.ResumeSession(ctx, s.ID)
	require.NoError(t, err, "resuming an active session is a no-op")
	assert.Equal(t, testsession.StatusActive, same.Status)

	paused, err := f.manager.PauseSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, testsession.StatusPaused, paused.Status)

	_, err = f.manager.PauseSession(ctx, s.ID)
	assert.ErrorIs(t, err, service.ErrStateConflict)

	_, err = f.manager.CompleteSession(ctx, s.ID)
	assert.ErrorIs(t, err, service.ErrStateConflict, "completion requires an active session")

	resumed, err := f.manager.ResumeSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, testsession.StatusActive, resumed.Status)

	_, err = f.manager.CompleteSession(ctx, s.ID)
	require.NoError(t, err)
	_, err = f.manager.ResumeSession(ctx, s.ID)
	assert.ErrorIs(t, err, service.ErrStateConflict)
}

func TestCompleteSessionEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.create(t, 42)
	require.Len(t, s.Questions, 33)

	f.answerAll(t, s, 30)
	f.clock.Advance(25 * time.Minute)

	res, err := f.manager.CompleteSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, res.Score)
	assert.True(t, res.Passed)
	assert.Equal(t, 0, res.UnansweredQuestions)
	assert.Len(t, res.Mistakes, 3)
	assert.Equal(t, 25*60, res.TimeTakenSeconds)
	assert.Equal(t, testresult.TypeNormal, res.Type)

	stored, err := f.manager.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, testsession.StatusCompleted, stored.Status)
	require.NotNil(t, stored.EndTime)
	assert.Equal(t, f.clock.Now(), *stored.EndTime)
}

func TestCompleteSessionFailsBelowThreshold(t *testing.T) {
	f := newFixture(t)
	s := f.create(t, 7)
	f.answerAll(t, s, 29)

	res, err := f.manager.CompleteSession(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, 29, res.Score)
	assert.False(t, res.Passed)
}

func TestCompleteSessionIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.create(t, 3)
	f.answerAll(t, s, 31)

	first, err := f.manager.CompleteSession(ctx, s.ID)
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	second, err := f.manager.CompleteSession(ctx, s.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Score, second.Score)

	all, err := f.results.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	completed := 0
	for _, e := range f.events.Events() {
		if e.Type == events.EventTypeSessionCompleted {
			completed++
		}
	}
	assert.Equal(t, 1, completed)
}

func TestCompleteSessionAfterCleanupPrunedSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.create(t, 3)
	f.answerAll(t, s, 31)

	first, err := f.manager.CompleteSession(ctx, s.ID)
	require.NoError(t, err)

	require.NoError(t, repository.NewRetention(f.sessions, f.results, nil).Cleanup(ctx))
	_, err = f.manager.GetSession(ctx, s.ID)
	require.ErrorIs(t, err, service.ErrNotFound)

	again, err := f.manager.CompleteSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	_, err = f.manager.CompleteSession(ctx, "missing")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestCompleteSessionConcurrentCalls(t *testing.T) {
	f := newFixture(t)
	s := f.create(t, 3)

	ids := make(chan string, 5)
	for i := 0; i < 5; i++ {
		go func() {
			res, err := f.manager.CompleteSession(context.Background(), s.ID)
			if err != nil {
				ids <- "error: " + err.Error()
				return
			}
			ids <- res.ID
		}()
	}
	first := <-ids
	for i := 1; i < 5; i++ {
		assert.Equal(t, first, <-ids)
	}
}

func TestCompleteSessionRetriesAfterQuota(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.create(t, 5)
	f.answerAll(t, s, 33)

	f.backend.FailNextSets(1)
	res, err := f.manager.CompleteSession(ctx, s.ID)
	require.NoError(t, err)

	stored, err := f.manager.GetResult(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, 33, stored.Score)
}

func TestCompleteSessionSurfacesStorageError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.create(t, 5)

	f.backend.FailNextSets(2)
	_, err := f.manager.CompleteSession(ctx, s.ID)
	require.Error(t, err)

	var se *store.StorageError
	require.ErrorAs(t, err, &se)
	assert.True(t, store.IsQuota(err))

	stored, err := f.manager.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, testsession.StatusActive, stored.Status, "a failed completion leaves the session open")

	res, err := f.manager.CompleteSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, res.SessionID)
}

func TestMistakePracticeFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.create(t, 11)
	f.answerAll(t, s, 30)
	_, err := f.manager.CompleteSession(ctx, s.ID)
	require.NoError(t, err)

	practice, err := f.manager.CreateMistakePracticeSession(ctx, mistakes.Options{Type: testsession.PracticeAll}, "de")
	require.NoError(t, err)
	require.Len(t, practice.Questions, 3)
	assert.True(t, practice.IsMistakePractice())
	assert.Equal(t, testsession.FilterMistakePractice, practice.StateFilter)
	assert.Equal(t, 3, practice.Practice.TotalMistakes)

	// correct two of the three mistakes
	for i, q := range practice.Questions {
		opt := q.Solution
		if i == 2 {
			opt = wrongOption(q)
		}
		_, err := f.manager.SubmitAnswer(ctx, practice.ID, q.ID, opt)
		require.NoError(t, err)
	}
	res, err := f.manager.CompleteSession(ctx, practice.ID)
	require.NoError(t, err)
	assert.Equal(t, testresult.TypeMistakePractice, res.Type)
	assert.Equal(t, 2, res.Score)
	assert.False(t, res.Passed)

	left, err := f.mistakes.AllMistakes(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, practice.Questions[2].ID, left[0].ID)
}

// newResultsFull rejects writes of results that are not stored yet while on
// is set. Rewrites of existing results still succeed.
type newResultsFull struct {
	*store.MemoryBackend
	on atomic.Bool
}

func (b *newResultsFull) Set(ctx context.Context, key string, value []byte) error {
	if b.on.Load() && strings.HasPrefix(key, "test:results/") {
		if _, err := b.MemoryBackend.Get(ctx, key); errors.Is(err, store.ErrKeyNotFound) {
			return store.ErrQuotaExceeded
		}
	}
	return b.MemoryBackend.Set(ctx, key, value)
}

func TestFailedPracticeCompletionKeepsMistakes(t *testing.T) {
	var full *newResultsFull
	f := newFixtureOn(t, func(m *store.MemoryBackend) store.Backend {
		full = &newResultsFull{MemoryBackend: m}
		return full
	})
	ctx := context.Background()

	s := f.create(t, 11)
	f.answerAll(t, s, 28)
	_, err := f.manager.CompleteSession(ctx, s.ID)
	require.NoError(t, err)

	before, err := f.mistakes.AllMistakes(ctx)
	require.NoError(t, err)
	require.Len(t, before, 5)

	practice, err := f.manager.CreateMistakePracticeSession(ctx, mistakes.Options{Type: testsession.PracticeAll}, "de")
	require.NoError(t, err)
	f.answerAll(t, practice, len(practice.Questions))

	full.on.Store(true)
	_, err = f.manager.CompleteSession(ctx, practice.ID)
	require.Error(t, err)
	assert.True(t, store.IsQuota(err))

	after, err := f.mistakes.AllMistakes(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids(before), ids(after), "a failed completion must not prune the mistake history")

	stored, err := f.manager.GetSession(ctx, practice.ID)
	require.NoError(t, err)
	assert.Equal(t, testsession.StatusActive, stored.Status)

	full.on.Store(false)
	res, err := f.manager.CompleteSession(ctx, practice.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Score)

	left, err := f.mistakes.AllMistakes(ctx)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func ids(qs []question.Question) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.ID
	}
	return out
}

func TestCreateMistakePracticeWithoutMistakes(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.CreateMistakePracticeSession(context.Background(), mistakes.Options{}, "de")
	assert.ErrorIs(t, err, service.ErrNoMistakes)

	_, err = f.manager.CreateMistakePracticeSession(context.Background(), mistakes.Options{Type: testsession.PracticeCategory}, "de")
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestAbandonSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.create(t, 1)

	abandoned, err := f.manager.AbandonSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, testsession.StatusAbandoned, abandoned.Status)
	assert.NotNil(t, abandoned.EndTime)

	_, err = f.manager.AbandonSession(ctx, s.ID)
	assert.ErrorIs(t, err, service.ErrStateConflict)

	_, err = f.manager.ActiveSession(ctx)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestAbandonStaleSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.create(t, 1)

	n, err := f.manager.AbandonStaleSessions(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.clock.Advance(24*time.Hour + time.Minute)
	n, err = f.manager.AbandonStaleSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := f.manager.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, testsession.StatusAbandoned, stored.Status)
}

func TestValidateSessionForSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	check, err := f.manager.ValidateSessionForSubmission(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, check.OK())
	assert.Equal(t, service.IssueSessionMissing, check.Errors[0].Code)

	s := f.create(t, 1)
	check, err = f.manager.ValidateSessionForSubmission(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, check.OK())
	assert.Contains(t, check.Warnings, service.Issue{Code: service.IssueUnanswered, Count: 33})
	assert.Contains(t, check.Warnings, service.Issue{Code: service.IssueTooFast})

	f.answerAll(t, s, 33)
	f.clock.Advance(10 * time.Minute)
	check, err = f.manager.ValidateSessionForSubmission(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, check.Warnings)

	_, err = f.manager.PauseSession(ctx, s.ID)
	require.NoError(t, err)
	check, err = f.manager.ValidateSessionForSubmission(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, service.IssueWrongStatus, check.Errors[0].Code)
}

func TestSaveProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.create(t, 1)

	working := s.Clone()
	working.Answers[s.Questions[0].ID] = question.OptionA
	working.CurrentQuestionIndex = 4
	working.Status = testsession.StatusCompleted // ignored
	require.NoError(t, f.manager.SaveProgress(ctx, working))

	stored, err := f.manager.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Answers, 1)
	assert.Equal(t, 4, stored.CurrentQuestionIndex)
	assert.Equal(t, testsession.StatusActive, stored.Status)

	bad := s.Clone()
	bad.Answers["foreign"] = question.OptionA
	assert.ErrorIs(t, f.manager.SaveProgress(ctx, bad), service.ErrValidation)

	_, err = f.manager.CompleteSession(ctx, s.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, f.manager.SaveProgress(ctx, working), service.ErrStateConflict)
}

func TestResultsAndNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.GetResult(ctx, "nope")
	assert.ErrorIs(t, err, service.ErrNotFound)
	_, err = f.manager.GetSession(ctx, "nope")
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.False(t, errors.Is(err, service.ErrStateConflict))

	s := f.create(t, 1)
	res, err := f.manager.CompleteSession(ctx, s.ID)
	require.NoError(t, err)

	list, err := f.manager.Results(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, res.ID, list[0].ID)
}
