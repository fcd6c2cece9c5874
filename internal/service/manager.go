// internal/service/manager.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lid-trainer/backend/internal/domain/question"
	"github.com/lid-trainer/backend/internal/domain/testresult"
	"github.com/lid-trainer/backend/internal/domain/testsession"
	"github.com/lid-trainer/backend/internal/events"
	"github.com/lid-trainer/backend/internal/infrastructure/metrics"
	"github.com/lid-trainer/backend/internal/mistakes"
	"github.com/lid-trainer/backend/internal/repository"
	"github.com/lid-trainer/backend/internal/sampling"
)

// Sampler selects the questions of a new session.
type Sampler interface {
	Generate(ctx context.Context, cfg sampling.Config, seed *int64) (*sampling.Selection, error)
}

// Deps are the collaborators of a Manager. Publisher, Metrics and Logger
// may be nil.
type Deps struct {
	Sessions    *repository.SessionRepository
	Results     *repository.ResultRepository
	Preferences *repository.PreferencesRepository
	Sampler     Sampler
	Mistakes    *mistakes.Generator
	Publisher   events.Publisher
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
}

// Manager owns every mutation of test sessions. Operations are serialized
// within the process so the one-open-session rule and idempotent completion
// hold under concurrent requests.
type Manager struct {
	sessions  *repository.SessionRepository
	results   *repository.ResultRepository
	prefs     *repository.PreferencesRepository
	sampler   Sampler
	mistakes  *mistakes.Generator
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time

	mu sync.Mutex
}

func NewManager(d Deps) *Manager {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	publisher := d.Publisher
	if publisher == nil {
		publisher = &events.Recorder{}
	}
	return &Manager{
		sessions:  d.Sessions,
		results:   d.Results,
		prefs:     d.Preferences,
		sampler:   d.Sampler,
		mistakes:  d.Mistakes,
		publisher: publisher,
		metrics:   d.Metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock replaces the time source.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

func (m *Manager) publish(ctx context.Context, e events.Event) {
	if err := m.publisher.Publish(ctx, e); err != nil {
		m.logger.Warn("failed to publish event",
			zap.String("type", string(e.Type)),
			zap.String("session", e.SessionID),
			zap.Error(err),
		)
	}
}

func (m *Manager) load(ctx context.Context, id string) (*testsession.TestSession, error) {
	s, err := m.sessions.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return s, err
}

func (m *Manager) save(ctx context.Context, s *testsession.TestSession) error {
	s.UpdatedAt = m.now()
	return m.sessions.Save(ctx, s)
}

// ensureNoOpenSession fails when a session is active or paused. An open
// session that has gone stale is abandoned instead of blocking.
func (m *Manager) ensureNoOpenSession(ctx context.Context, op string) error {
	open, err := m.sessions.FindActive(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if open.IsStale(m.now()) {
		return m.abandon(ctx, open, "stale")
	}
	return conflict(op, open)
}

func (m *Manager) GetSession(ctx context.Context, id string) (*testsession.TestSession, error) {
	return m.load(ctx, id)
}

// ActiveSession returns the session that is active or paused.
func (m *Manager) ActiveSession(ctx context.Context) (*testsession.TestSession, error) {
	s, err := m.sessions.FindActive(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("active session: %w", ErrNotFound)
	}
	return s, err
}

func (m *Manager) GetResult(ctx context.Context, id string) (*testresult.TestResult, error) {
	res, err := m.results.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("result %s: %w", id, ErrNotFound)
	}
	return res, err
}

func (m *Manager) Results(ctx context.Context) ([]*testresult.TestResult, error) {
	return m.results.List(ctx)
}

// CreateSession samples questions for cfg and stores a new active session.
func (m *Manager) CreateSession(ctx context.Context, cfg testsession.SessionConfig) (*testsession.TestSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureNoOpenSession(ctx, "create session"); err != nil {
		return nil, err
	}

	sc := sampling.Config{
		State:         strings.ToUpper(strings.TrimSpace(cfg.State)),
		QuestionCount: cfg.QuestionCount,
		Language:      cfg.Language,
	}
	if sc.QuestionCount == 0 {
		sc.QuestionCount = testsession.QuestionCount
	}
	if sc.Language == "" {
		sc.Language = question.Canonical
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	seed := m.resolveSeed(ctx, cfg.Seed)
	sel, err := m.sampler.Generate(ctx, sc, seed)
	if err != nil {
		if errors.Is(err, sampling.ErrInvalidConfig) {
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return nil, fmt.Errorf("failed to select questions: %w", err)
	}
	if len(sel.Questions) == 0 {
		return nil, fmt.Errorf("%w: no questions available for state %q", ErrValidation, sc.State)
	}

	s := testsession.New(sc.State, sc.Language, sel.Questions, m.now())
	s.Seed = seed
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}

	m.logger.Info("session created",
		zap.String("session", s.ID),
		zap.String("state", s.StateFilter),
		zap.Int("questions", len(s.Questions)),
		zap.Int("pool", sel.Metadata.PoolSize),
		zap.Int("state_questions", sel.Metadata.StateCount),
	)
	m.metrics.SessionCreated(string(testresult.TypeNormal))
	m.publish(ctx, events.NewSessionCreatedEvent(s.ID, string(testresult.TypeNormal)))
	return s, nil
}

// resolveSeed applies the seed policy: an explicit seed wins, otherwise the
// shared seed is used when randomization is enabled. Failing to read or
// create the shared seed degrades to unseeded sampling.
func (m *Manager) resolveSeed(ctx context.Context, explicit *int64) *int64 {
	if explicit != nil {
		s := *explicit
		return &s
	}
	if m.prefs == nil {
		return nil
	}
	on, err := m.prefs.Randomization(ctx)
	if err != nil {
		m.logger.Warn("failed to read randomization flag", zap.Error(err))
		return nil
	}
	if !on {
		return nil
	}
	seed, err := m.prefs.EnsureSeed(ctx)
	if err != nil {
		m.logger.Warn("failed to obtain shared seed, sampling unseeded", zap.Error(err))
		return nil
	}
	return &seed
}

// CreateMistakePracticeSession builds a session from past mistakes.
func (m *Manager) CreateMistakePracticeSession(ctx context.Context, opts mistakes.Options, language string) (*testsession.TestSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureNoOpenSession(ctx, "create practice session"); err != nil {
		return nil, err
	}
	if language == "" {
		language = question.Canonical
	}
	if !question.IsLanguage(language) {
		return nil, fmt.Errorf("%w: language %q is not supported", ErrValidation, language)
	}

	set, err := m.mistakes.CreatePracticeSet(ctx, opts)
	if errors.Is(err, mistakes.ErrInvalidOptions) {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if err != nil {
		return nil, err
	}
	if len(set.Questions) == 0 {
		return nil, ErrNoMistakes
	}

	s := testsession.NewMistakePractice(language, set.Questions, set.Provenance, m.now())
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}

	m.logger.Info("practice session created",
		zap.String("session", s.ID),
		zap.String("type", string(set.Provenance.Type)),
		zap.Int("questions", len(s.Questions)),
		zap.Int("mistakes", set.TotalMistakes),
	)
	m.metrics.SessionCreated(string(testresult.TypeMistakePractice))
	m.publish(ctx, events.NewSessionCreatedEvent(s.ID, string(testresult.TypeMistakePractice)))
	return s, nil
}

// SubmitAnswer records answer for questionID. The option itself is not
// checked here; an invalid option simply never scores.
func (m *Manager) SubmitAnswer(ctx context.Context, sessionID, questionID string, answer question.Option) (*testsession.TestSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status != testsession.StatusActive {
		return nil, conflict("submit answer", s, testsession.StatusActive)
	}
	if err := s.Answer(questionID, answer); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Manager) NavigateToQuestion(ctx context.Context, sessionID string, index int) (*testsession.TestSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !s.Status.Open() {
		return nil, conflict("navigate", s, testsession.StatusActive, testsession.StatusPaused)
	}
	if err := s.Navigate(index); err != nil {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, index, len(s.Questions))
	}
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Manager) PauseSession(ctx context.Context, sessionID string) (*testsession.TestSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status != testsession.StatusActive {
		return nil, conflict("pause", s, testsession.StatusActive)
	}
	if err := s.Transition(testsession.StatusPaused, m.now()); err != nil {
		return nil, conflict("pause", s, testsession.StatusActive)
	}
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// ResumeSession leaves the session active. Resuming an active session is a
// no-op.
func (m *Manager) ResumeSession(ctx context.Context, sessionID string) (*testsession.TestSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	switch s.Status {
	case testsession.StatusActive:
		return s, nil
	case testsession.StatusPaused:
		if err := s.Transition(testsession.StatusActive, m.now()); err != nil {
			return nil, err
		}
		if err := m.save(ctx, s); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, conflict("resume", s, testsession.StatusActive, testsession.StatusPaused)
	}
}

// AbandonSession ends an unfinished session without scoring it.
func (m *Manager) AbandonSession(ctx context.Context, sessionID string) (*testsession.TestSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := m.abandon(ctx, s, "cancelled"); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Manager) abandon(ctx context.Context, s *testsession.TestSession, reason string) error {
	if !s.Status.CanTransition(testsession.StatusAbandoned) {
		return conflict("abandon", s, testsession.StatusSetup, testsession.StatusActive, testsession.StatusPaused)
	}
	if err := s.Transition(testsession.StatusAbandoned, m.now()); err != nil {
		return err
	}
	if err := m.save(ctx, s); err != nil {
		return err
	}
	m.logger.Info("session abandoned", zap.String("session", s.ID), zap.String("reason", reason))
	m.metrics.SessionAbandoned(reason)
	m.publish(ctx, events.NewSessionAbandonedEvent(s.ID, reason))
	return nil
}

// AbandonStaleSessions abandons every unfinished session started more than
// a day ago. Failures are logged per session and do not stop the sweep.
func (m *Manager) AbandonStaleSessions(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stale, err := m.sessions.FindStale(ctx, m.now())
	if err != nil {
		return 0, err
	}
	n := 0
	var errs []error
	for _, s := range stale {
		if err := m.abandon(ctx, s, "stale"); err != nil {
			m.logger.Error("failed to abandon stale session", zap.String("session", s.ID), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

// SaveProgress persists the answers and position of a client working copy.
// Everything else is taken from the stored session, so a late auto-save can
// never reopen or rewind a session. Repeated saves are last-write-wins.
func (m *Manager) SaveProgress(ctx context.Context, working *testsession.TestSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.load(ctx, working.ID)
	if err != nil {
		return err
	}
	if !s.Status.Open() {
		return conflict("save progress", s, testsession.StatusActive, testsession.StatusPaused)
	}

	answers := make(map[string]question.Option, len(working.Answers))
	for qid, opt := range working.Answers {
		if !s.HasQuestion(qid) {
			return fmt.Errorf("%w: question %s is not part of session %s", ErrValidation, qid, s.ID)
		}
		answers[qid] = opt
	}
	if err := s.Navigate(working.CurrentQuestionIndex); err != nil {
		return fmt.Errorf("%w: %w", ErrOutOfRange, err)
	}
	s.Answers = answers
	return m.save(ctx, s)
}
