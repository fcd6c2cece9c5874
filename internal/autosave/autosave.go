package autosave

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lid-trainer/backend/internal/domain/question"
	"github.com/lid-trainer/backend/internal/domain/testsession"
	"github.com/lid-trainer/backend/internal/infrastructure/metrics"
)

type Trigger string

const (
	TriggerInterval   Trigger = "interval"
	TriggerDebounce   Trigger = "debounce"
	TriggerNavigation Trigger = "navigation"
	TriggerHidden     Trigger = "hidden"
	TriggerUnload     Trigger = "unload"
	TriggerManual     Trigger = "manual"
)

const (
	DefaultInterval = 30 * time.Second
	DefaultDebounce = 2 * time.Second
)

type Config struct {
	Interval time.Duration
	Debounce time.Duration
}

func DefaultConfig() Config {
	return Config{Interval: DefaultInterval, Debounce: DefaultDebounce}
}

// Saver persists the progress of a working copy.
type Saver interface {
	SaveProgress(ctx context.Context, s *testsession.TestSession) error
}

// Source returns a copy of the current working state.
type Source func() *testsession.TestSession

// snapshot is the part of a session an auto-save compares.
type snapshot struct {
	answers map[string]question.Option
	index   int
}

func take(s *testsession.TestSession) snapshot {
	answers := make(map[string]question.Option, len(s.Answers))
	for k, v := range s.Answers {
		answers[k] = v
	}
	return snapshot{answers: answers, index: s.CurrentQuestionIndex}
}

func (a snapshot) equal(b snapshot) bool {
	if a.index != b.index || len(a.answers) != len(b.answers) {
		return false
	}
	for k, v := range a.answers {
		if w, ok := b.answers[k]; !ok || w != v {
			return false
		}
	}
	return true
}

// Coordinator decides when a working copy is flushed. Every flush reads
// the latest state from the source, so a save scheduled earlier is
// superseded by whatever the state is when it runs.
type Coordinator struct {
	saver   Saver
	source  Source
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Metrics

	flushMu sync.Mutex // one write at a time
	mu      sync.Mutex
	last    snapshot
	timer   *time.Timer
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a coordinator whose baseline is the current source state,
// which is assumed to be persisted already.
func New(saver Saver, source Source, cfg Config, logger *zap.Logger, m *metrics.Metrics) *Coordinator {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		saver:   saver,
		source:  source,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		last:    take(source()),
	}
}

// Start runs the interval loop until Stop or ctx is done. The loop only
// saves while the working copy is active.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(c.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.source().Status != testsession.StatusActive {
					continue
				}
				if _, err := c.Flush(ctx, TriggerInterval); err != nil {
					c.logger.Warn("interval auto-save failed", zap.Error(err))
				}
			}
		}
	}()
}

// Stop ends the interval loop and drops any pending debounce.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// AnswerChanged schedules a flush after the debounce delay, replacing any
// flush already scheduled.
func (c *Coordinator) AnswerChanged() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.cfg.Debounce, func() {
		if _, err := c.Flush(context.Background(), TriggerDebounce); err != nil {
			c.logger.Warn("debounced auto-save failed", zap.Error(err))
		}
	})
}

func (c *Coordinator) NavigationChanged(ctx context.Context) error {
	_, err := c.Flush(ctx, TriggerNavigation)
	return err
}

// VisibilityChanged flushes immediately when the client goes to the
// background.
func (c *Coordinator) VisibilityChanged(ctx context.Context, hidden bool) error {
	if !hidden {
		return nil
	}
	_, err := c.Flush(ctx, TriggerHidden)
	return err
}

// Unload makes a last synchronous flush and stops the coordinator. It
// reports whether changes remain unsaved so the client can warn the user.
func (c *Coordinator) Unload(ctx context.Context) bool {
	c.Stop()
	if _, err := c.Flush(ctx, TriggerUnload); err != nil {
		c.logger.Warn("unload auto-save failed", zap.Error(err))
	}
	return c.Dirty()
}

// Dirty reports whether the working state differs from the last save.
func (c *Coordinator) Dirty() bool {
	cur := take(c.source())
	c.mu.Lock()
	defer c.mu.Unlock()
	return !cur.equal(c.last)
}

// Flush saves the working state if it differs from the last save. It
// reports whether a write happened.
func (c *Coordinator) Flush(ctx context.Context, trigger Trigger) (bool, error) {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	current := c.source()
	snap := take(current)

	c.mu.Lock()
	unchanged := snap.equal(c.last)
	c.mu.Unlock()
	if unchanged {
		c.metrics.AutosaveSkip(string(trigger))
		return false, nil
	}

	if err := c.saver.SaveProgress(ctx, current); err != nil {
		return false, err
	}

	c.mu.Lock()
	c.last = snap
	c.mu.Unlock()
	c.metrics.AutosaveFlushed(string(trigger))
	c.logger.Debug("auto-saved session",
		zap.String("session", current.ID),
		zap.String("trigger", string(trigger)),
		zap.Int("answers", len(snap.answers)),
	)
	return true, nil
}

// MarkSaved sets the baseline to s, for state persisted by other means.
func (c *Coordinator) MarkSaved(s *testsession.TestSession) {
	snap := take(s)
	c.mu.Lock()
	c.last = snap
	c.mu.Unlock()
}
