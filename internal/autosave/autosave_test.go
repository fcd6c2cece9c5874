package autosave_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lid-trainer/backend/internal/autosave"
	"github.com/lid-trainer/backend/internal/domain/question"
	"github.com/lid-trainer/backend/internal/domain/testsession"
)

type recordingSaver struct {
	mu    sync.Mutex
	saved []*testsession.TestSession
	err   error
}

func (r *recordingSaver) SaveProgress(_ context.Context, s *testsession.TestSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, s)
	return nil
}

func (r *recordingSaver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saved)
}

func (r *recordingSaver) last() *testsession.TestSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saved[len(r.saved)-1]
}

// working is a mutable session guarded like a client working copy.
type working struct {
	mu sync.Mutex
	s  *testsession.TestSession
}

func newWorking() *working {
	qs := []question.Question{{ID: "q1"}, {ID: "q2"}, {ID: "q3"}}
	return &working{s: testsession.New("", "de", qs, time.Now())}
}

func (w *working) source() *testsession.TestSession {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.s.Clone()
}

func (w *working) answer(id string, o question.Option) {
	w.mu.Lock()
	w.s.Answers[id] = o
	w.mu.Unlock()
}

func (w *working) navigate(i int) {
	w.mu.Lock()
	w.s.CurrentQuestionIndex = i
	w.mu.Unlock()
}

func (w *working) setStatus(st testsession.Status) {
	w.mu.Lock()
	w.s.Status = st
	w.mu.Unlock()
}

var slow = autosave.Config{Interval: time.Hour, Debounce: time.Hour}

func TestFlushSkipsUnchangedState(t *testing.T) {
	saver := &recordingSaver{}
	w := newWorking()
	c := autosave.New(saver, w.source, slow, nil, nil)

	flushed, err := c.Flush(context.Background(), autosave.TriggerManual)
	require.NoError(t, err)
	assert.False(t, flushed)
	assert.Zero(t, saver.count())

	w.answer("q1", question.OptionB)
	assert.True(t, c.Dirty())
	flushed, err = c.Flush(context.Background(), autosave.TriggerManual)
	require.NoError(t, err)
	assert.True(t, flushed)
	assert.False(t, c.Dirty())

	flushed, err = c.Flush(context.Background(), autosave.TriggerManual)
	require.NoError(t, err)
	assert.False(t, flushed)
	assert.Equal(t, 1, saver.count())
}

func TestChangedAnswerValueIsDirty(t *testing.T) {
	saver := &recordingSaver{}
	w := newWorking()
	w.answer("q1", question.OptionA)
	c := autosave.New(saver, w.source, slow, nil, nil)

	w.answer("q1", question.OptionC)
	assert.True(t, c.Dirty())
}

func TestNavigationFlushesImmediately(t *testing.T) {
	saver := &recordingSaver{}
	w := newWorking()
	c := autosave.New(saver, w.source, slow, nil, nil)

	w.navigate(2)
	require.NoError(t, c.NavigationChanged(context.Background()))
	assert.Equal(t, 1, saver.count())
	assert.Equal(t, 2, saver.last().CurrentQuestionIndex)
}

func TestVisibilityOnlyFlushesWhenHidden(t *testing.T) {
	saver := &recordingSaver{}
	w := newWorking()
	c := autosave.New(saver, w.source, slow, nil, nil)
	w.answer("q2", question.OptionD)

	require.NoError(t, c.VisibilityChanged(context.Background(), false))
	assert.Zero(t, saver.count())
	require.NoError(t, c.VisibilityChanged(context.Background(), true))
	assert.Equal(t, 1, saver.count())
}

func TestDebounceCoalescesChanges(t *testing.T) {
	saver := &recordingSaver{}
	w := newWorking()
	c := autosave.New(saver, w.source, autosave.Config{Interval: time.Hour, Debounce: 30 * time.Millisecond}, nil, nil)
	defer c.Stop()

	for _, id := range []string{"q1", "q2", "q3"} {
		w.answer(id, question.OptionA)
		c.AnswerChanged()
	}

	require.Eventually(t, func() bool { return saver.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Len(t, saver.last().Answers, 3, "the save carries the latest state")
}

func TestIntervalSavesOnlyWhileActive(t *testing.T) {
	saver := &recordingSaver{}
	w := newWorking()
	w.setStatus(testsession.StatusPaused)
	c := autosave.New(saver, w.source, autosave.Config{Interval: 5 * time.Millisecond, Debounce: time.Hour}, nil, nil)
	c.Start(context.Background())
	defer c.Stop()

	w.answer("q1", question.OptionB)
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, saver.count())

	w.setStatus(testsession.StatusActive)
	require.Eventually(t, func() bool { return saver.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestUnload(t *testing.T) {
	saver := &recordingSaver{}
	w := newWorking()
	c := autosave.New(saver, w.source, slow, nil, nil)
	c.Start(context.Background())

	w.answer("q1", question.OptionB)
	assert.False(t, c.Unload(context.Background()))
	assert.Equal(t, 1, saver.count())

	failing := &recordingSaver{err: errors.New("quota")}
	c = autosave.New(failing, w.source, slow, nil, nil)
	w.answer("q2", question.OptionB)
	assert.True(t, c.Unload(context.Background()))
}

func TestFailedFlushKeepsStateDirty(t *testing.T) {
	saver := &recordingSaver{err: errors.New("quota")}
	w := newWorking()
	c := autosave.New(saver, w.source, slow, nil, nil)

	w.answer("q1", question.OptionB)
	_, err := c.Flush(context.Background(), autosave.TriggerManual)
	assert.Error(t, err)
	assert.True(t, c.Dirty())
}

func TestMarkSaved(t *testing.T) {
	saver := &recordingSaver{}
	w := newWorking()
	c := autosave.New(saver, w.source, slow, nil, nil)

	w.answer("q1", question.OptionB)
	c.MarkSaved(w.source())
	assert.False(t, c.Dirty())
}
