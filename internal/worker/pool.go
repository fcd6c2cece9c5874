// worker/pool.go
package worker

import (
	"context"
	"sync"
)

type Job[T any] func(ctx context.Context) (T, error)

type Result[T any] struct {
	JobID  string
	Output T
	Err    error
}

type Pool[T any] struct {
	ctx     context.Context
	jobs    chan jobWrapper[T]
	results chan Result[T]
	wg      sync.WaitGroup
	once    sync.Once
}

type jobWrapper[T any] struct {
	id string
	fn Job[T]
}

// NewPool starts workerCount workers. Jobs submitted after ctx is done are
// reported with ctx.Err() without running.
func NewPool[T any](ctx context.Context, workerCount int, bufferSize int) *Pool[T] {
	if workerCount < 1 {
		workerCount = 1
	}
	p := &Pool[T]{
		ctx:     ctx,
		jobs:    make(chan jobWrapper[T], bufferSize),
		results: make(chan Result[T], bufferSize),
	}

	p.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go p.worker()
	}

	return p
}

func (p *Pool[T]) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		if err := p.ctx.Err(); err != nil {
			p.results <- Result[T]{JobID: job.id, Err: err}
			continue
		}
		output, err := job.fn(p.ctx)
		p.results <- Result[T]{
			JobID:  job.id,
			Output: output,
			Err:    err,
		}
	}
}

func (p *Pool[T]) Submit(id string, fn Job[T]) {
	p.jobs <- jobWrapper[T]{id: id, fn: fn}
}

// Close stops accepting jobs. Results is closed once every submitted job
// has reported.
func (p *Pool[T]) Close() {
	p.once.Do(func() {
		close(p.jobs)
		go func() {
			p.wg.Wait()
			close(p.results)
		}()
	})
}

func (p *Pool[T]) Results() <-chan Result[T] {
	return p.results
}
