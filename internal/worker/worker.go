// Package worker provides the bounded worker pools every pipeline stage
// runs on.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Job interface{}

type ProcessFunc func(ctx context.Context, job Job) error

type WorkerPool struct {
	name       string
	numWorkers int
	jobs       chan Job
	processor  ProcessFunc
	wg         sync.WaitGroup

	warned bool
	mu     sync.Mutex
}

func NewWorkerPool(name string, numWorkers int, bufferSize int, processor ProcessFunc) *WorkerPool {
	return &WorkerPool{
		name:       name,
		numWorkers: numWorkers,
		jobs:       make(chan Job, bufferSize),
		processor:  processor,
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 1; i <= wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-wp.jobs:
			if !ok {
				return
			}
			if err := wp.processor(ctx, job); err != nil {
				slog.Debug("job failed", "pool", wp.name, "worker", id, "error", err)
			}
		}
	}
}

// Submit blocks until the queue accepts the job.
func (wp *WorkerPool) Submit(job Job) {
	wp.checkPressure()
	wp.jobs <- job
}

// TrySubmit enqueues without blocking and reports whether the job was
// accepted. Streaming producers use this so a stalled consumer sheds
// load instead of stalling the stream.
func (wp *WorkerPool) TrySubmit(job Job) bool {
	wp.checkPressure()
	select {
	case wp.jobs <- job:
		return true
	default:
		slog.Warn("queue full, dropping job", "pool", wp.name, "capacity", cap(wp.jobs))
		return false
	}
}

// SubmitTimeout waits up to d for queue space, then drops. Polling
// producers use this: a short stall is fine, an unbounded one is not.
func (wp *WorkerPool) SubmitTimeout(job Job, d time.Duration) bool {
	wp.checkPressure()
	select {
	case wp.jobs <- job:
		return true
	case <-time.After(d):
		slog.Warn("queue still full after wait, dropping job", "pool", wp.name, "waited", d)
		return false
	}
}

// checkPressure warns once when the queue crosses half capacity and
// rearms once it drains back under.
func (wp *WorkerPool) checkPressure() {
	half := cap(wp.jobs) / 2
	if half == 0 {
		return
	}

	wp.mu.Lock()
	defer wp.mu.Unlock()

	depth := len(wp.jobs)
	if depth >= half && !wp.warned {
		wp.warned = true
		slog.Warn("queue half full", "pool", wp.name, "depth", depth, "capacity", cap(wp.jobs))
	} else if depth < half && wp.warned {
		wp.warned = false
	}
}

func (wp *WorkerPool) Stop() {
	close(wp.jobs)
	wp.wg.Wait()
}
