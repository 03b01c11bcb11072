package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/baharkarakas/coursepay/internal/metrics"
)

// Dispatcher runs fire-and-forget side effects. Failures are logged, never returned.
type Dispatcher interface {
	Dispatch(name string, fn func(ctx context.Context) error)
}

const jobTimeout = 30 * time.Second

type job struct {
	name string
	fn   func(ctx context.Context) error
}

type Pool struct {
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	jobs   chan job
	log    *slog.Logger
}

func NewPool(n int, log *slog.Logger) *Pool {
	if n <= 0 {
		n = 1
	}
	p := &Pool{jobs: make(chan job, 1024), log: log}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				metrics.WorkerQueueDepth.Dec()
				p.run(j)
			}
		}()
	}
	return p
}

// Dispatch queues fn. When the queue is full or the pool is stopped the job is
// dropped and counted as failed.
func (p *Pool) Dispatch(name string, fn func(ctx context.Context) error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.log.Warn("worker pool stopped, dropping job", "job", name)
		metrics.BestEffortFailures.WithLabelValues(name).Inc()
		return
	}
	select {
	case p.jobs <- job{name: name, fn: fn}:
		metrics.WorkerQueueDepth.Inc()
	default:
		p.log.Warn("worker queue full, dropping job", "job", name)
		metrics.BestEffortFailures.WithLabelValues(name).Inc()
	}
}

func (p *Pool) run(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	BestEffort(ctx, p.log, j.name, j.fn)
}

// Stop drains queued jobs and waits for the workers to exit. Safe to call twice.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// Inline runs every job on the caller's goroutine.
type Inline struct {
	Log *slog.Logger
}

func (d Inline) Dispatch(name string, fn func(ctx context.Context) error) {
	BestEffort(context.Background(), d.Log, name, fn)
}

// BestEffort runs fn and swallows its error or panic after logging it.
// It reports whether fn succeeded.
func BestEffort(ctx context.Context, log *slog.Logger, name string, fn func(ctx context.Context) error) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("side effect panicked", "effect", name, "err", fmt.Sprint(rec))
			metrics.BestEffortFailures.WithLabelValues(name).Inc()
			ok = false
		}
	}()
	if err := fn(ctx); err != nil {
		log.Error("side effect failed", "effect", name, "err", err)
		metrics.BestEffortFailures.WithLabelValues(name).Inc()
		return false
	}
	return true
}
