// Package worker drains finished match records from the queue into history.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/fifteen/internal/adapters/mq/queue"
	"github.com/okian/fifteen/pkg/logger"
	"github.com/okian/fifteen/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Writer persists one match record. Writing the same record twice must be
// harmless.
type Writer interface {
	Save(ctx context.Context, r queue.Record) error
}

// Queue defines how workers receive records.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Record
}

// InMemoryWorker writes records read from a Queue.
type InMemoryWorker struct {
	queue   Queue
	writer  Writer
	name    string
	retries int
	backoff time.Duration

	processed *atomic.Int64
	done      chan struct{}
	logger    logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, w Writer, opts ...Option) *InMemoryWorker {
	wk := &InMemoryWorker{
		queue:     q,
		writer:    w,
		name:      "worker",
		retries:   2,
		backoff:   50 * time.Millisecond,
		processed: new(atomic.Int64),
		done:      make(chan struct{}),
		logger:    logger.Named("worker"),
	}
	for _, opt := range opts {
		opt(wk)
	}
	wk.logger = wk.logger.With(logger.String("worker", wk.name))
	return wk
}

// Run drains the queue until it is closed or ctx is cancelled.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	records := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-records:
			if !ok {
				return
			}
			if err := w.process(ctx, r); err != nil {
				w.logger.Error(ctx, "match record not persisted",
					logger.String("match_id", r.MatchID),
					logger.Error(err),
				)
			}
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, r queue.Record) error { //nolint:gocritic // hugeParam: records travel by value
	start := time.Now()
	defer func() {
		metrics.RecordReportPersistLatency(float64(time.Since(start).Milliseconds()))
	}()

	var err error
	for attempt := 0; attempt <= w.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(w.backoff * time.Duration(attempt)):
			case <-ctx.Done():
				return fmt.Errorf("persist %s: %w", r.MatchID, ctx.Err())
			}
		}
		if err = w.writer.Save(ctx, r); err == nil {
			w.processed.Add(1)
			metrics.RecordReportPersisted()
			return nil
		}
		w.logger.Warn(ctx, "persist attempt failed",
			logger.String("match_id", r.MatchID),
			logger.Int("attempt", attempt+1),
			logger.Error(err),
		)
	}
	metrics.RecordReportPersistError()
	metrics.RecordErrorByComponent("worker", "persist_error")
	return fmt.Errorf("persist %s after %d attempts: %w", r.MatchID, w.retries+1, err)
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	processed atomic.Int64
	logger    logger.Logger
}

// NewPool creates workerCount workers; a non-positive count uses one per CPU.
func NewPool(workerCount int, q Queue, w Writer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(q, w, wopts...)
		p.workers[i].processed = &p.processed
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns how many records the pool has persisted.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("shutdown timed out: %w", shutdownCtx.Err())
		}
	}
	return nil
}
