package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ratingd/internal/domain/model"
	"ratingd/internal/domain/types"
	"ratingd/pkg/logger"
	"ratingd/pkg/metrics"
)

// defaultWorkerCount bounds concurrency when none is configured. The
// limit exists for politeness toward external judge hosts, not for CPU.
const defaultWorkerCount = 4

// Handler settles a single member. Implementations must never panic the
// run: errors are reported through the result status.
type Handler interface {
	Handle(ctx context.Context, m model.Member) types.MemberResult
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, m model.Member) types.MemberResult

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, m model.Member) types.MemberResult {
	return f(ctx, m)
}

// Pool drains a job queue with a bounded number of workers.
type Pool struct {
	workerCount int
	queue       *Queue
	handler     Handler

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers over the queue.
func NewPool(workerCount int, queue *Queue, handler Handler, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	p := &Pool{
		workerCount: workerCount,
		queue:       queue,
		handler:     handler,
	}

	// Apply all options
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Run drains the queue and returns every member result. It blocks until
// the queue is closed and fully processed, or ctx is canceled.
func (p *Pool) Run(ctx context.Context) []types.MemberResult {
	results := make(chan types.MemberResult, cap(p.queue.jobs))

	metrics.UpdateActiveWorkers(p.workerCount)
	defer metrics.UpdateActiveWorkers(0)

	var wg sync.WaitGroup
	for i := 0; i < p.workerCount; i++ {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			p.work(ctx, name, results)
		}(fmt.Sprintf("worker-%d", i))
	}

	wg.Wait()
	close(results)

	collected := make([]types.MemberResult, 0, len(results))
	for res := range results {
		collected = append(collected, res)
	}
	return collected
}

// work is one worker loop.
func (p *Pool) work(ctx context.Context, name string, results chan<- types.MemberResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.queue.Dequeue():
			if !ok {
				return
			}
			metrics.UpdateQueueSize(p.queue.Len())

			start := time.Now()
			res := p.handle(ctx, job.Member)
			metrics.RecordSettlementDuration(time.Since(start).Seconds())

			switch res.Status {
			case types.MemberSettled:
				metrics.RecordMemberSettled()
			case types.MemberSkipped:
				metrics.RecordMemberSkipped()
			case types.MemberFailed:
				metrics.RecordSettlementFailure()
				if p.logger != nil {
					p.logger.Error(ctx, "member settlement failed",
						logger.String("worker", name),
						logger.String("member", res.MemberID),
						logger.String("cause", res.Err),
					)
				}
			}

			results <- res
		}
	}
}

// handle invokes the handler with panic isolation: one broken member
// must not take down the run.
func (p *Pool) handle(ctx context.Context, m model.Member) (res types.MemberResult) {
	defer func() {
		if r := recover(); r != nil {
			res = types.MemberResult{
				MemberID: m.ID,
				Name:     m.Name,
				Status:   types.MemberFailed,
				Err:      fmt.Sprintf("panic: %v", r),
			}
		}
	}()
	return p.handler.Handle(ctx, m)
}
