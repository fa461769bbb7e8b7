package fetch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/carteira/internal/common"
)

// Queue runs indexed tasks through a fixed worker pool, releasing at most one
// task per delay. With a single worker, tasks run strictly in index order.
type Queue struct {
	workers int
	delay   time.Duration
	logger  *common.Logger
}

// NewQueue creates a task queue. workers below 1 is treated as 1; a
// non-positive delay disables throttling.
func NewQueue(workers int, delay time.Duration, logger *common.Logger) *Queue {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Queue{workers: workers, delay: delay, logger: logger}
}

// Workers returns the pool size.
func (q *Queue) Workers() int {
	return q.workers
}

func (q *Queue) newLimiter() *rate.Limiter {
	if q.delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(q.delay), 1)
}

// Run calls task(ctx, i) for i in [0, n). It blocks until every released task
// has finished. If ctx is cancelled, unreleased tasks are skipped and the
// context error is returned. A panicking task is logged and counted as done.
func (q *Queue) Run(ctx context.Context, n int, task func(ctx context.Context, i int)) error {
	if n <= 0 {
		return nil
	}

	limiter := q.newLimiter()
	jobs := make(chan int)

	var wg sync.WaitGroup
	workers := min(q.workers, n)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				q.runTask(ctx, i, task)
			}
		}()
	}

	var runErr error
dispatch:
	for i := 0; i < n; i++ {
		if err := limiter.Wait(ctx); err != nil {
			runErr = ctx.Err()
			if runErr == nil {
				runErr = err
			}
			break
		}
		select {
		case jobs <- i:
		case <-ctx.Done():
			runErr = ctx.Err()
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	return runErr
}

func (q *Queue) runTask(ctx context.Context, i int, task func(ctx context.Context, i int)) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error().
				Int("task", i).
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", string(debug.Stack())).
				Msg("Recovered from panic in fetch task")
		}
	}()
	task(ctx, i)
}
