package pipeline

import (
	"context"
	"sync"
)

// forEach runs fn for every item on a bounded pool of workers. The first
// error cancels the remaining work and is returned; otherwise a canceled
// ctx yields ctx.Err().
func forEach[T any](ctx context.Context, concurrency int, items []T, fn func(ctx context.Context, item T) error) error {
	if len(items) == 0 {
		return ctx.Err()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := max(1, min(concurrency, len(items)))
	tasks := make(chan T)
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	worker := func() {
		defer wg.Done()
		for item := range tasks {
			if ctx.Err() != nil {
				continue
			}
			if err := fn(ctx, item); err != nil {
				once.Do(func() {
					firstErr = err
					cancel()
				})
			}
		}
	}
	wg.Add(workers)
	for range workers {
		go worker()
	}
feed:
	for _, item := range items {
		select {
		case <-ctx.Done():
			break feed
		case tasks <- item:
		}
	}
	close(tasks)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
