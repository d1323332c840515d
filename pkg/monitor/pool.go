package monitor

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// runPool runs tasks on at most workers goroutines and closes the returned
// channel once all of them have returned. The caller decides how long to wait.
func runPool(ctx context.Context, workers int, tasks []func(context.Context)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		var g errgroup.Group
		g.SetLimit(max(workers, 1))
		for _, task := range tasks {
			g.Go(func() error {
				task(ctx)
				return nil
			})
		}
		_ = g.Wait()
	}()
	return done
}

// await blocks until done closes or the ceiling passes, handling control
// messages and repair outcomes meanwhile so producers are never stuck
// behind a long phase. It reports whether done closed in time.
func (m *Monitor) await(ctx context.Context, done <-chan struct{}, ceiling time.Duration) bool {
	timer := time.NewTimer(ceiling)
	defer timer.Stop()

	for {
		select {
		case <-done:
			return true
		case <-timer.C:
			return false
		case <-ctx.Done():
			return false
		case <-m.ch.ControlSignal():
			m.processControl()
			if m.exit {
				return false
			}
		case out := <-m.outcomes:
			m.applyOutcome(ctx, out)
		}
	}
}

// collector gathers check results until it is closed; later results are
// dropped.
type collector struct {
	mu      sync.Mutex
	closed  bool
	results map[string]checkResult
}

func newCollector() *collector {
	return &collector{results: make(map[string]checkResult)}
}

func (c *collector) add(r checkResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.results[r.shortURL] = r
	}
}

func (c *collector) close() map[string]checkResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return c.results
}
