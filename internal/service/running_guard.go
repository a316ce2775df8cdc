package service

import (
	"context"
	"sync"

	"github.com/samber/lo"
)

// ExportedRunningGuard is an exported alias so _test packages can test the guard.
type ExportedRunningGuard = runningJobsGuard

// ─────────────────────────────────────────────────────────────
// runningJobsGuard: one run per snapshot job at a time
// ─────────────────────────────────────────────────────────────

// runningJobsGuard ensures only one instance of a named job runs at a time
// and lets shutdown wait for in-flight runs.
type runningJobsGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

// TryLock marks name as running. It returns false if it already is.
func (g *runningJobsGuard) TryLock(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	if _, ok := g.running[name]; ok {
		return false // already running
	}
	g.running[name] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock marks the job as no longer running. Must follow a successful TryLock.
func (g *runningJobsGuard) Unlock(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, name)
	g.wg.Done()
}

// WaitAll blocks until all currently running jobs complete or ctx is cancelled.
func (g *runningJobsGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Running returns the names of jobs currently in flight.
func (g *runningJobsGuard) Running() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return lo.Keys(g.running)
}
