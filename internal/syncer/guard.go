package syncer

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// keyedGuard serializes sync operations per device. Download and upload
// both rewrite whole scene resources, so they must not interleave.
type keyedGuard struct {
	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
}

func newKeyedGuard() *keyedGuard {
	return &keyedGuard{sems: make(map[string]*semaphore.Weighted)}
}

// Acquire blocks until key is free or ctx is done.
func (g *keyedGuard) Acquire(ctx context.Context, key string) (release func(), err error) {
	g.mu.Lock()
	sem, ok := g.sems[key]
	if !ok {
		sem = semaphore.NewWeighted(1)
		g.sems[key] = sem
	}
	g.mu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { sem.Release(1) }, nil
}
