package connpool

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Gate bounds the number of exchanges in flight on the pooled transport,
// both globally and per host. Callers queue on Acquire until a slot frees
// up; a full gate never rejects, it only delays.
type Gate struct {
	global  *semaphore.Weighted
	perHost int64

	mu    sync.Mutex
	hosts map[string]*semaphore.Weighted
}

// New creates a Gate with the given global and per-host limits.
func New(limit, limitPerHost int) *Gate {
	return &Gate{
		global:  semaphore.NewWeighted(int64(limit)),
		perHost: int64(limitPerHost),
		hosts:   make(map[string]*semaphore.Weighted),
	}
}

// Acquire blocks until both a global slot and a slot for host are free, or
// ctx is done. On success it returns a release function that must be called
// when the exchange is finished; calling it more than once is harmless.
func (g *Gate) Acquire(ctx context.Context, host string) (func(), error) {
	if err := g.global.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	hs := g.hostSem(host)
	if err := hs.Acquire(ctx, 1); err != nil {
		g.global.Release(1)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			hs.Release(1)
			g.global.Release(1)
		})
	}, nil
}

// hostSem returns the semaphore for host, creating it on first use.
func (g *Gate) hostSem(host string) *semaphore.Weighted {
	g.mu.Lock()
	defer g.mu.Unlock()

	hs, ok := g.hosts[host]
	if !ok {
		hs = semaphore.NewWeighted(g.perHost)
		g.hosts[host] = hs
	}
	return hs
}
