package sandbox

import (
	"context"
	"sync"
	"time"

	"github.com/GriffinCanCode/AgentOS/scripting/internal/shared/types"
)

// acquireTimeout bounds how long a run waits for a free slot.
const acquireTimeout = 5 * time.Second

// Pool bounds the number of concurrent script runs
type Pool struct {
	runner *Runner
	slots  chan struct{}
	size   int
	mu     sync.RWMutex
	closed bool
}

// PoolStats is a point-in-time view of a pool
type PoolStats struct {
	Size      int  `json:"size"`
	Available int  `json:"available"`
	InUse     int  `json:"in_use"`
	Closed    bool `json:"closed"`
}

// NewPool creates a pool running scripts with runner
func NewPool(runner *Runner, size int) *Pool {
	if size <= 0 {
		size = DefaultConfig().PoolSize
	}

	pool := &Pool{
		runner: runner,
		slots:  make(chan struct{}, size),
		size:   size,
	}
	for i := 0; i < size; i++ {
		pool.slots <- struct{}{}
	}
	return pool
}

// Acquire takes a run slot, waiting up to acquireTimeout
func (p *Pool) Acquire(ctx context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	timer := time.NewTimer(acquireTimeout)
	defer timer.Stop()

	select {
	case <-p.slots:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTimeout
	}
}

// Release returns a slot to the pool
func (p *Pool) Release() {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return
	}
	select {
	case p.slots <- struct{}{}:
	default:
	}
}

// Run executes a script in a pooled slot
func (p *Pool) Run(ctx context.Context, script string, rc *types.RequestContext) (*Result, error) {
	if err := p.Acquire(ctx); err != nil {
		return nil, err
	}
	defer p.Release()

	return p.runner.Run(ctx, script, rc)
}

// Runner returns the runner behind the pool
func (p *Pool) Runner() *Runner {
	return p.runner
}

// Close rejects further runs. Runs in flight finish normally.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	return nil
}

// Stats returns pool statistics
func (p *Pool) Stats() PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	available := len(p.slots)
	return PoolStats{
		Size:      p.size,
		Available: available,
		InUse:     p.size - available,
		Closed:    p.closed,
	}
}
