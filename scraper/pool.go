package scraper

import (
	"context"
	"fmt"
	"sync/atomic"

	"mandi-prices/logging"
	"mandi-prices/metrics"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// Pool caps how many sessions a Driver has open at once. Sessions are never
// shared: each WithSession call opens its own and closes it on return.
type Pool struct {
	driver Driver
	size   int64
	sem    *semaphore.Weighted
	inUse  atomic.Int64
	closed atomic.Bool
	log    zerolog.Logger
}

// NewPool creates a pool allowing at most size concurrent sessions
func NewPool(driver Driver, size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		driver: driver,
		size:   int64(size),
		sem:    semaphore.NewWeighted(int64(size)),
		log:    logging.NewLogger("pool"),
	}
}

// WithSession waits for a free slot, opens a session and passes it to fn.
// The session is closed and the slot released whatever fn returns.
func (p *Pool) WithSession(ctx context.Context, fn func(Session) error) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("failed to acquire browser session: %w", err)
	}
	defer p.sem.Release(1)

	// Close may have won the race while we waited
	if p.closed.Load() {
		return ErrPoolClosed
	}

	p.inUse.Add(1)
	metrics.SessionsInUse.Inc()
	defer func() {
		p.inUse.Add(-1)
		metrics.SessionsInUse.Dec()
	}()

	session, err := p.driver.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open browser session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			p.log.Warn().Err(err).Msg("failed to close browser session")
		}
	}()

	return fn(session)
}

// InUse returns the number of sessions currently checked out
func (p *Pool) InUse() int {
	return int(p.inUse.Load())
}

// Size returns the maximum number of concurrent sessions
func (p *Pool) Size() int {
	return int(p.size)
}

// Close stops handing out sessions, waits for in-flight ones until ctx ends,
// then closes the driver.
func (p *Pool) Close(ctx context.Context) error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := p.sem.Acquire(ctx, p.size); err != nil {
		p.log.Warn().Int("in_use", p.InUse()).Msg("closing driver with sessions still open")
	} else {
		defer p.sem.Release(p.size)
	}
	return p.driver.Close()
}
