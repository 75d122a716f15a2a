package pool

import (
	"context"
	"sync"
	"time"

	"github.com/go-i2p/go-connpool/internal"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
)

// ConnPool is a bounded, self-healing pool of database connections.
//
// A single mutex guards the idle queue and the live counter together, and a
// single Broadcaster wakes everyone waiting on either of them: acquirers wait
// for a non-empty queue, the producer waits for the queue to fall below
// InitSize. Connection establishment, liveness probes and teardown always
// happen outside the mutex.
type ConnPool struct {
	mu      sync.Mutex
	idle    []*PooledConn // FIFO: acquire pops the front, release appends
	live    int           // idle + borrowed + probing
	probing int           // taken by maintenance, due back unless destroyed
	closed  bool
	changed *internal.Broadcaster
	nextID  uint64

	config  PoolConfig
	dialer  Dialer
	metrics *internal.PoolMetrics
	logger  *logger.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	reaping sync.WaitGroup // destroys of connections released after Close
}

// NewConnPool creates a pool, eagerly opens InitSize connections and starts
// the producer and maintenance goroutines. If any initial connection fails
// the ones already opened are closed and the error is returned.
func NewConnPool(ctx context.Context, config *PoolConfig, dialer Dialer) (*ConnPool, error) {
	if config == nil {
		config = DefaultPoolConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if dialer == nil {
		return nil, oops.
			Code("INVALID_POOL_CONFIG").
			In("pool").
			Errorf("dialer is required")
	}

	runCtx, cancel := context.WithCancel(context.Background())
	p := &ConnPool{
		idle:    make([]*PooledConn, 0, config.MaxSize),
		changed: internal.NewBroadcaster(),
		config:  *config,
		dialer:  dialer,
		metrics: internal.NewPoolMetrics(),
		logger:  log,
		ctx:     runCtx,
		cancel:  cancel,
	}

	if err := p.fill(ctx); err != nil {
		cancel()
		return nil, err
	}

	p.wg.Add(1)
	go p.produce()

	if p.config.MaxIdle > 0 {
		p.wg.Add(1)
		go p.maintain()
	} else {
		p.logger.Warn("max idle time is zero, idle eviction and liveness probing disabled")
	}

	p.logger.WithFields(logrus.Fields{
		"init_size":       p.config.InitSize,
		"max_size":        p.config.MaxSize,
		"max_idle":        p.config.MaxIdle.String(),
		"acquire_timeout": p.config.AcquireTimeout.String(),
	}).Info("connection pool started")

	return p, nil
}

// fill opens InitSize connections before the pool is shared
func (p *ConnPool) fill(ctx context.Context) error {
	for i := 0; i < p.config.InitSize; i++ {
		conn, err := p.dialer.Dial(ctx)
		if err != nil {
			p.closeIdle()
			return oops.
				Code("DIAL_FAILED").
				In("pool").
				With("opened", i).
				With("init_size", p.config.InitSize).
				Wrapf(err, "failed to open initial connections")
		}
		p.idle = append(p.idle, p.track(conn))
		p.live++
		p.metrics.AddCreated()
	}
	return nil
}

// track assigns an id to a freshly opened connection. Caller holds p.mu or
// has exclusive access to the pool.
func (p *ConnPool) track(conn Connection) *PooledConn {
	p.nextID++
	return newPooledConn(p.nextID, conn, time.Now())
}

// Get acquires a connection using the configured acquire timeout
func (p *ConnPool) Get() (*PoolConnWrapper, error) {
	return p.Acquire(context.Background())
}

// Acquire borrows the oldest idle connection, waiting up to the configured
// acquire timeout (or until ctx is done) for one to become available.
// The returned wrapper must be closed to give the connection back.
func (p *ConnPool) Acquire(ctx context.Context) (*PoolConnWrapper, error) {
	deadline := time.Now().Add(p.config.AcquireTimeout)

	p.mu.Lock()
	for {
		if p.closed {
			p.mu.Unlock()
			return nil, p.closedError("acquire")
		}
		if len(p.idle) > 0 {
			break
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			live := p.live
			p.mu.Unlock()
			return nil, p.exhaustedError(live)
		}

		wait := p.changed.Wait()
		p.mu.Unlock()
		if err := waitFor(ctx, wait, remaining); err != nil {
			return nil, oops.
				Code("ACQUIRE_CANCELED").
				In("pool").
				Wrapf(err, "acquire canceled")
		}
		p.mu.Lock()
	}

	pc := p.idle[0]
	p.idle[0] = nil
	p.idle = p.idle[1:]
	pc.State = internal.StateBorrowed
	if len(p.idle) < p.config.InitSize {
		p.changed.Broadcast()
	}
	p.mu.Unlock()

	p.metrics.AddAcquired()
	return newPoolConnWrapper(p, pc), nil
}

// waitFor blocks until wake is closed, d elapses or ctx is done.
// Only ctx cancellation is reported as an error.
func waitFor(ctx context.Context, wake <-chan struct{}, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-wake:
		return nil
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// release puts a borrowed connection back at the tail of the queue.
// It never performs I/O.
func (p *ConnPool) release(pc *PooledConn) {
	p.mu.Lock()
	if p.closed {
		p.live--
		p.reaping.Add(1)
		p.changed.Broadcast()
		p.mu.Unlock()
		go func() {
			defer p.reaping.Done()
			p.destroy(pc, internal.StateClosed)
		}()
		return
	}

	pc.refreshIdle(time.Now())
	p.idle = append(p.idle, pc)
	p.changed.Broadcast()
	p.mu.Unlock()
}

// destroy closes the physical connection. Caller must already have removed
// it from the live count.
func (p *ConnPool) destroy(pc *PooledConn, reason internal.ConnState) {
	pc.State = reason
	err := pc.Conn.Close()
	p.metrics.AddDestroyed(reason)

	entry := p.logger.WithFields(logrus.Fields{
		"conn_id": pc.ID,
		"reason":  reason.String(),
		"age":     time.Since(pc.Created).String(),
	})
	if err != nil {
		entry.WithError(err).Warn("error closing pooled connection")
		return
	}
	entry.Debug("pooled connection destroyed")
}

// Stats returns pool statistics
func (p *ConnPool) Stats() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return map[string]int{
		"live":      p.live,
		"idle":      len(p.idle),
		"probing":   p.probing,
		"in_use":    p.live - len(p.idle) - p.probing,
		"init_size": p.config.InitSize,
		"max_size":  p.config.MaxSize,
	}
}

// Metrics returns cumulative pool counters
func (p *ConnPool) Metrics() map[string]int64 {
	return p.metrics.Snapshot()
}

// Config returns a copy of the pool configuration
func (p *ConnPool) Config() PoolConfig {
	return p.config
}

// Close stops the background goroutines and closes every idle connection.
// Waiting acquirers fail with ErrPoolClosed; connections still borrowed are
// closed when their wrappers are closed. Close is idempotent.
func (p *ConnPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	borrowed := p.live - len(p.idle) - p.probing
	p.changed.Broadcast()
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()

	err := p.closeIdle()

	p.logger.WithField("borrowed", borrowed).Info("connection pool closed")
	return err
}

// closeIdle empties the queue and closes its connections outside the lock
func (p *ConnPool) closeIdle() error {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.live -= len(idle)
	p.changed.Broadcast()
	p.mu.Unlock()

	var firstError error
	for _, pc := range idle {
		pc.State = internal.StateClosed
		if err := pc.Conn.Close(); err != nil {
			p.logger.WithError(err).WithField("conn_id", pc.ID).
				Error("error closing idle connection during shutdown")
			if firstError == nil {
				firstError = err
			}
		}
	}
	return firstError
}

// Shutdown closes the pool and then waits for borrowed connections to be
// returned and physically closed until ctx is done.
func (p *ConnPool) Shutdown(ctx context.Context) error {
	closeErr := p.Close()

	for {
		p.mu.Lock()
		remaining := p.live
		if remaining == 0 {
			p.mu.Unlock()
			if err := p.waitReaped(ctx); err != nil {
				return err
			}
			return closeErr
		}
		wait := p.changed.Wait()
		p.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return oops.
				Code("SHUTDOWN_TIMEOUT").
				In("pool").
				With("remaining_connections", remaining).
				Wrapf(ctx.Err(), "timeout waiting for borrowed connections")
		}
	}
}

// waitReaped waits for destroys started by release after Close
func (p *ConnPool) waitReaped(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.reaping.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return oops.
			Code("SHUTDOWN_TIMEOUT").
			In("pool").
			Wrapf(ctx.Err(), "timeout waiting for released connections to close")
	}
}

func (p *ConnPool) closedError(op string) error {
	return oops.
		Code("POOL_CLOSED").
		In("pool").
		With("op", op).
		Wrap(ErrPoolClosed)
}

func (p *ConnPool) exhaustedError(live int) error {
	p.metrics.AddTimeout()
	p.logger.WithFields(logrus.Fields{
		"timeout": p.config.AcquireTimeout.String(),
		"live":    live,
	}).Debug("timed out waiting for idle connection")

	return oops.
		Code("POOL_EXHAUSTED").
		In("pool").
		With("timeout", p.config.AcquireTimeout).
		With("live", live).
		With("max_size", p.config.MaxSize).
		Wrap(ErrPoolExhausted)
}
