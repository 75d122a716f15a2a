package pool

import (
	"time"

	"github.com/go-i2p/go-connpool/internal"
	"github.com/sirupsen/logrus"
)

// produce keeps the idle queue at InitSize without exceeding MaxSize.
// It sleeps until a state change makes needsConnection true, then dials
// with the lock released.
func (p *ConnPool) produce() {
	defer p.wg.Done()

	failures := 0
	for {
		if !p.waitForDemand() {
			return
		}

		conn, err := p.dialer.Dial(p.ctx)
		if err != nil {
			if p.ctx.Err() != nil {
				return
			}
			p.metrics.AddCreateFailure()
			delay := internal.Backoff(p.config.RetryBackoff, p.config.MaxRetryBackoff, failures)
			failures++
			p.logger.WithError(err).WithFields(logrus.Fields{
				"attempt": failures,
				"delay":   delay.String(),
			}).Warn("failed to create pooled connection")
			if !p.sleep(delay) {
				return
			}
			continue
		}
		failures = 0

		if !p.admit(conn) {
			return
		}
	}
}

// needsConnection reports whether the producer has work. Connections out
// for a liveness probe count as idle. Caller holds p.mu.
func (p *ConnPool) needsConnection() bool {
	return len(p.idle)+p.probing < p.config.InitSize && p.live < p.config.MaxSize
}

// waitForDemand blocks until the producer should create a connection.
// It returns false once the pool is closed.
func (p *ConnPool) waitForDemand() bool {
	p.mu.Lock()
	for !p.closed && !p.needsConnection() {
		wait := p.changed.Wait()
		p.mu.Unlock()
		select {
		case <-wait:
		case <-p.ctx.Done():
			return false
		}
		p.mu.Lock()
	}
	closed := p.closed
	p.mu.Unlock()
	return !closed
}

// admit adds a newly dialed connection to the tail of the queue and wakes
// waiting acquirers. It returns false if the pool closed during the dial.
func (p *ConnPool) admit(conn Connection) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		if err := conn.Close(); err != nil {
			p.logger.WithError(err).Warn("error closing connection created during shutdown")
		}
		return false
	}

	pc := p.track(conn)
	p.idle = append(p.idle, pc)
	p.live++
	live := p.live
	p.changed.Broadcast()
	p.mu.Unlock()

	p.metrics.AddCreated()
	p.logger.WithFields(logrus.Fields{
		"conn_id": pc.ID,
		"live":    live,
	}).Debug("pooled connection created")
	return true
}

// sleep waits for d or until the pool is closed
func (p *ConnPool) sleep(d time.Duration) bool {
	if d <= 0 {
		return p.ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-p.ctx.Done():
		return false
	}
}
