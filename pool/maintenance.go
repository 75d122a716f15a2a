package pool

import (
	"context"
	"time"

	"github.com/go-i2p/go-connpool/internal"
	"github.com/sirupsen/logrus"
)

// maintain runs a maintenance cycle every MaxIdle until the pool closes
func (p *ConnPool) maintain() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.MaxIdle)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.RunMaintenance(p.ctx)
		}
	}
}

// RunMaintenance performs one eviction and liveness pass over the idle queue.
//
// The number of connections examined is bounded by the queue length at the
// start of the pass. Each one is popped from the front, probed with the lock
// released, then destroyed if dead, destroyed if idle too long while the
// pool is above InitSize, or otherwise appended back to the tail. Liveness is
// not ordered by queue position, so every snapshotted connection is probed.
func (p *ConnPool) RunMaintenance(ctx context.Context) {
	p.mu.Lock()
	n := len(p.idle)
	p.mu.Unlock()

	counts := make(map[internal.ConnState]int)
	examined := 0
	for ; examined < n; examined++ {
		pc := p.takeForProbe()
		if pc == nil {
			break
		}

		expired := pc.IdleDuration(time.Now()) >= p.config.MaxIdle
		alive := p.probe(ctx, pc)
		counts[p.settle(pc, alive, expired)]++
	}

	p.mu.Lock()
	if !p.closed && p.live < p.config.InitSize {
		p.changed.Broadcast()
	}
	live := p.live
	p.mu.Unlock()

	p.metrics.AddMaintenanceCycle()
	p.logger.WithFields(logrus.Fields{
		"snapshot": n,
		"examined": examined,
		"dead":     counts[internal.StateDead],
		"evicted":  counts[internal.StateEvicted],
		"kept":     counts[internal.StateIdle],
		"live":     live,
	}).Debug("maintenance cycle complete")
}

// takeForProbe pops the front of the queue, or returns nil if the queue is
// empty or the pool is closed
func (p *ConnPool) takeForProbe() *PooledConn {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || len(p.idle) == 0 {
		return nil
	}
	pc := p.idle[0]
	p.idle[0] = nil
	p.idle = p.idle[1:]
	pc.State = internal.StateProbing
	p.probing++
	return pc
}

// probe runs the liveness check bounded by ProbeTimeout
func (p *ConnPool) probe(ctx context.Context, pc *PooledConn) bool {
	if p.config.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.ProbeTimeout)
		defer cancel()
	}

	if err := pc.Conn.Ping(ctx); err != nil {
		p.logger.WithError(err).WithField("conn_id", pc.ID).Debug("liveness probe failed")
		return false
	}
	return true
}

// settle decides the fate of a probed connection and returns its new state
func (p *ConnPool) settle(pc *PooledConn, alive, expired bool) internal.ConnState {
	p.mu.Lock()
	p.probing--
	var reason internal.ConnState
	switch {
	case p.closed:
		reason = internal.StateClosed
	case !alive:
		reason = internal.StateDead
	case expired && p.live > p.config.InitSize:
		reason = internal.StateEvicted
	default:
		pc.State = internal.StateIdle
		p.idle = append(p.idle, pc)
		p.changed.Broadcast()
		p.mu.Unlock()
		return internal.StateIdle
	}
	p.live--
	p.changed.Broadcast()
	p.mu.Unlock()

	p.destroy(pc, reason)
	return reason
}
