package scheduler

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/roasbeef/greenroom/internal/baselib/actor"
)

// parkSignal is a broadcast-without-losing-wakeups primitive: every call to
// wake releases every goroutine currently blocked in wait, the same role
// spec.md §4.4's "condition variable released by any scheduling event"
// plays, but built from a channel instead of sync.Cond so a parked worker
// can also wake on context cancellation. wake is called from arbitrary
// sender goroutines via Scheduler.NotifyRunnable, so the channel swap
// needs its own lock rather than relying on the single-writer assumption
// a bare close-and-replace would make.
type parkSignal struct {
	mu sync.Mutex
	ch chan struct{}
}

func newParkSignal() *parkSignal {
	return &parkSignal{ch: make(chan struct{})}
}

func (p *parkSignal) wait(ctx context.Context) {
	p.mu.Lock()
	ch := p.ch
	p.mu.Unlock()

	select {
	case <-ch:
	case <-ctx.Done():
	}
}

func (p *parkSignal) wake() {
	p.mu.Lock()
	defer p.mu.Unlock()
	close(p.ch)
	p.ch = make(chan struct{})
}

// worker is one goroutine-run member of the scheduler's pool. It owns a
// local deque of runnable ACBs and, when that empties, attempts to steal
// from its peers before parking (spec.md §4.4).
type worker struct {
	id    int
	local *deque
	sched *Scheduler
}

func newWorker(id int, sched *Scheduler) *worker {
	return &worker{id: id, local: newDeque(), sched: sched}
}

// run is the worker's main loop: pop local, else steal across the three
// backoff tiers, else park. It returns when ctx is cancelled.
func (w *worker) run(ctx context.Context) error {
	heartbeat := time.NewTicker(w.sched.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}

		cb, ok := w.local.popBottom()
		if !ok {
			cb, ok = w.steal(ctx)
		}
		if !ok {
			if ctx.Err() != nil {
				return nil
			}
			log.TraceS(ctx, "worker parking", "worker_id", w.id)
			w.sched.parked.wait(ctx)
			continue
		}

		more := cb.RunQuantum(w.sched.cfg.MaxThroughput)
		if more {
			w.local.pushBottom(cb)
		}
	}
}

// steal cycles through the aggressive, moderate, and relaxed tiers
// configured for the scheduler, attempting to pop from a random peer's
// deque at each step. It gives up (returning false) once every tier is
// exhausted, leaving the caller to park.
func (w *worker) steal(ctx context.Context) (*actor.ControlBlock, bool) {
	tiers := []TierConfig{
		w.sched.cfg.Aggressive,
		w.sched.cfg.Moderate,
		w.sched.cfg.Relaxed,
	}

	for _, tier := range tiers {
		for i := 0; i < tier.Attempts; i++ {
			if ctx.Err() != nil {
				return nil, false
			}
			if cb, ok := w.stealOnce(); ok {
				return cb, true
			}
			if tier.Sleep > 0 {
				select {
				case <-time.After(tier.Sleep):
				case <-ctx.Done():
					return nil, false
				}
			}
		}
	}
	return nil, false
}

// stealOnce makes a single steal attempt against one randomly chosen peer.
func (w *worker) stealOnce() (*actor.ControlBlock, bool) {
	peers := w.sched.workers
	if len(peers) <= 1 {
		return nil, false
	}
	victim := peers[rand.Intn(len(peers))]
	if victim.id == w.id {
		return nil, false
	}
	return victim.local.popTop()
}
