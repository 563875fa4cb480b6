package scheduler

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/roasbeef/greenroom/internal/baselib/actor"
)

// Scheduler is a fixed pool of worker threads, each owning a local
// work-stealing deque of runnable ACBs (spec.md §4.4). It implements
// actor.Runner, so a ControlBlock spawned with actor.SpawnScheduled(sched,
// behavior) is placed back onto a worker's deque every time its mailbox
// transitions from empty to non-empty.
type Scheduler struct {
	cfg     Config
	workers []*worker

	nextWorker atomic.Uint64

	parked *parkSignal

	eg     *errgroup.Group
	cancel context.CancelFunc
}

// New builds a Scheduler with cfg, defaulting Workers to
// runtime.GOMAXPROCS(0) if unset. Call Start to launch the worker pool.
func New(cfg Config) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}

	s := &Scheduler{
		cfg:    cfg,
		parked: newParkSignal(),
	}
	s.workers = make([]*worker, cfg.Workers)
	for i := range s.workers {
		s.workers[i] = newWorker(i, s)
	}
	return s
}

// Start launches every worker goroutine under an errgroup.Group so a panic
// in one worker is observed (and its error returned by Wait) rather than
// silently killing only that goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	eg, egCtx := errgroup.WithContext(ctx)
	s.eg = eg
	for _, w := range s.workers {
		w := w
		eg.Go(func() error {
			return w.run(egCtx)
		})
	}
}

// Spawn constructs a new scheduled ACB running behavior, wired to this
// Scheduler as its Runner.
func (s *Scheduler) Spawn(behavior *actor.Behavior) *actor.ControlBlock {
	return actor.SpawnScheduled(s, behavior)
}

// NotifyRunnable implements actor.Runner: cb just transitioned from an
// empty to a non-empty mailbox, so it is assigned round-robin to one of
// the pool's workers and every parked worker is woken to go looking for
// it (spec.md §4.4's was-empty-transition signal).
func (s *Scheduler) NotifyRunnable(cb *actor.ControlBlock) {
	idx := int(s.nextWorker.Add(1)-1) % len(s.workers)
	s.workers[idx].local.pushBottom(cb)
	s.parked.wake()
}

// Shutdown stops the scheduler: in-flight quanta complete, then every
// worker goroutine exits. Any ACB still holding unprocessed envelopes in a
// worker's deque at that point is terminated with exit reason `unknown`
// (spec.md §4.4's shutdown contract), since it will never be picked up
// again once the pool stops.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	s.parked.wake()

	var err error
	if s.eg != nil {
		err = s.eg.Wait()
	}

	reason := actor.NewExitReason(actor.ExitCodeUnknown, nil)
	for _, w := range s.workers {
		for {
			cb, ok := w.local.popBottom()
			if !ok {
				break
			}
			if !cb.IsTerminated() {
				cb.Terminate(reason)
			}
		}
	}
	return err
}
