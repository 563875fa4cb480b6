package scheduler

import (
	"sync"

	"github.com/roasbeef/greenroom/internal/baselib/actor"
)

// deque is a worker's local run queue of runnable ACBs: the owning worker
// pushes and pops at the bottom, idle workers steal from the top (spec.md
// §4.4). It is a plain mutex-guarded slice rather than a lock-free
// Chase-Lev deque — the pack carries no lock-free deque library, and
// spec.md only requires the per-actor *mailbox* to be lock-free; the
// deque's own invariants (FIFO-ish fairness, steal-ability) hold just as
// well behind a mutex at this scale.
type deque struct {
	mu    sync.Mutex
	items []*actor.ControlBlock
}

func newDeque() *deque {
	return &deque{}
}

// pushBottom adds cb to the bottom of the deque, where the owning worker
// pops from.
func (d *deque) pushBottom(cb *actor.ControlBlock) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items = append(d.items, cb)
}

// popBottom removes and returns the item at the bottom, for the owning
// worker.
func (d *deque) popBottom() (*actor.ControlBlock, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.items)
	if n == 0 {
		return nil, false
	}
	cb := d.items[n-1]
	d.items[n-1] = nil
	d.items = d.items[:n-1]
	return cb, true
}

// popTop removes and returns the item at the top, for a stealing worker.
func (d *deque) popTop() (*actor.ControlBlock, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.items) == 0 {
		return nil, false
	}
	cb := d.items[0]
	d.items = d.items[1:]
	return cb, true
}

func (d *deque) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items)
}
