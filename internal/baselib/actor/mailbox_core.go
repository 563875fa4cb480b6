package actor

import "sync"

// coreMailbox is the per-ACB queue backing the dynamic execution engine: two
// priority bands (urgent, normal) plus a private stash for deferred
// envelopes (spec.md §4.2). Enqueue may be called from any goroutine;
// dequeue and the stash operations are only ever called by the worker
// currently running the owning ACB, matching the single-reader discipline
// spec.md requires.
//
// The teacher's own ChannelMailbox is channel-backed rather than
// lock-free; this mailbox follows the same pragmatic discipline with a
// single mutex guarding both bands and the stash, documented rather than
// claimed to be lock-free.
type coreMailbox struct {
	mu sync.Mutex

	urgent []*Envelope
	normal []*Envelope
	stash  []*Envelope

	closed bool
}

func newCoreMailbox() *coreMailbox {
	return &coreMailbox{}
}

// enqueue adds e to the appropriate band. wasEmpty reports whether the
// mailbox (urgent+normal, not counting the stash) transitioned from empty
// to non-empty as a result of this call — exactly the signal the scheduler
// needs to runnable-schedule the actor at most once per transition
// (spec.md §4.2). ok is false if the mailbox is closed, in which case the
// envelope was not enqueued.
func (m *coreMailbox) enqueue(e *Envelope) (wasEmpty bool, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, false
	}

	wasEmpty = len(m.urgent)+len(m.normal) == 0

	switch e.Priority {
	case PriorityUrgent:
		m.urgent = append(m.urgent, e)
	default:
		m.normal = append(m.normal, e)
	}
	return wasEmpty, true
}

// dequeue pops the next envelope: all urgent envelopes before any normal
// envelope, FIFO within a band (spec.md §4.2).
func (m *coreMailbox) dequeue() (*Envelope, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.urgent) > 0 {
		e := m.urgent[0]
		m.urgent = m.urgent[1:]
		return e, true
	}
	if len(m.normal) > 0 {
		e := m.normal[0]
		m.normal = m.normal[1:]
		return e, true
	}
	return nil, false
}

// len returns the number of runnable (non-stashed) envelopes pending.
func (m *coreMailbox) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.urgent) + len(m.normal)
}

// stashOne moves e into the private stash, where it is invisible to
// dequeue until unstashAll reinjects it.
func (m *coreMailbox) stashOne(e *Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stash = append(m.stash, e)
}

// unstashAll reinjects every stashed envelope at the head of the normal
// band, preserving their original relative order (spec.md §4.2).
func (m *coreMailbox) unstashAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.stash) == 0 {
		return
	}
	m.normal = append(append([]*Envelope(nil), m.stash...), m.normal...)
	m.stash = nil
}

// closeAndDrain marks the mailbox closed and returns every envelope still
// queued (urgent, normal, and stash, in that order) so the caller can
// release or fail each one (spec.md §5's "on termination ... the mailbox is
// drained and each envelope released").
func (m *coreMailbox) closeAndDrain() []*Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	all := make([]*Envelope, 0, len(m.urgent)+len(m.normal)+len(m.stash))
	all = append(all, m.urgent...)
	all = append(all, m.normal...)
	all = append(all, m.stash...)
	m.urgent, m.normal, m.stash = nil, nil, nil
	return all
}

// isClosed reports whether the mailbox has been closed.
func (m *coreMailbox) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
