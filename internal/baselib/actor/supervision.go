package actor

import "sync"

// linkSet is the symmetric set of peers linked to an ACB (spec.md §4.7).
type linkSet struct {
	mu    sync.Mutex
	peers map[ActorID]*ControlBlock
}

func newLinkSet() *linkSet {
	return &linkSet{peers: make(map[ActorID]*ControlBlock)}
}

func (s *linkSet) add(cb *ControlBlock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peers[cb.ID()] = cb
}

func (s *linkSet) remove(id ActorID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.peers, id)
}

func (s *linkSet) all() []*ControlBlock {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*ControlBlock, 0, len(s.peers))
	for _, p := range s.peers {
		out = append(out, p)
	}
	return out
}

// monitorSet is the set of observers watching an ACB for termination
// (spec.md §4.7). Keyed by observer id, so a second Monitor call from the
// same observer is idempotent — the Open Question in spec.md §9 is
// resolved here in favor of set semantics: a repeat monitor call never
// yields a second down-message.
type monitorSet struct {
	mu        sync.Mutex
	observers map[ActorID]*ControlBlock
}

func newMonitorSet() *monitorSet {
	return &monitorSet{observers: make(map[ActorID]*ControlBlock)}
}

// add registers observer, returning false if it was already present.
func (s *monitorSet) add(observer *ControlBlock) (added bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.observers[observer.ID()]; ok {
		return false
	}
	s.observers[observer.ID()] = observer
	return true
}

func (s *monitorSet) remove(id ActorID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.observers, id)
}

func (s *monitorSet) all() []*ControlBlock {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*ControlBlock, 0, len(s.observers))
	for _, o := range s.observers {
		out = append(out, o)
	}
	return out
}

// Link establishes a symmetric supervision edge between a and b: on either
// actor's termination with a non-normal exit reason, the other receives an
// exit-message envelope (spec.md §4.7).
func Link(a, b *ControlBlock) {
	if a.ID() == b.ID() {
		return
	}
	a.links.add(b)
	b.links.add(a)
}

// Unlink removes the symmetric edge between a and b.
func Unlink(a, b *ControlBlock) {
	a.links.remove(b.ID())
	b.links.remove(a.ID())
}

// Monitor registers observer to receive a down-message when observed
// terminates (spec.md §4.7). A second call from the same observer is a
// no-op, never producing a second down-message.
func Monitor(observer, observed *ControlBlock) {
	observed.monitors.add(observer)
}

// Demonitor removes observer from observed's monitor set.
func Demonitor(observer, observed *ControlBlock) {
	observed.monitors.remove(observer.ID())
}

// notifyLinksAndMonitors is invoked once, after an ACB has stopped
// processing its mailbox and before its control block is released
// (spec.md §4.7's ordering requirement). It enqueues at most one
// exit-message per linked peer (suppressed by the peer's own termination
// flag) and exactly one down-message per monitor.
func (cb *ControlBlock) notifyLinksAndMonitors(reason ExitReason) {
	if !reason.IsNormal() {
		for _, peer := range cb.links.all() {
			peer.deliverSystem(exitEnvelope(cb.id, reason))
		}
	}
	for _, observer := range cb.monitors.all() {
		observer.deliverSystem(downEnvelope(cb.id, reason))
	}
}
