package stream

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/roasbeef/greenroom/internal/baselib/actor"
)

// Spawner is the subset of scheduler.Scheduler a Manager needs: placing a
// freshly built Behavior onto a runnable ACB. Satisfied by
// *scheduler.Scheduler, and by actor.SpawnDetached wrapped in a thin
// adapter for tests that don't need a pool.
type Spawner interface {
	Spawn(behavior *actor.Behavior) *actor.ControlBlock
}

// Manager builds and wires stream pipelines (spec.md §4.9): a source, zero
// or more filtering stages, and a sink, connected by the credit-based
// handshake each role implements. A semaphore bounds how many Build calls
// may be spawning a pipeline's actors and sending its kick-off message at
// once; a slot is released when Build returns, so handshakes still in
// progress after that are not counted.
type Manager struct {
	spawner Spawner
	sem     *semaphore.Weighted

	nextID atomic.Uint64
}

// NewManager builds a Manager that spawns pipeline actors via spawner,
// allowing at most maxConcurrentHandshakes Build calls to hold a slot
// simultaneously (1 if it is not positive).
func NewManager(spawner Spawner, maxConcurrentHandshakes int64) *Manager {
	if maxConcurrentHandshakes <= 0 {
		maxConcurrentHandshakes = 1
	}
	return &Manager{spawner: spawner, sem: semaphore.NewWeighted(maxConcurrentHandshakes)}
}

// Pipeline describes one stream to build: a fixed slice of source
// elements, an ordered list of filtering predicates (one Stage per
// predicate), the sink's credit window, and the sink's element and
// completion callbacks.
type Pipeline struct {
	Elements   []any
	Predicates []func(any) bool
	Window     int
	OnElement  func(any)
	OnDone     func(error)
}

// Build spawns a Pipeline's source, stages, and sink, and kicks off the
// credit handshake. It blocks only long enough to acquire a handshake
// slot, which it holds until it returns, before the handshake itself
// completes; the pipeline itself keeps running (OnElement/OnDone keep firing
// from the actors' own goroutines) after Build returns.
func (m *Manager) Build(ctx context.Context, p Pipeline) error {
	if p.Window <= 0 {
		p.Window = DefaultWindow
	}

	if err := m.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("stream: acquiring handshake slot: %w", err)
	}
	defer m.sem.Release(1)

	upstream := m.spawner.Spawn(NewSource(p.Elements))
	for _, pred := range p.Predicates {
		upstream = m.spawner.Spawn(NewStage(upstream, pred))
	}
	sink := m.spawner.Spawn(NewSink(upstream, p.Window, p.OnElement, p.OnDone))

	id := m.nextStreamID()
	actor.Tell(sink, nil, actor.PriorityNormal, startStream{id: id, credit: p.Window})
	return nil
}

func (m *Manager) nextStreamID() ID {
	n := m.nextID.Add(1)
	return ID(fmt.Sprintf("stream-%d", n))
}
