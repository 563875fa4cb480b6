package actor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roasbeef/greenroom/internal/baselib/payload"
)

// SchedState is the ACB's scheduling state (spec.md §3, §5).
type SchedState int32

const (
	StateIdle SchedState = iota
	StateRunnable
	StateRunning
	StateAwaitingResponse
	StateBlockedOnTimeout
	StateBlockedOnMailbox
	StateTerminated
)

// Runner is implemented by a scheduler that wants to be notified when an
// ACB transitions from an empty to a non-empty mailbox, so it can be
// placed back onto a worker's runnable deque. A detached ACB has no
// Runner: nothing ever calls NotifyRunnable for it; enqueue signals its
// wake channel instead, which RunLoop blocks on.
type Runner interface {
	NotifyRunnable(cb *ControlBlock)
}

// owedKey identifies one in-flight request this ACB has received and not
// yet answered, keyed by the actor that should eventually get the reply
// plus the correlation id that actor's table is waiting on. A plain
// int64 key is not enough: two different senders mint correlation ids
// independently, so the same numeric id can be outstanding from two
// requesters at once.
type owedKey struct {
	target *ControlBlock
	id     int64
}

// ControlBlock is the Actor Control Block (ACB) of spec.md §3: identity,
// mailbox, current behavior, link/monitor sets, pending request tables,
// and scheduling flags. Its mutable fields are mutated only by the worker
// currently running it, except for mailbox enqueue and the handful of
// cross-goroutine operations documented on each method.
type ControlBlock struct {
	id ActorID

	mailbox *coreMailbox

	behavior *Behavior

	links    *linkSet
	monitors *monitorSet

	// outbound correlates requests this actor has sent to others.
	outbound *requestTable

	// owed tracks requests this actor has received and not yet replied
	// to, so that on termination it can synthesise request_receiver_down
	// responses (spec.md §4.6).
	owed map[owedKey]*Envelope

	state atomic.Int32

	// running enforces "at-most-one execution" (spec.md §8 property 1)
	// via compare-and-swap.
	running atomic.Bool

	runner Runner

	// userState is released on termination, so references held only via
	// user state do not keep other actors alive past quit (spec.md §9's
	// "state handle" resolution for cyclic actor references).
	userState any

	exitOnce   sync.Once
	terminated chan struct{}
	exitReason ExitReason

	// sysHandler, if set, overrides the default down/exit policy.
	sysHandler func(ctx *HandleContext, env *Envelope)

	cleanupHooks []func()

	timerMu       sync.Mutex
	inactivityTmr *time.Timer

	// wake is used only by a detached ACB (no Runner): enqueue signals it
	// on the empty->non-empty transition so RunLoop's dedicated goroutine
	// wakes up without polling.
	wake chan struct{}
}

// NewControlBlock constructs an unscheduled ACB with the given initial
// behavior. SpawnScheduled (below, and through it the scheduler's Spawn)
// wires it to a Runner; SpawnDetached returns it as is; tests may construct
// one directly for unit-level checks.
func NewControlBlock(behavior *Behavior) *ControlBlock {
	cb := &ControlBlock{
		id:         NewActorID(),
		mailbox:    newCoreMailbox(),
		behavior:   behavior,
		links:      newLinkSet(),
		monitors:   newMonitorSet(),
		outbound:   newRequestTable(),
		owed:       make(map[owedKey]*Envelope),
		terminated: make(chan struct{}),
		wake:       make(chan struct{}, 1),
	}
	cb.state.Store(int32(StateIdle))
	return cb
}

// ID returns the actor's identifier.
func (cb *ControlBlock) ID() ActorID { return cb.id }

// State returns the current scheduling state.
func (cb *ControlBlock) State() SchedState {
	return SchedState(cb.state.Load())
}

// IsTerminated reports whether the actor has finished terminating.
func (cb *ControlBlock) IsTerminated() bool {
	return cb.State() == StateTerminated
}

// SetRunner installs the scheduler callback used to signal runnability.
// Left nil, the ACB behaves as a detached actor: enqueue signals its wake
// channel, which RunLoop waits on.
func (cb *ControlBlock) SetRunner(r Runner) { cb.runner = r }

// SetUserState stores an arbitrary value alongside the ACB, released when
// the actor terminates (spec.md §9).
func (cb *ControlBlock) SetUserState(v any) { cb.userState = v }

// UserState returns the value most recently set via SetUserState.
func (cb *ControlBlock) UserState() any { return cb.userState }

// AddCleanupHook registers fn to run during termination, before monitors
// and linked peers are notified.
func (cb *ControlBlock) AddCleanupHook(fn func()) {
	cb.cleanupHooks = append(cb.cleanupHooks, fn)
}

// SetSystemHandler overrides the default down/exit policy.
func (cb *ControlBlock) SetSystemHandler(fn func(ctx *HandleContext, env *Envelope)) {
	cb.sysHandler = fn
}

// Become installs a new current behavior and replays any stashed envelopes
// against it (spec.md §4.2's "stashed rematch" scenario).
func (cb *ControlBlock) Become(b *Behavior) {
	cb.behavior = b
	cb.mailbox.unstashAll()
}

// enqueue is the single entry point for delivering an envelope to this
// ACB, used by both ordinary sends and synthesised system envelopes. If
// the actor has already terminated, the envelope is discarded and, if it
// carried a non-zero correlation id, a request_receiver_down error is
// synthesised back to its sender (spec.md §4.2).
func (cb *ControlBlock) enqueue(env *Envelope) {
	wasEmpty, ok := cb.mailbox.enqueue(env)
	if !ok {
		if env.CorrelationID != 0 && env.Sender != nil {
			env.Sender.enqueue(errorEnvelope(env.CorrelationID,
				NewError(CodeRequestReceiverDown, CategoryRequest, cb.id)))
		}
		return
	}
	if env.Priority == PriorityUrgent {
		cb.resetInactivityTimer()
	}
	if wasEmpty {
		cb.state.CompareAndSwap(int32(StateIdle), int32(StateRunnable))
		cb.state.CompareAndSwap(int32(StateBlockedOnMailbox), int32(StateRunnable))
		if cb.runner != nil {
			cb.runner.NotifyRunnable(cb)
		} else {
			select {
			case cb.wake <- struct{}{}:
			default:
			}
		}
	}
}

// deliverUser and deliverSystem are both thin aliases over enqueue; the
// two names exist so call sites (supervision.go, promise.go) read
// according to which kind of envelope they are delivering.
func (cb *ControlBlock) deliverUser(env *Envelope)   { cb.enqueue(env) }
func (cb *ControlBlock) deliverSystem(env *Envelope) { cb.enqueue(env) }

// HasWork reports whether the mailbox has a runnable envelope pending.
func (cb *ControlBlock) HasWork() bool {
	return cb.mailbox.len() > 0
}

// Tell sends a fire-and-forget payload built from fields to cb, from
// sender (nil for an anonymous send), on the given priority band.
func Tell(to, from *ControlBlock, priority Priority, fields ...any) {
	env := NewEnvelope(payload.New(fields...)).WithSender(from).WithPriority(priority)
	to.enqueue(env)
}

// Ask sends a request built from fields to `to`, invoking onSuccess or
// onError exactly once when the reply (or a synthesised timeout/receiver-
// down error) arrives. A zero timeout means no deadline. It returns the
// correlation id allocated for the request.
func Ask(to, from *ControlBlock, timeout time.Duration,
	onSuccess func(payload.Payload), onError func(Error), fields ...any) int64 {

	id := from.outbound.nextCorrelationID()
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	from.outbound.register(id, deadline, false, onSuccess, onError)
	if timeout > 0 {
		time.AfterFunc(timeout, func() { from.timeoutRequest(id) })
	}

	env := NewEnvelope(payload.New(fields...)).
		WithSender(from).WithCorrelationID(id).WithPriority(PriorityNormal)
	to.enqueue(env)
	return id
}

// AskAwaited is like Ask, but installs the request on from's LIFO await
// stack: regardless of arrival order, its handler fires only once every
// awaited request sent after it has already fired (spec.md §4.6, §8
// property 4's "await LIFO" scenario).
func AskAwaited(to, from *ControlBlock, timeout time.Duration,
	onSuccess func(payload.Payload), onError func(Error), fields ...any) int64 {

	id := from.outbound.nextCorrelationID()
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	from.outbound.register(id, deadline, true, onSuccess, onError)
	if timeout > 0 {
		time.AfterFunc(timeout, func() { from.timeoutRequest(id) })
	}

	env := NewEnvelope(payload.New(fields...)).
		WithSender(from).WithCorrelationID(id).WithPriority(PriorityNormal)
	to.enqueue(env)
	return id
}

// timeoutRequest fires the request_timeout path for id if it is still
// pending (spec.md §4.6). A response that arrived in the meantime has
// already removed id from the table, making this a no-op — response
// arrival after timeout is symmetric: whichever happens first wins, and
// the other is silently dropped.
func (cb *ControlBlock) timeoutRequest(id int64) {
	pr, ok := cb.outbound.take(id)
	if !ok {
		return
	}
	timeoutErr := NewError(CodeRequestTimeout, CategoryRequest, id)
	if pr.awaited {
		fireable := cb.outbound.resolveAwaited(pr, payload.Payload{}, timeoutErr, true)
		for _, f := range fireable {
			if f.resultIsErr {
				if f.onError != nil {
					f.onError(f.resultErr)
				}
			} else if f.onSuccess != nil {
				f.onSuccess(f.resultPayload)
			}
		}
		return
	}
	if pr.onError != nil {
		pr.onError(timeoutErr)
	}
}

// HandleContext is passed to every Case and default-policy callback,
// giving it access to the actor's identity, the inbound envelope, and the
// primitives (Become, Delegate, Promise) that change how a reply is
// produced.
type HandleContext struct {
	self *ControlBlock
	env  *Envelope

	// delegated and promised suppress the automatic reply synthesis a
	// matched Case would otherwise trigger.
	delegated bool
	promised  bool
}

// Self returns the ACB running the current handler.
func (c *HandleContext) Self() *ControlBlock { return c.self }

// Envelope returns the envelope currently being handled.
func (c *HandleContext) Envelope() *Envelope { return c.env }

// Become installs a new behavior, as ControlBlock.Become.
func (c *HandleContext) Become(b *Behavior) { c.self.Become(b) }

// Delegate hands off responsibility for replying to `to` (spec.md §4.8).
// After calling Delegate the handler must return its zero value and a nil
// error; no automatic reply will be synthesised.
func (c *HandleContext) Delegate(to *ControlBlock) {
	c.delegated = true
	Delegate(c.env, to)
}

// Promise captures the current reply target and correlation id into a
// ResponsePromise, releasing the handler from synthesising an immediate
// reply (spec.md §4.8). After calling Promise the handler must return its
// zero value and a nil error.
func (c *HandleContext) Promise() *ResponsePromise {
	c.promised = true
	return newResponsePromise(c.env.ReplyTarget(), c.env.CorrelationID)
}

// resetInactivityTimer (re)arms the current behavior's inactivity timeout,
// if one is set. An incoming urgent envelope resets the window (spec.md
// §4.3); this is also called after every processed envelope.
func (cb *ControlBlock) resetInactivityTimer() {
	cb.timerMu.Lock()
	defer cb.timerMu.Unlock()

	if cb.inactivityTmr != nil {
		cb.inactivityTmr.Stop()
		cb.inactivityTmr = nil
	}
	b := cb.behavior
	if b == nil || b.timeout <= 0 || b.onTimeout == nil {
		return
	}
	cb.inactivityTmr = time.AfterFunc(b.timeout, func() {
		cb.fireTimeout()
	})
}

func (cb *ControlBlock) fireTimeout() {
	// A queued envelope means the mailbox did not stay empty for the
	// window; processing it re-arms the timer.
	if cb.IsTerminated() || cb.HasWork() {
		return
	}
	b := cb.behavior
	if b == nil || b.onTimeout == nil {
		return
	}
	ctx := &HandleContext{self: cb}
	_ = b.onTimeout(ctx)
}

// runOne dequeues and dispatches a single envelope, returning whether one
// was available. It is the unit the scheduler's execution engine calls up
// to max_throughput times per quantum (spec.md §4.4, §4.5).
func (cb *ControlBlock) runOne() bool {
	if !cb.running.CompareAndSwap(false, true) {
		// Another worker is already executing this ACB; the scheduler
		// must never call runOne concurrently for the same ACB, but
		// the guard is kept as a hard invariant (spec.md §8 property 1).
		return false
	}
	defer cb.running.Store(false)

	env, ok := cb.mailbox.dequeue()
	if !ok {
		return false
	}

	cb.state.Store(int32(StateRunning))
	cb.dispatch(env)
	cb.resetInactivityTimer()
	if !cb.IsTerminated() {
		if cb.mailbox.len() > 0 {
			cb.state.Store(int32(StateRunnable))
		} else {
			cb.state.Store(int32(StateBlockedOnMailbox))
		}
	}
	return true
}

func (cb *ControlBlock) dispatch(env *Envelope) {
	switch env.Kind {
	case KindDown:
		if cb.sysHandler != nil {
			cb.sysHandler(&HandleContext{self: cb, env: env}, env)
		}
		// default: dropped.

	case KindExit:
		if !env.Reason.IsNormal() {
			if cb.sysHandler != nil {
				cb.sysHandler(&HandleContext{self: cb, env: env}, env)
			} else {
				cb.terminate(env.Reason)
			}
		}

	case KindError:
		cb.dispatchResponse(env.CorrelationID, payload.Payload{}, env.Err, true)

	case KindResponse:
		cb.dispatchResponse(env.CorrelationID, env.Payload, Error{}, false)

	case KindUser:
		cb.handleInbound(env)
	}
}

// dispatchResponse handles (correlationID, payload/err) as a reply to a
// request this ACB itself sent (KindResponse/KindError envelopes only;
// KindUser envelopes always go to handleInbound regardless of their
// CorrelationID, since correlation ids are minted independently per
// sender and a KindUser envelope's id may coincidentally match an entry
// in this ACB's own outbound table without being a reply to it).
func (cb *ControlBlock) dispatchResponse(correlationID int64, p payload.Payload,
	err Error, isErr bool) {

	pr, ok := cb.outbound.take(correlationID)
	if !ok {
		// A response or error reply with no matching outbound request
		// is a late reply to an already-timed-out or already-resolved
		// request; silently dropped.
		return
	}

	if pr.awaited {
		fireable := cb.outbound.resolveAwaited(pr, p, err, isErr)
		for _, f := range fireable {
			if f.resultIsErr {
				if f.onError != nil {
					f.onError(f.resultErr)
				}
			} else if f.onSuccess != nil {
				f.onSuccess(f.resultPayload)
			}
		}
		return
	}

	if isErr {
		if pr.onError != nil {
			pr.onError(err)
		}
	} else if pr.onSuccess != nil {
		pr.onSuccess(p)
	}
}

func (cb *ControlBlock) handleInbound(env *Envelope) {
	var key owedKey
	if env.CorrelationID != 0 {
		key = owedKey{target: env.ReplyTarget(), id: env.CorrelationID}
		cb.owed[key] = env
	}

	c, matched := cb.behavior.match(env.Payload)
	if !matched {
		cb.handleUnmatched(env, key)
		return
	}

	ctx := &HandleContext{self: cb, env: env}
	value, err := cb.invokeSafely(ctx, c, env)

	if ctx.delegated || ctx.promised {
		if env.CorrelationID != 0 {
			delete(cb.owed, key)
		}
		return
	}
	if env.CorrelationID != 0 {
		delete(cb.owed, key)
	}

	if env.CorrelationID != 0 {
		target := env.ReplyTarget()
		if target == nil {
			return
		}
		if err != nil {
			target.enqueue(errorEnvelope(env.CorrelationID, toError(err)))
			return
		}
		target.enqueue(responseEnvelope(env.CorrelationID, payload.New(value)))
		return
	}
	if err != nil {
		cb.terminate(toError(err))
	}
}

func (cb *ControlBlock) handleUnmatched(env *Envelope, key owedKey) {
	b := cb.behavior
	switch b.policy {
	case DefaultSkip:
		cb.mailbox.stashOne(env)
		return
	case DefaultReflect:
		if b.fallback != nil {
			ctx := &HandleContext{self: cb, env: env}
			_ = b.fallback(ctx, env.Payload)
		}
	case DefaultReflectAndQuit:
		if b.fallback != nil {
			ctx := &HandleContext{self: cb, env: env}
			_ = b.fallback(ctx, env.Payload)
		}
		if env.CorrelationID != 0 {
			delete(cb.owed, key)
		}
		cb.terminate(NewExitReason(ExitCodeNormal, nil))
		return
	case DefaultPrintAndDrop:
		log.WarnS(context.Background(), "Unmatched envelope dropped",
			"actor_id", cb.id, "field_count", env.Payload.Len())
	default: // DefaultDrop
	}
	if env.CorrelationID != 0 {
		delete(cb.owed, key)
		target := env.ReplyTarget()
		if target != nil {
			target.enqueue(errorEnvelope(env.CorrelationID,
				NewError(CodeUnexpectedMessage, CategoryRequest, cb.id)))
		}
	}
}

// invokeSafely runs a matched Case's handler, converting a panic into a
// runtime_error the same way an uncaught exception would be converted in
// the source implementation (spec.md §9).
func (cb *ControlBlock) invokeSafely(ctx *HandleContext, c Case,
	env *Envelope) (value any, err error) {

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("actor: handler panic: %v", r)
		}
	}()
	return c.invoke(ctx, env.Payload)
}

func toError(err error) Error {
	if e, ok := err.(Error); ok {
		return e
	}
	return NewError(CodeRuntimeError, CategoryRuntime, err)
}

// terminate runs the shutdown sequence exactly once: cleanup hooks,
// draining the mailbox, synthesising request_receiver_down for every owed
// reply, notifying links and monitors, and releasing user state.
func (cb *ControlBlock) terminate(reason ExitReason) {
	cb.exitOnce.Do(func() {
		cb.exitReason = reason
		cb.state.Store(int32(StateTerminated))

		for _, hook := range cb.cleanupHooks {
			hook()
		}

		for key, env := range cb.owed {
			if key.target != nil {
				key.target.enqueue(errorEnvelope(key.id,
					NewError(CodeRequestReceiverDown, CategoryRequest, cb.id)))
			}
			_ = env
		}
		cb.owed = nil

		cb.mailbox.closeAndDrain()

		cb.notifyLinksAndMonitors(reason)

		cb.userState = nil

		close(cb.terminated)
	})
}

// Terminate terminates the actor from outside its own handler (e.g. a
// supervisor calling Kill), with the given exit reason.
func (cb *ControlBlock) Terminate(reason ExitReason) {
	cb.terminate(reason)
}

// Wait blocks until the actor has finished terminating.
func (cb *ControlBlock) Wait() {
	<-cb.terminated
}

// ExitReason returns the actor's exit reason once terminated; the zero
// Error otherwise.
func (cb *ControlBlock) ExitReason() ExitReason {
	return cb.exitReason
}

// RunQuantum runs up to maxThroughput envelopes for this ACB, stopping
// early if the mailbox empties or the actor terminates. It reports whether
// the mailbox still has pending work once the quantum ends, which the
// scheduler uses to decide whether to re-queue the ACB at the bottom of
// its deque (spec.md §4.4's per-step fairness).
func (cb *ControlBlock) RunQuantum(maxThroughput int) (hasMoreWork bool) {
	if maxThroughput <= 0 {
		maxThroughput = 1<<31 - 1
	}
	for i := 0; i < maxThroughput; i++ {
		if cb.IsTerminated() {
			return false
		}
		if !cb.runOne() {
			return false
		}
	}
	return cb.HasWork() && !cb.IsTerminated()
}

// RunLoop drives a detached ACB's receive loop on the calling goroutine,
// blocking between envelopes rather than participating in the
// work-stealing pool (spec.md §4.4's "detached actors"). It returns when
// the actor terminates or ctx is cancelled.
func (cb *ControlBlock) RunLoop(ctx context.Context) {
	for {
		for cb.runOne() {
			if cb.IsTerminated() {
				return
			}
		}
		if cb.IsTerminated() {
			return
		}
		select {
		case <-ctx.Done():
			cb.terminate(NewExitReason(ExitCodeUserShutdown, ctx.Err()))
			return
		case <-cb.terminated:
			return
		case <-cb.wake:
		}
	}
}

// SpawnScheduled constructs an ACB wired to runner (typically a
// scheduler), runnable as soon as its mailbox receives its first envelope.
func SpawnScheduled(runner Runner, behavior *Behavior) *ControlBlock {
	cb := NewControlBlock(behavior)
	cb.SetRunner(runner)
	return cb
}

// SpawnDetached constructs an ACB with no scheduler affiliation. The
// caller must run cb.RunLoop on a dedicated goroutine to drive it
// (spec.md §4.4).
func SpawnDetached(behavior *Behavior) *ControlBlock {
	return NewControlBlock(behavior)
}
