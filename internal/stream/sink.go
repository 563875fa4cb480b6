package stream

import "github.com/roasbeef/greenroom/internal/baselib/actor"

// startStream is an internal kick-off message the owning Manager
// Tells a freshly spawned sink to begin the handshake; it never crosses
// the wire between stream roles.
type startStream struct {
	id     ID
	credit int
}

// sinkState is captured by NewSink's closures, mutated only from within
// the owning actor's handlers.
type sinkState struct {
	id       ID
	upstream *actor.ControlBlock
	window   int
	opened   bool

	onElement func(any)
	onDone    func(error)
	done      bool
}

// NewSink builds the downstream-most role of a stream (spec.md §4.9): it
// initiates the credit handshake, consumes arriving elements, keeps a
// fixed credit window replenished as it consumes, and reports completion
// (clean or faulted) exactly once via onDone.
func NewSink(upstream *actor.ControlBlock, window int, onElement func(any),
	onDone func(error)) *actor.Behavior {

	st := &sinkState{upstream: upstream, window: window, onElement: onElement, onDone: onDone}

	finish := func(err error) {
		if st.done {
			return
		}
		st.done = true
		if st.onDone != nil {
			st.onDone(err)
		}
	}

	return actor.NewBehavior(
		actor.Case1(func(ctx *actor.HandleContext, msg startStream) (struct{}, error) {
			if st.opened {
				return struct{}{}, newStreamError(CodeUpstreamAlreadyExists, msg.id)
			}
			st.opened = true
			st.id = msg.id
			actor.Tell(st.upstream, ctx.Self(), actor.PriorityNormal,
				openStream{id: msg.id, credit: st.window})
			return struct{}{}, nil
		}),
		actor.Case1(func(ctx *actor.HandleContext, msg streamAck) (struct{}, error) {
			if !st.opened || msg.id != st.id {
				return struct{}{}, newStreamError(CodeInvalidUpstream, msg.id)
			}
			return struct{}{}, nil
		}),
		actor.Case1(func(ctx *actor.HandleContext, msg streamData) (struct{}, error) {
			if !st.opened || msg.id != st.id {
				return struct{}{}, newStreamError(CodeInvalidStreamState, msg.id)
			}
			for _, el := range msg.elements {
				if st.onElement != nil {
					st.onElement(el)
				}
			}
			actor.Tell(st.upstream, ctx.Self(), actor.PriorityNormal,
				creditGrant{id: st.id, amount: len(msg.elements)})
			return struct{}{}, nil
		}),
		actor.Case1(func(ctx *actor.HandleContext, msg endOfStream) (struct{}, error) {
			if !st.opened || msg.id != st.id {
				return struct{}{}, newStreamError(CodeInvalidStreamState, msg.id)
			}
			finish(nil)
			ctx.Self().Terminate(actor.NewExitReason(actor.ExitCodeNormal, nil))
			return struct{}{}, nil
		}),
		actor.Case1(func(ctx *actor.HandleContext, msg streamFault) (struct{}, error) {
			finish(msg.err)
			ctx.Self().Terminate(actor.NewExitReason(actor.ExitCodeKill, msg.err))
			return struct{}{}, nil
		}),
	)
}
