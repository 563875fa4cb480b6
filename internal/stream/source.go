package stream

import "github.com/roasbeef/greenroom/internal/baselib/actor"

// sourceState is captured by NewSource's closures. Mutated only from
// within the owning actor's handlers, so it needs no locking (the same
// at-most-one-execution guarantee ControlBlock.runOne provides).
type sourceState struct {
	id       ID
	elements []any
	pos      int
	credit   int
	opened   bool
	down     *actor.ControlBlock
}

func (st *sourceState) emit(ctx *actor.HandleContext) {
	for st.credit > 0 && st.pos < len(st.elements) {
		el := st.elements[st.pos]
		st.pos++
		st.credit--
		actor.Tell(st.down, ctx.Self(), actor.PriorityNormal,
			streamData{id: st.id, elements: []any{el}})
	}
	if st.pos >= len(st.elements) {
		actor.Tell(st.down, ctx.Self(), actor.PriorityNormal, endOfStream{id: st.id})
	}
}

// NewSource builds the upstream-most role of a stream (spec.md §4.9): it
// holds a fixed slice of elements and emits them only as fast as its
// downstream neighbor grants credit, never exceeding its running credit
// balance.
func NewSource(elements []any) *actor.Behavior {
	st := &sourceState{elements: elements}

	return actor.NewBehavior(
		actor.Case1(func(ctx *actor.HandleContext, msg openStream) (struct{}, error) {
			if st.opened {
				return struct{}{}, newStreamError(CodeDownstreamAlreadyExists, msg.id)
			}
			st.opened = true
			st.id = msg.id
			st.credit = msg.credit
			st.down = ctx.Envelope().Sender

			actor.Tell(st.down, ctx.Self(), actor.PriorityNormal, streamAck{id: st.id})
			st.emit(ctx)
			return struct{}{}, nil
		}),
		actor.Case1(func(ctx *actor.HandleContext, msg creditGrant) (struct{}, error) {
			if !st.opened || msg.id != st.id {
				return struct{}{}, newStreamError(CodeInvalidStreamState, msg.id)
			}
			st.credit += msg.amount
			st.emit(ctx)
			return struct{}{}, nil
		}),
		actor.Case1(func(ctx *actor.HandleContext, msg streamFault) (struct{}, error) {
			ctx.Self().Terminate(actor.NewExitReason(actor.ExitCodeKill, msg.err))
			return struct{}{}, nil
		}),
	)
}
