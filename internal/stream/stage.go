package stream

import "github.com/roasbeef/greenroom/internal/baselib/actor"

// DefaultWindow is the credit window a Manager grants when a Pipeline
// doesn't specify one, and the fixed budget a Stage keeps outstanding
// towards its own upstream neighbor (upstreamWindow), replenished by one
// unit for every element the stage consumes. Using the stage-to-upstream
// window independently of whatever its own downstream neighbor has
// granted it means a filter that drops most elements never starves the
// upstream side waiting on downstream credit.
const DefaultWindow = 4

const upstreamWindow = DefaultWindow

// stageState is captured by NewStage's closures, mutated only from within
// the owning actor's handlers.
type stageState struct {
	id       ID
	upstream *actor.ControlBlock
	down     *actor.ControlBlock

	predicate func(any) bool

	sinkCredit int
	pending    []any
	upOpened   bool
	downOpened bool
	upstreamID ID
}

func (st *stageState) flush(ctx *actor.HandleContext) {
	for st.sinkCredit > 0 && len(st.pending) > 0 {
		el := st.pending[0]
		st.pending = st.pending[1:]
		st.sinkCredit--
		actor.Tell(st.down, ctx.Self(), actor.PriorityNormal,
			streamData{id: st.id, elements: []any{el}})
	}
}

// NewStage builds a pass-through filtering role: every element arriving
// from upstream that satisfies predicate is forwarded downstream, subject
// to the downstream neighbor's granted credit; every element (whether or
// not it passes the filter) replenishes the stage's own credit grant
// towards its upstream neighbor (spec.md §4.9).
func NewStage(upstream *actor.ControlBlock, predicate func(any) bool) *actor.Behavior {
	st := &stageState{upstream: upstream, predicate: predicate}
	upstreamEnded := false

	return actor.NewBehavior(
		actor.Case1(func(ctx *actor.HandleContext, msg openStream) (struct{}, error) {
			if st.downOpened {
				return struct{}{}, newStreamError(CodeDownstreamAlreadyExists, msg.id)
			}
			st.downOpened = true
			st.id = msg.id
			st.down = ctx.Envelope().Sender
			st.sinkCredit = msg.credit

			actor.Tell(st.upstream, ctx.Self(), actor.PriorityNormal,
				openStream{id: msg.id, credit: upstreamWindow})
			return struct{}{}, nil
		}),
		actor.Case1(func(ctx *actor.HandleContext, msg streamAck) (struct{}, error) {
			if !st.downOpened || st.upOpened {
				return struct{}{}, newStreamError(CodeUpstreamAlreadyExists, msg.id)
			}
			st.upOpened = true
			st.upstreamID = msg.id
			actor.Tell(st.down, ctx.Self(), actor.PriorityNormal, streamAck{id: st.id})
			return struct{}{}, nil
		}),
		actor.Case1(func(ctx *actor.HandleContext, msg streamData) (struct{}, error) {
			if !st.upOpened || msg.id != st.upstreamID {
				return struct{}{}, newStreamError(CodeInvalidStreamState, msg.id)
			}
			for _, el := range msg.elements {
				if st.predicate(el) {
					st.pending = append(st.pending, el)
				}
			}
			st.flush(ctx)
			actor.Tell(st.upstream, ctx.Self(), actor.PriorityNormal,
				creditGrant{id: st.upstreamID, amount: len(msg.elements)})
			return struct{}{}, nil
		}),
		actor.Case1(func(ctx *actor.HandleContext, msg creditGrant) (struct{}, error) {
			if !st.downOpened || msg.id != st.id {
				return struct{}{}, newStreamError(CodeInvalidDownstream, msg.id)
			}
			st.sinkCredit += msg.amount
			st.flush(ctx)
			if upstreamEnded && len(st.pending) == 0 {
				upstreamEnded = false
				actor.Tell(st.down, ctx.Self(), actor.PriorityNormal, endOfStream{id: st.id})
			}
			return struct{}{}, nil
		}),
		actor.Case1(func(ctx *actor.HandleContext, msg endOfStream) (struct{}, error) {
			if !st.upOpened || msg.id != st.upstreamID {
				return struct{}{}, newStreamError(CodeInvalidStreamState, msg.id)
			}
			st.flush(ctx)
			if len(st.pending) > 0 {
				// Forwarded from the creditGrant case once the
				// pending elements have been flushed downstream.
				upstreamEnded = true
				return struct{}{}, nil
			}
			actor.Tell(st.down, ctx.Self(), actor.PriorityNormal, endOfStream{id: st.id})
			return struct{}{}, nil
		}),
		actor.Case1(func(ctx *actor.HandleContext, msg streamFault) (struct{}, error) {
			if st.down != nil {
				actor.Tell(st.down, ctx.Self(), actor.PriorityNormal,
					streamFault{id: st.id, err: msg.err})
			}
			if st.upOpened {
				actor.Tell(st.upstream, ctx.Self(), actor.PriorityNormal,
					streamFault{id: st.upstreamID, err: msg.err})
			}
			ctx.Self().Terminate(actor.NewExitReason(actor.ExitCodeKill, msg.err))
			return struct{}{}, nil
		}),
	)
}
