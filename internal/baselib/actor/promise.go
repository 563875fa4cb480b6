package actor

import (
	"fmt"
	"sync"

	"github.com/roasbeef/greenroom/internal/baselib/payload"
)

// ResponsePromise implements spec.md §4.8: capturing the reply target and
// correlation id at creation time releases the current handler from
// synthesising a reply immediately, guaranteeing exactly one delivery when
// the promise is later Fulfilled or Rejected.
type ResponsePromise struct {
	mu sync.Mutex

	target        *ControlBlock
	correlationID int64
	settled       bool
}

// newResponsePromise captures the current handler invocation's reply
// target and correlation id.
func newResponsePromise(target *ControlBlock, correlationID int64) *ResponsePromise {
	return &ResponsePromise{target: target, correlationID: correlationID}
}

// ErrPromiseAlreadySettled is returned by Fulfill/Reject if the promise was
// already delivered.
var ErrPromiseAlreadySettled = fmt.Errorf("actor: response promise already settled")

// Fulfill delivers value as the response, exactly once. A second call
// (Fulfill or Reject) returns ErrPromiseAlreadySettled.
func (rp *ResponsePromise) Fulfill(value any) error {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	if rp.settled {
		return ErrPromiseAlreadySettled
	}
	rp.settled = true

	if rp.target == nil || rp.correlationID == 0 {
		return nil
	}
	rp.target.deliverSystem(responseEnvelope(rp.correlationID, payload.New(value)))
	return nil
}

// Reject delivers err as the response, exactly once.
func (rp *ResponsePromise) Reject(err Error) error {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	if rp.settled {
		return ErrPromiseAlreadySettled
	}
	rp.settled = true

	if rp.target == nil || rp.correlationID == 0 {
		return nil
	}
	rp.target.deliverSystem(errorEnvelope(rp.correlationID, err))
	return nil
}

// Delegate implements the one-shot forwarding half of spec.md §4.8: the
// current handler atomically transfers responsibility for replying to
// `to` by pushing the envelope's current reply target onto its forwarding
// stack and re-enqueuing the envelope at `to`. The calling handler must
// return without itself synthesising a reply.
func Delegate(env *Envelope, to *ControlBlock) {
	env.PushForward(env.ReplyTarget())
	to.deliverUser(env)
}
