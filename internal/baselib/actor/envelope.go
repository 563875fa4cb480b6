package actor

import "github.com/roasbeef/greenroom/internal/baselib/payload"

// Priority is the mailbox band an Envelope is enqueued into.
type Priority int

const (
	// PriorityNormal is the default band.
	PriorityNormal Priority = iota

	// PriorityUrgent envelopes are always dequeued before any pending
	// normal envelope (spec.md §4.2).
	PriorityUrgent
)

// Kind distinguishes a user payload envelope from the system-message
// envelopes the execution engine synthesises (down, exit, error).
type Kind int

const (
	// KindUser carries a user-level Payload to be matched against the
	// receiver's current Behavior.
	KindUser Kind = iota

	// KindDown is a monitor notification: Source terminated with Reason.
	KindDown

	// KindExit is a link-propagated notification: Source terminated
	// with Reason.
	KindExit

	// KindError is a synthesised response to a correlated request that
	// failed (receiver down, unexpected message, a handler's returned
	// error, or a rejected promise). A request_timeout is not delivered
	// as an envelope: the timer calls the request's onError directly.
	KindError

	// KindResponse is a synthesised successful reply to a correlated
	// request this ACB itself sent. Distinguishing it from KindUser by
	// Kind rather than by CorrelationID table membership matters because
	// correlation ids are minted independently per sender (request.go's
	// nextCorrelationID): two different senders can mint the same
	// numeric id, so a KindUser envelope's CorrelationID happening to
	// match an entry in the receiver's own outbound table is not proof
	// that envelope is a reply to that request.
	KindResponse
)

// Envelope is a message in transit: a payload plus sender, correlation id,
// priority band, and a forwarding stack of actors awaiting the reply
// (spec.md §3). An Envelope with CorrelationID == 0 is fire-and-forget.
type Envelope struct {
	Kind Kind

	Payload payload.Payload

	// Sender is the ACB that originated this envelope, or nil for an
	// anonymous send.
	Sender *ControlBlock

	// CorrelationID is 0 for fire-and-forget, positive for a request
	// awaiting a reply addressed by this id.
	CorrelationID int64

	Priority Priority

	// forwarding is a stack of ACBs each delegating responsibility for
	// the eventual reply to the next. ReplyTarget returns its top, or
	// Sender if empty.
	forwarding []*ControlBlock

	// Source identifies the actor a KindDown/KindExit envelope concerns.
	Source ActorID

	// Reason is populated for KindDown/KindExit envelopes.
	Reason ExitReason

	// Err is populated for KindError envelopes (the error a failed
	// request is answered with).
	Err Error
}

// NewEnvelope constructs a fire-and-forget, normal-priority user envelope.
func NewEnvelope(p payload.Payload) *Envelope {
	return &Envelope{Kind: KindUser, Payload: p, Priority: PriorityNormal}
}

// WithSender sets the originating ACB and returns e for chaining.
func (e *Envelope) WithSender(sender *ControlBlock) *Envelope {
	e.Sender = sender
	return e
}

// WithCorrelationID marks e as a request awaiting a reply under id.
func (e *Envelope) WithCorrelationID(id int64) *Envelope {
	e.CorrelationID = id
	return e
}

// WithPriority sets e's priority band.
func (e *Envelope) WithPriority(p Priority) *Envelope {
	e.Priority = p
	return e
}

// PushForward pushes ref onto the forwarding stack, making it the new
// ReplyTarget. Used by delegation (spec.md §4.8) to hand off responsibility
// for the eventual reply without touching Sender.
func (e *Envelope) PushForward(ref *ControlBlock) {
	e.forwarding = append(e.forwarding, ref)
}

// PopForward removes and returns the top of the forwarding stack, if any.
func (e *Envelope) PopForward() (*ControlBlock, bool) {
	if len(e.forwarding) == 0 {
		return nil, false
	}
	top := e.forwarding[len(e.forwarding)-1]
	e.forwarding = e.forwarding[:len(e.forwarding)-1]
	return top, true
}

// ReplyTarget returns the ACB a response to e should be addressed to: the
// top of the forwarding stack if non-empty, else Sender.
func (e *Envelope) ReplyTarget() *ControlBlock {
	if len(e.forwarding) > 0 {
		return e.forwarding[len(e.forwarding)-1]
	}
	return e.Sender
}

// downEnvelope synthesises a KindDown envelope reporting that source
// terminated with reason.
func downEnvelope(source ActorID, reason ExitReason) *Envelope {
	return &Envelope{
		Kind:     KindDown,
		Priority: PriorityUrgent,
		Source:   source,
		Reason:   reason,
	}
}

// exitEnvelope synthesises a KindExit envelope reporting that source
// terminated with reason, to be delivered to a linked peer.
func exitEnvelope(source ActorID, reason ExitReason) *Envelope {
	return &Envelope{
		Kind:     KindExit,
		Priority: PriorityUrgent,
		Source:   source,
		Reason:   reason,
	}
}

// errorEnvelope synthesises a KindError response for a correlated request
// that failed without a handler-produced value.
func errorEnvelope(correlationID int64, err Error) *Envelope {
	return &Envelope{
		Kind:          KindError,
		Priority:      PriorityUrgent,
		CorrelationID: correlationID,
		Err:           err,
	}
}

// responseEnvelope synthesises a KindResponse reply carrying a handler's
// successful return value back to a correlated request's sender.
func responseEnvelope(correlationID int64, p payload.Payload) *Envelope {
	return &Envelope{
		Kind:          KindResponse,
		Priority:      PriorityUrgent,
		CorrelationID: correlationID,
		Payload:       p,
	}
}
