package stream

import "github.com/roasbeef/greenroom/internal/baselib/actor"

// ID identifies one stream session, minted by the downstream side at
// handshake time (spec.md §4.9).
type ID string

// openStream is sent downstream -> upstream to begin a handshake, carrying
// the initial credit grant.
type openStream struct {
	id     ID
	credit int
}

// streamAck is upstream's handshake reply, confirming the stream id.
type streamAck struct {
	id ID
}

// streamData carries a batch of elements upstream -> downstream, debiting
// the sender's credit balance by len(Elements).
type streamData struct {
	id       ID
	elements []any
}

// creditGrant replenishes upstream's credit balance, downstream -> upstream.
type creditGrant struct {
	id     ID
	amount int
}

// endOfStream signals clean completion, upstream -> downstream.
type endOfStream struct {
	id ID
}

// streamFault propagates an error in either direction: upstream treats a
// received fault as cancellation, downstream treats it as end-of-stream
// with an error (spec.md §4.9).
type streamFault struct {
	id  ID
	err actor.Error
}
