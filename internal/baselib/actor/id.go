package actor

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// nodeID is this process's node identifier, generated once at package init
// time. Every ActorID minted by this process carries the same node value,
// matching spec.md §3's "process-local, monotonically increasing integer
// paired with a node identifier" contract.
var nodeID = uuid.New()

var localCounter atomic.Uint64

// ActorID uniquely identifies an actor within a node, forever. Ids are
// never reused: Local only increases.
type ActorID struct {
	Node  uuid.UUID
	Local uint64
}

// NewActorID mints a fresh, never-reused ActorID on this node.
func NewActorID() ActorID {
	return ActorID{
		Node:  nodeID,
		Local: localCounter.Add(1),
	}
}

// String renders the id as "<node>/<local>".
func (id ActorID) String() string {
	return fmt.Sprintf("%s/%d", id.Node, id.Local)
}

// IsZero reports whether id is the zero value (never returned by
// NewActorID, since Local starts at 1).
func (id ActorID) IsZero() bool {
	return id.Local == 0
}
