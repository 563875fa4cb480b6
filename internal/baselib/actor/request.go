package actor

import (
	"container/heap"
	"sync"
	"time"

	"github.com/roasbeef/greenroom/internal/baselib/payload"
)

// pendingRequest is one outstanding request a sender ACB is awaiting a
// reply for (spec.md §3's Request Record).
type pendingRequest struct {
	id       int64
	deadline time.Time

	onSuccess func(payload.Payload)
	onError   func(Error)

	// awaited marks a request installed via the `.await` style, which
	// post-processes responses through the ACB's LIFO await stack
	// rather than firing immediately on arrival.
	awaited bool

	// ready and the result fields below are only meaningful for an
	// awaited request: its response (or timeout) may arrive before it
	// reaches the top of the await stack, in which case the result is
	// buffered here until resolveAwaited says it may fire.
	ready          bool
	resultPayload  payload.Payload
	resultErr      Error
	resultIsErr    bool

	// heapIndex is maintained by container/heap for O(log n) removal.
	heapIndex int
}

// deadlineHeap is a container/heap min-heap of pendingRequests ordered by
// deadline. expired and nextDeadline read it; Ask and AskAwaited fire
// request_timeout through a time.AfterFunc timer per request and do not
// consult it.
type deadlineHeap []*pendingRequest

func (h deadlineHeap) Len() int { return len(h) }
func (h deadlineHeap) Less(i, j int) bool {
	return h[i].deadline.Before(h[j].deadline)
}
func (h deadlineHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex, h[j].heapIndex = i, j
}
func (h *deadlineHeap) Push(x any) {
	pr := x.(*pendingRequest)
	pr.heapIndex = len(*h)
	*h = append(*h, pr)
}
func (h *deadlineHeap) Pop() any {
	old := *h
	n := len(old)
	pr := old[n-1]
	old[n-1] = nil
	pr.heapIndex = -1
	*h = old[:n-1]
	return pr
}

// requestTable correlates outbound requests to their eventual replies, one
// instance per ACB (spec.md §4.6). Unlike most ACB-owned state, it is
// touched from a goroutine outside the owning worker (the time.AfterFunc
// timer that fires a request's timeout), so it carries its own mutex.
type requestTable struct {
	mu sync.Mutex

	nextID int64

	byID map[int64]*pendingRequest
	heap deadlineHeap

	// awaitStack holds awaited requests in send order; responses are
	// post-processed in reverse of that order regardless of arrival
	// order (spec.md §4.6, the "await LIFO" scenario).
	awaitStack []*pendingRequest
}

func newRequestTable() *requestTable {
	return &requestTable{byID: make(map[int64]*pendingRequest)}
}

// nextCorrelationID allocates a fresh positive correlation id.
func (rt *requestTable) nextCorrelationID() int64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.nextID++
	return rt.nextID
}

// register installs a pending request under id with the given deadline and
// handlers, returning it for the caller to track.
func (rt *requestTable) register(id int64, deadline time.Time, awaited bool,
	onSuccess func(payload.Payload), onError func(Error)) *pendingRequest {

	rt.mu.Lock()
	defer rt.mu.Unlock()

	pr := &pendingRequest{
		id:        id,
		deadline:  deadline,
		onSuccess: onSuccess,
		onError:   onError,
		awaited:   awaited,
		heapIndex: -1,
	}
	rt.byID[id] = pr
	if !deadline.IsZero() {
		heap.Push(&rt.heap, pr)
	}
	if awaited {
		rt.awaitStack = append(rt.awaitStack, pr)
	}
	return pr
}

// take removes the bookkeeping (id index, deadline heap entry) for the
// pending request registered under id, if any, but leaves an awaited
// request on the await stack — resolveAwaited governs when an awaited
// request's handler is actually allowed to fire. Response arrival after a
// request has already timed out and been removed is silently dropped, per
// spec.md §4.6.
func (rt *requestTable) take(id int64) (*pendingRequest, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	pr, ok := rt.byID[id]
	if !ok {
		return nil, false
	}
	delete(rt.byID, id)
	if pr.heapIndex >= 0 {
		heap.Remove(&rt.heap, pr.heapIndex)
	}
	return pr, true
}

// resolveAwaited records pr's result and returns, in firing order, every
// awaited request now eligible to have its handler invoked: pr itself (if
// it reached the top of the stack) and every entry below it that was
// already marked ready, stopping at the first not-yet-ready entry. This is
// what gives await responses reverse-of-send-order firing regardless of
// arrival order (spec.md §4.6, the "await LIFO" scenario).
func (rt *requestTable) resolveAwaited(pr *pendingRequest, p payload.Payload,
	err Error, isErr bool) []*pendingRequest {

	rt.mu.Lock()
	defer rt.mu.Unlock()

	pr.ready = true
	pr.resultPayload = p
	pr.resultErr = err
	pr.resultIsErr = isErr

	var fireable []*pendingRequest
	for len(rt.awaitStack) > 0 {
		top := rt.awaitStack[len(rt.awaitStack)-1]
		if !top.ready {
			break
		}
		fireable = append(fireable, top)
		rt.awaitStack = rt.awaitStack[:len(rt.awaitStack)-1]
	}
	return fireable
}

// expired pops every pending request whose deadline is at or before now,
// for the caller to fail with request_timeout.
func (rt *requestTable) expired(now time.Time) []*pendingRequest {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	var out []*pendingRequest
	for rt.heap.Len() > 0 && !rt.heap[0].deadline.After(now) {
		pr := heap.Pop(&rt.heap).(*pendingRequest)
		delete(rt.byID, pr.id)
		out = append(out, pr)
	}
	return out
}

// drainAll removes and returns every still-pending request. terminate does
// not call it: an ACB's own outstanding asks stay in its table after it
// terminates.
func (rt *requestTable) drainAll() []*pendingRequest {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	out := make([]*pendingRequest, 0, len(rt.byID))
	for _, pr := range rt.byID {
		out = append(out, pr)
	}
	rt.byID = make(map[int64]*pendingRequest)
	rt.heap = nil
	rt.awaitStack = nil
	return out
}

// nextDeadline returns the earliest pending deadline, if any.
func (rt *requestTable) nextDeadline() (time.Time, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.heap.Len() == 0 {
		return time.Time{}, false
	}
	return rt.heap[0].deadline, true
}
