package relay

import (
	"sync"
	"time"

	"github.com/cuongbtq/marketops-be/internal/domain"
)

// pendingCall is the in-memory handle for one in-flight correlated request.
// The result channel is buffered with capacity 1 so whichever side wins the
// atomic take can resolve without blocking. A pendingCall is never persisted;
// its lifetime is bounded by a single Issue call.
type pendingCall struct {
	requestID  string
	sessionKey string
	deadline   time.Time
	result     chan domain.Outcome
}

// PendingTable tracks in-flight correlated requests. It is the only shared
// mutable structure in the relay; every insert, lookup and removal holds the
// mutex. Each entry is removed exactly once, by exactly one of: the matching
// response, the caller's timeout, the caller's cancellation, or Drain at
// shutdown.
type PendingTable struct {
	mu    sync.Mutex
	calls map[string]*pendingCall
}

// NewPendingTable creates an empty pending-request table.
func NewPendingTable() *PendingTable {
	return &PendingTable{calls: make(map[string]*pendingCall)}
}

// Put registers a new in-flight request.
func (t *PendingTable) Put(call *pendingCall) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls[call.requestID] = call
}

// Take atomically removes and returns the entry for requestID. The second
// return value is false when the entry was already taken, which callers treat
// as "the other side won the race" rather than an error.
func (t *PendingTable) Take(requestID string) (*pendingCall, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	call, ok := t.calls[requestID]
	if ok {
		delete(t.calls, requestID)
	}
	return call, ok
}

// Len returns the number of in-flight requests.
func (t *PendingTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

// Drain removes every outstanding entry and resolves each to a cancelled
// failure. Used at shutdown so no caller is left suspended forever.
func (t *PendingTable) Drain(message string) int {
	t.mu.Lock()
	calls := t.calls
	t.calls = make(map[string]*pendingCall)
	t.mu.Unlock()

	for _, call := range calls {
		call.result <- domain.Failure(domain.FailureRemoteError, message, true)
	}

	return len(calls)
}
