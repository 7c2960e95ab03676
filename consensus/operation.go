package consensus

import (
	"errors"
	"sync"
	"time"
)

// OperationKind is a tagged variant over the kinds of payload that can be
// appended to the log. The coordinator treats kinds uniformly except where
// noted (configuration changes pend a Configuration; split requests record
// SplitOpId; leader-change entries and no-ops never carry a client request id).
type OperationKind uint32

const (
	// Write is a regular client write, applied to the state machine.
	Write OperationKind = iota

	// NoOp is appended by a new leader to commit entries from prior terms
	// via the "commit-only-own-term" rule.
	NoOp

	// ConfigChange changes Raft group membership.
	ConfigChange

	// Split requests partitioning this Raft group.
	Split

	// LeaderChange records a completed leader election for diagnostics.
	LeaderChange

	// LinearizableReadOnly is a read admitted without a log entry, safe to
	// serve once a quorum-verifying heartbeat round confirms this replica is
	// still leader. Never enters the pending queue.
	LinearizableReadOnly

	// LeaseBasedReadOnly is a read admitted without a log entry or a
	// heartbeat round, safe to serve purely on the strength of a currently
	// valid leader lease. Never enters the pending queue.
	LeaseBasedReadOnly
)

func (k OperationKind) String() string {
	switch k {
	case Write:
		return "write"
	case NoOp:
		return "no-op"
	case ConfigChange:
		return "config-change"
	case Split:
		return "split"
	case LeaderChange:
		return "leader-change"
	case LinearizableReadOnly:
		return "linearizable-read-only"
	case LeaseBasedReadOnly:
		return "lease-based-read-only"
	default:
		return "unknown"
	}
}

// ReplicationStatus is the lifecycle state of an Operation as it moves
// through the pending queue.
type ReplicationStatus uint32

const (
	Prepared ReplicationStatus = iota
	Appended
	ReplicatedToMajority
	Committed
	Aborted
)

func (s ReplicationStatus) String() string {
	switch s {
	case Prepared:
		return "prepared"
	case Appended:
		return "appended"
	case ReplicatedToMajority:
		return "replicated-to-majority"
	case Committed:
		return "committed"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Operation is an application payload together with the bookkeeping the
// coordinator needs to sequence, commit, or abort it.
type Operation struct {
	// Kind tags which variant of payload this is.
	Kind OperationKind

	// Bytes is the opaque application payload. For ConfigChange operations
	// it is unused; NewConfig carries the configuration instead.
	Bytes []byte

	// NewConfig is set only for ConfigChange operations.
	NewConfig *Configuration

	// ClientRequestId is set for client writes that are deduplicated by the
	// retryable-requests filter. Empty for internal operations (no-op,
	// leader-change).
	ClientRequestId string
}

// ReplicatedEntry pairs an Operation with the OpId its leader already
// assigned it, as carried on an AppendEntries-style RPC. A follower or
// learner accepts entries in this form rather than assigning indices
// itself, since only the current term's leader originates new OpIds.
type ReplicatedEntry struct {
	OpId      OpId
	Operation Operation
}

// OperationResult is handed to an operation's completion callback.
type OperationResult struct {
	OpId     OpId
	Status   ReplicationStatus
	Response interface{}
	Err      error
}

// CompletionCallback is invoked exactly once per accepted operation, with
// either its commit result or its abort status. Commit callbacks are invoked
// without the coordinator's lock held; abort callbacks run while it is held
// (see ReplicaStateCoordinator).
type CompletionCallback func(OperationResult)

// Round pairs an Operation with the OpId the coordinator assigned it, its
// current status, and its completion callback(s). The pending queue holds
// *Round values so that a commit path and an abort path sharing a reference
// to the same round cannot both fire its callback. A Round's own mutex
// guards only fired/callbacks/result, since those fields can be touched by
// AddCallback after the round has left the pending queue (and so the
// coordinator's own lock no longer serializes access to it).
type Round struct {
	OpId      OpId
	Operation Operation
	Status    ReplicationStatus

	mu        sync.Mutex
	callbacks []CompletionCallback
	fired     bool
	result    OperationResult
}

// NewRound creates a Round in the Prepared state.
func NewRound(opID OpId, op Operation, cb CompletionCallback) *Round {
	r := &Round{OpId: opID, Operation: op, Status: Prepared}
	if cb != nil {
		r.callbacks = append(r.callbacks, cb)
	}
	return r
}

// fire invokes every callback registered on the round exactly once.
// Subsequent calls are no-ops, which is what lets AdvanceCommittedOpId and
// AbortOpsAfter share removal logic without double-firing a round that
// straddles both paths during a truncate-then-reappend sequence.
func (r *Round) fire(result OperationResult) {
	r.mu.Lock()
	if r.fired {
		r.mu.Unlock()
		return
	}
	r.fired = true
	r.result = result
	callbacks := r.callbacks
	r.mu.Unlock()

	for _, cb := range callbacks {
		cb(result)
	}
}

// AddCallback registers an additional callback to be invoked alongside this
// round's existing ones when it fires. Used when a client retries a write
// whose original request is still in flight: rather than telling the
// caller a result that does not exist yet, the retry's callback is chained
// onto the same round so both the original and the retrying caller observe
// the one outcome. If the round has already fired, cb is invoked
// immediately with the stored result instead.
func (r *Round) AddCallback(cb CompletionCallback) {
	if cb == nil {
		return
	}
	r.mu.Lock()
	if r.fired {
		result := r.result
		r.mu.Unlock()
		cb(result)
		return
	}
	r.callbacks = append(r.callbacks, cb)
	r.mu.Unlock()
}

// ErrRoundTimeout is the Err of the result RoundFuture.Await returns when no
// result arrives within the future's timeout.
var ErrRoundTimeout = errors.New("timed out waiting for round completion")

// RoundFuture lets a caller block for a Round's outcome instead of wiring a
// callback, for callers that would rather block than wire up a callback.
type RoundFuture struct {
	resultCh chan OperationResult
	timeout  time.Duration
	result   *OperationResult
}

// NewRoundFuture creates a RoundFuture and a CompletionCallback that
// resolves it; pass the callback to NewRound.
func NewRoundFuture(timeout time.Duration) (*RoundFuture, CompletionCallback) {
	f := &RoundFuture{resultCh: make(chan OperationResult, 1), timeout: timeout}
	return f, func(result OperationResult) {
		select {
		case f.resultCh <- result:
		default:
		}
	}
}

// Await blocks until the round completes or the future's timeout elapses.
func (f *RoundFuture) Await() OperationResult {
	if f.result != nil {
		return *f.result
	}
	select {
	case result := <-f.resultCh:
		f.result = &result
	case <-time.After(f.timeout):
		f.result = &OperationResult{Err: ErrRoundTimeout}
	}
	return *f.result
}
