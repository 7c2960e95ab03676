package consensus

import "github.com/ngov17/yugabyte-db/internal/errors"

// PendingOperationsQueue holds Rounds between the point they are appended to
// the local log and the point they are either committed or aborted. Entries
// are ordered by OpId, and the queue enforces that indices stay contiguous,
// appends strictly increase the tail, and truncation only ever removes a
// contiguous suffix.
type PendingOperationsQueue struct {
	rounds []*Round
}

// NewPendingOperationsQueue creates an empty queue.
func NewPendingOperationsQueue() *PendingOperationsQueue {
	return &PendingOperationsQueue{}
}

// Len returns the number of rounds currently pending.
func (q *PendingOperationsQueue) Len() int {
	return len(q.rounds)
}

// Empty reports whether the queue holds no rounds.
func (q *PendingOperationsQueue) Empty() bool {
	return len(q.rounds) == 0
}

// Front returns the oldest pending round, or nil if the queue is empty.
func (q *PendingOperationsQueue) Front() *Round {
	if len(q.rounds) == 0 {
		return nil
	}
	return q.rounds[0]
}

// Back returns the newest pending round, or nil if the queue is empty.
func (q *PendingOperationsQueue) Back() *Round {
	if len(q.rounds) == 0 {
		return nil
	}
	return q.rounds[len(q.rounds)-1]
}

// PushBack appends round to the tail of the queue. It fails with
// IllegalState if round's OpId does not strictly follow the current tail,
// since the pending queue must remain index-contiguous with the log.
func (q *PendingOperationsQueue) PushBack(round *Round) error {
	if len(q.rounds) > 0 {
		tail := q.rounds[len(q.rounds)-1]
		if round.OpId.Index != tail.OpId.Index+1 {
			return errors.WrapKind(errors.IllegalState, nil,
				"pending queue append out of order: tail=%s next=%s", tail.OpId, round.OpId)
		}
	}
	q.rounds = append(q.rounds, round)
	return nil
}

// LookupByIndex returns the round at the given log index, or nil if no
// pending round occupies that index.
func (q *PendingOperationsQueue) LookupByIndex(index int64) *Round {
	if len(q.rounds) == 0 {
		return nil
	}
	first := q.rounds[0].OpId.Index
	offset := index - first
	if offset < 0 || offset >= int64(len(q.rounds)) {
		return nil
	}
	return q.rounds[offset]
}

// PopFrontWhile removes and returns rounds from the front of the queue for
// as long as pred returns true, in order. It stops at the first round for
// which pred returns false.
func (q *PendingOperationsQueue) PopFrontWhile(pred func(*Round) bool) []*Round {
	i := 0
	for i < len(q.rounds) && pred(q.rounds[i]) {
		i++
	}
	if i == 0 {
		return nil
	}
	popped := q.rounds[:i]
	q.rounds = q.rounds[i:]
	return popped
}

// TruncateFrom removes every round whose index is >= fromIndex and returns
// them in ascending-index order, but fires each removed round's callback in
// descending-index order: the round with the highest index fires first,
// down to the round at fromIndex. Firing in descending order is what lets a
// caller unwind speculative state cleanly, the way a stack unwinds its most
// recent frame first. This is used when a follower's log diverges from the
// leader's and the conflicting suffix must be discarded, and when a
// candidate that lost an election rolls back entries it had optimistically
// appended.
func (q *PendingOperationsQueue) TruncateFrom(fromIndex int64) []*Round {
	if len(q.rounds) == 0 {
		return nil
	}
	first := q.rounds[0].OpId.Index
	offset := fromIndex - first
	if offset < 0 {
		offset = 0
	}
	if offset >= int64(len(q.rounds)) {
		return nil
	}
	removed := q.rounds[offset:]
	q.rounds = q.rounds[:offset]

	out := make([]*Round, len(removed))
	copy(out, removed)
	for i := len(out) - 1; i >= 0; i-- {
		r := out[i]
		r.Status = Aborted
		r.fire(OperationResult{OpId: r.OpId, Status: Aborted, Err: errors.WrapKind(errors.IllegalState, nil, "operation aborted: log truncated at index %d", fromIndex)})
	}
	return out
}

// GreatestCommittableBefore returns the greatest OpId held in the queue
// that is both no greater than upperBound and stamped with term, or false
// if no entry in the queue satisfies both. It scans from the tail, since
// the queue is kept ascending by index and terms are non-decreasing along
// it, so the first match found from the tail is the greatest. This is how
// a leader picks a commit candidate out of its own pending queue once it
// learns a new OpId has replicated to a majority: term is the leader's
// current term, enforcing the commit-only-own-term rule directly in the
// selection rather than as a separate check afterward.
func (q *PendingOperationsQueue) GreatestCommittableBefore(upperBound OpId, term int64) (OpId, bool) {
	for i := len(q.rounds) - 1; i >= 0; i-- {
		r := q.rounds[i]
		if r.OpId.Term == term && r.OpId.LessOrEqual(upperBound) {
			return r.OpId, true
		}
	}
	return OpId{}, false
}

// Clear removes every pending round, firing each with an Aborted result.
// Used when the coordinator shuts down with operations still in flight.
func (q *PendingOperationsQueue) Clear(reason error) {
	for _, r := range q.rounds {
		r.Status = Aborted
		r.fire(OperationResult{OpId: r.OpId, Status: Aborted, Err: reason})
	}
	q.rounds = nil
}
