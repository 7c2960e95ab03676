package consensus

import (
	"time"

	"github.com/ngov17/yugabyte-db/internal/clock"
)

// requestEntry is the bookkeeping the filter keeps per tracked client
// request id: a reference to the Round that request id produced, rather
// than a detached copy of its result. Keeping the Round itself means a
// retry that arrives before the original round resolves can attach its own
// callback via Round.AddCallback instead of being told a result that does
// not exist yet.
type requestEntry struct {
	round    *Round
	expireAt time.Duration
}

// RetryableRequestsFilter deduplicates client write requests by request id
// within a bounded time window, so that a client that retries a write after
// a dropped response (rather than a genuine failure) gets back the original
// round's result instead of having the write applied twice. Entries age out
// of the window using a clock.Clock rather than wall-clock time, so a
// wall-clock jump does not shorten or stretch the window. Entries are held in
// memory only and do not survive a process restart.
type RetryableRequestsFilter struct {
	clk     *clock.Clock
	window  time.Duration
	entries map[string]*requestEntry

	// minRetryableOpID is the OpId of the oldest entry still tracked. It is
	// exposed so the coordinator can avoid truncating log entries that a
	// still-live dedup entry refers back to.
	minRetryableOpID OpId
	minValid         bool
}

// NewRetryableRequestsFilter creates a filter that retains entries for
// window after they are recorded.
func NewRetryableRequestsFilter(clk *clock.Clock, window time.Duration) *RetryableRequestsFilter {
	return &RetryableRequestsFilter{
		clk:     clk,
		window:  window,
		entries: make(map[string]*requestEntry),
	}
}

// Lookup reports whether requestID names a round already accepted into the
// log and, if so, returns it. The second return is false if the request is
// new (never seen, or its entry aged out) and must be appended normally.
func (f *RetryableRequestsFilter) Lookup(requestID string) (round *Round, found bool) {
	if requestID == "" {
		return nil, false
	}
	e, ok := f.entries[requestID]
	if !ok {
		return nil, false
	}
	if f.clk.Expired(e.expireAt) {
		delete(f.entries, requestID)
		return nil, false
	}
	return e.round, true
}

// Record registers round as the operation that accepted requestID, at the
// point it is appended to the pending queue. This is append-time rather
// than commit-time registration: a duplicate request id seen before the
// original round commits must still be deduplicated, not merely once it
// has a final result.
func (f *RetryableRequestsFilter) Record(requestID string, round *Round) {
	if requestID == "" {
		return
	}
	f.entries[requestID] = &requestEntry{round: round, expireAt: f.clk.Deadline(f.window)}
	f.recomputeMin()
}

// Forget removes requestID from the window immediately. Used when its
// round is aborted rather than committed: an aborted write was never
// applied, so a client retry of the same request id should be treated as a
// fresh write rather than replayed against a result that never happened.
func (f *RetryableRequestsFilter) Forget(requestID string) {
	if requestID == "" {
		return
	}
	delete(f.entries, requestID)
	f.recomputeMin()
}

// GC drops every entry whose window has elapsed. It should be called
// periodically (e.g. alongside heartbeat processing) so the map does not
// grow unbounded under sustained write load.
func (f *RetryableRequestsFilter) GC() {
	for id, e := range f.entries {
		if f.clk.Expired(e.expireAt) {
			delete(f.entries, id)
		}
	}
	f.recomputeMin()
}

func (f *RetryableRequestsFilter) recomputeMin() {
	f.minValid = false
	for _, e := range f.entries {
		if !f.minValid || e.round.OpId.Less(f.minRetryableOpID) {
			f.minRetryableOpID = e.round.OpId
			f.minValid = true
		}
	}
}

// TrackedCount returns the number of requests currently tracked.
func (f *RetryableRequestsFilter) TrackedCount() int {
	return len(f.entries)
}

// MinRetryableOpId returns the OpId of the oldest tracked entry and true, or
// false if nothing is tracked. Log truncation below this point would make
// it impossible to answer a retry for that entry from the log, though the
// recorded round's result is still returned directly from the map
// regardless.
func (f *RetryableRequestsFilter) MinRetryableOpId() (OpId, bool) {
	return f.minRetryableOpID, f.minValid
}
