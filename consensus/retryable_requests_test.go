package consensus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ngov17/yugabyte-db/internal/clock"
)

func TestRetryableRequestsFilterRecordAndLookup(t *testing.T) {
	clk := clock.New()
	filter := NewRetryableRequestsFilter(clk, time.Minute)

	round := NewRound(OpId{Term: 1, Index: 1}, Operation{Kind: Write, ClientRequestId: "req-1"}, nil)
	filter.Record("req-1", round)

	got, found := filter.Lookup("req-1")
	require.True(t, found)
	require.Same(t, round, got)
}

func TestRetryableRequestsFilterUnknownRequestNotFound(t *testing.T) {
	filter := NewRetryableRequestsFilter(clock.New(), time.Minute)
	_, found := filter.Lookup("never-seen")
	require.False(t, found)
}

func TestRetryableRequestsFilterExpiresAfterWindow(t *testing.T) {
	filter := NewRetryableRequestsFilter(clock.New(), 10*time.Millisecond)
	filter.Record("req-1", NewRound(OpId{Term: 1, Index: 1}, Operation{}, nil))

	time.Sleep(20 * time.Millisecond)
	_, found := filter.Lookup("req-1")
	require.False(t, found)
}

func TestRetryableRequestsFilterGCDropsExpired(t *testing.T) {
	filter := NewRetryableRequestsFilter(clock.New(), 10*time.Millisecond)
	filter.Record("req-1", NewRound(OpId{Term: 1, Index: 1}, Operation{}, nil))
	filter.Record("req-2", NewRound(OpId{Term: 1, Index: 2}, Operation{}, nil))
	require.Equal(t, 2, filter.TrackedCount())

	time.Sleep(20 * time.Millisecond)
	filter.GC()
	require.Equal(t, 0, filter.TrackedCount())
}

func TestRetryableRequestsFilterForgetDropsEntryImmediately(t *testing.T) {
	filter := NewRetryableRequestsFilter(clock.New(), time.Minute)
	filter.Record("req-1", NewRound(OpId{Term: 1, Index: 1}, Operation{}, nil))
	require.Equal(t, 1, filter.TrackedCount())

	filter.Forget("req-1")
	require.Equal(t, 0, filter.TrackedCount())
	_, found := filter.Lookup("req-1")
	require.False(t, found)
}

func TestRetryableRequestsFilterMinRetryableOpId(t *testing.T) {
	filter := NewRetryableRequestsFilter(clock.New(), time.Minute)
	_, ok := filter.MinRetryableOpId()
	require.False(t, ok)

	filter.Record("req-2", NewRound(OpId{Term: 1, Index: 5}, Operation{}, nil))
	filter.Record("req-1", NewRound(OpId{Term: 1, Index: 2}, Operation{}, nil))

	minOpID, ok := filter.MinRetryableOpId()
	require.True(t, ok)
	require.Equal(t, OpId{Term: 1, Index: 2}, minOpID)
}

func TestRetryableRequestsFilterLookupChainsCallbackBeforeRoundFires(t *testing.T) {
	filter := NewRetryableRequestsFilter(clock.New(), time.Minute)
	round := NewRound(OpId{Term: 1, Index: 1}, Operation{Kind: Write, ClientRequestId: "req-1"}, nil)
	filter.Record("req-1", round)

	got, found := filter.Lookup("req-1")
	require.True(t, found)

	var result OperationResult
	got.AddCallback(func(r OperationResult) { result = r })
	round.fire(OperationResult{OpId: round.OpId, Status: Committed})

	require.Equal(t, Committed, result.Status)
}
