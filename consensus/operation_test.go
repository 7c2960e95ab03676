package consensus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoundFiresCallbackExactlyOnce(t *testing.T) {
	fired := 0
	var lastStatus ReplicationStatus
	cb := func(r OperationResult) {
		fired++
		lastStatus = r.Status
	}

	round := NewRound(OpId{Term: 1, Index: 1}, Operation{Kind: Write}, cb)
	round.fire(OperationResult{Status: Committed})
	round.fire(OperationResult{Status: Aborted})

	require.Equal(t, 1, fired)
	require.Equal(t, Committed, lastStatus)
}

func TestRoundFutureAwaitReceivesResult(t *testing.T) {
	future, cb := NewRoundFuture(time.Second)
	opID := OpId{Term: 1, Index: 1}
	round := NewRound(opID, Operation{Kind: Write}, cb)

	round.fire(OperationResult{OpId: opID, Status: Committed, Response: "done"})

	result := future.Await()
	require.Equal(t, Committed, result.Status)
	require.Equal(t, "done", result.Response)
}

func TestRoundFutureAwaitTimesOut(t *testing.T) {
	future, _ := NewRoundFuture(10 * time.Millisecond)
	result := future.Await()
	require.ErrorIs(t, result.Err, ErrRoundTimeout)
}
