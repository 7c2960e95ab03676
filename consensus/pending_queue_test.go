package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func pushRound(t *testing.T, q *PendingOperationsQueue, term, index int64) *Round {
	t.Helper()
	r := NewRound(OpId{Term: term, Index: index}, Operation{Kind: Write}, nil)
	require.NoError(t, q.PushBack(r))
	return r
}

func TestPendingQueuePushBackOrdering(t *testing.T) {
	q := NewPendingOperationsQueue()
	pushRound(t, q, 1, 1)
	pushRound(t, q, 1, 2)
	require.Equal(t, 2, q.Len())

	outOfOrder := NewRound(OpId{Term: 1, Index: 4}, Operation{}, nil)
	require.Error(t, q.PushBack(outOfOrder))
}

func TestPendingQueueLookupByIndex(t *testing.T) {
	q := NewPendingOperationsQueue()
	pushRound(t, q, 1, 1)
	r2 := pushRound(t, q, 1, 2)

	require.Same(t, r2, q.LookupByIndex(2))
	require.Nil(t, q.LookupByIndex(99))
}

func TestPendingQueuePopFrontWhile(t *testing.T) {
	q := NewPendingOperationsQueue()
	pushRound(t, q, 1, 1)
	pushRound(t, q, 1, 2)
	pushRound(t, q, 1, 3)

	popped := q.PopFrontWhile(func(r *Round) bool { return r.OpId.Index <= 2 })
	require.Len(t, popped, 2)
	require.Equal(t, 1, q.Len())
	require.Equal(t, int64(3), q.Front().OpId.Index)
}

func TestPendingQueueTruncateFromFiresAborted(t *testing.T) {
	q := NewPendingOperationsQueue()
	var results []OperationResult
	cb := func(r OperationResult) { results = append(results, r) }

	r1 := NewRound(OpId{Term: 1, Index: 1}, Operation{}, cb)
	r2 := NewRound(OpId{Term: 1, Index: 2}, Operation{}, cb)
	r3 := NewRound(OpId{Term: 1, Index: 3}, Operation{}, cb)
	require.NoError(t, q.PushBack(r1))
	require.NoError(t, q.PushBack(r2))
	require.NoError(t, q.PushBack(r3))

	removed := q.TruncateFrom(2)
	require.Len(t, removed, 2)
	require.Equal(t, 1, q.Len())
	require.Len(t, results, 2)
	for _, res := range results {
		require.Equal(t, Aborted, res.Status)
		require.Error(t, res.Err)
	}
}

func TestPendingQueueTruncateFromFiresDescendingByIndex(t *testing.T) {
	q := NewPendingOperationsQueue()
	var firedIndices []int64
	cb := func(r OperationResult) { firedIndices = append(firedIndices, r.OpId.Index) }

	require.NoError(t, q.PushBack(NewRound(OpId{Term: 3, Index: 5}, Operation{}, cb)))
	require.NoError(t, q.PushBack(NewRound(OpId{Term: 3, Index: 6}, Operation{}, cb)))
	require.NoError(t, q.PushBack(NewRound(OpId{Term: 3, Index: 7}, Operation{}, cb)))

	removed := q.TruncateFrom(6)
	require.Equal(t, []int64{7, 6}, firedIndices)
	require.Equal(t, []int64{6, 7}, []int64{removed[0].OpId.Index, removed[1].OpId.Index})
}

func TestPendingQueueGreatestCommittableBefore(t *testing.T) {
	q := NewPendingOperationsQueue()
	require.NoError(t, q.PushBack(NewRound(OpId{Term: 4, Index: 10}, Operation{}, nil)))
	require.NoError(t, q.PushBack(NewRound(OpId{Term: 4, Index: 11}, Operation{}, nil)))
	require.NoError(t, q.PushBack(NewRound(OpId{Term: 5, Index: 12}, Operation{}, nil)))

	// with the watermark at 4.11, a term-4 leader may commit 4.11 but a
	// term-5 leader has no own-term entry to commit; once the watermark
	// covers 5.12, the term-5 leader may commit it.
	got, found := q.GreatestCommittableBefore(OpId{Term: 4, Index: 11}, 4)
	require.True(t, found)
	require.Equal(t, OpId{Term: 4, Index: 11}, got)

	_, found = q.GreatestCommittableBefore(OpId{Term: 4, Index: 11}, 5)
	require.False(t, found)

	got, found = q.GreatestCommittableBefore(OpId{Term: 5, Index: 12}, 5)
	require.True(t, found)
	require.Equal(t, OpId{Term: 5, Index: 12}, got)
}

func TestPendingQueueClearFiresEveryRoundOnce(t *testing.T) {
	q := NewPendingOperationsQueue()
	fired := 0
	cb := func(OperationResult) { fired++ }
	require.NoError(t, q.PushBack(NewRound(OpId{Term: 1, Index: 1}, Operation{}, cb)))
	require.NoError(t, q.PushBack(NewRound(OpId{Term: 1, Index: 2}, Operation{}, cb)))

	q.Clear(nil)
	require.Equal(t, 2, fired)
	require.Equal(t, 0, q.Len())
}
