package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpIdOrdering(t *testing.T) {
	a := OpId{Term: 1, Index: 5}
	b := OpId{Term: 1, Index: 6}
	c := OpId{Term: 2, Index: 0}

	require.True(t, a.Less(b))
	require.True(t, b.Less(c))
	require.False(t, c.Less(a))
	require.True(t, a.LessOrEqual(a))
	require.Equal(t, 0, a.Compare(a))
	require.Equal(t, -1, a.Compare(b))
	require.Equal(t, 1, c.Compare(a))
}

func TestOpIdMinSentinel(t *testing.T) {
	require.True(t, MinOpId.IsMin())
	require.False(t, OpId{Term: 0, Index: 1}.IsMin())
	require.True(t, MinOpId.Less(OpId{Term: 0, Index: 1}))
}

func TestOpIdNextAndWithIndex(t *testing.T) {
	op := OpId{Term: 3, Index: 10}
	require.Equal(t, OpId{Term: 3, Index: 11}, op.Next())
	require.Equal(t, OpId{Term: 3, Index: 42}, op.WithIndex(42))
}

func TestMaxAndMinOpId(t *testing.T) {
	a := OpId{Term: 1, Index: 9}
	b := OpId{Term: 2, Index: 0}
	require.Equal(t, b, MaxOpId(a, b))
	require.Equal(t, a, MinOfOpId(a, b))
}
