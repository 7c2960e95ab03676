package consensus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLeaderStateCacheDefaultsToNoLeader(t *testing.T) {
	cache := NewLeaderStateCache()
	status, _, validUntil := cache.Load()
	require.Equal(t, NoLeader, status)
	require.Zero(t, validUntil)
}

func TestLeaderStateCacheStoreAndLoad(t *testing.T) {
	cache := NewLeaderStateCache()
	cache.Store(LeaderAndReady, uint8(Leader), 5*time.Second)

	status, extra, validUntil := cache.Load()
	require.Equal(t, LeaderAndReady, status)
	require.Equal(t, uint8(Leader), extra)
	require.Equal(t, 5*time.Second, validUntil)
}

func TestLeaderStateCacheLoadIfValid(t *testing.T) {
	cache := NewLeaderStateCache()
	cache.Store(LeaderAndReady, 0, 10*time.Second)

	status, _, ok := cache.LoadIfValid(5 * time.Second)
	require.True(t, ok)
	require.Equal(t, LeaderAndReady, status)

	_, _, ok = cache.LoadIfValid(11 * time.Second)
	require.False(t, ok)
}

func TestLeaderStateCachePackingRoundTripsMillisecondResolution(t *testing.T) {
	cache := NewLeaderStateCache()
	dur := 123456 * time.Millisecond
	cache.Store(LeaderButOldLeaderMayHaveLease, 7, dur)

	status, extra, validUntil := cache.Load()
	require.Equal(t, LeaderButOldLeaderMayHaveLease, status)
	require.Equal(t, uint8(7), extra)
	require.Equal(t, dur, validUntil)
}
