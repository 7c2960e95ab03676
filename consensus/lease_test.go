package consensus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCoarseTimeLeaseUnrenewedIsNotReady(t *testing.T) {
	lease := NewCoarseTimeLease(time.Second)
	require.Equal(t, LeaderButOldLeaderMayHaveLease, lease.Status(time.Now(), true))
}

func TestCoarseTimeLeaseRenewMakesItReady(t *testing.T) {
	lease := NewCoarseTimeLease(time.Second)
	lease.Renew(time.Now())
	require.Equal(t, LeaderAndReady, lease.Status(time.Now(), true))
}

func TestCoarseTimeLeaseNotLeaderOverridesValidity(t *testing.T) {
	lease := NewCoarseTimeLease(time.Second)
	lease.Renew(time.Now())
	require.Equal(t, NotLeader, lease.Status(time.Now(), false))
}

func TestCoarseTimeLeaseRenewNeverMovesBackward(t *testing.T) {
	lease := NewCoarseTimeLease(time.Second)
	later := time.Now().Add(5 * time.Second)
	lease.Renew(later)
	lease.Renew(later.Add(-4 * time.Second))
	require.Equal(t, LeaderAndReady, lease.Status(later.Add(500*time.Millisecond), true))
}

func TestCoarseTimeLeaseOldLeaderMayHoldUntilBlocksNewLeader(t *testing.T) {
	lease := NewCoarseTimeLease(time.Second)
	now := time.Now()
	lease.Renew(now)
	lease.ResetOldLeaderMayHoldUntil(now.Add(2 * time.Second))
	require.Equal(t, LeaderButOldLeaderLeaseNotYetExpired, lease.Status(now.Add(time.Millisecond), true))
}

func TestPhysicalComponentLeaseRenewAndStatus(t *testing.T) {
	lease := NewPhysicalComponentLease(time.Second)
	ht := HybridTime{PhysicalMicros: 1_000_000}
	lease.Renew(ht)
	require.Equal(t, LeaderAndReady, lease.Status(HybridTime{PhysicalMicros: ht.PhysicalMicros + 100}, true))
	require.Equal(t, LeaderButOldLeaderMayHaveLease,
		lease.Status(HybridTime{PhysicalMicros: ht.PhysicalMicros + 2_000_000}, true))
}

func TestCombinedLeaseStatusPicksWeaker(t *testing.T) {
	require.Equal(t, LeaderButOldLeaderMayHaveLease,
		CombinedLeaseStatus(LeaderAndReady, LeaderButOldLeaderMayHaveLease))
	require.Equal(t, NoLeader, CombinedLeaseStatus(NotLeader, NoLeader))
	require.Equal(t, LeaderAndReady, CombinedLeaseStatus(LeaderAndReady, LeaderAndReady))
}
