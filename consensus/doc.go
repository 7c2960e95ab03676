/*
Package consensus implements the per-replica state a Raft-style replication
engine needs to track outside of the log itself: pending operations awaiting
commit, the active and pending membership configuration, the current term
and vote, both leader leases, a lock-free cache of the current lease status,
and a bounded-time filter for deduplicating retried client writes.

All of this state is owned by a single ReplicaStateCoordinator per replica.
Every mutation goes through one of its exported methods, which take its
internal lock, validate the requested transition, and release the lock
before invoking a committed operation's completion callback (abort callbacks
run while the lock is still held):

	coord, err := consensus.NewReplicaStateCoordinator(replicaID, initialConfig, consensus.CoordinatorOptions{
	    MetadataStore: metadataStore,
	})
	if err != nil {
	    return err
	}
	if err := coord.Start(); err != nil {
	    return err
	}
	defer coord.Shutdown()

Once a replica becomes leader, its driving loop appends client writes
through AddPendingOperation, supplying a callback to be notified when the
write either commits or is aborted:

	opID, err := coord.AddPendingOperation(consensus.Operation{
	    Kind:            consensus.Write,
	    Bytes:           payload,
	    ClientRequestId: requestID,
	}, func(result consensus.OperationResult) {
	    // result.Status is Committed or Aborted.
	})

As AppendEntries responses come back from a majority of peers, the driving
loop reports the new watermark with UpdateMajorityReplicated, which renews
both leader leases and, now that a same-term entry may be safely committed,
also advances the commit index and fires the newly committed rounds'
callbacks itself. AdvanceCommittedOpId remains exported for a caller that
already knows the exact OpId to commit without going through watermark
selection, which is how a follower's AppendEntriesFromLeader mirrors the
leader's own commit index.

A follower or learner accepts entries already assigned OpIds by the current
term's leader through AppendEntriesFromLeader rather than
AddPendingOperation, which only a leader may call:

	committed, err := coord.AppendEntriesFromLeader(leaderID, term, previousOpID, entries, leaderCommittedOpID)

Reads that only need to be linearizable with respect to the current leader,
rather than going through the full log, check GetLeaderLeaseStatus before
answering locally. The coordinator keeps a lock-free LeaderStateCache up to
date on lease renewals and lease resets, but does not expose it to callers.
AdmitRead serves the two read-only Operation kinds that never enter the
pending queue: LeaseBasedReadOnly, admitted purely on lease status, and
LinearizableReadOnly, admitted without a lease check once the caller has run
a quorum-verifying heartbeat round. A caller that needs a
safe hybrid-time bound for a lease-protected read instead blocks on
MajorityReplicatedHtLeaseExpiration.
*/
package consensus
