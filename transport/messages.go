// Package transport provides the peer-to-peer RPCs a replica uses to
// replicate operations and run elections, and a minimal gRPC transport for
// them.
package transport

import "github.com/ngov17/yugabyte-db/consensus"

// LogEntry is the wire representation of one pending operation.
type LogEntry struct {
	OpId      consensus.OpId
	Operation consensus.Operation
}

// AppendEntriesRequest replicates log entries and doubles as a heartbeat
// when Entries is empty.
type AppendEntriesRequest struct {
	LeaderId     string
	Term         int64
	LeaderCommit consensus.OpId
	PrevLogId    consensus.OpId
	Entries      []LogEntry

	// MajorityReplicatedOpId piggybacks the leader's latest known
	// majority-replicated watermark so followers can advance their own
	// leader-state cache without a separate RPC.
	MajorityReplicatedOpId consensus.OpId
}

// AppendEntriesResponse reports the follower's outcome.
type AppendEntriesResponse struct {
	Term    int64
	Success bool

	// ConflictOpId is set when Success is false and the follower's log
	// diverges from the leader's, telling the leader where to resume
	// sending entries from.
	ConflictOpId consensus.OpId
}

// RequestVoteRequest is sent by a candidate to gather votes.
type RequestVoteRequest struct {
	CandidateId string
	Term        int64
	LastOpId    consensus.OpId
}

// RequestVoteResponse reports whether the vote was granted.
type RequestVoteResponse struct {
	Term        int64
	VoteGranted bool
}

// InstallSnapshotRequest transfers a state machine snapshot to a follower
// that has fallen too far behind for log replication to catch it up.
type InstallSnapshotRequest struct {
	LeaderId         string
	Term             int64
	LastIncludedOpId consensus.OpId
	Bytes            []byte
}

// InstallSnapshotResponse acknowledges a snapshot installation.
type InstallSnapshotResponse struct {
	Term int64
}
