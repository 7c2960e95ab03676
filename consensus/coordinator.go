package consensus

import (
	"sync"
	"time"

	"github.com/ngov17/yugabyte-db/internal/clock"
	"github.com/ngov17/yugabyte-db/internal/errors"
	"github.com/ngov17/yugabyte-db/internal/logging"
	"github.com/ngov17/yugabyte-db/internal/util"
)

// Role is this replica's role in the current term's Raft group.
type Role uint32

const (
	Follower Role = iota
	Candidate
	Leader
	Learner
	NonParticipant
)

func (r Role) String() string {
	switch r {
	case Follower:
		return "follower"
	case Candidate:
		return "candidate"
	case Leader:
		return "leader"
	case Learner:
		return "learner"
	case NonParticipant:
		return "non-participant"
	default:
		return "unknown"
	}
}

// LifecycleState is the coordinator's own lifecycle, independent of its
// Raft role: a coordinator moves through this state machine exactly once
// per process, while Role can flip repeatedly while Running.
type LifecycleState uint32

const (
	Initialized LifecycleState = iota
	Running
	ShuttingDown
	ShutDown
)

func (s LifecycleState) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting-down"
	case ShutDown:
		return "shut-down"
	default:
		return "unknown"
	}
}

// Status is a snapshot of coordinator state for operator-visible diagnostics.
// It is not used internally; callers take it to render a status page or
// export metrics.
type Status struct {
	ReplicaId string
	Term      int64
	Role      Role
	Lifecycle LifecycleState
	LeaderId  string

	LastReceivedOpId       OpId
	LastReceivedOpIdCurLdr OpId
	MajorityReplicatedOpId OpId
	CommittedOpId          OpId

	CommittedConfig *Configuration
	PendingConfig   *Configuration

	LeaseStatus    LeaseStatus
	LeaseRemaining time.Duration

	// SplitOpId is the OpId of the pending split request, set once the split
	// entry is appended and cleared on abort; HasSplitOpId reports whether it
	// is currently meaningful.
	SplitOpId    OpId
	HasSplitOpId bool

	// PendingElectionOpId is the OpId that, once committed, triggers a
	// leader election; HasPendingElectionOpId reports whether one is armed.
	PendingElectionOpId    OpId
	HasPendingElectionOpId bool

	TrackedRetryableRequests int

	// MetadataStoreSizeBytes is the on-disk size of the metadata store, or
	// -1 if the configured MetadataStore does not report one.
	MetadataStoreSizeBytes int64
}

// CoordinatorOptions configures a ReplicaStateCoordinator. Zero-valued
// fields fall back to the defaults below.
type CoordinatorOptions struct {
	Logger *logging.Logger

	// MetadataStore durably persists term/vote. Required.
	MetadataStore MetadataStore

	// CoarseLeaseDuration is the duration of the monotonic-clock leader
	// lease. Defaults to defaultLeaseDuration.
	CoarseLeaseDuration time.Duration

	// PhysicalLeaseDuration is the duration of the hybrid-time leader lease.
	// Defaults to defaultLeaseDuration.
	PhysicalLeaseDuration time.Duration

	// RetryableRequestWindow bounds how long the retryable-requests filter
	// remembers a client request id. Defaults to defaultRetryWindow.
	RetryableRequestWindow time.Duration

	// Clock is the monotonic clock backing the lease cache and
	// retryable-requests filter. Defaults to a freshly created clock.Clock.
	Clock *clock.Clock
}

const (
	defaultLeaseDuration = 2 * time.Second
	defaultRetryWindow   = 60 * time.Second
)

// ReplicaStateCoordinator is the single point of synchronization for one
// replica's Raft-related state: the pending operations queue, commit
// tracking, the active and pending configuration, both leader leases, the
// lock-free leader state cache, and the retryable-requests dedup filter.
//
// All state transitions happen under mu. Completion callbacks for
// committed operations, and election triggers, are invoked after the lock is
// released, so such a callback can safely call back into the coordinator.
// Abort callbacks are not: AbortOpsAfter, the conflict reconciliation in
// AppendEntriesFromLeader, and Shutdown fire them while mu is still held, so
// an abort callback that calls back into the coordinator deadlocks.
type ReplicaStateCoordinator struct {
	id     string
	logger *logging.Logger

	mu sync.Mutex

	// appliedCond is signaled whenever lastCommittedOpId advances, so a
	// caller waiting for a particular OpId to commit can block on it.
	appliedCond *sync.Cond

	lifecycle LifecycleState
	role      Role
	leaderID  string

	currentTerm int64
	votedFor    string

	configState *ConfigurationState
	pending     *PendingOperationsQueue

	lastReceivedOpId       OpId
	lastReceivedOpIdCurLdr OpId
	majorityReplicatedOpId OpId
	lastCommittedOpId      OpId

	// splitOpId is set when a Split operation is appended and cleared when
	// that operation is aborted; it is left unchanged by commit.
	splitOpId    OpId
	hasSplitOpId bool

	// pendingElectionOpId and electionTrigger implement the "trigger an
	// election once this entry commits" mechanism: armed by
	// SetPendingElectionOpId, fired and cleared the moment
	// advanceCommittedOpIdLocked commits an OpId at or past it.
	pendingElectionOpId    OpId
	hasPendingElectionOpId bool
	electionTrigger        func()

	coarseLease   *CoarseTimeLease
	physicalLease *PhysicalComponentLease
	leaderCache   *LeaderStateCache

	clk         *clock.Clock
	retryFilter *RetryableRequestsFilter
	metadata    MetadataStore

	wg sync.WaitGroup
}

// NewReplicaStateCoordinator creates a coordinator for replicaID, seeded
// with initialConfig as the already-committed configuration. The
// coordinator starts in the Initialized lifecycle state and must be started
// with Start before it will accept any other call.
func NewReplicaStateCoordinator(replicaID string, initialConfig *Configuration, opts CoordinatorOptions) (*ReplicaStateCoordinator, error) {
	if opts.MetadataStore == nil {
		return nil, errors.WrapKind(errors.InvalidArgument, nil, "metadata store is required")
	}
	logger := opts.Logger
	if logger == nil {
		l, err := logging.NewLogger()
		if err != nil {
			return nil, errors.WrapError(err, "failed to create default logger")
		}
		logger = l
	}
	coarseDur := opts.CoarseLeaseDuration
	if coarseDur == 0 {
		coarseDur = defaultLeaseDuration
	}
	physicalDur := opts.PhysicalLeaseDuration
	if physicalDur == 0 {
		physicalDur = defaultLeaseDuration
	}
	retryWindow := opts.RetryableRequestWindow
	if retryWindow == 0 {
		retryWindow = defaultRetryWindow
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}

	c := &ReplicaStateCoordinator{
		id:            replicaID,
		logger:        logger,
		lifecycle:     Initialized,
		role:          Follower,
		configState:   NewConfigurationState(initialConfig),
		pending:       NewPendingOperationsQueue(),
		coarseLease:   NewCoarseTimeLease(coarseDur),
		physicalLease: NewPhysicalComponentLease(physicalDur),
		leaderCache:   NewLeaderStateCache(),
		clk:           clk,
		retryFilter:   NewRetryableRequestsFilter(clk, retryWindow),
		metadata:      opts.MetadataStore,
	}
	c.appliedCond = sync.NewCond(&c.mu)
	return c, nil
}

// Start recovers the persisted term and vote and transitions the
// coordinator to Running. It is a no-op if the coordinator is not in the
// Initialized state.
func (c *ReplicaStateCoordinator) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lifecycle != Initialized {
		return nil
	}

	term, votedFor, err := c.metadata.LoadTermAndVote()
	if err != nil {
		return errors.WrapError(err, "failed to load persisted term and vote")
	}
	c.currentTerm = term
	c.votedFor = votedFor

	cfg, lastCommittedOpID, err := c.metadata.LoadCommittedState()
	if err != nil {
		return errors.WrapError(err, "failed to load persisted committed state")
	}
	if cfg != nil {
		c.configState.Restore(cfg)
		c.lastCommittedOpId = lastCommittedOpID
		c.lastReceivedOpId = lastCommittedOpID
		c.lastReceivedOpIdCurLdr = lastCommittedOpID
	}

	c.lifecycle = Running

	c.logger.Infof("replica %s started at term %d", c.id, c.currentTerm)
	return nil
}

// Shutdown transitions the coordinator through ShuttingDown to ShutDown,
// aborting every pending operation so their callers are not left waiting
// forever. It is a no-op if the coordinator is already shutting down or
// shut down.
func (c *ReplicaStateCoordinator) Shutdown() {
	c.mu.Lock()
	if c.lifecycle == ShuttingDown || c.lifecycle == ShutDown {
		c.mu.Unlock()
		return
	}
	c.lifecycle = ShuttingDown
	c.pending.Clear(errors.WrapKind(errors.IllegalState, nil, "replica %s is shutting down", c.id))
	c.appliedCond.Broadcast()
	c.lifecycle = ShutDown
	c.mu.Unlock()

	c.wg.Wait()
	c.logger.Infof("replica %s shut down", c.id)
}

// requireRunning returns an IllegalState error if the coordinator is not in
// the Running lifecycle state. Callers must hold mu.
func (c *ReplicaStateCoordinator) requireRunning() error {
	if c.lifecycle != Running {
		return errors.WrapKind(errors.IllegalState, nil, "replica %s is not running (state=%s)", c.id, c.lifecycle)
	}
	return nil
}

// CurrentTerm returns the current term.
func (c *ReplicaStateCoordinator) CurrentTerm() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTerm
}

// Role returns this replica's current role.
func (c *ReplicaStateCoordinator) Role() Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role
}

// SetRole sets this replica's role. It is the caller's (the election
// logic's) responsibility to ensure role transitions are only made when
// legal; the coordinator itself does not validate the transition graph.
func (c *ReplicaStateCoordinator) SetRole(role Role) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.role == role {
		return
	}
	prev := c.role
	c.role = role
	if role == Leader {
		c.leaderID = c.id
	}
	c.logger.Debugf("replica %s role %s -> %s", c.id, prev, role)
}

// SetLeaderId records peerID as the replica this one currently believes to
// be leader of the current term. Followers call this on learning of a
// leader (e.g. the leader id carried on an AppendEntries request); it is
// the only source of Status().LeaderId for a non-leader replica, since a
// follower has no other way to know who else holds the role.
func (c *ReplicaStateCoordinator) SetLeaderId(peerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leaderID = peerID
}

// SetCurrentTerm advances the current term and durably persists it together
// with a cleared vote, per the requirement that a new term always starts
// with no recorded vote. It fails with IllegalState if term does not
// strictly exceed the current term.
func (c *ReplicaStateCoordinator) SetCurrentTerm(term int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireRunning(); err != nil {
		return err
	}
	return c.setCurrentTermLocked(term)
}

// setCurrentTermLocked does the work of SetCurrentTerm. Besides persisting
// the new term and clearing the vote, it resets lastReceivedOpIdCurLdr to
// MinOpId and clears the leader id: both describe the prior term's leader
// and stop meaning anything the moment the term changes. Callers must hold
// mu and have already checked requireRunning.
func (c *ReplicaStateCoordinator) setCurrentTermLocked(term int64) error {
	if term <= c.currentTerm {
		return errors.WrapKind(errors.IllegalState, nil,
			"new term %d must exceed current term %d", term, c.currentTerm)
	}
	if err := c.metadata.PersistTermAndVote(term, ""); err != nil {
		return errors.WrapError(err, "failed to persist term %d", term)
	}
	c.currentTerm = term
	c.votedFor = ""
	c.lastReceivedOpIdCurLdr = MinOpId
	c.leaderID = ""
	return nil
}

// SetVotedForCurrentTerm durably records that this replica voted for
// candidateID in the current term. It fails with IllegalState if a
// different candidate was already recorded for this term, and succeeds
// without re-persisting if candidateID matches the existing vote (so a
// retried RequestVote RPC for the same candidate is idempotent).
func (c *ReplicaStateCoordinator) SetVotedForCurrentTerm(candidateID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireRunning(); err != nil {
		return err
	}
	if c.votedFor != "" && c.votedFor != candidateID {
		return errors.WrapKind(errors.IllegalState, nil,
			"already voted for %s in term %d", c.votedFor, c.currentTerm)
	}
	if c.votedFor == candidateID {
		return nil
	}
	if err := c.metadata.PersistTermAndVote(c.currentTerm, candidateID); err != nil {
		return errors.WrapError(err, "failed to persist vote for %s", candidateID)
	}
	c.votedFor = candidateID
	return nil
}

// VotedForCurrentTerm returns the candidate this replica voted for in the
// current term, or "" if it has not yet voted.
func (c *ReplicaStateCoordinator) VotedForCurrentTerm() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.votedFor
}

// AddPendingOperation assigns the next OpId in the current term to op,
// appends it to the pending queue, and registers cb to be invoked once it
// either commits or is aborted. It fails with IllegalState if this replica
// is not the leader, since only a leader originates new operations; a
// follower or learner accepts entries already assigned OpIds through
// AppendEntriesFromLeader instead.
func (c *ReplicaStateCoordinator) AddPendingOperation(op Operation, cb CompletionCallback) (OpId, error) {
	c.mu.Lock()

	if err := c.requireRunning(); err != nil {
		c.mu.Unlock()
		return OpId{}, err
	}
	if c.role != Leader {
		c.mu.Unlock()
		return OpId{}, errors.WrapKind(errors.IllegalState, nil, "replica %s is not the leader", c.id)
	}
	if op.ClientRequestId != "" {
		if round, found := c.retryFilter.Lookup(op.ClientRequestId); found {
			opID := round.OpId
			c.mu.Unlock()
			round.AddCallback(cb)
			return opID, nil
		}
	}

	next := c.lastReceivedOpId.WithIndex(c.lastReceivedOpId.Index + 1)
	next.Term = c.currentTerm
	round := NewRound(next, op, cb)
	round.Status = Appended
	if err := c.appendRoundLocked(round); err != nil {
		c.mu.Unlock()
		return OpId{}, err
	}
	c.lastReceivedOpIdCurLdr = next
	c.mu.Unlock()
	return next, nil
}

// appendRoundLocked pushes round onto the pending queue and updates every
// piece of bookkeeping that append (as opposed to commit or abort) owns:
// the receive watermark, any configuration change the round carries, the
// split-op-id if round is a Split, and the retryable-requests filter. The
// filter is populated here, at append time, rather than at commit time: a
// retry of the same client request id arriving before the original round
// resolves must still be deduplicated onto that round, not treated as a
// brand new write. Callers must hold mu and have already validated role and
// OpId ordering.
func (c *ReplicaStateCoordinator) appendRoundLocked(round *Round) error {
	if round.Operation.Kind == ConfigChange {
		// The pending configuration is keyed by the OpId of the round that
		// carries it, so that committing or aborting that round resolves it.
		cfg := round.Operation.NewConfig
		if cfg != nil && cfg.OpId != round.OpId {
			cfg = NewConfiguration(round.OpId, cfg.Peers)
		}
		if err := c.configState.SetPending(cfg); err != nil {
			return err
		}
	}
	if err := c.pending.PushBack(round); err != nil {
		return err
	}
	if c.lastReceivedOpId.Less(round.OpId) {
		c.lastReceivedOpId = round.OpId
	}
	if round.Operation.Kind == Split {
		c.splitOpId = round.OpId
		c.hasSplitOpId = true
	}
	if round.Operation.ClientRequestId != "" {
		c.retryFilter.Record(round.Operation.ClientRequestId, round)
	}
	return nil
}

// AppendEntriesFromLeader accepts a batch of entries already assigned OpIds
// by the current term's leader, as carried on an AppendEntries-style RPC.
// It fails with IllegalState if this replica is not a Follower or Learner,
// adopts term if it exceeds the current term, and re-aligns the pending
// queue to previousOpId whenever this replica's own log does not already
// agree with the leader on what precedes the new entries — which both
// discards a diverging suffix left over from a prior leader and is a no-op
// on a normal, already-aligned append. leaderCommitted mirrors the leader's
// commit watermark into this replica's own, but only once this replica has
// adopted leaderCommitted's term: a commit watermark from a term this
// replica has not yet caught up to would not yet satisfy the
// commit-only-own-term rule.
func (c *ReplicaStateCoordinator) AppendEntriesFromLeader(leaderID string, term int64, previousOpId OpId, entries []ReplicatedEntry, leaderCommitted OpId) ([]*Round, error) {
	c.mu.Lock()

	if err := c.requireRunning(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if c.role != Follower && c.role != Learner {
		c.mu.Unlock()
		return nil, errors.WrapKind(errors.IllegalState, nil, "replica %s is not a follower or learner", c.id)
	}
	if term > c.currentTerm {
		if err := c.setCurrentTermLocked(term); err != nil {
			c.mu.Unlock()
			return nil, err
		}
	}
	if term != c.currentTerm {
		c.mu.Unlock()
		return nil, errors.WrapKind(errors.IllegalState, nil,
			"stale leader term %d, current term is %d", term, c.currentTerm)
	}
	c.leaderID = leaderID

	if c.lastReceivedOpId != previousOpId {
		c.abortOpsAfterLocked(previousOpId.Index)
	}

	for _, entry := range entries {
		round := NewRound(entry.OpId, entry.Operation, nil)
		round.Status = Appended
		if err := c.appendRoundLocked(round); err != nil {
			c.mu.Unlock()
			return nil, err
		}
	}
	c.lastReceivedOpIdCurLdr = c.lastReceivedOpId

	var committed []*Round
	var trigger func()
	if leaderCommitted.Term == c.currentTerm && c.lastCommittedOpId.Less(leaderCommitted) {
		committed, trigger, _ = c.advanceCommittedOpIdLocked(leaderCommitted)
	}
	c.mu.Unlock()

	for _, r := range committed {
		r.fire(OperationResult{OpId: r.OpId, Status: Committed})
	}
	if trigger != nil {
		trigger()
	}
	return committed, nil
}

// AbortOpsAfter discards every pending round with an index strictly greater
// than afterIndex, firing an Aborted result for each, and rolls back any
// configuration change proposed among them. It is used when a follower's
// log conflicts with a newly discovered leader's log and the divergent
// suffix must be discarded.
func (c *ReplicaStateCoordinator) AbortOpsAfter(afterIndex int64) []*Round {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.abortOpsAfterLocked(afterIndex)
}

// abortOpsAfterLocked does the work of AbortOpsAfter. Callers must hold mu.
func (c *ReplicaStateCoordinator) abortOpsAfterLocked(afterIndex int64) []*Round {
	removed := c.pending.TruncateFrom(afterIndex + 1)
	if len(removed) == 0 {
		return nil
	}
	c.configState.Abort(removed[0].OpId)
	if back := c.pending.Back(); back != nil {
		c.lastReceivedOpId = back.OpId
	} else {
		c.lastReceivedOpId = c.lastCommittedOpId
	}
	for _, r := range removed {
		if c.hasSplitOpId && r.OpId == c.splitOpId {
			c.hasSplitOpId = false
			c.splitOpId = OpId{}
		}
		if c.hasPendingElectionOpId && r.OpId == c.pendingElectionOpId {
			c.hasPendingElectionOpId = false
			c.pendingElectionOpId = OpId{}
			c.electionTrigger = nil
		}
		if r.Operation.ClientRequestId != "" {
			c.retryFilter.Forget(r.Operation.ClientRequestId)
		}
	}
	return removed
}

// UpdateMajorityReplicated records the highest OpId known to have been
// replicated to a majority of the active configuration's voters, renews
// both leader leases from the current time, and publishes the refreshed
// status to the lock-free leader state cache. It then looks for a commit
// candidate among the own-term entries the new watermark covers and, if one
// exists, auto-advances the commit watermark to it the same way a manual
// AdvanceCommittedOpId call would. It fails with IllegalState if opID
// regresses the existing majority-replicated watermark, since that
// watermark must be monotonic, or if this replica is not the leader, since
// only a leader's own pending queue is a valid source of commit candidates.
func (c *ReplicaStateCoordinator) UpdateMajorityReplicated(opID OpId, ht HybridTime) ([]*Round, error) {
	c.mu.Lock()

	if err := c.requireRunning(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if c.role != Leader {
		c.mu.Unlock()
		return nil, errors.WrapKind(errors.IllegalState, nil, "replica %s is not the leader", c.id)
	}
	if opID.Less(c.majorityReplicatedOpId) {
		c.mu.Unlock()
		return nil, errors.WrapKind(errors.IllegalState, nil,
			"majority-replicated OpId must not regress: have %s, got %s", c.majorityReplicatedOpId, opID)
	}
	c.majorityReplicatedOpId = opID
	c.coarseLease.Renew(time.Now())
	c.physicalLease.Renew(ht)
	c.refreshLeaderCacheLocked()
	c.appliedCond.Broadcast()

	var committed []*Round
	var trigger func()
	if candidate, found := c.pending.GreatestCommittableBefore(opID, c.currentTerm); found && c.lastCommittedOpId.Less(candidate) {
		var err error
		committed, trigger, err = c.advanceCommittedOpIdLocked(candidate)
		if err != nil {
			c.logger.Errorf("replica %s failed to auto-advance commit to %s: %v", c.id, candidate, err)
			committed, trigger = nil, nil
		}
	}
	c.mu.Unlock()

	for _, r := range committed {
		r.fire(OperationResult{OpId: r.OpId, Status: Committed})
	}
	if trigger != nil {
		trigger()
	}
	return committed, nil
}

// AdvanceCommittedOpId advances the commit watermark to opID, firing a
// Committed result for every newly committed round and promoting any
// configuration change that is now committed. It enforces the
// commit-only-own-term rule: opID may not be committed unless its term
// equals the current term, since committing an entry from a prior term
// without a same-term entry to anchor it risks exposing a write that a
// future leader could still roll back.
func (c *ReplicaStateCoordinator) AdvanceCommittedOpId(opID OpId) ([]*Round, error) {
	c.mu.Lock()
	committed, trigger, err := c.advanceCommittedOpIdLocked(opID)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	for _, r := range committed {
		r.fire(OperationResult{OpId: r.OpId, Status: Committed})
	}
	if trigger != nil {
		trigger()
	}
	return committed, nil
}

// advanceCommittedOpIdLocked does the work of AdvanceCommittedOpId, plus
// capturing (but not invoking) any election trigger that opID's commit
// arms. Request-id dedup registration is not redone here: it already
// happened at append time via appendRoundLocked, so a committed round's
// entry in the retryable-requests filter is simply left to expire on its
// own window rather than re-recorded. Callers must hold mu and unlock
// before firing the returned callbacks/trigger.
func (c *ReplicaStateCoordinator) advanceCommittedOpIdLocked(opID OpId) (committed []*Round, trigger func(), err error) {
	if opID.Less(c.lastCommittedOpId) {
		return nil, nil, errors.WrapKind(errors.IllegalState, nil,
			"committed OpId must not regress: have %s, got %s", c.lastCommittedOpId, opID)
	}
	if opID.Term != c.currentTerm {
		return nil, nil, errors.WrapKind(errors.IllegalState, nil,
			"cannot commit OpId %s from a term other than the current term %d", opID, c.currentTerm)
	}

	committed = c.pending.PopFrontWhile(func(r *Round) bool {
		return r.OpId.LessOrEqual(opID)
	})
	c.lastCommittedOpId = opID
	for _, r := range committed {
		r.Status = Committed
		c.configState.Commit(r.OpId)
		if c.hasPendingElectionOpId && r.OpId == c.pendingElectionOpId {
			c.hasPendingElectionOpId = false
			c.pendingElectionOpId = OpId{}
			trigger = c.electionTrigger
			c.electionTrigger = nil
		}
	}
	// Persisting the committed config/OpId is a best-effort snapshot for
	// faster recovery, not a precondition for commit correctness the way
	// term/vote persistence is: the commit itself is already safe once a
	// majority holds the entry, regardless of whether this replica's own
	// metadata store has caught up.
	if persistErr := c.metadata.PersistCommittedState(c.configState.Committed(), c.lastCommittedOpId); persistErr != nil {
		c.logger.Errorf("replica %s failed to persist committed state at %s: %v", c.id, c.lastCommittedOpId, persistErr)
	}
	c.appliedCond.Broadcast()
	return committed, trigger, nil
}

// UpdateLastReceivedOpId records the highest OpId this replica has appended
// to its local log, regardless of which term's leader sent it. Followers
// call this on every AppendEntries, including ones from a leader of a term
// they have not yet fully caught up to.
func (c *ReplicaStateCoordinator) UpdateLastReceivedOpId(opID OpId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastReceivedOpId.Less(opID) {
		c.lastReceivedOpId = opID
	}
}

// UpdateLastReceivedOpIdCurLeader records the highest OpId received from the
// leader of the current term specifically. This is distinct from
// UpdateLastReceivedOpId because a replica that just granted a vote may
// receive entries for a newer term before it has a settled view of that
// term's leader, and some invariants (e.g. lease resets on leader change)
// care only about continuity with the *current* leader's stream.
func (c *ReplicaStateCoordinator) UpdateLastReceivedOpIdCurLeader(opID OpId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastReceivedOpIdCurLdr.Less(opID) {
		c.lastReceivedOpIdCurLdr = opID
	}
	if c.lastReceivedOpId.Less(opID) {
		c.lastReceivedOpId = opID
	}
}

// ResetLeasesOnLeaderChange records that a leader change has occurred and
// that a leader of a prior term might hold a lease valid until the given
// deadlines: this value may move backward across leader changes
// even though each lease's own expiration may only advance.
func (c *ReplicaStateCoordinator) ResetLeasesOnLeaderChange(coarseUntil time.Time, physicalUntil HybridTime) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.coarseLease.ResetOldLeaderMayHoldUntil(coarseUntil)
	c.physicalLease.ResetOldLeaderMayHoldUntil(physicalUntil)
	c.refreshLeaderCacheLocked()
}

// GetLeaderLeaseStatus reports whether this replica may safely serve a
// lease-protected read as of now/ht, combining both the coarse monotonic
// lease and the hybrid-time lease: a read is only safe when neither lease
// objects.
func (c *ReplicaStateCoordinator) GetLeaderLeaseStatus(now time.Time, ht HybridTime) LeaseStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.leaseStatusLocked(now, ht)
}

func (c *ReplicaStateCoordinator) leaseStatusLocked(now time.Time, ht HybridTime) LeaseStatus {
	if c.role == Candidate {
		// An election is in progress and no replica, including this one,
		// currently holds leadership.
		return NoLeader
	}
	isLeader := c.role == Leader
	coarse := c.coarseLease.Status(now, isLeader)
	physical := c.physicalLease.Status(ht, isLeader)
	return CombinedLeaseStatus(coarse, physical)
}

// AdmitRead decides whether a read-only operation of the given kind may be
// served locally right now, without appending anything to the pending
// queue. A LeaseBasedReadOnly read is admitted once GetLeaderLeaseStatus
// reports LeaderAndReady. A LinearizableReadOnly read does not consult the
// lease; it is admitted only when verify reports that a quorum-verifying
// heartbeat round has completed
// since the read was requested; verify is supplied by the caller since the
// heartbeat transport itself lives above this package. Any other kind is
// rejected with InvalidArgument.
func (c *ReplicaStateCoordinator) AdmitRead(kind OperationKind, verify func() bool) error {
	c.mu.Lock()
	if err := c.requireRunning(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.role != Leader {
		c.mu.Unlock()
		return errors.WrapKind(errors.IllegalState, nil, "replica %s is not the leader", c.id)
	}
	status := c.leaseStatusLocked(time.Now(), HybridTime{PhysicalMicros: time.Now().UnixMicro()})
	c.mu.Unlock()

	switch kind {
	case LeaseBasedReadOnly:
		if status != LeaderAndReady {
			return errors.WrapKind(errors.Expired, nil, "leader lease not ready: status=%s", status)
		}
		return nil
	case LinearizableReadOnly:
		if verify == nil || !verify() {
			return errors.WrapKind(errors.IllegalState, nil, "linearizable read requires a verified quorum round")
		}
		return nil
	default:
		return errors.WrapKind(errors.InvalidArgument, nil, "unsupported read kind %s", kind)
	}
}

// leaseRemainingLocked returns how long until the sooner of the two leases'
// own expirations, clamped to zero. Callers must hold mu.
func (c *ReplicaStateCoordinator) leaseRemainingLocked(now time.Time, ht HybridTime) time.Duration {
	coarseRemaining := c.coarseLease.OwnExpiration().Sub(now)
	physicalRemaining := time.Duration(c.physicalLease.MajorityReplicatedExpiration().PhysicalMicros-ht.PhysicalMicros) * time.Microsecond
	return util.Max(util.Min(coarseRemaining, physicalRemaining), 0)
}

// refreshLeaderCacheLocked publishes the current lease state to the
// lock-free LeaderStateCache. Callers must hold mu. The cache's validUntil
// is set to the sooner of the two leases' own expirations, expressed as a
// clock.Clock offset so that a reader never has to convert between
// wall-clock and hybrid time: past that point the cached status can no
// longer be trusted and the reader must fall back to the locked check.
func (c *ReplicaStateCoordinator) refreshLeaderCacheLocked() {
	now := time.Now()
	ht := HybridTime{PhysicalMicros: now.UnixMicro()}
	status := c.leaseStatusLocked(now, ht)
	extra := uint8(c.role)
	remaining := c.leaseRemainingLocked(now, ht)

	c.leaderCache.Store(status, extra, c.clk.Deadline(remaining))
}

// AwaitCommit blocks until opID has committed or the coordinator shuts
// down, whichever happens first. It returns false if the coordinator shut
// down before opID committed.
func (c *ReplicaStateCoordinator) AwaitCommit(opID OpId) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.lastCommittedOpId.Less(opID) {
		if c.lifecycle == ShutDown {
			return false
		}
		c.appliedCond.Wait()
	}
	return true
}

// SetPendingElectionOpId arms trigger to run once opID commits: the one
// remaining call that advanceCommittedOpIdLocked checks every newly
// committed round against. A second call before the first fires replaces
// both the target OpId and the trigger outright.
func (c *ReplicaStateCoordinator) SetPendingElectionOpId(opID OpId, trigger func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingElectionOpId = opID
	c.hasPendingElectionOpId = true
	c.electionTrigger = trigger
}

// MajorityReplicatedHtLeaseExpiration blocks until the physical component
// lease's majority-replicated expiration reaches at least target, or until
// deadline passes, returning the expiration actually observed and whether
// it reached target in time. sync.Cond has no native deadline support, so
// the bound is implemented with a time.AfterFunc that broadcasts
// appliedCond once deadline arrives, waking this call the same way a real
// lease renewal would.
func (c *ReplicaStateCoordinator) MajorityReplicatedHtLeaseExpiration(target HybridTime, deadline time.Time) (HybridTime, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	timer := time.AfterFunc(time.Until(deadline), func() {
		c.mu.Lock()
		c.appliedCond.Broadcast()
		c.mu.Unlock()
	})
	defer timer.Stop()

	for {
		expiration := c.physicalLease.MajorityReplicatedExpiration()
		if expiration.PhysicalMicros >= target.PhysicalMicros {
			return expiration, true
		}
		if c.lifecycle == ShutDown || !time.Now().Before(deadline) {
			return expiration, false
		}
		c.appliedCond.Wait()
	}
}

// metadataSizer is implemented by MetadataStore backends that can report
// their own on-disk footprint (e.g. storage.BoltMetadataStore). Checked via
// a type assertion rather than added to the MetadataStore interface itself,
// since an in-memory implementation has no meaningful size to report.
type metadataSizer interface {
	Size() (int64, error)
}

// Status returns a snapshot of this coordinator's state for diagnostics.
func (c *ReplicaStateCoordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	ht := HybridTime{PhysicalMicros: now.UnixMicro()}

	sizeBytes := int64(-1)
	if sizer, ok := c.metadata.(metadataSizer); ok {
		if n, err := sizer.Size(); err == nil {
			sizeBytes = n
		}
	}

	return Status{
		ReplicaId:                c.id,
		Term:                     c.currentTerm,
		Role:                     c.role,
		Lifecycle:                c.lifecycle,
		LeaderId:                 c.leaderID,
		LastReceivedOpId:         c.lastReceivedOpId,
		LastReceivedOpIdCurLdr:   c.lastReceivedOpIdCurLdr,
		MajorityReplicatedOpId:   c.majorityReplicatedOpId,
		CommittedOpId:            c.lastCommittedOpId,
		CommittedConfig:          c.configState.Committed(),
		PendingConfig:            c.configState.Pending(),
		LeaseStatus:              c.leaseStatusLocked(now, ht),
		LeaseRemaining:           c.leaseRemainingLocked(now, ht),
		SplitOpId:                c.splitOpId,
		HasSplitOpId:             c.hasSplitOpId,
		PendingElectionOpId:      c.pendingElectionOpId,
		HasPendingElectionOpId:   c.hasPendingElectionOpId,
		TrackedRetryableRequests: c.retryFilter.TrackedCount(),
		MetadataStoreSizeBytes:   sizeBytes,
	}
}

// ActiveConfiguration returns the configuration that currently governs
// quorum decisions (the pending one if a change is in flight, otherwise the
// last committed one).
func (c *ReplicaStateCoordinator) ActiveConfiguration() *Configuration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.configState.Active()
}

// RunRetryFilterGC drops aged-out retryable-request entries. Callers
// should invoke it periodically, e.g. from the same loop driving
// heartbeats.
func (c *ReplicaStateCoordinator) RunRetryFilterGC() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retryFilter.GC()
}
