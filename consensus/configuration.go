package consensus

import "github.com/ngov17/yugabyte-db/internal/errors"

// MemberKind classifies a peer's participation in quorum and log
// distribution decisions.
type MemberKind uint32

const (
	// Voter participates in elections and counts toward majority quorum.
	Voter MemberKind = iota

	// NonVoter receives log entries but never votes and never counts
	// toward quorum; used to stage a new peer before promoting it.
	NonVoter

	// Observer receives committed entries only, for read scaling; never
	// counts toward quorum and never receives vote requests.
	Observer
)

func (k MemberKind) String() string {
	switch k {
	case Voter:
		return "voter"
	case NonVoter:
		return "non-voter"
	case Observer:
		return "observer"
	default:
		return "unknown"
	}
}

// PeerRecord describes one member of a Configuration.
type PeerRecord struct {
	PeerId  string
	Address string
	Kind    MemberKind
}

// Configuration is a Raft group membership snapshot. A Configuration is
// immutable once constructed; changing membership means building a new one
// and appending it as a ConfigChange operation.
type Configuration struct {
	OpId  OpId
	Peers []PeerRecord
}

// NewConfiguration builds a Configuration from the given peers, stamped with
// opID as the log position at which it becomes effective once committed.
func NewConfiguration(opID OpId, peers []PeerRecord) *Configuration {
	cp := make([]PeerRecord, len(peers))
	copy(cp, peers)
	return &Configuration{OpId: opID, Peers: cp}
}

// Voters returns the subset of peers that count toward quorum.
func (c *Configuration) Voters() []PeerRecord {
	var voters []PeerRecord
	for _, p := range c.Peers {
		if p.Kind == Voter {
			voters = append(voters, p)
		}
	}
	return voters
}

// VoterCount returns the number of voting members.
func (c *Configuration) VoterCount() int {
	return len(c.Voters())
}

// MajoritySize returns the number of votes needed for quorum among voters:
// floor(n/2)+1.
func (c *Configuration) MajoritySize() int {
	return c.VoterCount()/2 + 1
}

// HasPeer reports whether peerID is a member of this configuration,
// regardless of kind.
func (c *Configuration) HasPeer(peerID string) bool {
	for _, p := range c.Peers {
		if p.PeerId == peerID {
			return true
		}
	}
	return false
}

// IsVoter reports whether peerID is a voting member of this configuration.
func (c *Configuration) IsVoter(peerID string) bool {
	for _, p := range c.Peers {
		if p.PeerId == peerID && p.Kind == Voter {
			return true
		}
	}
	return false
}

// IsQuorum reports whether the given set of peer ids constitutes a majority
// of this configuration's voters.
func (c *Configuration) IsQuorum(peerIDs map[string]struct{}) bool {
	count := 0
	for _, p := range c.Voters() {
		if _, ok := peerIDs[p.PeerId]; ok {
			count++
		}
	}
	return count >= c.MajoritySize()
}

// ConfigurationState tracks the committed configuration and, while a
// ConfigChange operation is pending, the configuration it would install.
// There is never more than one pending configuration change in
// flight: a second attempt while one is pending is rejected.
type ConfigurationState struct {
	committed *Configuration
	pending   *Configuration
}

// NewConfigurationState seeds the state with the initial (bootstrap)
// configuration, treated as already committed.
func NewConfigurationState(initial *Configuration) *ConfigurationState {
	return &ConfigurationState{committed: initial}
}

// Committed returns the last configuration change that has committed.
func (s *ConfigurationState) Committed() *Configuration {
	return s.committed
}

// Pending returns the configuration a not-yet-committed ConfigChange
// operation would install, or nil if none is pending.
func (s *ConfigurationState) Pending() *Configuration {
	return s.pending
}

// Restore overwrites the committed configuration without going through the
// normal pending/Commit sequence, discarding any pending change. Used only
// on startup to seed state from a MetadataStore's persisted committed
// configuration, which by definition was already committed before the last
// shutdown.
func (s *ConfigurationState) Restore(cfg *Configuration) {
	s.committed = cfg
	s.pending = nil
}

// Active returns the configuration that should currently govern quorum and
// log-distribution decisions: the pending configuration if one exists,
// otherwise the committed one. Raft requires using the pending config
// immediately so that a leader does not keep counting votes from a peer it
// has already proposed removing.
func (s *ConfigurationState) Active() *Configuration {
	if s.pending != nil {
		return s.pending
	}
	return s.committed
}

// SetPending installs cfg as the pending configuration. It fails with
// IllegalState if a configuration change is already pending.
func (s *ConfigurationState) SetPending(cfg *Configuration) error {
	if s.pending != nil {
		return errors.WrapKind(errors.IllegalState, nil,
			"configuration change already pending at %s", s.pending.OpId)
	}
	s.pending = cfg
	return nil
}

// Commit promotes the pending configuration at opID to committed. It is a
// no-op if there is no pending configuration at that OpId (e.g. the commit
// advanced past a configuration change that was already resolved).
func (s *ConfigurationState) Commit(opID OpId) {
	if s.pending != nil && s.pending.OpId == opID {
		s.committed = s.pending
		s.pending = nil
	}
}

// Abort discards the pending configuration if it was proposed at or after
// opID, restoring Active() to the last committed configuration.
func (s *ConfigurationState) Abort(opID OpId) {
	if s.pending != nil && opID.LessOrEqual(s.pending.OpId) {
		s.pending = nil
	}
}
