package consensus

// MetadataStore durably persists the handful of fields that must survive a
// restart: the current term and the candidate (if any) this replica voted
// for during that term, plus the last committed configuration and the OpId
// it committed at, so that a restarted replica does not have to re-derive
// its membership and commit position from scratch before it can safely
// rejoin. Every SetCurrentTerm and SetVotedForCurrentTerm call must
// synchronously persist before returning, since granting a second vote in a
// term after a crash is what the durability requirement exists to prevent.
//
// Implementations live in the storage package; this interface is declared
// here, at the consumer, so that consensus does not need to import storage.
type MetadataStore interface {
	// PersistTermAndVote durably writes term and votedFor together. It must
	// not return until the write is guaranteed to survive a process crash.
	PersistTermAndVote(term int64, votedFor string) error

	// LoadTermAndVote returns the most recently persisted term and vote,
	// or the zero term and an empty vote if nothing has ever been persisted.
	LoadTermAndVote() (term int64, votedFor string, err error)

	// PersistCommittedState durably writes the last committed configuration
	// and the OpId it committed at, together, so a restarted replica never
	// observes one without the other.
	PersistCommittedState(cfg *Configuration, lastCommittedOpID OpId) error

	// LoadCommittedState returns the most recently persisted committed
	// configuration and commit OpId, or (nil, zero OpId) if nothing has ever
	// been persisted.
	LoadCommittedState() (cfg *Configuration, lastCommittedOpID OpId, err error)
}
