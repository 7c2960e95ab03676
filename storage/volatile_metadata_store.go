package storage

import (
	"sync"

	"github.com/ngov17/yugabyte-db/consensus"
)

// VolatileMetadataStore is an in-memory MetadataStore, for tests and for
// non-participant replicas that have no durability requirement of their
// own. It is safe for concurrent use, though the consensus package never
// calls it concurrently since every call happens under its own lock.
type VolatileMetadataStore struct {
	mu       sync.Mutex
	term     int64
	votedFor string

	committedConfig   *consensus.Configuration
	lastCommittedOpID consensus.OpId
}

// NewVolatileMetadataStore creates an empty in-memory metadata store.
func NewVolatileMetadataStore() *VolatileMetadataStore {
	return &VolatileMetadataStore{}
}

// PersistTermAndVote implements consensus.MetadataStore.
func (s *VolatileMetadataStore) PersistTermAndVote(term int64, votedFor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.term = term
	s.votedFor = votedFor
	return nil
}

// LoadTermAndVote implements consensus.MetadataStore.
func (s *VolatileMetadataStore) LoadTermAndVote() (term int64, votedFor string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.term, s.votedFor, nil
}

// PersistCommittedState implements consensus.MetadataStore.
func (s *VolatileMetadataStore) PersistCommittedState(cfg *consensus.Configuration, lastCommittedOpID consensus.OpId) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committedConfig = cfg
	s.lastCommittedOpID = lastCommittedOpID
	return nil
}

// LoadCommittedState implements consensus.MetadataStore.
func (s *VolatileMetadataStore) LoadCommittedState() (cfg *consensus.Configuration, lastCommittedOpID consensus.OpId, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committedConfig, s.lastCommittedOpID, nil
}
