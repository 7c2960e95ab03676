package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ngov17/yugabyte-db/consensus"
)

func TestBoltMetadataStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.db")

	store, err := OpenBoltMetadataStore(path)
	require.NoError(t, err)
	require.NoError(t, store.PersistTermAndVote(4, "peer-1"))
	require.NoError(t, store.Close())

	reopened, err := OpenBoltMetadataStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	term, votedFor, err := reopened.LoadTermAndVote()
	require.NoError(t, err)
	require.Equal(t, int64(4), term)
	require.Equal(t, "peer-1", votedFor)
}

func TestBoltMetadataStoreLoadBeforeAnyPersistIsZeroValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.db")
	store, err := OpenBoltMetadataStore(path)
	require.NoError(t, err)
	defer store.Close()

	term, votedFor, err := store.LoadTermAndVote()
	require.NoError(t, err)
	require.Zero(t, term)
	require.Empty(t, votedFor)
}

func TestBoltMetadataStoreOverwritesPreviousVote(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.db")
	store, err := OpenBoltMetadataStore(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.PersistTermAndVote(1, "peer-1"))
	require.NoError(t, store.PersistTermAndVote(2, "peer-2"))

	term, votedFor, err := store.LoadTermAndVote()
	require.NoError(t, err)
	require.Equal(t, int64(2), term)
	require.Equal(t, "peer-2", votedFor)
}

func TestBoltMetadataStorePersistsCommittedStateWithoutLosingTermAndVote(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.db")
	store, err := OpenBoltMetadataStore(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.PersistTermAndVote(4, "peer-1"))

	cfg := consensus.NewConfiguration(consensus.OpId{Term: 3, Index: 9}, []consensus.PeerRecord{
		{PeerId: "peer-1", Address: "localhost:1", Kind: consensus.Voter},
		{PeerId: "peer-2", Address: "localhost:2", Kind: consensus.Voter},
	})
	require.NoError(t, store.PersistCommittedState(cfg, consensus.OpId{Term: 4, Index: 12}))

	term, votedFor, err := store.LoadTermAndVote()
	require.NoError(t, err)
	require.Equal(t, int64(4), term)
	require.Equal(t, "peer-1", votedFor)

	gotCfg, gotOpID, err := store.LoadCommittedState()
	require.NoError(t, err)
	require.Equal(t, cfg, gotCfg)
	require.Equal(t, consensus.OpId{Term: 4, Index: 12}, gotOpID)
}
