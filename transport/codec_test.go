package transport

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ngov17/yugabyte-db/consensus"
)

func TestGobCodecRoundTrip(t *testing.T) {
	codec := gobCodec{}
	req := &AppendEntriesRequest{
		LeaderId: "leader-1",
		Term:     3,
		Entries: []LogEntry{
			{OpId: consensus.OpId{Term: 3, Index: 1}, Operation: consensus.Operation{Kind: consensus.Write, Bytes: []byte("hello")}},
		},
	}

	data, err := codec.Marshal(req)
	require.NoError(t, err)

	got := new(AppendEntriesRequest)
	require.NoError(t, codec.Unmarshal(data, got))
	require.Equal(t, req.LeaderId, got.LeaderId)
	require.Equal(t, req.Term, got.Term)
	require.Equal(t, req.Entries, got.Entries)
}

func TestGobCodecName(t *testing.T) {
	require.Equal(t, "gob", gobCodec{}.Name())
}
