package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ngov17/yugabyte-db/consensus"
)

type fakeReplicationServer struct {
	lastAppend *AppendEntriesRequest
}

func (f *fakeReplicationServer) AppendEntries(ctx context.Context, req *AppendEntriesRequest) (*AppendEntriesResponse, error) {
	f.lastAppend = req
	return &AppendEntriesResponse{Term: req.Term, Success: true}, nil
}

func (f *fakeReplicationServer) RequestVote(ctx context.Context, req *RequestVoteRequest) (*RequestVoteResponse, error) {
	return &RequestVoteResponse{Term: req.Term, VoteGranted: true}, nil
}

func (f *fakeReplicationServer) InstallSnapshot(ctx context.Context, req *InstallSnapshotRequest) (*InstallSnapshotResponse, error) {
	return &InstallSnapshotResponse{Term: req.Term}, nil
}

func TestServerAndPeerAppendEntriesRoundTrip(t *testing.T) {
	impl := &fakeReplicationServer{}
	server := NewServer("127.0.0.1:0", impl)
	require.NoError(t, server.Start())
	defer server.Stop()

	peer := NewGrpcPeer("leader", server.Addr())
	require.NoError(t, peer.Connect())
	defer peer.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req := &AppendEntriesRequest{
		LeaderId: "leader",
		Term:     1,
		Entries: []LogEntry{
			{OpId: consensus.OpId{Term: 1, Index: 1}, Operation: consensus.Operation{Kind: consensus.Write, Bytes: []byte("x")}},
		},
	}
	resp, err := peer.AppendEntries(ctx, req)
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Equal(t, int64(1), resp.Term)
	require.NotNil(t, impl.lastAppend)
	require.Equal(t, "leader", impl.lastAppend.LeaderId)
}

func TestPeerRequestVoteRoundTrip(t *testing.T) {
	impl := &fakeReplicationServer{}
	server := NewServer("127.0.0.1:0", impl)
	require.NoError(t, server.Start())
	defer server.Stop()

	peer := NewGrpcPeer("candidate", server.Addr())
	require.NoError(t, peer.Connect())
	defer peer.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := peer.RequestVote(ctx, &RequestVoteRequest{CandidateId: "candidate", Term: 2})
	require.NoError(t, err)
	require.True(t, resp.VoteGranted)
}

func TestPeerAppendEntriesFailsWithoutConnect(t *testing.T) {
	peer := NewGrpcPeer("leader", "127.0.0.1:9")
	_, err := peer.AppendEntries(context.Background(), &AppendEntriesRequest{})
	require.Error(t, err)
}
