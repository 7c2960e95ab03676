package transport

import (
	"context"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/ngov17/yugabyte-db/internal/errors"
)

// Peer is a remote replica reachable over the network. Implementations must
// be safe for concurrent use: AppendEntries and RequestVote are invoked
// concurrently across peers during a single heartbeat or election round.
type Peer interface {
	Id() string
	Address() string

	Connect() error
	Disconnect() error

	AppendEntries(ctx context.Context, req *AppendEntriesRequest) (*AppendEntriesResponse, error)
	RequestVote(ctx context.Context, req *RequestVoteRequest) (*RequestVoteResponse, error)
	InstallSnapshot(ctx context.Context, req *InstallSnapshotRequest) (*InstallSnapshotResponse, error)
}

// GrpcPeer is a Peer backed by a real gRPC client connection, using the
// gob codec registered in codec.go instead of protobuf.
type GrpcPeer struct {
	id      string
	address string

	mu   sync.Mutex
	conn *grpc.ClientConn
}

// NewGrpcPeer creates an unconnected peer. Call Connect before issuing RPCs.
func NewGrpcPeer(id, address string) *GrpcPeer {
	return &GrpcPeer{id: id, address: address}
}

func (p *GrpcPeer) Id() string      { return p.id }
func (p *GrpcPeer) Address() string { return p.address }

// Connect dials the peer. It is idempotent: calling it while already
// connected is a no-op.
func (p *GrpcPeer) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		return nil
	}
	conn, err := grpc.Dial(p.address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(gobCodecName)),
	)
	if err != nil {
		return errors.WrapError(err, "failed to connect to peer %s at %s", p.id, p.address)
	}
	p.conn = conn
	return nil
}

// Disconnect closes the connection. It is idempotent.
func (p *GrpcPeer) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	if err != nil {
		return errors.WrapError(err, "failed to disconnect from peer %s", p.id)
	}
	return nil
}

func (p *GrpcPeer) connection() (*grpc.ClientConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil, errors.WrapKind(errors.IllegalState, nil, "no connection established with peer %s", p.id)
	}
	return p.conn, nil
}

func (p *GrpcPeer) AppendEntries(ctx context.Context, req *AppendEntriesRequest) (*AppendEntriesResponse, error) {
	conn, err := p.connection()
	if err != nil {
		return nil, err
	}
	resp := new(AppendEntriesResponse)
	if err := conn.Invoke(ctx, serviceName+"/AppendEntries", req, resp); err != nil {
		return nil, errors.WrapError(err, "AppendEntries to peer %s failed", p.id)
	}
	return resp, nil
}

func (p *GrpcPeer) RequestVote(ctx context.Context, req *RequestVoteRequest) (*RequestVoteResponse, error) {
	conn, err := p.connection()
	if err != nil {
		return nil, err
	}
	resp := new(RequestVoteResponse)
	if err := conn.Invoke(ctx, serviceName+"/RequestVote", req, resp); err != nil {
		return nil, errors.WrapError(err, "RequestVote to peer %s failed", p.id)
	}
	return resp, nil
}

func (p *GrpcPeer) InstallSnapshot(ctx context.Context, req *InstallSnapshotRequest) (*InstallSnapshotResponse, error) {
	conn, err := p.connection()
	if err != nil {
		return nil, err
	}
	resp := new(InstallSnapshotResponse)
	if err := conn.Invoke(ctx, serviceName+"/InstallSnapshot", req, resp); err != nil {
		return nil, errors.WrapError(err, "InstallSnapshot to peer %s failed", p.id)
	}
	return resp, nil
}
