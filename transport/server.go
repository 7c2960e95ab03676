package transport

import (
	"net"

	"google.golang.org/grpc"

	"github.com/ngov17/yugabyte-db/internal/errors"
)

// Server hosts a ReplicationServer over gRPC, listening on a single address
// for AppendEntries, RequestVote, and InstallSnapshot RPCs from peers.
type Server struct {
	listenAddr string
	listener   net.Listener
	grpcServer *grpc.Server
}

// NewServer creates a Server that will listen on listenAddr and dispatch
// incoming RPCs to impl.
func NewServer(listenAddr string, impl ReplicationServer) *Server {
	grpcServer := grpc.NewServer()
	RegisterReplicationServer(grpcServer, impl)
	return &Server{listenAddr: listenAddr, grpcServer: grpcServer}
}

// Start binds the listen address and begins serving in a background
// goroutine. It returns once the listener is bound, not once serving stops.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return errors.WrapError(err, "failed to listen on %s", s.listenAddr)
	}
	s.listener = listener
	go s.grpcServer.Serve(listener)
	return nil
}

// Stop gracefully stops the server, waiting for in-flight RPCs to finish.
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}

// Addr returns the bound listen address, useful when listenAddr was ":0"
// and the OS chose a port.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.listenAddr
	}
	return s.listener.Addr().String()
}
