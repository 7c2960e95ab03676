package consensus

import "github.com/google/uuid"

// NewClientRequestId generates a new client request id suitable for
// Operation.ClientRequestId. Clients are expected to generate their own ids
// and retry with the same one, but callers that need to originate one
// (tests, internal operations that still want dedup protection) can use
// this instead of hand-rolling a unique string.
func NewClientRequestId() string {
	return uuid.NewString()
}

// NewPeerId generates a new peer id suitable for PeerRecord.PeerId.
func NewPeerId() string {
	return uuid.NewString()
}
