package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewClientRequestIdIsUniqueAndNonEmpty(t *testing.T) {
	a := NewClientRequestId()
	b := NewClientRequestId()
	require.NotEmpty(t, a)
	require.NotEqual(t, a, b)
}

func TestNewPeerIdIsUniqueAndNonEmpty(t *testing.T) {
	a := NewPeerId()
	b := NewPeerId()
	require.NotEmpty(t, a)
	require.NotEqual(t, a, b)
}
