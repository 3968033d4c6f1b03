package cloudinary

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestProofPublicID(t *testing.T) {
	at := time.Unix(1700000000, 0)
	require.Equal(t, "hackathon-certificate-1700000000", ProofPublicID("Hackathon  Certificate.pdf", at))
	require.Equal(t, "proof-1700000000", ProofPublicID("../.png", at))
	require.Equal(t, "scan-1700000000", ProofPublicID("/tmp/SCAN.jpeg", at))
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{CloudName: "demo"}, zerolog.Nop())
	require.Error(t, err)
}
