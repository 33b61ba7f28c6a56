package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	raw := []byte("payload bytes")
	sig := []byte("signature bytes")

	blob := EncodeEnvelope(raw, sig)
	gotRaw, gotSig, err := DecodeEnvelope(blob)
	require.NoError(t, err)
	require.Equal(t, raw, gotRaw)
	require.Equal(t, sig, gotSig)
}

func TestEnvelopeRoundTripEmptySignature(t *testing.T) {
	raw := []byte("payload bytes")
	blob := EncodeEnvelope(raw, nil)
	gotRaw, gotSig, err := DecodeEnvelope(blob)
	require.NoError(t, err)
	require.Equal(t, raw, gotRaw)
	require.Empty(t, gotSig)
}

func TestDecodeEnvelopeTruncated(t *testing.T) {
	_, _, err := DecodeEnvelope([]byte{0, 0})
	require.Error(t, err)
}
