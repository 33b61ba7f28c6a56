package mapdoc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSigner struct {
	sig     []byte
	failVer bool
}

func (f fakeSigner) Sign(payload []byte) ([]byte, error) {
	return f.sig, nil
}

func (f fakeSigner) Verify(payload, signature []byte) error {
	if f.failVer {
		return errVerifyFailed
	}
	return nil
}

var errVerifyFailed = &verifyError{}

type verifyError struct{}

func (*verifyError) Error() string { return "verification failed" }

func TestTemplateParameters(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	p := Template(now)
	require.Equal(t, TemplateMinPlatformVersion, p.MinimumPlatformVersion)
	require.Empty(t, p.Notaries)
	require.Equal(t, TemplateMaxMessageSize, p.MaxMessageSize)
	require.Equal(t, uint64(TemplateEpoch), p.Epoch)
	require.Equal(t, 0, p.Whitelist.Len())
}

func TestNetworkParametersEncodeDecodeRoundTrip(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	p := Template(now)
	p.Notaries = append(p.Notaries, NotaryInfo{Identity: "CN=notary1", Validating: true})
	p.Whitelist.Append(map[string][]Hash{
		"com.example.Contract": {HashBytes([]byte("a")), HashBytes([]byte("b"))},
	})

	raw, err := p.Encode()
	require.NoError(t, err)

	decoded, err := DecodeNetworkParameters(raw)
	require.NoError(t, err)
	require.Equal(t, p.Epoch, decoded.Epoch)
	require.Equal(t, p.Notaries, decoded.Notaries)
	require.Equal(t, p.Whitelist.Attachments("com.example.Contract"), decoded.Whitelist.Attachments("com.example.Contract"))
}

func TestSignedNetworkParametersHashIsStableUnderIdenticalInput(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	p1 := Template(now)
	p2 := Template(now)
	signer := fakeSigner{sig: []byte("sig")}

	s1, err := SignNetworkParameters(p1, signer)
	require.NoError(t, err)
	s2, err := SignNetworkParameters(p2, signer)
	require.NoError(t, err)

	require.Equal(t, s1.Hash(), s2.Hash())
}

func TestSignedNetworkParametersVerifyFailure(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	p := Template(now)
	signer := fakeSigner{sig: []byte("sig"), failVer: true}
	s, err := SignNetworkParameters(p, signer)
	require.NoError(t, err)

	_, err = s.Verify(signer)
	require.Error(t, err)
}

func TestNotaryNameHashIsDeterministic(t *testing.T) {
	n := NotaryInfo{Identity: "CN=notary1"}
	require.Equal(t, n.NameHash(), n.NameHash())
}

func TestSignedNodeInfoVerifyMismatchedSignatureCount(t *testing.T) {
	info := &NodeInfo{
		Identities: []NodeIdentity{{Name: "CN=alice", PublicKey: []byte("pub")}},
	}
	raw, err := info.Encode()
	require.NoError(t, err)

	signed := &SignedNodeInfo{Raw: raw, Signatures: nil}
	_, err = signed.Verify(func(pubKey, payload, signature []byte) error { return nil })
	require.Error(t, err)
}

func TestSignedNodeInfoVerifySuccess(t *testing.T) {
	info := &NodeInfo{
		Identities: []NodeIdentity{{Name: "CN=alice", PublicKey: []byte("pub")}},
		Addresses:  []string{"127.0.0.1:10000"},
	}
	raw, err := info.Encode()
	require.NoError(t, err)

	signed := &SignedNodeInfo{Raw: raw, Signatures: [][]byte{[]byte("sig")}}
	decoded, err := signed.Verify(func(pubKey, payload, signature []byte) error { return nil })
	require.NoError(t, err)
	require.Equal(t, info.Identities, decoded.Identities)
}

func TestNetworkMapEncodeDecode(t *testing.T) {
	m := &NetworkMap{
		NodeInfoHashes:       []Hash{HashBytes([]byte("x"))},
		NetworkParameterHash: HashBytes([]byte("params")),
	}
	raw, err := m.Encode()
	require.NoError(t, err)

	decoded, err := DecodeNetworkMap(raw)
	require.NoError(t, err)
	require.Equal(t, m.NodeInfoHashes, decoded.NodeInfoHashes)
	require.Nil(t, decoded.ParametersUpdate)
}

func TestHashHexRoundTrip(t *testing.T) {
	h := HashBytes([]byte("hello"))
	parsed, err := HashFromHex(h.String())
	require.NoError(t, err)
	require.Equal(t, h, parsed)
}
