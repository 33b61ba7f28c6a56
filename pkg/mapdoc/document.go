package mapdoc

import (
	"fmt"
	"time"

	ojson "github.com/nspcc-dev/go-ordered-json"
)

// Signer produces and checks signatures over raw payload bytes. Implemented
// by pkg/signer.Authority; kept as a narrow interface here so mapdoc never
// imports the signing package (it is signed material, not a signer).
type Signer interface {
	Sign(payload []byte) ([]byte, error)
	Verify(payload, signature []byte) error
}

// Default template constants for the first-boot NetworkParameters (spec §3,
// "Lifecycle").
const (
	TemplateMinPlatformVersion = 1
	TemplateMaxMessageSize     = 10_485_760
	TemplateMaxTransactionSize = 1<<31 - 1 // max signed 32-bit
	TemplateEpoch              = 1
)

// NotaryInfo is a trusted identity participating in consensus (spec §3,
// GLOSSARY "Notary").
type NotaryInfo struct {
	Identity   string `json:"identity"`
	Validating bool   `json:"validating"`
}

// NameHash returns the hash of the notary's identity name, the key used by
// RemoveNotary to address a specific entry without carrying the full
// identity around.
func (n NotaryInfo) NameHash() Hash {
	return HashBytes([]byte(n.Identity))
}

// NetworkParameters is the protocol constitution (spec §3). Every mutation
// through the change-set algebra (pkg/changeset) increments Epoch by
// exactly one and advances ModifiedTime; Epoch never decreases.
type NetworkParameters struct {
	MinimumPlatformVersion int          `json:"minimumPlatformVersion"`
	Notaries               []NotaryInfo `json:"notaries"`
	MaxMessageSize         int          `json:"maxMessageSize"`
	MaxTransactionSize     int          `json:"maxTransactionSize"`
	ModifiedTime           time.Time    `json:"modifiedTime"`
	Epoch                  uint64       `json:"epoch"`
	Whitelist              *Whitelist   `json:"whitelist"`
}

// Template builds the first-boot parameters document (spec §4.F, start
// sequence step 2): minimum platform version 1, no notaries, the default
// message/transaction size ceilings, empty whitelist, epoch 1.
func Template(now time.Time) *NetworkParameters {
	return &NetworkParameters{
		MinimumPlatformVersion: TemplateMinPlatformVersion,
		Notaries:               nil,
		MaxMessageSize:         TemplateMaxMessageSize,
		MaxTransactionSize:     TemplateMaxTransactionSize,
		ModifiedTime:           now,
		Epoch:                  TemplateEpoch,
		Whitelist:              NewWhitelist(),
	}
}

// Clone returns a deep copy, so the change-set algebra never mutates the
// previous version in place (spec §4.E: apply is pure and total).
func (p *NetworkParameters) Clone() *NetworkParameters {
	notaries := make([]NotaryInfo, len(p.Notaries))
	copy(notaries, p.Notaries)
	return &NetworkParameters{
		MinimumPlatformVersion: p.MinimumPlatformVersion,
		Notaries:               notaries,
		MaxMessageSize:         p.MaxMessageSize,
		MaxTransactionSize:     p.MaxTransactionSize,
		ModifiedTime:           p.ModifiedTime,
		Epoch:                  p.Epoch,
		Whitelist:              p.Whitelist.Clone(),
	}
}

// Encode deterministically serializes the document for hashing and signing.
// go-ordered-json is used throughout (not stdlib encoding/json) so the
// whitelist's FQN/attachment ordering is the one committed to the wire,
// rather than relying on an implementation detail of a generic map
// marshaler.
func (p *NetworkParameters) Encode() ([]byte, error) {
	return ojson.Marshal(p)
}

// DecodeNetworkParameters parses the deterministic encoding produced by Encode.
func DecodeNetworkParameters(raw []byte) (*NetworkParameters, error) {
	var p NetworkParameters
	if err := ojson.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("mapdoc: decode network parameters: %w", err)
	}
	if p.Whitelist == nil {
		p.Whitelist = NewWhitelist()
	}
	return &p, nil
}

// SignedNetworkParameters is a NetworkParameters plus a signature by the
// map's signing key (spec §3). Content-addressed by the hash of Raw;
// immutable once stored.
type SignedNetworkParameters struct {
	Raw       []byte `json:"raw"`
	Signature []byte `json:"signature"`
}

// SignNetworkParameters encodes and signs a NetworkParameters document.
func SignNetworkParameters(p *NetworkParameters, signer Signer) (*SignedNetworkParameters, error) {
	raw, err := p.Encode()
	if err != nil {
		return nil, err
	}
	sig, err := signer.Sign(raw)
	if err != nil {
		return nil, fmt.Errorf("mapdoc: sign network parameters: %w", err)
	}
	return &SignedNetworkParameters{Raw: raw, Signature: sig}, nil
}

// Hash is the content address under which this signed document is stored.
func (s *SignedNetworkParameters) Hash() Hash {
	return HashBytes(s.Raw)
}

// Verify checks the signature and, on success, decodes the payload.
func (s *SignedNetworkParameters) Verify(signer Signer) (*NetworkParameters, error) {
	if err := signer.Verify(s.Raw, s.Signature); err != nil {
		return nil, fmt.Errorf("mapdoc: signature-invalid: %w", err)
	}
	return DecodeNetworkParameters(s.Raw)
}

// NodeIdentity is a participant's legal identity: a distinguished name and
// the public key that owns it (spec §3).
type NodeIdentity struct {
	Name      string `json:"name"`
	PublicKey []byte `json:"publicKey"`
}

// NodeInfo is a participant's self-description (spec §3, GLOSSARY "Node Info").
type NodeInfo struct {
	Identities      []NodeIdentity `json:"identities"`
	Addresses       []string       `json:"addresses"`
	PlatformVersion int            `json:"platformVersion"`
}

// Encode deterministically serializes the node info for hashing/signing.
func (n *NodeInfo) Encode() ([]byte, error) {
	return ojson.Marshal(n)
}

// DecodeNodeInfo parses the encoding produced by NodeInfo.Encode.
func DecodeNodeInfo(raw []byte) (*NodeInfo, error) {
	var n NodeInfo
	if err := ojson.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("mapdoc: decode node info: %w", err)
	}
	return &n, nil
}

// SignedNodeInfo is a NodeInfo signed by (every one of) its identity keys
// (spec §3). Content-addressed by the SHA-256 hex of Raw.
type SignedNodeInfo struct {
	Raw        []byte   `json:"raw"`
	Signatures [][]byte `json:"signatures"`
}

// Hash is the content address under which this signed document is stored,
// also used as the string index equal to its hex encoding (spec §3).
func (s *SignedNodeInfo) Hash() Hash {
	return HashBytes(s.Raw)
}

// Verify checks every identity's signature and, on success, decodes the
// payload. Each NodeIdentity's owning public key must have produced one of
// the signatures, in order; a mismatch in count or a failed check is a
// signature-invalid rejection (spec §7).
func (s *SignedNodeInfo) Verify(verifyOne func(pubKey, payload, signature []byte) error) (*NodeInfo, error) {
	info, err := DecodeNodeInfo(s.Raw)
	if err != nil {
		return nil, err
	}
	if len(s.Signatures) != len(info.Identities) {
		return nil, fmt.Errorf("mapdoc: signature-invalid: got %d signatures for %d identities", len(s.Signatures), len(info.Identities))
	}
	for i, id := range info.Identities {
		if err := verifyOne(id.PublicKey, s.Raw, s.Signatures[i]); err != nil {
			return nil, fmt.Errorf("mapdoc: signature-invalid for identity %q: %w", id.Name, err)
		}
	}
	return info, nil
}

// ParametersUpdate is a scheduled activation record (spec §3). At most one
// is in flight at any time, held under the "next-params-update" pointer.
type ParametersUpdate struct {
	NewParametersHash Hash      `json:"newParametersHash"`
	Description       string    `json:"description"`
	UpdateDeadline    time.Time `json:"updateDeadline"`
}

// Encode deterministically serializes the pending update record.
func (u *ParametersUpdate) Encode() ([]byte, error) {
	return ojson.Marshal(u)
}

// DecodeParametersUpdate parses the encoding produced by Encode.
func DecodeParametersUpdate(raw []byte) (*ParametersUpdate, error) {
	var u ParametersUpdate
	if err := ojson.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("mapdoc: decode parameters update: %w", err)
	}
	return &u, nil
}

// NetworkMap is the aggregate snapshot (spec §3).
type NetworkMap struct {
	NodeInfoHashes       []Hash            `json:"nodeInfoHashes"`
	NetworkParameterHash Hash              `json:"networkParameterHash"`
	ParametersUpdate     *ParametersUpdate `json:"parametersUpdate,omitempty"`
}

// Encode deterministically serializes the map for signing.
func (m *NetworkMap) Encode() ([]byte, error) {
	return ojson.Marshal(m)
}

// DecodeNetworkMap parses the encoding produced by Encode.
func DecodeNetworkMap(raw []byte) (*NetworkMap, error) {
	var m NetworkMap
	if err := ojson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("mapdoc: decode network map: %w", err)
	}
	return &m, nil
}

// SignedNetworkMap is a NetworkMap signed by the map key, stored under the
// fixed name "latest-network-map" (spec §3).
type SignedNetworkMap struct {
	Raw       []byte `json:"raw"`
	Signature []byte `json:"signature"`
}

// SignNetworkMap encodes and signs a NetworkMap.
func SignNetworkMap(m *NetworkMap, signer Signer) (*SignedNetworkMap, error) {
	raw, err := m.Encode()
	if err != nil {
		return nil, err
	}
	sig, err := signer.Sign(raw)
	if err != nil {
		return nil, fmt.Errorf("mapdoc: sign network map: %w", err)
	}
	return &SignedNetworkMap{Raw: raw, Signature: sig}, nil
}

// Hash is the content address of the signed map's raw bytes. The map is
// additionally stored under the fixed logical name LatestNetworkMapKey,
// which is what callers normally fetch it by.
func (s *SignedNetworkMap) Hash() Hash {
	return HashBytes(s.Raw)
}

// Verify checks the signature and, on success, decodes the payload.
func (s *SignedNetworkMap) Verify(signer Signer) (*NetworkMap, error) {
	if err := signer.Verify(s.Raw, s.Signature); err != nil {
		return nil, fmt.Errorf("mapdoc: signature-invalid: %w", err)
	}
	return DecodeNetworkMap(s.Raw)
}

// Named pointers held in the key-value text store (spec §3).
const (
	CurrentParametersKey = "current-parameters"
	NextParamsUpdateKey  = "next-params-update"
	LatestNetworkMapKey  = "latest-network-map"
)

// Database collection names (spec §6, "Persisted layout").
const (
	CollectionSignedNetworkParameters = "signed-network-parameters"
	CollectionSignedNetworkMap        = "signed-network-map"
	CollectionSignedNodeInfo          = "signed-node-info"
	CollectionParametersUpdate        = "parameters-update"
	CollectionText                    = "etc"
)
