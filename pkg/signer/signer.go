// Package signer is the Certificate & Signing Authority (spec §4.D): it
// holds the network map's signing key and signs/verifies arbitrary payload
// bytes. It never looks inside the payload; mapdoc.Signer is the narrow
// interface the processor and mapdoc package depend on.
package signer

import (
	"crypto/sha256"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// Authority holds a single secp256k1 keypair and signs/verifies over the
// SHA-256 digest of arbitrary payloads, mirroring the Verify-over-hash
// shape of _pkg.dev/crypto/publickey/publickey.go and the Sign/Verify
// wrapper in pkg/consensus/crypto.go. The processor captures an Authority
// reference once at start() and never re-reads it (spec §4.D).
type Authority struct {
	priv *secp256k1.PrivateKey
	pub  *secp256k1.PublicKey
}

// New generates a fresh signing key. Used for development/first-boot
// environments with no persisted key material (spec §4.D: "rooted in a
// known development/production root CA" — root-CA chaining itself is an
// external PKIX collaborator, out of scope per §1).
func New() (*Authority, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("signer: generate key: %w", err)
	}
	return &Authority{priv: priv, pub: priv.PubKey()}, nil
}

// Load builds an Authority from a previously persisted 32-byte private key.
func Load(keyBytes []byte) (*Authority, error) {
	priv := secp256k1.PrivKeyFromBytes(keyBytes)
	if priv == nil {
		return nil, fmt.Errorf("signer: invalid private key bytes")
	}
	return &Authority{priv: priv, pub: priv.PubKey()}, nil
}

// Bytes returns the raw private key, for persistence by the caller.
func (a *Authority) Bytes() []byte {
	return a.priv.Serialize()
}

// PublicKey returns the compressed public key, the form NodeIdentity and
// admin tooling carry around as an opaque identity-owning key.
func (a *Authority) PublicKey() []byte {
	return a.pub.SerializeCompressed()
}

// Sign signs the SHA-256 digest of payload, returning a DER-encoded
// signature. Deterministic: signing the same bytes twice with the same key
// always yields the same signature, since secp256k1/v4/ecdsa.Sign is
// RFC6979-deterministic.
func (a *Authority) Sign(payload []byte) ([]byte, error) {
	digest := sha256.Sum256(payload)
	sig := ecdsa.Sign(a.priv, digest[:])
	return sig.Serialize(), nil
}

// Verify checks signature against payload using this authority's own
// public key (the network map key verifying its own prior output).
func (a *Authority) Verify(payload, signature []byte) error {
	return VerifyWithPublicKey(a.PublicKey(), payload, signature)
}

// VerifyWithPublicKey checks a DER-encoded signature against the SHA-256
// digest of payload, under an arbitrary compressed public key. Used to
// verify SignedNodeInfo, whose signatures are made by the publishing
// node's own identity keys, not the map's signing key.
func VerifyWithPublicKey(pubKeyBytes, payload, signature []byte) error {
	pub, err := secp256k1.ParsePubKey(pubKeyBytes)
	if err != nil {
		return fmt.Errorf("signer: invalid public key: %w", err)
	}
	sig, err := ecdsa.ParseDERSignature(signature)
	if err != nil {
		return fmt.Errorf("signer: invalid signature encoding: %w", err)
	}
	digest := sha256.Sum256(payload)
	if !sig.Verify(digest[:], pub) {
		return fmt.Errorf("signer: signature-invalid")
	}
	return nil
}
