// Package mapdoc defines the network map's content-addressed data model:
// NetworkParameters, NodeInfo, NetworkMap and their signed wrappers.
package mapdoc

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hash is a SHA-256 content digest, used both as the blob store's key type
// and as the hex string index for signed node infos (spec §3).
type Hash [sha256.Size]byte

// HashBytes computes the content hash of raw bytes.
func HashBytes(b []byte) Hash {
	return sha256.Sum256(b)
}

// String renders the hash as lowercase hex, the same encoding used for the
// signed-node-info string index.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// MarshalJSON renders the hash as a hex JSON string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return []byte(`"` + h.String() + `"`), nil
}

// UnmarshalJSON parses a hex JSON string into a Hash.
func (h *Hash) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("mapdoc: invalid hash JSON literal %q", data)
	}
	return h.UnmarshalText(data[1 : len(data)-1])
}

// UnmarshalText parses a hex string into a Hash.
func (h *Hash) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("mapdoc: invalid hash %q: %w", text, err)
	}
	if len(b) != sha256.Size {
		return fmt.Errorf("mapdoc: invalid hash length %d, want %d", len(b), sha256.Size)
	}
	copy(h[:], b)
	return nil
}

// HashFromHex parses a hex-encoded hash string.
func HashFromHex(s string) (Hash, error) {
	var h Hash
	err := h.UnmarshalText([]byte(s))
	return h, err
}

// IsZero reports whether h is the zero hash (never a valid content hash in
// this service, so it doubles as a "missing" sentinel where a Hash is
// embedded by value rather than by pointer).
func (h Hash) IsZero() bool {
	return h == Hash{}
}
