package store

import (
	"encoding/binary"
	"fmt"
)

// EncodeEnvelope packs a (raw payload, signature) pair into the single blob
// a BlobStore holds. This is a storage envelope only — not the hashed or
// signed material itself (that's raw alone) — so a length-prefixed stdlib
// encoding is the right amount of machinery; no pack codec library covers
// "two length-prefixed byte strings" better than encoding/binary.
func EncodeEnvelope(raw, signature []byte) []byte {
	buf := make([]byte, 4+len(raw)+4+len(signature))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(raw)))
	copy(buf[4:4+len(raw)], raw)
	offset := 4 + len(raw)
	binary.BigEndian.PutUint32(buf[offset:offset+4], uint32(len(signature)))
	copy(buf[offset+4:], signature)
	return buf
}

// DecodeEnvelope reverses EncodeEnvelope.
func DecodeEnvelope(blob []byte) (raw, signature []byte, err error) {
	if len(blob) < 4 {
		return nil, nil, fmt.Errorf("store: truncated signed envelope")
	}
	rawLen := binary.BigEndian.Uint32(blob[0:4])
	if uint32(len(blob)) < 4+rawLen+4 {
		return nil, nil, fmt.Errorf("store: truncated signed envelope")
	}
	raw = blob[4 : 4+rawLen]
	offset := 4 + rawLen
	sigLen := binary.BigEndian.Uint32(blob[offset : offset+4])
	if uint32(len(blob)) < offset+4+sigLen {
		return nil, nil, fmt.Errorf("store: truncated signed envelope")
	}
	signature = blob[offset+4 : offset+4+sigLen]
	return raw, signature, nil
}
