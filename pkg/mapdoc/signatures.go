package mapdoc

import "fmt"

// JoinSignatures packs a SignedNodeInfo's per-identity signature list into
// a single length-prefixed byte string, the form the blob store's signed
// envelope (pkg/store.EncodeEnvelope) expects as its "signature" field when
// the signer is actually several independent identity keys rather than one.
func JoinSignatures(sigs [][]byte) []byte {
	var out []byte
	for _, s := range sigs {
		var lenBuf [4]byte
		lenBuf[0] = byte(len(s) >> 24)
		lenBuf[1] = byte(len(s) >> 16)
		lenBuf[2] = byte(len(s) >> 8)
		lenBuf[3] = byte(len(s))
		out = append(out, lenBuf[:]...)
		out = append(out, s...)
	}
	return out
}

// SplitSignatures reverses JoinSignatures.
func SplitSignatures(joined []byte) ([][]byte, error) {
	var out [][]byte
	for len(joined) > 0 {
		if len(joined) < 4 {
			return nil, fmt.Errorf("mapdoc: truncated signature list")
		}
		n := int(joined[0])<<24 | int(joined[1])<<16 | int(joined[2])<<8 | int(joined[3])
		joined = joined[4:]
		if len(joined) < n {
			return nil, fmt.Errorf("mapdoc: truncated signature list")
		}
		out = append(out, joined[:n])
		joined = joined[n:]
	}
	return out, nil
}
