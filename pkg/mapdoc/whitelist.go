package mapdoc

import (
	"fmt"
	"sort"

	ojson "github.com/nspcc-dev/go-ordered-json"
)

// Whitelist maps a fully-qualified contract name to an ordered set of
// attachment hashes approved to implement it (spec §3). It is kept as an
// explicit ordered structure, not a bare Go map: AppendWhiteList's union
// must preserve each entry's first-seen attachment order, and the overall
// encoding must be stable across repeated signs of otherwise-unchanged
// parameters, so insertion order is made a first-class, serialized fact
// via github.com/nspcc-dev/go-ordered-json rather than left to the
// encoder's internal (and incidental) map-key sort.
type Whitelist struct {
	keys    []string
	entries map[string][]Hash
}

// NewWhitelist builds an empty whitelist.
func NewWhitelist() *Whitelist {
	return &Whitelist{entries: make(map[string][]Hash)}
}

// Clone returns a deep copy.
func (w *Whitelist) Clone() *Whitelist {
	out := NewWhitelist()
	if w == nil {
		return out
	}
	for _, fqn := range w.keys {
		out.keys = append(out.keys, fqn)
		hashes := make([]Hash, len(w.entries[fqn]))
		copy(hashes, w.entries[fqn])
		out.entries[fqn] = hashes
	}
	return out
}

// FQNs returns the contract names in insertion order.
func (w *Whitelist) FQNs() []string {
	if w == nil {
		return nil
	}
	out := make([]string, len(w.keys))
	copy(out, w.keys)
	return out
}

// Attachments returns the ordered attachment hashes for fqn, or nil.
func (w *Whitelist) Attachments(fqn string) []Hash {
	if w == nil {
		return nil
	}
	hashes := w.entries[fqn]
	out := make([]Hash, len(hashes))
	copy(out, hashes)
	return out
}

// Len reports the number of distinct contract names.
func (w *Whitelist) Len() int {
	if w == nil {
		return 0
	}
	return len(w.keys)
}

// Append unions entries into the whitelist: for each fqn, new attachment
// hashes are appended after any already present, skipping duplicates, and
// new fqns are appended after existing ones. Idempotent.
func (w *Whitelist) Append(entries map[string][]Hash) {
	fqns := sortedKeys(entries)
	for _, fqn := range fqns {
		existing, ok := w.entries[fqn]
		if !ok {
			w.keys = append(w.keys, fqn)
		}
		seen := make(map[Hash]bool, len(existing))
		for _, h := range existing {
			seen[h] = true
		}
		for _, h := range entries[fqn] {
			if seen[h] {
				continue
			}
			seen[h] = true
			existing = append(existing, h)
		}
		w.entries[fqn] = existing
	}
}

// Replace discards the current whitelist and installs entries wholesale.
func (w *Whitelist) Replace(entries map[string][]Hash) {
	w.keys = nil
	w.entries = make(map[string][]Hash, len(entries))
	w.Append(entries)
}

// Clear empties the whitelist.
func (w *Whitelist) Clear() {
	w.keys = nil
	w.entries = make(map[string][]Hash)
}

func sortedKeys(m map[string][]Hash) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON renders the whitelist as an order-preserving JSON object via
// go-ordered-json, so two whitelists with the same entries in the same
// insertion order always produce byte-identical output.
func (w *Whitelist) MarshalJSON() ([]byte, error) {
	obj := ojson.OrderedObject{}
	for _, fqn := range w.keys {
		obj = append(obj, ojson.Member{Key: fqn, Value: w.entries[fqn]})
	}
	return ojson.Marshal(obj)
}

// UnmarshalJSON parses an order-preserving JSON object produced by
// MarshalJSON, preserving the FQN insertion order found on the wire.
func (w *Whitelist) UnmarshalJSON(data []byte) error {
	var obj ojson.OrderedObject
	if err := ojson.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("mapdoc: decode whitelist: %w", err)
	}
	w.keys = nil
	w.entries = make(map[string][]Hash, len(obj))
	for _, member := range obj {
		raw, err := ojson.Marshal(member.Value)
		if err != nil {
			return fmt.Errorf("mapdoc: re-encode whitelist entry %q: %w", member.Key, err)
		}
		var hashes []Hash
		if err := ojson.Unmarshal(raw, &hashes); err != nil {
			return fmt.Errorf("mapdoc: decode whitelist entry %q: %w", member.Key, err)
		}
		w.keys = append(w.keys, member.Key)
		w.entries[member.Key] = hashes
	}
	return nil
}
