package processor

import (
	"fmt"
	"sort"

	"github.com/nspcc-dev/network-map-service/pkg/mapdoc"
	"github.com/nspcc-dev/network-map-service/pkg/store"
)

// AddNode implements spec §4.F's "addNode": verify the signature, check
// every identity name against every other currently stored node info's
// identities, reject on conflict, otherwise store and schedule a rebuild.
func (p *Processor) AddNode(signed *mapdoc.SignedNodeInfo) <-chan error {
	return p.submit(func() error { return p.addNode(signed) })
}

func (p *Processor) addNode(signed *mapdoc.SignedNodeInfo) error {
	info, err := signed.Verify(p.cfg.VerifyIdentity)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrSignatureInvalid, err)
	}

	nameToKey, err := p.currentNameToKey()
	if err != nil {
		return fmt.Errorf("enumerate stored node infos: %w", err)
	}

	var conflicts []string
	for _, id := range info.Identities {
		if existing, ok := nameToKey[id.Name]; ok && string(existing) != string(id.PublicKey) {
			conflicts = append(conflicts, id.Name)
		}
	}
	if len(conflicts) > 0 {
		sort.Strings(conflicts)
		return fmt.Errorf("%w: conflicting identity names %v", ErrNameConflict, conflicts)
	}

	hash := signed.Hash()
	raw := store.EncodeEnvelope(signed.Raw, mapdoc.JoinSignatures(signed.Signatures))
	if err := p.cfg.Stores.NodeInfo.Put(hash.String(), raw); err != nil {
		return fmt.Errorf("store node info: %w", err)
	}
	p.conflictCache.Add(hash.String(), info.Identities)

	p.scheduleNetworkMapRebuild()
	return nil
}

// DeleteNode removes a stored node info by its content hash (spec §4.H,
// "Delete notary / delete node") and schedules a rebuild so the map drops
// its hash on the next cycle.
func (p *Processor) DeleteNode(hash mapdoc.Hash) <-chan error {
	return p.submit(func() error {
		if err := p.cfg.Stores.NodeInfo.Delete(hash.String()); err != nil {
			return fmt.Errorf("delete node info: %w", err)
		}
		p.conflictCache.Remove(hash.String())
		p.scheduleNetworkMapRebuild()
		return nil
	})
}

// currentNameToKey flattens every currently stored node info's identities
// into a single name -> public key mapping (spec §4.F: "Enumerate all
// currently stored node infos, flatten to a mapping name -> publicKey").
// The golang-lru cache memoizes the identity extraction per node-info hash
// so unchanged blobs are not re-decoded on every publish; it never replaces
// the full per-call enumeration, so a cache eviction can only make this
// slower, never less correct.
func (p *Processor) currentNameToKey() (map[string][]byte, error) {
	all, err := p.cfg.Stores.NodeInfo.GetAll()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(all))
	for hash, blob := range all {
		identities, err := p.identitiesOf(hash, blob)
		if err != nil {
			return nil, err
		}
		for _, id := range identities {
			out[id.Name] = id.PublicKey
		}
	}
	return out, nil
}

func (p *Processor) identitiesOf(hashKey string, blob []byte) ([]mapdoc.NodeIdentity, error) {
	if cached, ok := p.conflictCache.Get(hashKey); ok {
		return cached.([]mapdoc.NodeIdentity), nil
	}
	raw, _, err := store.DecodeEnvelope(blob)
	if err != nil {
		return nil, err
	}
	info, err := mapdoc.DecodeNodeInfo(raw)
	if err != nil {
		return nil, err
	}
	p.conflictCache.Add(hashKey, info.Identities)
	return info.Identities, nil
}

func (p *Processor) allNodeInfoHashes() ([]mapdoc.Hash, error) {
	keys, err := p.cfg.Stores.NodeInfo.GetKeys()
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	out := make([]mapdoc.Hash, 0, len(keys))
	for _, k := range keys {
		h, err := mapdoc.HashFromHex(k)
		if err != nil {
			return nil, fmt.Errorf("parse node info key %q: %w", k, err)
		}
		out = append(out, h)
	}
	return out, nil
}

