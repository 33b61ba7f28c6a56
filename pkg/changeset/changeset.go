// Package changeset implements the Change Set Algebra: a pure, total
// function mapping (NetworkParameters, Change) to a new
// NetworkParameters, over a closed set of variants, dispatched through a
// single switch over the tagged-sum Change type.
package changeset

import (
	"time"

	"github.com/nspcc-dev/network-map-service/pkg/mapdoc"
)

// Kind identifies which variant of Change is populated. Change is a closed
// tagged sum, not an open interface, per spec §9 ("avoid open polymorphism").
type Kind int

const (
	// AddNotaryKind appends a notary if its identity is absent (idempotent).
	AddNotaryKind Kind = iota
	// RemoveNotaryKind removes the notary whose identity-name hash matches.
	RemoveNotaryKind
	// AppendWhiteListKind unions entries into the existing whitelist.
	AppendWhiteListKind
	// ReplaceWhiteListKind replaces the whitelist wholesale.
	ReplaceWhiteListKind
	// ClearWhiteListKind empties the whitelist.
	ClearWhiteListKind
)

// Change is the closed variant set the algebra operates on. Only the field
// matching Kind is populated; Apply's dispatcher is the single place that
// interprets Kind.
type Change struct {
	Kind Kind

	Notary         mapdoc.NotaryInfo   // AddNotaryKind
	NotaryNameHash mapdoc.Hash         // RemoveNotaryKind
	WhiteList      map[string][]mapdoc.Hash // AppendWhiteListKind, ReplaceWhiteListKind
}

// AddNotary builds an AddNotaryKind change.
func AddNotary(info mapdoc.NotaryInfo) Change {
	return Change{Kind: AddNotaryKind, Notary: info}
}

// RemoveNotary builds a RemoveNotaryKind change.
func RemoveNotary(nameHash mapdoc.Hash) Change {
	return Change{Kind: RemoveNotaryKind, NotaryNameHash: nameHash}
}

// AppendWhiteList builds an AppendWhiteListKind change.
func AppendWhiteList(entries map[string][]mapdoc.Hash) Change {
	return Change{Kind: AppendWhiteListKind, WhiteList: entries}
}

// ReplaceWhiteList builds a ReplaceWhiteListKind change.
func ReplaceWhiteList(entries map[string][]mapdoc.Hash) Change {
	return Change{Kind: ReplaceWhiteListKind, WhiteList: entries}
}

// ClearWhiteList builds a ClearWhiteListKind change.
func ClearWhiteList() Change {
	return Change{Kind: ClearWhiteListKind}
}

// Apply is the single dispatcher over Change's closed variant set (spec
// §4.E, §9). It is pure and total: params is never mutated in place, and
// every successful apply increments Epoch by exactly 1 and sets
// ModifiedTime to now, preserving every other field untouched by the
// specific variant.
func Apply(params *mapdoc.NetworkParameters, change Change, now time.Time) *mapdoc.NetworkParameters {
	next := params.Clone()

	switch change.Kind {
	case AddNotaryKind:
		applyAddNotary(next, change.Notary)
	case RemoveNotaryKind:
		applyRemoveNotary(next, change.NotaryNameHash)
	case AppendWhiteListKind:
		next.Whitelist.Append(change.WhiteList)
	case ReplaceWhiteListKind:
		next.Whitelist.Replace(change.WhiteList)
	case ClearWhiteListKind:
		next.Whitelist.Clear()
	}

	next.Epoch = params.Epoch + 1
	next.ModifiedTime = now
	return next
}

func applyAddNotary(p *mapdoc.NetworkParameters, info mapdoc.NotaryInfo) {
	target := info.NameHash()
	for _, existing := range p.Notaries {
		if existing.NameHash() == target {
			return // idempotent: identity already present
		}
	}
	p.Notaries = append(p.Notaries, info)
}

func applyRemoveNotary(p *mapdoc.NetworkParameters, nameHash mapdoc.Hash) {
	out := p.Notaries[:0:0]
	for _, n := range p.Notaries {
		if n.NameHash() == nameHash {
			continue
		}
		out = append(out, n)
	}
	p.Notaries = out
}
