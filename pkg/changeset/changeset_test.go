package changeset

import (
	"testing"
	"time"

	"github.com/nspcc-dev/network-map-service/pkg/mapdoc"
	"github.com/stretchr/testify/require"
)

func TestApplyAddNotaryIncrementsEpoch(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	p := mapdoc.Template(now)

	next := Apply(p, AddNotary(mapdoc.NotaryInfo{Identity: "CN=notary1", Validating: true}), now.Add(time.Second))
	require.Equal(t, uint64(2), next.Epoch)
	require.Len(t, next.Notaries, 1)
	require.Equal(t, uint64(1), p.Epoch, "original params must not be mutated")
}

func TestApplyAddNotaryIsIdempotent(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	p := mapdoc.Template(now)

	notary := mapdoc.NotaryInfo{Identity: "CN=notary1", Validating: true}
	p = Apply(p, AddNotary(notary), now)
	p = Apply(p, AddNotary(notary), now)

	require.Len(t, p.Notaries, 1)
}

func TestApplyRemoveNotary(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	p := mapdoc.Template(now)
	notary := mapdoc.NotaryInfo{Identity: "CN=notary1", Validating: true}
	p = Apply(p, AddNotary(notary), now)

	p = Apply(p, RemoveNotary(notary.NameHash()), now)
	require.Empty(t, p.Notaries)
}

func TestApplyRemoveNotaryNoOpIfAbsent(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	p := mapdoc.Template(now)

	next := Apply(p, RemoveNotary(mapdoc.HashBytes([]byte("nobody"))), now)
	require.Empty(t, next.Notaries)
	require.Equal(t, uint64(2), next.Epoch)
}

func TestApplyAppendWhiteListIsIdempotent(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	p := mapdoc.Template(now)
	entries := map[string][]mapdoc.Hash{
		"com.example.Contract": {mapdoc.HashBytes([]byte("a"))},
	}

	once := Apply(p, AppendWhiteList(entries), now)
	twice := Apply(once, AppendWhiteList(entries), now)

	require.Equal(t, once.Whitelist.Attachments("com.example.Contract"), twice.Whitelist.Attachments("com.example.Contract"))
}

func TestApplyReplaceWhiteList(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	p := mapdoc.Template(now)
	p = Apply(p, AppendWhiteList(map[string][]mapdoc.Hash{"com.a.A": {mapdoc.HashBytes([]byte("1"))}}), now)

	p = Apply(p, ReplaceWhiteList(map[string][]mapdoc.Hash{"com.b.B": {mapdoc.HashBytes([]byte("2"))}}), now)

	require.Equal(t, []string{"com.b.B"}, p.Whitelist.FQNs())
}

func TestApplyClearWhiteList(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	p := mapdoc.Template(now)
	p = Apply(p, AppendWhiteList(map[string][]mapdoc.Hash{"com.a.A": {mapdoc.HashBytes([]byte("1"))}}), now)

	p = Apply(p, ClearWhiteList(), now)
	require.Equal(t, 0, p.Whitelist.Len())
}

func TestComposedApplyBumpsEpochTwice(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	p := mapdoc.Template(now)

	p1 := Apply(p, AddNotary(mapdoc.NotaryInfo{Identity: "CN=a"}), now)
	p2 := Apply(p1, AddNotary(mapdoc.NotaryInfo{Identity: "CN=b"}), now)

	require.Equal(t, p.Epoch+2, p2.Epoch)
	require.Len(t, p2.Notaries, 2)
}
