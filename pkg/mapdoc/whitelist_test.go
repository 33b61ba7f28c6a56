package mapdoc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWhitelistAppendIdempotent(t *testing.T) {
	w := NewWhitelist()
	entries := map[string][]Hash{
		"com.example.A": {HashBytes([]byte("1")), HashBytes([]byte("2"))},
	}
	w.Append(entries)
	once, err := w.MarshalJSON()
	require.NoError(t, err)

	w.Append(entries)
	twice, err := w.MarshalJSON()
	require.NoError(t, err)

	require.Equal(t, once, twice)
}

func TestWhitelistAppendPreservesOrder(t *testing.T) {
	w := NewWhitelist()
	w.Append(map[string][]Hash{"com.b.B": {HashBytes([]byte("b"))}})
	w.Append(map[string][]Hash{"com.a.A": {HashBytes([]byte("a"))}})

	require.Equal(t, []string{"com.b.B", "com.a.A"}, w.FQNs())
}

func TestWhitelistAppendUnionsWithoutDuplicating(t *testing.T) {
	w := NewWhitelist()
	h1, h2 := HashBytes([]byte("1")), HashBytes([]byte("2"))
	w.Append(map[string][]Hash{"com.example.A": {h1}})
	w.Append(map[string][]Hash{"com.example.A": {h1, h2}})

	require.Equal(t, []Hash{h1, h2}, w.Attachments("com.example.A"))
}

func TestWhitelistReplace(t *testing.T) {
	w := NewWhitelist()
	w.Append(map[string][]Hash{"com.example.A": {HashBytes([]byte("1"))}})
	w.Replace(map[string][]Hash{"com.example.B": {HashBytes([]byte("2"))}})

	require.Equal(t, []string{"com.example.B"}, w.FQNs())
}

func TestWhitelistClear(t *testing.T) {
	w := NewWhitelist()
	w.Append(map[string][]Hash{"com.example.A": {HashBytes([]byte("1"))}})
	w.Clear()

	require.Equal(t, 0, w.Len())
}

func TestWhitelistJSONRoundTrip(t *testing.T) {
	w := NewWhitelist()
	w.Append(map[string][]Hash{
		"com.example.B": {HashBytes([]byte("1"))},
		"com.example.A": {HashBytes([]byte("2")), HashBytes([]byte("3"))},
	})

	raw, err := w.MarshalJSON()
	require.NoError(t, err)

	out := NewWhitelist()
	require.NoError(t, out.UnmarshalJSON(raw))
	require.Equal(t, w.FQNs(), out.FQNs())
	for _, fqn := range w.FQNs() {
		require.Equal(t, w.Attachments(fqn), out.Attachments(fqn))
	}
}
