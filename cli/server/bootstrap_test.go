package server

import (
	"path/filepath"
	"testing"

	"github.com/nspcc-dev/network-map-service/pkg/config"
	"github.com/nspcc-dev/network-map-service/pkg/mapdoc"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenStoresMigratesLegacyData(t *testing.T) {
	dir := t.TempDir()

	legacy, err := openLegacyStores(dir)
	require.NoError(t, err)
	require.NoError(t, legacy.parameters.Put("abc", []byte("payload")))
	require.NoError(t, legacy.text.Put(mapdoc.CurrentParametersKey, "abc"))

	db, bolt, err := openStores(config.Config{DB: config.DB{Dir: dir}}, zap.NewNop(), nil)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	blob, err := bolt.parameters.Get("abc")
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), blob)

	value, err := bolt.text.Get(mapdoc.CurrentParametersKey)
	require.NoError(t, err)
	require.Equal(t, "abc", value)

	keys, err := legacy.parameters.GetKeys()
	require.NoError(t, err)
	require.Empty(t, keys)
}

func TestOpenStoresIdempotentOnSecondBoot(t *testing.T) {
	dir := t.TempDir()

	db1, _, err := openStores(config.Config{DB: config.DB{Dir: dir}}, zap.NewNop(), nil)
	require.NoError(t, err)
	require.NoError(t, db1.Close())

	db2, _, err := openStores(config.Config{DB: config.DB{Dir: dir}}, zap.NewNop(), nil)
	require.NoError(t, err)
	require.NoError(t, db2.Close())
}

func TestLoadOrCreateSignerPersistsAcrossCalls(t *testing.T) {
	dir := t.TempDir()

	first, err := loadOrCreateSigner(dir)
	require.NoError(t, err)

	second, err := loadOrCreateSigner(dir)
	require.NoError(t, err)
	require.Equal(t, first.Bytes(), second.Bytes())

	require.FileExists(t, filepath.Join(dir, signerKeyFile))
}
