package migration

import (
	"path/filepath"
	"testing"

	"github.com/nspcc-dev/network-map-service/pkg/metrics"
	"github.com/nspcc-dev/network-map-service/pkg/store"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func newTestBolt(t *testing.T) *store.BoltDB {
	t.Helper()
	db, err := store.OpenBoltDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRunMigratesBlobsAndClearsSource(t *testing.T) {
	fsDir := t.TempDir()
	srcBlob, err := store.NewFSBlobStore(fsDir, "signed-network-parameters")
	require.NoError(t, err)
	require.NoError(t, srcBlob.Put("abc", []byte("payload")))

	srcText, err := store.NewFSTextStore(fsDir, "etc")
	require.NoError(t, err)
	require.NoError(t, srcText.Put("current-parameters", "abc"))

	emptySrc := func(name string) *store.FSBlobStore {
		s, err := store.NewFSBlobStore(fsDir, name)
		require.NoError(t, err)
		return s
	}

	db := newTestBolt(t)
	destParams, err := store.NewBoltBlobStore(db, "signed-network-parameters")
	require.NoError(t, err)
	destUpdate, err := store.NewBoltBlobStore(db, "parameters-update")
	require.NoError(t, err)
	destMap, err := store.NewBoltBlobStore(db, "signed-network-map")
	require.NoError(t, err)
	destNode, err := store.NewBoltBlobStore(db, "signed-node-info")
	require.NoError(t, err)
	destText, err := store.NewBoltTextStore(db, "etc")
	require.NoError(t, err)

	err = Run(Config{
		NetworkParameters: BlobMigration{Name: "network-parameters", Source: srcBlob, Dest: destParams},
		ParametersUpdate:  BlobMigration{Name: "parameters-update", Source: emptySrc("parameters-update"), Dest: destUpdate},
		NetworkMap:        BlobMigration{Name: "network-map", Source: emptySrc("signed-network-map"), Dest: destMap},
		NodeInfo:          BlobMigration{Name: "node-info", Source: emptySrc("signed-node-info"), Dest: destNode},
		Text:              TextMigration{Source: srcText, Dest: destText},
	})
	require.NoError(t, err)

	blob, err := destParams.Get("abc")
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), blob)

	value, err := destText.Get("current-parameters")
	require.NoError(t, err)
	require.Equal(t, "abc", value)

	keys, err := srcBlob.GetKeys()
	require.NoError(t, err)
	require.Empty(t, keys, "source must be cleared after a successful migration")

	textKeys, err := srcText.Keys()
	require.NoError(t, err)
	require.Empty(t, textKeys)
}

func TestRunIsIdempotentOnEmptySource(t *testing.T) {
	fsDir := t.TempDir()
	empty := func(name string) *store.FSBlobStore {
		s, err := store.NewFSBlobStore(fsDir, name)
		require.NoError(t, err)
		return s
	}
	emptyText, err := store.NewFSTextStore(fsDir, "etc")
	require.NoError(t, err)

	db := newTestBolt(t)
	destParams, err := store.NewBoltBlobStore(db, "signed-network-parameters")
	require.NoError(t, err)
	destUpdate, err := store.NewBoltBlobStore(db, "parameters-update")
	require.NoError(t, err)
	destMap, err := store.NewBoltBlobStore(db, "signed-network-map")
	require.NoError(t, err)
	destNode, err := store.NewBoltBlobStore(db, "signed-node-info")
	require.NoError(t, err)
	destText, err := store.NewBoltTextStore(db, "etc")
	require.NoError(t, err)

	cfg := Config{
		NetworkParameters: BlobMigration{Name: "network-parameters", Source: empty("signed-network-parameters"), Dest: destParams},
		ParametersUpdate:  BlobMigration{Name: "parameters-update", Source: empty("parameters-update"), Dest: destUpdate},
		NetworkMap:        BlobMigration{Name: "network-map", Source: empty("signed-network-map"), Dest: destMap},
		NodeInfo:          BlobMigration{Name: "node-info", Source: empty("signed-node-info"), Dest: destNode},
		Text:              TextMigration{Source: emptyText, Dest: destText},
	}

	require.NoError(t, Run(cfg))
	require.NoError(t, Run(cfg))
}

func TestRunSetsMigrationStatusMetricOnSuccess(t *testing.T) {
	fsDir := t.TempDir()
	empty := func(name string) *store.FSBlobStore {
		s, err := store.NewFSBlobStore(fsDir, name)
		require.NoError(t, err)
		return s
	}
	emptyText, err := store.NewFSTextStore(fsDir, "etc")
	require.NoError(t, err)

	db := newTestBolt(t)
	destParams, err := store.NewBoltBlobStore(db, "signed-network-parameters")
	require.NoError(t, err)
	destUpdate, err := store.NewBoltBlobStore(db, "parameters-update")
	require.NoError(t, err)
	destMap, err := store.NewBoltBlobStore(db, "signed-network-map")
	require.NoError(t, err)
	destNode, err := store.NewBoltBlobStore(db, "signed-node-info")
	require.NoError(t, err)
	destText, err := store.NewBoltTextStore(db, "etc")
	require.NoError(t, err)

	collectors, _ := metrics.NewCollectors()
	require.Equal(t, float64(0), testutil.ToFloat64(collectors.MigrationStatus))

	err = Run(Config{
		NetworkParameters: BlobMigration{Name: "network-parameters", Source: empty("signed-network-parameters"), Dest: destParams},
		ParametersUpdate:  BlobMigration{Name: "parameters-update", Source: empty("parameters-update"), Dest: destUpdate},
		NetworkMap:        BlobMigration{Name: "network-map", Source: empty("signed-network-map"), Dest: destMap},
		NodeInfo:          BlobMigration{Name: "node-info", Source: empty("signed-node-info"), Dest: destNode},
		Text:              TextMigration{Source: emptyText, Dest: destText},
		Metrics:           collectors,
	})
	require.NoError(t, err)
	require.Equal(t, float64(1), testutil.ToFloat64(collectors.MigrationStatus))
}
