package server

import (
	"fmt"
	"path/filepath"

	"github.com/nspcc-dev/network-map-service/pkg/config"
	"github.com/nspcc-dev/network-map-service/pkg/mapdoc"
	"github.com/nspcc-dev/network-map-service/pkg/metrics"
	"github.com/nspcc-dev/network-map-service/pkg/migration"
	"github.com/nspcc-dev/network-map-service/pkg/store"
	"go.uber.org/zap"
)

// boltFileName is the embedded database's file, placed inside the
// configured db.dir alongside (and ultimately replacing) the legacy
// filesystem collections. This embedded engine is always used:
// cfg.MongoDB.ConnectionString is not read, and the out-of-scope
// document-database bootstrap is never actually dialed (see DESIGN.md).
const boltFileName = "network-map.db"

// legacyStores bundles the five filesystem-backed collections that existed
// before a bbolt database was introduced (spec §6 "Persisted layout",
// "Filesystem (legacy, migrated at boot)").
type legacyStores struct {
	parameters       *store.FSBlobStore
	parametersUpdate *store.FSBlobStore
	networkMap       *store.FSBlobStore
	nodeInfo         *store.FSBlobStore
	text             *store.FSTextStore
}

// boltStores bundles the five bbolt-backed collections these are migrated
// into, and that the processor ultimately reads and writes.
type boltStores struct {
	parameters       *store.BoltBlobStore
	parametersUpdate *store.BoltBlobStore
	networkMap       *store.BoltBlobStore
	nodeInfo         *store.BoltBlobStore
	text             *store.BoltTextStore
}

func openLegacyStores(dbDir string) (*legacyStores, error) {
	open := func(collection string) (*store.FSBlobStore, error) {
		return store.NewFSBlobStore(dbDir, collection)
	}
	params, err := open(mapdoc.CollectionSignedNetworkParameters)
	if err != nil {
		return nil, err
	}
	paramsUpdate, err := open(mapdoc.CollectionParametersUpdate)
	if err != nil {
		return nil, err
	}
	netMap, err := open(mapdoc.CollectionSignedNetworkMap)
	if err != nil {
		return nil, err
	}
	nodeInfo, err := open(mapdoc.CollectionSignedNodeInfo)
	if err != nil {
		return nil, err
	}
	text, err := store.NewFSTextStore(dbDir, mapdoc.CollectionText)
	if err != nil {
		return nil, err
	}
	return &legacyStores{
		parameters:       params,
		parametersUpdate: paramsUpdate,
		networkMap:       netMap,
		nodeInfo:         nodeInfo,
		text:             text,
	}, nil
}

func openBoltStores(dbDir string) (*store.BoltDB, *boltStores, error) {
	db, err := store.OpenBoltDB(filepath.Join(dbDir, boltFileName))
	if err != nil {
		return nil, nil, err
	}
	params, err := store.NewBoltBlobStore(db, mapdoc.CollectionSignedNetworkParameters)
	if err != nil {
		return nil, nil, err
	}
	paramsUpdate, err := store.NewBoltBlobStore(db, mapdoc.CollectionParametersUpdate)
	if err != nil {
		return nil, nil, err
	}
	netMap, err := store.NewBoltBlobStore(db, mapdoc.CollectionSignedNetworkMap)
	if err != nil {
		return nil, nil, err
	}
	nodeInfo, err := store.NewBoltBlobStore(db, mapdoc.CollectionSignedNodeInfo)
	if err != nil {
		return nil, nil, err
	}
	text, err := store.NewBoltTextStore(db, mapdoc.CollectionText)
	if err != nil {
		return nil, nil, err
	}
	return db, &boltStores{
		parameters:       params,
		parametersUpdate: paramsUpdate,
		networkMap:       netMap,
		nodeInfo:         nodeInfo,
		text:             text,
	}, nil
}

// openStores opens both backends and runs the boot-time migration (spec
// §4.G) from the legacy filesystem collections into the bbolt database,
// returning only the (now-authoritative) bolt-backed stores. collectors may
// be nil, disabling the migration-status metric.
func openStores(cfg config.Config, log *zap.Logger, collectors *metrics.Collectors) (*store.BoltDB, *boltStores, error) {
	legacy, err := openLegacyStores(cfg.DB.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("open legacy stores: %w", err)
	}
	db, bolt, err := openBoltStores(cfg.DB.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("open bolt stores: %w", err)
	}

	err = migration.Run(migration.Config{
		NetworkParameters: migration.BlobMigration{Name: mapdoc.CollectionSignedNetworkParameters, Source: legacy.parameters, Dest: bolt.parameters},
		ParametersUpdate:  migration.BlobMigration{Name: mapdoc.CollectionParametersUpdate, Source: legacy.parametersUpdate, Dest: bolt.parametersUpdate},
		NetworkMap:        migration.BlobMigration{Name: mapdoc.CollectionSignedNetworkMap, Source: legacy.networkMap, Dest: bolt.networkMap},
		NodeInfo:          migration.BlobMigration{Name: mapdoc.CollectionSignedNodeInfo, Source: legacy.nodeInfo, Dest: bolt.nodeInfo},
		Text:              migration.TextMigration{Source: legacy.text, Dest: bolt.text},
		Metrics:           collectors,
		Logger:            log,
	})
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate legacy stores: %w", err)
	}
	return db, bolt, nil
}
