// Package migration implements the Migration Orchestrator: a one-shot,
// parallel, idempotent copy of every named collection from the
// filesystem-backed stores to the database-backed (bbolt) stores at
// boot, fully completed before any consumer of the storage layer starts.
package migration

import (
	"fmt"
	"sync"

	"github.com/nspcc-dev/network-map-service/pkg/metrics"
	"github.com/nspcc-dev/network-map-service/pkg/store"
	"go.uber.org/zap"
)

// BlobMigration pairs a legacy filesystem collection with its
// database-backed replacement.
type BlobMigration struct {
	Name   string
	Source *store.FSBlobStore
	Dest   *store.BoltBlobStore
}

// TextMigration pairs the legacy filesystem text collection with its
// database-backed replacement.
type TextMigration struct {
	Source *store.FSTextStore
	Dest   *store.BoltTextStore
}

// Config lists every collection migrated at boot (spec §4.G): the five
// named `{network-parameters, parameters-update, network-map, node-info,
// text}` collections of spec §6's persisted layout.
type Config struct {
	NetworkParameters BlobMigration
	ParametersUpdate  BlobMigration
	NetworkMap        BlobMigration
	NodeInfo          BlobMigration
	Text              TextMigration

	// Metrics is optional; nil disables metric updates.
	Metrics *metrics.Collectors

	Logger *zap.Logger
}

// Run executes all five migrations in parallel; setup completes only when
// all succeed, and failure of any one fails the whole call (spec §4.G).
// Running again against an already-migrated (now empty) source is a no-op,
// since each step only copies what GetAll/Keys still finds in its source.
func Run(cfg Config) error {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	blobs := []BlobMigration{cfg.NetworkParameters, cfg.ParametersUpdate, cfg.NetworkMap, cfg.NodeInfo}
	errs := make([]error, len(blobs)+1)

	var wg sync.WaitGroup
	wg.Add(len(blobs) + 1)
	for i, m := range blobs {
		i, m := i, m
		go func() {
			defer wg.Done()
			errs[i] = migrateBlob(m, log)
		}()
	}
	go func() {
		defer wg.Done()
		errs[len(blobs)] = migrateText(cfg.Text, log)
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	if cfg.Metrics != nil {
		cfg.Metrics.MigrationStatus.Set(1)
	}
	return nil
}

func migrateBlob(m BlobMigration, log *zap.Logger) error {
	all, err := m.Source.GetAll()
	if err != nil {
		return fmt.Errorf("migration: read %s from filesystem store: %w", m.Name, err)
	}
	for key, blob := range all {
		if err := m.Dest.Put(key, blob); err != nil {
			return fmt.Errorf("migration: write %s/%s to database store: %w", m.Name, key, err)
		}
	}
	for key := range all {
		if err := m.Source.Delete(key); err != nil {
			return fmt.Errorf("migration: clear %s/%s from filesystem store: %w", m.Name, key, err)
		}
	}
	if len(all) > 0 {
		log.Info("migrated collection", zap.String("collection", m.Name), zap.Int("entries", len(all)))
	}
	return nil
}

func migrateText(m TextMigration, log *zap.Logger) error {
	keys, err := m.Source.Keys()
	if err != nil {
		return fmt.Errorf("migration: read text keys from filesystem store: %w", err)
	}
	for _, key := range keys {
		value, err := m.Source.Get(key)
		if err != nil {
			return fmt.Errorf("migration: read text/%s from filesystem store: %w", key, err)
		}
		if err := m.Dest.Put(key, value); err != nil {
			return fmt.Errorf("migration: write text/%s to database store: %w", key, err)
		}
	}
	if err := m.Source.Clear(); err != nil {
		return fmt.Errorf("migration: clear filesystem text store: %w", err)
	}
	if len(keys) > 0 {
		log.Info("migrated collection", zap.String("collection", "text"), zap.Int("entries", len(keys)))
	}
	return nil
}
