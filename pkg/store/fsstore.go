package store

import (
	"encoding/base64"
	"os"
	"path/filepath"
)

// fsCollection is a single directory scoped to one named collection, mirroring
// the legacy on-disk layout (spec §6: "Filesystem (legacy, migrated at boot):
// mirrored directory layout under the configured db directory"). It plays the
// same role _pkg.dev/database/table.go's prefix-scoped Table does for a
// key/value engine, adapted here to a directory-per-collection, file-per-key
// filesystem layout instead of a single prefixed keyspace.
type fsCollection struct {
	dir string
}

func newFSCollection(root, collection string) (*fsCollection, error) {
	dir := filepath.Join(root, collection)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	return &fsCollection{dir: dir}, nil
}

// keyToFilename escapes an arbitrary store key into a safe filename: store
// keys are either hex hashes or short fixed literals ("current-parameters"),
// but base64 keeps this collection safe against any future key shape.
func keyToFilename(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

func filenameToKey(name string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(name)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *fsCollection) path(key string) string {
	return filepath.Join(c.dir, keyToFilename(key))
}

func (c *fsCollection) put(key string, data []byte) error {
	return os.WriteFile(c.path(key), data, 0o640)
}

func (c *fsCollection) get(key string) ([]byte, error) {
	data, err := os.ReadFile(c.path(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (c *fsCollection) getOrNil(key string) ([]byte, error) {
	data, err := c.get(key)
	if err == ErrNotFound {
		return nil, nil
	}
	return data, err
}

func (c *fsCollection) delete(key string) error {
	err := os.Remove(c.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (c *fsCollection) keys() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		key, err := filenameToKey(e.Name())
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (c *fsCollection) clear() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// FSBlobStore is the filesystem-backed BlobStore: one directory per
// collection, one file per key, named by its base64-escaped key.
type FSBlobStore struct {
	col *fsCollection
}

// NewFSBlobStore opens (creating if absent) a filesystem blob collection.
func NewFSBlobStore(root, collection string) (*FSBlobStore, error) {
	col, err := newFSCollection(root, collection)
	if err != nil {
		return nil, err
	}
	return &FSBlobStore{col: col}, nil
}

func (s *FSBlobStore) Put(key string, blob []byte) error      { return s.col.put(key, blob) }
func (s *FSBlobStore) Get(key string) ([]byte, error)         { return s.col.get(key) }
func (s *FSBlobStore) GetOrNil(key string) ([]byte, error)    { return s.col.getOrNil(key) }
func (s *FSBlobStore) Delete(key string) error                { return s.col.delete(key) }
func (s *FSBlobStore) GetKeys() ([]string, error)             { return s.col.keys() }

// GetAll returns every key/blob pair currently stored.
func (s *FSBlobStore) GetAll() (map[string][]byte, error) {
	keys, err := s.col.keys()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		blob, err := s.col.get(k)
		if err != nil {
			return nil, err
		}
		out[k] = blob
	}
	return out, nil
}

// FSTextStore is the filesystem-backed TextStore: one file per key holding
// its raw string value.
type FSTextStore struct {
	col *fsCollection
}

// NewFSTextStore opens (creating if absent) a filesystem text collection.
func NewFSTextStore(root, collection string) (*FSTextStore, error) {
	col, err := newFSCollection(root, collection)
	if err != nil {
		return nil, err
	}
	return &FSTextStore{col: col}, nil
}

func (s *FSTextStore) Put(key, value string) error { return s.col.put(key, []byte(value)) }

func (s *FSTextStore) Get(key string) (string, error) {
	data, err := s.col.get(key)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *FSTextStore) GetOrDefault(key, def string) (string, error) {
	v, err := s.Get(key)
	if err == ErrNotFound {
		return def, nil
	}
	return v, err
}

func (s *FSTextStore) Delete(key string) error { return s.col.delete(key) }
func (s *FSTextStore) Clear() error             { return s.col.clear() }

// Keys returns every key in this text collection, used by the migration
// orchestrator to enumerate the legacy "etc" collection wholesale.
func (s *FSTextStore) Keys() ([]string, error) { return s.col.keys() }
