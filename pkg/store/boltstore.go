package store

import (
	"fmt"

	bbolt "go.etcd.io/bbolt"
)

// BoltDB wraps a single bbolt.DB shared by every collection opened against
// it: many bucket-scoped stores share one underlying *bbolt.DB.
type BoltDB struct {
	db *bbolt.DB
}

// OpenBoltDB opens (creating if absent) a bbolt database file.
func OpenBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0o640, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open bolt db: %w", err)
	}
	return &BoltDB{db: db}, nil
}

// Close releases the underlying file.
func (b *BoltDB) Close() error {
	return b.db.Close()
}

func (b *BoltDB) bucket(name string) ([]byte, error) {
	bucket := []byte(name)
	err := b.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	return bucket, err
}

// BoltBlobStore is the bbolt-backed BlobStore: every collection is a bucket,
// every key a value within it.
type BoltBlobStore struct {
	db     *BoltDB
	bucket []byte
}

// NewBoltBlobStore opens (creating if absent) a bucket-scoped blob collection.
func NewBoltBlobStore(db *BoltDB, collection string) (*BoltBlobStore, error) {
	bucket, err := db.bucket(collection)
	if err != nil {
		return nil, err
	}
	return &BoltBlobStore{db: db, bucket: bucket}, nil
}

func (s *BoltBlobStore) Put(key string, blob []byte) error {
	return s.db.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), blob)
	})
}

func (s *BoltBlobStore) Get(key string) ([]byte, error) {
	blob, err := s.GetOrNil(key)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, ErrNotFound
	}
	return blob, nil
}

func (s *BoltBlobStore) GetOrNil(key string) ([]byte, error) {
	var out []byte
	err := s.db.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(key))
		if v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	return out, err
}

func (s *BoltBlobStore) Delete(key string) error {
	return s.db.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(key))
	})
}

func (s *BoltBlobStore) GetAll() (map[string][]byte, error) {
	out := make(map[string][]byte)
	err := s.db.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(k, v []byte) error {
			out[string(k)] = append([]byte(nil), v...)
			return nil
		})
	})
	return out, err
}

func (s *BoltBlobStore) GetKeys() ([]string, error) {
	var out []string
	err := s.db.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(k, _ []byte) error {
			out = append(out, string(k))
			return nil
		})
	})
	return out, err
}

// BoltTextStore is the bbolt-backed TextStore.
type BoltTextStore struct {
	db     *BoltDB
	bucket []byte
}

// NewBoltTextStore opens (creating if absent) a bucket-scoped text collection.
func NewBoltTextStore(db *BoltDB, collection string) (*BoltTextStore, error) {
	bucket, err := db.bucket(collection)
	if err != nil {
		return nil, err
	}
	return &BoltTextStore{db: db, bucket: bucket}, nil
}

func (s *BoltTextStore) Put(key, value string) error {
	return s.db.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), []byte(value))
	})
}

func (s *BoltTextStore) Get(key string) (string, error) {
	var (
		out   string
		found bool
	)
	err := s.db.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(key))
		if v != nil {
			out, found = string(v), true
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrNotFound
	}
	return out, nil
}

func (s *BoltTextStore) GetOrDefault(key, def string) (string, error) {
	v, err := s.Get(key)
	if err == ErrNotFound {
		return def, nil
	}
	return v, err
}

func (s *BoltTextStore) Delete(key string) error {
	return s.db.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(key))
	})
}

func (s *BoltTextStore) Clear() error {
	return s.db.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(s.bucket); err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(s.bucket)
		return err
	})
}

// Keys returns every key in this text collection.
func (s *BoltTextStore) Keys() ([]string, error) {
	var out []string
	err := s.db.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(k, _ []byte) error {
			out = append(out, string(k))
			return nil
		})
	})
	return out, err
}
