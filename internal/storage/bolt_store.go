package storage

import (
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

const stateBucket = "state"

// boltStore implements a Store backed by BoltDB. The slot is one key in the state bucket.
type boltStore struct {
	db  *bolt.DB
	key []byte
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: opts.OpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(stateBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	return &boltStore{db: db, key: []byte(opts.Slot)}, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// LastSeen returns the stored URL, if any.
func (b *boltStore) LastSeen() (string, bool, error) {
	var (
		url string
		ok  bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(stateBucket))
		if bucket == nil {
			return fmt.Errorf("state bucket missing")
		}
		// Bolt values are only valid inside the transaction.
		if value := bucket.Get(b.key); len(value) > 0 {
			url, ok = string(value), true
		}
		return nil
	})
	if err != nil {
		return "", false, ioError(TypeBBolt, "read", err)
	}
	return url, ok, nil
}

// SaveLastSeen overwrites the slot in a single transaction.
func (b *boltStore) SaveLastSeen(url string) error {
	url, err := cleanURL(url)
	if err != nil {
		return err
	}
	err = b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(stateBucket))
		if bucket == nil {
			return fmt.Errorf("state bucket missing")
		}
		return bucket.Put(b.key, []byte(url))
	})
	return ioError(TypeBBolt, "write", err)
}
