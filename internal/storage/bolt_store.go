package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	seenBucket   = "seen_urls"
	metaBucket   = "meta"
	savedAtKey   = "saved_at"
	seqKeyBytes  = 8
	timeValBytes = 8
)

// boltStore implements a Store backed by BoltDB. URLs are keyed by their
// position so cursor order matches insertion order.
type boltStore struct {
	db *bolt.DB
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(seenBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(metaBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	return &boltStore{db: db}, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Load returns all URLs in insertion order.
func (b *boltStore) Load() ([]string, error) {
	if b == nil || b.db == nil {
		return nil, nil
	}

	var urls []string
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(seenBucket))
		if bucket == nil {
			return fmt.Errorf("%w: seen bucket missing", ErrCorrupt)
		}
		return bucket.ForEach(func(k, v []byte) error {
			if len(k) != seqKeyBytes {
				return fmt.Errorf("%w: unexpected key length %d", ErrCorrupt, len(k))
			}
			urls = append(urls, string(v))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return urls, nil
}

// Save replaces the stored history in a single transaction.
func (b *boltStore) Save(urls []string) error {
	if b == nil || b.db == nil {
		return nil
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(seenBucket)); err != nil && err != bolt.ErrBucketNotFound {
			return fmt.Errorf("reset seen bucket: %w", err)
		}
		bucket, err := tx.CreateBucket([]byte(seenBucket))
		if err != nil {
			return fmt.Errorf("create seen bucket: %w", err)
		}
		for i, u := range urls {
			if err := bucket.Put(encodeSeq(uint64(i)), []byte(u)); err != nil {
				return fmt.Errorf("put url: %w", err)
			}
		}

		meta, err := tx.CreateBucketIfNotExists([]byte(metaBucket))
		if err != nil {
			return fmt.Errorf("init meta bucket: %w", err)
		}
		buf := make([]byte, timeValBytes)
		binary.BigEndian.PutUint64(buf, uint64(time.Now().Unix()))
		return meta.Put([]byte(savedAtKey), buf)
	})
}

// savedAt returns when the history was last written.
func (b *boltStore) savedAt() (time.Time, bool) {
	var ts time.Time
	var ok bool
	_ = b.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket([]byte(metaBucket))
		if meta == nil {
			return nil
		}
		ts, ok = decodeTime(meta.Get([]byte(savedAtKey)))
		return nil
	})
	return ts, ok
}

func encodeSeq(n uint64) []byte {
	buf := make([]byte, seqKeyBytes)
	binary.BigEndian.PutUint64(buf, n)
	return buf
}

// decodeTime decodes a unix timestamp from the stored byte slice.
func decodeTime(value []byte) (time.Time, bool) {
	if len(value) != timeValBytes {
		return time.Time{}, false
	}
	unix := int64(binary.BigEndian.Uint64(value))
	if unix <= 0 {
		return time.Time{}, false
	}
	return time.Unix(unix, 0), true
}
