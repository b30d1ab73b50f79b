package cache

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	bolt "go.etcd.io/bbolt"
)

// backing is the optional durable store behind a Cache, matching the
// teacher anonymizer's PersistentCache shape (cache.go's bboltCache):
// a minimal get/set/close interface the in-memory layer writes through to
// and falls back to on a cold miss.
type backing interface {
	get(key string) (Value, time.Time, bool)
	set(key string, value Value, storedAt time.Time)
	close() error
}

const bucketName = "guard_cache"

type bboltBacking struct {
	db *bolt.DB
}

type persistedEntry struct {
	Value    Value     `json:"value"`
	StoredAt time.Time `json:"stored_at"`
}

// newBboltBacking opens (or creates) a bbolt database at path, mirroring
// the teacher's newBboltCache — same open/bucket-ensure shape, repurposed
// to persist translation cache entries instead of PII value tokens.
func newBboltBacking(path string) (backing, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bbolt cache %q: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	}); err != nil {
		db.Close() //nolint:errcheck // best-effort close on init failure
		return nil, fmt.Errorf("create bbolt bucket: %w", err)
	}
	log.Printf("[CACHE] persistent cache opened at %s", path)
	return &bboltBacking{db: db}, nil
}

func (b *bboltBacking) get(key string) (Value, time.Time, bool) {
	var pe persistedEntry
	found := false
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(bucketName))
		if bkt == nil {
			return nil
		}
		raw := bkt.Get([]byte(key))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &pe); err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		log.Printf("[CACHE] bbolt get error: %v", err)
		return Value{}, time.Time{}, false
	}
	return pe.Value, pe.StoredAt, found
}

func (b *bboltBacking) set(key string, value Value, storedAt time.Time) {
	raw, err := json.Marshal(persistedEntry{Value: value, StoredAt: storedAt})
	if err != nil {
		log.Printf("[CACHE] marshal error: %v", err)
		return
	}
	if err := b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(bucketName))
		if bkt == nil {
			return fmt.Errorf("bucket %q not found", bucketName)
		}
		return bkt.Put([]byte(key), raw)
	}); err != nil {
		log.Printf("[CACHE] bbolt set error: %v", err)
	}
}

func (b *bboltBacking) close() error { return b.db.Close() }

// WithPersistence opens a bbolt-backed durable store at path and returns a
// Cache that writes every Set through to it and, on a cold in-memory miss,
// reads through to disk and re-warms the in-memory LRU — so the cache
// survives a guard restart without operators losing their hit rate.
// Returns the plain in-memory Cache, with persistence disabled, if path is
// empty (the default — persistence is opt-in per config.Config.CachePersistPath).
func WithPersistence(maxSize int, ttl time.Duration, path string) (*Cache, error) {
	c := New(maxSize, ttl)
	if path == "" {
		return c, nil
	}
	b, err := newBboltBacking(path)
	if err != nil {
		return nil, err
	}
	c.backing = b
	return c, nil
}

// Close releases the durable backing store, if one is configured.
func (c *Cache) Close() error {
	c.mu.Lock()
	b := c.backing
	c.mu.Unlock()
	if b == nil {
		return nil
	}
	return b.close()
}
