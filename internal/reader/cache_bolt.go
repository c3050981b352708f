package reader

import (
	"fmt"
	"log"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BoltCache is a LocalCache persisted to a bolt file, so an unflushed
// position survives a process restart. One bucket per user, book id as
// key. All operations are failure-silent: a broken cache file turns
// every read into a miss and every write into a no-op, which the session
// treats as pure-remote mode.
type BoltCache struct {
	db *bolt.DB
}

// NewBoltCache opens (or creates) the cache file at path.
func NewBoltCache(path string) (*BoltCache, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open position cache: %w", err)
	}
	return &BoltCache{db: db}, nil
}

func (c *BoltCache) Get(userID, bookID string) (string, bool) {
	var location string
	var found bool
	err := c.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(userID))
		if bucket == nil {
			return nil
		}
		if value := bucket.Get([]byte(bookID)); value != nil {
			location = string(value)
			found = true
		}
		return nil
	})
	if err != nil {
		log.Printf("position cache read failed: %v", err)
		return "", false
	}
	return location, found
}

func (c *BoltCache) Set(userID, bookID, location string) {
	err := c.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(userID))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(bookID), []byte(location))
	})
	if err != nil {
		log.Printf("position cache write failed: %v", err)
	}
}

func (c *BoltCache) Clear(userID, bookID string) {
	err := c.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(userID))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(bookID))
	})
	if err != nil {
		log.Printf("position cache clear failed: %v", err)
	}
}

func (c *BoltCache) Close() error {
	return c.db.Close()
}
