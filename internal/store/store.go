// Package store is the on-disk image body cache, keyed by URL.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketImages = []byte("images")

// ImageCache stores downloaded image bodies in BoltDB.
type ImageCache struct {
	db     *bolt.DB
	logger *slog.Logger
}

// Open creates dir if needed and opens images.db inside it.
func Open(dir string, logger *slog.Logger) (*ImageCache, error) {
	if dir == "" {
		return nil, errors.New("cache dir is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	dbPath := filepath.Join(dir, "images.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketImages)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &ImageCache{db: db, logger: logger}, nil
}

func (c *ImageCache) Close() error {
	return c.db.Close()
}

// key hashes the normalized URL so arbitrary query strings make safe keys.
func key(url string) string {
	normalized := strings.TrimSpace(url)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Get returns a copy of the cached body for url. Read failures are logged
// and reported as a miss.
func (c *ImageCache) Get(url string) ([]byte, bool) {
	var data []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketImages)
		if b == nil {
			return errors.New("images bucket missing")
		}
		if v := b.Get([]byte(key(url))); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("image cache read failed", "url", url, "error", err)
		return nil, false
	}
	return data, data != nil
}

// Put stores body under url.
func (c *ImageCache) Put(url string, body []byte) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketImages)
		if b == nil {
			return errors.New("images bucket missing")
		}
		return b.Put([]byte(key(url)), body)
	})
}

func (c *ImageCache) Delete(url string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketImages)
		if b == nil {
			return errors.New("images bucket missing")
		}
		return b.Delete([]byte(key(url)))
	})
}

// Len counts stored entries.
func (c *ImageCache) Len() (int, error) {
	n := 0
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketImages)
		if b == nil {
			return errors.New("images bucket missing")
		}
		n = b.Stats().KeyN
		return nil
	})
	return n, err
}
