package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/rohankatakam/labelpr/internal/errors"
	"github.com/rohankatakam/labelpr/internal/models"
)

const (
	parentsBucket = "commit_parents"
	valueFormat   = byte('1')
)

// ParentCache stores commit -> parents in a bbolt file so repeated runs skip
// re-reading history git has already given us. Values are a format byte
// followed by the parent ids joined by a single space.
type ParentCache struct {
	db *bolt.DB
}

// OpenParentCache opens (creating if needed) the cache at path
func OpenParentCache(path string) (*ParentCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.StorageErrorf(err, "create cache directory for %s", path)
	}

	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, errors.StorageErrorf(err, "open parent cache %s", path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(parentsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.StorageErrorf(err, "init parent cache %s", path)
	}

	return &ParentCache{db: db}, nil
}

// Lookup returns the cached parents of id
func (c *ParentCache) Lookup(id models.CommitID) ([]models.CommitID, bool, error) {
	var parents []models.CommitID
	var found bool
	err := c.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(parentsBucket))
		if bucket == nil {
			return bolt.ErrBucketNotFound
		}
		data := bucket.Get([]byte(id))
		if data == nil {
			return nil
		}
		parents = decodeParents(data)
		found = parents != nil
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("lookup %s: %w", id, err)
	}
	return parents, found, nil
}

// StoreBatch writes nodes in a single transaction
func (c *ParentCache) StoreBatch(nodes []models.CommitNode) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(parentsBucket))
		if err != nil {
			return err
		}
		for _, node := range nodes {
			if err := bucket.Put([]byte(node.ID), encodeParents(node.Parents)); err != nil {
				return fmt.Errorf("store %s: %w", node.ID, err)
			}
		}
		return nil
	})
}

// Len returns the number of cached commits
func (c *ParentCache) Len() (int, error) {
	var n int
	err := c.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(parentsBucket))
		if bucket == nil {
			return nil
		}
		n = bucket.Stats().KeyN
		return nil
	})
	return n, err
}

// Close releases the database file
func (c *ParentCache) Close() error {
	return c.db.Close()
}

func encodeParents(parents []models.CommitID) []byte {
	parts := make([]string, len(parents))
	for i, p := range parents {
		parts[i] = string(p)
	}
	// the leading byte keeps root entries non-empty
	return append([]byte{valueFormat}, strings.Join(parts, " ")...)
}

func decodeParents(data []byte) []models.CommitID {
	if len(data) == 0 || data[0] != valueFormat {
		return nil
	}
	fields := strings.Fields(string(data[1:]))
	parents := make([]models.CommitID, len(fields))
	for i, f := range fields {
		parents[i] = models.CommitID(f)
	}
	return parents
}
