package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goodtune/countdown/internal/storage"
	"go.etcd.io/bbolt"
)

const bucketDeadlines = "deadlines"

// Store implements storage.DeadlineStore using bbolt.
type Store struct {
	db *bbolt.DB
}

var _ storage.DeadlineStore = (*Store)(nil)

// Open opens a BoltDB-backed store.
func Open(path string) (*Store, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketDeadlines)); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucketDeadlines, err)
		}
		return nil
	})
}

// Close closes the underlying store database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts the record stored under identity.
func (s *Store) Save(_ context.Context, identity string, record storage.Record) error {
	if err := storage.CheckIdentity(identity); err != nil {
		return err
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal deadline: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketDeadlines))
		if err := bucket.Put([]byte(identity), payload); err != nil {
			return fmt.Errorf("save deadline: %w", err)
		}
		return nil
	})
}

// Load returns the record stored under identity.
func (s *Store) Load(_ context.Context, identity string) (*storage.Record, error) {
	if err := storage.CheckIdentity(identity); err != nil {
		return nil, err
	}

	var record storage.Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketDeadlines)).Get([]byte(identity))
		if data == nil {
			return storage.ErrNotFound
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Delete removes the record stored under identity.
func (s *Store) Delete(_ context.Context, identity string) error {
	if err := storage.CheckIdentity(identity); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketDeadlines)).Delete([]byte(identity))
	})
}
