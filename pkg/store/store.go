// Package store persists trend results, adapted from the teacher's
// bbolt-backed cell-location cache (initializeBuckets/Get/Put over a
// single embedded database file, with the JSON-blob-per-key convention).
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// ResultBucket is the bbolt bucket holding one JSON-encoded Result per
// series key.
const ResultBucket = "trend_results"

// MetadataBucket holds store-level bookkeeping (last-write timestamps).
const MetadataBucket = "metadata"

// Record is one persisted analysis: an arbitrary result payload (a
// trend.Result, a rolling.WindowResult table, or a regional.Result)
// tagged with the series key and the time it was stored.
type Record struct {
	Key       string          `json:"key"`
	StoredAt  time.Time       `json:"stored_at"`
	Payload   json.RawMessage `json:"payload"`
}

// Store is a bbolt-backed result store. Safe for concurrent use.
type Store struct {
	db *bolt.DB
	mu sync.RWMutex
}

// Open opens (creating if absent) a bbolt database at path and ensures
// its buckets exist.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.initBuckets(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initBuckets() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, b := range []string{ResultBucket, MetadataBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(b)); err != nil {
				return fmt.Errorf("store: create bucket %s: %w", b, err)
			}
		}
		return nil
	})
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Put persists payload under key, overwriting any existing record.
func (s *Store) Put(key string, payload interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("store: marshal payload: %w", err)
	}
	record := Record{Key: key, StoredAt: time.Now(), Payload: raw}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("store: marshal record: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(ResultBucket)).Put([]byte(key), data)
	})
}

// Get retrieves the record stored under key, (nil, nil) on a miss.
func (s *Store) Get(key string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var record *Record
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(ResultBucket)).Get([]byte(key))
		if data == nil {
			return nil
		}
		record = &Record{}
		return json.Unmarshal(data, record)
	})
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", key, err)
	}
	return record, nil
}

// Keys lists every key currently stored.
func (s *Store) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(ResultBucket)).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

// Delete removes the record stored under key.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(ResultBucket)).Delete([]byte(key))
	})
}
