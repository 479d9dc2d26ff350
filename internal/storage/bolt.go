package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var sessionBucket = []byte("session")

// BoltStorage persists records in a single-file bbolt database
type BoltStorage struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the database at path
func OpenBolt(path string) (*BoltStorage, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create session bucket: %w", err)
	}

	return &BoltStorage{db: db}, nil
}

func (s *BoltStorage) MultiGet(ctx context.Context, keys ...string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(keys))
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionBucket)
		for _, k := range keys {
			if v := b.Get([]byte(k)); v != nil {
				out[k] = string(v)
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.wrap("read", err)
	}
	return out, nil
}

func (s *BoltStorage) MultiSet(ctx context.Context, pairs map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionBucket)
		for k, v := range pairs {
			if err := b.Put([]byte(k), []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
	return s.wrap("write", err)
}

func (s *BoltStorage) MultiRemove(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionBucket)
		for _, k := range keys {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
	return s.wrap("remove", err)
}

func (s *BoltStorage) Close() error {
	return s.db.Close()
}

func (s *BoltStorage) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, bolt.ErrDatabaseNotOpen) {
		return ErrClosed
	}
	return fmt.Errorf("failed to %s storage: %w", op, err)
}
