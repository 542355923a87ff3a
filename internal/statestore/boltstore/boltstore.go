// Package boltstore implements statestore.KV against an embedded
// go.etcd.io/bbolt database file. It requires no external service and
// is the default job-state backend for local runs and tests, typically
// paired with broker/localbus for the pub/sub transport. This mirrors
// the teacher's own driver-selectable persistence layer (sqlite vs
// postgres via db.New), applied here to a KV store instead of a
// relational schema.
package boltstore

import (
	"context"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("job_state")

// KV adapts a *bolt.DB to statestore.KV.
type KV struct {
	db *bolt.DB
}

// Open opens (creating if necessary) a bbolt database at path and
// ensures the job_state bucket exists.
func Open(path string) (*KV, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("boltstore: create bucket: %w", err)
	}
	return &KV{db: db}, nil
}

func (k *KV) Set(_ context.Context, key string, value []byte) error {
	return k.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), value)
	})
}

func (k *KV) Get(_ context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := k.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(key))
		if v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("boltstore: get %s: %w", key, err)
	}
	return value, value != nil, nil
}

// CreateIfAbsent checks-then-puts inside a single read-write
// transaction, giving it the same atomicity guarantee as Redis SETNX.
func (k *KV) CreateIfAbsent(_ context.Context, key string, value []byte) (bool, error) {
	created := false
	err := k.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b.Get([]byte(key)) != nil {
			return nil
		}
		created = true
		return b.Put([]byte(key), value)
	})
	if err != nil {
		return false, fmt.Errorf("boltstore: create-if-absent %s: %w", key, err)
	}
	return created, nil
}

func (k *KV) Close() error {
	return k.db.Close()
}
