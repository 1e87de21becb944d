// bolt.go — встроенное хранилище на bbolt (один файл БД, одна bucket).
package kv

import (
	"bytes"
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("weldregistry")

// BoltStore — хранилище в файле bbolt.
type BoltStore struct {
	db *bolt.DB
}

// NewBolt открывает (или создаёт) файл БД bbolt.
func NewBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия bbolt %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка создания bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (b *BoltStore) Put(_ context.Context, key string, value []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(key), value)
	})
}

func (b *BoltStore) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(boltBucket).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		// значение валидно только внутри транзакции
		out = cloneBytes(v)
		return nil
	})
	return out, err
}

func (b *BoltStore) Delete(_ context.Context, key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Delete([]byte(key))
	})
}

func (b *BoltStore) ListKeysWithPrefix(_ context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	p := []byte(prefix)
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(boltBucket).Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys, err
}

func (b *BoltStore) Close() error {
	return b.db.Close()
}
