package localstore

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Store 是基于 BadgerDB 的本地嵌入式键值存储，
// 用于访客积分与语言偏好这类设备级状态。
type Store struct {
	db *badger.DB
}

// Open 打开（必要时创建）指定目录下的持久化存储。
func Open(dir string) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "datas/store"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	opts := badger.DefaultOptions(dir).
		WithSyncWrites(true).
		WithNumVersionsToKeep(1).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory 打开仅驻内存的存储，不落盘，测试用。
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close 关闭底层数据库。
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get 读取键对应的值；键不存在时第二个返回值为 false。
func (s *Store) Get(key string) (string, bool, error) {
	if s == nil || s.db == nil {
		return "", false, fmt.Errorf("store not initialised")
	}
	k, err := normalizeKey(key)
	if err != nil {
		return "", false, err
	}

	var value string
	found := false
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(k))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = strings.TrimSpace(string(val))
			found = true
			return nil
		})
	})
	if err != nil {
		return "", false, fmt.Errorf("read key %q: %w", key, err)
	}
	return value, found, nil
}

// Put 同步写入键值，写穿到磁盘。
func (s *Store) Put(key, value string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store not initialised")
	}
	k, err := normalizeKey(key)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(k), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("write key %q: %w", key, err)
	}
	return nil
}

func normalizeKey(key string) (string, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return "", fmt.Errorf("invalid store key %q", key)
	}
	return key, nil
}
