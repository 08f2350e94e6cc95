// Package secretstore 封装 Badger 作为静态加密的本地密钥存储。
// 加密由 Badger 自身的 value log 与 key registry 完成，本包不做额外加密。
package secretstore

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
)

// 各二进制共用的固定键名
const (
	KeyWalletPrivateKey = "wallet/private_key"
	KeyFunderAddress    = "wallet/funder_address"
)

var errNotOpened = errors.New("secretstore: not opened")

// OpenOptions 打开存储的参数
type OpenOptions struct {
	Path          string
	EncryptionKey []byte // 32 字节；为 nil 时明文存储（不推荐）
	ReadOnly      bool
}

// Store 加密 KV 存储
type Store struct {
	db *badger.DB
}

// Open 打开（必要时创建）存储
func Open(opts OpenOptions) (*Store, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, errors.New("secretstore: path is required")
	}
	bopts := badger.DefaultOptions(opts.Path).
		WithLogger(nil).
		WithReadOnly(opts.ReadOnly)
	if len(opts.EncryptionKey) > 0 {
		// 启用加密时 Badger 要求配置索引缓存
		bopts = bopts.
			WithEncryptionKey(opts.EncryptionKey).
			WithIndexCacheSize(100 << 20)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close 关闭存储，nil 接收者安全
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) normKey(key string) ([]byte, error) {
	if s == nil || s.db == nil {
		return nil, errNotOpened
	}
	k := strings.TrimSpace(key)
	if k == "" {
		return nil, errors.New("secretstore: key is empty")
	}
	return []byte(k), nil
}

// GetString 读取键值，第二个返回值表示键是否存在
func (s *Store) GetString(key string) (string, bool, error) {
	k, err := s.normKey(key)
	if err != nil {
		return "", false, err
	}
	var (
		out   string
		found bool
	)
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			out = string(val)
			return nil
		})
	})
	if err != nil {
		return "", false, err
	}
	return out, found, nil
}

// SetString 写入键值，已存在则覆盖
func (s *Store) SetString(key, val string) error {
	k, err := s.normKey(key)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, []byte(val))
	})
}

// ParseKey 解析 32 字节加密密钥，接受 hex（可带 0x 前缀）或 base64。
// 输入为空返回 nil，表示不加密。
func ParseKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	// 64 位 hex 字符串同时也是合法 base64，先按 hex 解析避免歧义
	if b, err := hex.DecodeString(strings.TrimPrefix(raw, "0x")); err == nil {
		return checkKeyLen(b)
	}
	if b, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return checkKeyLen(b)
	}
	return nil, errors.New("key must be base64(32 bytes) or hex(32 bytes)")
}

func checkKeyLen(b []byte) ([]byte, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("decoded key length must be 32, got %d", len(b))
	}
	return b, nil
}
