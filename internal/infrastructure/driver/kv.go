package driver

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrKeyNotFound key does not exist or has expired
var ErrKeyNotFound = errors.New("key not found")

// KeyValueDB define a key-value storage interface
type KeyValueDB interface {
	SetEX(ctx context.Context, key string, value string, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, keys ...string) error
	Ping() error
}

type memoryEntry struct {
	value    string
	expireAt time.Time
}

// MemoryKV process local KeyValueDB, used when no kv server is configured
type MemoryKV struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

var _ KeyValueDB = &MemoryKV{}

// NewMemoryKV create an empty MemoryKV
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{entries: make(map[string]memoryEntry), now: time.Now}
}

// SetEX implement KeyValueDB, a non-positive expiration never expires
func (m *MemoryKV) SetEX(ctx context.Context, key string, value string, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{value: value}
	if expiration > 0 {
		e.expireAt = m.now().Add(expiration)
	}
	m.entries[key] = e
	return nil
}

// Get implement KeyValueDB
func (m *MemoryKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(key)
	if !ok {
		return "", ErrKeyNotFound
	}
	return e.value, nil
}

// Exists implement KeyValueDB
func (m *MemoryKV) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.lookup(key)
	return ok, nil
}

// Del implement KeyValueDB
func (m *MemoryKV) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

func (m *MemoryKV) Ping() error {
	return nil
}

func (m *MemoryKV) lookup(key string) (memoryEntry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return e, false
	}
	if !e.expireAt.IsZero() && !m.now().Before(e.expireAt) {
		delete(m.entries, key)
		return e, false
	}
	return e, true
}
