package adapter

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
)

// KV is a flat string key-value store such as browser local storage or a
// single SQLite table.
type KV interface {
	// Get returns the value for key; ok is false when the key is unset.
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error
	Keys() ([]string, error)
}

// KVAdapter stores each collection as one JSON array under
// prefix+collection in a KV store. Keys without the prefix are ignored,
// so several adapters can share one KV under different prefixes.
type KVAdapter struct {
	kv     KV
	prefix string
}

func NewKVAdapter(kv KV, prefix string) *KVAdapter {
	return &KVAdapter{kv: kv, prefix: prefix}
}

// Close closes the underlying KV if it holds resources.
func (a *KVAdapter) Close() error {
	if c, ok := a.kv.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (a *KVAdapter) ListCollections() ([]string, error) {
	keys, err := a.kv.Keys()
	if err != nil {
		return nil, err
	}
	names := []string{}
	for _, k := range keys {
		if name, ok := strings.CutPrefix(k, a.prefix); ok && name != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

func (a *KVAdapter) Load(collection string) ([]map[string]any, error) {
	raw, ok, err := a.kv.Get(a.prefix + collection)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return []map[string]any{}, nil
	}
	var docs []map[string]any
	if err := json.Unmarshal([]byte(raw), &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}
	return nonNil(docs), nil
}

func (a *KVAdapter) Save(collection string, docs []map[string]any) error {
	if collection == "" {
		return ErrInvalidCollectionName
	}
	b, err := json.Marshal(nonNil(docs))
	if err != nil {
		return err
	}
	return a.kv.Set(a.prefix+collection, string(b))
}

func (a *KVAdapter) Delete(collection string) error {
	return a.kv.Remove(a.prefix + collection)
}

// MemoryKV is an in-process KV. Safe for concurrent use.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryKV) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryKV) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}
