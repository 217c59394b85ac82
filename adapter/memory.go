package adapter

import (
	"encoding/json"
	"slices"
	"sync"
)

// MemoryAdapter keeps every collection in memory for the lifetime of the
// process. Safe for concurrent use.
type MemoryAdapter struct {
	mu          sync.RWMutex
	collections map[string][]map[string]any
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		collections: make(map[string][]map[string]any),
	}
}

// deepCopy returns a deep copy of a snapshot by round-tripping through
// JSON, so callers never share maps with the stored state.
func deepCopy(src []map[string]any) ([]map[string]any, error) {
	if len(src) == 0 {
		return []map[string]any{}, nil
	}
	b, err := json.Marshal(src)
	if err != nil {
		return nil, err
	}
	var dst []map[string]any
	if err := json.Unmarshal(b, &dst); err != nil {
		return nil, err
	}
	return dst, nil
}

func (m *MemoryAdapter) ListCollections() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.collections))
	for name := range m.collections {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (m *MemoryAdapter) Load(collection string) ([]map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return deepCopy(m.collections[collection])
}

func (m *MemoryAdapter) Save(collection string, docs []map[string]any) error {
	cp, err := deepCopy(docs)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[collection] = cp
	return nil
}

func (m *MemoryAdapter) Delete(collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, collection)
	return nil
}
