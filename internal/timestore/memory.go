package timestore

import "sync"

// MemoryStore is an in-process KeyValueStore.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]string)}
}

// Write implements KeyValueStore
func (m *MemoryStore) Write(namespace, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.data[namespace]
	if !ok {
		ns = make(map[string]string)
		m.data[namespace] = ns
	}
	ns[key] = value
	return nil
}

// Read implements KeyValueStore
func (m *MemoryStore) Read(namespace, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[namespace][key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Delete removes a key. Missing keys are ignored.
func (m *MemoryStore) Delete(namespace, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[namespace], key)
}

// Name implements KeyValueStore
func (m *MemoryStore) Name() string { return "memory" }
