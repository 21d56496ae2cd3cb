package storage

import "sync"

// MemoryStore keeps the slot in process memory. State does not survive restarts.
type MemoryStore struct {
	mu    sync.RWMutex
	value string
	set   bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) LastSeen() (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.value, m.set, nil
}

func (m *MemoryStore) SaveLastSeen(url string) error {
	url, err := cleanURL(url)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.value, m.set = url, true
	m.mu.Unlock()
	return nil
}
