package wallet

import "sync"

// MemStore is an in-memory store, useful for tests and short-lived clients
type MemStore struct {
	mutex sync.RWMutex
	data  map[string][]byte
}

// NewMemStore creates an empty in-memory store
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

// Put stores data under label
func (ms *MemStore) Put(label string, data []byte) error {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	ms.data[label] = cp
	return nil
}

// Get retrieves the data stored under label
func (ms *MemStore) Get(label string) ([]byte, error) {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()
	data, ok := ms.data[label]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Remove deletes the data stored under label
func (ms *MemStore) Remove(label string) error {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	if _, ok := ms.data[label]; !ok {
		return ErrNotFound
	}
	delete(ms.data, label)
	return nil
}

// Exists reports whether data is stored under label
func (ms *MemStore) Exists(label string) (bool, error) {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()
	_, ok := ms.data[label]
	return ok, nil
}

// List returns all stored labels
func (ms *MemStore) List() ([]string, error) {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()
	labels := make([]string, 0, len(ms.data))
	for label := range ms.data {
		labels = append(labels, label)
	}
	return labels, nil
}
