package kv

import (
	"sort"
	"strings"
	"sync"

	"github.com/rainbow-me/wallet-core/lib/types/store"
)

// MemStore is an in-memory KVStore used by tests and the in-memory repo.
type MemStore struct {
	lk   sync.RWMutex
	data map[string][]byte
}

var _ store.KVStore = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

func (m *MemStore) Put(key, value []byte) error {
	m.lk.Lock()
	defer m.lk.Unlock()

	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[string(key)] = cp
	return nil
}

func (m *MemStore) Get(key []byte) ([]byte, error) {
	m.lk.RLock()
	defer m.lk.RUnlock()

	val, ok := m.data[string(key)]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(val))
	copy(cp, val)
	return cp, nil
}

func (m *MemStore) Has(key []byte) (bool, error) {
	m.lk.RLock()
	defer m.lk.RUnlock()

	_, ok := m.data[string(key)]
	return ok, nil
}

func (m *MemStore) Delete(key []byte) error {
	m.lk.Lock()
	defer m.lk.Unlock()

	delete(m.data, string(key))
	return nil
}

func (m *MemStore) Iter(prefix []byte, fn func(k, v []byte) error) int64 {
	m.lk.RLock()
	keys := m.sortedKeys(prefix)
	m.lk.RUnlock()

	var total int64
	for _, k := range keys {
		m.lk.RLock()
		v, ok := m.data[k]
		m.lk.RUnlock()
		if !ok {
			continue
		}
		cp := make([]byte, len(v))
		copy(cp, v)
		if err := fn([]byte(k), cp); err == nil {
			total++
		}
	}
	return total
}

func (m *MemStore) IterKeys(prefix []byte, fn func(k []byte) error) int64 {
	m.lk.RLock()
	keys := m.sortedKeys(prefix)
	m.lk.RUnlock()

	var total int64
	for _, k := range keys {
		if err := fn([]byte(k)); err == nil {
			total++
		}
	}
	return total
}

func (m *MemStore) sortedKeys(prefix []byte) []string {
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, string(prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (m *MemStore) Sync() error {
	return nil
}

func (m *MemStore) Close() error {
	return nil
}
