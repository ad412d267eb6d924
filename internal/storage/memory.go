package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStorage keeps records in memory. Used in development and tests when
// no storage account is configured.
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[string][]byte
}

var _ Store = (*MemoryStorage)(nil)

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{records: make(map[string][]byte)}
}

func (s *MemoryStorage) Store(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]byte, len(data))
	copy(copied, data)
	s.records[name] = copied
	return nil
}

func (s *MemoryStorage) Retrieve(name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.records[name]
	if !ok {
		return nil, fmt.Errorf("record %s not found", name)
	}
	return data, nil
}

func (s *MemoryStorage) Append(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[name] = append(s.records[name], data...)
	return nil
}

func (s *MemoryStorage) List(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string
	for name := range s.records {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
