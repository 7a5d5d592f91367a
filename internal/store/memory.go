package store

import (
	"context"
	"sync"

	"github.com/shaiso/Flowline/internal/domain"
)

// MemoryStore — хранилище каталога в памяти процесса.
//
// Используется в тестах и для runs без персистентности.
type MemoryStore struct {
	mu   sync.Mutex
	defs []domain.CustomNodeDefinition
}

// NewMemoryStore создаёт пустой MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load возвращает копию каталога.
func (s *MemoryStore) Load(_ context.Context) ([]domain.CustomNodeDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defs := make([]domain.CustomNodeDefinition, len(s.defs))
	copy(defs, s.defs)
	return defs, nil
}

// Save замещает каталог.
func (s *MemoryStore) Save(_ context.Context, defs []domain.CustomNodeDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.defs = make([]domain.CustomNodeDefinition, len(defs))
	copy(s.defs, defs)
	return nil
}

// Clear очищает каталог.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.defs = nil
	return nil
}
