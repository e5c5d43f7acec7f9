package repository

import (
	"context"
	"slices"
	"sync"
)

// MemoryRepository хранит значения в памяти процесса. Используется, когда БД не настроена.
type MemoryRepository struct {
	mu     sync.RWMutex
	values map[string]map[string][]byte
}

// NewMemoryRepository создаёт пустое хранилище в памяти.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{values: make(map[string]map[string][]byte)}
}

// Close ничего не освобождает и нужен для совместимости с PostgresRepository.
func (m *MemoryRepository) Close() error {
	return nil
}

// Get возвращает копию сохранённого значения.
func (m *MemoryRepository) Get(_ context.Context, scope, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[scope][key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(v), nil
}

// Put сохраняет копию значения.
func (m *MemoryRepository) Put(_ context.Context, scope, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.values[scope] == nil {
		m.values[scope] = make(map[string][]byte)
	}
	m.values[scope][key] = slices.Clone(value)
	return nil
}

// Delete удаляет значение ключа.
func (m *MemoryRepository) Delete(_ context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values[scope], key)
	if len(m.values[scope]) == 0 {
		delete(m.values, scope)
	}
	return nil
}
