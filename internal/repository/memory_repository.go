package repository

import (
	"context"
	"sync"

	"github.com/Pr0gramm3r2022/3DSpatialAgents/internal/annotation"
)

// MemoryResultRepository is an in-process ResultRepository used when no Redis
// address is configured, and in tests.
type MemoryResultRepository struct {
	mu      sync.RWMutex
	results map[string]*annotation.Result
}

func NewMemoryResultRepository() *MemoryResultRepository {
	return &MemoryResultRepository{
		results: make(map[string]*annotation.Result),
	}
}

// Save stores an analysis result under the given key
func (m *MemoryResultRepository) Save(ctx context.Context, key string, result *annotation.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[key] = result
	return nil
}

// Get retrieves a stored result, ErrResultNotFound when absent
func (m *MemoryResultRepository) Get(ctx context.Context, key string) (*annotation.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result, ok := m.results[key]
	if !ok {
		return nil, ErrResultNotFound
	}
	return result, nil
}
