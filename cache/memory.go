package cache

import (
	"context"
	"slices"
	"sync"

	"github.com/hupe1980/fission/embed"
)

var _ embed.Store = (*Memory)(nil)

// Memory is a process-local embed.Store.
type Memory struct {
	mu sync.RWMutex
	m  map[string][]float32
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{m: make(map[string][]float32)}
}

func (m *Memory) Get(_ context.Context, key string) ([]float32, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.m[key]
	return slices.Clone(v), ok, nil
}

func (m *Memory) Put(_ context.Context, key string, vec []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m[key] = slices.Clone(vec)
	return nil
}

// Len returns the number of cached vectors.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.m)
}
