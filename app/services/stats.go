package services

import (
	"context"
	"sync"

	"speeddating/app/models"
)

// StatsRecorder keeps the service counters listed in models.StatNames
type StatsRecorder interface {
	Add(ctx context.Context, name string, delta int64)
	Snapshot(ctx context.Context) (map[string]int64, error)
}

// MemoryStats counts in process memory
type MemoryStats struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMemoryStats creates zeroed counters
func NewMemoryStats() *MemoryStats {
	return &MemoryStats{counters: make(map[string]int64)}
}

func (m *MemoryStats) Add(_ context.Context, name string, delta int64) {
	m.mu.Lock()
	m.counters[name] += delta
	m.mu.Unlock()
}

func (m *MemoryStats) Snapshot(_ context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(models.StatNames))
	for _, name := range models.StatNames {
		out[name] = m.counters[name]
	}
	return out, nil
}
