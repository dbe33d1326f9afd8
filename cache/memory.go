package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/seo-optimizer/tag-inspector/analyzer"
)

// Memory is an in-process Store backed by patrickmn/go-cache
type Memory struct {
	items *gocache.Cache
}

// NewMemory creates a Memory store whose entries expire after ttl. Expired
// entries are purged every cleanupInterval.
func NewMemory(ttl, cleanupInterval time.Duration) *Memory {
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	return &Memory{items: gocache.New(ttl, cleanupInterval)}
}

// Analyses are never mutated after creation, so the pointer is shared as-is
func (m *Memory) Get(_ context.Context, key string) (*analyzer.PageAnalysis, bool, error) {
	value, found := m.items.Get(key)
	if !found {
		return nil, false, nil
	}
	analysis, ok := value.(*analyzer.PageAnalysis)
	if !ok {
		m.items.Delete(key)
		return nil, false, nil
	}
	return analysis, true, nil
}

func (m *Memory) Set(_ context.Context, key string, analysis *analyzer.PageAnalysis) error {
	m.items.SetDefault(key, analysis)
	return nil
}

func (m *Memory) Len(context.Context) (int, error) {
	return m.items.ItemCount(), nil
}

func (m *Memory) Close() error {
	m.items.Flush()
	return nil
}
