package resilience

import (
	"sort"
	"sync"
)

// Group lazily builds and keeps one value per key, e.g. a circuit breaker
// per upstream host.
type Group[T any] struct {
	mu    sync.Mutex
	items map[string]T
	build func(key string) T
}

// NewGroup creates a group that calls build the first time a key is requested.
func NewGroup[T any](build func(key string) T) *Group[T] {
	return &Group[T]{
		items: make(map[string]T),
		build: build,
	}
}

// Get returns the value for key, building it on first use.
func (g *Group[T]) Get(key string) T {
	g.mu.Lock()
	defer g.mu.Unlock()

	if v, ok := g.items[key]; ok {
		return v
	}
	v := g.build(key)
	g.items[key] = v
	return v
}

// Keys returns the keys built so far in sorted order.
func (g *Group[T]) Keys() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	keys := make([]string, 0, len(g.items))
	for k := range g.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys built so far.
func (g *Group[T]) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.items)
}
