package testutil

import (
	"context"
	"fmt"
	"sync"
)

// Item is a pointer-identity handle for pool tests.
type Item struct {
	Name string
}

func (i *Item) String() string { return i.Name }

// NewItems returns n items named prefix1..prefixN.
func NewItems(prefix string, n int) []*Item {
	items := make([]*Item, n)
	for i := range items {
		items[i] = &Item{Name: fmt.Sprintf("%s%d", prefix, i+1)}
	}
	return items
}

// RecordingExecutor records every item it is asked to destroy.
type RecordingExecutor[T comparable] struct {
	mu        sync.Mutex
	destroyed []T
}

// Destroy records item.
func (r *RecordingExecutor[T]) Destroy(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destroyed = append(r.destroyed, item)
}

// Destroyed returns the items destroyed so far, in order.
func (r *RecordingExecutor[T]) Destroyed() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.destroyed))
	copy(out, r.destroyed)
	return out
}

// Count returns how many times item was destroyed.
func (r *RecordingExecutor[T]) Count(item T) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.destroyed {
		if d == item {
			n++
		}
	}
	return n
}

// MapProvider serves resources from a map and records loads and unloads.
// Names missing from the map fail to load.
type MapProvider[T any] struct {
	mu        sync.Mutex
	resources map[string]T
	loads     map[string]int
	unloaded  []string

	// Gate, when set, blocks Load until it is closed.
	Gate chan struct{}
}

// NewMapProvider returns a provider serving resources.
func NewMapProvider[T any](resources map[string]T) *MapProvider[T] {
	return &MapProvider[T]{resources: resources, loads: make(map[string]int)}
}

// Load returns the named resource or an error if it is unknown.
func (p *MapProvider[T]) Load(ctx context.Context, name string) (T, error) {
	if p.Gate != nil {
		select {
		case <-p.Gate:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loads[name]++
	r, ok := p.resources[name]
	if !ok {
		var zero T
		return zero, fmt.Errorf("resource %q does not exist", name)
	}
	return r, nil
}

// Unload records name.
func (p *MapProvider[T]) Unload(_ context.Context, name string, _ T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unloaded = append(p.unloaded, name)
}

// Loads returns how many times name was loaded.
func (p *MapProvider[T]) Loads(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loads[name]
}

// Unloaded returns the unloaded names in order.
func (p *MapProvider[T]) Unloaded() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.unloaded))
	copy(out, p.unloaded)
	return out
}
