package internal

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Globals is the namespace bound to an application context.
// It lives as long as the AppContext and is safe for concurrent use.
type Globals struct {
	values map[string]any
	mu     sync.RWMutex
}

func newGlobals() *Globals {
	return &Globals{values: make(map[string]any)}
}

// Get returns the value stored under name.
func (g *Globals) Get(name string) (any, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.values[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrGlobalNotFound, name)
	}
	return v, nil
}

// Lookup returns the value stored under name and whether it exists.
func (g *Globals) Lookup(name string) (any, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.values[name]
	return v, ok
}

// Set stores value under name.
func (g *Globals) Set(name string, value any) {
	g.mu.Lock()
	g.values[name] = value
	g.mu.Unlock()
}

// Has reports whether name is set.
func (g *Globals) Has(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.values[name]
	return ok
}

// Pop removes name and returns its value. When name is missing the first
// fallback is returned; without one the call fails.
func (g *Globals) Pop(name string, fallback ...any) (any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v, ok := g.values[name]
	if !ok {
		if len(fallback) > 0 {
			return fallback[0], nil
		}
		return nil, fmt.Errorf("%w: %q", ErrGlobalNotFound, name)
	}
	delete(g.values, name)
	return v, nil
}

// SetDefault stores value under name unless it is already set, and returns
// the value now stored.
func (g *Globals) SetDefault(name string, value any) any {
	g.mu.Lock()
	defer g.mu.Unlock()
	if v, ok := g.values[name]; ok {
		return v
	}
	g.values[name] = value
	return value
}

// Delete removes name.
func (g *Globals) Delete(name string) {
	g.mu.Lock()
	delete(g.values, name)
	g.mu.Unlock()
}

// Keys returns the stored names in sorted order.
func (g *Globals) Keys() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Sorted(maps.Keys(g.values))
}

// Snapshot returns a copy of all values.
func (g *Globals) Snapshot() map[string]any {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return maps.Clone(g.values)
}

// GlobalValue returns the value stored under name as T.
func GlobalValue[T any](g *Globals, name string) (T, error) {
	var zero T
	v, err := g.Get(name)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %q is %T", ErrGlobalType, name, v)
	}
	return typed, nil
}
