package internal

import (
	"fmt"
	"sync"
)

// Extension adds behaviour to an application. Init runs once from New,
// after all options are applied and before the handlers declare their
// routes, so it may register hooks, views and blueprints.
type Extension interface {
	Init(app *App) error
}

// ExtensionFunc adapts a function to Extension.
type ExtensionFunc func(app *App) error

// Init calls f.
func (f ExtensionFunc) Init(app *App) error {
	return f(app)
}

// Extensions stores per-application extension state by name.
type Extensions struct {
	mu     sync.RWMutex
	values map[string]any
}

func newExtensions() *Extensions {
	return &Extensions{values: make(map[string]any)}
}

// Set stores the state of the extension name.
func (e *Extensions) Set(name string, v any) {
	e.mu.Lock()
	e.values[name] = v
	e.mu.Unlock()
}

// Get returns the state of the extension name.
func (e *Extensions) Get(name string) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.values[name]
	return v, ok
}

// Has reports whether the extension name stored state.
func (e *Extensions) Has(name string) bool {
	_, ok := e.Get(name)
	return ok
}

// ExtensionState returns the state of the extension name as T.
//
// Example:
//
//	rec, err := flagon.ExtensionState[*metrics.Recorder](app, "metrics")
func ExtensionState[T any](app *App, name string) (T, error) {
	var zero T
	v, ok := app.extensions.Get(name)
	if !ok {
		return zero, fmt.Errorf("extension %q is not initialised", name)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("extension %q state is a %T", name, v)
	}
	return t, nil
}
