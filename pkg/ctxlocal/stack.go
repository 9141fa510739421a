package ctxlocal

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Stack is a named LIFO whose storage lives on a context.Context.
// The zero value is not usable; create stacks with New.
type Stack[T any] struct {
	key  *slotKey
	name string
}

// slotKey is unique per Stack so two stacks of the same element type
// never collide on one context.
type slotKey struct {
	name string
}

type slot[T any] struct {
	items []T
	mu    sync.Mutex
}

// New creates a stack. The name only appears in error messages.
func New[T any](name string) *Stack[T] {
	return &Stack[T]{
		key:  &slotKey{name: name},
		name: name,
	}
}

// Name returns the stack name.
func (s *Stack[T]) Name() string {
	return s.name
}

// Bind returns a context carrying a fresh private slot for this stack.
// A context that is already bound is returned unchanged.
func (s *Stack[T]) Bind(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.Bound(ctx) {
		return ctx
	}
	return context.WithValue(ctx, s.key, &slot[T]{})
}

// Bound reports whether ctx carries a slot for this stack.
func (s *Stack[T]) Bound(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	_, ok := ctx.Value(s.key).(*slot[T])
	return ok
}

// Push appends v on top of the stack bound to ctx.
func (s *Stack[T]) Push(ctx context.Context, v T) error {
	sl, err := s.slot(ctx)
	if err != nil {
		return err
	}

	sl.mu.Lock()
	sl.items = append(sl.items, v)
	sl.mu.Unlock()
	return nil
}

// Pop removes and returns the top entry.
// Returns ErrEmpty when nothing was pushed through ctx.
func (s *Stack[T]) Pop(ctx context.Context) (T, error) {
	var zero T
	sl, err := s.slot(ctx)
	if err != nil {
		return zero, err
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	n := len(sl.items)
	if n == 0 {
		return zero, fmt.Errorf("%w: %s", ErrEmpty, s.name)
	}
	v := sl.items[n-1]
	sl.items[n-1] = zero
	sl.items = sl.items[:n-1]
	return v, nil
}

// Truncate drops every entry above the first n and returns them, topmost
// first. It restores the stack to the depth it had when an entry was
// pushed at position n, even if later entries were never popped.
func (s *Stack[T]) Truncate(ctx context.Context, n int) ([]T, error) {
	sl, err := s.slot(ctx)
	if err != nil {
		return nil, err
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	if n < 0 || n > len(sl.items) {
		return nil, fmt.Errorf("%w: %s has %d entries, not %d", ErrEmpty, s.name, len(sl.items), n)
	}
	dropped := slices.Clone(sl.items[n:])
	slices.Reverse(dropped)
	clear(sl.items[n:])
	sl.items = sl.items[:n]
	return dropped, nil
}

// Top returns the most recently pushed entry without removing it.
// The boolean is false when the context is unbound or the stack is empty.
func (s *Stack[T]) Top(ctx context.Context) (T, bool) {
	var zero T
	sl, err := s.slot(ctx)
	if err != nil {
		return zero, false
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	if len(sl.items) == 0 {
		return zero, false
	}
	return sl.items[len(sl.items)-1], true
}

// Len returns the number of entries, zero for an unbound context.
func (s *Stack[T]) Len(ctx context.Context) int {
	sl, err := s.slot(ctx)
	if err != nil {
		return 0
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	return len(sl.items)
}

// Detach returns a context whose slot holds a copy of the current entries.
// Pushes and pops made through the returned context do not affect ctx.
func (s *Stack[T]) Detach(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	var items []T
	if sl, err := s.slot(ctx); err == nil {
		sl.mu.Lock()
		items = slices.Clone(sl.items)
		sl.mu.Unlock()
	}
	return context.WithValue(ctx, s.key, &slot[T]{items: items})
}

func (s *Stack[T]) slot(ctx context.Context) (*slot[T], error) {
	if ctx == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnbound, s.name)
	}
	sl, ok := ctx.Value(s.key).(*slot[T])
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnbound, s.name)
	}
	return sl, nil
}
