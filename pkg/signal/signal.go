// Package signal implements typed, in-process notifications.
//
// A Signal fans a payload out to every connected receiver, synchronously and
// in connection order. Receivers must not block; anything slow belongs in a
// goroutine started by the receiver itself.
package signal

import (
	"context"
	"sync"
)

// Receiver handles a signal. Sender is the object that emitted it.
type Receiver[T any] func(ctx context.Context, sender any, payload T)

type receiver[T any] struct {
	fn Receiver[T]
	id uint64
}

// Signal is a named notification channel with payload type T.
type Signal[T any] struct {
	name      string
	receivers []receiver[T]
	nextID    uint64
	mu        sync.RWMutex
}

// New creates a signal with the given name.
func New[T any](name string) *Signal[T] {
	return &Signal[T]{name: name}
}

// Name returns the signal name.
func (s *Signal[T]) Name() string {
	return s.name
}

// Connect subscribes fn and returns a function that unsubscribes it.
// A nil receiver is ignored.
func (s *Signal[T]) Connect(fn Receiver[T]) (disconnect func()) {
	if fn == nil {
		return func() {}
	}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.receivers = append(s.receivers, receiver[T]{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.disconnect(id) })
	}
}

// Send calls every receiver with the payload.
func (s *Signal[T]) Send(ctx context.Context, sender any, payload T) {
	s.mu.RLock()
	if len(s.receivers) == 0 {
		s.mu.RUnlock()
		return
	}
	receivers := make([]receiver[T], len(s.receivers))
	copy(receivers, s.receivers)
	s.mu.RUnlock()

	for _, r := range receivers {
		r.fn(ctx, sender, payload)
	}
}

// HasReceivers reports whether anything is connected.
func (s *Signal[T]) HasReceivers() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.receivers) > 0
}

func (s *Signal[T]) disconnect(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.receivers {
		if r.id == id {
			s.receivers = append(s.receivers[:i], s.receivers[i+1:]...)
			return
		}
	}
}
