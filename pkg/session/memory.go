package session

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// memoryEntry is one stored session.
type memoryEntry struct {
	expiresAt time.Time // zero = never expires
	id        string
	data      []byte
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore keeps sessions in process memory with TTL expiry and LRU
// eviction once the configured capacity is reached. Suitable for a single
// instance or tests; sessions are lost on restart.
type MemoryStore struct {
	items    map[string]*list.Element
	eviction *list.List // front = most recently used
	loads    coalescer
	done     chan struct{}
	opts     memoryOptions
	mu       sync.Mutex
	closed   bool
}

type memoryOptions struct {
	maxEntries      int
	cleanupInterval time.Duration
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*memoryOptions)

// WithMaxEntries caps the number of stored sessions. Zero means unbounded.
func WithMaxEntries(n int) MemoryOption {
	return func(o *memoryOptions) {
		o.maxEntries = max(n, 0)
	}
}

// WithCleanupInterval sets how often expired sessions are purged.
// Zero disables the background janitor. Default: 1 minute.
func WithCleanupInterval(d time.Duration) MemoryOption {
	return func(o *memoryOptions) {
		o.cleanupInterval = d
	}
}

// NewMemoryStore creates an in-memory store. Call Close to stop the janitor.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	o := memoryOptions{cleanupInterval: time.Minute}
	for _, opt := range opts {
		opt(&o)
	}

	m := &MemoryStore{
		items:    make(map[string]*list.Element),
		eviction: list.New(),
		done:     make(chan struct{}),
		opts:     o,
	}
	if o.cleanupInterval > 0 {
		go m.janitor()
	}
	return m
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, id string) ([]byte, error) {
	return m.loads.load(id, func() ([]byte, error) {
		m.mu.Lock()
		defer m.mu.Unlock()

		if m.closed {
			return nil, ErrClosed
		}
		elem, ok := m.items[id]
		if !ok {
			return nil, ErrNotFound
		}
		e := elem.Value.(*memoryEntry)
		if e.expired(time.Now()) {
			m.remove(elem)
			return nil, ErrNotFound
		}
		m.eviction.MoveToFront(elem)
		return e.data, nil
	})
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, id string, data []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	data = append([]byte(nil), data...)

	if elem, ok := m.items[id]; ok {
		e := elem.Value.(*memoryEntry)
		e.data = data
		e.expiresAt = expiresAt
		m.eviction.MoveToFront(elem)
		return nil
	}

	if m.opts.maxEntries > 0 && len(m.items) >= m.opts.maxEntries {
		if oldest := m.eviction.Back(); oldest != nil {
			m.remove(oldest)
		}
	}

	m.items[id] = m.eviction.PushFront(&memoryEntry{id: id, data: data, expiresAt: expiresAt})
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if elem, ok := m.items[id]; ok {
		m.remove(elem)
	}
	return nil
}

// Len returns the number of stored sessions, expired ones included until
// they are purged.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Close stops the janitor. Close is idempotent.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	return nil
}

func (m *MemoryStore) janitor() {
	ticker := time.NewTicker(m.opts.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.purge()
		}
	}
}

func (m *MemoryStore) purge() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for elem := m.eviction.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*memoryEntry).expired(now) {
			m.remove(elem)
		}
		elem = prev
	}
}

// remove must be called with mu held.
func (m *MemoryStore) remove(elem *list.Element) {
	e := m.eviction.Remove(elem).(*memoryEntry)
	delete(m.items, e.id)
}

var _ Store = (*MemoryStore)(nil)
