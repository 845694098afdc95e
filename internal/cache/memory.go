package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	entries map[Key]Entry
	nowFunc func() time.Time
}

// NewMemory creates an empty in-process store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[Key]Entry), nowFunc: time.Now}
}

func (m *Memory) Get(_ context.Context, key Key) (Entry, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || e.Expired(m.nowFunc()) {
		return Entry{}, false, nil
	}
	return e, true, nil
}

func (m *Memory) Set(_ context.Context, e Entry) error {
	m.mu.Lock()
	m.entries[e.Key] = e
	m.mu.Unlock()
	return nil
}

func (m *Memory) Prune(_ context.Context) (int64, error) {
	now := m.nowFunc()
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, e := range m.entries {
		if e.Expired(now) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

func (m *Memory) Stats(_ context.Context) (Stats, error) {
	now := m.nowFunc()
	m.mu.RLock()
	defer m.mu.RUnlock()
	var s Stats
	for _, e := range m.entries {
		s.Total++
		if e.Expired(now) {
			s.Expired++
		} else {
			s.Live++
		}
	}
	return s, nil
}

func (m *Memory) Close() error { return nil }

// Tiered reads through a fast front store to a slower persistent one.
// Hits in the back store are copied to the front.
type Tiered struct {
	front Store
	back  Store
}

// NewTiered layers front over back.
func NewTiered(front, back Store) *Tiered {
	return &Tiered{front: front, back: back}
}

func (t *Tiered) Get(ctx context.Context, key Key) (Entry, bool, error) {
	if e, ok, err := t.front.Get(ctx, key); err == nil && ok {
		return e, true, nil
	}
	e, ok, err := t.back.Get(ctx, key)
	if err != nil || !ok {
		return Entry{}, false, err
	}
	_ = t.front.Set(ctx, e)
	return e, true, nil
}

func (t *Tiered) Set(ctx context.Context, e Entry) error {
	if err := t.front.Set(ctx, e); err != nil {
		return err
	}
	return t.back.Set(ctx, e)
}

func (t *Tiered) Prune(ctx context.Context) (int64, error) {
	if _, err := t.front.Prune(ctx); err != nil {
		return 0, err
	}
	return t.back.Prune(ctx)
}

func (t *Tiered) Stats(ctx context.Context) (Stats, error) {
	return t.back.Stats(ctx)
}

func (t *Tiered) Close() error {
	if err := t.front.Close(); err != nil {
		return err
	}
	return t.back.Close()
}
