package cache

import (
	"context"
	"sync"
	"time"
)

// MockClient is an in-memory Store for tests and for running without Redis
type MockClient struct {
	mu      sync.Mutex
	data    map[string]mockEntry
	now     func() time.Time
	Gets    int
	Hits    int
	Sets    int
	Cleared int
}

type mockEntry struct {
	value   []byte
	expires time.Time
}

func NewMockClient() *MockClient {
	return &MockClient{
		data: make(map[string]mockEntry),
		now:  time.Now,
	}
}

func (m *MockClient) Close() error {
	return nil
}

func (m *MockClient) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Gets++
	entry, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	if !entry.expires.IsZero() && m.now().After(entry.expires) {
		delete(m.data, key)
		return nil, false, nil
	}
	m.Hits++
	return entry.value, true, nil
}

func (m *MockClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Sets++
	entry := mockEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expires = m.now().Add(ttl)
	}
	m.data[key] = entry
	return nil
}

func (m *MockClient) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Cleared++
	m.data = make(map[string]mockEntry)
	return nil
}

// Len returns the number of stored entries
func (m *MockClient) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
