package storage

import (
	"context"
	"strings"
	"sync"
	"time"
)

// In-memory implementations of KV and Blob, used by tests and for local
// development without Redis/R2. MemoryKV additionally records the last TTL
// written per key so tests can assert expiration policy.

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

type MemoryKV struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttls    map[string]time.Duration
	puts    map[string]int
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		entries: make(map[string]memoryEntry),
		ttls:    make(map[string]time.Duration),
		puts:    make(map[string]int),
	}
}

func (m *MemoryKV) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(m.entries, key)
		delete(m.ttls, key)
		return "", false, nil
	}
	return entry.value, true, nil
}

func (m *MemoryKV) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.entries[key] = entry
	m.ttls[key] = ttl
	m.puts[key]++
	return nil
}

func (m *MemoryKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	delete(m.ttls, key)
	return nil
}

func (m *MemoryKV) List(ctx context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []string
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// LastTTL returns the TTL passed on the most recent Put for key.
func (m *MemoryKV) LastTTL(key string) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ttl, ok := m.ttls[key]
	return ttl, ok
}

// PutCount reports how many Puts have targeted key.
func (m *MemoryKV) PutCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts[key]
}

type memoryObject struct {
	data        []byte
	contentType string
	metadata    map[string]string
}

type MemoryBlob struct {
	mu      sync.Mutex
	objects map[string]memoryObject

	// FailPuts/FailGets/FailDeletes force errors, for exercising the
	// swallow-and-log paths around the secondary store.
	FailPuts    bool
	FailGets    bool
	FailDeletes bool
}

func NewMemoryBlob() *MemoryBlob {
	return &MemoryBlob{objects: make(map[string]memoryObject)}
}

func (m *MemoryBlob) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailGets {
		return nil, false, errFailInjected
	}
	obj, ok := m.objects[key]
	if !ok {
		return nil, false, nil
	}
	return obj.data, true, nil
}

func (m *MemoryBlob) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailPuts {
		return errFailInjected
	}
	m.objects[key] = memoryObject{data: data, contentType: contentType, metadata: metadata}
	return nil
}

func (m *MemoryBlob) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailDeletes {
		return errFailInjected
	}
	delete(m.objects, key)
	return nil
}

// Len reports the number of stored objects.
func (m *MemoryBlob) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type injectedError struct{}

func (injectedError) Error() string { return "injected store failure" }

var errFailInjected = injectedError{}
