package storage

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and local runs.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]Object
	// BaseURL prefixes signed URLs.
	BaseURL string
	// FailPut and FailSign force errors.
	FailPut  error
	FailSign error
}

type Object struct {
	ContentType string
	Body        []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: map[string]Object{}, BaseURL: "https://storage.local"}
}

func (m *MemoryStore) Put(ctx context.Context, key, contentType string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPut != nil {
		return m.FailPut
	}
	m.objects[key] = Object{ContentType: contentType, Body: append([]byte(nil), body...)}
	return nil
}

// SignedURL does not require the object to exist, matching presigned S3 URLs.
func (m *MemoryStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSign != nil {
		return "", m.FailSign
	}
	return fmt.Sprintf("%s/%s?expires=%d", m.BaseURL, url.PathEscape(key), int64(ttl.Seconds())), nil
}

func (m *MemoryStore) Get(key string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[key]
	return o, ok
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
