package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

var _ Provider = (*MemoryProvider)(nil)

// MemoryProvider is a thread-safe fake for tests.
// Objects live in a map: store[bucket/key] = bytes.
type MemoryProvider struct {
	mu    sync.RWMutex
	store map[string][]byte

	// PutErr / DeleteErr let tests inject storage failures.
	PutErr    error
	DeleteErr error
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{store: make(map[string][]byte)}
}

func (p *MemoryProvider) Put(ctx context.Context, bucket Bucket, key string, r io.Reader, size int64, contentType string) error {
	if p.PutErr != nil {
		return p.PutErr
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.store[objectName(bucket, key)] = buf.Bytes()
	return nil
}

func (p *MemoryProvider) Delete(ctx context.Context, bucket Bucket, key string) error {
	if p.DeleteErr != nil {
		return p.DeleteErr
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// Real stores don't error on deleting a missing key; neither do we.
	delete(p.store, objectName(bucket, key))
	return nil
}

// --- Test helper methods (not part of the Provider interface) ---

func (p *MemoryProvider) Has(bucket Bucket, key string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.store[objectName(bucket, key)]
	return ok
}

func (p *MemoryProvider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.store)
}

func objectName(bucket Bucket, key string) string {
	return string(bucket) + "/" + key
}
