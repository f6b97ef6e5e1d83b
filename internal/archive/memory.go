package archive

import (
	"context"
	"sync"

	"github.com/bobbylite/enrollhub/internal/core"
)

// MemoryArchive is an in-memory Archive used for tests and local CLI runs.
type MemoryArchive struct {
	mu       sync.RWMutex
	requests []core.AccessRequest
}

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{
		requests: make([]core.AccessRequest, 0),
	}
}

func (a *MemoryArchive) Append(_ context.Context, req core.AccessRequest) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.requests = append(a.requests, req)
	return nil
}

func (a *MemoryArchive) List(_ context.Context) ([]core.AccessRequest, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]core.AccessRequest, len(a.requests))
	copy(out, a.requests)
	return out, nil
}
