package audit

import (
	"sync"

	"github.com/bobbylite/enrollhub/internal/core"
)

var _ core.Auditor = (*InMemoryAuditor)(nil)

// InMemoryAuditor keeps audit entries in memory. It backs the admin audit
// endpoint when no file auditor is configured.
type InMemoryAuditor struct {
	mu      sync.Mutex
	entries []core.AuditEntry
}

func NewInMemoryAuditor() *InMemoryAuditor {
	return &InMemoryAuditor{
		entries: make([]core.AuditEntry, 0),
	}
}

func (i *InMemoryAuditor) Log(entry core.AuditEntry) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.entries = append(i.entries, entry)
	return nil
}

// GetRecent returns the most recent entries, oldest first.
func (i *InMemoryAuditor) GetRecent(limit int) ([]core.AuditEntry, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if limit > len(i.entries) {
		limit = len(i.entries)
	}
	start := len(i.entries) - limit
	entries := make([]core.AuditEntry, limit)
	copy(entries, i.entries[start:])

	return entries, nil
}

// Find returns the most recent entries matching the filter, newest first.
func (i *InMemoryAuditor) Find(filter func(entry core.AuditEntry) bool, limit int) ([]core.AuditEntry, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	var matched []core.AuditEntry
	for idx := len(i.entries) - 1; idx >= 0 && len(matched) < limit; idx-- {
		if filter(i.entries[idx]) {
			matched = append(matched, i.entries[idx])
		}
	}
	return matched, nil
}

func (i *InMemoryAuditor) Close() error {
	return nil
}
