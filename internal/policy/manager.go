package policy

import (
	"sync"
	"sync/atomic"
)

// Manager holds the active rule engine and allows atomically swapping it when
// a rule source sync delivers a new rule set.
type Manager struct {
	current atomic.Pointer[Engine]
	mu      sync.Mutex
}

func NewManager(initialRules []Rule) *Manager {
	m := &Manager{}
	m.current.Store(New(initialRules))
	return m
}

func (m *Manager) Engine() *Engine {
	return m.current.Load()
}

// Update compiles and installs a new rule set. The previous engine keeps
// serving evaluations already in flight.
func (m *Manager) Update(rules []Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	compiled, err := Compile(rules)
	if err != nil {
		return err
	}
	m.current.Store(New(compiled))
	return nil
}
