package rpc

import (
	"fmt"
	"sort"
	"sync"
)

// Target is an addressable entity that owns zero or more managers.
type Target interface {
	ID() string
	// RPCManager returns the manager registered for iface, or nil.
	RPCManager(iface string) *Manager
}

// Connector is the stock Target: a component or extension that registers
// handlers for the RPC interfaces it serves.
type Connector struct {
	id       string
	mu       sync.RWMutex
	managers map[string]*Manager // interface name → manager
}

func NewConnector(id string) *Connector {
	return &Connector{
		id:       id,
		managers: make(map[string]*Manager),
	}
}

func (c *Connector) ID() string { return c.id }

func (c *Connector) RPCManager(iface string) *Manager {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.managers[iface]
}

// Register adds m. A second manager for the same interface is rejected.
func (c *Connector) Register(m *Manager) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.managers[m.Interface()]; ok {
		return fmt.Errorf("%w: %s on %s", ErrDuplicateInterface, m.Interface(), c.id)
	}
	c.managers[m.Interface()] = m
	return nil
}

// Unregister drops the manager for iface and reports whether there was one.
func (c *Connector) Unregister(iface string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.managers[iface]
	delete(c.managers, iface)
	return ok
}

// Interfaces lists the registered interface names in sorted order.
func (c *Connector) Interfaces() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.managers))
	for name := range c.managers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterRPC builds a manager for impl under I's type name and registers it on c.
func RegisterRPC[I any](c *Connector, impl I) (*Manager, error) {
	m, err := NewManager[I](impl)
	if err != nil {
		return nil, err
	}
	if err := c.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Targets maps target identifiers to targets. The lifecycle side writes it;
// dispatch only reads.
type Targets struct {
	mu sync.RWMutex
	m  map[string]Target
}

func NewTargets() *Targets {
	return &Targets{m: make(map[string]Target)}
}

// Add stores t under t.ID(), replacing any previous target with that id.
func (ts *Targets) Add(t Target) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.m[t.ID()] = t
}

func (ts *Targets) Remove(id string) (Target, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	t, ok := ts.m[id]
	delete(ts.m, id)
	return t, ok
}

func (ts *Targets) Lookup(id string) (Target, bool) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	t, ok := ts.m[id]
	return t, ok
}

func (ts *Targets) IDs() []string {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	ids := make([]string, 0, len(ts.m))
	for id := range ts.m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
