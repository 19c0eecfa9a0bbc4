package registry

import (
	"context"
	"slices"
	"sort"
	"sync"
)

// MemoryRegistry keeps registrations in process. TTLs are ignored.
type MemoryRegistry struct {
	mu       sync.Mutex
	regs     map[string]map[string]Registration // target → interface → registration
	watchers map[string][]chan []Registration
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		regs:     make(map[string]map[string]Registration),
		watchers: make(map[string][]chan []Registration),
	}
}

func (r *MemoryRegistry) Register(reg Registration, ttl int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	byIface, ok := r.regs[reg.TargetID]
	if !ok {
		byIface = make(map[string]Registration)
		r.regs[reg.TargetID] = byIface
	}
	byIface[reg.Interface] = reg
	r.notify(reg.TargetID)
	return nil
}

func (r *MemoryRegistry) Deregister(targetID string, iface string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	byIface := r.regs[targetID]
	delete(byIface, iface)
	if len(byIface) == 0 {
		delete(r.regs, targetID)
	}
	r.notify(targetID)
	return nil
}

// Discover returns the target's registrations sorted by interface name.
func (r *MemoryRegistry) Discover(targetID string) ([]Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(targetID), nil
}

// Watch keeps only the latest unread list. The channel is closed once ctx is done.
func (r *MemoryRegistry) Watch(ctx context.Context, targetID string) <-chan []Registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan []Registration, 1)
	r.watchers[targetID] = append(r.watchers[targetID], ch)

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		defer r.mu.Unlock()
		ws := r.watchers[targetID]
		if i := slices.Index(ws, ch); i >= 0 {
			r.watchers[targetID] = slices.Delete(ws, i, i+1)
		}
		if len(r.watchers[targetID]) == 0 {
			delete(r.watchers, targetID)
		}
		close(ch)
	}()
	return ch
}

func (r *MemoryRegistry) list(targetID string) []Registration {
	regs := make([]Registration, 0, len(r.regs[targetID]))
	for _, reg := range r.regs[targetID] {
		regs = append(regs, reg)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].Interface < regs[j].Interface })
	return regs
}

// notify replaces any unread update with the latest list. Caller holds mu.
func (r *MemoryRegistry) notify(targetID string) {
	regs := r.list(targetID)
	for _, ch := range r.watchers[targetID] {
		select {
		case <-ch:
		default:
		}
		ch <- regs
	}
}
