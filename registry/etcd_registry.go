// etcd-based implementation of the Registry interface.
//
// Layout:
//
//	Key:   /rpc-bridge/{TargetID}/{Interface}
//	Value: JSON-encoded Registration
//
// Each key has its own TTL lease: if the bridge crashes, the lease expires and
// its entries disappear instead of advertising dead targets. Deregister revokes
// the lease and stops its keepalive.

package registry

import (
	"context"
	"encoding/json"
	"sync"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const keyPrefix = "/rpc-bridge/"

// EtcdRegistry implements the Registry interface using etcd v3.
type EtcdRegistry struct {
	client *clientv3.Client // etcd client connection (thread-safe, shared across goroutines)

	mu     sync.Mutex
	leases map[string]lease // key → live lease
}

type lease struct {
	id     clientv3.LeaseID
	cancel context.CancelFunc // Stops the keepalive
}

// NewEtcdRegistry creates a new registry connected to the given etcd endpoints.
func NewEtcdRegistry(endpoints []string) (*EtcdRegistry, error) {
	c, err := clientv3.New(clientv3.Config{
		Endpoints: endpoints,
	})
	if err != nil {
		return nil, err
	}
	return &EtcdRegistry{client: c, leases: make(map[string]lease)}, nil
}

func targetPrefix(targetID string) string {
	return keyPrefix + targetID + "/"
}

// Register stores reg under a lease of ttl seconds and keeps the lease alive
// until Deregister or Close. Registering the same pair again replaces its lease.
func (r *EtcdRegistry) Register(reg Registration, ttl int64) error {
	ctx := context.TODO()
	key := targetPrefix(reg.TargetID) + reg.Interface

	val, err := json.Marshal(reg)
	if err != nil {
		return err
	}

	grant, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return err
	}

	if _, err := r.client.Put(ctx, key, string(val), clientv3.WithLease(grant.ID)); err != nil {
		r.client.Revoke(ctx, grant.ID)
		return err
	}

	kaCtx, cancel := context.WithCancel(context.Background())
	ch, err := r.client.KeepAlive(kaCtx, grant.ID)
	if err != nil {
		cancel()
		r.client.Revoke(ctx, grant.ID)
		return err
	}

	// Drain KeepAlive responses so the channel never fills up; it closes on cancel
	go func() {
		for range ch {
		}
	}()

	r.mu.Lock()
	old, replaced := r.leases[key]
	r.leases[key] = lease{id: grant.ID, cancel: cancel}
	r.mu.Unlock()
	if replaced {
		old.cancel()
		// The key now belongs to the new lease, so revoking the old one keeps it
		r.client.Revoke(ctx, old.id)
	}
	return nil
}

// Deregister removes one (target, interface) entry and releases its lease.
func (r *EtcdRegistry) Deregister(targetID string, iface string) error {
	key := targetPrefix(targetID) + iface

	r.mu.Lock()
	l, ok := r.leases[key]
	delete(r.leases, key)
	r.mu.Unlock()

	if !ok {
		// Not registered through this registry
		_, err := r.client.Delete(context.TODO(), key)
		return err
	}
	l.cancel()
	// Revoking deletes every key attached to the lease
	_, err := r.client.Revoke(context.TODO(), l.id)
	return err
}

// Watch emits the target's full registration list after every change under
// its prefix. The channel is closed once ctx is done.
func (r *EtcdRegistry) Watch(ctx context.Context, targetID string) <-chan []Registration {
	ch := make(chan []Registration, 1)

	go func() {
		defer close(ch)
		watchChan := r.client.Watch(ctx, targetPrefix(targetID), clientv3.WithPrefix())
		for range watchChan {
			// Re-fetch rather than apply individual events
			regs, err := r.Discover(targetID)
			if err != nil {
				// The next event retries
				continue
			}
			select {
			case ch <- regs:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch
}

// Discover returns every interface currently registered for targetID.
func (r *EtcdRegistry) Discover(targetID string) ([]Registration, error) {
	resp, err := r.client.Get(context.TODO(), targetPrefix(targetID), clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	regs := make([]Registration, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var reg Registration
		if err := json.Unmarshal(kv.Value, &reg); err != nil {
			continue // Skip malformed entries
		}
		regs = append(regs, reg)
	}
	return regs, nil
}

// Close stops every keepalive and releases the etcd client. Leases are left
// to expire.
func (r *EtcdRegistry) Close() error {
	r.mu.Lock()
	for key, l := range r.leases {
		l.cancel()
		delete(r.leases, key)
	}
	r.mu.Unlock()
	return r.client.Close()
}

// liveLeases reports how many leases the registry is keeping alive.
func (r *EtcdRegistry) liveLeases() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.leases)
}
