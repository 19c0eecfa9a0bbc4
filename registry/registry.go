// Package registry announces which RPC interfaces each target serves.
//
// The bridge registers one entry per (target, interface) pair when a target is
// attached and withdraws it when the target is detached, so remote clients can
// tell a stale target from a live one before sending calls.
package registry

import "context"

// Registration describes one interface served by one target.
type Registration struct {
	TargetID  string
	Interface string
	Addr      string // Address of the bridge hosting the target
}

type Registry interface {
	Register(reg Registration, ttl int64) error
	Deregister(targetID string, iface string) error
	Discover(targetID string) ([]Registration, error)
	// Watch streams the target's registrations after each change until ctx
	// is done. The bridge only publishes; Watch serves client processes.
	Watch(ctx context.Context, targetID string) <-chan []Registration
}
