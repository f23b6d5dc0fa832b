// Package store defines the persistent lease store consumed by the
// server. Implementations are registered by name so the backend can be
// chosen from configuration.
package store

import (
	"github.com/veesix-networks/osdhcpd/pkg/dhcp"
	"github.com/veesix-networks/osdhcpd/pkg/lease"
)

// Store persists client bindings across restarts. Load is called once
// at startup; Store on every successful offer; Delete from the expiry
// sweep, best effort.
type Store interface {
	Load() (map[dhcp.MAC]lease.CachedConfig, error)
	Store(mac dhcp.MAC, cfg lease.CachedConfig) error
	Delete(mac dhcp.MAC) error
	Close() error
}

type Factory func(path string) (Store, error)

var factories = make(map[string]Factory)

func Register(name string, factory Factory) {
	factories[name] = factory
}

func Get(name string) (Factory, bool) {
	factory, exists := factories[name]
	return factory, exists
}

func List() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}
