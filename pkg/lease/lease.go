// Package lease holds the server's in-memory cache of client bindings:
// one CachedConfig per client MAC. The cache is the unit persisted to
// the external lease store.
package lease

import (
	"net/netip"

	"github.com/veesix-networks/osdhcpd/pkg/dhcp"
)

// CachedConfig records the address and options granted to one client,
// and the instant the lease stops being valid. Expiration is a logical
// timestamp from the server's injected time source, not wall clock.
type CachedConfig struct {
	Addr       netip.Addr    `json:"addr"`
	Options    []dhcp.Option `json:"options"`
	Expiration int64         `json:"expiration"`
}

func (c CachedConfig) Expired(now int64) bool {
	return c.Expiration <= now
}

// Cache maps a client hardware address to its cached lease. Expiry
// decisions belong to the caller; the cache itself never reads time.
type Cache struct {
	entries map[dhcp.MAC]CachedConfig
}

func NewCache() *Cache {
	return &Cache{entries: make(map[dhcp.MAC]CachedConfig)}
}

// FromEntries builds a cache from records loaded out of the persistent
// store at startup.
func FromEntries(entries map[dhcp.MAC]CachedConfig) *Cache {
	if entries == nil {
		entries = make(map[dhcp.MAC]CachedConfig)
	}
	return &Cache{entries: entries}
}

func (c *Cache) Get(mac dhcp.MAC) (CachedConfig, bool) {
	cfg, ok := c.entries[mac]
	return cfg, ok
}

// Insert stores the config for mac, overwriting any previous entry.
func (c *Cache) Insert(mac dhcp.MAC, cfg CachedConfig) {
	c.entries[mac] = cfg
}

func (c *Cache) Remove(mac dhcp.MAC) {
	delete(c.entries, mac)
}

func (c *Cache) Contains(mac dhcp.MAC) bool {
	_, ok := c.entries[mac]
	return ok
}

func (c *Cache) Len() int {
	return len(c.entries)
}

// Snapshot copies the entries so callers can mutate the cache while
// walking the result.
func (c *Cache) Snapshot() map[dhcp.MAC]CachedConfig {
	out := make(map[dhcp.MAC]CachedConfig, len(c.entries))
	for mac, cfg := range c.entries {
		out[mac] = cfg
	}
	return out
}
