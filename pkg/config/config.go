// Package config loads and validates the daemon configuration file.
package config

import (
	"fmt"
	"net/netip"
	"time"

	"inet.af/netaddr"

	"github.com/veesix-networks/osdhcpd/pkg/logger"
)

// Managed ranges are expanded into individual addresses at load time,
// so an oversized range is a configuration error rather than a silent
// memory sink.
const maxManagedAddrs = 65536

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Admin   AdminConfig   `yaml:"admin"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	// Interface to bind the DHCP socket to, optional.
	Interface string `yaml:"interface"`
	Listen    string `yaml:"listen"`

	ServerIP   string `yaml:"server_ip"`
	SubnetMask string `yaml:"subnet_mask"`

	// Lease durations in seconds.
	DefaultLeaseTime uint32 `yaml:"default_lease_time"`
	MaxLeaseTime     uint32 `yaml:"max_lease_time"`

	// ManagedAddrs is a CIDR ("192.168.1.0/24") or an explicit range
	// ("192.168.1.10-192.168.1.50"). The server's own IP is excluded.
	ManagedAddrs string `yaml:"managed_addrs"`

	Routers     []string `yaml:"routers"`
	NameServers []string `yaml:"name_servers"`

	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type StoreConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

type AdminConfig struct {
	Address string `yaml:"address"`
}

type MetricsConfig struct {
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

type LoggingConfig struct {
	Format     string                     `yaml:"format"`
	Level      logger.LogLevel            `yaml:"level"`
	Components map[string]logger.LogLevel `yaml:"components"`
}

func (c *Config) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = "0.0.0.0:67"
	}
	if c.Server.DefaultLeaseTime == 0 {
		c.Server.DefaultLeaseTime = 86400
	}
	if c.Server.MaxLeaseTime == 0 {
		c.Server.MaxLeaseTime = c.Server.DefaultLeaseTime
	}
	if c.Server.SubnetMask == "" {
		c.Server.SubnetMask = "255.255.255.0"
	}
	if c.Server.SweepInterval == 0 {
		c.Server.SweepInterval = time.Minute
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "sqlite"
	}
	if c.Store.Path == "" {
		c.Store.Path = "/var/lib/osdhcpd/leases.db"
	}
	if c.Admin.Address == "" {
		c.Admin.Address = "127.0.0.1:8067"
	}
	if c.Metrics.Address == "" {
		c.Metrics.Address = ":9667"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = logger.LogLevelInfo
	}
}

func (c *Config) Validate() error {
	if _, err := c.ServerAddr(); err != nil {
		return fmt.Errorf("server.server_ip: %w", err)
	}
	if _, err := c.Mask(); err != nil {
		return fmt.Errorf("server.subnet_mask: %w", err)
	}
	if _, err := c.ManagedRange(); err != nil {
		return fmt.Errorf("server.managed_addrs: %w", err)
	}
	if _, err := c.RouterAddrs(); err != nil {
		return fmt.Errorf("server.routers: %w", err)
	}
	if _, err := c.NameServerAddrs(); err != nil {
		return fmt.Errorf("server.name_servers: %w", err)
	}
	if c.Server.MaxLeaseTime < c.Server.DefaultLeaseTime {
		return fmt.Errorf("server.max_lease_time %d below default_lease_time %d",
			c.Server.MaxLeaseTime, c.Server.DefaultLeaseTime)
	}
	return nil
}

func (c *Config) ServerAddr() (netip.Addr, error) {
	return parseV4(c.Server.ServerIP)
}

func (c *Config) Mask() (netip.Addr, error) {
	return parseV4(c.Server.SubnetMask)
}

func (c *Config) RouterAddrs() ([]netip.Addr, error) {
	return parseV4List(c.Server.Routers)
}

func (c *Config) NameServerAddrs() ([]netip.Addr, error) {
	return parseV4List(c.Server.NameServers)
}

// ManagedRange expands the configured managed address range into the
// individual addresses loaded into the pool. The server's own address
// is never handed out and is excluded here.
func (c *Config) ManagedRange() ([]netip.Addr, error) {
	if c.Server.ManagedAddrs == "" {
		return nil, fmt.Errorf("empty managed range")
	}

	var r netaddr.IPRange
	if prefix, err := netaddr.ParseIPPrefix(c.Server.ManagedAddrs); err == nil {
		r = prefix.Range()
		// Skip the network and broadcast addresses of a CIDR range.
		r = netaddr.IPRangeFrom(r.From().Next(), r.To().Prior())
	} else {
		var err error
		r, err = netaddr.ParseIPRange(c.Server.ManagedAddrs)
		if err != nil {
			return nil, fmt.Errorf("not a CIDR or ip range: %q", c.Server.ManagedAddrs)
		}
	}
	if !r.IsValid() || !r.From().Is4() {
		return nil, fmt.Errorf("managed range must be IPv4: %q", c.Server.ManagedAddrs)
	}

	serverIP, err := c.ServerAddr()
	if err != nil {
		return nil, err
	}

	var addrs []netip.Addr
	// Next() on 255.255.255.255 yields the zero value, so the bound
	// check alone is not enough to terminate at the end of the
	// address space.
	for ip := r.From(); ip.IsValid() && ip.Compare(r.To()) <= 0; ip = ip.Next() {
		addr := netip.AddrFrom4(ip.As4())
		if addr == serverIP {
			continue
		}
		addrs = append(addrs, addr)
		if len(addrs) > maxManagedAddrs {
			return nil, fmt.Errorf("managed range exceeds %d addresses", maxManagedAddrs)
		}
	}
	return addrs, nil
}

func parseV4(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, err
	}
	if !addr.Is4() {
		return netip.Addr{}, fmt.Errorf("not an IPv4 address: %q", s)
	}
	return addr, nil
}

func parseV4List(list []string) ([]netip.Addr, error) {
	addrs := make([]netip.Addr, 0, len(list))
	for _, s := range list {
		addr, err := parseV4(s)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}
