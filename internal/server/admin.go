package server

import (
	"fmt"
	"net/netip"
	"sort"

	"github.com/veesix-networks/osdhcpd/pkg/dhcp"
)

// LeaseRecord is the administrative view of one cached binding.
type LeaseRecord struct {
	MAC        string     `json:"mac"`
	Addr       netip.Addr `json:"addr"`
	Expiration int64      `json:"expiration"`
	Expired    bool       `json:"expired"`
}

// PoolStats reports the current pool partition sizes.
type PoolStats struct {
	Available int `json:"available"`
	Allocated int `json:"allocated"`
}

// Leases returns every cached binding, sorted by MAC.
func (s *Server) Leases() []LeaseRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	records := make([]LeaseRecord, 0, s.cache.Len())
	for mac, cached := range s.cache.Snapshot() {
		records = append(records, LeaseRecord{
			MAC:        mac.String(),
			Addr:       cached.Addr,
			Expiration: cached.Expiration,
			Expired:    cached.Expired(now),
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].MAC < records[j].MAC })
	return records
}

// Stats returns the pool partition sizes.
func (s *Server) Stats() PoolStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return PoolStats{
		Available: s.pool.AvailableCount(),
		Allocated: s.pool.AllocatedCount(),
	}
}

// GetOption returns the value the server currently hands out for the
// given DHCP option code.
func (s *Server) GetOption(code dhcp.OptionCode) (dhcp.Option, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch code {
	case dhcp.OptSubnetMask:
		return dhcp.IPOption(dhcp.OptSubnetMask, s.cfg.SubnetMask), nil
	case dhcp.OptRouter:
		return dhcp.IPListOption(dhcp.OptRouter, s.cfg.Routers), nil
	case dhcp.OptDNSServer:
		return dhcp.IPListOption(dhcp.OptDNSServer, s.cfg.NameServers), nil
	case dhcp.OptLeaseTime:
		return dhcp.U32Option(dhcp.OptLeaseTime, s.cfg.DefaultLeaseTime), nil
	case dhcp.OptServerID:
		return dhcp.IPOption(dhcp.OptServerID, s.cfg.ServerIP), nil
	default:
		return dhcp.Option{}, fmt.Errorf("option %d is not configured", code)
	}
}

// SetOption updates the value the server hands out for the given
// option code. Only the option codes the server emits can be set.
func (s *Server) SetOption(opt dhcp.Option) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch opt.Code {
	case dhcp.OptSubnetMask:
		addr, ok := opt.IP()
		if !ok {
			return fmt.Errorf("subnet mask option has %d bytes", len(opt.Value))
		}
		s.cfg.SubnetMask = addr
	case dhcp.OptRouter:
		addrs, err := ipList(opt)
		if err != nil {
			return err
		}
		s.cfg.Routers = addrs
	case dhcp.OptDNSServer:
		addrs, err := ipList(opt)
		if err != nil {
			return err
		}
		s.cfg.NameServers = addrs
	default:
		return fmt.Errorf("option %d cannot be set", opt.Code)
	}
	return nil
}

// ListOptions returns every option value the server currently emits.
func (s *Server) ListOptions() []dhcp.Option {
	s.mu.Lock()
	defer s.mu.Unlock()

	opts := []dhcp.Option{
		dhcp.IPOption(dhcp.OptSubnetMask, s.cfg.SubnetMask),
		dhcp.U32Option(dhcp.OptLeaseTime, s.cfg.DefaultLeaseTime),
		dhcp.IPOption(dhcp.OptServerID, s.cfg.ServerIP),
	}
	if len(s.cfg.Routers) > 0 {
		opts = append(opts, dhcp.IPListOption(dhcp.OptRouter, s.cfg.Routers))
	}
	if len(s.cfg.NameServers) > 0 {
		opts = append(opts, dhcp.IPListOption(dhcp.OptDNSServer, s.cfg.NameServers))
	}
	return opts
}

// Parameters is the administrative view of the server-level knobs
// that are not client-visible DHCP options.
type Parameters struct {
	ServerIP         netip.Addr `json:"server_ip"`
	DefaultLeaseTime uint32     `json:"default_lease_time"`
	MaxLeaseTime     uint32     `json:"max_lease_time"`
	ManagedAddrs     int        `json:"managed_addrs"`
}

// GetParameters returns the current server parameters.
func (s *Server) GetParameters() Parameters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Parameters{
		ServerIP:         s.cfg.ServerIP,
		DefaultLeaseTime: s.cfg.DefaultLeaseTime,
		MaxLeaseTime:     s.cfg.MaxLeaseTime,
		ManagedAddrs:     len(s.cfg.ManagedAddrs),
	}
}

// SetLeaseTimes updates the lease-time parameters. Existing leases
// keep the expiration they were granted.
func (s *Server) SetLeaseTimes(defaultSecs, maxSecs uint32) error {
	if defaultSecs == 0 || maxSecs == 0 {
		return fmt.Errorf("lease times must be non-zero")
	}
	if defaultSecs > maxSecs {
		return fmt.Errorf("default lease time %d exceeds maximum %d", defaultSecs, maxSecs)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.DefaultLeaseTime = defaultSecs
	s.cfg.MaxLeaseTime = maxSecs
	return nil
}

// UpdateConfig swaps in a new server configuration. The pool only
// grows: addresses added to the managed range become available, but
// addresses removed from it stay wherever they are until released.
func (s *Server) UpdateConfig(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.pool.Load(cfg.ManagedAddrs)
}

func ipList(opt dhcp.Option) ([]netip.Addr, error) {
	if len(opt.Value)%4 != 0 || len(opt.Value) == 0 {
		return nil, fmt.Errorf("option %d has %d bytes, want a multiple of 4", opt.Code, len(opt.Value))
	}
	addrs := make([]netip.Addr, 0, len(opt.Value)/4)
	for i := 0; i < len(opt.Value); i += 4 {
		addr, _ := netip.AddrFromSlice(opt.Value[i : i+4])
		addrs = append(addrs, addr)
	}
	return addrs, nil
}
