package server

import (
	"net/netip"

	"github.com/veesix-networks/osdhcpd/pkg/config"
)

// Config is the server-side parameter set the protocol core reads on
// every dispatch. It is owned externally (config file, admin API) and
// swapped atomically under the server mutex.
type Config struct {
	ServerIP         netip.Addr
	SubnetMask       netip.Addr
	DefaultLeaseTime uint32
	MaxLeaseTime     uint32
	ManagedAddrs     []netip.Addr
	Routers          []netip.Addr
	NameServers      []netip.Addr
}

// FromConfig converts the validated YAML configuration into the typed
// parameter set. cfg must already have passed Validate.
func FromConfig(cfg *config.Config) (Config, error) {
	serverIP, err := cfg.ServerAddr()
	if err != nil {
		return Config{}, err
	}
	mask, err := cfg.Mask()
	if err != nil {
		return Config{}, err
	}
	managed, err := cfg.ManagedRange()
	if err != nil {
		return Config{}, err
	}
	routers, err := cfg.RouterAddrs()
	if err != nil {
		return Config{}, err
	}
	nameServers, err := cfg.NameServerAddrs()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ServerIP:         serverIP,
		SubnetMask:       mask,
		DefaultLeaseTime: cfg.Server.DefaultLeaseTime,
		MaxLeaseTime:     cfg.Server.MaxLeaseTime,
		ManagedAddrs:     managed,
		Routers:          routers,
		NameServers:      nameServers,
	}, nil
}

// ClientConfig is the per-request negotiated lease configuration.
type ClientConfig struct {
	LeaseTime uint32
}

// maskApply returns addr with the subnet mask applied.
func maskApply(mask, addr netip.Addr) netip.Addr {
	m := mask.As4()
	a := addr.As4()
	var out [4]byte
	for i := range out {
		out[i] = m[i] & a[i]
	}
	return netip.AddrFrom4(out)
}
