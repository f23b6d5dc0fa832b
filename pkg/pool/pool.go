// Package pool tracks the IPv4 addresses managed by the server as two
// disjoint sets, available and allocated. An address never sits in both
// sets; an address in neither set is not managed by this pool.
package pool

import (
	"errors"
	"fmt"
	"net/netip"
)

var ErrExhausted = errors.New("address pool does not have any available ip to hand out")

type UnavailableAllocationError struct {
	Addr netip.Addr
}

func (e *UnavailableAllocationError) Error() string {
	return fmt.Sprintf("attempted to allocate unavailable ip: %s", e.Addr)
}

type UnallocatedReleaseError struct {
	Addr netip.Addr
}

func (e *UnallocatedReleaseError) Error() string {
	return fmt.Sprintf("attempted to release unallocated ip: %s", e.Addr)
}

type Pool struct {
	available map[netip.Addr]struct{}
	allocated map[netip.Addr]struct{}
}

func New() *Pool {
	return &Pool{
		available: make(map[netip.Addr]struct{}),
		allocated: make(map[netip.Addr]struct{}),
	}
}

// Load inserts every address not already allocated into the available
// set. It is idempotent and is also used to re-load the pool when the
// managed range changes.
func (p *Pool) Load(addrs []netip.Addr) {
	for _, addr := range addrs {
		if _, ok := p.allocated[addr]; !ok {
			p.available[addr] = struct{}{}
		}
	}
}

// NextAvailable returns the numerically smallest available address
// without allocating it. Allocation order must be deterministic so
// offers are reproducible.
func (p *Pool) NextAvailable() (netip.Addr, error) {
	var next netip.Addr
	for addr := range p.available {
		if !next.IsValid() || addr.Compare(next) < 0 {
			next = addr
		}
	}
	if !next.IsValid() {
		return netip.Addr{}, ErrExhausted
	}
	return next, nil
}

// Allocate moves addr from available to allocated. It fails if addr is
// not currently available, including when addr is already allocated or
// not managed at all.
func (p *Pool) Allocate(addr netip.Addr) error {
	if _, ok := p.available[addr]; !ok {
		return &UnavailableAllocationError{Addr: addr}
	}
	delete(p.available, addr)
	p.allocated[addr] = struct{}{}
	return nil
}

// Release moves addr from allocated back to available. It fails if addr
// is not currently allocated.
func (p *Pool) Release(addr netip.Addr) error {
	if _, ok := p.allocated[addr]; !ok {
		return &UnallocatedReleaseError{Addr: addr}
	}
	delete(p.allocated, addr)
	p.available[addr] = struct{}{}
	return nil
}

func (p *Pool) IsAvailable(addr netip.Addr) bool {
	_, avail := p.available[addr]
	_, alloc := p.allocated[addr]
	return avail && !alloc
}

func (p *Pool) IsAllocated(addr netip.Addr) bool {
	_, avail := p.available[addr]
	_, alloc := p.allocated[addr]
	return alloc && !avail
}

// Empty reports whether the pool manages no addresses at all. The
// server uses this as the "should not serve" signal.
func (p *Pool) Empty() bool {
	return len(p.available) == 0 && len(p.allocated) == 0
}

func (p *Pool) AvailableCount() int {
	return len(p.available)
}

func (p *Pool) AllocatedCount() int {
	return len(p.allocated)
}
