package pool

import (
	"errors"
	"net/netip"
	"testing"
)

func addr(s string) netip.Addr {
	return netip.MustParseAddr(s)
}

func testAddrs() []netip.Addr {
	return []netip.Addr{
		addr("192.168.1.10"),
		addr("192.168.1.11"),
		addr("192.168.1.12"),
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	p := New()
	p.Load(testAddrs())
	p.Load(testAddrs())

	if got := p.AvailableCount(); got != 3 {
		t.Fatalf("AvailableCount() = %d, want 3", got)
	}
	if got := p.AllocatedCount(); got != 0 {
		t.Fatalf("AllocatedCount() = %d, want 0", got)
	}
}

func TestLoadDoesNotResurrectAllocated(t *testing.T) {
	p := New()
	p.Load(testAddrs())
	if err := p.Allocate(addr("192.168.1.10")); err != nil {
		t.Fatalf("Allocate() = %v", err)
	}

	p.Load(testAddrs())

	if p.IsAvailable(addr("192.168.1.10")) {
		t.Fatal("allocated address became available after re-load")
	}
	if !p.IsAllocated(addr("192.168.1.10")) {
		t.Fatal("allocated address lost its allocation after re-load")
	}
}

func TestNextAvailableReturnsSmallest(t *testing.T) {
	p := New()
	p.Load([]netip.Addr{
		addr("192.168.1.12"),
		addr("192.168.1.10"),
		addr("192.168.1.11"),
	})

	next, err := p.NextAvailable()
	if err != nil {
		t.Fatalf("NextAvailable() = %v", err)
	}
	if next != addr("192.168.1.10") {
		t.Fatalf("NextAvailable() = %s, want 192.168.1.10", next)
	}
	// Peek only: nothing was allocated.
	if !p.IsAvailable(next) {
		t.Fatal("NextAvailable() allocated the address")
	}
}

func TestNextAvailableExhausted(t *testing.T) {
	p := New()
	if _, err := p.NextAvailable(); !errors.Is(err, ErrExhausted) {
		t.Fatalf("NextAvailable() = %v, want ErrExhausted", err)
	}

	p.Load([]netip.Addr{addr("192.168.1.10")})
	if err := p.Allocate(addr("192.168.1.10")); err != nil {
		t.Fatalf("Allocate() = %v", err)
	}
	if _, err := p.NextAvailable(); !errors.Is(err, ErrExhausted) {
		t.Fatalf("NextAvailable() with all allocated = %v, want ErrExhausted", err)
	}
}

func TestAllocateUnavailable(t *testing.T) {
	p := New()
	p.Load(testAddrs())

	var wantErr *UnavailableAllocationError
	if err := p.Allocate(addr("10.0.0.1")); !errors.As(err, &wantErr) {
		t.Fatalf("Allocate(unmanaged) = %v, want UnavailableAllocationError", err)
	}

	if err := p.Allocate(addr("192.168.1.10")); err != nil {
		t.Fatalf("Allocate() = %v", err)
	}
	if err := p.Allocate(addr("192.168.1.10")); !errors.As(err, &wantErr) {
		t.Fatalf("double Allocate() = %v, want UnavailableAllocationError", err)
	}
}

func TestReleaseUnallocated(t *testing.T) {
	p := New()
	p.Load(testAddrs())

	var wantErr *UnallocatedReleaseError
	if err := p.Release(addr("192.168.1.10")); !errors.As(err, &wantErr) {
		t.Fatalf("Release(available) = %v, want UnallocatedReleaseError", err)
	}
	if err := p.Release(addr("10.0.0.1")); !errors.As(err, &wantErr) {
		t.Fatalf("Release(unmanaged) = %v, want UnallocatedReleaseError", err)
	}
}

func TestAllocateReleaseRoundTrip(t *testing.T) {
	p := New()
	p.Load(testAddrs())
	a := addr("192.168.1.11")

	if err := p.Allocate(a); err != nil {
		t.Fatalf("Allocate() = %v", err)
	}
	if p.IsAvailable(a) || !p.IsAllocated(a) {
		t.Fatal("address not moved to allocated")
	}
	if err := p.Release(a); err != nil {
		t.Fatalf("Release() = %v", err)
	}
	if !p.IsAvailable(a) || p.IsAllocated(a) {
		t.Fatal("address not moved back to available")
	}
}

func TestEmpty(t *testing.T) {
	p := New()
	if !p.Empty() {
		t.Fatal("new pool should be empty")
	}
	p.Load([]netip.Addr{addr("192.168.1.10")})
	if p.Empty() {
		t.Fatal("loaded pool should not be empty")
	}
	if err := p.Allocate(addr("192.168.1.10")); err != nil {
		t.Fatalf("Allocate() = %v", err)
	}
	// Fully allocated still means managed.
	if p.Empty() {
		t.Fatal("fully allocated pool should not be empty")
	}
}
