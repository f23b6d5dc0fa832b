package pool

import (
	"net/netip"
	"testing"

	"pgregory.net/rapid"
)

// The pool's partition invariant: every managed address is in exactly
// one of available or allocated, no matter what sequence of operations
// runs against it.
func TestPoolPartitionInvariant(t *testing.T) {
	managed := make([]netip.Addr, 0, 16)
	for i := 0; i < 16; i++ {
		managed = append(managed, netip.AddrFrom4([4]byte{10, 0, 0, byte(10 + i)}))
	}

	rapid.Check(t, func(t *rapid.T) {
		p := New()
		p.Load(managed)

		anyAddr := rapid.SampledFrom(managed)
		t.Repeat(map[string]func(*rapid.T){
			"allocate": func(t *rapid.T) {
				a := anyAddr.Draw(t, "addr")
				wasAvailable := p.IsAvailable(a)
				err := p.Allocate(a)
				if wasAvailable && err != nil {
					t.Fatalf("Allocate(available %s) = %v", a, err)
				}
				if !wasAvailable && err == nil {
					t.Fatalf("Allocate(unavailable %s) succeeded", a)
				}
			},
			"release": func(t *rapid.T) {
				a := anyAddr.Draw(t, "addr")
				wasAllocated := p.IsAllocated(a)
				err := p.Release(a)
				if wasAllocated && err != nil {
					t.Fatalf("Release(allocated %s) = %v", a, err)
				}
				if !wasAllocated && err == nil {
					t.Fatalf("Release(unallocated %s) succeeded", a)
				}
			},
			"reload": func(t *rapid.T) {
				p.Load(managed)
			},
			"": func(t *rapid.T) {
				if p.AvailableCount()+p.AllocatedCount() != len(managed) {
					t.Fatalf("partition broken: %d available + %d allocated != %d managed",
						p.AvailableCount(), p.AllocatedCount(), len(managed))
				}
				for _, a := range managed {
					if p.IsAvailable(a) == p.IsAllocated(a) {
						t.Fatalf("%s is in both or neither set", a)
					}
				}
			},
		})
	})
}
