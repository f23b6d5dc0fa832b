package server

import (
	"net/netip"

	"github.com/veesix-networks/osdhcpd/pkg/dhcp"
)

var limitedBroadcast = netip.AddrFrom4([4]byte{255, 255, 255, 255})

// destinationAddr computes where the response to msg should be sent,
// following RFC 2131 section 4.1 page 22 paragraph 4. An invalid
// return value means no explicit destination applies.
func destinationAddr(msg *dhcp.Message) netip.Addr {
	if !msg.GIAddr.IsUnspecified() {
		return msg.GIAddr
	}
	if !msg.CIAddr.IsUnspecified() {
		return msg.CIAddr
	}
	if msg.Broadcast {
		return limitedBroadcast
	}
	t, err := msg.Type()
	if err != nil {
		return netip.Addr{}
	}
	switch t {
	case dhcp.MsgDiscover:
		// The RFC wants the reply unicast to chaddr via an ARP table
		// entry. Without ARP injection the response is broadcast on
		// the subnet instead.
		return limitedBroadcast
	case dhcp.MsgRequest, dhcp.MsgInform:
		return msg.YIAddr
	default:
		return netip.Addr{}
	}
}
