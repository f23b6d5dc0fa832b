package server

import (
	"net/netip"

	"github.com/veesix-networks/osdhcpd/pkg/dhcp"
)

// Action is the outcome of a successful Dispatch: either a response to
// put on the wire, or an acknowledgment that a client's DECLINE or
// RELEASE was processed.
type Action interface {
	isAction()
}

// SendResponse carries a response message and, when valid, the
// transport destination it should be unicast to. An invalid Dest means
// the transport layer decides (relay via giaddr, or broadcast).
type SendResponse struct {
	Message dhcp.Message
	Dest    netip.Addr
}

// AddressDecline acknowledges a processed DHCPDECLINE.
type AddressDecline struct {
	Addr netip.Addr
}

// AddressRelease acknowledges a processed DHCPRELEASE.
type AddressRelease struct {
	Addr netip.Addr
}

func (SendResponse) isAction()   {}
func (AddressDecline) isAction() {}
func (AddressRelease) isAction() {}
