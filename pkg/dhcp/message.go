// Package dhcp holds the DHCPv4 message model shared by the transport
// layer and the protocol core. The core treats Message as an already
// parsed record; only the codec in this package touches wire bytes.
package dhcp

import (
	"fmt"
	"net"
	"net/netip"
)

const (
	ServerPort = 67
	ClientPort = 68
)

type OpCode uint8

const (
	BootRequest OpCode = 1
	BootReply   OpCode = 2
)

func (o OpCode) String() string {
	switch o {
	case BootRequest:
		return "BOOTREQUEST"
	case BootReply:
		return "BOOTREPLY"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(o))
	}
}

type MessageType uint8

const (
	MsgDiscover MessageType = 1
	MsgOffer    MessageType = 2
	MsgRequest  MessageType = 3
	MsgDecline  MessageType = 4
	MsgAck      MessageType = 5
	MsgNak      MessageType = 6
	MsgRelease  MessageType = 7
	MsgInform   MessageType = 8
)

func (mt MessageType) String() string {
	switch mt {
	case MsgDiscover:
		return "DHCPDISCOVER"
	case MsgOffer:
		return "DHCPOFFER"
	case MsgRequest:
		return "DHCPREQUEST"
	case MsgDecline:
		return "DHCPDECLINE"
	case MsgAck:
		return "DHCPACK"
	case MsgNak:
		return "DHCPNAK"
	case MsgRelease:
		return "DHCPRELEASE"
	case MsgInform:
		return "DHCPINFORM"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(mt))
	}
}

// MAC is a comparable Ethernet hardware address, usable as a map key.
type MAC [6]byte

func (m MAC) String() string {
	return net.HardwareAddr(m[:]).String()
}

func (m MAC) HardwareAddr() net.HardwareAddr {
	return net.HardwareAddr(m[:])
}

func MACFromHardwareAddr(hw net.HardwareAddr) MAC {
	var m MAC
	copy(m[:], hw)
	return m
}

// Message is a DHCPv4 message per RFC 2131. Field names follow the RFC.
// htype, hlen, and hops are effectively constants for Ethernet and are
// not carried; the codec fills them in.
type Message struct {
	Op        OpCode
	XID       uint32
	Secs      uint16
	Broadcast bool
	CIAddr    netip.Addr
	YIAddr    netip.Addr
	SIAddr    netip.Addr
	GIAddr    netip.Addr
	CHAddr    MAC
	SName     string
	File      string
	Options   []Option
}

// New returns a Message with every address field set to 0.0.0.0.
func New() Message {
	unspec := netip.IPv4Unspecified()
	return Message{
		Op:     BootRequest,
		CIAddr: unspec,
		YIAddr: unspec,
		SIAddr: unspec,
		GIAddr: unspec,
	}
}

// Clone returns a deep copy. Response builders edit the copy in place.
func (m Message) Clone() Message {
	out := m
	out.Options = make([]Option, len(m.Options))
	for i, opt := range m.Options {
		out.Options[i] = Option{Code: opt.Code, Value: append([]byte(nil), opt.Value...)}
	}
	return out
}

// Option returns the first option with the given code.
func (m *Message) Option(code OptionCode) (Option, bool) {
	// Messages carry few options so a linear scan is fine.
	for _, opt := range m.Options {
		if opt.Code == code {
			return opt, true
		}
	}
	return Option{}, false
}

// Type extracts the DHCP message type option.
func (m *Message) Type() (MessageType, error) {
	opt, ok := m.Option(OptMessageType)
	if !ok {
		return 0, ErrNoMessageType
	}
	if len(opt.Value) == 0 {
		return 0, ErrEmptyMessageType
	}
	t := MessageType(opt.Value[0])
	if t < MsgDiscover || t > MsgInform {
		return 0, &UnknownMessageTypeError{Value: opt.Value[0]}
	}
	return t, nil
}

// RequestedIP extracts the requested-IP-address option, if present and
// well formed.
func (m *Message) RequestedIP() (netip.Addr, bool) {
	opt, ok := m.Option(OptRequestedIP)
	if !ok {
		return netip.Addr{}, false
	}
	return opt.IP()
}

// ServerID extracts the server-identifier option, if present and well
// formed.
func (m *Message) ServerID() (netip.Addr, bool) {
	opt, ok := m.Option(OptServerID)
	if !ok {
		return netip.Addr{}, false
	}
	return opt.IP()
}

// LeaseTime extracts the requested lease time in seconds.
func (m *Message) LeaseTime() (uint32, bool) {
	opt, ok := m.Option(OptLeaseTime)
	if !ok {
		return 0, false
	}
	return opt.U32()
}
