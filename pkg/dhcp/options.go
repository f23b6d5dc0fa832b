package dhcp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"
)

// OptionCode is a DHCP option code per RFC 2132. Only the codes the
// server produces or inspects are named; unknown codes are still parsed
// and carried opaquely.
type OptionCode uint8

const (
	OptPad           OptionCode = 0
	OptSubnetMask    OptionCode = 1
	OptRouter        OptionCode = 3
	OptDNSServer     OptionCode = 6
	OptRequestedIP   OptionCode = 50
	OptLeaseTime     OptionCode = 51
	OptMessageType   OptionCode = 53
	OptServerID      OptionCode = 54
	OptParameterList OptionCode = 55
	OptMessage       OptionCode = 56
	OptRenewalTime   OptionCode = 58
	OptRebindingTime OptionCode = 59
	OptEnd           OptionCode = 255
)

// Option is a single DHCP option TLV. A zero-length Value encodes a
// fixed-length (payload-less) option.
type Option struct {
	Code  OptionCode
	Value []byte
}

var (
	ErrNoMessageType    = errors.New("required message type option is missing")
	ErrEmptyMessageType = errors.New("required message type value is missing")
)

type UnknownMessageTypeError struct {
	Value uint8
}

func (e *UnknownMessageTypeError) Error() string {
	return fmt.Sprintf("unknown message type %d", e.Value)
}

// IP decodes a 4-byte option payload as an IPv4 address.
func (o Option) IP() (netip.Addr, bool) {
	if len(o.Value) != 4 {
		return netip.Addr{}, false
	}
	var b [4]byte
	copy(b[:], o.Value)
	return netip.AddrFrom4(b), true
}

// U32 decodes a 4-byte option payload as a big-endian uint32.
func (o Option) U32() (uint32, bool) {
	if len(o.Value) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(o.Value), true
}

func IPOption(code OptionCode, addr netip.Addr) Option {
	b := addr.As4()
	return Option{Code: code, Value: b[:]}
}

func IPListOption(code OptionCode, addrs []netip.Addr) Option {
	value := make([]byte, 0, 4*len(addrs))
	for _, addr := range addrs {
		b := addr.As4()
		value = append(value, b[:]...)
	}
	return Option{Code: code, Value: value}
}

func U32Option(code OptionCode, v uint32) Option {
	value := make([]byte, 4)
	binary.BigEndian.PutUint32(value, v)
	return Option{Code: code, Value: value}
}

func MessageTypeOption(t MessageType) Option {
	return Option{Code: OptMessageType, Value: []byte{byte(t)}}
}

func StringOption(code OptionCode, s string) Option {
	return Option{Code: code, Value: []byte(s)}
}
