package dhcp

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"strings"
)

// Fixed field offsets per RFC 2131 section 2.
const (
	opIdx           = 0
	xidIdx          = 4
	secsIdx         = 8
	flagsIdx        = 10
	ciaddrIdx       = 12
	yiaddrIdx       = 16
	siaddrIdx       = 20
	giaddrIdx       = 24
	chaddrIdx       = 28
	snameIdx        = 44
	fileIdx         = 108
	optionsStartIdx = 236

	snameLen = 64
	fileLen  = 128

	ethernetHType = 1
	ethernetHLen  = 6

	broadcastFlag = 0x80
)

var magicCookie = [4]byte{99, 130, 83, 99}

// Parse decodes a DHCPv4 message from raw bytes. Malformed options are
// skipped so one bad TLV does not discard an otherwise usable message.
func Parse(data []byte) (Message, error) {
	if len(data) < optionsStartIdx {
		return Message{}, fmt.Errorf("short packet: %d bytes", len(data))
	}

	msg := New()
	switch OpCode(data[opIdx]) {
	case BootRequest, BootReply:
		msg.Op = OpCode(data[opIdx])
	default:
		return Message{}, fmt.Errorf("invalid op code %d", data[opIdx])
	}
	msg.XID = binary.BigEndian.Uint32(data[xidIdx:])
	msg.Secs = binary.BigEndian.Uint16(data[secsIdx:])
	msg.Broadcast = data[flagsIdx]&broadcastFlag != 0
	msg.CIAddr = addrAt(data, ciaddrIdx)
	msg.YIAddr = addrAt(data, yiaddrIdx)
	msg.SIAddr = addrAt(data, siaddrIdx)
	msg.GIAddr = addrAt(data, giaddrIdx)
	copy(msg.CHAddr[:], data[chaddrIdx:chaddrIdx+6])
	msg.SName = nulTrimmed(data[snameIdx:fileIdx])
	msg.File = nulTrimmed(data[fileIdx:optionsStartIdx])

	opts := data[optionsStartIdx:]
	if len(opts) >= len(magicCookie) && [4]byte(opts[:4]) == magicCookie {
		msg.Options = parseOptions(opts[4:])
	}
	return msg, nil
}

func parseOptions(buf []byte) []Option {
	var opts []Option
	for len(buf) > 0 {
		code := OptionCode(buf[0])
		buf = buf[1:]
		if code == OptEnd {
			break
		}
		if code == OptPad {
			continue
		}
		if len(buf) == 0 {
			break
		}
		length := int(buf[0])
		buf = buf[1:]
		if length > len(buf) {
			break
		}
		opts = append(opts, Option{Code: code, Value: append([]byte(nil), buf[:length]...)})
		buf = buf[length:]
	}
	return opts
}

// Serialize encodes the message for transmission.
func (m Message) Serialize() []byte {
	buf := make([]byte, optionsStartIdx, optionsStartIdx+64)
	buf[opIdx] = byte(m.Op)
	buf[1] = ethernetHType
	buf[2] = ethernetHLen
	buf[3] = 0 // hops
	binary.BigEndian.PutUint32(buf[xidIdx:], m.XID)
	binary.BigEndian.PutUint16(buf[secsIdx:], m.Secs)
	if m.Broadcast {
		buf[flagsIdx] = broadcastFlag
	}
	putAddr(buf, ciaddrIdx, m.CIAddr)
	putAddr(buf, yiaddrIdx, m.YIAddr)
	putAddr(buf, siaddrIdx, m.SIAddr)
	putAddr(buf, giaddrIdx, m.GIAddr)
	copy(buf[chaddrIdx:], m.CHAddr[:])
	copy(buf[snameIdx:fileIdx], truncated(m.SName, snameLen))
	copy(buf[fileIdx:optionsStartIdx], truncated(m.File, fileLen))

	buf = append(buf, magicCookie[:]...)
	for _, opt := range m.Options {
		buf = append(buf, byte(opt.Code), byte(len(opt.Value)))
		buf = append(buf, opt.Value...)
	}
	buf = append(buf, byte(OptEnd))
	return buf
}

func addrAt(buf []byte, idx int) netip.Addr {
	var b [4]byte
	copy(b[:], buf[idx:idx+4])
	return netip.AddrFrom4(b)
}

func putAddr(buf []byte, idx int, addr netip.Addr) {
	if !addr.IsValid() {
		return
	}
	b := addr.As4()
	copy(buf[idx:idx+4], b[:])
}

func nulTrimmed(buf []byte) string {
	return strings.TrimRight(string(buf), "\x00")
}

func truncated(s string, n int) []byte {
	if len(s) > n {
		return []byte(s[:n])
	}
	return []byte(s)
}
