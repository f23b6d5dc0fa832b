package dhcp

import (
	"bytes"
	"net"
	"net/netip"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

func testMessage() Message {
	msg := New()
	msg.Op = BootRequest
	msg.XID = 0x3903f326
	msg.Secs = 4
	msg.CIAddr = netip.MustParseAddr("192.168.1.55")
	msg.CHAddr = MAC{0x00, 0x0b, 0x82, 0x01, 0xfc, 0x42}
	msg.SName = "dhcp-server"
	msg.File = "pxelinux.0"
	msg.Options = []Option{
		MessageTypeOption(MsgRequest),
		IPOption(OptRequestedIP, netip.MustParseAddr("192.168.1.55")),
		IPOption(OptServerID, netip.MustParseAddr("192.168.1.1")),
	}
	return msg
}

func TestParseSerializeRoundTrip(t *testing.T) {
	want := testMessage()

	got, err := Parse(want.Serialize())
	if err != nil {
		t.Fatalf("Parse() = %v", err)
	}

	if got.Op != want.Op || got.XID != want.XID || got.Secs != want.Secs {
		t.Fatalf("header mismatch: got %+v, want %+v", got, want)
	}
	if got.CIAddr != want.CIAddr || got.YIAddr != want.YIAddr ||
		got.SIAddr != want.SIAddr || got.GIAddr != want.GIAddr {
		t.Fatalf("address mismatch: got %+v, want %+v", got, want)
	}
	if got.CHAddr != want.CHAddr {
		t.Fatalf("CHAddr = %s, want %s", got.CHAddr, want.CHAddr)
	}
	if got.SName != want.SName || got.File != want.File {
		t.Fatalf("sname/file mismatch: got %q/%q, want %q/%q",
			got.SName, got.File, want.SName, want.File)
	}
	if len(got.Options) != len(want.Options) {
		t.Fatalf("Options count = %d, want %d", len(got.Options), len(want.Options))
	}
	for i := range want.Options {
		if got.Options[i].Code != want.Options[i].Code ||
			!bytes.Equal(got.Options[i].Value, want.Options[i].Value) {
			t.Fatalf("option %d = %+v, want %+v", i, got.Options[i], want.Options[i])
		}
	}
}

func TestParseShortPacket(t *testing.T) {
	if _, err := Parse(make([]byte, 100)); err == nil {
		t.Fatal("Parse(short packet) succeeded")
	}
}

func TestParseBadOpCode(t *testing.T) {
	raw := testMessage().Serialize()
	raw[0] = 9
	if _, err := Parse(raw); err == nil {
		t.Fatal("Parse(bad op) succeeded")
	}
}

func TestParseMissingMagicCookie(t *testing.T) {
	raw := testMessage().Serialize()
	raw[optionsStartIdx] = 0

	msg, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse() = %v", err)
	}
	// Without the cookie the options area is not interpreted.
	if len(msg.Options) != 0 {
		t.Fatalf("Options = %v, want none", msg.Options)
	}
}

func TestParseBroadcastFlag(t *testing.T) {
	msg := testMessage()
	msg.Broadcast = true

	got, err := Parse(msg.Serialize())
	if err != nil {
		t.Fatalf("Parse() = %v", err)
	}
	if !got.Broadcast {
		t.Fatal("broadcast flag lost in round trip")
	}
}

func TestParseOptionsSkipsPadAndStopsAtEnd(t *testing.T) {
	opts := parseOptions([]byte{
		0,             // pad
		53, 1, 1,      // message type discover
		0, 0,          // pad, pad
		255,           // end
		50, 4, 1, 2, 3, 4, // after end, must be ignored
	})
	if len(opts) != 1 {
		t.Fatalf("parseOptions() = %v, want 1 option", opts)
	}
	if opts[0].Code != OptMessageType {
		t.Fatalf("option code = %d, want %d", opts[0].Code, OptMessageType)
	}
}

func TestParseOptionsTruncatedValue(t *testing.T) {
	// Length claims 4 bytes but only 2 remain.
	opts := parseOptions([]byte{50, 4, 1, 2})
	if len(opts) != 0 {
		t.Fatalf("parseOptions() = %v, want none", opts)
	}
}

// Cross-validate the codec against an independent DHCPv4 implementation.
func TestSerializeDecodesWithGopacket(t *testing.T) {
	msg := testMessage()
	msg.YIAddr = netip.MustParseAddr("192.168.1.55")

	packet := gopacket.NewPacket(msg.Serialize(), layers.LayerTypeDHCPv4, gopacket.Default)
	layer := packet.Layer(layers.LayerTypeDHCPv4)
	if layer == nil {
		t.Fatalf("gopacket did not decode a DHCPv4 layer: %v", packet.ErrorLayer())
	}
	decoded := layer.(*layers.DHCPv4)

	if decoded.Operation != layers.DHCPOpRequest {
		t.Fatalf("Operation = %v, want request", decoded.Operation)
	}
	if decoded.Xid != msg.XID {
		t.Fatalf("Xid = %#x, want %#x", decoded.Xid, msg.XID)
	}
	if decoded.Secs != msg.Secs {
		t.Fatalf("Secs = %d, want %d", decoded.Secs, msg.Secs)
	}
	if !decoded.ClientIP.Equal(net.IP(msg.CIAddr.AsSlice())) {
		t.Fatalf("ClientIP = %s, want %s", decoded.ClientIP, msg.CIAddr)
	}
	if !decoded.YourClientIP.Equal(net.IP(msg.YIAddr.AsSlice())) {
		t.Fatalf("YourClientIP = %s, want %s", decoded.YourClientIP, msg.YIAddr)
	}
	if !bytes.Equal(decoded.ClientHWAddr[:6], msg.CHAddr[:]) {
		t.Fatalf("ClientHWAddr = %s, want %s", decoded.ClientHWAddr, msg.CHAddr)
	}

	var sawType, sawRequested, sawServerID bool
	for _, opt := range decoded.Options {
		switch opt.Type {
		case layers.DHCPOptMessageType:
			sawType = opt.Length == 1 && layers.DHCPMsgType(opt.Data[0]) == layers.DHCPMsgTypeRequest
		case layers.DHCPOptRequestIP:
			sawRequested = net.IP(opt.Data).Equal(net.IP(msg.CIAddr.AsSlice()))
		case layers.DHCPOptServerID:
			sawServerID = true
		}
	}
	if !sawType || !sawRequested || !sawServerID {
		t.Fatalf("gopacket missed options: type=%v requested=%v serverid=%v",
			sawType, sawRequested, sawServerID)
	}
}

func TestTypeErrors(t *testing.T) {
	msg := New()
	if _, err := msg.Type(); err != ErrNoMessageType {
		t.Fatalf("Type() = %v, want ErrNoMessageType", err)
	}

	msg.Options = []Option{{Code: OptMessageType}}
	if _, err := msg.Type(); err != ErrEmptyMessageType {
		t.Fatalf("Type() = %v, want ErrEmptyMessageType", err)
	}

	msg.Options = []Option{{Code: OptMessageType, Value: []byte{42}}}
	if _, err := msg.Type(); err == nil {
		t.Fatal("Type() with out-of-range value succeeded")
	}
}

func TestCloneIsDeep(t *testing.T) {
	msg := testMessage()
	clone := msg.Clone()
	clone.Options[0].Value[0] = 0xff

	if msg.Options[0].Value[0] == 0xff {
		t.Fatal("Clone() shares option storage with the original")
	}
}
