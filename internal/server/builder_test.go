package server

import (
	"net/netip"
	"testing"

	"github.com/veesix-networks/osdhcpd/pkg/dhcp"
)

func testServerConfig() Config {
	return Config{
		ServerIP:         netip.MustParseAddr("192.168.1.1"),
		SubnetMask:       netip.MustParseAddr("255.255.255.0"),
		DefaultLeaseTime: 86400,
		MaxLeaseTime:     172800,
		Routers:          []netip.Addr{netip.MustParseAddr("192.168.1.1")},
		NameServers:      []netip.Addr{netip.MustParseAddr("1.1.1.1")},
	}
}

func discoverFrom(mac dhcp.MAC) dhcp.Message {
	msg := dhcp.New()
	msg.XID = 42
	msg.Secs = 7
	msg.CHAddr = mac
	msg.Options = []dhcp.Option{dhcp.MessageTypeOption(dhcp.MsgDiscover)}
	return msg
}

func mustType(t *testing.T, msg dhcp.Message) dhcp.MessageType {
	t.Helper()
	mt, err := msg.Type()
	if err != nil {
		t.Fatalf("Type() = %v", err)
	}
	return mt
}

func optionU32(t *testing.T, msg dhcp.Message, code dhcp.OptionCode) uint32 {
	t.Helper()
	opt, ok := msg.Option(code)
	if !ok {
		t.Fatalf("option %d missing", code)
	}
	v, ok := opt.U32()
	if !ok {
		t.Fatalf("option %d is not a u32", code)
	}
	return v
}

func TestBuildOffer(t *testing.T) {
	cfg := testServerConfig()
	disc := discoverFrom(dhcp.MAC{1, 2, 3, 4, 5, 6})
	disc.CIAddr = netip.MustParseAddr("10.0.0.9")
	disc.SName = "stale"
	disc.File = "stale"

	offer := buildOffer(disc, &cfg, ClientConfig{LeaseTime: 3600})

	if offer.Op != dhcp.BootReply {
		t.Fatalf("Op = %v, want BOOTREPLY", offer.Op)
	}
	if offer.XID != disc.XID {
		t.Fatalf("XID = %d, want %d", offer.XID, disc.XID)
	}
	if offer.Secs != 0 {
		t.Fatalf("Secs = %d, want 0", offer.Secs)
	}
	if !offer.CIAddr.IsUnspecified() || !offer.SIAddr.IsUnspecified() {
		t.Fatal("ciaddr/siaddr not zeroed")
	}
	if offer.SName != "" || offer.File != "" {
		t.Fatal("sname/file not cleared")
	}
	if mt := mustType(t, offer); mt != dhcp.MsgOffer {
		t.Fatalf("type = %v, want DHCPOFFER", mt)
	}
	if got := optionU32(t, offer, dhcp.OptLeaseTime); got != 3600 {
		t.Fatalf("lease time = %d, want negotiated 3600", got)
	}
	if got := optionU32(t, offer, dhcp.OptRenewalTime); got != cfg.DefaultLeaseTime/2 {
		t.Fatalf("renewal time = %d, want %d", got, cfg.DefaultLeaseTime/2)
	}
	if got := optionU32(t, offer, dhcp.OptRebindingTime); got != 3*cfg.DefaultLeaseTime/4 {
		t.Fatalf("rebinding time = %d, want %d", got, 3*cfg.DefaultLeaseTime/4)
	}
	if id, ok := offer.ServerID(); !ok || id != cfg.ServerIP {
		t.Fatalf("server id = %v, want %s", id, cfg.ServerIP)
	}
}

func TestBuildAckKeepsCIAddrAndUsesDefaultLeaseTime(t *testing.T) {
	cfg := testServerConfig()
	req := dhcp.New()
	req.XID = 42
	req.CIAddr = netip.MustParseAddr("192.168.1.55")
	req.CHAddr = dhcp.MAC{1, 2, 3, 4, 5, 6}
	req.Options = []dhcp.Option{dhcp.MessageTypeOption(dhcp.MsgRequest)}

	granted := netip.MustParseAddr("192.168.1.55")
	ack := buildAck(req, granted, &cfg)

	if ack.YIAddr != granted {
		t.Fatalf("yiaddr = %s, want %s", ack.YIAddr, granted)
	}
	if ack.CIAddr != req.CIAddr {
		t.Fatalf("ciaddr = %s, want %s untouched", ack.CIAddr, req.CIAddr)
	}
	if mt := mustType(t, ack); mt != dhcp.MsgAck {
		t.Fatalf("type = %v, want DHCPACK", mt)
	}
	// The ACK option block always carries the server default.
	if got := optionU32(t, ack, dhcp.OptLeaseTime); got != cfg.DefaultLeaseTime {
		t.Fatalf("lease time = %d, want default %d", got, cfg.DefaultLeaseTime)
	}
}

func TestBuildNakDirect(t *testing.T) {
	cfg := testServerConfig()
	req := dhcp.New()
	req.CIAddr = netip.MustParseAddr("192.168.1.55")
	req.YIAddr = netip.MustParseAddr("192.168.1.55")
	req.Options = []dhcp.Option{dhcp.MessageTypeOption(dhcp.MsgRequest)}

	nak, dest := buildNak(req, &cfg, "requested ip is not assigned to client")

	if mt := mustType(t, nak); mt != dhcp.MsgNak {
		t.Fatalf("type = %v, want DHCPNAK", mt)
	}
	if !nak.CIAddr.IsUnspecified() || !nak.YIAddr.IsUnspecified() || !nak.SIAddr.IsUnspecified() {
		t.Fatal("ciaddr/yiaddr/siaddr not zeroed in NAK")
	}
	if dest != limitedBroadcast {
		t.Fatalf("dest = %s, want limited broadcast", dest)
	}
	if nak.Broadcast {
		t.Fatal("broadcast flag set without a relay")
	}
	opt, ok := nak.Option(dhcp.OptMessage)
	if !ok || string(opt.Value) != "requested ip is not assigned to client" {
		t.Fatalf("message option = %q", opt.Value)
	}
	// NAKs carry no lease configuration.
	if _, ok := nak.Option(dhcp.OptLeaseTime); ok {
		t.Fatal("NAK carries a lease time option")
	}
}

func TestBuildNakThroughRelay(t *testing.T) {
	cfg := testServerConfig()
	req := dhcp.New()
	req.GIAddr = netip.MustParseAddr("10.0.0.1")
	req.Options = []dhcp.Option{dhcp.MessageTypeOption(dhcp.MsgRequest)}

	nak, dest := buildNak(req, &cfg, "client and server are in different subnets")

	if dest.IsValid() {
		t.Fatalf("dest = %s, want none (relay decides)", dest)
	}
	if !nak.Broadcast {
		t.Fatal("broadcast flag not set for relayed NAK")
	}
	if nak.GIAddr != req.GIAddr {
		t.Fatalf("giaddr = %s, want %s preserved", nak.GIAddr, req.GIAddr)
	}
}

func TestIsRecipient(t *testing.T) {
	cfg := testServerConfig()

	msg := dhcp.New()
	if isRecipient(cfg.ServerIP, &msg) {
		t.Fatal("message without server id treated as addressed to us")
	}

	msg.Options = []dhcp.Option{dhcp.IPOption(dhcp.OptServerID, cfg.ServerIP)}
	if !isRecipient(cfg.ServerIP, &msg) {
		t.Fatal("message with our server id not treated as addressed to us")
	}

	msg.Options = []dhcp.Option{dhcp.IPOption(dhcp.OptServerID, netip.MustParseAddr("10.0.0.1"))}
	if isRecipient(cfg.ServerIP, &msg) {
		t.Fatal("message with another server id treated as addressed to us")
	}
}

func TestIsInSubnet(t *testing.T) {
	cfg := testServerConfig()
	if !isInSubnet(netip.MustParseAddr("192.168.1.200"), &cfg) {
		t.Fatal("address in the server subnet reported outside")
	}
	if isInSubnet(netip.MustParseAddr("192.168.2.200"), &cfg) {
		t.Fatal("address outside the server subnet reported inside")
	}
}
