package server

import (
	"net/netip"

	"github.com/veesix-networks/osdhcpd/pkg/dhcp"
)

// Response construction. Builders start from a copy of the client's
// request, per RFC 2131 table 3, and only edit the fields the server
// owns. None of these touch server state.

// buildOffer shapes a DHCPOFFER from the client's DISCOVER. The caller
// fills in yiaddr with the selected address afterwards.
func buildOffer(req dhcp.Message, cfg *Config, clientCfg ClientConfig) dhcp.Message {
	offer := req.Clone()
	offer.Op = dhcp.BootReply
	offer.Secs = 0
	offer.CIAddr = netip.IPv4Unspecified()
	offer.SIAddr = netip.IPv4Unspecified()
	offer.SName = ""
	offer.File = ""
	addRequiredOptions(&offer, cfg, clientCfg, dhcp.MsgOffer)
	addRecommendedOptions(&offer, cfg)
	return offer
}

// buildAck shapes a DHCPACK granting grantedIP. The options block
// always carries the server default lease time, not a negotiated one.
func buildAck(req dhcp.Message, grantedIP netip.Addr, cfg *Config) dhcp.Message {
	ack := req.Clone()
	ack.Op = dhcp.BootReply
	ack.Secs = 0
	ack.YIAddr = grantedIP
	addRequiredOptions(&ack, cfg, ClientConfig{LeaseTime: cfg.DefaultLeaseTime}, dhcp.MsgAck)
	addRecommendedOptions(&ack, cfg)
	return ack
}

// buildNak shapes a DHCPNAK carrying a human-readable reason. When the
// request came through a relay the broadcast flag is set and no
// explicit destination is returned; the transport sends via giaddr.
// RFC 2131 section 4.3.2, page 31.
func buildNak(req dhcp.Message, cfg *Config, reason string) (dhcp.Message, netip.Addr) {
	nak := req.Clone()
	nak.Op = dhcp.BootReply
	nak.Secs = 0
	nak.CIAddr = netip.IPv4Unspecified()
	nak.YIAddr = netip.IPv4Unspecified()
	nak.SIAddr = netip.IPv4Unspecified()

	nak.Options = nak.Options[:0]
	nak.Options = append(nak.Options,
		dhcp.MessageTypeOption(dhcp.MsgNak),
		dhcp.IPOption(dhcp.OptServerID, cfg.ServerIP),
		dhcp.StringOption(dhcp.OptMessage, reason),
	)

	if nak.GIAddr.IsUnspecified() {
		return nak, netip.AddrFrom4([4]byte{255, 255, 255, 255})
	}
	nak.Broadcast = true
	return nak, netip.Addr{}
}

func addRequiredOptions(msg *dhcp.Message, cfg *Config, clientCfg ClientConfig, t dhcp.MessageType) {
	msg.Options = msg.Options[:0]
	msg.Options = append(msg.Options,
		dhcp.U32Option(dhcp.OptLeaseTime, clientCfg.LeaseTime),
		dhcp.IPOption(dhcp.OptSubnetMask, cfg.SubnetMask),
		dhcp.MessageTypeOption(t),
		dhcp.IPOption(dhcp.OptServerID, cfg.ServerIP),
	)
}

func addRecommendedOptions(msg *dhcp.Message, cfg *Config) {
	msg.Options = append(msg.Options,
		dhcp.IPListOption(dhcp.OptRouter, cfg.Routers),
		dhcp.IPListOption(dhcp.OptDNSServer, cfg.NameServers),
		dhcp.U32Option(dhcp.OptRenewalTime, cfg.DefaultLeaseTime/2),
		dhcp.U32Option(dhcp.OptRebindingTime, (3*cfg.DefaultLeaseTime)/4),
	)
}

// addInformAckOptions applies the reduced option set for INFORM
// responses: no lease time or subnet mask, since no address is leased.
func addInformAckOptions(msg *dhcp.Message, cfg *Config) {
	msg.Options = append(msg.Options,
		dhcp.MessageTypeOption(dhcp.MsgAck),
		dhcp.IPOption(dhcp.OptServerID, cfg.ServerIP),
		dhcp.IPListOption(dhcp.OptRouter, cfg.Routers),
		dhcp.IPListOption(dhcp.OptDNSServer, cfg.NameServers),
	)
}

// isRecipient reports whether the message's server identifier names
// this server.
func isRecipient(serverIP netip.Addr, msg *dhcp.Message) bool {
	if id, ok := msg.ServerID(); ok {
		return id == serverIP
	}
	return false
}

// isInSubnet reports whether addr shares the server's masked network.
func isInSubnet(addr netip.Addr, cfg *Config) bool {
	return maskApply(cfg.SubnetMask, addr) == maskApply(cfg.SubnetMask, cfg.ServerIP)
}
