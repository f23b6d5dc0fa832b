package server

import (
	"net/netip"
	"testing"

	"github.com/veesix-networks/osdhcpd/pkg/dhcp"
)

func TestDestinationAddr(t *testing.T) {
	tests := []struct {
		name      string
		giaddr    string
		ciaddr    string
		yiaddr    string
		broadcast bool
		msgType   dhcp.MessageType
		want      string
	}{
		{
			name:    "giaddr wins over everything",
			giaddr:  "10.0.0.1",
			ciaddr:  "192.168.1.55",
			msgType: dhcp.MsgRequest,
			want:    "10.0.0.1",
		},
		{
			name:    "ciaddr when no relay",
			ciaddr:  "192.168.1.55",
			msgType: dhcp.MsgRequest,
			want:    "192.168.1.55",
		},
		{
			name:      "broadcast flag forces limited broadcast",
			broadcast: true,
			msgType:   dhcp.MsgRequest,
			want:      "255.255.255.255",
		},
		{
			name:    "discover broadcasts",
			msgType: dhcp.MsgDiscover,
			want:    "255.255.255.255",
		},
		{
			name:    "request falls back to yiaddr",
			yiaddr:  "192.168.1.60",
			msgType: dhcp.MsgRequest,
			want:    "192.168.1.60",
		},
		{
			name:    "inform falls back to yiaddr",
			yiaddr:  "192.168.1.60",
			msgType: dhcp.MsgInform,
			want:    "192.168.1.60",
		},
		{
			name:    "release has no destination",
			msgType: dhcp.MsgRelease,
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := dhcp.New()
			if tt.giaddr != "" {
				msg.GIAddr = netip.MustParseAddr(tt.giaddr)
			}
			if tt.ciaddr != "" {
				msg.CIAddr = netip.MustParseAddr(tt.ciaddr)
			}
			if tt.yiaddr != "" {
				msg.YIAddr = netip.MustParseAddr(tt.yiaddr)
			}
			msg.Broadcast = tt.broadcast
			msg.Options = []dhcp.Option{dhcp.MessageTypeOption(tt.msgType)}

			got := destinationAddr(&msg)
			if tt.want == "" {
				if got.IsValid() {
					t.Fatalf("destinationAddr() = %s, want none", got)
				}
				return
			}
			if got != netip.MustParseAddr(tt.want) {
				t.Fatalf("destinationAddr() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDestinationAddrNoMessageType(t *testing.T) {
	msg := dhcp.New()
	if got := destinationAddr(&msg); got.IsValid() {
		t.Fatalf("destinationAddr() = %s, want none", got)
	}
}
