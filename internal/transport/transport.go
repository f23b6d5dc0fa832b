// Package transport binds the UDP socket and moves packets between
// the wire and the protocol state machine.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/veesix-networks/osdhcpd/internal/server"
	"github.com/veesix-networks/osdhcpd/pkg/component"
	"github.com/veesix-networks/osdhcpd/pkg/dhcp"
	"github.com/veesix-networks/osdhcpd/pkg/logger"
	"github.com/veesix-networks/osdhcpd/pkg/metrics"
)

const (
	clientPort = 68
	maxPacket  = 1500
)

type Config struct {
	Listen    string
	Interface string
}

type Component struct {
	*component.Base
	logger  *slog.Logger
	server  *server.Server
	metrics *metrics.Metrics
	cfg     Config
	conn    *net.UDPConn
}

func New(srv *server.Server, m *metrics.Metrics, cfg Config) *Component {
	return &Component{
		Base:    component.NewBase("transport"),
		logger:  logger.Component(logger.Transport),
		server:  srv,
		metrics: m,
		cfg:     cfg,
	}
}

func (c *Component) Start(ctx context.Context) error {
	c.StartContext(ctx)

	addr, err := net.ResolveUDPAddr("udp4", c.cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to resolve listen address %q: %w", c.cfg.Listen, err)
	}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %q: %w", c.cfg.Listen, err)
	}
	if err := c.setSocketOptions(conn); err != nil {
		conn.Close()
		return err
	}
	c.conn = conn

	c.logger.Info("Listening for DHCP requests",
		"listen", c.cfg.Listen, "interface", c.cfg.Interface)
	c.Go(c.readLoop)

	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	c.logger.Info("Stopping transport")
	if c.conn != nil {
		c.conn.Close()
	}
	c.StopContext()
	return nil
}

// setSocketOptions enables broadcast replies and, when configured,
// pins the socket to one interface.
func (c *Component) setSocketOptions(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return fmt.Errorf("failed to access raw socket: %w", err)
	}
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1); err != nil {
			sockErr = fmt.Errorf("failed to set SO_BROADCAST: %w", err)
			return
		}
		if c.cfg.Interface != "" {
			if err := unix.SetsockoptString(int(fd), unix.SOL_SOCKET, unix.SO_BINDTODEVICE, c.cfg.Interface); err != nil {
				sockErr = fmt.Errorf("failed to bind to device %q: %w", c.cfg.Interface, err)
			}
		}
	})
	if err != nil {
		return err
	}
	return sockErr
}

func (c *Component) readLoop() {
	buf := make([]byte, maxPacket)
	for {
		n, src, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-c.Ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			c.logger.Warn("Socket read failed", "error", err)
			continue
		}
		c.handlePacket(buf[:n], src)
	}
}

func (c *Component) handlePacket(raw []byte, src *net.UDPAddr) {
	// Correlates every log line for one request/response exchange.
	id := uuid.New().String()[:8]

	if !c.server.IsServing() {
		c.logger.Debug("Dropping packet, no managed addresses", "id", id, "src", src)
		return
	}

	msg, err := dhcp.Parse(raw)
	if err != nil {
		c.metrics.ParseErrors.Inc()
		c.logger.Debug("Dropping unparseable packet", "id", id, "src", src, "error", err)
		return
	}

	if t, err := msg.Type(); err == nil {
		c.metrics.ReceivedTotal.WithLabelValues(t.String()).Inc()
	}

	action, err := c.server.Dispatch(msg)
	if err != nil {
		c.metrics.DispatchErrors.Inc()
		c.logger.Info("Request not served", "id", id,
			"mac", msg.CHAddr, "xid", msg.XID, "error", err)
		return
	}

	switch act := action.(type) {
	case server.SendResponse:
		c.sendResponse(id, act)
	case server.AddressDecline:
		c.logger.Info("Client declined address", "id", id,
			"mac", msg.CHAddr, "addr", act.Addr)
	case server.AddressRelease:
		c.logger.Info("Client released address", "id", id,
			"mac", msg.CHAddr, "addr", act.Addr)
	}
}

// responseDest resolves the UDP destination for a response. Responses
// going back through a relay agent are addressed to its server port;
// everything else goes to the client port.
func responseDest(act server.SendResponse) *net.UDPAddr {
	resp := act.Message
	relayed := resp.GIAddr.IsValid() && !resp.GIAddr.IsUnspecified()
	switch {
	case act.Dest.IsValid():
		port := clientPort
		if relayed && act.Dest == resp.GIAddr {
			port = dhcp.ServerPort
		}
		return &net.UDPAddr{IP: act.Dest.AsSlice(), Port: port}
	case relayed:
		return &net.UDPAddr{IP: resp.GIAddr.AsSlice(), Port: dhcp.ServerPort}
	case resp.Broadcast:
		return &net.UDPAddr{IP: net.IPv4bcast, Port: clientPort}
	default:
		return &net.UDPAddr{IP: resp.YIAddr.AsSlice(), Port: clientPort}
	}
}

func (c *Component) sendResponse(id string, act server.SendResponse) {
	resp := act.Message
	dest := responseDest(act)

	if _, err := c.conn.WriteToUDP(resp.Serialize(), dest); err != nil {
		c.logger.Warn("Failed to send response", "id", id, "dest", dest, "error", err)
		return
	}

	if t, err := resp.Type(); err == nil {
		c.metrics.ResponsesTotal.WithLabelValues(t.String()).Inc()
		c.logger.Info("Sent response", "id", id, "type", t,
			"mac", resp.CHAddr, "yiaddr", resp.YIAddr, "dest", dest)
	}
}
