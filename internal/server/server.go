// Package server implements the DHCPv4 protocol state machine: message
// dispatch, address selection, lease lifecycle, and expiry sweeping.
// Each dispatch is one atomic transaction against the address pool and
// the lease cache; a single mutex serializes dispatch, the sweep, and
// every administrative accessor.
package server

import (
	"fmt"
	"log/slog"
	"net/netip"
	"sync"

	"github.com/veesix-networks/osdhcpd/pkg/dhcp"
	"github.com/veesix-networks/osdhcpd/pkg/lease"
	"github.com/veesix-networks/osdhcpd/pkg/logger"
	"github.com/veesix-networks/osdhcpd/pkg/pool"
	"github.com/veesix-networks/osdhcpd/pkg/store"
)

// TimeSource returns the current logical timestamp in seconds. The
// server never reads the system clock directly so tests can control
// time.
type TimeSource func() int64

type Server struct {
	mu    sync.Mutex
	cache *lease.Cache
	pool  *pool.Pool
	cfg   Config
	now   TimeSource
	store store.Store
	log   *slog.Logger
}

// New builds a server from the given parameters, loading cached leases
// from the persistent store. A store load failure is not fatal: the
// server starts with an empty cache.
func New(cfg Config, now TimeSource, st store.Store, log *slog.Logger) *Server {
	if log == nil {
		log = logger.Component(logger.Server)
	}

	var entries map[dhcp.MAC]lease.CachedConfig
	if st != nil {
		var err error
		entries, err = st.Load()
		if err != nil {
			log.Info("Starting with an empty lease cache", "error", err)
			entries = nil
		}
	}

	s := &Server{
		cache: lease.FromEntries(entries),
		pool:  pool.New(),
		cfg:   cfg,
		now:   now,
		store: st,
		log:   log,
	}
	s.pool.Load(cfg.ManagedAddrs)
	s.restoreBindings()
	return s
}

// restoreBindings re-establishes the pool/cache coupling invariant for
// leases loaded from the store: every live binding's address must be
// marked allocated. Bindings whose address is no longer managed are
// dropped.
func (s *Server) restoreBindings() {
	now := s.now()
	for mac, cfg := range s.cache.Snapshot() {
		if cfg.Expired(now) {
			continue
		}
		if !s.pool.IsAvailable(cfg.Addr) {
			s.log.Warn("Dropping stored lease outside managed range",
				"mac", mac, "addr", cfg.Addr)
			s.cache.Remove(mac)
			continue
		}
		if err := s.pool.Allocate(cfg.Addr); err != nil {
			panic(fmt.Sprintf("server tried to allocate unavailable ip %s", cfg.Addr))
		}
	}
}

// IsServing reports whether the server manages any addresses at all.
func (s *Server) IsServing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.pool.Empty()
}

// Dispatch routes one client message through the state machine and
// returns the resulting action, or an error when the request cannot be
// served.
func (s *Server) Dispatch(msg dhcp.Message) (Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := msg.Type()
	if err != nil {
		return nil, &ClientMessageError{Err: err}
	}
	switch t {
	case dhcp.MsgDiscover:
		return s.handleDiscover(msg)
	case dhcp.MsgRequest:
		return s.handleRequest(msg)
	case dhcp.MsgDecline:
		return s.handleDecline(msg)
	case dhcp.MsgRelease:
		return s.handleRelease(msg)
	case dhcp.MsgInform:
		return s.handleInform(msg)
	default:
		// OFFER, ACK, and NAK only ever flow server to client.
		return nil, &UnexpectedMessageTypeError{Type: t}
	}
}

func (s *Server) handleDiscover(disc dhcp.Message) (Action, error) {
	clientCfg := s.clientConfig(&disc)
	offeredIP, err := s.getAddr(&disc)
	if err != nil {
		return nil, err
	}
	dest := destinationAddr(&disc)
	offer := buildOffer(disc, &s.cfg, clientCfg)
	offer.YIAddr = offeredIP
	if err := s.storeClientConfig(offeredIP, offer.CHAddr, nil, clientCfg); err != nil {
		return nil, &CacheUpdateError{err: err}
	}
	return SendResponse{Message: offer, Dest: dest}, nil
}

// getAddr selects the address to offer, in strict priority order:
// the client's live binding, its lapsed binding if still free, the
// requested address if free, then the smallest available address.
func (s *Server) getAddr(client *dhcp.Message) (netip.Addr, error) {
	if cached, ok := s.cache.Get(client.CHAddr); ok {
		if !cached.Expired(s.now()) {
			// Free the held address so it can immediately be
			// re-handed to the same client. Failure here means the
			// pool and cache have diverged; that is unrecoverable.
			if err := s.pool.Release(cached.Addr); err != nil {
				panic(fmt.Sprintf("server tried to release unallocated ip %s", cached.Addr))
			}
			return cached.Addr, nil
		}
		if s.pool.IsAvailable(cached.Addr) {
			return cached.Addr, nil
		}
	}
	if requested, ok := client.RequestedIP(); ok && s.pool.IsAvailable(requested) {
		return requested, nil
	}
	next, err := s.pool.NextAvailable()
	if err != nil {
		return netip.Addr{}, &AddressPoolError{Err: err}
	}
	return next, nil
}

// storeClientConfig commits a fresh binding: persist it, cache it, and
// mark the address allocated. Allocation failure after the cache
// insert means server state changed mid-request, which cannot happen
// under the dispatch mutex; treat it as corruption.
func (s *Server) storeClientConfig(clientAddr netip.Addr, mac dhcp.MAC, opts []dhcp.Option, clientCfg ClientConfig) error {
	cached := lease.CachedConfig{
		Addr:       clientAddr,
		Options:    opts,
		Expiration: s.now() + int64(clientCfg.LeaseTime),
	}
	if s.store != nil {
		if err := s.store.Store(mac, cached); err != nil {
			return fmt.Errorf("failed to store client lease: %w", err)
		}
	}
	s.cache.Insert(mac, cached)
	if err := s.pool.Allocate(clientAddr); err != nil {
		panic(fmt.Sprintf("server tried to allocate unavailable ip %s", clientAddr))
	}
	return nil
}

func (s *Server) handleRequest(req dhcp.Message) (Action, error) {
	state, ok := classify(&req)
	if !ok {
		return nil, ErrUnknownClientState
	}
	switch state {
	case stateSelecting:
		return s.handleRequestSelecting(req)
	case stateInitReboot:
		return s.handleRequestInitReboot(req)
	default:
		return s.handleRequestRenewing(req)
	}
}

func (s *Server) handleRequestSelecting(req dhcp.Message) (Action, error) {
	requestedIP := req.CIAddr
	if !isRecipient(s.cfg.ServerIP, &req) {
		return nil, &IncorrectServerError{ServerIP: s.cfg.ServerIP}
	}
	if err := s.validateRequestedAddrWithClient(&req, requestedIP); err != nil {
		return nil, err
	}
	dest := destinationAddr(&req)
	return SendResponse{Message: buildAck(req, requestedIP, &s.cfg), Dest: dest}, nil
}

func (s *Server) handleRequestInitReboot(req dhcp.Message) (Action, error) {
	requestedIP, ok := req.RequestedIP()
	if !ok {
		return nil, ErrNoRequestedAddrAtInitReboot
	}
	if !isInSubnet(requestedIP, &s.cfg) {
		// A normal protocol outcome, not a server error.
		nak, dest := buildNak(req, &s.cfg, "client and server are in different subnets")
		return SendResponse{Message: nak, Dest: dest}, nil
	}
	if !s.cache.Contains(req.CHAddr) {
		return nil, &UnknownClientMACError{MAC: req.CHAddr}
	}
	if s.validateRequestedAddrWithClient(&req, requestedIP) != nil {
		nak, dest := buildNak(req, &s.cfg, "requested ip is not assigned to client")
		return SendResponse{Message: nak, Dest: dest}, nil
	}
	dest := destinationAddr(&req)
	return SendResponse{Message: buildAck(req, requestedIP, &s.cfg), Dest: dest}, nil
}

func (s *Server) handleRequestRenewing(req dhcp.Message) (Action, error) {
	clientIP := req.CIAddr
	if err := s.validateRequestedAddrWithClient(&req, clientIP); err != nil {
		return nil, err
	}
	dest := destinationAddr(&req)
	return SendResponse{Message: buildAck(req, clientIP, &s.cfg), Dest: dest}, nil
}

// validateRequestedAddrWithClient checks that claimed is the address
// this server currently has bound to the requesting client: a cache
// entry exists, names the same address, has not lapsed, and the
// address is still marked allocated.
func (s *Server) validateRequestedAddrWithClient(req *dhcp.Message, claimed netip.Addr) error {
	cached, ok := s.cache.Get(req.CHAddr)
	if !ok {
		return &UnknownClientMACError{MAC: req.CHAddr}
	}
	if cached.Addr != claimed {
		return &RequestedIPMismatchError{Requested: claimed, Cached: cached.Addr}
	}
	if cached.Expired(s.now()) {
		return ErrExpiredClientConfig
	}
	if !s.pool.IsAllocated(claimed) {
		return &UnidentifiedRequestedIPError{Addr: claimed}
	}
	return nil
}

func (s *Server) handleDecline(dec dhcp.Message) (Action, error) {
	declinedIP, ok, err := requestedIPOf(&dec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoRequestedAddrForDecline
	}
	// When the declined address is not the one we have bound to this
	// client, mark it allocated anyway so it cannot be offered to
	// anyone: the client told us it is in use on the network.
	if isRecipient(s.cfg.ServerIP, &dec) && s.validateRequestedAddrWithClient(&dec, declinedIP) != nil {
		if err := s.pool.Allocate(declinedIP); err != nil {
			return nil, &AddressPoolError{Err: err}
		}
	}
	s.cache.Remove(dec.CHAddr)
	return AddressDecline{Addr: declinedIP}, nil
}

// handleRelease frees the pool address but leaves the cache entry in
// place, which lets the same client reclaim the address later.
func (s *Server) handleRelease(rel dhcp.Message) (Action, error) {
	if !s.cache.Contains(rel.CHAddr) {
		return nil, &UnknownClientMACError{MAC: rel.CHAddr}
	}
	if err := s.pool.Release(rel.CIAddr); err != nil {
		return nil, &AddressPoolError{Err: err}
	}
	return AddressRelease{Addr: rel.CIAddr}, nil
}

func (s *Server) handleInform(inf dhcp.Message) (Action, error) {
	// An INFORM response leaves yiaddr zeroed: no address is leased.
	dest := destinationAddr(&inf)
	ack := buildAck(inf, netip.IPv4Unspecified(), &s.cfg)
	ack.Options = ack.Options[:0]
	addInformAckOptions(&ack, &s.cfg)
	return SendResponse{Message: ack, Dest: dest}, nil
}

// ReleaseExpiredLeases reclaims every lapsed lease: the address goes
// back to the pool, the cache entry is dropped, and deletion from the
// persistent store is attempted best-effort. Returns the number of
// leases reclaimed.
func (s *Server) ReleaseExpiredLeases() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	type expiredClient struct {
		mac  dhcp.MAC
		addr netip.Addr
	}
	// Snapshot before mutating so the cache is not changed while it
	// is being walked.
	var expired []expiredClient
	for mac, cached := range s.cache.Snapshot() {
		if cached.Expired(now) {
			expired = append(expired, expiredClient{mac: mac, addr: cached.Addr})
		}
	}

	for _, c := range expired {
		// A failed release is retried implicitly on the next sweep;
		// removing the cache entry is what matters.
		_ = s.pool.Release(c.addr)
		s.cache.Remove(c.mac)
		if s.store != nil {
			if err := s.store.Delete(c.mac); err != nil {
				// Log and keep going; one failed deletion must not
				// stop the sweep.
				s.log.Warn("Lease store failed to delete client",
					"mac", c.mac, "error", err)
			}
		}
	}
	return len(expired)
}

// clientConfig negotiates the lease time: the client's request clamped
// to the server maximum, or the server default when the client did not
// ask for one.
func (s *Server) clientConfig(msg *dhcp.Message) ClientConfig {
	if requested, ok := msg.LeaseTime(); ok {
		return ClientConfig{LeaseTime: min(requested, s.cfg.MaxLeaseTime)}
	}
	return ClientConfig{LeaseTime: s.cfg.DefaultLeaseTime}
}

// requestedIPOf extracts the requested-IP option. A present but
// malformed option is an error; an absent one is not.
func requestedIPOf(msg *dhcp.Message) (netip.Addr, bool, error) {
	opt, ok := msg.Option(dhcp.OptRequestedIP)
	if !ok {
		return netip.Addr{}, false, nil
	}
	addr, ok := opt.IP()
	if !ok {
		return netip.Addr{}, false, &BadRequestedAddrError{
			Reason: fmt.Sprintf("requested ip option has %d bytes", len(opt.Value)),
		}
	}
	return addr, true, nil
}
