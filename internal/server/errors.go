package server

import (
	"errors"
	"fmt"
	"net/netip"

	"github.com/veesix-networks/osdhcpd/pkg/dhcp"
)

// Protocol-level errors returned from Dispatch. These are recoverable:
// the caller decides whether to log or drop. Invariant violations
// between the pool and the lease cache are not errors; they panic,
// because continuing would risk handing one address to two clients.
var (
	ErrExpiredClientConfig         = errors.New("expired client config")
	ErrNoRequestedAddrAtInitReboot = errors.New("init reboot request did not include ip")
	ErrUnknownClientState          = errors.New("unidentified client state during request")
	ErrNoRequestedAddrForDecline   = errors.New("decline request did not include ip")
)

// UnexpectedMessageTypeError reports a server-to-client message type
// arriving from a client.
type UnexpectedMessageTypeError struct {
	Type dhcp.MessageType
}

func (e *UnexpectedMessageTypeError) Error() string {
	return fmt.Sprintf("unexpected client message type: %s", e.Type)
}

// BadRequestedAddrError reports a requested-IP option whose payload is
// not a well-formed IPv4 address.
type BadRequestedAddrError struct {
	Reason string
}

func (e *BadRequestedAddrError) Error() string {
	return fmt.Sprintf("requested ip parsing failure: %s", e.Reason)
}

// AddressPoolError wraps a pool manipulation failure surfaced to the
// client path.
type AddressPoolError struct {
	Err error
}

func (e *AddressPoolError) Error() string {
	return fmt.Sprintf("local address pool manipulation error: %v", e.Err)
}

func (e *AddressPoolError) Unwrap() error {
	return e.Err
}

// IncorrectServerError reports a REQUEST carrying a server identifier
// other than this server's.
type IncorrectServerError struct {
	ServerIP netip.Addr
}

func (e *IncorrectServerError) Error() string {
	return fmt.Sprintf("incorrect server ip in client message: %s", e.ServerIP)
}

// RequestedIPMismatchError reports a claimed address that does not
// match the cached binding.
type RequestedIPMismatchError struct {
	Requested netip.Addr
	Cached    netip.Addr
}

func (e *RequestedIPMismatchError) Error() string {
	return fmt.Sprintf("requested ip mismatch with offered ip: %s %s", e.Requested, e.Cached)
}

// UnidentifiedRequestedIPError reports a claimed address that is not
// marked allocated in the pool.
type UnidentifiedRequestedIPError struct {
	Addr netip.Addr
}

func (e *UnidentifiedRequestedIPError) Error() string {
	return fmt.Sprintf("requested ip absent from server pool: %s", e.Addr)
}

type UnknownClientMACError struct {
	MAC dhcp.MAC
}

func (e *UnknownClientMACError) Error() string {
	return fmt.Sprintf("unknown client mac: %s", e.MAC)
}

// ClientMessageError wraps a malformed inbound message.
type ClientMessageError struct {
	Err error
}

func (e *ClientMessageError) Error() string {
	return fmt.Sprintf("client request error: %v", e.Err)
}

func (e *ClientMessageError) Unwrap() error {
	return e.Err
}

// CacheUpdateError wraps a persistence-layer failure. The underlying
// store error is opaque to the protocol layer and deliberately excluded
// from comparison: two CacheUpdateError values never compare equal.
type CacheUpdateError struct {
	err error
}

func (e *CacheUpdateError) Error() string {
	return fmt.Sprintf("error manipulating server cache: %v", e.err)
}

func (e *CacheUpdateError) Unwrap() error {
	return e.err
}
