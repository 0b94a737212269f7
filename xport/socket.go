// Package xport implements the transport layer every higher package in
// this module builds on: a small socket abstraction over TCP that
// mimics the roles, multi-part framing, and peer-identity envelope of a
// ZeroMQ-class messaging library, since no real ZeroMQ binding is part
// of this module's dependency surface.
package xport

import "time"

// Role identifies a socket's position in one of the four messaging
// patterns this module implements.
type Role int

const (
	RoleReq Role = iota
	RoleRep
	RoleDealer
	RoleRouter
	RolePub
	RoleSub
	RolePush
	RolePull
)

func (r Role) String() string {
	switch r {
	case RoleReq:
		return "REQ"
	case RoleRep:
		return "REP"
	case RoleDealer:
		return "DEALER"
	case RoleRouter:
		return "ROUTER"
	case RolePub:
		return "PUB"
	case RoleSub:
		return "SUB"
	case RolePush:
		return "PUSH"
	case RolePull:
		return "PULL"
	default:
		return "UNKNOWN"
	}
}

// PeerID identifies one connected peer of a Router, Pub, bound Push, or
// bound Pull socket.
type PeerID string

// Socket is the minimal surface every role exposes. Not every method is
// meaningful for every role: see the role-specific constructors for
// which of Send/Recv are supported.
type Socket interface {
	Role() Role
	// Addr returns the socket's local address as seen by net.Listener
	// or net.Conn; useful for binding to port 0 and discovering the
	// actual port afterward. Empty if the socket has no local address
	// yet (not yet connected).
	Addr() string
	// Send transmits a multi-part message; every frame but the last
	// carries the MORE flag.
	Send(frames ...[]byte) error
	// Recv receives one multi-part message. If block is false and
	// nothing is available, it returns a zerr.Timeout immediately.
	Recv(block bool) ([][]byte, error)
	// Poll reports whether a message is available within timeout,
	// without consuming it.
	Poll(timeout time.Duration) bool
	// SetRecvTimeout bounds every subsequent blocking Recv; zero means
	// no timeout (RCVTIMEO-equivalent).
	SetRecvTimeout(d time.Duration)
	Close() error
}

// NewReq dials a REQ-role connection to uri (must not be a bind URI).
func NewReq(uri string) (Socket, error) {
	return dial(RoleReq, uri)
}

// NewRep binds a REP-role listener at uri, serving one request/reply
// cycle per accepted connection. Used by the handshake package.
func NewRep(uri string) (Socket, error) {
	return bindRep(uri)
}

// NewDealer dials a DEALER-role connection to uri.
func NewDealer(uri string) (Socket, error) {
	return dial(RoleDealer, uri)
}

// NewRouter binds a ROUTER-role listener at uri, accepting any number
// of Dealer peers and multiplexing them by PeerID.
func NewRouter(uri string) (Socket, error) {
	return bindMulti(RoleRouter, uri)
}

// NewPub binds a PUB-role listener at uri, broadcasting every Send to
// every connected Sub peer.
func NewPub(uri string) (Socket, error) {
	return bindMulti(RolePub, uri)
}

// NewSub dials a SUB-role connection to uri. There is no topic filter:
// a subscriber matches every message its publisher sends.
func NewSub(uri string) (Socket, error) {
	return dial(RoleSub, uri)
}

// NewPush constructs a PUSH-role socket: binding (uri contains "*")
// fans Send out round-robin across every connected Pull peer; connecting
// sends directly over the one connection.
func NewPush(uri string) (Socket, error) {
	if _, bind := parseURI(uri); bind {
		return bindMulti(RolePush, uri)
	}
	return dial(RolePush, uri)
}

// NewPull constructs a PULL-role socket: binding fair-queues Recv across
// every connected Push peer; connecting receives directly.
func NewPull(uri string) (Socket, error) {
	if _, bind := parseURI(uri); bind {
		return bindMulti(RolePull, uri)
	}
	return dial(RolePull, uri)
}
