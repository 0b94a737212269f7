package xport

import (
	"bufio"
	"net"
	"sync"
	"time"

	"github.com/ugv-zrf/zrf/zerr"
)

// connSocket backs every role that owns exactly one underlying TCP
// connection: Req, Dealer, Sub, and connecting Push/Pull.
type connSocket struct {
	role Role
	conn net.Conn
	br   *bufio.Reader

	wmu sync.Mutex

	rcvTimeout time.Duration
}

func newConnSocket(role Role, conn net.Conn) *connSocket {
	return &connSocket{role: role, conn: conn, br: bufio.NewReaderSize(conn, 64*1024)}
}

func dial(role Role, uri string) (*connSocket, error) {
	addr, bind := parseURI(uri)
	if bind {
		return nil, zerr.NewProtocolError("dial called with a binding URI")
	}
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, zerr.NewTransportError("dial", err)
	}
	applySockOpts(conn)
	return newConnSocket(role, conn), nil
}

func (s *connSocket) Role() Role { return s.role }

func (s *connSocket) Addr() string { return s.conn.LocalAddr().String() }

func (s *connSocket) Send(frames ...[]byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if err := writeFrames(s.conn, frames); err != nil {
		return zerr.NewTransportError("send", err)
	}
	return nil
}

func (s *connSocket) Recv(block bool) ([][]byte, error) {
	if !block {
		if _, err := s.br.Peek(1); err != nil {
			return nil, zerr.NewTimeout("recv")
		}
	}
	setReadDeadline(s.conn, s.rcvTimeout)
	frames, err := readFrames(s.br)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, zerr.NewTimeout("recv")
		}
		return nil, zerr.NewTransportError("recv", err)
	}
	return frames, nil
}

func (s *connSocket) Poll(timeout time.Duration) bool {
	setReadDeadline(s.conn, timeout)
	_, err := s.br.Peek(1)
	setReadDeadline(s.conn, s.rcvTimeout)
	return err == nil
}

func (s *connSocket) SetRecvTimeout(d time.Duration) { s.rcvTimeout = d }

func (s *connSocket) Close() error { return s.conn.Close() }

// repSocket backs the REP role: bind once, then serve one request/reply
// cycle per accepted connection. Used only by the handshake package,
// whose exchange is itself a single request/reply cycle per call.
type repSocket struct {
	ln  net.Listener
	cur net.Conn
	br  *bufio.Reader
}

func bindRep(uri string) (*repSocket, error) {
	addr, _ := parseURI(uri) // a REP endpoint always binds, "*" or not
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, zerr.NewTransportError("bind", err)
	}
	return &repSocket{ln: ln}, nil
}

func (r *repSocket) Role() Role { return RoleRep }

func (r *repSocket) Addr() string { return r.ln.Addr().String() }

func (r *repSocket) Recv(block bool) ([][]byte, error) {
	conn, err := r.ln.Accept()
	if err != nil {
		return nil, zerr.NewTransportError("accept", err)
	}
	applySockOpts(conn)
	r.cur = conn
	r.br = bufio.NewReaderSize(conn, 64*1024)
	frames, err := readFrames(r.br)
	if err != nil {
		conn.Close()
		return nil, zerr.NewTransportError("recv", err)
	}
	return frames, nil
}

func (r *repSocket) Send(frames ...[]byte) error {
	if r.cur == nil {
		return zerr.NewProtocolError("rep socket has no pending request to reply to")
	}
	defer func() {
		r.cur.Close()
		r.cur = nil
	}()
	if err := writeFrames(r.cur, frames); err != nil {
		return zerr.NewTransportError("send", err)
	}
	return nil
}

func (r *repSocket) Poll(time.Duration) bool { return true }

func (r *repSocket) SetRecvTimeout(time.Duration) {}

func (r *repSocket) Close() error { return r.ln.Close() }
