package xport

import (
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/xid"

	"github.com/ugv-zrf/zrf/zerr"
	"github.com/ugv-zrf/zrf/zlog"
)

type inboundMsg struct {
	peer   PeerID
	frames [][]byte
}

// multiSocket backs every role that accepts any number of peer
// connections: Router (many Dealers), Pub (many Subs), and a bound
// Push/Pull pair (many Pulls/Pushes).
type multiSocket struct {
	role Role
	ln   net.Listener

	mu    sync.Mutex
	peers map[PeerID]*connSocket
	rrIdx uint64

	inbox  chan inboundMsg
	peeked []inboundMsg

	rcvTimeout time.Duration
	closed     atomic.Bool
}

func bindMulti(role Role, uri string) (*multiSocket, error) {
	addr, _ := parseURI(uri)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, zerr.NewTransportError("bind", err)
	}
	ms := &multiSocket{
		role:  role,
		ln:    ln,
		peers: make(map[PeerID]*connSocket),
		inbox: make(chan inboundMsg, 256),
	}
	go ms.acceptLoop()
	return ms, nil
}

func (ms *multiSocket) Role() Role { return ms.role }

func (ms *multiSocket) Addr() string { return ms.ln.Addr().String() }

func (ms *multiSocket) acceptLoop() {
	for {
		conn, err := ms.ln.Accept()
		if err != nil {
			return
		}
		if ms.closed.Load() {
			conn.Close()
			return
		}
		applySockOpts(conn)
		id := PeerID(xid.New().String())
		cs := newConnSocket(ms.role, conn)
		cs.SetRecvTimeout(ms.rcvTimeout)

		ms.mu.Lock()
		ms.peers[id] = cs
		ms.mu.Unlock()
		zlog.Infof("xport: peer %s connected to %s (%s)", id, ms.ln.Addr(), ms.role)

		if ms.role == RoleRouter || ms.role == RolePull {
			go ms.readLoop(id, cs)
		}
	}
}

func (ms *multiSocket) readLoop(id PeerID, cs *connSocket) {
	for {
		frames, err := cs.Recv(true)
		if err != nil {
			ms.mu.Lock()
			delete(ms.peers, id)
			ms.mu.Unlock()
			zlog.Infof("xport: peer %s disconnected: %v", id, err)
			return
		}
		ms.inbox <- inboundMsg{peer: id, frames: frames}
	}
}

func (ms *multiSocket) Send(frames ...[]byte) error {
	if len(frames) == 0 {
		return zerr.NewProtocolError("send called with no frames")
	}
	switch ms.role {
	case RoleRouter:
		id := PeerID(frames[0])
		ms.mu.Lock()
		cs, ok := ms.peers[id]
		ms.mu.Unlock()
		if !ok {
			return zerr.NewTransportError("send", zerr.NewProtocolError("unknown peer "+string(id)))
		}
		return cs.Send(frames[1:]...)
	case RolePub:
		ms.mu.Lock()
		peers := make([]*connSocket, 0, len(ms.peers))
		for _, p := range ms.peers {
			peers = append(peers, p)
		}
		ms.mu.Unlock()
		for _, p := range peers {
			if err := p.Send(frames...); err != nil {
				zlog.Warningf("xport: pub send to a peer failed: %v", err)
			}
		}
		return nil
	case RolePush:
		cs := ms.nextRoundRobin()
		if cs == nil {
			return zerr.NewTransportError("send", zerr.NewProtocolError("no connected pullers"))
		}
		return cs.Send(frames...)
	default:
		return zerr.NewProtocolError("send not supported for role " + ms.role.String())
	}
}

func (ms *multiSocket) nextRoundRobin() *connSocket {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if len(ms.peers) == 0 {
		return nil
	}
	ids := make([]PeerID, 0, len(ms.peers))
	for id := range ms.peers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	idx := atomic.AddUint64(&ms.rrIdx, 1) % uint64(len(ids))
	return ms.peers[ids[idx]]
}

func (ms *multiSocket) Recv(block bool) ([][]byte, error) {
	switch ms.role {
	case RoleRouter, RolePull:
	default:
		return nil, zerr.NewProtocolError("recv not supported for role " + ms.role.String())
	}

	if m, ok := ms.popPeeked(); ok {
		return ms.withEnvelope(m), nil
	}
	if block {
		ms.mu.Lock()
		timeout := ms.rcvTimeout
		ms.mu.Unlock()
		if timeout <= 0 {
			m := <-ms.inbox
			return ms.withEnvelope(m), nil
		}
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case m := <-ms.inbox:
			return ms.withEnvelope(m), nil
		case <-t.C:
			return nil, zerr.NewTimeout("recv")
		}
	}
	select {
	case m := <-ms.inbox:
		return ms.withEnvelope(m), nil
	default:
		return nil, zerr.NewTimeout("recv")
	}
}

func (ms *multiSocket) withEnvelope(m inboundMsg) [][]byte {
	if ms.role == RoleRouter {
		return append([][]byte{[]byte(m.peer)}, m.frames...)
	}
	return m.frames
}

func (ms *multiSocket) popPeeked() (inboundMsg, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if len(ms.peeked) == 0 {
		return inboundMsg{}, false
	}
	m := ms.peeked[0]
	ms.peeked = ms.peeked[1:]
	return m, true
}

// Poll reports whether a message is available within timeout without
// consuming it: a message observed during Poll is stashed and returned
// by the next Recv.
func (ms *multiSocket) Poll(timeout time.Duration) bool {
	ms.mu.Lock()
	havePeeked := len(ms.peeked) > 0
	ms.mu.Unlock()
	if havePeeked {
		return true
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case m := <-ms.inbox:
		ms.mu.Lock()
		ms.peeked = append(ms.peeked, m)
		ms.mu.Unlock()
		return true
	case <-t.C:
		return false
	}
}

func (ms *multiSocket) SetRecvTimeout(d time.Duration) {
	ms.mu.Lock()
	ms.rcvTimeout = d
	for _, p := range ms.peers {
		p.SetRecvTimeout(d)
	}
	ms.mu.Unlock()
}

func (ms *multiSocket) Close() error {
	ms.closed.Store(true)
	ms.mu.Lock()
	for _, p := range ms.peers {
		p.Close()
	}
	ms.mu.Unlock()
	return ms.ln.Close()
}
