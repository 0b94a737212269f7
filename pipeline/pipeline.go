// Package pipeline implements the load-balanced push/pull layer: a
// Pusher fans out across every connected Puller round-robin (or sends
// directly when connecting to a bound Puller), a Puller fair-queues
// across every connected Pusher, and SyncClientServer composes one of
// each into a blocking request/reply helper for callers that want
// pipeline framing without pub/sub or RMI overhead.
package pipeline

import (
	"time"

	"github.com/ugv-zrf/zrf/wire"
	"github.com/ugv-zrf/zrf/xport"
	"github.com/ugv-zrf/zrf/zerr"
)

// Option configures a Pusher or Puller at construction time.
type Option func(*config)

type config struct {
	policy xport.TransmissionPolicy
}

func defaultConfig() config { return config{policy: xport.SizePrefixedPolicy{}} }

// WithPolicy overrides the default SizePrefixedPolicy.
func WithPolicy(p xport.TransmissionPolicy) Option { return func(c *config) { c.policy = p } }

// Pusher sends work items into the pipeline.
type Pusher struct {
	sock xport.Socket
	cfg  config
}

// NewPusher constructs a Pusher bound to or connected at uri depending
// on whether uri names a "*" bind endpoint.
func NewPusher(uri string, opts ...Option) (*Pusher, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	sock, err := xport.NewPush(uri)
	if err != nil {
		return nil, err
	}
	return &Pusher{sock: sock, cfg: cfg}, nil
}

// Push sends one payload, round-robined across connected pullers if
// this pusher is bound.
func (p *Pusher) Push(payload wire.ByteArray) error {
	return p.sock.Send(p.cfg.policy.Encode(payload)...)
}

// BoundAddr returns the pusher's local address; meaningful only when
// constructed with a binding URI.
func (p *Pusher) BoundAddr() string { return p.sock.Addr() }

// Close releases the underlying socket.
func (p *Pusher) Close() error { return p.sock.Close() }

// Puller receives work items from the pipeline.
type Puller struct {
	sock xport.Socket
	cfg  config
}

// NewPuller constructs a Puller bound to or connected at uri. timeout,
// if non-zero, bounds every subsequent Pull.
func NewPuller(uri string, timeout time.Duration, opts ...Option) (*Puller, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	sock, err := xport.NewPull(uri)
	if err != nil {
		return nil, err
	}
	sock.SetRecvTimeout(timeout)
	return &Puller{sock: sock, cfg: cfg}, nil
}

// Pull blocks for the next payload, fair-queued across connected
// pushers if this puller is bound. ok is false on timeout or transport
// error.
func (p *Puller) Pull() (payload wire.ByteArray, ok bool) {
	frames, err := p.sock.Recv(true)
	if err != nil {
		return nil, false
	}
	payload, err = p.cfg.policy.Decode(frames)
	return payload, err == nil
}

// BoundAddr returns the puller's local address; meaningful only when
// constructed with a binding URI.
func (p *Puller) BoundAddr() string { return p.sock.Addr() }

// Close releases the underlying socket.
func (p *Puller) Close() error { return p.sock.Close() }

// SyncClientServer pairs a Pusher and a Puller into a single blocking
// request/reply call, for callers who want pipeline-style load
// balancing without the async request multiplexer's bookkeeping.
type SyncClientServer struct {
	pusher *Pusher
	puller *Puller
}

// NewSyncClientServer opens a Pusher at pushURI and a Puller at pullURI
// (each binds or connects as NewPusher/NewPuller decide from the URI),
// with the given receive timeout applied to the puller half.
func NewSyncClientServer(pushURI, pullURI string, timeout time.Duration, opts ...Option) (*SyncClientServer, error) {
	pusher, err := NewPusher(pushURI, opts...)
	if err != nil {
		return nil, err
	}
	puller, err := NewPuller(pullURI, timeout, opts...)
	if err != nil {
		pusher.Close()
		return nil, err
	}
	return &SyncClientServer{pusher: pusher, puller: puller}, nil
}

// ReplyAddr returns the local address of the reply-side puller, useful
// when it was constructed bound to an ephemeral port.
func (cs *SyncClientServer) ReplyAddr() string { return cs.puller.BoundAddr() }

// Request pushes payload and blocks for the matching reply.
func (cs *SyncClientServer) Request(payload wire.ByteArray) (wire.ByteArray, error) {
	if err := cs.pusher.Push(payload); err != nil {
		return nil, err
	}
	reply, ok := cs.puller.Pull()
	if !ok {
		return nil, zerr.NewTimeout("pipeline request")
	}
	return reply, nil
}

// Close releases both underlying sockets.
func (cs *SyncClientServer) Close() error {
	err1 := cs.pusher.Close()
	err2 := cs.puller.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
