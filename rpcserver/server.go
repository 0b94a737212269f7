// Package rpcserver implements the async request/reply server: one I/O
// goroutine multiplexes a ROUTER socket across any number of connected
// DEALER peers, handing requests to a worker pool and routing each
// worker's result back to the peer that sent it. A request id of zero
// means "no reply wanted" and is honored at both the worker (never
// enqueue a reply) and I/O-loop (never send one) level, so a bug in
// either layer alone cannot leak a stray reply for a fire-and-forget
// call.
package rpcserver

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ugv-zrf/zrf/squeue"
	"github.com/ugv-zrf/zrf/wire"
	"github.com/ugv-zrf/zrf/xport"
	"github.com/ugv-zrf/zrf/zlog"
	"github.com/ugv-zrf/zrf/zmetrics"
)

const defaultPollInterval = 10 * time.Millisecond

// Handler computes the reply body for one request. peer identifies the
// caller, for handlers that want to track per-peer state.
type Handler func(peer xport.PeerID, req wire.ByteArray) wire.ByteArray

type inboundReq struct {
	peer xport.PeerID
	id   wire.ReqID
	body wire.ByteArray
}

type outboundRep struct {
	peer xport.PeerID
	id   wire.ReqID
	body wire.ByteArray
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithPolicy overrides the default SizePrefixedPolicy.
func WithPolicy(p xport.TransmissionPolicy) Option { return func(s *Server) { s.policy = p } }

// WithWorkers sets the worker pool size; default is 1.
func WithWorkers(n int) Option { return func(s *Server) { s.nWorkers = n } }

// WithMetrics attaches a zmetrics.ServerMetrics collector.
func WithMetrics(m *zmetrics.ServerMetrics) Option { return func(s *Server) { s.metrics = m } }

// Server binds one URI and serves it either automatically (a Handler is
// supplied to NewServer) or manually (a nil Handler; the caller drives
// Recv/Send directly and sees each request's peer id and request id).
type Server struct {
	uri      string
	policy   xport.TransmissionPolicy
	handler  Handler
	nWorkers int
	metrics  *zmetrics.ServerMetrics

	sock xport.Socket

	reqQueue *squeue.Queue[*inboundReq]
	repQueue *squeue.Queue[*outboundRep]

	eg     *errgroup.Group
	egCtx  context.Context
	stopCh chan struct{}
	ioDone chan struct{}
}

// NewServer constructs a Server bound to uri with the given Handler. A
// nil handler puts the server in manual-dispatch mode: no worker pool
// is started, and callers must pump Recv/Send themselves.
func NewServer(uri string, handler Handler, opts ...Option) *Server {
	s := &Server{
		uri:      uri,
		policy:   xport.SizePrefixedPolicy{},
		handler:  handler,
		nWorkers: 1,
		reqQueue: squeue.New[*inboundReq](),
		repQueue: squeue.New[*outboundRep](),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start binds the server's URI, launches the I/O goroutine, and (in
// automatic mode) the worker pool.
func (s *Server) Start() error {
	sock, err := xport.NewRouter(s.uri)
	if err != nil {
		return err
	}
	s.sock = sock
	s.stopCh = make(chan struct{})
	s.ioDone = make(chan struct{})

	eg, ctx := errgroup.WithContext(context.Background())
	s.eg, s.egCtx = eg, ctx
	if s.handler != nil {
		for i := 0; i < s.nWorkers; i++ {
			eg.Go(s.worker)
		}
	}
	go s.ioLoop()
	return nil
}

// Restart re-binds the server's URI with its original configuration
// after a Stop.
func (s *Server) Restart() error { return s.Start() }

// Addr returns the server's bound address.
func (s *Server) Addr() string { return s.sock.Addr() }

func (s *Server) worker() (err error) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Errorf("rpcserver: worker panicked: %v", r)
			err = fmt.Errorf("rpcserver: worker panicked: %v", r)
		}
	}()
	for {
		req := s.reqQueue.Pop()
		if req == nil {
			return nil
		}
		if s.metrics != nil {
			s.metrics.WorkerStarted()
		}
		start := time.Now()
		result := s.handler(req.peer, req.body)
		if s.metrics != nil {
			s.metrics.WorkerFinished(start)
		}
		if req.id != wire.ReqID(0) {
			s.repQueue.Push(&outboundRep{peer: req.peer, id: req.id, body: result})
		}
	}
}

func (s *Server) ioLoop() {
	defer close(s.ioDone)
	for {
		select {
		case <-s.stopCh:
			s.flushReplies()
			return
		default:
		}

		if s.sock.Poll(defaultPollInterval) {
			frames, err := s.sock.Recv(true)
			if err == nil && len(frames) >= 2 {
				peer := xport.PeerID(frames[0])
				if payload, derr := s.policy.Decode(frames[2:]); derr == nil {
					id, body := wire.UnpackRequest(payload)
					s.reqQueue.Push(&inboundReq{peer: peer, id: id, body: body})
				} else {
					zlog.Warningf("rpcserver: decode failed: %v", derr)
				}
			}
		}
		s.sendOneReply()
		if s.metrics != nil {
			s.metrics.ObserveQueues(s.reqQueue.Len(), s.repQueue.Len())
		}
	}
}

func (s *Server) sendOneReply() {
	rep, ok := s.repQueue.TryPop()
	if !ok {
		return
	}
	if rep.id == wire.ReqID(0) {
		return // authoritative: never send a reply for a no-reply request
	}
	envelope := wire.PackRequest(rep.id, rep.body)
	frames := append([][]byte{[]byte(rep.peer), {}}, s.policy.Encode(envelope)...)
	if err := s.sock.Send(frames...); err != nil {
		zlog.Warningf("rpcserver: send failed: %v", err)
	}
}

func (s *Server) flushReplies() {
	for {
		if _, ok := s.repQueue.TryPop(); !ok {
			return
		}
	}
}

// Recv is the manual-dispatch entry point: it returns the next request
// without invoking a Handler. Valid only when the server was
// constructed with a nil Handler.
func (s *Server) Recv(block bool) (peer xport.PeerID, id wire.ReqID, body wire.ByteArray, ok bool) {
	if block {
		req := s.reqQueue.Pop()
		if req == nil {
			return "", 0, nil, false
		}
		return req.peer, req.id, req.body, true
	}
	req, popped := s.reqQueue.TryPop()
	if !popped || req == nil {
		return "", 0, nil, false
	}
	return req.peer, req.id, req.body, true
}

// SyncRecv blocks for the next request; equivalent to Recv(true).
func (s *Server) SyncRecv() (xport.PeerID, wire.ReqID, wire.ByteArray, bool) { return s.Recv(true) }

// Send queues a reply for peer/id, honoring the same id==0 rule as
// automatic dispatch: a zero id is silently dropped.
func (s *Server) Send(peer xport.PeerID, id wire.ReqID, body wire.ByteArray) {
	if id == wire.ReqID(0) {
		return
	}
	s.repQueue.Push(&outboundRep{peer: peer, id: id, body: body})
}

// Stop signals the I/O loop and worker pool to exit, waits up to
// timeout, then closes the socket. It returns false if the timeout
// elapsed first.
func (s *Server) Stop(timeout time.Duration) bool {
	close(s.stopCh)
	for i := 0; i < s.nWorkers; i++ {
		s.reqQueue.PushFront(nil)
	}
	workersDone := make(chan error, 1)
	go func() { workersDone <- s.eg.Wait() }()

	deadline := time.After(timeout)
	select {
	case <-workersDone:
	case <-deadline:
		s.sock.Close()
		return false
	}
	select {
	case <-s.ioDone:
	case <-deadline:
		s.sock.Close()
		return false
	}
	s.sock.Close()
	return true
}
