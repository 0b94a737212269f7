// Package stream implements the streaming pub/sub layer: a Publisher
// owns a bound PUB socket and drains a buffered outbound queue on its
// own goroutine, while a Subscriber owns a connected SUB socket and
// feeds a buffered inbound queue a consumer drains with Loop.
package stream

import (
	"sync/atomic"
	"time"

	cuckoo "github.com/seiflotfy/cuckoofilter"

	"github.com/ugv-zrf/zrf/squeue"
	"github.com/ugv-zrf/zrf/wire"
	"github.com/ugv-zrf/zrf/xport"
	"github.com/ugv-zrf/zrf/zerr"
	"github.com/ugv-zrf/zrf/zlog"
)

// Status is a small bitset describing a Publisher/Subscriber's lifecycle.
type Status uint32

const (
	StatusStarted Status = 1 << iota
	StatusStopped
	StatusTimedOut
)

func (s Status) Has(flag Status) bool { return s&flag != 0 }

// Option configures a Publisher or Subscriber at construction time.
type Option func(*config)

type config struct {
	policy        xport.TransmissionPolicy
	recvTimeout   time.Duration
	dedupCapacity uint
	dedup         bool
}

func defaultConfig() config {
	return config{policy: xport.SizePrefixedPolicy{}}
}

// WithPolicy overrides the default SizePrefixedPolicy.
func WithPolicy(p xport.TransmissionPolicy) Option { return func(c *config) { c.policy = p } }

// WithRecvTimeout bounds a Subscriber's blocking receive; the
// subscriber's goroutine exits and sets StatusTimedOut once it elapses
// with nothing received.
func WithRecvTimeout(d time.Duration) Option { return func(c *config) { c.recvTimeout = d } }

// WithDedup enables cuckoo-filter-based duplicate suppression on a
// Subscriber, keyed by the message's wire.Checksum; capacity bounds the
// expected distinct-message working set.
func WithDedup(capacity uint) Option {
	return func(c *config) { c.dedup = true; c.dedupCapacity = capacity }
}

// Publisher buffers outbound messages and flushes them to every
// connected subscriber on its own goroutine.
type Publisher struct {
	uri    string
	cfg    config
	sock   xport.Socket
	queue  *squeue.Queue[wire.ByteArray]
	stop   atomic.Bool
	status atomic.Uint32
	done   chan struct{}
}

// NewPublisher binds uri and starts the background send loop.
func NewPublisher(uri string, opts ...Option) (*Publisher, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	p := &Publisher{uri: uri, cfg: cfg, queue: squeue.New[wire.ByteArray]()}
	if err := p.start(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) start() error {
	sock, err := xport.NewPub(p.uri)
	if err != nil {
		return err
	}
	p.sock = sock
	p.stop.Store(false)
	p.status.Store(uint32(StatusStarted))
	p.done = make(chan struct{})
	go p.run()
	return nil
}

func (p *Publisher) run() {
	defer close(p.done)
	for {
		item := p.queue.Pop()
		if p.stop.Load() {
			return
		}
		if err := p.sock.Send(p.cfg.policy.Encode(item)...); err != nil {
			zlog.Warningf("stream: publisher send failed: %v", err)
		}
	}
}

// Send enqueues a pre-encoded payload for delivery.
func (p *Publisher) Send(b wire.ByteArray) { p.queue.Push(b) }

// SendArgs wire.Packs args and enqueues the result.
func (p *Publisher) SendArgs(args ...any) { p.queue.Push(wire.Pack(args...)) }

// Buffer enqueues every item as a single batch.
func (p *Publisher) Buffer(items ...wire.ByteArray) { p.queue.Buffer(items...) }

// Stop drains no further sends, wakes the background goroutine, and
// waits up to timeout for it to exit. It returns false if the timeout
// elapsed first.
func (p *Publisher) Stop(timeout time.Duration) bool {
	p.stop.Store(true)
	p.queue.PushFront(nil)
	ok := waitDone(p.done, timeout)
	p.sock.Close()
	p.status.Store(uint32(StatusStopped))
	return ok
}

// Restart re-binds the publisher's URI and resumes the send loop.
func (p *Publisher) Restart() error { return p.start() }

// Status returns the publisher's current lifecycle bitset.
func (p *Publisher) Status() Status { return Status(p.status.Load()) }

// BoundAddr returns the address the publisher is actually bound to,
// useful after binding to an ephemeral ("*:0") port.
func (p *Publisher) BoundAddr() string { return p.sock.Addr() }

// Subscriber connects to a publisher and buffers received messages for
// a consumer to drain via Loop.
type Subscriber struct {
	uri    string
	cfg    config
	sock   xport.Socket
	queue  *squeue.Queue[wire.ByteArray]
	dedup  *cuckoo.Filter
	stop   atomic.Bool
	status atomic.Uint32
	done   chan struct{}
}

// NewSubscriber connects to uri and starts the background receive loop.
func NewSubscriber(uri string, opts ...Option) (*Subscriber, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	s := &Subscriber{uri: uri, cfg: cfg, queue: squeue.New[wire.ByteArray]()}
	if cfg.dedup {
		capacity := cfg.dedupCapacity
		if capacity == 0 {
			capacity = 1 << 16
		}
		s.dedup = cuckoo.NewFilter(capacity)
	}
	if err := s.start(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Subscriber) start() error {
	sock, err := xport.NewSub(s.uri)
	if err != nil {
		return err
	}
	sock.SetRecvTimeout(s.cfg.recvTimeout)
	s.sock = sock
	s.stop.Store(false)
	s.status.Store(uint32(StatusStarted))
	s.done = make(chan struct{})
	go s.run()
	return nil
}

func (s *Subscriber) run() {
	defer close(s.done)
	for {
		if s.stop.Load() {
			return
		}
		frames, err := s.sock.Recv(true)
		if err != nil {
			if s.stop.Load() {
				return
			}
			if zerr.IsTimeout(err) {
				s.status.Store(s.status.Load() | uint32(StatusTimedOut))
				s.queue.PushFront(nil)
				return
			}
			zlog.Warningf("stream: subscriber recv failed: %v", err)
			continue
		}
		payload, err := s.cfg.policy.Decode(frames)
		if err != nil {
			zlog.Warningf("stream: subscriber decode failed: %v", err)
			continue
		}
		if s.dedup != nil {
			key := wire.Pack(wire.Checksum(payload))
			if !s.dedup.InsertUnique(key) {
				continue
			}
		}
		s.queue.Push(payload)
	}
}

// Loop drains received messages, calling cb for each until cb returns
// false, Stop is called, or the receive timeout elapses.
func (s *Subscriber) Loop(cb func(wire.ByteArray) bool) {
	for {
		item := s.queue.Pop()
		if item == nil {
			return
		}
		if !cb(item) {
			return
		}
	}
}

// Stop wakes the background goroutine and waits up to timeout for it to
// exit, returning false if the timeout elapsed first. The socket is
// closed before the wait so a receive blocked with no timeout returns
// promptly instead of pinning the goroutine past the deadline.
func (s *Subscriber) Stop(timeout time.Duration) bool {
	s.stop.Store(true)
	s.queue.PushFront(nil)
	s.sock.Close()
	ok := waitDone(s.done, timeout)
	s.status.Store(s.status.Load() | uint32(StatusStopped))
	return ok
}

// Restart re-connects the subscriber's URI and resumes the receive loop.
func (s *Subscriber) Restart() error { return s.start() }

// Status returns the subscriber's current lifecycle bitset.
func (s *Subscriber) Status() Status { return Status(s.status.Load()) }

func waitDone(done <-chan struct{}, timeout time.Duration) bool {
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
