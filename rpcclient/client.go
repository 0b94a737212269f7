// Package rpcclient implements the async request/reply client: a
// single I/O goroutine multiplexes any number of outstanding requests
// over one DEALER socket, matching replies back to callers by request
// id via a waitlist.
package rpcclient

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ugv-zrf/zrf/squeue"
	"github.com/ugv-zrf/zrf/wire"
	"github.com/ugv-zrf/zrf/xport"
	"github.com/ugv-zrf/zrf/zlog"
	"github.com/ugv-zrf/zrf/zmetrics"
)

const defaultPollInterval = 10 * time.Millisecond

// Option configures a Client at construction time.
type Option func(*Client)

// WithPolicy overrides the default SizePrefixedPolicy.
func WithPolicy(p xport.TransmissionPolicy) Option { return func(c *Client) { c.policy = p } }

// WithPollInterval overrides how often the I/O goroutine polls the
// socket for incoming replies between outbound-queue checks.
func WithPollInterval(d time.Duration) Option { return func(c *Client) { c.pollInterval = d } }

// WithMetrics attaches a zmetrics.ClientMetrics collector.
func WithMetrics(m *zmetrics.ClientMetrics) Option { return func(c *Client) { c.metrics = m } }

// waitEntry is one request's completion slot: the reply lands on ch,
// and sentAt lets SweepStale and the latency metric tell how long the
// request has been outstanding.
type waitEntry struct {
	ch     chan wire.ByteArray
	sentAt time.Time
}

// deliver resolves the slot without ever blocking: the channel holds
// one reply and a slot can be raced by the I/O goroutine and a
// sweep/stop release, in which case whichever arrives second is
// dropped (the slot is single-consume either way).
func (e *waitEntry) deliver(b wire.ByteArray) {
	select {
	case e.ch <- b:
	default:
	}
}

// Reply is a handle to one in-flight request's eventual response.
type Reply struct {
	id     wire.ReqID
	ch     chan wire.ByteArray
	client *Client
}

// Get blocks until the reply arrives (or the client is stopped, which
// delivers an empty ByteArray), then removes the request's waitlist
// entry.
func (r *Reply) Get() wire.ByteArray {
	b := <-r.ch
	r.client.forget(r.id)
	return b
}

// As decodes Get()'s result as T. Go has no implicit-conversion
// operator, so this stands in for the original's `operator T()`.
func As[T any](r *Reply) T { return wire.Unpack[T](r.Get()) }

// Client owns one DEALER connection and the goroutine that drains its
// outbound queue and dispatches inbound replies.
type Client struct {
	uri          string
	policy       xport.TransmissionPolicy
	pollInterval time.Duration
	metrics      *zmetrics.ClientMetrics

	sock xport.Socket

	outbound *squeue.Queue[wire.ByteArray]

	mu       sync.Mutex
	waitlist map[wire.ReqID]*waitEntry

	stop atomic.Bool
	done chan struct{}
}

// nextID is shared by every Client in the process, so a request id
// never repeats across clients either.
var nextID atomic.Uint64

// NewReqID returns the next process-wide request id, skipping the
// reserved value 0 on wrap.
func NewReqID() wire.ReqID {
	id := wire.ReqID(nextID.Add(1))
	for id == 0 {
		id = wire.ReqID(nextID.Add(1))
	}
	return id
}

// NewClient constructs a Client; call Start before sending anything.
func NewClient(uri string, opts ...Option) *Client {
	c := &Client{
		uri:          uri,
		policy:       xport.SizePrefixedPolicy{},
		pollInterval: defaultPollInterval,
		outbound:     squeue.New[wire.ByteArray](),
		waitlist:     make(map[wire.ReqID]*waitEntry),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Start dials the client's URI and launches the I/O goroutine.
func (c *Client) Start() error {
	sock, err := xport.NewDealer(c.uri)
	if err != nil {
		return err
	}
	c.sock = sock
	c.stop.Store(false)
	c.done = make(chan struct{})
	go c.run()
	return nil
}

// Send enqueues payload and returns a handle for its reply.
func (c *Client) Send(payload wire.ByteArray) *Reply {
	id := NewReqID()
	ch := make(chan wire.ByteArray, 1)
	c.mu.Lock()
	c.waitlist[id] = &waitEntry{ch: ch, sentAt: time.Now()}
	waitlistLen := len(c.waitlist)
	c.mu.Unlock()

	c.outbound.Push(wire.PackRequest(id, payload))
	if c.metrics != nil {
		c.metrics.ObserveOutbound(c.outbound.Len(), waitlistLen)
	}
	return &Reply{id: id, ch: ch, client: c}
}

// SendNoReply enqueues payload with the reserved id 0: the server will
// not send a reply, and no waitlist entry is created.
func (c *Client) SendNoReply(payload wire.ByteArray) {
	c.outbound.Push(wire.PackRequest(wire.ReqID(0), payload))
}

// SendArgs wire.Packs args and calls Send.
func (c *Client) SendArgs(args ...any) *Reply { return c.Send(wire.Pack(args...)) }

// SendArgsNoReply wire.Packs args and calls SendNoReply.
func (c *Client) SendArgsNoReply(args ...any) { c.SendNoReply(wire.Pack(args...)) }

// Restart re-dials the client's URI with its original configuration
// after a Stop.
func (c *Client) Restart() error { return c.Start() }

// Pending returns the number of requests still awaiting a reply.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waitlist)
}

func (c *Client) forget(id wire.ReqID) {
	if id == 0 {
		return
	}
	c.mu.Lock()
	delete(c.waitlist, id)
	c.mu.Unlock()
}

func (c *Client) run() {
	defer close(c.done)
	for {
		if c.sock.Poll(c.pollInterval) {
			c.recvOne()
		}
		if frame, ok := c.outbound.TryPop(); ok {
			if err := c.sock.Send(append([][]byte{{}}, c.policy.Encode(frame)...)...); err != nil {
				zlog.Warningf("rpcclient: send failed: %v", err)
			}
		}
		if c.stop.Load() {
			return
		}
	}
}

func (c *Client) recvOne() {
	frames, err := c.sock.Recv(true)
	if err != nil {
		return
	}
	if len(frames) < 1 {
		zlog.Warningf("rpcclient: reply carried no envelope frame")
		return
	}
	payload, err := c.policy.Decode(frames[1:])
	if err != nil {
		zlog.Warningf("rpcclient: reply decode failed: %v", err)
		return
	}
	replyID, replyBody := wire.UnpackRequest(payload)
	if replyID == 0 {
		return
	}
	c.mu.Lock()
	entry, ok := c.waitlist[replyID]
	c.mu.Unlock()
	if !ok {
		zlog.Warningf("rpcclient: reply for unknown request id %d", replyID)
		return
	}
	if c.metrics != nil {
		c.metrics.ObserveReplyLatency(entry.sentAt)
	}
	entry.deliver(replyBody)
}

// SweepStale releases every waitlist entry older than maxAge with an
// empty reply, the same way Stop releases the whole list, and returns
// how many it released. Intended to run as a housekeep job so a caller
// blocked on a reply the server will never send gets unstuck.
func (c *Client) SweepStale(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	c.mu.Lock()
	var stale []*waitEntry
	for id, entry := range c.waitlist {
		if entry.sentAt.Before(cutoff) {
			stale = append(stale, entry)
			delete(c.waitlist, id)
		}
	}
	c.mu.Unlock()
	for _, entry := range stale {
		entry.deliver(nil)
	}
	if len(stale) > 0 {
		zlog.Warningf("rpcclient: released %d request(s) pending longer than %v", len(stale), maxAge)
	}
	return len(stale)
}

// Stop signals the I/O goroutine to exit, waits up to timeout for it,
// closes the socket, and releases every still-pending waitlist entry
// with an empty ByteArray. It returns false if the timeout elapsed
// first.
func (c *Client) Stop(timeout time.Duration) bool {
	c.stop.Store(true)
	var ok bool
	select {
	case <-c.done:
		ok = true
	case <-time.After(timeout):
		ok = false
	}
	c.sock.Close()

	c.mu.Lock()
	for id, entry := range c.waitlist {
		entry.deliver(nil)
		delete(c.waitlist, id)
	}
	c.mu.Unlock()
	return ok
}
