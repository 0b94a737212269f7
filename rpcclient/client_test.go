package rpcclient_test

import (
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ugv-zrf/zrf/rpcclient"
	"github.com/ugv-zrf/zrf/wire"
	"github.com/ugv-zrf/zrf/xport"
)

func connectURI(t *testing.T, boundAddr string) string {
	t.Helper()
	i := strings.LastIndexByte(boundAddr, ':')
	port, err := strconv.Atoi(boundAddr[i+1:])
	if err != nil {
		t.Fatalf("unexpected bound address %q: %v", boundAddr, err)
	}
	return "tcp://127.0.0.1:" + strconv.Itoa(port)
}

// sumServer is a minimal hand-rolled ROUTER-side stand-in, so these
// tests exercise Client in isolation from rpcserver: it decodes a
// (int32, int32) request and replies with their sum.
func sumServer(router xport.Socket, policy xport.TransmissionPolicy, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		if !router.Poll(20 * time.Millisecond) {
			continue
		}
		frames, err := router.Recv(true)
		if err != nil {
			continue
		}
		peer := frames[0]
		payload, err := policy.Decode(frames[2:])
		if err != nil {
			continue
		}
		id, body := wire.UnpackRequest(payload)
		if id == 0 {
			continue
		}
		var a, b int32
		wire.UnpackTuple(body, &a, &b)
		reply := wire.PackRequest(id, wire.Pack(a+b))
		router.Send(append([][]byte{peer, {}}, policy.Encode(reply)...)...)
	}
}

func TestClientSendReceivesReply(t *testing.T) {
	router, err := xport.NewRouter("tcp://*:0")
	if err != nil {
		t.Fatalf("router bind: %v", err)
	}
	defer router.Close()

	stop := make(chan struct{})
	defer close(stop)
	policy := xport.SizePrefixedPolicy{}
	go sumServer(router, policy, stop)

	c := rpcclient.NewClient(connectURI(t, router.Addr()))
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer c.Stop(time.Second)

	reply := c.SendArgs(int32(5), int32(4))
	sum := rpcclient.As[int32](reply)
	if sum != 9 {
		t.Fatalf("expected 9, got %d", sum)
	}
}

func TestClientSendNoReplyDoesNotBlock(t *testing.T) {
	router, err := xport.NewRouter("tcp://*:0")
	if err != nil {
		t.Fatalf("router bind: %v", err)
	}
	defer router.Close()

	stop := make(chan struct{})
	defer close(stop)
	go sumServer(router, xport.SizePrefixedPolicy{}, stop)

	c := rpcclient.NewClient(connectURI(t, router.Addr()))
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer c.Stop(time.Second)

	c.SendArgsNoReply(int32(1), int32(2))
	// Nothing to assert beyond "this returns promptly"; a fire-and-forget
	// send must never block waiting on a reply that will never come.
}

// The allocator is process-wide: ids never repeat across clients and 0
// is never issued, even across a large draw.
func TestNewReqIDIsProcessWideAndSkipsZero(t *testing.T) {
	seen := make(map[wire.ReqID]bool)
	for i := 0; i < 1000; i++ {
		id := rpcclient.NewReqID()
		if id == 0 {
			t.Fatal("the reserved id 0 must never be issued")
		}
		if seen[id] {
			t.Fatalf("id %d issued twice", id)
		}
		seen[id] = true
	}
}

// Issue many requests concurrently: every reply must land on its own
// request, and once every handle is consumed the waitlist must be empty.
func TestParallelManyRequests(t *testing.T) {
	router, err := xport.NewRouter("tcp://*:0")
	if err != nil {
		t.Fatalf("router bind: %v", err)
	}
	defer router.Close()

	stop := make(chan struct{})
	defer close(stop)
	go sumServer(router, xport.SizePrefixedPolicy{}, stop)

	c := rpcclient.NewClient(connectURI(t, router.Addr()))
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer c.Stop(time.Second)

	const n = 200
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(i int32) {
			reply := c.SendArgs(i, i)
			if got := rpcclient.As[int32](reply); got != 2*i {
				errs <- fmt.Errorf("request %d: expected %d, got %d", i, 2*i, got)
				return
			}
			errs <- nil
		}(int32(i))
	}
	for i := 0; i < n; i++ {
		if err := <-errs; err != nil {
			t.Fatal(err)
		}
	}
	if pending := c.Pending(); pending != 0 {
		t.Fatalf("expected an empty waitlist after all replies were consumed, %d remain", pending)
	}
}

func TestSweepStaleReleasesOldEntries(t *testing.T) {
	router, err := xport.NewRouter("tcp://*:0")
	if err != nil {
		t.Fatalf("router bind: %v", err)
	}
	defer router.Close()
	// No server goroutine: the request can only be released by the sweep.

	c := rpcclient.NewClient(connectURI(t, router.Addr()))
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer c.Stop(time.Second)

	reply := c.SendArgs(int32(1))
	done := make(chan wire.ByteArray, 1)
	go func() { done <- reply.Get() }()

	time.Sleep(20 * time.Millisecond)
	if n := c.SweepStale(time.Hour); n != 0 {
		t.Fatalf("expected a young entry to survive the sweep, released %d", n)
	}
	if n := c.SweepStale(time.Millisecond); n != 1 {
		t.Fatalf("expected exactly 1 stale entry released, got %d", n)
	}

	select {
	case b := <-done:
		if len(b) != 0 {
			t.Fatalf("expected an empty reply from the sweep, got %v", b)
		}
	case <-time.After(time.Second):
		t.Fatal("pending Reply.Get() was never released by SweepStale")
	}
}

func TestClientStopReleasesPending(t *testing.T) {
	router, err := xport.NewRouter("tcp://*:0")
	if err != nil {
		t.Fatalf("router bind: %v", err)
	}
	defer router.Close()
	// No server goroutine: replies never arrive.

	c := rpcclient.NewClient(connectURI(t, router.Addr()))
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	reply := c.SendArgs(int32(1))
	done := make(chan wire.ByteArray, 1)
	go func() { done <- reply.Get() }()

	time.Sleep(50 * time.Millisecond)
	if !c.Stop(time.Second) {
		t.Fatal("expected Stop to complete within the timeout")
	}

	select {
	case b := <-done:
		if len(b) != 0 {
			t.Fatalf("expected an empty reply after Stop, got %v", b)
		}
	case <-time.After(time.Second):
		t.Fatal("pending Reply.Get() was never released by Stop")
	}
}
