package xport_test

import (
	"bytes"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ugv-zrf/zrf/xport"
)

// connectURI turns a socket's bound "any interface" address into a
// loopback URI a dialer can actually connect to.
func connectURI(t *testing.T, s xport.Socket) string {
	t.Helper()
	addr := s.Addr()
	i := strings.LastIndexByte(addr, ':')
	if i < 0 {
		t.Fatalf("unexpected bound address %q", addr)
	}
	port, err := strconv.Atoi(addr[i+1:])
	if err != nil {
		t.Fatalf("unexpected bound address %q: %v", addr, err)
	}
	return "tcp://127.0.0.1:" + strconv.Itoa(port)
}

func TestRouterDealerRoundTrip(t *testing.T) {
	router, err := xport.NewRouter("tcp://*:0")
	if err != nil {
		t.Fatalf("router bind: %v", err)
	}
	defer router.Close()

	dealer, err := xport.NewDealer(connectURI(t, router))
	if err != nil {
		t.Fatalf("dealer dial: %v", err)
	}
	defer dealer.Close()

	if err := dealer.Send([]byte{}, []byte("ping")); err != nil {
		t.Fatalf("dealer send: %v", err)
	}

	frames, err := router.Recv(true)
	if err != nil {
		t.Fatalf("router recv: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("expected [peer-id, empty, payload], got %d frames", len(frames))
	}
	if !bytes.Equal(frames[2], []byte("ping")) {
		t.Fatalf("expected ping payload, got %q", frames[2])
	}

	peerID := frames[0]
	if err := router.Send(peerID, []byte{}, []byte("pong")); err != nil {
		t.Fatalf("router send: %v", err)
	}

	reply, err := dealer.Recv(true)
	if err != nil {
		t.Fatalf("dealer recv: %v", err)
	}
	if len(reply) != 2 || !bytes.Equal(reply[1], []byte("pong")) {
		t.Fatalf("expected [empty, pong], got %v", reply)
	}
}

func TestPushPullRoundRobin(t *testing.T) {
	puller, err := xport.NewPull("tcp://*:0")
	if err != nil {
		t.Fatalf("puller bind: %v", err)
	}
	defer puller.Close()

	pusher, err := xport.NewPush(connectURI(t, puller))
	if err != nil {
		t.Fatalf("pusher dial: %v", err)
	}
	defer pusher.Close()

	if err := pusher.Send([]byte("work-item")); err != nil {
		t.Fatalf("push send: %v", err)
	}
	frames, err := puller.Recv(true)
	if err != nil {
		t.Fatalf("pull recv: %v", err)
	}
	if !bytes.Equal(frames[0], []byte("work-item")) {
		t.Fatalf("unexpected payload: %q", frames[0])
	}
}

func TestPubSubBroadcast(t *testing.T) {
	pub, err := xport.NewPub("tcp://*:0")
	if err != nil {
		t.Fatalf("pub bind: %v", err)
	}
	defer pub.Close()

	sub, err := xport.NewSub(connectURI(t, pub))
	if err != nil {
		t.Fatalf("sub dial: %v", err)
	}
	defer sub.Close()

	// give the accept loop a moment to register the subscriber
	time.Sleep(20 * time.Millisecond)

	if err := pub.Send([]byte("tick")); err != nil {
		t.Fatalf("pub send: %v", err)
	}
	frames, err := sub.Recv(true)
	if err != nil {
		t.Fatalf("sub recv: %v", err)
	}
	if !bytes.Equal(frames[0], []byte("tick")) {
		t.Fatalf("unexpected payload: %q", frames[0])
	}
}

func TestNonBlockingRecvTimesOutWhenEmpty(t *testing.T) {
	router, err := xport.NewRouter("tcp://*:0")
	if err != nil {
		t.Fatalf("router bind: %v", err)
	}
	defer router.Close()

	if _, err := router.Recv(false); err == nil {
		t.Fatal("expected a timeout on a non-blocking recv with nothing pending")
	}
}
