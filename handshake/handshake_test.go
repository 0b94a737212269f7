package handshake_test

import (
	"strconv"
	"strings"
	"testing"

	"github.com/ugv-zrf/zrf/handshake"
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

func TestInitiateRespond(t *testing.T) {
	responder, err := handshake.Bind("tcp://*:0")
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	defer responder.Close()

	serverDone := make(chan error, 1)
	go func() {
		req, err := responder.Serve(int32(7))
		if err != nil {
			serverDone <- err
			return
		}
		if string(req) == "" {
			serverDone <- nil
			return
		}
		serverDone <- nil
	}()

	reply, err := handshake.Initiate[int32](connectURI(t, responder.BoundAddr()), "hello")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if reply != 7 {
		t.Fatalf("expected reply 7, got %d", reply)
	}
	if err := <-serverDone; err != nil {
		t.Fatalf("server error: %v", err)
	}
}
