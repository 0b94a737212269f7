// Package handshake implements the one-shot request/reply exchange used
// to bootstrap a session before any of the longer-lived patterns (async
// request/reply, streaming, pipeline, or RMI) take over: one REQ socket
// connects, sends exactly one message, and waits for exactly one reply.
package handshake

import (
	"github.com/ugv-zrf/zrf/wire"
	"github.com/ugv-zrf/zrf/xport"
	"github.com/ugv-zrf/zrf/zerr"
)

// Initiate connects to uri, sends wire.Pack(args...), and decodes the
// single reply frame as R.
func Initiate[R any](uri string, args ...any) (R, error) {
	var zero R
	sock, err := xport.NewReq(uri)
	if err != nil {
		return zero, err
	}
	defer sock.Close()

	if err := sock.Send(wire.Pack(args...)); err != nil {
		return zero, err
	}
	frames, err := sock.Recv(true)
	if err != nil {
		return zero, err
	}
	if len(frames) == 0 {
		return zero, zerr.NewProtocolError("handshake reply carried no frames")
	}
	return wire.UnpackChecked[R](frames[0])
}

// Respond binds uri, accepts exactly one connection, and returns its
// request payload after replying with wire.Pack(args...).
func Respond(uri string, args ...any) (wire.ByteArray, error) {
	sock, err := xport.NewRep(uri)
	if err != nil {
		return nil, err
	}
	defer sock.Close()

	frames, err := sock.Recv(true)
	if err != nil {
		return nil, err
	}
	if err := sock.Send(wire.Pack(args...)); err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, nil
	}
	return frames[0], nil
}

// Responder is Respond split into bind and serve steps, so a caller can
// discover the actual bound address before the first request arrives
// (needed when binding to an ephemeral "*:0" port).
type Responder struct {
	sock xport.Socket
}

// Bind binds uri and returns a Responder, letting a caller discover the
// actual bound address (for "*:0" URIs) before serving a request.
func Bind(uri string) (*Responder, error) {
	sock, err := xport.NewRep(uri)
	if err != nil {
		return nil, err
	}
	return &Responder{sock: sock}, nil
}

// BoundAddr returns the responder's local address.
func (r *Responder) BoundAddr() string { return r.sock.Addr() }

// Serve accepts one connection, returns its request payload, and
// replies with wire.Pack(args...).
func (r *Responder) Serve(args ...any) (wire.ByteArray, error) {
	frames, err := r.sock.Recv(true)
	if err != nil {
		return nil, err
	}
	if err := r.sock.Send(wire.Pack(args...)); err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, nil
	}
	return frames[0], nil
}

// Close releases the underlying listener.
func (r *Responder) Close() error { return r.sock.Close() }
