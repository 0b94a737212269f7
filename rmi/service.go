package rmi

import (
	"encoding/binary"
	"time"

	"github.com/ugv-zrf/zrf/rpcserver"
	"github.com/ugv-zrf/zrf/wire"
	"github.com/ugv-zrf/zrf/xport"
)

// Wire status codes: 0 means the method ran and the reply body is its
// encoded return value; -1 means it failed and the body is the error
// text.
const (
	statusOK    int32 = 0
	statusError int32 = -1
)

// Service exposes a Registry over the network: the request body is a
// 4-byte little-endian method id followed by the opaque, wire-packed
// argument bytes; the reply body is wire.Pack(status, payload).
type Service struct {
	registry *Registry
	server   *rpcserver.Server
}

// NewService constructs a Service bound to uri that dispatches against
// reg. Options are forwarded to the underlying rpcserver.Server.
func NewService(uri string, reg *Registry, opts ...rpcserver.Option) *Service {
	s := &Service{registry: reg}
	s.server = rpcserver.NewServer(uri, s.dispatch, opts...)
	return s
}

func (s *Service) dispatch(_ xport.PeerID, req wire.ByteArray) wire.ByteArray {
	if len(req) < 4 {
		return encodeReply(statusError, []byte("rmi: request too short to carry a method id"))
	}
	methodID := int32(binary.LittleEndian.Uint32(req))
	result, err := s.registry.Invoke(methodID, req[4:])
	if err != nil {
		return encodeReply(statusError, []byte(err.Error()))
	}
	return encodeReply(statusOK, result)
}

func encodeReply(status int32, body []byte) wire.ByteArray {
	return wire.Pack(status, body)
}

// Start binds the service's socket and begins serving requests.
func (s *Service) Start() error { return s.server.Start() }

// Addr returns the service's bound address.
func (s *Service) Addr() string { return s.server.Addr() }

// Stop gracefully stops the underlying server.
func (s *Service) Stop(timeout time.Duration) bool { return s.server.Stop(timeout) }
