package rmi

import (
	"encoding/binary"
	"time"

	"github.com/ugv-zrf/zrf/rpcclient"
	"github.com/ugv-zrf/zrf/wire"
	"github.com/ugv-zrf/zrf/zerr"
)

// ServiceProxy calls a remote Service as if it were a local Registry.
type ServiceProxy struct {
	client *rpcclient.Client
}

// NewServiceProxy constructs a proxy connected to uri; call Start
// before issuing any Request.
func NewServiceProxy(uri string, opts ...rpcclient.Option) *ServiceProxy {
	return &ServiceProxy{client: rpcclient.NewClient(uri, opts...)}
}

// Start dials the proxy's underlying client.
func (p *ServiceProxy) Start() error { return p.client.Start() }

// Stop stops the underlying client.
func (p *ServiceProxy) Stop(timeout time.Duration) bool { return p.client.Stop(timeout) }

// Call is a handle to one in-flight RMI invocation's eventual result.
type Call struct {
	reply *rpcclient.Reply
}

// Request invokes methodID on the remote service with args, wire-packed
// in order, and returns a handle for its result.
func (p *ServiceProxy) Request(methodID int32, args ...any) *Call {
	body := make([]byte, 4, 4+32)
	binary.LittleEndian.PutUint32(body, uint32(methodID))
	body = wire.PackInto(body, args...)
	return &Call{reply: p.client.Send(body)}
}

// Get blocks for the call's result, returning a zerr.RemoteServiceException
// if the service reported an error status.
func (c *Call) Get() (wire.ByteArray, error) {
	raw := c.reply.Get()
	var status int32
	var body wire.ByteArray
	wire.UnpackTuple(raw, &status, &body)
	if status != statusOK {
		return nil, zerr.NewRemoteServiceException(string(body))
	}
	return body, nil
}

// As decodes Get()'s result as T. Go has no operator-overload
// equivalent, so this stands in for the original's generic Call<T>.
func As[T any](c *Call) (T, error) {
	var zero T
	body, err := c.Get()
	if err != nil {
		return zero, err
	}
	return wire.UnpackChecked[T](body)
}
