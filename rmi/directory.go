package rmi

import (
	"strings"
	"time"

	"github.com/ugv-zrf/zrf/rpcclient"
	"github.com/ugv-zrf/zrf/rpcserver"
	"github.com/ugv-zrf/zrf/wire"
	"github.com/ugv-zrf/zrf/xport"
	"github.com/ugv-zrf/zrf/zerr"
	"github.com/ugv-zrf/zrf/zlog"
)

// The directory wire is one string each way: the request body is the
// packed service name, the reply body is the packed URI of the (now
// running) service, or the packed noService text when the name was
// never registered.

// Serve binds the manager's own directory endpoint at uri and starts
// answering lookups. A looked-up service that is not yet running is
// started first, so the returned URI is always live.
func (sm *ServiceManager) Serve(uri string, opts ...rpcserver.Option) error {
	sm.mu.Lock()
	if sm.directory != nil {
		sm.mu.Unlock()
		return zerr.NewProtocolError("service manager directory is already serving")
	}
	srv := rpcserver.NewServer(uri, sm.handleLookup, opts...)
	sm.directory = srv
	sm.mu.Unlock()
	if err := srv.Start(); err != nil {
		sm.mu.Lock()
		sm.directory = nil
		sm.mu.Unlock()
		return err
	}
	zlog.Infof("rmi: service manager directory listening on %s", srv.Addr())
	return nil
}

// DirectoryAddr returns the directory endpoint's bound address; empty
// until Serve has been called.
func (sm *ServiceManager) DirectoryAddr() string {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.directory == nil {
		return ""
	}
	return sm.directory.Addr()
}

func (sm *ServiceManager) handleLookup(_ xport.PeerID, req wire.ByteArray) wire.ByteArray {
	name, err := wire.UnpackChecked[string](req)
	if err != nil {
		zlog.Warningf("rmi: directory lookup carried an undecodable name: %v", err)
		return wire.Pack(noService("service"))
	}
	svc, err := sm.Start(name)
	if err != nil {
		zlog.Warningf("rmi: directory lookup for %q failed: %v", name, err)
		return wire.Pack(noService(name))
	}
	recorded, err := sm.Lookup(name)
	if err != nil {
		return wire.Pack(noService(name))
	}
	return wire.Pack(advertiseURI(recorded, svc.Addr()))
}

func noService(name string) string { return "No " + name + " available" }

// advertiseURI rewrites a recorded (possibly binding, possibly
// ephemeral-port) URI into one a remote caller can dial: the "*" host
// becomes loopback and the port comes from the address the service
// actually bound.
func advertiseURI(recorded, boundAddr string) string {
	host := strings.TrimPrefix(recorded, "tcp://")
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	if host == "*" || host == "" {
		host = "127.0.0.1"
	}
	port := boundAddr
	if i := strings.LastIndexByte(boundAddr, ':'); i >= 0 {
		port = boundAddr[i+1:]
	}
	return "tcp://" + host + ":" + port
}

// LookupService asks the manager directory at managerURI for name's
// endpoint. It returns a zerr.RemoteServiceException carrying the
// manager's reply text when the name is not registered there.
func LookupService(managerURI, name string, opts ...rpcclient.Option) (string, error) {
	c := rpcclient.NewClient(managerURI, opts...)
	if err := c.Start(); err != nil {
		return "", err
	}
	defer c.Stop(time.Second)

	reply := c.SendArgs(name)
	uri, err := wire.UnpackChecked[string](reply.Get())
	if err != nil {
		return "", err
	}
	if uri == noService(name) {
		return "", zerr.NewRemoteServiceException(uri)
	}
	return uri, nil
}

// Connect is the one-call client path through the directory: look name
// up at managerURI, then dial a started proxy straight at the service's
// own endpoint.
func Connect(managerURI, name string, opts ...rpcclient.Option) (*ServiceProxy, error) {
	uri, err := LookupService(managerURI, name, opts...)
	if err != nil {
		return nil, err
	}
	proxy := NewServiceProxy(uri, opts...)
	if err := proxy.Start(); err != nil {
		return nil, err
	}
	return proxy, nil
}
