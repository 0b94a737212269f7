package rmi

import (
	"fmt"
	"sync"
	"time"

	"github.com/tidwall/buntdb"

	"github.com/ugv-zrf/zrf/rpcserver"
)

// ServiceManager is a lazy-start name -> URI directory: a Registry is
// recorded against a name up front, but its Service isn't bound and
// started until the first Start call or directory lookup. Serve exposes
// the directory itself over the wire; see directory.go.
type ServiceManager struct {
	db *buntdb.DB

	mu         sync.Mutex
	registries map[string]*Registry
	services   map[string]*Service
	directory  *rpcserver.Server
}

// NewServiceManager constructs an empty, in-memory ServiceManager.
func NewServiceManager() (*ServiceManager, error) {
	db, err := buntdb.Open(":memory:")
	if err != nil {
		return nil, err
	}
	return &ServiceManager{
		db:         db,
		registries: make(map[string]*Registry),
		services:   make(map[string]*Service),
	}, nil
}

// RegisterService records reg under name, reachable at uri once
// started.
func (sm *ServiceManager) RegisterService(name, uri string, reg *Registry) error {
	sm.mu.Lock()
	sm.registries[name] = reg
	sm.mu.Unlock()

	return sm.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(name, uri, nil)
		return err
	})
}

// Lookup returns the URI registered for name.
func (sm *ServiceManager) Lookup(name string) (string, error) {
	var uri string
	err := sm.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(name)
		if err != nil {
			return err
		}
		uri = v
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("rmi: lookup %q: %w", name, err)
	}
	return uri, nil
}

// Start binds and starts the named service on first call, returning
// the same running *Service on every subsequent call. The lock is held
// across the bind so two concurrent lookups cannot start a name twice.
func (sm *ServiceManager) Start(name string, opts ...rpcserver.Option) (*Service, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if svc, ok := sm.services[name]; ok {
		return svc, nil
	}
	reg, ok := sm.registries[name]
	if !ok {
		return nil, fmt.Errorf("rmi: no registry recorded for %q", name)
	}

	uri, err := sm.Lookup(name)
	if err != nil {
		return nil, err
	}

	svc := NewService(uri, reg, opts...)
	if err := svc.Start(); err != nil {
		return nil, err
	}
	sm.services[name] = svc
	return svc, nil
}

// Stop stops the directory endpoint (if serving) and every service this
// manager started, then closes its backing store.
func (sm *ServiceManager) Stop(timeout time.Duration) {
	sm.mu.Lock()
	directory := sm.directory
	sm.directory = nil
	services := make([]*Service, 0, len(sm.services))
	for _, svc := range sm.services {
		services = append(services, svc)
	}
	sm.services = make(map[string]*Service)
	sm.mu.Unlock()

	if directory != nil {
		directory.Stop(timeout)
	}
	for _, svc := range services {
		svc.Stop(timeout)
	}
	sm.db.Close()
}
