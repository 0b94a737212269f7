// Package rmi implements remote method invocation on top of the
// rpcclient/rpcserver async request/reply layer: a Registry maps
// integer method ids to arbitrary Go functions via reflection, a
// Service dispatches incoming requests against a Registry, and a
// ServiceProxy calls a remote Service as if it were a local Registry.
//
// The original's compile-time tagged dispatch (pod-pod, pod-void,
// void-pod, void-void) doesn't have a clean Go equivalent, since Go
// methods can't carry their own type parameters; reflection plays
// that role here instead; a method's argument and return types are
// captured once at Register time and reused on every Invoke.
package rmi

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/ugv-zrf/zrf/wire"
	"github.com/ugv-zrf/zrf/zerr"
)

// Method wraps one registered function.
type Method struct {
	fn        reflect.Value
	argTypes  []reflect.Type
	hasReturn bool
}

// Registry holds a set of methods keyed by id, ready to be served by a
// Service or invoked directly.
type Registry struct {
	mu      sync.RWMutex
	methods map[int32]*Method
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{methods: make(map[int32]*Method)}
}

// Register adds fn under id. fn must be a function taking zero or more
// POD/string/slice arguments and returning at most one value; Register
// panics on a non-function or on more than one result (an extra
// trailing error result included), since a bad registration is a
// programmer error caught at startup.
func Register(reg *Registry, id int32, fn any) {
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		panic(fmt.Sprintf("rmi: Register(%d): not a function", id))
	}
	if t.NumOut() > 1 {
		panic(fmt.Sprintf("rmi: Register(%d): at most one return value is supported", id))
	}
	argTypes := make([]reflect.Type, t.NumIn())
	for i := range argTypes {
		argTypes[i] = t.In(i)
	}
	m := &Method{fn: v, argTypes: argTypes, hasReturn: t.NumOut() == 1}

	reg.mu.Lock()
	reg.methods[id] = m
	reg.mu.Unlock()
}

// Invoke decodes args against the registered method's parameter types,
// calls it, and encodes its return value (if any). It returns
// zerr.MethodNotFound for an unregistered id.
func (reg *Registry) Invoke(id int32, args wire.ByteArray) (result wire.ByteArray, err error) {
	reg.mu.RLock()
	m, ok := reg.methods[id]
	reg.mu.RUnlock()
	if !ok {
		return nil, zerr.NewMethodNotFound(id)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rmi: method %d panicked: %v", id, r)
		}
	}()

	in := make([]reflect.Value, len(m.argTypes))
	rest := args
	for i, at := range m.argTypes {
		ptr := reflect.New(at)
		rest = wire.DecodeInto(rest, ptr.Elem())
		in[i] = ptr.Elem()
	}

	out := m.fn.Call(in)
	if !m.hasReturn {
		return nil, nil
	}
	return wire.EncodeValue(nil, out[0]), nil
}
