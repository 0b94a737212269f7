// Package zerr defines the error taxonomy shared by every zrf endpoint:
// transport failures and protocol violations are terminal for the owning
// endpoint, while per-request failures travel back to callers as typed
// values so callers can switch on them with errors.As.
package zerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// TransportError wraps a socket create/bind/connect/send/recv failure.
// Terminal for the owning endpoint.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("zrf: transport error during %s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

func NewTransportError(op string, err error) error {
	return errors.WithStack(&TransportError{Op: op, Err: err})
}

// ProtocolError signals a framing violation: a size-prefixed receiver
// that did not see the expected MORE-flagged frame pair, or any other
// unexpected frame count.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return "zrf: protocol error: " + e.Reason }

func NewProtocolError(reason string) error {
	return errors.WithStack(&ProtocolError{Reason: reason})
}

// MethodNotFound is returned by Registry.Invoke for an unregistered
// method id; the RMI service loop turns this into an ERROR-status reply.
type MethodNotFound struct {
	MethodID int32
}

func (e *MethodNotFound) Error() string { return fmt.Sprintf("method not found: %d", e.MethodID) }

func NewMethodNotFound(id int32) error { return errors.WithStack(&MethodNotFound{MethodID: id}) }

// DecodeError wraps a deserialization failure reading a corrupt or
// undersized buffer, returned only by the bounded (*Checked) decode path.
type DecodeError struct {
	Type string
	Err  error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("zrf: decode %s: %v", e.Type, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

func NewDecodeError(typ string, err error) error {
	return errors.WithStack(&DecodeError{Type: typ, Err: err})
}

// RemoteServiceException is raised on the client side of an RMI call
// when the service returned an ERROR status; Message is exactly the
// server-supplied text.
type RemoteServiceException struct {
	Message string
}

func (e *RemoteServiceException) Error() string { return "Service Error: " + e.Message }

func NewRemoteServiceException(msg string) error {
	return errors.WithStack(&RemoteServiceException{Message: msg})
}

// Cancelled describes a request released before its reply arrived.
// rpcclient does not deliver it: Stop and SweepStale release a pending
// Reply with an empty ByteArray instead.
type Cancelled struct{}

func (e *Cancelled) Error() string { return "zrf: request cancelled" }

// ErrCancelled is the shared Cancelled sentinel.
var ErrCancelled = &Cancelled{}

// Timeout is returned by a non-blocking receive, a subscriber whose
// receive-timeout elapsed, or a puller that saw no data in time.
type Timeout struct{ Op string }

func (e *Timeout) Error() string { return "zrf: timeout: " + e.Op }

func NewTimeout(op string) error { return &Timeout{Op: op} }

// IsTimeout reports whether err is (or wraps) a Timeout.
func IsTimeout(err error) bool {
	var t *Timeout
	return errors.As(err, &t)
}
