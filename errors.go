package eswifi

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCredentials is returned when a Driver is constructed without a
	// network name or passphrase.
	ErrNoCredentials = errors.New("no network credentials configured")

	// ErrPoolExhausted is returned by Dial when every socket handle the
	// module supports is already in use.
	ErrPoolExhausted = errors.New("no free socket handles")

	// ErrConnect is returned when a socket could not be connected to the
	// remote before the connect deadline.
	ErrConnect = errors.New("socket connect failed")

	// ErrRead is returned when a socket read fails before any data has
	// been delivered. Once at least one byte has been copied out, a
	// failing read iteration reports a short read instead.
	ErrRead = errors.New("socket read failed")

	// ErrWrite is returned when a write chunk is rejected by the module.
	ErrWrite = errors.New("socket write failed")

	// ErrClose is returned when the module does not acknowledge a close.
	// The local handle is released regardless.
	ErrClose = errors.New("socket close failed")

	// ErrSocketClosed is returned when a socket is used after Close.
	ErrSocketClosed = errors.New("socket already closed")
)

// Join errors. A failed join is classified once and returned to the caller;
// the driver does not retry a join on its own.
var (
	// ErrInvalidSSID indicates the module rejected the network name.
	ErrInvalidSSID = errors.New("invalid SSID")

	// ErrInvalidPassphrase indicates the module rejected the passphrase.
	ErrInvalidPassphrase = errors.New("invalid passphrase")

	// ErrAssociate indicates the module could not associate with the
	// access point, or its join report could not be decoded.
	ErrAssociate = errors.New("unable to associate with access point")

	// ErrJoinFailed is the catch-all for join sequence failures that the
	// module did not attribute to a specific cause.
	ErrJoinFailed = errors.New("join failed")
)

// HardwareError wraps a failure from one of the capability interfaces and
// records which resource failed.
type HardwareError struct {
	// Resource is one of "cs", "reset", "wakeup", "ready" or "bus".
	Resource string
	Err      error
}

func (e *HardwareError) Error() string {
	return fmt.Sprintf("eswifi: %s: %v", e.Resource, e.Err)
}

func (e *HardwareError) Unwrap() error { return e.Err }

func hwerr(resource string, err error) error {
	return &HardwareError{Resource: resource, Err: err}
}
