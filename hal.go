package eswifi

import "context"

//go:generate go tool mockgen -source=hal.go -destination=mock_hal.go -package=eswifi

// OutputPin drives a single digital output line (chip-select, reset, wakeup).
//
// Implementations are expected to be cheap and non-blocking; any settle time
// the module requires after a level change is handled by the driver, not the
// pin.
type OutputPin interface {
	// Set drives the pin; true is the electrically high level.
	Set(high bool) error
}

// ReadyPin is the module's data-ready/interrupt line.
//
// The module asserts the line when it can accept a command or has response
// data pending. This is the driver's only blocking primitive: everything else
// is paced by waiting for this line.
type ReadyPin interface {
	// High reports the current level of the line.
	High() (bool, error)
	// WaitForEdge blocks until the line changes level or ctx is done.
	// It returns ctx.Err() if the context expires first.
	WaitForEdge(ctx context.Context) error
}

// Bus performs full-duplex exchanges with the module.
//
// The module's internal bus is 16 bits wide, so every exchange moves exactly
// one two-byte pair. Framing (chip-select bracketing) is the driver's job;
// a Bus implementation only clocks bytes.
type Bus interface {
	// Transfer clocks out tx and returns the pair clocked in.
	Transfer(tx [2]byte) ([2]byte, error)
}
