// Package probe implements the driver's capability interfaces over a bench
// USB serial bridge, so an eS-WiFi module on a breakout board can be driven
// from a development host without a target MCU.
//
// The bridge firmware speaks a fixed three-byte request/reply protocol:
//
//	request:  op, arg0, arg1
//	reply:    status, val0, val1
//
// where op selects a pin write, a pin read or one two-byte bus exchange.
// One request is in flight at a time; a mutex serializes access because the
// driver touches pins and bus from more than one goroutine.
package probe

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/edgewire/eswifi"
)

const (
	opSetPin   = 0x01
	opGetPin   = 0x02
	opTransfer = 0x03

	statusOK = 0x00
)

// edgePollInterval paces WaitForEdge level polling. The bridge protocol has
// no asynchronous notifications, so edges are detected by polling.
const edgePollInterval = time.Millisecond

// Probe is a connection to the bridge. Obtain pins and the bus from it and
// hand them to eswifi.New.
type Probe struct {
	mu   sync.Mutex
	port io.ReadWriteCloser
}

// Open connects to the bridge on the named serial device.
func Open(device string, baud int) (*Probe, error) {
	port, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open probe %s: %w", device, err)
	}
	return &Probe{port: port}, nil
}

// Close closes the serial connection. Pins handed out before Close fail
// afterwards.
func (p *Probe) Close() error {
	return p.port.Close()
}

// OutputPin returns bridge pin id as a driver output pin.
func (p *Probe) OutputPin(id uint8) eswifi.OutputPin {
	return &outputPin{p: p, id: id}
}

// ReadyPin returns bridge pin id as the driver's ready line.
func (p *Probe) ReadyPin(id uint8) eswifi.ReadyPin {
	return &readyPin{p: p, id: id}
}

// Bus returns the bridge's SPI channel as the driver bus.
func (p *Probe) Bus() eswifi.Bus {
	return &bus{p: p}
}

func (p *Probe) roundTrip(op, arg0, arg1 byte) ([2]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.port.Write([]byte{op, arg0, arg1}); err != nil {
		return [2]byte{}, fmt.Errorf("probe write: %w", err)
	}
	var reply [3]byte
	if _, err := io.ReadFull(p.port, reply[:]); err != nil {
		return [2]byte{}, fmt.Errorf("probe read: %w", err)
	}
	if reply[0] != statusOK {
		return [2]byte{}, fmt.Errorf("probe op %#02x: bridge status %#02x", op, reply[0])
	}
	return [2]byte{reply[1], reply[2]}, nil
}

type outputPin struct {
	p  *Probe
	id uint8
}

func (o *outputPin) Set(high bool) error {
	level := byte(0)
	if high {
		level = 1
	}
	_, err := o.p.roundTrip(opSetPin, o.id, level)
	return err
}

type readyPin struct {
	p  *Probe
	id uint8
}

func (r *readyPin) High() (bool, error) {
	v, err := r.p.roundTrip(opGetPin, r.id, 0)
	if err != nil {
		return false, err
	}
	return v[0] != 0, nil
}

func (r *readyPin) WaitForEdge(ctx context.Context) error {
	start, err := r.High()
	if err != nil {
		return err
	}
	ticker := time.NewTicker(edgePollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cur, err := r.High()
			if err != nil {
				return err
			}
			if cur != start {
				return nil
			}
		}
	}
}

type bus struct {
	p *Probe
}

func (b *bus) Transfer(tx [2]byte) ([2]byte, error) {
	return b.p.roundTrip(opTransfer, tx[0], tx[1])
}
