package eswifi

import (
	"context"
	"time"
)

const (
	// nak is the filler byte the module clocks out when it has no real
	// data for a slot. It is filtered, never stored.
	nak = 0x15
	// pad fills the unused half of an odd trailing pair.
	pad = 0x0A

	// Chip-select settle and hold times the module requires around each
	// framed exchange.
	csSettleTime = 1 * time.Millisecond
	csHoldTime   = 15 * time.Microsecond
)

// assertSelect drives chip-select active and waits the settle time. The
// returned release func drives it inactive and waits the hold time; callers
// defer it so chip-select is never left asserted on an error path.
func (a *adapter) assertSelect() (release func(), err error) {
	if err := a.cs.Set(false); err != nil {
		return nil, hwerr("cs", err)
	}
	time.Sleep(csSettleTime)
	return func() {
		// Deassert is best effort; a failing pin here will surface on
		// the next assert.
		_ = a.cs.Set(true)
		time.Sleep(csHoldTime)
	}, nil
}

// waitReady suspends until the module's ready line is high. This is the only
// backpressure mechanism the protocol has: the module raises the line when
// it can accept a command or has a response pending.
func (a *adapter) waitReady(ctx context.Context) error {
	for {
		high, err := a.ready.High()
		if err != nil {
			return hwerr("ready", err)
		}
		if high {
			return nil
		}
		if err := a.ready.WaitForEdge(ctx); err != nil {
			return hwerr("ready", err)
		}
	}
}

func (a *adapter) transfer(tx [2]byte) ([2]byte, error) {
	rx, err := a.bus.Transfer(tx)
	if err != nil {
		return rx, hwerr("bus", err)
	}
	return rx, nil
}

// sendCommand frames a textual command (CR appended, padded to even length)
// onto the bus and drains the module's response into resp. It returns the
// filled prefix of resp.
func (a *adapter) sendCommand(ctx context.Context, cmd string, resp []byte) ([]byte, error) {
	b := make([]byte, 0, len(cmd)+2)
	b = append(b, cmd...)
	b = append(b, '\r')
	if len(b)%2 != 0 {
		b = append(b, pad)
	}
	return a.send(ctx, b, resp)
}

// send clocks out frame under one chip-select acquisition and then drains
// the response.
func (a *adapter) send(ctx context.Context, frame, resp []byte) ([]byte, error) {
	if err := a.waitReady(ctx); err != nil {
		return nil, err
	}
	release, err := a.assertSelect()
	if err != nil {
		return nil, err
	}
	err = a.sendFrame(frame)
	release()
	if err != nil {
		return nil, err
	}
	return a.receive(ctx, resp)
}

// sendFrame clocks out frame two bytes at a time. Within each pair the
// second byte goes on the wire first; a lone trailing byte is paired with
// the pad byte. Chip-select must already be asserted.
func (a *adapter) sendFrame(frame []byte) error {
	for i := 0; i < len(frame); i += 2 {
		var tx [2]byte
		tx[1] = frame[i]
		if i+1 < len(frame) {
			tx[0] = frame[i+1]
		} else {
			tx[0] = pad
		}
		if _, err := a.transfer(tx); err != nil {
			return err
		}
	}
	return nil
}

// receive drains the module's pending response into resp while the ready
// line stays high and space remains. Received pairs are stored low byte
// first to undo the wire order; NAK filler is dropped. The filled prefix of
// resp is returned — its length, not the buffer capacity, bounds every
// later use of the response.
//
// The early-termination branch (a NAK immediately followed by a deasserted
// ready line drains at most one more payload byte) matches observed module
// behavior and should not be "simplified" without hardware verification.
func (a *adapter) receive(ctx context.Context, resp []byte) ([]byte, error) {
	if err := a.waitReady(ctx); err != nil {
		return nil, err
	}
	release, err := a.assertSelect()
	if err != nil {
		return nil, err
	}
	defer release()

	pos := 0
	for pos < len(resp) {
		high, err := a.ready.High()
		if err != nil {
			return nil, hwerr("ready", err)
		}
		if !high {
			break
		}

		rx, err := a.transfer([2]byte{pad, pad})
		if err != nil {
			return nil, err
		}

		if rx[0] == nak {
			time.Sleep(time.Microsecond)
			high, err := a.ready.High()
			if err != nil {
				return nil, hwerr("ready", err)
			}
			if !high {
				if rx[1] != nak {
					resp[pos] = rx[1]
					pos++
				}
				break
			}
		}

		if rx[1] != nak {
			resp[pos] = rx[1]
			pos++
		}
		if rx[0] != nak && pos < len(resp) {
			resp[pos] = rx[0]
			pos++
		}
	}
	return resp[:pos], nil
}
