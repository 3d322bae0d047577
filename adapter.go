package eswifi

import (
	"bytes"
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/rs/zerolog"

	"github.com/edgewire/eswifi/parse"
)

const (
	// pulseTime is the settle delay on either side of a reset or wakeup
	// edge.
	pulseTime = 50 * time.Millisecond

	// writeChunk is the most data the module accepts in one send command.
	writeChunk = 1200

	// readOverhead is the framing the module adds around a read payload;
	// the per-iteration read request stays under the response buffer
	// capacity by this margin.
	readOverhead = 10
)

// shellBanner is what the module prints once its command shell is up.
var shellBanner = []byte("\r\n> ")

// adapter owns the physical link resources and the socket pool. There is
// exactly one adapter per driver and every access to it goes through the
// driver's lock, so at most one protocol exchange is ever in flight.
type adapter struct {
	bus    Bus
	cs     OutputPin
	reset  OutputPin
	wakeup OutputPin
	ready  ReadyPin

	pool socketPool
	log  *zerolog.Logger
}

func newAdapter(bus Bus, cs, reset, wakeup OutputPin, ready ReadyPin, log *zerolog.Logger) *adapter {
	return &adapter{bus: bus, cs: cs, reset: reset, wakeup: wakeup, ready: ready, log: log}
}

func (a *adapter) pulse(pin OutputPin, resource string) error {
	if err := pin.Set(false); err != nil {
		return hwerr(resource, err)
	}
	time.Sleep(pulseTime)
	if err := pin.Set(true); err != nil {
		return hwerr(resource, err)
	}
	time.Sleep(pulseTime)
	return nil
}

// start runs the boot sequence: reset and wakeup pulses, then a drain of the
// shell banner. Some module revisions answer the very first poll
// unreliably, so a missing banner is logged and tolerated; the verbosity
// command is only sent when the shell actually announced itself.
func (a *adapter) start(ctx context.Context) error {
	a.log.Info().Msg("starting eS-WiFi adapter")

	if err := a.pulse(a.reset, "reset"); err != nil {
		return err
	}
	if err := a.pulse(a.wakeup, "wakeup"); err != nil {
		return err
	}

	if err := a.waitReady(ctx); err != nil {
		return err
	}

	var banner [4]byte
	pos := 0
	err := func() error {
		release, err := a.assertSelect()
		if err != nil {
			return err
		}
		defer release()
		for pos < len(banner) {
			high, err := a.ready.High()
			if err != nil {
				return hwerr("ready", err)
			}
			if !high {
				break
			}
			rx, err := a.transfer([2]byte{pad, pad})
			if err != nil {
				return err
			}
			if rx[1] != nak {
				banner[pos] = rx[1]
				pos++
			}
			if rx[0] != nak && pos < len(banner) {
				banner[pos] = rx[0]
				pos++
			}
		}
		return nil
	}()
	if err != nil {
		return err
	}

	if !bytes.HasPrefix(banner[:pos], shellBanner) {
		a.log.Warn().Bytes("banner", banner[:pos]).Msg("eS-WiFi adapter failed to initialize")
		return nil
	}

	// disable verbosity
	var resp [16]byte
	if _, err := a.sendCommand(ctx, "MT=1", resp[:]); err != nil {
		return err
	}
	a.log.Info().Msg("eS-WiFi adapter is ready")
	return nil
}

// join configures the network credentials and triggers the join. Errors are
// classified once and returned; retrying a join is the caller's decision.
func (a *adapter) join(ctx context.Context, ssid, passphrase string) (netip.Addr, error) {
	var zero netip.Addr
	var resp [1024]byte

	if _, err := a.sendCommand(ctx, "CB=2", resp[:]); err != nil {
		a.log.Debug().Err(err).Msg("join: set security mode")
		return zero, ErrInvalidSSID
	}
	if _, err := a.sendCommand(ctx, "C1="+ssid, resp[:]); err != nil {
		a.log.Debug().Err(err).Msg("join: set SSID")
		return zero, ErrInvalidSSID
	}
	if _, err := a.sendCommand(ctx, "C2="+passphrase, resp[:]); err != nil {
		a.log.Debug().Err(err).Msg("join: set passphrase")
		return zero, ErrInvalidPassphrase
	}
	if _, err := a.sendCommand(ctx, "C3=4", resp[:]); err != nil {
		a.log.Debug().Err(err).Msg("join: set join-on-configure")
		return zero, ErrJoinFailed
	}

	raw, err := a.sendCommand(ctx, "C0", resp[:])
	if err != nil {
		a.log.Debug().Err(err).Msg("join: trigger")
		return zero, ErrJoinFailed
	}

	outcome, err := parse.Join(raw)
	if err != nil {
		a.log.Debug().Err(err).Bytes("response", raw).Msg("join: bad response")
		return zero, ErrAssociate
	}
	if !outcome.OK {
		return zero, ErrAssociate
	}
	return outcome.Addr, nil
}

// allocateSocket reserves a handle from the pool. No wire traffic happens
// until the handle is connected.
func (a *adapter) allocateSocket() (uint8, error) {
	h, err := a.pool.allocate()
	if err != nil {
		return 0, err
	}
	a.log.Trace().Uint8("handle", h).Msg("opened socket")
	return h, nil
}

// selectSocket points the shared command channel at one handle. Every
// socket operation starts with this, which is why all socket traffic is
// serialized under the driver lock.
func (a *adapter) selectSocket(ctx context.Context, h uint8, resp []byte) error {
	_, err := a.sendCommand(ctx, fmt.Sprintf("P0=%d", h), resp)
	return err
}

// connect establishes a TCP connection for handle h. Any step failure maps
// to the one connect error; the failing step is only visible in the logs.
func (a *adapter) connect(ctx context.Context, h uint8, remote netip.AddrPort) error {
	var resp [1024]byte

	step := func(n int, cmd string) error {
		if _, err := a.sendCommand(ctx, cmd, resp[:]); err != nil {
			a.log.Debug().Uint8("handle", h).Int("step", n).Err(err).Msg("connect failed")
			return ErrConnect
		}
		return nil
	}

	if err := a.selectSocket(ctx, h, resp[:]); err != nil {
		a.log.Debug().Uint8("handle", h).Err(err).Msg("connect: select socket")
		return ErrConnect
	}
	// TCP protocol mode.
	if err := step(2, "P1=0"); err != nil {
		return err
	}
	if err := step(3, "P3="+remote.Addr().String()); err != nil {
		return err
	}
	if err := step(4, fmt.Sprintf("P4=%d", remote.Port())); err != nil {
		return err
	}

	raw, err := a.sendCommand(ctx, "P6=1", resp[:])
	if err != nil {
		a.log.Debug().Uint8("handle", h).Err(err).Msg("connect: trigger")
		return ErrConnect
	}
	ok, err := parse.Connect(raw)
	if err != nil || !ok {
		a.log.Debug().Uint8("handle", h).Bytes("response", raw).Msg("connect rejected")
		return ErrConnect
	}
	a.pool.setConnected(h)
	return nil
}

// write sends p in chunks of at most writeChunk bytes. When the send
// command's frame comes out odd, the first data byte is folded into it so
// the combined command+data transfer stays byte-paired. A chunk whose
// response does not parse aborts the write; bytes already flushed stay
// flushed.
func (a *adapter) write(ctx context.Context, h uint8, p []byte) (int, error) {
	var resp [32]byte
	a.log.Trace().Uint8("handle", h).Int("len", len(p)).Msg("write request")

	if err := a.selectSocket(ctx, h, resp[:]); err != nil {
		a.log.Debug().Uint8("handle", h).Err(err).Msg("write: select socket")
		return 0, ErrWrite
	}

	sent := 0
	for sent < len(p) {
		chunk := p[sent:]
		if len(chunk) > writeChunk {
			chunk = chunk[:writeChunk]
		}

		prefix := []byte(fmt.Sprintf("S3=%d\r", len(chunk)))
		data := chunk
		if len(prefix)%2 != 0 {
			prefix = append(prefix, data[0])
			data = data[1:]
		}

		if err := a.waitReady(ctx); err != nil {
			return sent, ErrWrite
		}
		err := func() error {
			release, err := a.assertSelect()
			if err != nil {
				return err
			}
			defer release()
			if err := a.sendFrame(prefix); err != nil {
				return err
			}
			return a.sendFrame(data)
		}()
		if err != nil {
			a.log.Debug().Uint8("handle", h).Err(err).Msg("write: transfer")
			return sent, ErrWrite
		}

		raw, err := a.receive(ctx, resp[:])
		if err != nil {
			a.log.Debug().Uint8("handle", h).Err(err).Msg("write: drain response")
			return sent, ErrWrite
		}
		n, err := parse.Write(raw)
		if err != nil {
			a.log.Debug().Uint8("handle", h).Bytes("response", raw).Msg("write rejected")
			return sent, ErrWrite
		}
		if n != len(chunk) {
			a.log.Debug().Uint8("handle", h).Int("want", len(chunk)).Int("got", n).Msg("write: short chunk ack")
		}
		sent += len(chunk)
	}
	return len(p), nil
}

// read fills p from handle h. It loops until p is full or the module
// reports no more data. A failing iteration after at least one byte has
// been delivered degrades to a short read; only a failure on the very first
// iteration is an error. Callers must treat a short, non-zero read as "try
// again", not as a stream boundary.
func (a *adapter) read(ctx context.Context, h uint8, p []byte) (int, error) {
	pos := 0
	for {
		n, err := a.readOnce(ctx, h, p, pos)
		if err != nil {
			if pos == 0 {
				return 0, err
			}
			return pos, nil
		}
		pos += n
		if n == 0 || pos == len(p) {
			return pos, nil
		}
	}
}

func (a *adapter) readOnce(ctx context.Context, h uint8, p []byte, pos int) (int, error) {
	var resp [1470]byte

	if err := a.selectSocket(ctx, h, resp[:]); err != nil {
		a.log.Debug().Uint8("handle", h).Err(err).Msg("read: select socket")
		return 0, ErrRead
	}

	want := len(resp) - readOverhead
	if rem := len(p) - pos; rem < want {
		want = rem
	}

	if _, err := a.sendCommand(ctx, fmt.Sprintf("R1=%d", want), resp[:]); err != nil {
		a.log.Debug().Uint8("handle", h).Err(err).Msg("read: set length")
		return 0, ErrRead
	}
	if _, err := a.sendCommand(ctx, "R3=1", resp[:]); err != nil {
		a.log.Debug().Uint8("handle", h).Err(err).Msg("read: trigger")
		return 0, ErrRead
	}

	if err := a.waitReady(ctx); err != nil {
		return 0, ErrRead
	}
	// Raw read handshake, outside the textual command framing.
	err := func() error {
		release, err := a.assertSelect()
		if err != nil {
			return err
		}
		defer release()
		if _, err := a.transfer([2]byte{'0', 'R'}); err != nil {
			return err
		}
		_, err = a.transfer([2]byte{'\n', '\r'})
		return err
	}()
	if err != nil {
		a.log.Debug().Uint8("handle", h).Err(err).Msg("read: handshake")
		return 0, ErrRead
	}

	raw, err := a.receive(ctx, resp[:])
	if err != nil {
		a.log.Debug().Uint8("handle", h).Err(err).Msg("read: drain")
		return 0, ErrRead
	}

	payload, err := parse.Read(raw)
	if err != nil {
		a.log.Debug().Uint8("handle", h).Bytes("response", raw).Msg("read rejected")
		return 0, ErrRead
	}
	if pos+len(payload) > len(p) {
		a.log.Debug().Uint8("handle", h).Int("payload", len(payload)).Int("space", len(p)-pos).Msg("read: payload overruns buffer")
		return 0, ErrRead
	}
	copy(p[pos:], payload)
	return len(payload), nil
}

// closeSocket disables the connection for handle h. The local handle is
// released up front no matter what the module answers: a close that the
// module refuses usually means the remote side is already gone, and holding
// the multiplexing slot hostage helps nobody.
func (a *adapter) closeSocket(ctx context.Context, h uint8) error {
	a.log.Trace().Uint8("handle", h).Msg("closing connection")
	a.pool.release(h)

	var resp [32]byte
	if err := a.selectSocket(ctx, h, resp[:]); err != nil {
		a.log.Debug().Uint8("handle", h).Err(err).Msg("close: select socket")
		return ErrClose
	}
	raw, err := a.sendCommand(ctx, "P6=0", resp[:])
	if err != nil {
		a.log.Debug().Uint8("handle", h).Err(err).Msg("close: disable")
		return ErrClose
	}
	ok, err := parse.Close(raw)
	if err != nil || !ok {
		a.log.Debug().Uint8("handle", h).Bytes("response", raw).Msg("close rejected")
		return ErrClose
	}
	a.log.Debug().Uint8("handle", h).Msg("connection closed")
	return nil
}
