// Package eswifi drives a serial-attached eS-WiFi companion module: a
// half-duplex, chip-select framed byte link carrying a textual command
// protocol, multiplexing a handful of logical TCP sockets over one physical
// command channel.
//
// The driver is built from capability interfaces (OutputPin, ReadyPin, Bus)
// so it carries no dependency on any particular board support package; see
// package probe for a development implementation over a USB serial bridge.
//
// Usage mirrors construction-then-loop:
//
//	drv, err := eswifi.New(ctx, bus, cs, reset, wakeup, ready, eswifi.Config{
//		SSID:       "mynet",
//		Passphrase: "secret",
//	})
//	if err != nil { return err }
//
//	// Service deferred socket cleanup for the driver's lifetime.
//	go drv.Run(ctx)
//
//	sock, err := drv.Dial(ctx, netip.MustParseAddrPort("192.168.1.10:80"))
package eswifi

import (
	"context"
	"net/netip"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Driver multiplexes socket handles over one eS-WiFi adapter. All protocol
// exchanges run under a single lock, so at most one command is in flight on
// the physical channel regardless of how many sockets are in use.
type Driver struct {
	mu      sync.Mutex
	adapter *adapter

	// control carries deferred close requests from Socket.Close to Run.
	// Capacity 1: a closing socket enqueues at most one request and
	// never blocks; a request that finds the slot taken is dropped.
	control chan uint8

	cfg Config
	log *zerolog.Logger

	localAddr netip.Addr
}

// New constructs the driver and synchronously boots the adapter and joins
// the configured network. On return the driver is serviceable once Run has
// been started.
func New(ctx context.Context, bus Bus, cs, reset, wakeup OutputPin, ready ReadyPin, cfg Config) (*Driver, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.setDefaults()

	d := &Driver{
		adapter: newAdapter(bus, cs, reset, wakeup, ready, cfg.Logger),
		control: make(chan uint8, 1),
		cfg:     cfg,
		log:     cfg.Logger,
	}
	if err := d.resetAdapter(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// resetAdapter re-runs the boot sequence and rejoins the network. It is the
// sole recovery path for a wedged module.
func (d *Driver) resetAdapter(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.adapter.start(ctx); err != nil {
		return err
	}
	d.log.Debug().Str("ssid", d.cfg.SSID).Msg("joining WiFi network")
	addr, err := d.adapter.join(ctx, d.cfg.SSID, d.cfg.Passphrase)
	if err != nil {
		return err
	}
	d.localAddr = addr
	d.log.Debug().Stringer("addr", addr).Msg("WiFi network joined")
	return nil
}

// LocalAddr returns the address the module reported when it joined the
// network.
func (d *Driver) LocalAddr() netip.Addr {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.localAddr
}

// Run services deferred close requests until ctx is done. It must be
// running for Socket.Close to make progress; start it once, right after
// New.
//
// Each request gets a bounded number of close attempts, each under its own
// timeout. A handle that refuses to close after that indicates protocol
// desync rather than a transient fault, so the loop escalates to a full
// adapter reset. A reset that itself fails is fatal and is returned.
func (d *Driver) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case h := <-d.control:
			if err := d.serviceClose(ctx, h); err != nil {
				return err
			}
		}
	}
}

func (d *Driver) serviceClose(ctx context.Context, h uint8) error {
	for attempt := 0; attempt < d.cfg.CloseRetries; attempt++ {
		err := d.closeWithTimeout(ctx, h)
		if err == nil {
			return nil
		}
		d.log.Warn().Uint8("handle", h).Err(err).Msg("error closing connection")
		if err := sleepCtx(ctx, d.cfg.CloseBackoff); err != nil {
			return err
		}
	}

	d.log.Warn().Uint8("handle", h).Msg("close retries exhausted, resetting adapter")
	return d.resetAdapter(ctx)
}

func (d *Driver) closeWithTimeout(ctx context.Context, h uint8) error {
	cctx, cancel := context.WithTimeout(ctx, d.cfg.CloseTimeout)
	defer cancel()

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.adapter.closeSocket(cctx, h)
}

// Dial opens a socket handle and connects it to remote. The connect is
// retried under the configured deadline; see Socket for the I/O contract of
// the returned connection.
func (d *Driver) Dial(ctx context.Context, remote netip.AddrPort) (*Socket, error) {
	d.mu.Lock()
	h, err := d.adapter.allocateSocket()
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s := &Socket{handle: h, driver: d}
	if err := s.connect(ctx, remote); err != nil {
		// Hand the half-open handle to the control loop for cleanup.
		s.enqueueClose()
		return nil, err
	}
	return s, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
