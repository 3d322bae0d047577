package eswifi

import (
	"context"
	"errors"
	"net/netip"
	"sync/atomic"
	"time"
)

// Socket is one logical connection multiplexed over the driver's command
// channel. It implements io.ReadWriteCloser; Read and Write acquire the
// driver lock for the duration of one protocol exchange.
//
// A Socket holds no buffers of its own — all connection state lives in the
// driver's pool and in the module.
type Socket struct {
	handle uint8
	driver *Driver
	closed atomic.Bool
}

// connect retries the connect sequence until it succeeds or the configured
// deadline passes. A handle still marked connected from a prior failed
// attempt is force-closed first.
func (s *Socket) connect(ctx context.Context, remote netip.AddrPort) error {
	d := s.driver
	deadline := time.Now().Add(d.cfg.ConnectTimeout)

	for time.Now().Before(deadline) {
		attempt, cancel := context.WithTimeout(ctx, d.cfg.ConnectTimeout)
		err := func() error {
			d.mu.Lock()
			defer d.mu.Unlock()

			if d.adapter.pool.isConnected(s.handle) {
				if err := d.adapter.closeSocket(attempt, s.handle); err != nil {
					return err
				}
			}
			return d.adapter.connect(attempt, s.handle, remote)
		}()
		timedOut := errors.Is(attempt.Err(), context.DeadlineExceeded)
		cancel()
		switch {
		case err == nil:
			return nil
		case timedOut:
			// The attempt itself timed out; the deadline is spent.
			return ErrConnect
		}
		if err := sleepCtx(ctx, d.cfg.ConnectBackoff); err != nil {
			return ErrConnect
		}
	}
	return ErrConnect
}

// Read fills p with data from the connection. It returns the number of
// bytes copied; a count below len(p) with a nil error means more data may
// follow, while 0, nil means the module currently has nothing buffered.
func (s *Socket) Read(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, ErrSocketClosed
	}
	d := s.driver
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.adapter.read(context.Background(), s.handle, p)
}

// Write sends p over the connection, chunking as the module requires. It
// returns len(p) on success; a failed chunk aborts the write.
func (s *Socket) Write(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, ErrSocketClosed
	}
	d := s.driver
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.adapter.write(context.Background(), s.handle, p)
}

// Close never blocks: it hands the handle to the control loop, which
// performs the wire close with retries in the background. If a close
// request is already pending the new one is dropped — the module times out
// idle connections on its own, so best effort is enough here.
func (s *Socket) Close() error {
	if s.closed.Swap(true) {
		return ErrSocketClosed
	}
	s.enqueueClose()
	return nil
}

func (s *Socket) enqueueClose() {
	select {
	case s.driver.control <- s.handle:
	default:
	}
}
