package probe

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

// fakeBridge scripts the three-byte request/reply exchanges of the bench
// firmware over an in-memory port.
type fakeBridge struct {
	requests [][]byte
	replies  [][]byte
	pending  []byte
	closed   bool
}

func (f *fakeBridge) reply(status, val0, val1 byte) {
	f.replies = append(f.replies, []byte{status, val0, val1})
}

func (f *fakeBridge) Write(p []byte) (int, error) {
	f.requests = append(f.requests, append([]byte(nil), p...))
	if len(f.replies) > 0 {
		f.pending = append(f.pending, f.replies[0]...)
		f.replies = f.replies[1:]
	} else {
		f.pending = append(f.pending, statusOK, 0, 0)
	}
	return len(p), nil
}

func (f *fakeBridge) Read(p []byte) (int, error) {
	n := copy(p, f.pending)
	f.pending = f.pending[n:]
	return n, nil
}

func (f *fakeBridge) Close() error {
	f.closed = true
	return nil
}

func TestOutputPinSet(t *testing.T) {
	f := &fakeBridge{}
	p := &Probe{port: f}

	pin := p.OutputPin(3)
	if err := pin.Set(true); err != nil {
		t.Fatalf("Set(true) error: %v", err)
	}
	if err := pin.Set(false); err != nil {
		t.Fatalf("Set(false) error: %v", err)
	}

	want := [][]byte{{opSetPin, 3, 1}, {opSetPin, 3, 0}}
	if len(f.requests) != len(want) {
		t.Fatalf("got %d requests, want %d", len(f.requests), len(want))
	}
	for i := range want {
		if !bytes.Equal(f.requests[i], want[i]) {
			t.Errorf("request %d = %v, want %v", i, f.requests[i], want[i])
		}
	}
}

func TestReadyPinHigh(t *testing.T) {
	f := &fakeBridge{}
	p := &Probe{port: f}

	f.reply(statusOK, 1, 0)
	f.reply(statusOK, 0, 0)

	pin := p.ReadyPin(2)
	if high, err := pin.High(); err != nil || !high {
		t.Fatalf("High() = %v, %v; want true, nil", high, err)
	}
	if high, err := pin.High(); err != nil || high {
		t.Fatalf("High() = %v, %v; want false, nil", high, err)
	}
	if got, want := f.requests[0], []byte{opGetPin, 2, 0}; !bytes.Equal(got, want) {
		t.Errorf("request = %v, want %v", got, want)
	}
}

func TestBusTransfer(t *testing.T) {
	f := &fakeBridge{}
	p := &Probe{port: f}

	f.reply(statusOK, 0x41, 0x42)
	rx, err := p.Bus().Transfer([2]byte{0x10, 0x20})
	if err != nil {
		t.Fatalf("Transfer() error: %v", err)
	}
	if rx != [2]byte{0x41, 0x42} {
		t.Errorf("Transfer() = %v, want [41 42]", rx)
	}
	if got, want := f.requests[0], []byte{opTransfer, 0x10, 0x20}; !bytes.Equal(got, want) {
		t.Errorf("request = %v, want %v", got, want)
	}
}

func TestBridgeStatusError(t *testing.T) {
	f := &fakeBridge{}
	p := &Probe{port: f}

	f.reply(0x7F, 0, 0)
	_, err := p.Bus().Transfer([2]byte{0, 0})
	if err == nil {
		t.Fatal("Transfer() with failing bridge status succeeded")
	}
	if !strings.Contains(err.Error(), "status") {
		t.Errorf("error %q does not name the bridge status", err)
	}
}

func TestWaitForEdgeSeesLevelChange(t *testing.T) {
	f := &fakeBridge{}
	p := &Probe{port: f}

	// Initial sample low, then low again, then high: one edge.
	f.reply(statusOK, 0, 0)
	f.reply(statusOK, 0, 0)
	f.reply(statusOK, 1, 0)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.ReadyPin(2).WaitForEdge(ctx); err != nil {
		t.Fatalf("WaitForEdge() error: %v", err)
	}
}

func TestWaitForEdgeHonorsContext(t *testing.T) {
	f := &fakeBridge{}
	p := &Probe{port: f}

	// Default replies hold the level steady: no edge ever arrives.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.ReadyPin(2).WaitForEdge(ctx); err != context.DeadlineExceeded {
		t.Fatalf("WaitForEdge() error = %v, want DeadlineExceeded", err)
	}
}

func TestClose(t *testing.T) {
	f := &fakeBridge{}
	p := &Probe{port: f}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if !f.closed {
		t.Error("Close() did not close the port")
	}
}
