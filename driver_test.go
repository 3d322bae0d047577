package eswifi_test

import (
	"context"
	"errors"
	"net/netip"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/edgewire/eswifi"
)

const okPrompt = "\r\nOK\r\n> "

func testConfig() eswifi.Config {
	return eswifi.Config{
		SSID:           "mynet",
		Passphrase:     "hunter22",
		ConnectTimeout: 2 * time.Second,
		ConnectBackoff: 10 * time.Millisecond,
		CloseTimeout:   30 * time.Millisecond,
		CloseRetries:   3,
		CloseBackoff:   5 * time.Millisecond,
	}
}

func newTestDriver(t *testing.T, m *eswifi.TestModule, cfg eswifi.Config) *eswifi.Driver {
	t.Helper()
	drv, err := eswifi.New(context.Background(), m.Bus(), m.CS(), m.Reset(), m.Wakeup(), m.Ready(), cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return drv
}

// scriptConnect queues the five-command connect exchange for one handle.
func scriptConnect(m *eswifi.TestModule, handle, addr, port string) {
	m.Expect("P0="+handle, okPrompt)
	m.Expect("P1=0", okPrompt)
	m.Expect("P3="+addr, okPrompt)
	m.Expect("P4="+port, okPrompt)
	m.Expect("P6=1", okPrompt)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func countCommands(m *eswifi.TestModule, cmd string) int {
	n := 0
	for _, c := range m.SentCommands() {
		if c == cmd {
			n++
		}
	}
	return n
}

func TestNewJoinsNetwork(t *testing.T) {
	m := eswifi.NewTestModule()
	m.ScriptBoot("mynet", "hunter22", "192.168.1.102")

	drv := newTestDriver(t, m, testConfig())

	if got, want := drv.LocalAddr(), netip.MustParseAddr("192.168.1.102"); got != want {
		t.Errorf("LocalAddr() = %v, want %v", got, want)
	}
	if m.Resets() != 1 {
		t.Errorf("Resets() = %d, want 1", m.Resets())
	}
	if len(m.Mismatches) != 0 {
		t.Errorf("unexpected exchanges: %v", m.Mismatches)
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	m := eswifi.NewTestModule()
	_, err := eswifi.New(context.Background(), m.Bus(), m.CS(), m.Reset(), m.Wakeup(), m.Ready(), eswifi.Config{})
	if !errors.Is(err, eswifi.ErrNoCredentials) {
		t.Fatalf("New() error = %v, want ErrNoCredentials", err)
	}
}

func TestNewPropagatesHardwareError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	bus := eswifi.NewMockBus(ctrl)
	cs := eswifi.NewMockOutputPin(ctrl)
	wakeup := eswifi.NewMockOutputPin(ctrl)
	ready := eswifi.NewMockReadyPin(ctrl)

	reset := eswifi.NewMockOutputPin(ctrl)
	reset.EXPECT().Set(false).Return(errors.New("pin stuck"))

	_, err := eswifi.New(context.Background(), bus, cs, reset, wakeup, ready, testConfig())
	var hwe *eswifi.HardwareError
	if !errors.As(err, &hwe) {
		t.Fatalf("New() error = %v, want HardwareError", err)
	}
	if hwe.Resource != "reset" {
		t.Errorf("HardwareError.Resource = %q, want %q", hwe.Resource, "reset")
	}
}

func TestDialReadWriteClose(t *testing.T) {
	m := eswifi.NewTestModule()
	m.ScriptBoot("mynet", "hunter22", "192.168.1.102")
	scriptConnect(m, "0", "10.0.0.9", "8080")

	drv := newTestDriver(t, m, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go drv.Run(ctx)

	sock, err := drv.Dial(ctx, netip.MustParseAddrPort("10.0.0.9:8080"))
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}

	m.Expect("P0=0", okPrompt)
	m.Expect("", "\r\n4\r\nOK\r\n> ")
	if n, err := sock.Write([]byte("ping")); err != nil || n != 4 {
		t.Fatalf("Write() = %d, %v; want 4, nil", n, err)
	}

	m.Expect("P0=0", okPrompt)
	m.Expect("R1=8", okPrompt)
	m.Expect("R3=1", okPrompt)
	m.Expect("R0", "\r\npong\r\nOK\r\n> ")
	m.Expect("P0=0", okPrompt)
	m.Expect("R1=4", okPrompt)
	m.Expect("R3=1", okPrompt)
	m.Expect("R0", okPrompt)
	buf := make([]byte, 8)
	if n, err := sock.Read(buf); err != nil || string(buf[:n]) != "pong" {
		t.Fatalf("Read() = %q, %v; want pong, nil", buf[:n], err)
	}

	if err := sock.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	waitFor(t, "deferred close", func() bool { return countCommands(m, "P6=0") == 1 })

	if _, err := sock.Write([]byte("x")); !errors.Is(err, eswifi.ErrSocketClosed) {
		t.Errorf("Write() after Close error = %v, want ErrSocketClosed", err)
	}
	if _, err := sock.Read(buf); !errors.Is(err, eswifi.ErrSocketClosed) {
		t.Errorf("Read() after Close error = %v, want ErrSocketClosed", err)
	}
	if err := sock.Close(); !errors.Is(err, eswifi.ErrSocketClosed) {
		t.Errorf("second Close() error = %v, want ErrSocketClosed", err)
	}
	if len(m.Mismatches) != 0 {
		t.Errorf("unexpected exchanges: %v", m.Mismatches)
	}
}

func TestCloseRetriesThenResets(t *testing.T) {
	m := eswifi.NewTestModule()
	m.ScriptBoot("mynet", "hunter22", "192.168.1.102")
	scriptConnect(m, "0", "10.0.0.9", "80")
	// The recovery boot consumes a second full script.
	m.ScriptBoot("mynet", "hunter22", "192.168.1.102")

	drv := newTestDriver(t, m, testConfig())

	sock, err := drv.Dial(context.Background(), netip.MustParseAddrPort("10.0.0.9:80"))
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}

	// Wedge the module so every close attempt times out.
	m.Wedge()
	if err := sock.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- drv.Run(ctx) }()

	// One reset happened in New; the recovery reset is the second.
	waitFor(t, "recovery reset", func() bool { return m.Resets() == 2 })
	if got := m.EdgeWaits(); got != 3 {
		t.Errorf("close attempts before reset = %d, want 3", got)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
	if len(m.Mismatches) != 0 {
		t.Errorf("unexpected exchanges: %v", m.Mismatches)
	}
}

func TestDeferredCloseRequestDropped(t *testing.T) {
	m := eswifi.NewTestModule()
	m.ScriptBoot("mynet", "hunter22", "192.168.1.102")
	scriptConnect(m, "0", "10.0.0.9", "80")
	scriptConnect(m, "1", "10.0.0.9", "81")

	drv := newTestDriver(t, m, testConfig())

	first, err := drv.Dial(context.Background(), netip.MustParseAddrPort("10.0.0.9:80"))
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	second, err := drv.Dial(context.Background(), netip.MustParseAddrPort("10.0.0.9:81"))
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}

	// With no control loop running the single request slot fills up;
	// the second close must not block and its request is dropped.
	closed := make(chan struct{})
	go func() {
		first.Close()
		second.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close() blocked with a pending close request")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go drv.Run(ctx)

	waitFor(t, "deferred close", func() bool { return countCommands(m, "P6=0") >= 1 })
	time.Sleep(50 * time.Millisecond)
	if got := countCommands(m, "P6=0"); got != 1 {
		t.Errorf("serviced %d close requests, want 1 (second dropped)", got)
	}
}

func TestDialPoolExhaustion(t *testing.T) {
	m := eswifi.NewTestModule()
	m.ScriptBoot("mynet", "hunter22", "192.168.1.102")

	drv := newTestDriver(t, m, testConfig())

	for i := 0; i < 4; i++ {
		scriptConnect(m, string(rune('0'+i)), "10.0.0.9", "80")
		if _, err := drv.Dial(context.Background(), netip.MustParseAddrPort("10.0.0.9:80")); err != nil {
			t.Fatalf("Dial() %d error: %v", i, err)
		}
	}
	if _, err := drv.Dial(context.Background(), netip.MustParseAddrPort("10.0.0.9:80")); !errors.Is(err, eswifi.ErrPoolExhausted) {
		t.Fatalf("Dial() on full pool error = %v, want ErrPoolExhausted", err)
	}
}
