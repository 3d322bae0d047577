package eswifi

import (
	"bytes"
	"context"
	"sync"
)

// TestModule simulates an eS-WiFi module at the capability-interface level:
// chip-select windows, the ready line, NAK filler and the per-pair byte
// swap. Tests script it with command/reply exchanges and wire the pins it
// hands out into a Driver. Exported for use in driver tests, the same way a
// fake transport would be for a serial device.
//
// Each chip-select window is one exchange: a window opened while a reply is
// pending serves that reply two bytes at a time; any other window
// accumulates a command frame, and releasing chip-select completes it and
// queues the next scripted reply.
type TestModule struct {
	mu sync.Mutex

	csLow   bool
	inReply bool
	cmd     []byte
	reply   []byte

	script []exchange

	wedged  bool
	unwedge chan struct{}

	resets    int
	edgeWaits int
	resetLow  bool

	wedgeAfter int

	// OnReset runs on each rising reset edge, after pending state is
	// cleared. Tests use it to script the post-reset boot exchanges.
	OnReset func(m *TestModule)

	// DefaultReply answers commands beyond the script; nil selects a
	// plain OK prompt.
	DefaultReply []byte

	// Commands records every completed command frame in stream order,
	// with trailing CR and pad stripped.
	Commands [][]byte

	// RawFrames records the same frames before any trimming, exactly as
	// reassembled from the wire pairs.
	RawFrames [][]byte

	// Mismatches records scripted expectations that the received
	// command did not match.
	Mismatches []string
}

type exchange struct {
	expect []byte // empty means any command
	reply  []byte
}

// NewTestModule returns an idle simulated module with an empty script.
func NewTestModule() *TestModule {
	return &TestModule{}
}

// Expect appends a scripted exchange: when the next command frame completes
// it is checked against cmd (pass "" to accept anything) and reply is
// queued as the module's response. Commands beyond the script are answered
// with a plain OK prompt.
func (m *TestModule) Expect(cmd, reply string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, exchange{expect: []byte(cmd), reply: []byte(reply)})
}

// QueueReply loads bytes the module will serve on the next chip-select
// window without waiting for a command, the way the boot banner arrives.
func (m *TestModule) QueueReply(reply string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reply = []byte(reply)
}

// WedgeAfter arms a wedge that trips once n more command frames have
// completed.
func (m *TestModule) WedgeAfter(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wedgeAfter = n
}

// Wedge makes the module unresponsive: the ready line stays low until
// Unwedge or a reset pulse.
func (m *TestModule) Wedge() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.wedged {
		m.wedged = true
		m.unwedge = make(chan struct{})
	}
}

// Unwedge releases a wedged module.
func (m *TestModule) Unwedge() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseWedgeLocked()
}

func (m *TestModule) releaseWedgeLocked() {
	if m.wedged {
		m.wedged = false
		close(m.unwedge)
		m.unwedge = nil
	}
}

// Resets reports how many rising edges the reset pin has seen.
func (m *TestModule) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

// EdgeWaits reports how many times the driver blocked on the ready line.
func (m *TestModule) EdgeWaits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.edgeWaits
}

// SentCommands returns the completed command frames as strings.
func (m *TestModule) SentCommands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Commands))
	for i, c := range m.Commands {
		out[i] = string(c)
	}
	return out
}

// ScriptBoot arranges the banner and the boot/join exchanges a successful
// start-and-join needs, reporting addr as the joined address. The banner is
// queued from the reset hook because a reset pulse clears pending replies,
// the way a real reset discards module state.
func (m *TestModule) ScriptBoot(ssid, passphrase, addr string) {
	m.OnReset = func(mm *TestModule) { mm.QueueReply("\r\n> ") }
	ok := "\r\nOK\r\n> "
	m.Expect("MT=1", ok)
	m.Expect("CB=2", ok)
	m.Expect("C1="+ssid, ok)
	m.Expect("C2="+passphrase, ok)
	m.Expect("C3=4", ok)
	m.Expect("C0", "\r\n[JOIN   ] "+ssid+","+addr+",0,0\r\nOK\r\n> ")
}

// Bus returns the module's two-byte exchange interface.
func (m *TestModule) Bus() Bus { return (*testBus)(m) }

// CS returns the chip-select pin.
func (m *TestModule) CS() OutputPin { return &testPin{m: m, role: "cs"} }

// Reset returns the reset pin.
func (m *TestModule) Reset() OutputPin { return &testPin{m: m, role: "reset"} }

// Wakeup returns the wakeup pin.
func (m *TestModule) Wakeup() OutputPin { return &testPin{m: m, role: "wakeup"} }

// Ready returns the ready line.
func (m *TestModule) Ready() ReadyPin { return (*testReady)(m) }

type testBus TestModule

func (b *testBus) Transfer(tx [2]byte) ([2]byte, error) {
	m := (*TestModule)(b)
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.inReply {
		rx := [2]byte{nak, nak}
		if len(m.reply) > 0 {
			rx[1] = m.reply[0]
			m.reply = m.reply[1:]
		}
		if len(m.reply) > 0 {
			rx[0] = m.reply[0]
			m.reply = m.reply[1:]
		}
		return rx, nil
	}

	// Command phase: undo the wire order to rebuild the stream.
	m.cmd = append(m.cmd, tx[1], tx[0])
	return [2]byte{nak, nak}, nil
}

type testReady TestModule

func (r *testReady) High() (bool, error) {
	m := (*TestModule)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.wedged {
		return false, nil
	}
	if m.csLow {
		return len(m.reply) > 0, nil
	}
	return true, nil
}

func (r *testReady) WaitForEdge(ctx context.Context) error {
	m := (*TestModule)(r)
	m.mu.Lock()
	m.edgeWaits++
	ch := m.unwedge
	m.mu.Unlock()
	if ch == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}

type testPin struct {
	m    *TestModule
	role string
}

func (p *testPin) Set(high bool) error {
	m := p.m
	m.mu.Lock()
	defer m.mu.Unlock()

	switch p.role {
	case "cs":
		m.setCSLocked(!high)
	case "reset":
		if !high {
			m.resetLow = true
		} else if m.resetLow {
			m.resetLow = false
			m.resets++
			m.cmd = nil
			m.reply = nil
			m.inReply = false
			m.releaseWedgeLocked()
			if m.OnReset != nil {
				hook := m.OnReset
				m.mu.Unlock()
				hook(m)
				m.mu.Lock()
			}
		}
	case "wakeup":
		// Wakeup pulses carry no simulated state.
	}
	return nil
}

func (m *TestModule) setCSLocked(low bool) {
	if low == m.csLow {
		return
	}
	m.csLow = low
	if low {
		m.inReply = len(m.reply) > 0
		if !m.inReply {
			m.cmd = nil
		}
		return
	}

	// Window closed.
	if m.inReply {
		m.inReply = false
		m.reply = nil
		return
	}
	if len(m.cmd) == 0 {
		return
	}
	m.RawFrames = append(m.RawFrames, append([]byte(nil), m.cmd...))
	frame := bytes.TrimRight(m.cmd, "\n")
	frame = bytes.TrimSuffix(frame, []byte("\r"))
	m.Commands = append(m.Commands, frame)
	m.cmd = nil

	if m.wedgeAfter > 0 {
		m.wedgeAfter--
		if m.wedgeAfter == 0 {
			m.wedged = true
			m.unwedge = make(chan struct{})
			return
		}
	}

	if len(m.script) > 0 {
		next := m.script[0]
		m.script = m.script[1:]
		if len(next.expect) > 0 && !bytes.Equal(frame, next.expect) {
			m.Mismatches = append(m.Mismatches,
				"want "+string(next.expect)+", got "+string(frame))
		}
		m.reply = next.reply
		return
	}
	if m.DefaultReply != nil {
		m.reply = append([]byte(nil), m.DefaultReply...)
		return
	}
	m.reply = []byte("\r\nOK\r\n> ")
}
