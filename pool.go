package eswifi

// maxSockets is the number of logical connections the module can multiplex
// over its single command channel.
const maxSockets = 4

// socketPool tracks which of the module's socket handles are in use and
// which of those have an established connection. It is bookkeeping only; all
// I/O state lives in the module itself.
//
// A handle is in exactly one of three states: free, open-disconnected, or
// open-connected. The pool is not safe for concurrent use; the adapter lock
// covers it.
type socketPool struct {
	open      [maxSockets]bool
	connected [maxSockets]bool
}

// allocate returns the lowest free handle, or ErrPoolExhausted when every
// handle is in use. Allocation is exclusive: a handle stays unavailable
// until released.
func (p *socketPool) allocate() (uint8, error) {
	for h := range p.open {
		if !p.open[h] {
			p.open[h] = true
			p.connected[h] = false
			return uint8(h), nil
		}
	}
	return 0, ErrPoolExhausted
}

func (p *socketPool) isConnected(h uint8) bool {
	return int(h) < maxSockets && p.connected[h]
}

func (p *socketPool) setConnected(h uint8) {
	if int(h) < maxSockets {
		p.connected[h] = true
	}
}

// release frees a handle. Releasing a free handle is a no-op.
func (p *socketPool) release(h uint8) {
	if int(h) < maxSockets {
		p.open[h] = false
		p.connected[h] = false
	}
}
