// Package parse decodes raw eS-WiFi response buffers into typed outcomes.
//
// The module wraps every reply in terminal dressing: a leading CRLF, the
// body, then "\r\nOK\r\n> " (or an ERROR verdict) before the next shell
// prompt. The functions here are pure; they never touch the wire and they
// operate only on the filled prefix of a drained response buffer.
package parse

import (
	"bytes"
	"errors"
	"net/netip"
	"strconv"
)

var (
	// ErrMalformed is returned when a response does not match the
	// expected grammar at all.
	ErrMalformed = errors.New("malformed response")

	// ErrFailure is returned when the response is well-formed but the
	// module reports the operation failed.
	ErrFailure = errors.New("module reported failure")
)

var (
	crlf      = []byte("\r\n")
	okVerdict = []byte("OK\r\n> ")
	okTrailer = []byte("\r\nOK\r\n> ")
	errToken  = []byte("ERROR")
	joinTag   = []byte("[JOIN   ] ")
)

// JoinOutcome is the decoded join-trigger reply. OK reports whether the
// module associated; Addr is the address it was assigned when it did.
type JoinOutcome struct {
	OK   bool
	Addr netip.Addr
}

// Join decodes the reply to the join trigger, e.g.
//
//	"\r\n[JOIN   ] ssid,192.168.1.102,0,0\r\nOK\r\n> "
//
// A reply carrying "[JOIN   ] Failed" or an ERROR verdict decodes to a
// non-OK outcome; anything else that misses the join tag is malformed.
func Join(raw []byte) (JoinOutcome, error) {
	i := bytes.Index(raw, joinTag)
	if i < 0 {
		if bytes.Contains(raw, errToken) {
			return JoinOutcome{}, nil
		}
		return JoinOutcome{}, ErrMalformed
	}
	rest := raw[i+len(joinTag):]
	if bytes.HasPrefix(rest, []byte("Failed")) {
		return JoinOutcome{}, nil
	}

	// The address is the second comma-separated field of the report.
	comma := bytes.IndexByte(rest, ',')
	if comma < 0 {
		return JoinOutcome{}, ErrMalformed
	}
	rest = rest[comma+1:]
	end := bytes.IndexAny(rest, ",\r")
	if end < 0 {
		end = len(rest)
	}
	addr, err := netip.ParseAddr(string(rest[:end]))
	if err != nil {
		return JoinOutcome{}, ErrMalformed
	}
	return JoinOutcome{OK: true, Addr: addr}, nil
}

// Connect decodes the connect-trigger reply: true on an OK verdict, false
// on an ERROR verdict.
func Connect(raw []byte) (bool, error) {
	return verdict(raw)
}

// Close decodes the disable-connection reply with the same grammar as
// Connect.
func Close(raw []byte) (bool, error) {
	return verdict(raw)
}

// Write decodes a send-chunk reply into the byte count the module accepted.
func Write(raw []byte) (int, error) {
	body := bytes.TrimPrefix(raw, crlf)
	end := bytes.IndexByte(body, '\r')
	if end < 0 {
		return 0, ErrMalformed
	}
	if !bytes.Contains(body, okVerdict) {
		if bytes.Contains(body, errToken) {
			return 0, ErrFailure
		}
		return 0, ErrMalformed
	}
	n, err := strconv.Atoi(string(body[:end]))
	if err != nil {
		return 0, ErrMalformed
	}
	if n < 0 {
		return 0, ErrFailure
	}
	return n, nil
}

// Read decodes a read-trigger reply into its payload, which may be empty
// when the module has nothing buffered. The payload is everything between
// the leading CRLF and the OK trailer and may contain arbitrary bytes.
func Read(raw []byte) ([]byte, error) {
	// An empty read collapses to the bare trailer: the leading CRLF is
	// the trailer's own.
	if bytes.Equal(raw, okTrailer) {
		return nil, nil
	}
	if !bytes.HasPrefix(raw, crlf) || !bytes.HasSuffix(raw, okTrailer) {
		if bytes.Contains(raw, errToken) {
			return nil, ErrFailure
		}
		return nil, ErrMalformed
	}
	payload := raw[len(crlf) : len(raw)-len(okTrailer)]
	if bytes.Equal(payload, []byte("-1")) {
		return nil, ErrFailure
	}
	return payload, nil
}

func verdict(raw []byte) (bool, error) {
	switch {
	case bytes.Contains(raw, okVerdict):
		return true, nil
	case bytes.Contains(raw, errToken):
		return false, nil
	default:
		return false, ErrMalformed
	}
}
