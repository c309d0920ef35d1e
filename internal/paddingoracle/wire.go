// Package paddingoracle implements a client for the CBC padding-oracle
// wire protocol and the byte-by-byte attack that recovers plaintext
// from it. The wire protocol is a simple length-prefixed,
// request-response exchange over a stateful TCP session: one session
// targets exactly one ciphertext block.
package paddingoracle

import (
	"context"
	"encoding/binary"
	"net"
	"time"

	"github.com/rbnschffmchr/kauma/internal/kerr"
)

// DefaultTimeout is the default per-request network timeout.
const DefaultTimeout = 10 * time.Second

// MaxGuesses is the largest batch of candidate blocks a single
// request may carry.
const MaxGuesses = 256

// Session is one open oracle connection, scoped to a single target
// ciphertext block.
type Session struct {
	conn    net.Conn
	timeout time.Duration
}

// Dial opens a session against addr, sends the 2-byte key ID that
// selects the oracle's key, and returns the open session. The caller
// must Close it on every exit path.
func Dial(ctx context.Context, addr string, keyID uint16, timeout time.Duration) (*Session, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, kerr.Wrap(kerr.Transport, err)
	}
	s := &Session{conn: conn, timeout: timeout}
	if err := s.writeAll(uint16Bytes(keyID)); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close tells the server to end the session (a zero-count request)
// and closes the underlying connection. It is safe to call more than
// once.
func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}
	_ = s.writeAll(uint16Bytes(0))
	err := s.conn.Close()
	s.conn = nil
	if err != nil {
		return kerr.Wrap(kerr.Transport, err)
	}
	return nil
}

// SendBlock sends the 16-byte ciphertext block this session targets.
// It must be called exactly once, before any TestGuesses call.
func (s *Session) SendBlock(block [16]byte) error {
	return s.writeAll(block[:])
}

// TestGuesses sends up to MaxGuesses candidate 16-byte blocks and
// returns, for each, whether the server reports valid PKCS#7 padding.
func (s *Session) TestGuesses(guesses [][16]byte) ([]bool, error) {
	if len(guesses) == 0 || len(guesses) > MaxGuesses {
		return nil, kerr.New(kerr.OracleProtocol, "paddingoracle: guess batch size %d out of range", len(guesses))
	}
	if err := s.writeAll(uint16Bytes(uint16(len(guesses)))); err != nil {
		return nil, err
	}
	payload := make([]byte, 0, len(guesses)*16)
	for _, g := range guesses {
		payload = append(payload, g[:]...)
	}
	if err := s.writeAll(payload); err != nil {
		return nil, err
	}
	resp, err := s.readExact(len(guesses))
	if err != nil {
		return nil, err
	}
	out := make([]bool, len(guesses))
	for i, b := range resp {
		switch b {
		case 0:
			out[i] = false
		case 1:
			out[i] = true
		default:
			return nil, kerr.New(kerr.OracleProtocol, "paddingoracle: response byte %d is %d, want 0 or 1", i, b)
		}
	}
	return out, nil
}

func uint16Bytes(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

func (s *Session) writeAll(b []byte) error {
	s.conn.SetWriteDeadline(time.Now().Add(s.timeout))
	_, err := s.conn.Write(b)
	if err != nil {
		return kerr.Wrap(kerr.Transport, err)
	}
	return nil
}

func (s *Session) readExact(n int) ([]byte, error) {
	s.conn.SetReadDeadline(time.Now().Add(s.timeout))
	buf := make([]byte, n)
	read := 0
	for read < n {
		m, err := s.conn.Read(buf[read:])
		if err != nil {
			return nil, kerr.Wrap(kerr.Transport, err)
		}
		read += m
	}
	return buf, nil
}
