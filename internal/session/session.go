// Package session owns the single TCP connection to a chat server: it
// opens it, writes framed command lines, reads protocol lines back, and
// holds the small set of fields shared between the receive goroutine
// and the foreground.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"linechat/config"
	ncerr "linechat/internal/errors"
	"linechat/internal/framer"
	"linechat/internal/metrics"
	"linechat/internal/transport"
	"linechat/util"
)

// Options tunes how Open reaches the server.
type Options struct {
	NoDNS   bool // refuse to resolve names
	MaxLine int  // framing ceiling, 0 = framer.DefaultMaxPending

	// RemoteResolve hands the host name to the dialer unresolved.  Set
	// it when the dialer is an SSH tunnel: the gateway resolves names
	// that may only exist on its side.
	RemoteResolve bool

	Logger  *util.Logger
	Metrics *metrics.Collector
}

// Session is one live connection.  Exactly one goroutine may call
// ReadLine at a time; every other method is safe for concurrent use.
type Session struct {
	host    string
	port    int
	conn    net.Conn
	framer  *framer.Framer
	logger  *util.Logger
	metrics *metrics.Collector

	wmu sync.Mutex // serialises SendLine

	mu            sync.Mutex // guards the fields below
	username      string
	authenticated bool
	key           string
	partner       string

	closeOnce sync.Once
	closeErr  error
}

// Open parses spec, resolves the host when needed and dials it through
// d.  Every failure is a *ncerr.ConnectError and leaves no socket open.
func Open(ctx context.Context, d transport.Dialer, spec string, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = util.NopLogger()
	}

	host, port, err := config.ParseServerAddr(spec)
	if err != nil {
		return nil, &ncerr.ConnectError{Op: "parse", Addr: spec, Err: err}
	}

	addr := host
	if !opts.RemoteResolve || opts.NoDNS {
		addr, err = util.ResolveHost(ctx, host, opts.NoDNS)
		if err != nil {
			ce := ncerr.Wrap("resolve", host, err)
			if opts.NoDNS {
				ce.Retryable = false
			}
			return nil, ce
		}
		if addr != host {
			logger.Debug("resolved %s to %s", host, addr)
		}
	}

	target := util.FormatAddr(addr, port)
	logger.Verbose("connecting to %s", util.FormatAddr(host, port))

	conn, err := d.Dial(ctx, "tcp", target)
	if err != nil {
		opts.Metrics.RecordError(err.Error())
		return nil, ncerr.Wrap("dial", target, err)
	}

	opts.Metrics.SessionOpened()
	logger.Info("connected to %s", conn.RemoteAddr())

	return &Session{
		host:    host,
		port:    port,
		conn:    conn,
		framer:  framer.New(opts.MaxLine),
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// New wraps an already established connection.  Used by tests and by
// callers that dial on their own.
func New(conn net.Conn, maxLine int, logger *util.Logger, m *metrics.Collector) *Session {
	if logger == nil {
		logger = util.NopLogger()
	}
	m.SessionOpened()
	return &Session{
		conn:    conn,
		framer:  framer.New(maxLine),
		logger:  logger,
		metrics: m,
	}
}

// Host returns the server host as given in the address spec.
func (s *Session) Host() string { return s.host }

// Port returns the server port.
func (s *Session) Port() int { return s.port }

// RemoteAddr returns the address of the connected peer.
func (s *Session) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }

// ── I/O ──────────────────────────────────────────────────────────────

// SendLine writes text followed by a newline.  Concurrent calls never
// interleave.  A failure wraps ncerr.ErrTransportClosed; the caller
// should treat the session as lost.
func (s *Session) SendLine(text string) error {
	buf := make([]byte, 0, len(text)+1)
	buf = append(buf, text...)
	buf = append(buf, '\n')

	s.wmu.Lock()
	_, err := s.conn.Write(buf)
	s.wmu.Unlock()

	if err != nil {
		s.metrics.RecordError(err.Error())
		return fmt.Errorf("send: %w: %w", ncerr.ErrTransportClosed, err)
	}
	s.metrics.LineSent(len(buf))
	return nil
}

// ReadLine blocks until the next complete protocol line arrives.
// Errors are terminal: ncerr.ErrTransportClosed when the peer or a
// local Close ended the stream, ncerr.ErrFrameOverflow when a line
// exceeded the ceiling, or the wrapped read error otherwise.
func (s *Session) ReadLine() (string, error) {
	line, err := s.framer.ReadLine(s.conn)
	switch {
	case err == nil:
		s.metrics.LineReceived(len(line))
		return line, nil
	case errors.Is(err, ncerr.ErrFrameOverflow):
		s.metrics.Overflow()
	case errors.Is(err, net.ErrClosed), errors.Is(err, io.ErrClosedPipe):
		err = fmt.Errorf("%w: %w", ncerr.ErrTransportClosed, err)
	}
	if !errors.Is(err, os.ErrDeadlineExceeded) {
		s.metrics.RecordError(err.Error())
	}
	return "", err
}

// Interrupt makes an in-flight ReadLine return immediately.
func (s *Session) Interrupt() {
	s.conn.SetReadDeadline(time.Now()) //nolint:errcheck
}

// Close closes the connection.  Safe to call more than once and from
// any goroutine; later calls return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
		s.metrics.SessionClosed()
		s.logger.Verbose("connection closed")
	})
	return s.closeErr
}

// ── Shared state ─────────────────────────────────────────────────────

// Key returns the session key, or "" before the server issued one.
func (s *Session) Key() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key
}

// SetKey replaces the session key.
func (s *Session) SetKey(key string) {
	s.mu.Lock()
	s.key = key
	s.mu.Unlock()
}

// Partner returns the user we are currently paired with, or "".
func (s *Session) Partner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.partner
}

// SetPartner records the current chat partner.
func (s *Session) SetPartner(name string) {
	s.mu.Lock()
	s.partner = name
	s.mu.Unlock()
}

// ClearPartner forgets the current partner and reports who it was.
func (s *Session) ClearPartner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.partner
	s.partner = ""
	return prev
}

// Authenticated reports whether the server accepted our credentials.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// Username returns the committed username, "" before authentication.
func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// MarkAuthenticated commits username.  It succeeds once per session;
// later calls leave the first username in place and return false.
func (s *Session) MarkAuthenticated(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authenticated {
		return false
	}
	s.username = username
	s.authenticated = true
	return true
}
