// Package errors provides domain-specific error types for linechat.
//
// These types carry structured context (operation, address, server
// message, retryability) that lets the command layer decide whether to
// retry, re-prompt, or give up, and gives the user a precise notice.
package errors

import (
	"errors"
	"fmt"
	"net"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	// ErrTransportClosed means the peer closed the socket or the
	// network failed.  A fresh Open is required.
	ErrTransportClosed = errors.New("connection closed")
	// ErrFrameOverflow means the server sent more bytes than the line
	// ceiling without a delimiter.  The connection is unusable.
	ErrFrameOverflow = errors.New("protocol line exceeds maximum length")
	// ErrDecodeUnavailable marks an encrypted payload received before
	// the server issued a session key.
	ErrDecodeUnavailable = errors.New("no session key to decrypt message")

	ErrNotConnected    = errors.New("not connected to a server")
	ErrNotChatting     = errors.New("not logged in")
	ErrNoPartner       = errors.New("connect to a user first")
	ErrClientClosed    = errors.New("client is closed")
	ErrAlreadyOpen     = errors.New("already connected to a server")
	ErrInvalidState    = errors.New("operation not valid in the current state")
	ErrInvalidMode     = errors.New("auth mode must be register or login")
	ErrEmptyCredential = errors.New("username and password are required")
	ErrEmptyUsername   = errors.New("a username is required")
)

// ── Structured error types ───────────────────────────────────────────

// ConnectError is a failure to reach the chat server: a bad address
// spec, a resolution failure, or a refused or timed-out dial.
type ConnectError struct {
	Op        string // "parse", "resolve", "dial"
	Addr      string // address spec or host:port involved
	Err       error
	Retryable bool
}

func (e *ConnectError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *ConnectError) Unwrap() error { return e.Err }

// AuthError is a credential or validation failure reported by the
// server.  Message is the server's text with the error marker removed.
type AuthError struct {
	Mode    string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Mode, e.Message)
}

// SSHError represents an SSH-specific failure with gateway context.
type SSHError struct {
	Op   string // "handshake", "auth", "hostkey", "channel"
	Host string
	Port int
	Err  error
}

func (e *SSHError) Error() string {
	return fmt.Sprintf("ssh %s %s:%d: %v", e.Op, e.Host, e.Port, e.Err)
}

func (e *SSHError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string // flag name
	Value   any    // the invalid value (nil if missing)
	Message string
	Hint    string // optional suggestion
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a ConnectError, detecting retryability from the
// underlying error.
func Wrap(op, addr string, err error) *ConnectError {
	return &ConnectError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// WrapSSH creates an SSHError.
func WrapSSH(op, host string, port int, err error) *SSHError {
	return &SSHError{Op: op, Host: host, Port: port, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ce *ConnectError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return true
	}
	return classifyRetryable(err)
}

func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() //nolint:staticcheck
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		// Refused and timed-out dials are the usual "server not up yet".
		return opErr.Op == "dial" || opErr.Timeout()
	}
	return false
}
