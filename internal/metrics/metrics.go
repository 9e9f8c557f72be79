// Package metrics provides lightweight, lock-free counters for tracking
// the traffic of a linechat session.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for a linechat client.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	sessionsOpened atomic.Int64
	sessionsActive atomic.Int64
	linesIn        atomic.Int64
	linesOut       atomic.Int64
	bytesIn        atomic.Int64
	bytesOut       atomic.Int64
	suppressed     atomic.Int64
	undecryptable  atomic.Int64
	overflows      atomic.Int64
	connectRetries atomic.Int64
	errorsTotal    atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Session metrics ──────────────────────────────────────────────────

// SessionOpened increments both the active and total session counters.
func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.sessionsActive.Add(1)
	c.sessionsOpened.Add(1)
}

// SessionClosed decrements the active session counter.
func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.sessionsActive.Add(-1)
}

// ActiveSessions returns the number of currently open sessions.
func (c *Collector) ActiveSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsActive.Load()
}

// TotalSessions returns the lifetime session count.
func (c *Collector) TotalSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsOpened.Load()
}

// ConnectRetry records one extra dial attempt.
func (c *Collector) ConnectRetry() {
	if c == nil {
		return
	}
	c.connectRetries.Add(1)
}

// ── Line metrics ─────────────────────────────────────────────────────

// LineReceived records one inbound protocol line of n bytes.  n
// excludes the delimiter.
func (c *Collector) LineReceived(n int) {
	if c == nil {
		return
	}
	c.linesIn.Add(1)
	c.bytesIn.Add(int64(n))
}

// LineSent records one outbound line of n bytes, delimiter included.
func (c *Collector) LineSent(n int) {
	if c == nil {
		return
	}
	c.linesOut.Add(1)
	c.bytesOut.Add(int64(n))
}

// LinesIn returns the number of lines received.
func (c *Collector) LinesIn() int64 {
	if c == nil {
		return 0
	}
	return c.linesIn.Load()
}

// LinesOut returns the number of lines sent.
func (c *Collector) LinesOut() int64 {
	if c == nil {
		return 0
	}
	return c.linesOut.Load()
}

// TotalBytesIn returns total payload bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Protocol metrics ─────────────────────────────────────────────────

// EchoSuppressed records a chat line dropped because we sent it.
func (c *Collector) EchoSuppressed() {
	if c == nil {
		return
	}
	c.suppressed.Add(1)
}

// Suppressed returns the number of suppressed echoes.
func (c *Collector) Suppressed() int64 {
	if c == nil {
		return 0
	}
	return c.suppressed.Load()
}

// Undecryptable records an encrypted payload that arrived with no key.
func (c *Collector) Undecryptable() {
	if c == nil {
		return
	}
	c.undecryptable.Add(1)
}

// UndecryptableCount returns the number of dropped encrypted payloads.
func (c *Collector) UndecryptableCount() int64 {
	if c == nil {
		return 0
	}
	return c.undecryptable.Load()
}

// Overflow records a line that exceeded the framing ceiling.
func (c *Collector) Overflow() {
	if c == nil {
		return
	}
	c.overflows.Add(1)
}

// Overflows returns the overflow count.
func (c *Collector) Overflows() int64 {
	if c == nil {
		return 0
	}
	return c.overflows.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	SessionsActive   int64  `json:"sessions_active"`
	SessionsTotal    int64  `json:"sessions_total"`
	ConnectRetries   int64  `json:"connect_retries"`
	LinesIn          int64  `json:"lines_in"`
	LinesOut         int64  `json:"lines_out"`
	BytesIn          int64  `json:"bytes_in"`
	BytesOut         int64  `json:"bytes_out"`
	EchoesSuppressed int64  `json:"echoes_suppressed"`
	Undecryptable    int64  `json:"undecryptable"`
	Overflows        int64  `json:"overflows"`
	ErrorsTotal      int64  `json:"errors_total"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:           time.Since(c.startTime).Truncate(time.Second).String(),
		SessionsActive:   c.sessionsActive.Load(),
		SessionsTotal:    c.sessionsOpened.Load(),
		ConnectRetries:   c.connectRetries.Load(),
		LinesIn:          c.linesIn.Load(),
		LinesOut:         c.linesOut.Load(),
		BytesIn:          c.bytesIn.Load(),
		BytesOut:         c.bytesOut.Load(),
		EchoesSuppressed: c.suppressed.Load(),
		Undecryptable:    c.undecryptable.Load(),
		Overflows:        c.overflows.Load(),
		ErrorsTotal:      c.errorsTotal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
