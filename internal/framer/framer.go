// Package framer reassembles a raw byte stream into newline-terminated
// protocol lines.
//
// The server is free to split or coalesce lines across TCP segments, so
// a Framer keeps whatever follows the last delimiter until the next
// read completes it.  The pending buffer is bounded: a peer that never
// sends a delimiter cannot grow it past the configured ceiling.
package framer

import (
	"bytes"
	"fmt"
	"io"

	ncerr "linechat/internal/errors"
	"linechat/util"
)

// DefaultMaxPending is the pending-buffer ceiling in bytes.
const DefaultMaxPending = 10000

var (
	// ErrClosed is returned by ReadLine when the transport reports end
	// of stream (including a zero-byte read).
	ErrClosed = ncerr.ErrTransportClosed
	// ErrOverflow is returned when the pending buffer would exceed the
	// ceiling.  The buffer has been discarded and the stream is no
	// longer in sync with line boundaries.
	ErrOverflow = ncerr.ErrFrameOverflow
)

// Framer owns the pending buffer.  It is not safe for concurrent use;
// a connection has exactly one reader at a time.
type Framer struct {
	pending    []byte
	maxPending int
}

// New returns a Framer with the given ceiling.  A non-positive max
// selects DefaultMaxPending.
func New(maxPending int) *Framer {
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}
	return &Framer{maxPending: maxPending}
}

// Pending returns the number of buffered bytes not yet returned as a
// line.
func (f *Framer) Pending() int { return len(f.pending) }

// Feed appends chunk to the pending buffer.  The ceiling applies to the
// unterminated tail, the bytes after the last delimiter: complete lines
// never count against it.  If the tail grows past the ceiling the
// buffer is cleared and ErrOverflow is returned.
func (f *Framer) Feed(chunk []byte) error {
	f.pending = append(f.pending, chunk...)
	tail := len(f.pending)
	if i := bytes.LastIndexByte(f.pending, '\n'); i >= 0 {
		tail -= i + 1
	}
	if tail > f.maxPending {
		f.pending = f.pending[:0]
		return ErrOverflow
	}
	return nil
}

// TryExtractLine returns the first complete line, without its "\n" and
// without one trailing "\r".  ok is false when no delimiter has arrived
// yet.
func (f *Framer) TryExtractLine() (line string, ok bool) {
	i := bytes.IndexByte(f.pending, '\n')
	if i < 0 {
		return "", false
	}
	raw := f.pending[:i]
	if n := len(raw); n > 0 && raw[n-1] == '\r' {
		raw = raw[:n-1]
	}
	line = string(raw)

	// Drain from the front, reusing the backing array.
	rest := copy(f.pending, f.pending[i+1:])
	f.pending = f.pending[:rest]
	return line, true
}

// ReadLine blocks on r until a full line is available.  It returns
// ErrClosed on end of stream, ErrOverflow when a line outgrows the
// ceiling before its delimiter arrives, or
// the transport's error wrapped with context.
func (f *Framer) ReadLine(r io.Reader) (string, error) {
	if line, ok := f.TryExtractLine(); ok {
		return line, nil
	}

	buf := util.GetChunk()
	defer util.PutChunk(buf)

	for {
		n, err := r.Read(*buf)
		if n > 0 {
			if ferr := f.Feed((*buf)[:n]); ferr != nil {
				return "", ferr
			}
			if line, ok := f.TryExtractLine(); ok {
				return line, nil
			}
		}
		switch {
		case err == io.EOF || (err == nil && n == 0):
			return "", ErrClosed
		case err != nil:
			return "", fmt.Errorf("read: %w", err)
		}
	}
}
