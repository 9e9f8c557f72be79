package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags and environment variable loading.

const (
	// DefaultPort is the chat server port used when the address has none.
	DefaultPort = 5000

	// DefaultMaxLine is the ceiling on buffered bytes without a newline.
	DefaultMaxLine = 10000

	// MinMaxLine is the smallest ceiling Validate accepts.  Server
	// notices such as the user list routinely run to a few hundred bytes.
	MinMaxLine = 256

	// DefaultReadChunk is the socket read size.
	DefaultReadChunk = 4096

	// DefaultConnTimeout bounds a single TCP or SSH dial.
	DefaultConnTimeout = 10 * time.Second

	// DefaultRetries is the number of dial attempts.  1 means no retry.
	DefaultRetries = 1

	// DefaultRetryDelay is the first backoff interval between attempts.
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay caps the exponential backoff.
	DefaultMaxRetryDelay = 8 * time.Second

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultAuthAttempts is how many times an interactive user may
	// retype a rejected password.
	DefaultAuthAttempts = 3
)
