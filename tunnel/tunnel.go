// Package tunnel reaches a chat server that is only visible from a
// bastion host, by forwarding TCP connections through an SSH client
// built on golang.org/x/crypto/ssh.
package tunnel

import (
	"context"
	"net"
)

// Tunnel abstracts an encrypted channel through which TCP connections
// can be forwarded.
type Tunnel interface {
	// Connect establishes the tunnel to the gateway.
	Connect(ctx context.Context) error

	// Dial opens a connection to address through the tunnel.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close tears down the tunnel and frees resources.
	Close() error

	// IsAlive reports whether the underlying connection is still up.
	IsAlive() bool
}

// PromptFunc asks the user for a secret such as a password or key
// passphrase.  The returned string is used verbatim.
type PromptFunc func(prompt string) (string, error)
