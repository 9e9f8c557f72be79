// Package core is the orchestration layer.  Client is the protocol
// state machine for one chat session; ChatMode composes it with a
// frontend into the complete program run.
//
// Architecture layers (bottom → top):
//
//	framer/cipher  →  session  →  core  →  frontend  →  cmd (CLI)
package core

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	ncerr "linechat/internal/errors"
	"linechat/internal/protocol"
	"linechat/util"
)

// Mode represents a complete run of linechat from connection to
// teardown.
type Mode interface {
	Run(ctx context.Context) error
}

// Frontend is a user interface: a Notifier that can also turn user
// input into client calls.
type Frontend interface {
	Notifier
	// Run drives interaction until the user quits or ctx is cancelled.
	Run(ctx context.Context, c *Client) error
}

// CredentialsFunc supplies a username and password.  attempt is
// 1-based; prev is the rejection that caused a retry, nil on the first
// call.  Returning an error stops the login.
type CredentialsFunc func(attempt int, prev error) (username, password string, err error)

// ChatMode connects, logs in, then hands the client to a frontend.
type ChatMode struct {
	Client       *Client
	Frontend     Frontend
	Server       string
	AuthMode     protocol.AuthMode
	Credentials  CredentialsFunc
	AuthAttempts int
	Logger       *util.Logger
}

// Run executes the whole session.  The client is shut down when Run
// returns, and as soon as ctx is cancelled.
func (m *ChatMode) Run(ctx context.Context) error {
	defer m.Client.Shutdown() //nolint:errcheck

	// Unblocks an auth read if the user interrupts early.
	stop := context.AfterFunc(ctx, func() { m.Client.Shutdown() }) //nolint:errcheck
	defer stop()

	if err := m.Client.Open(ctx, m.Server); err != nil {
		return err
	}
	if err := m.login(); err != nil {
		if ctx.Err() != nil && errors.Is(err, ncerr.ErrClientClosed) {
			return ctx.Err()
		}
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		return m.Frontend.Run(gctx, m.Client)
	})
	g.Go(func() error {
		<-gctx.Done()
		return m.Client.Shutdown()
	})
	return g.Wait()
}

// login authenticates, asking for new credentials after each
// rejection until AuthAttempts is used up.
func (m *ChatMode) login() error {
	attempts := m.AuthAttempts
	if attempts < 1 {
		attempts = 1
	}

	var prev error
	for attempt := 1; attempt <= attempts; attempt++ {
		user, pass, err := m.Credentials(attempt, prev)
		if err != nil {
			return err
		}
		err = m.Client.Authenticate(m.AuthMode, user, pass)
		if err == nil {
			return nil
		}
		var ae *ncerr.AuthError
		if !errors.As(err, &ae) {
			return err
		}
		m.Logger.Warn("%v", err)
		m.Client.system("Authentication failed: %s", ae.Message)
		prev = err
	}
	return prev
}
