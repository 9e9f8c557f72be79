package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"linechat/config"
	ncerr "linechat/internal/errors"
	"linechat/internal/metrics"
	"linechat/internal/protocol"
	"linechat/internal/retry"
	"linechat/internal/session"
	"linechat/internal/transport"
	"linechat/util"
)

// Options configures a Client.  Zero values select the defaults from
// the config package.
type Options struct {
	Dialer   transport.Dialer
	Notifier Notifier
	Logger   *util.Logger
	Metrics  *metrics.Collector

	NoDNS         bool
	RemoteResolve bool
	MaxLine       int

	Retries       int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// Client drives one chat session through its states.  All methods are
// safe for concurrent use.
type Client struct {
	dialer   transport.Dialer
	notifier Notifier
	logger   *util.Logger
	metrics  *metrics.Collector
	opts     Options

	mu    sync.Mutex // guards the fields below
	state State
	sess  *session.Session
	stop  chan struct{} // closed to stop the receive loop
	done  chan struct{} // closed when the receive loop exits

	wg sync.WaitGroup // receive goroutine
}

// NewClient returns a Client in the Disconnected state.
func NewClient(opts Options) *Client {
	if opts.Dialer == nil {
		opts.Dialer = &transport.TCPDialer{Timeout: config.DefaultConnTimeout}
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = util.NopLogger()
	}
	if opts.Retries < 1 {
		opts.Retries = config.DefaultRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = config.DefaultRetryDelay
	}
	if opts.MaxRetryDelay <= 0 {
		opts.MaxRetryDelay = config.DefaultMaxRetryDelay
	}
	return &Client{
		dialer:   opts.Dialer,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		opts:     opts,
	}
}

// State returns the current state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Partner returns the current chat partner, or "".
func (c *Client) Partner() string {
	if s := c.current(); s != nil {
		return s.Partner()
	}
	return ""
}

// Username returns the authenticated username, or "".
func (c *Client) Username() string {
	if s := c.current(); s != nil {
		return s.Username()
	}
	return ""
}

// SessionDone returns a channel closed when the current chat session
// ends, whether by Shutdown or by losing the connection.  Before
// authentication it returns nil.
func (c *Client) SessionDone() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *Client) current() *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

func (c *Client) system(format string, args ...any) {
	c.notifier.DisplayMessage(Message{Kind: System, Text: fmt.Sprintf(format, args...)})
}

// ── Connect ──────────────────────────────────────────────────────────

// Open connects to the server named by spec ("host" or "host:port").
// Retryable dial failures are retried with exponential backoff up to
// Options.Retries attempts.  On failure the client stays Disconnected
// and the error is a *ncerr.ConnectError.
func (c *Client) Open(ctx context.Context, spec string) error {
	c.mu.Lock()
	switch c.state {
	case Disconnected:
	case Closed:
		c.mu.Unlock()
		return ncerr.ErrClientClosed
	default:
		c.mu.Unlock()
		return ncerr.ErrAlreadyOpen
	}
	c.mu.Unlock()

	c.notifier.SetStatus("Connecting to " + spec)

	opts := session.Options{
		NoDNS:         c.opts.NoDNS,
		RemoteResolve: c.opts.RemoteResolve,
		MaxLine:       c.opts.MaxLine,
		Logger:        c.logger,
		Metrics:       c.metrics,
	}
	b := &retry.Backoff{
		InitialDelay: c.opts.RetryDelay,
		MaxDelay:     c.opts.MaxRetryDelay,
		Multiplier:   2,
		MaxAttempts:  c.opts.Retries,
		Jitter:       true,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			c.metrics.ConnectRetry()
			c.logger.Warn("attempt %d/%d failed: %v", attempt, c.opts.Retries, err)
			c.notifier.SetStatus(fmt.Sprintf("Retrying in %s", wait.Round(100*time.Millisecond)))
		},
	}

	var sess *session.Session
	err := b.Do(ctx, func(int) error {
		s, err := session.Open(ctx, c.dialer, spec, opts)
		if err != nil {
			if !ncerr.IsRetryable(err) {
				return retry.Permanent(err)
			}
			return err
		}
		sess = s
		return nil
	})
	if err != nil {
		c.notifier.SetStatus("Disconnected")
		c.system("Failed to connect: %v", err)
		return err
	}

	c.mu.Lock()
	if c.state != Disconnected {
		// Shutdown won the race.
		c.mu.Unlock()
		sess.Close()
		return ncerr.ErrClientClosed
	}
	c.sess = sess
	c.state = Connected
	c.mu.Unlock()

	addr := util.FormatAddr(sess.Host(), sess.Port())
	c.logger.Verbose("state %s → %s", Disconnected, Connected)
	c.system("Connected to %s", addr)
	c.notifier.SetStatus("Connected to " + addr)
	return nil
}

// ── Authenticate ─────────────────────────────────────────────────────

// Authenticate sends the credentials and waits for the server's single
// reply line.  A rejection returns *ncerr.AuthError and leaves the
// client Connected so the caller may try again.  Success moves the
// client to Chatting and starts the receive loop.
func (c *Client) Authenticate(mode protocol.AuthMode, username, password string) error {
	if !mode.Valid() {
		return ncerr.ErrInvalidMode
	}
	if username == "" || password == "" {
		return ncerr.ErrEmptyCredential
	}

	c.mu.Lock()
	switch c.state {
	case Connected:
	case Disconnected:
		c.mu.Unlock()
		return ncerr.ErrNotConnected
	case Closed:
		c.mu.Unlock()
		return ncerr.ErrClientClosed
	default:
		c.mu.Unlock()
		return ncerr.ErrInvalidState
	}
	c.state = Authenticating
	sess := c.sess
	c.mu.Unlock()

	c.logger.Verbose("state %s → %s", Connected, Authenticating)
	c.notifier.SetStatus("Authenticating as " + username)

	for _, line := range protocol.AuthLines(mode, username, password) {
		if err := sess.SendLine(line); err != nil {
			return c.authFailed(sess, err)
		}
	}
	c.logger.Debug("-> %s %s ********", mode, username)

	reply, err := sess.ReadLine()
	if err != nil {
		return c.authFailed(sess, err)
	}
	c.logger.Debug("<- %s", reply)

	result, detail := protocol.ParseAuthReply(reply)
	if result == protocol.AuthRejected {
		c.mu.Lock()
		if c.state == Authenticating {
			c.state = Connected
		}
		c.mu.Unlock()
		c.notifier.SetStatus("Authentication failed")
		return &ncerr.AuthError{Mode: string(mode), Message: detail}
	}

	sess.MarkAuthenticated(username)

	c.mu.Lock()
	if c.state != Authenticating {
		c.mu.Unlock()
		return ncerr.ErrClientClosed
	}
	c.state = Chatting
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	c.wg.Add(1)
	go c.receive(sess, c.stop, c.done)
	c.mu.Unlock()

	c.logger.Verbose("state %s → %s", Authenticating, Chatting)
	if detail = strings.TrimSpace(detail); detail != "" {
		c.system("%s", detail)
	}
	c.notifier.SetStatus("Logged in as " + username)
	return nil
}

func (c *Client) authFailed(sess *session.Session, err error) error {
	if c.State() == Closed {
		return ncerr.ErrClientClosed
	}
	c.teardown(sess, fmt.Sprintf("Connection lost during authentication: %v", err), true)
	return fmt.Errorf("authenticate: %w", err)
}

// ── Chat commands ────────────────────────────────────────────────────

func (c *Client) chatting() (*session.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case Chatting:
		return c.sess, nil
	case Closed:
		return nil, ncerr.ErrClientClosed
	default:
		return nil, ncerr.ErrNotChatting
	}
}

// send writes one line and tears the session down if that fails.
func (c *Client) send(sess *session.Session, line string) error {
	if err := sess.SendLine(line); err != nil {
		c.teardown(sess, fmt.Sprintf("Connection lost: %v", err), true)
		return err
	}
	return nil
}

// ConnectPeer asks the server to pair us with username.  The pairing
// takes effect when the server confirms it.
func (c *Client) ConnectPeer(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ncerr.ErrEmptyUsername
	}
	sess, err := c.chatting()
	if err != nil {
		return err
	}
	c.logger.Verbose("requesting chat with %s", username)
	return c.send(sess, protocol.ConnectLine(username))
}

// DisconnectPeer ends the current pairing.  The partner is forgotten
// locally without waiting for the server.
func (c *Client) DisconnectPeer() error {
	sess, err := c.chatting()
	if err != nil {
		return err
	}
	if err := c.send(sess, protocol.CmdDisconnect); err != nil {
		return err
	}
	sess.ClearPartner()
	c.system("Disconnected from chat")
	c.notifier.SetStatus("Logged in as " + sess.Username())
	return nil
}

// ListUsers asks the server for the online user list.  The answer
// arrives through the receive loop as a notice.
func (c *Client) ListUsers() error {
	sess, err := c.chatting()
	if err != nil {
		return err
	}
	return c.send(sess, protocol.CmdList)
}

// SendChat sends text to the current partner and echoes it locally.
// Blank text is ignored.  With no partner it returns ncerr.ErrNoPartner
// and sends nothing.
func (c *Client) SendChat(text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	sess, err := c.chatting()
	if err != nil {
		return err
	}
	partner := sess.Partner()
	if partner == "" {
		return ncerr.ErrNoPartner
	}
	if err := c.send(sess, protocol.ChatLine(partner, text)); err != nil {
		return err
	}
	c.notifier.DisplayMessage(Message{Kind: Own, From: sess.Username(), Text: text})
	return nil
}

// ── Teardown ─────────────────────────────────────────────────────────

// Shutdown moves the client to Closed from any state.  It tells the
// server we are leaving, stops and joins the receive loop, then closes
// the socket and the dialer.  Safe to call more than once.
func (c *Client) Shutdown() error {
	c.mu.Lock()
	if c.state == Closed {
		c.mu.Unlock()
		return nil
	}
	prev := c.state
	c.state = Closed
	sess := c.sess
	stop := c.stop
	c.sess, c.stop = nil, nil
	c.mu.Unlock()

	c.logger.Verbose("state %s → %s", prev, Closed)

	if sess != nil {
		if err := sess.SendLine(protocol.CmdExit); err != nil {
			c.logger.Debug("exit not delivered: %v", err)
		}
		if stop != nil {
			close(stop)
		}
		sess.Interrupt()
	}
	c.wg.Wait()

	var err error
	if sess != nil {
		err = sess.Close()
	}
	if derr := c.dialer.Close(); derr != nil {
		c.logger.Debug("closing dialer: %v", derr)
	}
	c.notifier.SetStatus("Closed")
	return err
}

// teardown drops sess after a fatal error and returns the client to
// Disconnected so that a fresh Open is possible.  It is a no-op if sess
// is no longer current.  join must be false only when called from the
// receive loop itself; otherwise the loop is stopped and joined before
// the socket is closed.
func (c *Client) teardown(sess *session.Session, notice string, join bool) {
	c.mu.Lock()
	if c.sess != sess {
		c.mu.Unlock()
		return
	}
	prev := c.state
	c.sess = nil
	c.state = Disconnected
	stop, done := c.stop, c.done
	c.stop = nil
	c.mu.Unlock()

	if stop != nil {
		close(stop)
		if join {
			sess.Interrupt()
			<-done
		}
	}
	sess.Close()

	c.logger.Verbose("state %s → %s", prev, Disconnected)
	c.logger.Warn("%s", notice)
	c.system("%s", notice)
	c.notifier.SetStatus("Disconnected")
}
