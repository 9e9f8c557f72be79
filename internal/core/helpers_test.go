package core

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"linechat/internal/metrics"
	"linechat/internal/protocol"
	"linechat/internal/transport"
)

// ── fake chat server ─────────────────────────────────────────────────

type fakeServer struct {
	ln    net.Listener
	conns chan *fakeConn
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := &fakeServer{ln: ln, conns: make(chan *fakeConn, 4)}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			t.Cleanup(func() { c.Close() })
			s.conns <- &fakeConn{c: c, r: bufio.NewReader(c)}
		}
	}()
	return s
}

func (s *fakeServer) addr() string { return s.ln.Addr().String() }

func (s *fakeServer) accept(t *testing.T) *fakeConn {
	t.Helper()
	select {
	case c := <-s.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no connection accepted")
		return nil
	}
}

type fakeConn struct {
	c net.Conn
	r *bufio.Reader
}

// expect reads one line and compares it with want.
func (f *fakeConn) expect(t *testing.T, want string) {
	t.Helper()
	f.c.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	line, err := f.r.ReadString('\n')
	if err != nil {
		t.Fatalf("server waiting for %q: %v", want, err)
	}
	if got := strings.TrimSuffix(line, "\n"); got != want {
		t.Fatalf("server got %q, want %q", got, want)
	}
}

func (f *fakeConn) send(t *testing.T, lines ...string) {
	t.Helper()
	for _, l := range lines {
		if _, err := f.c.Write([]byte(l + "\n")); err != nil {
			t.Fatalf("server write: %v", err)
		}
	}
}

func (f *fakeConn) close() { f.c.Close() }

// ── recording notifier ───────────────────────────────────────────────

type recorder struct {
	mu       sync.Mutex
	msgs     []Message
	statuses []string
}

func (r *recorder) DisplayMessage(m Message) {
	r.mu.Lock()
	r.msgs = append(r.msgs, m)
	r.mu.Unlock()
}

func (r *recorder) SetStatus(s string) {
	r.mu.Lock()
	r.statuses = append(r.statuses, s)
	r.mu.Unlock()
}

func (r *recorder) messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}

func (r *recorder) lastStatus() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return ""
	}
	return r.statuses[len(r.statuses)-1]
}

func (r *recorder) find(want Message) bool {
	for _, m := range r.messages() {
		if m == want {
			return true
		}
	}
	return false
}

// waitFor blocks until want has been displayed.
func (r *recorder) waitFor(t *testing.T, want Message) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r.find(want) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("message %+v never displayed; got %+v", want, r.messages())
}

func sys(text string) Message { return Message{Kind: System, Text: text} }

// ── client fixtures ──────────────────────────────────────────────────

func newTestClient(t *testing.T, m *metrics.Collector) (*Client, *recorder) {
	t.Helper()
	rec := &recorder{}
	c := NewClient(Options{
		Dialer:     &transport.TCPDialer{Timeout: 2 * time.Second},
		Notifier:   rec,
		Metrics:    m,
		MaxLine:    1024,
		RetryDelay: time.Millisecond,
	})
	t.Cleanup(func() { c.Shutdown() })
	return c, rec
}

// loggedIn returns a client authenticated as alice against srv.
func loggedIn(t *testing.T, srv *fakeServer, m *metrics.Collector) (*Client, *fakeConn, *recorder) {
	t.Helper()
	c, rec := newTestClient(t, m)
	if err := c.Open(testContext(t), srv.addr()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	conn := srv.accept(t)

	errc := make(chan error, 1)
	go func() { errc <- c.Authenticate(protocol.ModeLogin, "alice", "pw") }()
	conn.expect(t, "login")
	conn.expect(t, "alice")
	conn.expect(t, "pw")
	conn.send(t, "LOGIN_SUCCESS:Welcome alice")
	if err := <-errc; err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	return c, conn, rec
}

// waitState polls until the client reaches want.
func waitState(t *testing.T, c *Client, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state = %s, want %s", c.State(), want)
}
