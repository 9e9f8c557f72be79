package frontend

import (
	"bufio"
	"bytes"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"linechat/internal/core"
	"linechat/internal/protocol"
	"linechat/internal/transport"
)

// syncBuffer is a bytes.Buffer safe for the receive loop and the test
// goroutine.
type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

// waitOutput blocks until out contains want.
func waitOutput(t *testing.T, out *syncBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(out.String(), want) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("output never contained %q:\n%s", want, out.String())
}

// recorder is a core.Notifier that keeps everything it is told.
type recorder struct {
	mu       sync.Mutex
	msgs     []core.Message
	statuses []string
}

func (r *recorder) DisplayMessage(m core.Message) {
	r.mu.Lock()
	r.msgs = append(r.msgs, m)
	r.mu.Unlock()
}

func (r *recorder) SetStatus(s string) {
	r.mu.Lock()
	r.statuses = append(r.statuses, s)
	r.mu.Unlock()
}

func (r *recorder) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.msgs {
		out = append(out, m.Text)
	}
	return out
}

// serverConn is the far end of one accepted client connection.
type serverConn struct {
	c net.Conn
	r *bufio.Reader
}

func (s *serverConn) expect(t *testing.T, want string) {
	t.Helper()
	s.c.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	line, err := s.r.ReadString('\n')
	if err != nil {
		t.Fatalf("server waiting for %q: %v", want, err)
	}
	if got := strings.TrimSuffix(line, "\n"); got != want {
		t.Fatalf("server got %q, want %q", got, want)
	}
}

func (s *serverConn) send(t *testing.T, line string) {
	t.Helper()
	if _, err := s.c.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("server write: %v", err)
	}
}

// loggedInClient starts a one-shot server, connects a client notifying
// n and logs it in as alice.
func loggedInClient(t *testing.T, n core.Notifier) (*core.Client, *serverConn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })
	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	client := core.NewClient(core.Options{
		Dialer:   &transport.TCPDialer{Timeout: 2 * time.Second},
		Notifier: n,
		MaxLine:  1024,
	})
	t.Cleanup(func() { client.Shutdown() })
	if err := client.Open(testContext(t), ln.Addr().String()); err != nil {
		t.Fatalf("Open: %v", err)
	}

	var conn net.Conn
	select {
	case conn = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("no connection accepted")
	}
	t.Cleanup(func() { conn.Close() })
	srv := &serverConn{c: conn, r: bufio.NewReader(conn)}

	errc := make(chan error, 1)
	go func() { errc <- client.Authenticate(protocol.ModeLogin, "alice", "pw") }()
	srv.expect(t, "login")
	srv.expect(t, "alice")
	srv.expect(t, "pw")
	srv.send(t, "LOGIN_SUCCESS:Welcome alice")
	if err := <-errc; err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	return client, srv
}
