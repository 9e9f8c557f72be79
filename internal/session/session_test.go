package session

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	ncerr "linechat/internal/errors"
	"linechat/internal/metrics"
	"linechat/internal/transport"
)

// listen starts a loopback server and hands each accepted connection
// to handle.
func listen(t *testing.T, handle func(net.Conn)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go handle(c)
		}
	}()
	return ln.Addr().String()
}

func openTest(t *testing.T, addr string, m *metrics.Collector) *Session {
	t.Helper()
	s, err := Open(context.Background(), &transport.TCPDialer{Timeout: 2 * time.Second}, addr, Options{Metrics: m})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_SendAndRead(t *testing.T) {
	got := make(chan string, 1)
	addr := listen(t, func(c net.Conn) {
		defer c.Close()
		line, _ := bufio.NewReader(c).ReadString('\n')
		got <- line
		c.Write([]byte("LOGIN_SUCCESS:hi\r\n")) //nolint:errcheck
	})

	m := metrics.New()
	s := openTest(t, addr, m)

	if s.Host() != "127.0.0.1" || s.Port() == 0 {
		t.Errorf("host/port = %q/%d", s.Host(), s.Port())
	}
	if err := s.SendLine("login"); err != nil {
		t.Fatalf("SendLine: %v", err)
	}
	if line := <-got; line != "login\n" {
		t.Errorf("server got %q", line)
	}

	line, err := s.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "LOGIN_SUCCESS:hi" {
		t.Errorf("ReadLine = %q", line)
	}

	if m.LinesOut() != 1 || m.TotalBytesOut() != 6 {
		t.Errorf("out metrics = %d/%d", m.LinesOut(), m.TotalBytesOut())
	}
	if m.LinesIn() != 1 || m.ActiveSessions() != 1 {
		t.Errorf("in metrics = %d, active = %d", m.LinesIn(), m.ActiveSessions())
	}
}

func TestOpen_Errors(t *testing.T) {
	// A port with nothing listening.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	dead := ln.Addr().String()
	ln.Close()

	tests := []struct {
		name      string
		spec      string
		opts      Options
		wantOp    string
		retryable bool
	}{
		{"empty", "", Options{}, "parse", false},
		{"bad port", "127.0.0.1:http", Options{}, "parse", false},
		{"name with no-dns", "chat.invalid", Options{NoDNS: true}, "resolve", false},
		{"refused", dead, Options{}, "dial", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &countingDialer{TCPDialer: transport.TCPDialer{Timeout: time.Second}}
			s, err := Open(context.Background(), d, tt.spec, tt.opts)
			if s != nil {
				t.Fatal("session returned on failure")
			}
			var ce *ncerr.ConnectError
			if !errors.As(err, &ce) {
				t.Fatalf("err = %v, want *ConnectError", err)
			}
			if ce.Op != tt.wantOp {
				t.Errorf("Op = %q, want %q", ce.Op, tt.wantOp)
			}
			if ce.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, want %v", ce.Retryable, tt.retryable)
			}
			if tt.wantOp != "dial" && d.calls != 0 {
				t.Errorf("dialer called %d times before a %s failure", d.calls, tt.wantOp)
			}
		})
	}
}

func TestOpen_RemoteResolveSkipsLookup(t *testing.T) {
	d := &countingDialer{fail: errors.New("stop here")}
	_, err := Open(context.Background(), d, "chat.internal:5000", Options{RemoteResolve: true})
	if err == nil {
		t.Fatal("expected dial error")
	}
	if d.lastAddr != "chat.internal:5000" {
		t.Errorf("dialed %q, want the unresolved name", d.lastAddr)
	}
}

type countingDialer struct {
	transport.TCPDialer
	calls    int
	lastAddr string
	fail     error
}

func (d *countingDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	d.calls++
	d.lastAddr = address
	if d.fail != nil {
		return nil, d.fail
	}
	return d.TCPDialer.Dial(ctx, network, address)
}

func TestSendLine_NoInterleaving(t *testing.T) {
	lines := make(chan string, 1000)
	addr := listen(t, func(c net.Conn) {
		defer c.Close()
		sc := bufio.NewScanner(c)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	})
	s := openTest(t, addr, nil)

	const writers, each = 8, 50
	msg := strings.Repeat("x", 300)
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				if err := s.SendLine(msg); err != nil {
					t.Errorf("SendLine: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
	s.Close()

	n := 0
	for line := range lines {
		if line != msg {
			t.Fatalf("interleaved line of length %d", len(line))
		}
		n++
	}
	if n != writers*each {
		t.Errorf("server saw %d lines, want %d", n, writers*each)
	}
}

func TestSendLine_AfterClose(t *testing.T) {
	addr := listen(t, func(c net.Conn) { defer c.Close(); time.Sleep(time.Second) })
	s := openTest(t, addr, nil)
	s.Close()

	err := s.SendLine("list")
	if !errors.Is(err, ncerr.ErrTransportClosed) {
		t.Fatalf("err = %v, want ErrTransportClosed", err)
	}
}

func TestReadLine_PeerClose(t *testing.T) {
	addr := listen(t, func(c net.Conn) {
		c.Write([]byte("bye\n")) //nolint:errcheck
		c.Close()
	})
	s := openTest(t, addr, nil)

	if line, err := s.ReadLine(); err != nil || line != "bye" {
		t.Fatalf("ReadLine = %q, %v", line, err)
	}
	if _, err := s.ReadLine(); !errors.Is(err, ncerr.ErrTransportClosed) {
		t.Fatalf("err = %v, want ErrTransportClosed", err)
	}
}

func TestReadLine_Overflow(t *testing.T) {
	addr := listen(t, func(c net.Conn) {
		defer c.Close()
		c.Write([]byte(strings.Repeat("a", 600))) //nolint:errcheck
		time.Sleep(time.Second)
	})
	m := metrics.New()
	s, err := Open(context.Background(), &transport.TCPDialer{}, addr, Options{MaxLine: 256, Metrics: m})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := s.ReadLine(); !errors.Is(err, ncerr.ErrFrameOverflow) {
		t.Fatalf("err = %v, want ErrFrameOverflow", err)
	}
	if m.Overflows() != 1 {
		t.Errorf("overflows = %d, want 1", m.Overflows())
	}
}

func TestInterrupt_UnblocksRead(t *testing.T) {
	addr := listen(t, func(c net.Conn) { defer c.Close(); time.Sleep(5 * time.Second) })
	s := openTest(t, addr, nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.ReadLine()
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	s.Interrupt()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("ReadLine returned nil after Interrupt")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Interrupt did not unblock ReadLine")
	}
}

func TestClose_Idempotent(t *testing.T) {
	addr := listen(t, func(c net.Conn) { defer c.Close(); time.Sleep(time.Second) })
	m := metrics.New()
	s := openTest(t, addr, m)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Close()
		}()
	}
	wg.Wait()
	if m.ActiveSessions() != 0 {
		t.Errorf("active sessions = %d after Close", m.ActiveSessions())
	}
}

func TestSharedState(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c2.Close()
	s := New(c1, 0, nil, nil)
	defer s.Close()

	if s.Key() != "" || s.Partner() != "" || s.Authenticated() || s.Username() != "" {
		t.Fatal("new session should start empty")
	}

	s.SetKey("k1")
	s.SetPartner("bob")
	if s.Key() != "k1" || s.Partner() != "bob" {
		t.Errorf("key %q partner %q", s.Key(), s.Partner())
	}
	if prev := s.ClearPartner(); prev != "bob" || s.Partner() != "" {
		t.Errorf("ClearPartner = %q, partner now %q", prev, s.Partner())
	}

	if !s.MarkAuthenticated("alice") {
		t.Fatal("first MarkAuthenticated should succeed")
	}
	if s.MarkAuthenticated("mallory") {
		t.Error("second MarkAuthenticated should fail")
	}
	if s.Username() != "alice" || !s.Authenticated() {
		t.Errorf("username %q authenticated %v", s.Username(), s.Authenticated())
	}
}

func TestSharedState_Concurrent(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c2.Close()
	s := New(c1, 0, nil, nil)
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				s.SetPartner("bob")
				s.SetKey("k")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = s.Partner()
				_ = s.ClearPartner()
				_ = s.Key()
			}
		}()
	}
	wg.Wait()
}
