// Package config defines the runtime configuration for linechat and
// provides helpers for parsing server addresses and tunnel
// specifications.
package config

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	ncerr "linechat/internal/errors"
	"linechat/internal/protocol"
)

// Config holds every tuneable for a single linechat run.
type Config struct {
	// ── Server ───────────────────────────────────────────────────────
	Server  string // raw host[:port] as given
	Host    string
	Port    int
	NoDNS   bool
	Timeout time.Duration
	Retries int
	MaxLine int

	// ── Account ──────────────────────────────────────────────────────
	Username string
	Password string // env only; never a flag
	Register bool

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec     string // raw user@host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Output ───────────────────────────────────────────────────────
	Plain   bool
	LogFile string
	Stats   bool
	Verbose int
}

// Default returns a Config populated from defaults.go.
func Default() *Config {
	return &Config{
		Port:    DefaultPort,
		Timeout: DefaultConnTimeout,
		Retries: DefaultRetries,
		MaxLine: DefaultMaxLine,
	}
}

// Mode returns the authentication mode selected by --register.
func (c *Config) Mode() protocol.AuthMode {
	if c.Register {
		return protocol.ModeRegister
	}
	return protocol.ModeLogin
}

// Address returns host:port suitable for display.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ── Server address parser ────────────────────────────────────────────

// ParseServerAddr splits "host" or "host:port" into its parts.  The
// port defaults to DefaultPort.  Bracketed IPv6 literals are accepted
// with or without a port; a bare IPv6 literal is taken as a host.
func ParseServerAddr(spec string) (host string, port int, err error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return "", 0, fmt.Errorf("server address is empty")
	}

	portStr := ""
	switch {
	case strings.HasPrefix(spec, "["):
		end := strings.IndexByte(spec, ']')
		if end < 0 {
			return "", 0, fmt.Errorf("invalid server address %q: missing ']'", spec)
		}
		host = spec[1:end]
		rest := spec[end+1:]
		if rest != "" {
			if !strings.HasPrefix(rest, ":") {
				return "", 0, fmt.Errorf("invalid server address %q", spec)
			}
			portStr = rest[1:]
			if portStr == "" {
				return "", 0, fmt.Errorf("invalid server address %q: empty port", spec)
			}
		}
	case strings.Count(spec, ":") == 1:
		host, portStr, _ = strings.Cut(spec, ":")
		if portStr == "" {
			return "", 0, fmt.Errorf("invalid server address %q: empty port", spec)
		}
	default:
		host = spec
	}

	if host == "" {
		return "", 0, fmt.Errorf("server host is required")
	}
	if portStr == "" {
		return host, DefaultPort, nil
	}

	port, err = strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q", portStr)
	}
	if port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("port %d out of range 1-65535", port)
	}
	return host, port, nil
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q – expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	return user, host, port, nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
// Every failure is a *ncerr.ConfigError naming the offending flag.
func (c *Config) Validate() error {
	if c.Host == "" {
		return &ncerr.ConfigError{
			Field:   "server",
			Message: "chat server address is required",
			Hint:    "pass <host[:port]> or set LINECHAT_SERVER",
		}
	}
	if c.Port < 1 || c.Port > 65535 {
		return &ncerr.ConfigError{Field: "server", Value: c.Port, Message: "port out of range 1-65535"}
	}
	if c.MaxLine < MinMaxLine {
		return &ncerr.ConfigError{
			Field:   "max-line",
			Value:   c.MaxLine,
			Message: "too small",
			Hint:    fmt.Sprintf("use at least %d bytes", MinMaxLine),
		}
	}
	if c.Retries < 1 {
		return &ncerr.ConfigError{
			Field:   "retries",
			Value:   c.Retries,
			Message: "must be at least 1",
			Hint:    "1 means a single attempt with no retry",
		}
	}
	if c.Timeout < 0 {
		return &ncerr.ConfigError{Field: "timeout", Value: c.Timeout, Message: "must not be negative"}
	}
	if c.TunnelEnabled {
		if c.TunnelHost == "" {
			return &ncerr.ConfigError{Field: "tunnel", Value: c.TunnelSpec, Message: "tunnel host is required"}
		}
		if c.TunnelUser == "" {
			return &ncerr.ConfigError{
				Field:   "tunnel",
				Value:   c.TunnelSpec,
				Message: "SSH user is required",
				Hint:    "use -T user@gateway[:port]",
			}
		}
	} else if c.SSHKeyPath != "" || c.SSHPassword || c.UseSSHAgent {
		return &ncerr.ConfigError{
			Field:   "tunnel",
			Message: "SSH options given without a tunnel",
			Hint:    "add -T user@gateway[:port]",
		}
	}
	return nil
}
