// Package cmd wires up the CLI flags and runs a chat session.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"linechat/config"
	"linechat/internal/core"
	ncerr "linechat/internal/errors"
	"linechat/internal/frontend"
	"linechat/internal/metrics"
	"linechat/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X linechat/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// streams are the process's standard files.  Tests substitute pipes.
type streams struct {
	in  *os.File
	out io.Writer
	err io.Writer
}

// Execute parses args and runs linechat.
func Execute(ctx context.Context, args []string) error {
	return run(ctx, args, streams{in: os.Stdin, out: os.Stdout, err: os.Stderr})
}

func run(ctx context.Context, args []string, st streams) error {
	cfg := config.Default()
	config.LoadFromEnv(cfg)

	fs := flag.NewFlagSet("linechat", flag.ContinueOnError)
	fs.SetOutput(st.err)

	// ── account ──────────────────────────────────────────────────
	fs.StringVarP(&cfg.Username, "user", "u", cfg.Username, "Username (prompted if empty)")
	fs.BoolVar(&cfg.Register, "register", cfg.Register, "Create the account instead of logging in")

	// ── connection ───────────────────────────────────────────────
	fs.BoolVarP(&cfg.NoDNS, "no-dns", "n", cfg.NoDNS, "Numeric-only, no DNS resolution")
	timeoutSec := int(cfg.Timeout / time.Second)
	fs.IntVarP(&timeoutSec, "timeout", "w", timeoutSec, "Connect timeout in seconds")
	fs.IntVar(&cfg.Retries, "retries", cfg.Retries, "Connection attempts before giving up")
	fs.IntVar(&cfg.MaxLine, "max-line", cfg.MaxLine, "Longest accepted server line in bytes")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec, "SSH tunnel via [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	// ── output ───────────────────────────────────────────────────
	fs.BoolVar(&cfg.Plain, "plain", cfg.Plain, "Line-oriented output even on a terminal")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Append log output to this file")
	fs.BoolVar(&cfg.Stats, "stats", cfg.Stats, "Print session statistics as JSON at exit")
	envVerbose := cfg.Verbose
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")

	var showVersion, showHelp, dryRun bool
	fs.BoolVar(&dryRun, "dry-run", false, "Validate configuration and exit")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(st.err, fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !fs.Changed("verbose") {
		cfg.Verbose = envVerbose
	}

	if showHelp || (len(args) == 0 && cfg.Server == "") {
		printUsage(st.err, fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(st.out, "linechat %s\n", version)
		return nil
	}

	cfg.Timeout = time.Duration(timeoutSec) * time.Second

	// ── positional argument ──────────────────────────────────────
	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}

	// ── tunnel spec ──────────────────────────────────────────────
	if cfg.TunnelSpec != "" {
		user, host, port, err := config.ParseTunnelSpec(cfg.TunnelSpec)
		if err != nil {
			return fmt.Errorf("tunnel: %w", err)
		}
		cfg.TunnelEnabled = true
		cfg.TunnelUser = user
		cfg.TunnelHost = host
		cfg.TunnelPort = port
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}
	if dryRun {
		printPlan(st.out, cfg)
		return nil
	}

	// ── build components ─────────────────────────────────────────
	prompter := util.NewPrompter(st.in, st.err)
	useTUI := !cfg.Plain && prompter.Interactive() && isTerminal(st.out)

	logger := util.NewLogger(cfg.Verbose)
	logger.SetOutput(st.err)
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return &ncerr.ConfigError{Field: "log-file", Value: cfg.LogFile, Message: err.Error()}
		}
		defer f.Close()
		logger.SetOutput(f)
		logger.SetTimestamps(true)
	} else if useTUI {
		logger.SetOutput(io.Discard)
	}

	var ui core.Frontend
	if useTUI {
		ui = frontend.NewTUI("linechat "+cfg.Address(), nil, nil)
	} else {
		ui = frontend.NewConsole(prompter.Reader(), st.out)
	}

	var m *metrics.Collector
	if cfg.Stats {
		m = metrics.New()
		defer func() { fmt.Fprintln(st.err, m.JSON()) }()
	}

	mode := core.Build(cfg, core.Deps{
		Frontend:     ui,
		Credentials:  credentials(cfg, prompter),
		SecretPrompt: prompter.Secret,
		Logger:       logger,
		Metrics:      m,
	})
	logger.Verbose("%s to %s", cfg.Mode(), cfg.Address())
	return mode.Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

func parsePositional(cfg *config.Config, remaining []string) error {
	switch len(remaining) {
	case 0: // LINECHAT_SERVER or nothing; Validate reports the latter
	case 1:
		cfg.Server = remaining[0]
	default:
		return fmt.Errorf("too many arguments: want a single <host[:port]>")
	}
	if cfg.Server == "" {
		return nil
	}

	host, port, err := config.ParseServerAddr(cfg.Server)
	if err != nil {
		return &ncerr.ConfigError{
			Field:   "server",
			Value:   cfg.Server,
			Message: err.Error(),
			Hint:    "use host, host:port or [ipv6]:port",
		}
	}
	cfg.Host = host
	cfg.Port = port
	return nil
}

// credentials asks for whatever the config does not already supply.
// After a rejection the password is asked for again, but only when a
// person is at the keyboard.
func credentials(cfg *config.Config, p *util.Prompter) core.CredentialsFunc {
	user, pass := cfg.Username, cfg.Password
	return func(attempt int, prev error) (string, string, error) {
		if attempt > 1 {
			if !p.Interactive() {
				return "", "", prev
			}
			pass = ""
		}

		var err error
		if user == "" {
			if user, err = p.Line("Username: "); err != nil {
				return "", "", fmt.Errorf("username: %w", err)
			}
		}
		if pass == "" {
			prompt := "Password: "
			if attempt > 1 {
				prompt = fmt.Sprintf("Password (attempt %d): ", attempt)
			}
			if pass, err = p.Secret(prompt); err != nil {
				return "", "", fmt.Errorf("password: %w", err)
			}
		}
		return user, pass, nil
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func printPlan(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "server:   %s\n", cfg.Address())
	fmt.Fprintf(w, "mode:     %s\n", cfg.Mode())
	if cfg.Username != "" {
		fmt.Fprintf(w, "user:     %s\n", cfg.Username)
	}
	if cfg.TunnelEnabled {
		fmt.Fprintf(w, "tunnel:   %s@%s:%d\n", cfg.TunnelUser, cfg.TunnelHost, cfg.TunnelPort)
	}
	fmt.Fprintf(w, "timeout:  %s\n", cfg.Timeout)
	fmt.Fprintf(w, "retries:  %d\n", cfg.Retries)
	fmt.Fprintf(w, "max-line: %d\n", cfg.MaxLine)
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, `linechat – terminal chat client v%s

Connects to a line-protocol chat server, logs in, and lets you chat
one-to-one with other online users.

Usage:
  linechat [options] <host[:port]>            Log in (default port %d)
  linechat --register -u <name> <host>        Create an account
  linechat -T user@gateway <host[:port]>      Connect through SSH

Options:
`, version, config.DefaultPort)
	fs.PrintDefaults()
	fmt.Fprintf(w, `
Commands once logged in:
  /connect <user>  /disconnect  /list  /help  /quit

Environment:
  LINECHAT_SERVER, LINECHAT_USER, LINECHAT_PASSWORD and LINECHAT_<FLAG>
  supply defaults; flags win.

Examples:
  linechat chat.example.com                   Log in on port %d
  linechat -u alice --plain 10.0.0.5:6000     Plain output
  linechat -T admin@bastion chat-internal     Through a bastion
`, config.DefaultPort)
}
