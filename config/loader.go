package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the LINECHAT_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("LINECHAT_SERVER"); v != "" {
		cfg.Server = v
	}
	if envBool("LINECHAT_NO_DNS") {
		cfg.NoDNS = true
	}
	if v := envInt("LINECHAT_TIMEOUT"); v > 0 {
		cfg.Timeout = secondsDuration(v)
	}
	if v := envInt("LINECHAT_RETRIES"); v > 0 {
		cfg.Retries = v
	}
	if v := envInt("LINECHAT_MAX_LINE"); v > 0 {
		cfg.MaxLine = v
	}

	// Account
	if v := os.Getenv("LINECHAT_USER"); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv("LINECHAT_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if envBool("LINECHAT_REGISTER") {
		cfg.Register = true
	}

	// SSH tunnel
	if v := os.Getenv("LINECHAT_TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := os.Getenv("LINECHAT_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("LINECHAT_SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("LINECHAT_SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("LINECHAT_STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := os.Getenv("LINECHAT_KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Output
	if envBool("LINECHAT_PLAIN") {
		cfg.Plain = true
	}
	if v := os.Getenv("LINECHAT_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := envInt("LINECHAT_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
