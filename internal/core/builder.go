package core

import (
	"linechat/config"
	"linechat/internal/metrics"
	"linechat/internal/transport"
	"linechat/tunnel"
	"linechat/util"
)

// Deps are the collaborators Build cannot derive from a Config.
type Deps struct {
	Frontend    Frontend
	Credentials CredentialsFunc
	// SecretPrompt reads SSH passwords and key passphrases.
	SecretPrompt tunnel.PromptFunc
	Logger       *util.Logger
	Metrics      *metrics.Collector
}

// Build constructs the ChatMode for cfg.  cfg must already be
// validated.
func Build(cfg *config.Config, deps Deps) *ChatMode {
	logger := deps.Logger
	if logger == nil {
		logger = util.NopLogger()
	}

	client := NewClient(Options{
		Dialer:        buildDialer(cfg, deps.SecretPrompt, logger),
		Notifier:      deps.Frontend,
		Logger:        logger,
		Metrics:       deps.Metrics,
		NoDNS:         cfg.NoDNS,
		RemoteResolve: cfg.TunnelEnabled,
		MaxLine:       cfg.MaxLine,
		Retries:       cfg.Retries,
	})

	return &ChatMode{
		Client:       client,
		Frontend:     deps.Frontend,
		Server:       cfg.Server,
		AuthMode:     cfg.Mode(),
		Credentials:  deps.Credentials,
		AuthAttempts: config.DefaultAuthAttempts,
		Logger:       logger,
	}
}

// buildDialer creates the right transport.Dialer for the given config.
func buildDialer(cfg *config.Config, prompt tunnel.PromptFunc, logger *util.Logger) transport.Dialer {
	if cfg.TunnelEnabled {
		return transport.NewSSHDialer(&tunnel.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   cfg.Timeout,
			Prompt:        prompt,
		}, logger)
	}
	return &transport.TCPDialer{Timeout: cfg.Timeout}
}
