package app

import (
	"github.com/pkg/errors"

	"keybridge/internal/config"
	"keybridge/internal/delegation"
	"keybridge/internal/logger"
	"keybridge/internal/provider"
)

// Wire bundles the settings, logger and delegation context for the CLI.
type Wire struct {
	Home       string
	Settings   config.Settings
	Log        logger.Logger
	Connector  *provider.Connector
	Delegation *delegation.Context
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config) (*Wire, error) {
	home, err := config.ResolveHome(cfg.Home)
	if err != nil {
		return nil, err
	}
	settings, err := config.Load(home)
	if err != nil {
		return nil, errors.WithMessage(err, "load preferences")
	}
	if cfg.Identity != "" {
		settings.Crypto.UserIDs = cfg.Identity
	}
	if cfg.Provider != "" {
		settings.Crypto.Provider = cfg.Provider
	}

	log, err := logger.New(&settings.Logger)
	if err != nil {
		return nil, err
	}

	sessionCfg, err := settings.SessionConfig()
	if err != nil {
		return nil, errors.WithMessage(err, "crypto.user_ids")
	}

	// Provider connector resolves ids under the configured socket dir
	connector := provider.NewConnector(settings.Provider.SocketDir, log)

	dc, err := delegation.Open(delegation.Options{
		Config:           sessionCfg,
		Connector:        connector,
		Interactor:       cfg.Interactor,
		Logger:           log,
		HandshakeTimeout: settings.Provider.HandshakeTimeout,
		Eager:            settings.Crypto.Enabled,
	})
	if err != nil {
		return nil, err
	}

	return &Wire{
		Home:       home,
		Settings:   settings,
		Log:        log,
		Connector:  connector,
		Delegation: dc,
	}, nil
}

// Close releases the delegation context.
func (w *Wire) Close() error {
	return w.Delegation.Close()
}
