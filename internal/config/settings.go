package config

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"keybridge/internal/domain"
)

// Log level constants
const (
	LogLevelDebug   = "debug"
	LogLevelInfo    = "info"
	LogLevelWarning = "warning"
	LogLevelError   = "error"
)

// Log type constants
const (
	LogTypeConsole = "console"
	LogTypeFile    = "file"
)

// Settings is the persisted preference file.
type Settings struct {
	Crypto   CryptoSettings   `yaml:"crypto"`
	Provider ProviderSettings `yaml:"provider"`
	Logger   LoggerSettings   `yaml:"logger"`
}

// CryptoSettings are the preferences the delegation session consumes.
type CryptoSettings struct {
	// Enabled starts binding as soon as the delegation context opens.
	Enabled bool `yaml:"enabled"`
	// UserIDs is the signer/recipient identity. Empty means none configured.
	UserIDs string `yaml:"user_ids"`
	// Provider names the external provider; empty selects domain.DefaultProviderID.
	Provider string `yaml:"provider"`
}

// ProviderSettings control how provider ids are resolved to endpoints.
type ProviderSettings struct {
	SocketDir        string        `yaml:"socket_dir" validate:"required"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" validate:"gt=0"`
}

// LoggerSettings holds configuration settings for logging, including log level, type and file path
type LoggerSettings struct {
	Level      string `yaml:"level" validate:"required,oneof=debug info warning error"`
	Type       string `yaml:"type" validate:"required,oneof=console file"`
	FilePath   string `yaml:"file_path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

// Validate checks that all fields in LoggerSettings are valid
func (s *LoggerSettings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return errors.Wrap(err, "validation failed for LoggerSettings")
	}

	if s.Type == LogTypeFile {
		if s.FilePath == "" {
			return errors.New("file path is required for file logger")
		}
		if s.MaxSize < 1 || s.MaxSize > 100 {
			return errors.New("max size must be between 1 and 100 MB")
		}
		if s.MaxBackups < 1 || s.MaxBackups > 10 {
			return errors.New("max backups must be between 1 and 10")
		}
		if s.MaxAge < 1 || s.MaxAge > 365 {
			return errors.New("max age must be between 1 and 365 days")
		}
	}
	return nil
}

// Validate checks the whole settings tree.
func (s *Settings) Validate() error {
	if err := validator.New().Struct(s.Provider); err != nil {
		return errors.Wrap(err, "validation failed for ProviderSettings")
	}
	return s.Logger.Validate()
}

// SessionConfig projects the crypto preferences onto a session config.
// It fails with domain.ErrNoIdentity when no identity is configured.
func (s *Settings) SessionConfig() (domain.SessionConfig, error) {
	return domain.NewSessionConfig(s.Crypto.UserIDs, s.Crypto.Provider)
}
