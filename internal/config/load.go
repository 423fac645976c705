package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"keybridge/internal/store"
)

const (
	// FileName is the preference file inside the home directory.
	FileName = "config.yaml"

	defaultHome             = "~/.keybridge"
	defaultHandshakeTimeout = 10 * time.Second
)

// ResolveHome expands dir, falling back to ~/.keybridge when dir is empty.
func ResolveHome(dir string) (string, error) {
	if dir == "" {
		dir = defaultHome
	}
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return "", errors.Wrapf(err, "resolve home %q", dir)
	}
	return filepath.Clean(expanded), nil
}

// Defaults returns the settings used for keys missing from the file.
func Defaults(home string) Settings {
	return Settings{
		Provider: ProviderSettings{
			SocketDir:        filepath.Join(home, "providers"),
			HandshakeTimeout: defaultHandshakeTimeout,
		},
		Logger: LoggerSettings{
			Level: LogLevelInfo,
			Type:  LogTypeConsole,
		},
	}
}

// Load reads <home>/config.yaml over Defaults(home). A missing file is not an
// error.
func Load(home string) (Settings, error) {
	s := Defaults(home)
	b, err := store.ReadFile(filepath.Join(home, FileName))
	if err != nil {
		return Settings{}, err
	}
	if b != nil {
		if err := yaml.Unmarshal(b, &s); err != nil {
			return Settings{}, errors.Wrap(err, "parse preferences")
		}
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Save validates s and writes it to <home>/config.yaml.
func Save(home string, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(home, 0o700); err != nil {
		return errors.Wrap(err, "create home")
	}
	b, err := yaml.Marshal(&s)
	if err != nil {
		return errors.Wrap(err, "encode preferences")
	}
	return store.WriteFile(filepath.Join(home, FileName), b)
}

// Keys lists the preference keys accepted by Set.
var Keys = []string{
	"crypto.enabled",
	"crypto.user_ids",
	"crypto.provider",
	"provider.socket_dir",
	"provider.handshake_timeout",
	"logger.level",
	"logger.type",
	"logger.file_path",
}

// Set assigns a single preference by its dotted key.
func (s *Settings) Set(key, value string) error {
	switch key {
	case "crypto.enabled":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return errors.Wrapf(err, "%s", key)
		}
		s.Crypto.Enabled = v
	case "crypto.user_ids":
		s.Crypto.UserIDs = value
	case "crypto.provider":
		s.Crypto.Provider = value
	case "provider.socket_dir":
		dir, err := homedir.Expand(value)
		if err != nil {
			return errors.Wrapf(err, "%s", key)
		}
		s.Provider.SocketDir = dir
	case "provider.handshake_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return errors.Wrapf(err, "%s", key)
		}
		s.Provider.HandshakeTimeout = d
	case "logger.level":
		s.Logger.Level = value
	case "logger.type":
		s.Logger.Type = value
	case "logger.file_path":
		s.Logger.FilePath = value
	default:
		return errors.Errorf("unknown preference %q", key)
	}
	return nil
}
