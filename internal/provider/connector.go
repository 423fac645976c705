package provider

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"keybridge/internal/domain"
	"keybridge/internal/logger"
)

// unixBase is the placeholder origin used for requests over a Unix socket.
const unixBase = "http://provider"

// Connector binds to providers reachable over HTTP. Provider ids that contain
// "://" are taken as base URLs; any other id names a Unix socket
// <socketDir>/<id>.sock.
type Connector struct {
	socketDir string
	log       logger.Logger
}

// NewConnector returns a Connector resolving socket providers under socketDir.
func NewConnector(socketDir string, log logger.Logger) *Connector {
	if log == nil {
		log = logger.Nop()
	}
	return &Connector{socketDir: socketDir, log: log}
}

var _ domain.Connector = (*Connector)(nil)

// SocketPath returns the socket a provider id resolves to.
func SocketPath(socketDir, providerID string) (string, error) {
	if providerID == "" || providerID == "." || providerID == ".." || strings.ContainsAny(providerID, `/\`) {
		return "", errors.Errorf("invalid provider id %q", providerID)
	}
	return filepath.Join(socketDir, providerID+".sock"), nil
}

// Connect performs the binding handshake with the provider named by cfg.
func (c *Connector) Connect(ctx context.Context, cfg domain.SessionConfig) (domain.Conn, error) {
	base, transport, err := c.endpoint(cfg.ProviderID())
	if err != nil {
		return nil, err
	}

	conn := &Conn{
		base:      base,
		transport: transport,
		http:      &http.Client{Transport: transport},
	}
	var resp BindResponse
	err = conn.call(ctx, http.MethodPost, "/v1/bind", BindRequest{
		ProviderID: cfg.ProviderID(),
		Identity:   cfg.Identity(),
		APIVersion: APIVersion,
	}, &resp)
	if err != nil {
		transport.CloseIdleConnections()
		return nil, domain.WrapError(domain.ConnectionFailed, err, "bind "+cfg.ProviderID())
	}
	if resp.APIVersion != APIVersion {
		transport.CloseIdleConnections()
		return nil, domain.NewError(domain.ConnectionFailed, "unsupported provider api version")
	}
	if !isURL(cfg.ProviderID()) && resp.ProviderID != cfg.ProviderID() {
		transport.CloseIdleConnections()
		return nil, domain.NewError(domain.ConnectionFailed, "socket answered as provider "+resp.ProviderID)
	}
	if resp.Session == "" {
		transport.CloseIdleConnections()
		return nil, domain.NewError(domain.ConnectionFailed, "provider returned no session")
	}

	conn.session = resp.Session
	c.log.Debug("provider handshake complete", "provider", cfg.ProviderID(), "session", resp.Session)
	return conn, nil
}

func (c *Connector) endpoint(providerID string) (string, *http.Transport, error) {
	if isURL(providerID) {
		u, err := url.Parse(providerID)
		if err != nil {
			return "", nil, domain.WrapError(domain.ConnectionFailed, err, "parse provider url")
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return "", nil, domain.NewError(domain.ConnectionFailed, "unsupported provider scheme "+u.Scheme)
		}
		return strings.TrimSuffix(u.String(), "/"), http.DefaultTransport.(*http.Transport).Clone(), nil
	}

	path, err := SocketPath(c.socketDir, providerID)
	if err != nil {
		return "", nil, domain.WrapError(domain.ConnectionFailed, err, "")
	}
	if _, err := os.Stat(path); err != nil {
		switch {
		case os.IsNotExist(err):
			return "", nil, domain.NewError(domain.ConnectionFailed, "provider "+providerID+" is not installed")
		case os.IsPermission(err):
			return "", nil, domain.WrapError(domain.ConnectionFailed, err, "permission denied for provider "+providerID)
		default:
			return "", nil, domain.WrapError(domain.ConnectionFailed, err, "")
		}
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", path)
		},
	}
	return unixBase, transport, nil
}

func isURL(providerID string) bool { return strings.Contains(providerID, "://") }
