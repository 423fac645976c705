package providerd

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"keybridge/internal/crypto"
	"keybridge/internal/logger"
	"keybridge/internal/store"
)

// maxPassphraseAttempts bounds retries of one interaction.
const maxPassphraseAttempts = 3

// Server is a reference crypto provider. It keeps a passphrase cache per
// bound session: the first private-key operation asks for the passphrase
// through an interaction, later ones reuse the unlocked key.
type Server struct {
	id      string
	keyring *Keyring
	log     logger.Logger
	engine  *gin.Engine

	mu           sync.Mutex
	sessions     map[string]*boundSession
	interactions map[string]*pendingInteraction
}

type boundSession struct {
	identity string
	unlocked map[int64]*crypto.X25519Private
}

type pendingInteraction struct {
	session  string
	op       operation
	key      store.KeyRecord
	attempts int
}

// NewServer returns a provider identifying itself as id.
func NewServer(id string, keyring *Keyring, log logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		id:           id,
		keyring:      keyring,
		log:          log.With("provider", id),
		engine:       gin.New(),
		sessions:     make(map[string]*boundSession),
		interactions: make(map[string]*pendingInteraction),
	}
	s.engine.Use(gin.Recovery(), s.accessLog())
	SetupRoutes(s.engine, NewHandler(s))
	return s
}

// Handler returns the HTTP handler serving the provider API.
func (s *Server) Handler() http.Handler { return s.engine }

// Serve serves on ln until ctx ends, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) bind(identity string) string {
	token := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = &boundSession{identity: identity, unlocked: make(map[int64]*crypto.X25519Private)}
	s.log.Info("session bound", "session", token, "identity", identity)
	return token
}

// release drops a session, its cached keys and its pending interactions.
func (s *Server) release(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return
	}
	for id, priv := range sess.unlocked {
		crypto.Wipe(priv[:])
		delete(sess.unlocked, id)
	}
	delete(s.sessions, token)
	for id, in := range s.interactions {
		if in.session == token {
			delete(s.interactions, id)
		}
	}
	s.log.Info("session released", "session", token)
}

func (s *Server) hasSession(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[token]
	return ok
}

// Sessions returns the number of bound sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"bytes", c.Writer.Size(),
			"duration", time.Since(start),
		)
	}
}
