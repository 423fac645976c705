package providerd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"keybridge/internal/crypto"
	"keybridge/internal/domain"
	"keybridge/internal/store"
)

var (
	errUnknownInteraction = errors.New("unknown interaction")
	errForeignInteraction = errors.New("interaction belongs to another session")
)

type operation struct {
	correlationID string
	kind          domain.RequestKind
	identity      string
	input         []byte
}

// run executes op for the session token.
func (s *Server) run(token string, op operation) *domain.Completion {
	switch op.kind {
	case domain.KindConnectivityTest:
		keys := s.keyring.Keys(op.identity)
		ids := make([]int64, 0, len(keys))
		for _, rec := range keys {
			ids = append(ids, rec.KeyID)
		}
		return &domain.Completion{Outcome: domain.OutcomeSuccess, Kind: op.kind, KeyIDs: ids}

	case domain.KindEncrypt:
		rec, ok := s.keyring.Primary(op.identity)
		if !ok {
			return failed(op.kind, "no key for identity "+op.identity)
		}
		priv, ok := s.unlockedKey(token, rec.KeyID)
		if !ok {
			return s.askPassphrase(token, op, rec)
		}
		ct, err := crypto.Seal(priv, rec.Public, op.input)
		if err != nil {
			return failed(op.kind, err.Error())
		}
		return succeeded(op.kind, ct)

	case domain.KindDecrypt:
		h, err := crypto.ParseHeader(op.input)
		if err != nil {
			return failed(op.kind, err.Error())
		}
		rec, ok := s.keyring.ByID(h.RecipientKeyID)
		if !ok {
			return failed(op.kind, fmt.Sprintf("no secret key %016x", h.RecipientKeyID))
		}
		sender, ok := s.keyring.ByID(h.SenderKeyID)
		if !ok {
			return failed(op.kind, fmt.Sprintf("unknown sender key %016x", h.SenderKeyID))
		}
		priv, ok := s.unlockedKey(token, rec.KeyID)
		if !ok {
			return s.askPassphrase(token, op, rec)
		}
		pt, err := crypto.Open(priv, sender.Public, op.input)
		if err != nil {
			return failed(op.kind, err.Error())
		}
		return succeeded(op.kind, pt)
	}
	return failed(op.kind, "unsupported operation")
}

// interact answers a pending interaction on behalf of session token.
func (s *Server) interact(token, id string, passphrase []byte, cancel bool) (*domain.Completion, error) {
	s.mu.Lock()
	in, ok := s.interactions[id]
	if !ok {
		s.mu.Unlock()
		return nil, errUnknownInteraction
	}
	if in.session != token {
		s.mu.Unlock()
		return nil, errForeignInteraction
	}
	if cancel {
		delete(s.interactions, id)
		s.mu.Unlock()
		s.log.Info("interaction cancelled", "interaction", id)
		return &domain.Completion{Outcome: domain.OutcomeUserCancelled, Kind: in.op.kind}, nil
	}
	s.mu.Unlock()

	priv, err := s.keyring.Unlock(in.key, passphrase)
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !errors.Is(err, crypto.ErrWrongPassphrase) {
			delete(s.interactions, id)
			return failed(in.op.kind, err.Error()), nil
		}
		in.attempts++
		if in.attempts >= maxPassphraseAttempts {
			delete(s.interactions, id)
			s.log.Warn("too many wrong passphrases", "interaction", id)
			return failed(in.op.kind, "too many wrong passphrases"), nil
		}
		return &domain.Completion{
			Outcome:     domain.OutcomeNeedsInteraction,
			Kind:        in.op.kind,
			Interaction: &domain.Interaction{ID: id, Prompt: "Wrong passphrase. " + prompt(in.key)},
		}, nil
	}

	s.mu.Lock()
	delete(s.interactions, id)
	if sess, ok := s.sessions[token]; ok {
		sess.unlocked[in.key.KeyID] = &priv
	} else {
		crypto.Wipe(priv[:])
	}
	s.mu.Unlock()

	return s.run(token, in.op), nil
}

func (s *Server) unlockedKey(token string, keyID int64) (crypto.X25519Private, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return crypto.X25519Private{}, false
	}
	priv, ok := sess.unlocked[keyID]
	if !ok {
		return crypto.X25519Private{}, false
	}
	return *priv, true
}

func (s *Server) askPassphrase(token string, op operation, rec store.KeyRecord) *domain.Completion {
	id := uuid.NewString()
	s.mu.Lock()
	s.interactions[id] = &pendingInteraction{session: token, op: op, key: rec}
	s.mu.Unlock()
	s.log.Debug("passphrase required", "interaction", id, "kind", op.kind, "correlation_id", op.correlationID)
	return &domain.Completion{
		Outcome:     domain.OutcomeNeedsInteraction,
		Kind:        op.kind,
		Interaction: &domain.Interaction{ID: id, Prompt: prompt(rec)},
	}
}

func prompt(rec store.KeyRecord) string {
	return fmt.Sprintf("Passphrase for %s (key %016x)", rec.Identity, rec.KeyID)
}

func succeeded(kind domain.RequestKind, payload []byte) *domain.Completion {
	if payload == nil {
		payload = []byte{}
	}
	return &domain.Completion{Outcome: domain.OutcomeSuccess, Kind: kind, Payload: payload}
}

func failed(kind domain.RequestKind, msg string) *domain.Completion {
	return &domain.Completion{
		Outcome: domain.OutcomeError,
		Kind:    kind,
		Err:     domain.NewError(domain.ProviderError, msg),
	}
}
