package providerd

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"keybridge/internal/crypto"
	"keybridge/internal/store"
)

// KeyStore persists keyring records.
type KeyStore interface {
	LoadKeys() ([]store.KeyRecord, error)
	SaveKeys(keys []store.KeyRecord) error
}

// memoryKeyStore backs keyrings that are never written to disk.
type memoryKeyStore struct{}

func (memoryKeyStore) LoadKeys() ([]store.KeyRecord, error) { return nil, nil }
func (memoryKeyStore) SaveKeys([]store.KeyRecord) error     { return nil }

// Keyring holds the provider's X25519 keys, private halves locked under
// their owner's passphrase.
type Keyring struct {
	store  KeyStore
	scrypt crypto.ScryptParams

	mu   sync.RWMutex
	keys []store.KeyRecord
}

// OpenKeyring loads the keyring from ks. A nil ks keeps keys in memory only.
func OpenKeyring(ks KeyStore, params crypto.ScryptParams) (*Keyring, error) {
	if ks == nil {
		ks = memoryKeyStore{}
	}
	keys, err := ks.LoadKeys()
	if err != nil {
		return nil, errors.Wrap(err, "load keyring")
	}
	return &Keyring{store: ks, scrypt: params, keys: keys}, nil
}

// Generate creates a key for identity locked under passphrase and persists
// the keyring.
func (k *Keyring) Generate(identity string, passphrase []byte) (store.KeyRecord, error) {
	if identity == "" {
		return store.KeyRecord{}, errors.New("identity required")
	}
	if len(passphrase) == 0 {
		return store.KeyRecord{}, errors.New("passphrase required")
	}
	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		return store.KeyRecord{}, errors.Wrap(err, "generate key")
	}
	defer crypto.Wipe(priv[:])

	locked, err := crypto.Lock(passphrase, priv[:], k.scrypt)
	if err != nil {
		return store.KeyRecord{}, errors.Wrap(err, "lock key")
	}
	rec := store.KeyRecord{
		Identity:   identity,
		KeyID:      crypto.KeyID(pub),
		Public:     pub,
		Locked:     locked,
		CreatedUTC: time.Now().Unix(),
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	keys := append(append([]store.KeyRecord{}, k.keys...), rec)
	if err := k.store.SaveKeys(keys); err != nil {
		return store.KeyRecord{}, errors.Wrap(err, "save keyring")
	}
	k.keys = keys
	return rec, nil
}

// Keys returns the keys of identity in creation order.
func (k *Keyring) Keys(identity string) []store.KeyRecord {
	k.mu.RLock()
	defer k.mu.RUnlock()
	var out []store.KeyRecord
	for _, rec := range k.keys {
		if rec.Identity == identity {
			out = append(out, rec)
		}
	}
	return out
}

// Primary returns the newest key of identity.
func (k *Keyring) Primary(identity string) (store.KeyRecord, bool) {
	keys := k.Keys(identity)
	if len(keys) == 0 {
		return store.KeyRecord{}, false
	}
	return keys[len(keys)-1], true
}

// ByID looks a key up by its key id.
func (k *Keyring) ByID(id int64) (store.KeyRecord, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	for _, rec := range k.keys {
		if rec.KeyID == id {
			return rec, true
		}
	}
	return store.KeyRecord{}, false
}

// Unlock returns the private key of rec. It fails with
// crypto.ErrWrongPassphrase on a bad passphrase.
func (k *Keyring) Unlock(rec store.KeyRecord, passphrase []byte) (crypto.X25519Private, error) {
	var priv crypto.X25519Private
	raw, err := crypto.Unlock(passphrase, rec.Locked)
	if err != nil {
		return priv, err
	}
	defer crypto.Wipe(raw)
	if len(raw) != len(priv) {
		return priv, errors.New("stored key has wrong length")
	}
	copy(priv[:], raw)
	return priv, nil
}
