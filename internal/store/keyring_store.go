package store

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
)

// KeyRecord is one provider key as stored on disk. Locked holds the private
// key sealed under the owner's passphrase.
type KeyRecord struct {
	Identity   string   `json:"identity"`
	KeyID      int64    `json:"key_id"`
	Public     [32]byte `json:"public"`
	Locked     []byte   `json:"locked"`
	CreatedUTC int64    `json:"created_utc"`
}

type keyringFile struct {
	Keys []KeyRecord `json:"keys"`
}

// KeyringFileStore persists a provider keyring to a single JSON file.
type KeyringFileStore struct {
	path string
	mu   sync.Mutex
}

// NewKeyringFileStore returns a KeyringFileStore writing to path.
func NewKeyringFileStore(path string) *KeyringFileStore {
	return &KeyringFileStore{path: path}
}

// LoadKeys returns the stored keys in creation order. A missing file yields
// an empty keyring.
func (s *KeyringFileStore) LoadKeys() ([]KeyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := ReadFile(s.path)
	if err != nil || b == nil {
		return nil, err
	}
	var f keyringFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, errors.Wrapf(err, "parse keyring %s", s.path)
	}
	return f.Keys, nil
}

// SaveKeys replaces the stored keys.
func (s *KeyringFileStore) SaveKeys(keys []KeyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := json.MarshalIndent(keyringFile{Keys: keys}, "", "  ")
	if err != nil {
		return err
	}
	return WriteFile(s.path, b)
}
