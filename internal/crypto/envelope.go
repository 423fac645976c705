package crypto

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const lockFormatVersion = 1

// ErrWrongPassphrase is returned when the passphrase is incorrect or the
// locked blob has been modified.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted key")

// ScryptParams tune passphrase key derivation.
type ScryptParams struct {
	N, R, P int
}

// DefaultScrypt is used for keys at rest.
var DefaultScrypt = ScryptParams{N: 1 << 15, R: 8, P: 1}

// lockedBlob is the JSON structure holding the ciphertext and KDF parameters.
type lockedBlob struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Cipher []byte `json:"cipher"`
}

// Lock derives a key from passphrase and seals raw into a JSON blob.
func Lock(passphrase, raw []byte, params ScryptParams) ([]byte, error) {
	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, err
	}
	key, err := scrypt.Key(passphrase, salt[:], params.N, params.R, params.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	defer Wipe(key)
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte // zero nonce; salt-bound key guarantees uniqueness
	ct := aead.Seal(nil, nonce[:], raw, salt[:])

	return json.Marshal(lockedBlob{
		V:      lockFormatVersion,
		Salt:   salt[:],
		N:      params.N,
		R:      params.R,
		P:      params.P,
		Cipher: ct,
	})
}

// Unlock opens a blob produced by Lock.
func Unlock(passphrase, b []byte) ([]byte, error) {
	var bl lockedBlob
	if err := json.Unmarshal(b, &bl); err != nil {
		return nil, err
	}
	if bl.V > lockFormatVersion {
		return nil, fmt.Errorf("unsupported key format version %d", bl.V)
	}
	key, err := scrypt.Key(passphrase, bl.Salt, bl.N, bl.R, bl.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	defer Wipe(key)
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte
	pt, err := aead.Open(nil, nonce[:], bl.Cipher, bl.Salt)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}
