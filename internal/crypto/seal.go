package crypto

import (
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	sealVersion = 1
	// HeaderSize is the length of the cleartext header of a sealed message:
	// version, recipient key id, sender key id, ephemeral public key.
	HeaderSize = 1 + 8 + 8 + 32
)

var (
	ErrMalformed  = errors.New("malformed sealed message")
	ErrNotForKey  = errors.New("sealed message is for another key")
	errOpenFailed = errors.New("sealed message failed authentication")
	sealInfo      = []byte("keybridge seal v1")
)

// Header is the cleartext prefix of a sealed message.
type Header struct {
	RecipientKeyID int64
	SenderKeyID    int64
	Ephemeral      X25519Public
}

// ParseHeader reads the header of a sealed message.
func ParseHeader(msg []byte) (Header, error) {
	var h Header
	if len(msg) < HeaderSize+chacha20poly1305.Overhead || msg[0] != sealVersion {
		return h, ErrMalformed
	}
	h.RecipientKeyID = int64(binary.BigEndian.Uint64(msg[1:9]))
	h.SenderKeyID = int64(binary.BigEndian.Uint64(msg[9:17]))
	copy(h.Ephemeral[:], msg[17:HeaderSize])
	return h, nil
}

// Seal encrypts plaintext to recipient and authenticates it as coming from
// sender. The key is derived with HKDF-SHA256 from DH(ephemeral, recipient)
// and DH(sender, recipient).
func Seal(sender X25519Private, recipient X25519Public, plaintext []byte) ([]byte, error) {
	senderPub, err := PublicKey(sender)
	if err != nil {
		return nil, err
	}
	ephPriv, ephPub, err := GenerateX25519()
	if err != nil {
		return nil, err
	}
	defer Wipe(ephPriv[:])

	es, err := DH(ephPriv, recipient)
	if err != nil {
		return nil, err
	}
	ss, err := DH(sender, recipient)
	if err != nil {
		return nil, err
	}

	header := make([]byte, HeaderSize, HeaderSize+len(plaintext)+chacha20poly1305.Overhead)
	header[0] = sealVersion
	binary.BigEndian.PutUint64(header[1:9], uint64(KeyID(recipient)))
	binary.BigEndian.PutUint64(header[9:17], uint64(KeyID(senderPub)))
	copy(header[17:], ephPub[:])

	aead, err := sealAEAD(es, ss, ephPub, recipient)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte // key is unique per ephemeral
	return aead.Seal(header, nonce[:], plaintext, header), nil
}

// Open decrypts a message sealed to recipient by the holder of sender.
func Open(recipient X25519Private, sender X25519Public, msg []byte) ([]byte, error) {
	h, err := ParseHeader(msg)
	if err != nil {
		return nil, err
	}
	recipientPub, err := PublicKey(recipient)
	if err != nil {
		return nil, err
	}
	if h.RecipientKeyID != KeyID(recipientPub) {
		return nil, ErrNotForKey
	}

	es, err := DH(recipient, h.Ephemeral)
	if err != nil {
		return nil, err
	}
	ss, err := DH(recipient, sender)
	if err != nil {
		return nil, err
	}
	aead, err := sealAEAD(es, ss, h.Ephemeral, recipientPub)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte
	pt, err := aead.Open(nil, nonce[:], msg[HeaderSize:], msg[:HeaderSize])
	if err != nil {
		return nil, errOpenFailed
	}
	return pt, nil
}

func sealAEAD(es, ss [32]byte, eph, recipient X25519Public) (cipher.AEAD, error) {
	ikm := make([]byte, 0, 64)
	ikm = append(ikm, es[:]...)
	ikm = append(ikm, ss[:]...)
	defer Wipe(ikm)

	salt := make([]byte, 0, 64)
	salt = append(salt, eph[:]...)
	salt = append(salt, recipient[:]...)

	key := make([]byte, chacha20poly1305.KeySize)
	defer Wipe(key)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, salt, sealInfo), key); err != nil {
		return nil, err
	}
	return chacha20poly1305.New(key)
}
