package crypto

import (
	"crypto/sha256"
	"encoding/binary"
	"runtime"
)

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

// Slice returns the key as a []byte.
func (p X25519Public) Slice() []byte { return p[:] }

// X25519Private is a Curve25519 private key.
type X25519Private [32]byte

// Slice returns the key as a []byte.
func (k X25519Private) Slice() []byte { return k[:] }

// KeyID derives the 64-bit id a provider reports for pub: the first eight
// bytes of SHA-256(pub), big endian, with the sign bit cleared.
func KeyID(pub X25519Public) int64 {
	sum := sha256.Sum256(pub[:])
	return int64(binary.BigEndian.Uint64(sum[:8]) &^ (1 << 63))
}

// Wipe zeroes the provided buffer. This is best-effort and aims to
// reduce the chance of the compiler eliding the write.
//
//go:noinline
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(&b)
}
