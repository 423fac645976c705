// Package crypto holds the primitives used by the reference provider.
//
// Contents
//
//   - X25519 key generation and Diffie-Hellman (GenerateX25519, PublicKey, DH)
//   - Authenticated sealing to a recipient key (Seal, Open, ParseHeader)
//   - Passphrase locking of key material with scrypt (Lock, Unlock)
//   - Stable 64-bit key ids (KeyID) and best-effort wiping (Wipe)
//
// keybridge itself never calls into this package: it delegates every
// operation to a provider process. Only internal/providerd uses it.
package crypto
