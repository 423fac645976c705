// Package providerd is a reference crypto provider speaking the keybridge
// provider protocol.
//
// It keeps X25519 keys per identity in a passphrase-locked keyring. Encrypt
// seals to the identity's newest key, authenticated by the same key; Decrypt
// picks the key named in the message header. Both need the private key, so
// the first one in a session answers NeedsInteraction and waits for the
// passphrase on /v1/interactions/{id}. Unlocked keys are cached until the
// session is released. Connectivity tests list the identity's key ids and
// never need interaction.
package providerd
