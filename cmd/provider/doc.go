// Package main runs the reference keybridge crypto provider.
//
// The provider keeps a passphrase-locked X25519 keyring and serves the
// provider API over a Unix socket named after its id, or over TCP with
// --listen.
//
// HTTP API
//
//	POST /v1/bind
//	    Open a session for an identity. Replies with the session token,
//	    the provider id and the API version.
//
//	POST /v1/ops
//	    Run encrypt, decrypt or connectivity_test. The reply is a
//	    completion: success, needs_interaction, user_cancelled or error.
//
//	POST /v1/interactions/{id}
//	    Answer a passphrase prompt, or cancel it. The reply is the
//	    completion of the interrupted operation.
//
//	DELETE /v1/bind/{session}
//	    Release the session and forget its unlocked keys.
//
// Behaviour
//
//   - Sessions and unlocked keys live in memory and are lost on exit.
//   - The keyring file only ever holds locked private keys.
//   - A wrong passphrase is re-prompted; the third one fails the operation.
package main
