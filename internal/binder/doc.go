// Package binder manages the connection lifecycle to an external crypto
// provider.
//
// Bind returns immediately with a Connecting Session and performs the
// handshake on a background goroutine; the session settles on Bound or Failed
// and closes its Ready channel. Unbind releases the binding on every teardown
// path and always leaves the session Unbound.
package binder
