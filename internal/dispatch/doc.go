// Package dispatch issues encrypt, decrypt and connectivity test operations
// against a bound provider session.
package dispatch
