// Package provider implements the client side of the provider binding.
//
// A provider is an external process serving JSON over HTTP, normally on a
// Unix socket named after its provider id. Connector performs the bind
// handshake and returns a Conn that sends operations and interaction answers
// and releases the provider session on Close.
//
//	POST   /v1/bind                bind, returns a session token
//	POST   /v1/ops                 run encrypt, decrypt or connectivity_test
//	POST   /v1/interactions/{id}   answer or cancel a pending interaction
//	DELETE /v1/bind/{session}      release the session
//
// Non-2xx statuses are returned as domain errors carrying the method, path
// and status text.
package provider
