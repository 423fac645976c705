// Package accessor bridges the asynchronous binding protocol to synchronous
// callers. GetSession blocks on the session's ready signal instead of polling.
package accessor
