// Package delegation ties the session components together into the context
// that owns a provider session.
//
// A Context binds through the accessor, dispatches through the dispatcher and
// funnels every provider completion, including results of follow-up
// interactions reported via OnExternalResult, through a single delivery
// goroutine into the correlator. Close tears the session down and fails any
// request still pending.
package delegation
