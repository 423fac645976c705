// Package correlate maps asynchronous provider completions back onto the
// requests that caused them.
//
// Dispatch registers an OutstandingRequest in a Table; every completion for it
// passes through Correlator.Resolve, which is the only code that changes a
// request's status. Terminal requests leave the table and close Done.
package correlate
