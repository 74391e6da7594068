// Package aggregates defines the write boundaries of the progress engine.
//
// Contracts here carry no persistence or transport detail. Each aggregate owns
// the invariants of the rows it writes and reports failures as *Error.
package aggregates
