// Package aggregates implements the progress engine's write boundaries.
//
// Each aggregate composes table repos from internal/data/repos and owns the
// transaction for its invariant-critical writes. Reads used only for
// presentation stay on the repos.
package aggregates
