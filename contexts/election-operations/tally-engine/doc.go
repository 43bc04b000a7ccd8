// Package tallyengine implements the Tally Engine inside the
// election-operations context.
//
// The module owns read-only winner computation over the canonical vote
// ledger: per-zone seat-bounded ranking with a deterministic tie-break,
// NOTA counted like any candidate, reserved test voters excluded, and
// turnout statistics. Zone presentation follows a static per-election-type
// display order that never influences winner selection.
package tallyengine
