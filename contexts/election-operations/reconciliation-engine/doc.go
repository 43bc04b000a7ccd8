// Package reconciliationengine implements the Reconciliation Engine inside
// the election-operations context.
//
// The module owns offline ballot intake (idempotent field-admin entry), the
// unmerged ballot queue, and the merge pass that promotes queued ballots into
// the canonical vote ledger under the online-wins conflict rule. It keeps
// business rules in application/domain layers and isolates infrastructure
// concerns behind ports and adapters.
package reconciliationengine
