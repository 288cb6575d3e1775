// Package ledger derives customer balances, debt aging and account statements
// from raw sales orders and payments.
//
// Nothing in this package is persisted or cached. Every read model is
// recomputed from the tenant's current records, so a balance is always a view
// over orders and payments and never a second source of truth. All functions
// are pure and safe to call concurrently on shared, read-only inputs.
package ledger
