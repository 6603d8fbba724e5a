// Package tastytax turns a chronological brokerage transaction ledger into
// the realized-gain figures a German income tax statement needs.
//
// The core is a FIFO tax-lot engine applied independently per instrument,
// with the account's foreign-currency cash balance tracked as one more FIFO
// asset so that currency gains are realized on every cash movement. Each
// realized gain is split into a taxable and an exempt portion under the
// one-year private-sale holding period, tagged with a jurisdiction tax
// category, and aggregated per year with the category's loss carry-forward
// rules.
//
// Processing is a single sequential pass: every transaction mutates
// order-dependent state, so there is no parallelism and the first
// validation failure aborts the run. Nothing is silently corrected; a
// figure that cannot be validated is an error, not an estimate.
package tastytax
