/*
Package table implements the keyed in-memory table engine shared by every
stateful component of the engine.

# Contract
  - rows are stored by value; readers always get copies, never references
  - one unique primary key per row, optional named secondary indices
  - secondary indices are maintained in the same critical section as the
    owning row mutation, so a reader never observes a half-indexed row
  - Scan is read-committed: it never returns a torn row, but may miss rows
    inserted after the scan started

# Retention
Every table declares a Retention window. Volatile tables exist only in
memory; persistent tables forward each upsert/delete, in per-row causal
order, to a store forwarder. The background Sweeper removes rows past the
window one row per lock acquisition, so ingestion is never stalled by a
stop-the-world pass.
*/
package table
