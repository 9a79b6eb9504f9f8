/*
Package statemig implements a resumable, budget-bounded rewrite of the
whole key-value state into the current record layout.

The state is rewritten one key at a time, in ascending key order, the
top namespace first and every child namespace fully interleaved right
after its root key. A durable cursor pair (MigrationTask) records how
far the walk got, so the work can be spread over any number of blocks
or transactions and survives a crash between them.

Two driving paths share the same cursor. The automatic path runs as a
per-block ticker while AutoLimits is armed. The signed path lets any
account push the migration forward within configured limits, backed by
a deposit that is burned when the caller misdeclares the amount of data
touched.
*/
package statemig
