/*
Package sweep defines the common interfaces that tie the framework
together: stores, handlers, transactions and the execution context.

Sweep drives a resumable, budget-bounded rewrite of every key in a
namespaced key-value store. The heavy lifting happens in x/statemig,
which walks the store one key at a time and writes each value back in
the store's native record layout. This root package only declares the
contracts that the store backends, the message handlers and the
per-block ticker agree on.

We pass context through context.Context between the host application,
middleware and handlers. For every XYZ of type T supported in Context
there are two functions:

  WithXYZ(Context, T) Context
  GetXYZ(Context) (val T, ok bool)
*/
package sweep
