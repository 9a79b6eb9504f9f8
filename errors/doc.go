/*
Package errors implements custom error interfaces for sweep.

The idea is to reuse as many errors from this package as possible and
define custom package errors only when an error code must be exposed to
a client. Extension packages register their own error codes with the
Register function; the code space below 1000 is reserved for this
package.

Errors should be wrapped on each layer boundary so that the final error
message carries the full context of the failure, while Is comparisons
still match the root error.
*/
package errors
