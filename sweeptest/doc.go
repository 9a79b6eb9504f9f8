/*
Package sweeptest provides mocks and helpers for testing extensions.

Structures implemented here are mocks of interfaces used across the
application. They provide a way to control the interface behaviour and
to introspect usage.
*/
package sweeptest
