/*
Package bank keeps track of native token balances.

Every account is identified by an address and holds a liquid balance
next to a held one. Held funds back deposits taken by other extensions
and can be released back or burned.
*/
package bank
