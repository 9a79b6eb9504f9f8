package bank

import "github.com/iov-one/sweep/errors"

var (
	// ErrInsufficientFunds is returned when the liquid balance or the
	// held amount cannot cover the requested operation.
	ErrInsufficientFunds = errors.Register(1100, "insufficient funds")
)
