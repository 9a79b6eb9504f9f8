package app

import (
	"github.com/iov-one/sweep"
	"github.com/iov-one/sweep/errors"
)

// Recovery is a decorator to recover from panics in transactions,
// so we can log them as errors
type Recovery struct{}

var _ sweep.Decorator = Recovery{}

// NewRecovery creates a Recovery decorator
func NewRecovery() Recovery {
	return Recovery{}
}

// Check turns panics into normal errors
func (r Recovery) Check(ctx sweep.Context, store sweep.KVStore, tx sweep.Tx, next sweep.Checker) (res *sweep.CheckResult, err error) {
	defer errors.Recover(&err)
	return next.Check(ctx, store, tx)
}

// Deliver turns panics into normal errors
func (r Recovery) Deliver(ctx sweep.Context, store sweep.KVStore, tx sweep.Tx, next sweep.Deliverer) (res *sweep.DeliverResult, err error) {
	defer errors.Recover(&err)
	return next.Deliver(ctx, store, tx)
}
