package sweep

import (
	"github.com/iov-one/sweep/coin"
	"github.com/tendermint/tendermint/libs/common"
)

// CheckResult captures any non-error result of a Check call,
// to make sure people use error for error cases.
type CheckResult struct {
	// Data is a machine-parseable return value, like id of created entity
	Data []byte
	// Log is human-readable informational string
	Log string
	// RequiredFee can set a custom fee that must be paid for this
	// transaction to be allowed to run. This may be enforced by a
	// decorator of the host application.
	RequiredFee coin.Coin
	// GasAllocated is the maximum units of work we allow this tx to perform
	GasAllocated int64
	// GasPayment is the total fees for this tx (or other source of payment)
	GasPayment int64
}

// DeliverResult captures any non-error result of a Deliver call,
// to make sure people use error for error cases.
type DeliverResult struct {
	// Data is a machine-parseable return value, like id of created entity
	Data []byte
	// Log is human-readable informational string
	Log string
	// RequiredFee can set a custom fee that must be paid for this
	// transaction to be allowed to run.
	RequiredFee coin.Coin
	// Tags, if present, will be used by the host chain to index and
	// search the transaction history
	Tags []common.KVPair
	// GasUsed is the actual units of work performed by this tx. The
	// host fee system may use it to charge less than the allocation
	// reported by Check.
	GasUsed int64
}

// TickResult represents the result of a single tick run.
type TickResult struct {
	// Tags contains a list of tags that were produced during a single
	// tick execution. They should be included in the block that this
	// tick result was produced. Empty tag list is a valid result.
	Tags []common.KVPair
}
