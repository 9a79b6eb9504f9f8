package statemig

import "github.com/iov-one/sweep/errors"

var (
	// ErrMaxSignedLimits is returned when requested limits are over the
	// configured maximum for signed migrations.
	ErrMaxSignedLimits = errors.Register(1200, "max signed limits not respected")

	// ErrKeyTooLong is returned when a key is longer than the configured
	// maximum. The migration halted at the current progress and can only
	// be resumed with a larger maximum key length. Retrying with the
	// same value will not work.
	ErrKeyTooLong = errors.Register(1201, "key too long")

	// ErrNotEnoughFunds is returned when the submitter cannot cover the
	// required deposit.
	ErrNotEnoughFunds = errors.Register(1202, "not enough funds")

	// ErrBadWitness is returned when the witness data does not match the
	// persisted migration state.
	ErrBadWitness = errors.Register(1203, "bad witness")

	// ErrNotAllowed is returned when a signed migration is submitted
	// while no maximum limit is configured.
	ErrNotAllowed = errors.Register(1204, "signed migration not allowed")

	// ErrBadChildRoot is returned when a key taken for a child root does
	// not decode as one.
	ErrBadChildRoot = errors.Register(1205, "bad child root")
)
