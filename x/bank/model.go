package bank

import (
	"github.com/tendermint/go-amino"

	"github.com/iov-one/sweep"
	"github.com/iov-one/sweep/coin"
	"github.com/iov-one/sweep/errors"
)

var cdc = amino.NewCodec()

// walletPrefix is the top namespace region that holds all accounts.
var walletPrefix = []byte("wallet:")

// Wallet is the state of a single account.
type Wallet struct {
	// Balance is the liquid amount, free to spend or put on hold.
	Balance coin.Coin
	// Held is the amount locked as a deposit. It can be released back
	// into the balance or burned, but never spent directly.
	Held coin.Coin
}

// Validate ensures the wallet is sane.
func (w *Wallet) Validate() error {
	if w == nil {
		return errors.Wrap(errors.ErrEmpty, "wallet")
	}
	if !w.Balance.IsZero() {
		if err := w.Balance.Validate(); err != nil {
			return errors.Wrap(err, "balance")
		}
		if !w.Balance.IsNonNegative() {
			return errors.Wrap(errors.ErrAmount, "negative balance")
		}
	}
	if !w.Held.IsZero() {
		if err := w.Held.Validate(); err != nil {
			return errors.Wrap(err, "held")
		}
		if !w.Held.IsNonNegative() {
			return errors.Wrap(errors.ErrAmount, "negative held amount")
		}
	}
	return nil
}

func walletKey(addr sweep.Address) []byte {
	return append(walletPrefix, addr...)
}

func loadWallet(db sweep.ReadOnlyKVStore, addr sweep.Address) (*Wallet, error) {
	raw, err := db.Get(walletKey(addr))
	if err != nil {
		return nil, errors.Wrap(err, "cannot load wallet")
	}
	if raw == nil {
		return nil, nil
	}
	var w Wallet
	if err := cdc.UnmarshalBinaryBare(raw, &w); err != nil {
		return nil, errors.Wrap(errors.ErrState, "cannot deserialize wallet")
	}
	return &w, nil
}

func saveWallet(db sweep.KVStore, addr sweep.Address, w *Wallet) error {
	if err := w.Validate(); err != nil {
		return err
	}
	raw, err := cdc.MarshalBinaryBare(w)
	if err != nil {
		return errors.Wrap(err, "cannot serialize wallet")
	}
	return db.Set(walletKey(addr), raw)
}
