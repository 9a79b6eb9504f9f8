package bank

import (
	"github.com/iov-one/sweep"
	"github.com/iov-one/sweep/coin"
	"github.com/iov-one/sweep/errors"
)

// Controller is the functional api to the account state. It does not
// dispatch any messages itself, other extensions embed it to move
// funds around.
type Controller interface {
	Balance(db sweep.ReadOnlyKVStore, addr sweep.Address) (coin.Coin, error)
	CanHold(db sweep.ReadOnlyKVStore, addr sweep.Address, amount coin.Coin) error
	Hold(db sweep.KVStore, addr sweep.Address, amount coin.Coin) error
	Release(db sweep.KVStore, addr sweep.Address, amount coin.Coin) error
	BurnHeld(db sweep.KVStore, addr sweep.Address, amount coin.Coin) error
	Issue(db sweep.KVStore, addr sweep.Address, amount coin.Coin) error
}

// controller is the simple implementation over the wallet state.
type controller struct{}

var _ Controller = controller{}

// NewController returns a controller over the wallet state.
func NewController() Controller {
	return controller{}
}

// Balance returns the liquid balance of the account. A missing account
// has a zero balance.
func (controller) Balance(db sweep.ReadOnlyKVStore, addr sweep.Address) (coin.Coin, error) {
	w, err := loadWallet(db, addr)
	if err != nil || w == nil {
		return coin.Coin{}, err
	}
	return w.Balance, nil
}

// CanHold checks if the liquid balance covers the given amount. It is
// the read-only counterpart of Hold.
func (controller) CanHold(db sweep.ReadOnlyKVStore, addr sweep.Address, amount coin.Coin) error {
	w, err := loadWallet(db, addr)
	if err != nil {
		return err
	}
	if w == nil || !w.Balance.IsGTE(amount) {
		return errors.Wrapf(ErrInsufficientFunds, "cannot hold %s", amount)
	}
	return nil
}

// Hold moves the amount from the liquid balance into the held one.
func (controller) Hold(db sweep.KVStore, addr sweep.Address, amount coin.Coin) error {
	w, err := loadWallet(db, addr)
	if err != nil {
		return err
	}
	if w == nil || !w.Balance.IsGTE(amount) {
		return errors.Wrapf(ErrInsufficientFunds, "cannot hold %s", amount)
	}
	if w.Balance, err = w.Balance.Subtract(amount); err != nil {
		return err
	}
	if w.Held, err = w.Held.Add(amount); err != nil {
		return err
	}
	return saveWallet(db, addr, w)
}

// Release moves the amount from the held balance back into the liquid
// one.
func (controller) Release(db sweep.KVStore, addr sweep.Address, amount coin.Coin) error {
	w, err := loadWallet(db, addr)
	if err != nil {
		return err
	}
	if w == nil || !w.Held.IsGTE(amount) {
		return errors.Wrapf(ErrInsufficientFunds, "cannot release %s", amount)
	}
	if w.Held, err = w.Held.Subtract(amount); err != nil {
		return err
	}
	if w.Balance, err = w.Balance.Add(amount); err != nil {
		return err
	}
	return saveWallet(db, addr, w)
}

// BurnHeld destroys the given amount of held funds. This is the slash
// primitive, the funds leave the total supply.
func (controller) BurnHeld(db sweep.KVStore, addr sweep.Address, amount coin.Coin) error {
	w, err := loadWallet(db, addr)
	if err != nil {
		return err
	}
	if w == nil || !w.Held.IsGTE(amount) {
		return errors.Wrapf(ErrInsufficientFunds, "cannot burn %s", amount)
	}
	if w.Held, err = w.Held.Subtract(amount); err != nil {
		return err
	}
	return saveWallet(db, addr, w)
}

// Issue adds the given amount to the liquid balance, creating the
// account when missing. Used by the genesis loader and tests.
func (controller) Issue(db sweep.KVStore, addr sweep.Address, amount coin.Coin) error {
	w, err := loadWallet(db, addr)
	if err != nil {
		return err
	}
	if w == nil {
		w = &Wallet{}
	}
	if w.Balance, err = w.Balance.Add(amount); err != nil {
		return err
	}
	return saveWallet(db, addr, w)
}
