package bank

import (
	"github.com/iov-one/sweep"
	"github.com/iov-one/sweep/coin"
)

const optKey = "bank"

// GenesisAccount is used to parse the json from genesis file
// use sweep.Address, so address in hex, not base64
type GenesisAccount struct {
	Address sweep.Address `json:"address"`
	Balance coin.Coin     `json:"balance"`
}

// Initializer fulfils the Initializer interface to load data from
// the genesis file
type Initializer struct{}

var _ sweep.Initializer = Initializer{}

// FromGenesis will parse initial account info from genesis
// and save it to the database
func (Initializer) FromGenesis(opts sweep.Options, kv sweep.KVStore) error {
	accts := []GenesisAccount{}
	if err := opts.ReadOptions(optKey, &accts); err != nil {
		return err
	}
	ctrl := NewController()
	for _, acct := range accts {
		if err := acct.Address.Validate(); err != nil {
			return err
		}
		if err := ctrl.Issue(kv, acct.Address, acct.Balance); err != nil {
			return err
		}
	}
	return nil
}
