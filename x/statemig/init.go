package statemig

import (
	"github.com/iov-one/sweep"
	"github.com/iov-one/sweep/coin"
	"github.com/iov-one/sweep/errors"
)

const optKey = "statemig"

// genesisOptions is used to parse the json from the genesis file.
type genesisOptions struct {
	Admin          sweep.Address    `json:"admin"`
	MaxKeyLen      uint32           `json:"max_key_len"`
	DepositBase    coin.Coin        `json:"deposit_base"`
	DepositPerItem coin.Coin        `json:"deposit_per_item"`
	AutoLimits     *MigrationLimits `json:"auto_limits"`
	SignedMax      *MigrationLimits `json:"signed_max_limits"`
}

// Initializer fulfils the Initializer interface to load data from the
// genesis file.
type Initializer struct{}

var _ sweep.Initializer = Initializer{}

// FromGenesis will parse the initial migration configuration from
// genesis and save it to the database. Both the automatic limits and
// the signed maximum are optional, the migration stays dormant without
// them.
func (Initializer) FromGenesis(opts sweep.Options, kv sweep.KVStore) error {
	var gen genesisOptions
	if err := opts.ReadOptions(optKey, &gen); err != nil {
		return err
	}
	if gen.Admin == nil {
		// Extension not configured for this chain.
		return nil
	}
	conf := Configuration{
		Admin:          gen.Admin,
		MaxKeyLen:      gen.MaxKeyLen,
		DepositBase:    gen.DepositBase,
		DepositPerItem: gen.DepositPerItem,
	}
	if err := conf.Validate(); err != nil {
		return errors.Wrap(err, "configuration")
	}
	if err := saveConfiguration(kv, &conf); err != nil {
		return errors.Wrap(err, "save configuration")
	}
	if gen.AutoLimits != nil {
		if err := saveAutoLimits(kv, gen.AutoLimits); err != nil {
			return errors.Wrap(err, "save auto limits")
		}
	}
	if gen.SignedMax != nil {
		if err := saveSignedMaxLimits(kv, gen.SignedMax); err != nil {
			return errors.Wrap(err, "save signed max limits")
		}
	}
	return nil
}
