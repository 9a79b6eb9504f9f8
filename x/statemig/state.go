package statemig

import (
	"github.com/tendermint/go-amino"

	"github.com/iov-one/sweep"
	"github.com/iov-one/sweep/coin"
	"github.com/iov-one/sweep/errors"
)

var cdc = amino.NewCodec()

// State of this extension is kept in a few singleton cells in the top
// namespace. Being ordinary keys, the cells are rewritten by the very
// migration they drive, which is harmless.
var (
	// taskKey holds the serialized MigrationTask.
	taskKey = []byte("_statemig:task")
	// autoLimitsKey holds the limits of the automatic migration.
	// Missing cell means the automatic migration is disabled.
	autoLimitsKey = []byte("_statemig:autolimits")
	// signedMaxLimitsKey holds the maximum limits a signed migration
	// may use. Missing cell means signed migrations are disabled.
	signedMaxLimitsKey = []byte("_statemig:signedmax")
	// configurationKey holds the extension configuration.
	configurationKey = []byte("_statemig:conf")
)

// Configuration holds the static parameters of this extension. It is
// set during the genesis and updated together with the binary.
type Configuration struct {
	// Admin is allowed to run the administrative operations.
	Admin sweep.Address
	// MaxKeyLen is the maximal number of bytes a key can have. The
	// migration halts when a longer key is found. There is no real
	// penalty from over-estimating, so use a large value.
	MaxKeyLen uint32
	// DepositBase is the fixed part of the deposit collected in advance
	// for signed migrations.
	DepositBase coin.Coin
	// DepositPerItem is collected per key in advance for signed
	// migrations. Final deposit is base + per item * items.
	DepositPerItem coin.Coin
}

// Validate ensures the configuration can be used.
func (c *Configuration) Validate() error {
	if err := c.Admin.Validate(); err != nil {
		return errors.Wrap(err, "admin")
	}
	if c.MaxKeyLen == 0 {
		return errors.Wrap(errors.ErrInput, "max key length must be greater than zero")
	}
	if err := c.DepositBase.Validate(); err != nil {
		return errors.Wrap(err, "deposit base")
	}
	if err := c.DepositPerItem.Validate(); err != nil {
		return errors.Wrap(err, "deposit per item")
	}
	if !c.DepositBase.SameType(c.DepositPerItem) {
		return errors.Wrap(errors.ErrCurrency, "deposit tickers differ")
	}
	return nil
}

// loadTask returns the persisted migration task. A missing cell means
// the migration was never run and the zero task is returned.
func loadTask(db sweep.ReadOnlyKVStore) (*MigrationTask, error) {
	var t MigrationTask
	switch ok, err := loadCell(db, taskKey, &t); {
	case err != nil:
		return nil, err
	case !ok:
		return &MigrationTask{}, nil
	}
	return &t, nil
}

func saveTask(db sweep.KVStore, t *MigrationTask) error {
	return saveCell(db, taskKey, t)
}

// loadAutoLimits returns the automatic migration budget, nil when the
// automatic migration is disabled.
func loadAutoLimits(db sweep.ReadOnlyKVStore) (*MigrationLimits, error) {
	var l MigrationLimits
	switch ok, err := loadCell(db, autoLimitsKey, &l); {
	case err != nil:
		return nil, err
	case !ok:
		return nil, nil
	}
	return &l, nil
}

func saveAutoLimits(db sweep.KVStore, l *MigrationLimits) error {
	if l == nil {
		return db.Delete(autoLimitsKey)
	}
	return saveCell(db, autoLimitsKey, l)
}

// loadSignedMaxLimits returns the ceiling for signed migrations, nil
// when signed migrations are disabled.
func loadSignedMaxLimits(db sweep.ReadOnlyKVStore) (*MigrationLimits, error) {
	var l MigrationLimits
	switch ok, err := loadCell(db, signedMaxLimitsKey, &l); {
	case err != nil:
		return nil, err
	case !ok:
		return nil, nil
	}
	return &l, nil
}

func saveSignedMaxLimits(db sweep.KVStore, l *MigrationLimits) error {
	if l == nil {
		return db.Delete(signedMaxLimitsKey)
	}
	return saveCell(db, signedMaxLimitsKey, l)
}

func loadConfiguration(db sweep.ReadOnlyKVStore) (*Configuration, error) {
	var c Configuration
	switch ok, err := loadCell(db, configurationKey, &c); {
	case err != nil:
		return nil, err
	case !ok:
		return nil, errors.Wrap(errors.ErrNotFound, "configuration")
	}
	return &c, nil
}

func saveConfiguration(db sweep.KVStore, c *Configuration) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return saveCell(db, configurationKey, c)
}

func loadCell(db sweep.ReadOnlyKVStore, key []byte, dst interface{}) (bool, error) {
	raw, err := db.Get(key)
	if err != nil {
		return false, errors.Wrapf(err, "cannot load %q cell", key)
	}
	if raw == nil {
		return false, nil
	}
	if err := cdc.UnmarshalBinaryBare(raw, dst); err != nil {
		return false, errors.Wrapf(errors.ErrState, "cannot deserialize %q cell", key)
	}
	return true, nil
}

func saveCell(db sweep.KVStore, key []byte, value interface{}) error {
	raw, err := cdc.MarshalBinaryBare(value)
	if err != nil {
		return errors.Wrapf(err, "cannot serialize %q cell", key)
	}
	return db.Set(key, raw)
}
