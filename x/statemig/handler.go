package statemig

import (
	"github.com/tendermint/tendermint/libs/common"

	"github.com/iov-one/sweep"
	"github.com/iov-one/sweep/coin"
	"github.com/iov-one/sweep/errors"
	"github.com/iov-one/sweep/x"
	"github.com/iov-one/sweep/x/bank"
)

const (
	// Gas cost of processing a single key and a single rewritten byte.
	// Used to report the real work done by a migration run.
	migrateItemCost int64 = 100
	migrateByteCost int64 = 1

	// Flat cost of the administrative operations.
	adminOpCost int64 = 50
)

// RegisterRoutes will instantiate and register
// all handlers in this package.
func RegisterRoutes(r sweep.Registry, auth x.Authenticator, ctrl bank.Controller) {
	r.Handle(&ContinueMigrateMsg{}, ContinueMigrateHandler{auth: auth, ctrl: ctrl})
	r.Handle(&MigrateCustomTopMsg{}, MigrateCustomTopHandler{auth: auth, ctrl: ctrl})
	r.Handle(&MigrateCustomChildMsg{}, MigrateCustomChildHandler{auth: auth, ctrl: ctrl})
	r.Handle(&ControlAutoMigrationMsg{}, ControlAutoMigrationHandler{auth: auth})
	r.Handle(&SetSignedMaxLimitsMsg{}, SetSignedMaxLimitsHandler{auth: auth})
	r.Handle(&ForceSetProgressMsg{}, ForceSetProgressHandler{auth: auth})
}

// ContinueMigrateHandler advances the migration by a signed
// transaction. The submitter locks a deposit proportional to the
// declared limits and loses it when the declared upper size bound
// turns out to be below the real amount of rewritten bytes.
type ContinueMigrateHandler struct {
	auth x.Authenticator
	ctrl bank.Controller
}

var _ sweep.Handler = ContinueMigrateHandler{}

func (h ContinueMigrateHandler) Check(ctx sweep.Context, db sweep.KVStore, tx sweep.Tx) (*sweep.CheckResult, error) {
	msg, _, _, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	res := &sweep.CheckResult{
		GasAllocated: dynamicWeight(msg.Limits.Item, msg.RealSizeUpper),
	}
	return res, nil
}

func (h ContinueMigrateHandler) Deliver(ctx sweep.Context, db sweep.KVStore, tx sweep.Tx) (*sweep.DeliverResult, error) {
	msg, who, deposit, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	conf, err := loadConfiguration(db)
	if err != nil {
		return nil, errors.Wrap(err, "configuration")
	}
	task, err := loadTask(db)
	if err != nil {
		return nil, errors.Wrap(err, "load task")
	}
	if !task.Equal(&msg.Witness) {
		return nil, errors.Wrap(ErrBadWitness, "persisted task differs")
	}

	ns, err := namespaced(db)
	if err != nil {
		return nil, err
	}
	migErr := task.MigrateUntilExhaustion(ns, msg.Limits, conf.MaxKeyLen)

	// A submitter that underestimated the rewritten bytes loses the
	// deposit. The work done so far stays, but the cursor is not
	// persisted so the next submitter covers the same range again.
	if msg.RealSizeUpper < task.DynSize() {
		tags, err := slash(db, h.ctrl, who, deposit)
		if err != nil {
			return nil, err
		}
		return &sweep.DeliverResult{
			Log:     "declared size upper bound too low, deposit slashed",
			Tags:    tags,
			GasUsed: dynamicWeight(task.DynTotalItems(), task.DynSize()),
		}, nil
	}

	res := &sweep.DeliverResult{
		Tags: append(
			migratedTags(task.DynTopItems(), task.DynChildItems(), computeSigned),
			feeWaivedTag(),
		),
		GasUsed: dynamicWeight(task.DynTotalItems(), task.DynSize()),
	}
	if err := saveTask(db, task); err != nil {
		return nil, errors.Wrap(err, "save task")
	}
	if migErr != nil {
		// The cursor up to the failure is already persisted. Stop the
		// automatic migration so that a human can look into it.
		tags, err := halt(ctx, db, migErr)
		if err != nil {
			return nil, err
		}
		res.Tags = append(res.Tags, tags...)
	}
	return res, nil
}

// validate runs all checks that require no key rewrite. It returns the
// message, the depositor address and the deposit amount that was
// verified to be coverable.
func (h ContinueMigrateHandler) validate(ctx sweep.Context, db sweep.KVStore, tx sweep.Tx) (*ContinueMigrateMsg, sweep.Address, coin.Coin, error) {
	var msg ContinueMigrateMsg
	if err := sweep.LoadMsg(tx, &msg); err != nil {
		return nil, nil, coin.Coin{}, errors.Wrap(err, "load msg")
	}
	who := x.MainSigner(ctx, h.auth)
	if who == nil {
		return nil, nil, coin.Coin{}, errors.Wrap(errors.ErrUnauthorized, "no signer")
	}

	max, err := loadSignedMaxLimits(db)
	if err != nil {
		return nil, nil, coin.Coin{}, errors.Wrap(err, "signed max limits")
	}
	if max == nil {
		return nil, nil, coin.Coin{}, errors.Wrap(ErrNotAllowed, "signed migrations disabled")
	}
	if msg.Limits.Size > max.Size || msg.Limits.Item > max.Item {
		return nil, nil, coin.Coin{}, errors.Wrapf(ErrMaxSignedLimits, "over %d items or %d bytes", max.Item, max.Size)
	}

	conf, err := loadConfiguration(db)
	if err != nil {
		return nil, nil, coin.Coin{}, errors.Wrap(err, "configuration")
	}
	deposit, err := calculateDepositFor(conf, msg.Limits.Item)
	if err != nil {
		return nil, nil, coin.Coin{}, errors.Wrap(err, "deposit")
	}
	if err := h.ctrl.CanHold(db, who.Address(), deposit); err != nil {
		return nil, nil, coin.Coin{}, errors.Wrap(ErrNotEnoughFunds, err.Error())
	}
	return &msg, who.Address(), deposit, nil
}

// MigrateCustomTopHandler rewrites an explicit list of top keys. It is
// the recovery path for keys the cursor based migration cannot reach,
// for example keys longer than the configured maximum.
type MigrateCustomTopHandler struct {
	auth x.Authenticator
	ctrl bank.Controller
}

var _ sweep.Handler = MigrateCustomTopHandler{}

func (h MigrateCustomTopHandler) Check(ctx sweep.Context, db sweep.KVStore, tx sweep.Tx) (*sweep.CheckResult, error) {
	msg, _, _, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	res := &sweep.CheckResult{
		GasAllocated: dynamicWeight(uint32(len(msg.Keys)), msg.WitnessSize),
	}
	return res, nil
}

func (h MigrateCustomTopHandler) Deliver(ctx sweep.Context, db sweep.KVStore, tx sweep.Tx) (*sweep.DeliverResult, error) {
	msg, who, deposit, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	var scratch MigrationTask
	var items uint32
	for _, key := range msg.Keys {
		if err := scratch.rewrite(db, key, &items); err != nil {
			return nil, errors.Wrap(err, "rewrite")
		}
	}

	if scratch.DynSize() > msg.WitnessSize {
		tags, err := slash(db, h.ctrl, who, deposit)
		if err != nil {
			return nil, err
		}
		return &sweep.DeliverResult{
			Log:     "declared witness size too low, deposit slashed",
			Tags:    tags,
			GasUsed: dynamicWeight(items, scratch.DynSize()),
		}, nil
	}
	return &sweep.DeliverResult{
		Tags:    migratedTags(uint32(len(msg.Keys)), 0, computeSigned),
		GasUsed: dynamicWeight(items, scratch.DynSize()),
	}, nil
}

func (h MigrateCustomTopHandler) validate(ctx sweep.Context, db sweep.KVStore, tx sweep.Tx) (*MigrateCustomTopMsg, sweep.Address, coin.Coin, error) {
	var msg MigrateCustomTopMsg
	if err := sweep.LoadMsg(tx, &msg); err != nil {
		return nil, nil, coin.Coin{}, errors.Wrap(err, "load msg")
	}
	who := x.MainSigner(ctx, h.auth)
	if who == nil {
		return nil, nil, coin.Coin{}, errors.Wrap(errors.ErrUnauthorized, "no signer")
	}
	conf, err := loadConfiguration(db)
	if err != nil {
		return nil, nil, coin.Coin{}, errors.Wrap(err, "configuration")
	}
	deposit, err := calculateDepositFor(conf, uint32(len(msg.Keys)))
	if err != nil {
		return nil, nil, coin.Coin{}, errors.Wrap(err, "deposit")
	}
	if err := h.ctrl.CanHold(db, who.Address(), deposit); err != nil {
		return nil, nil, coin.Coin{}, errors.Wrap(ErrNotEnoughFunds, err.Error())
	}
	return &msg, who.Address(), deposit, nil
}

// MigrateCustomChildHandler rewrites an explicit list of keys below a
// single child root. Unlike the top variant, the declared size must
// match the rewritten bytes exactly in both directions.
type MigrateCustomChildHandler struct {
	auth x.Authenticator
	ctrl bank.Controller
}

var _ sweep.Handler = MigrateCustomChildHandler{}

func (h MigrateCustomChildHandler) Check(ctx sweep.Context, db sweep.KVStore, tx sweep.Tx) (*sweep.CheckResult, error) {
	msg, _, _, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	res := &sweep.CheckResult{
		GasAllocated: dynamicWeight(uint32(len(msg.ChildKeys)), msg.TotalSize),
	}
	return res, nil
}

func (h MigrateCustomChildHandler) Deliver(ctx sweep.Context, db sweep.KVStore, tx sweep.Tx) (*sweep.DeliverResult, error) {
	msg, who, deposit, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	ns, err := namespaced(db)
	if err != nil {
		return nil, err
	}
	child, err := ns.Child(msg.Root)
	if err != nil {
		return nil, errors.Wrap(ErrBadChildRoot, err.Error())
	}

	var scratch MigrationTask
	var items uint32
	for _, key := range msg.ChildKeys {
		if err := scratch.rewrite(child, key, &items); err != nil {
			return nil, errors.Wrap(err, "rewrite")
		}
	}

	if scratch.DynSize() != msg.TotalSize {
		tags, err := slash(db, h.ctrl, who, deposit)
		if err != nil {
			return nil, err
		}
		return &sweep.DeliverResult{
			Log:     "declared total size does not match, deposit slashed",
			Tags:    tags,
			GasUsed: dynamicWeight(items, scratch.DynSize()),
		}, nil
	}
	return &sweep.DeliverResult{
		Tags:    migratedTags(0, uint32(len(msg.ChildKeys)), computeSigned),
		GasUsed: dynamicWeight(items, scratch.DynSize()),
	}, nil
}

func (h MigrateCustomChildHandler) validate(ctx sweep.Context, db sweep.KVStore, tx sweep.Tx) (*MigrateCustomChildMsg, sweep.Address, coin.Coin, error) {
	var msg MigrateCustomChildMsg
	if err := sweep.LoadMsg(tx, &msg); err != nil {
		return nil, nil, coin.Coin{}, errors.Wrap(err, "load msg")
	}
	who := x.MainSigner(ctx, h.auth)
	if who == nil {
		return nil, nil, coin.Coin{}, errors.Wrap(errors.ErrUnauthorized, "no signer")
	}
	conf, err := loadConfiguration(db)
	if err != nil {
		return nil, nil, coin.Coin{}, errors.Wrap(err, "configuration")
	}
	deposit, err := calculateDepositFor(conf, uint32(len(msg.ChildKeys)))
	if err != nil {
		return nil, nil, coin.Coin{}, errors.Wrap(err, "deposit")
	}
	if err := h.ctrl.CanHold(db, who.Address(), deposit); err != nil {
		return nil, nil, coin.Coin{}, errors.Wrap(ErrNotEnoughFunds, err.Error())
	}
	return &msg, who.Address(), deposit, nil
}

// ControlAutoMigrationHandler arms or disarms the automatic per block
// migration. Admin only.
type ControlAutoMigrationHandler struct {
	auth x.Authenticator
}

var _ sweep.Handler = ControlAutoMigrationHandler{}

func (h ControlAutoMigrationHandler) Check(ctx sweep.Context, db sweep.KVStore, tx sweep.Tx) (*sweep.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &sweep.CheckResult{GasAllocated: adminOpCost}, nil
}

func (h ControlAutoMigrationHandler) Deliver(ctx sweep.Context, db sweep.KVStore, tx sweep.Tx) (*sweep.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	if err := saveAutoLimits(db, msg.Limits); err != nil {
		return nil, errors.Wrap(err, "save auto limits")
	}
	return &sweep.DeliverResult{}, nil
}

func (h ControlAutoMigrationHandler) validate(ctx sweep.Context, db sweep.KVStore, tx sweep.Tx) (*ControlAutoMigrationMsg, error) {
	var msg ControlAutoMigrationMsg
	if err := sweep.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if err := isAdmin(ctx, db, h.auth); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SetSignedMaxLimitsHandler configures the maximal limits a signed
// migration can declare. A nil value disables signed migrations
// entirely. Admin only.
type SetSignedMaxLimitsHandler struct {
	auth x.Authenticator
}

var _ sweep.Handler = SetSignedMaxLimitsHandler{}

func (h SetSignedMaxLimitsHandler) Check(ctx sweep.Context, db sweep.KVStore, tx sweep.Tx) (*sweep.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &sweep.CheckResult{GasAllocated: adminOpCost}, nil
}

func (h SetSignedMaxLimitsHandler) Deliver(ctx sweep.Context, db sweep.KVStore, tx sweep.Tx) (*sweep.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	if err := saveSignedMaxLimits(db, msg.Limits); err != nil {
		return nil, errors.Wrap(err, "save signed max limits")
	}
	return &sweep.DeliverResult{}, nil
}

func (h SetSignedMaxLimitsHandler) validate(ctx sweep.Context, db sweep.KVStore, tx sweep.Tx) (*SetSignedMaxLimitsMsg, error) {
	var msg SetSignedMaxLimitsMsg
	if err := sweep.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if err := isAdmin(ctx, db, h.auth); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ForceSetProgressHandler overwrites the persisted cursor pair. This is
// the escape hatch when the cursor got stuck on a broken key. Admin
// only and dangerous, a wrong cursor skips keys forever.
type ForceSetProgressHandler struct {
	auth x.Authenticator
}

var _ sweep.Handler = ForceSetProgressHandler{}

func (h ForceSetProgressHandler) Check(ctx sweep.Context, db sweep.KVStore, tx sweep.Tx) (*sweep.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &sweep.CheckResult{GasAllocated: adminOpCost}, nil
}

func (h ForceSetProgressHandler) Deliver(ctx sweep.Context, db sweep.KVStore, tx sweep.Tx) (*sweep.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	task, err := loadTask(db)
	if err != nil {
		return nil, errors.Wrap(err, "load task")
	}
	task.ProgressTop = msg.ProgressTop
	task.ProgressChild = msg.ProgressChild
	if err := saveTask(db, task); err != nil {
		return nil, errors.Wrap(err, "save task")
	}
	return &sweep.DeliverResult{}, nil
}

func (h ForceSetProgressHandler) validate(ctx sweep.Context, db sweep.KVStore, tx sweep.Tx) (*ForceSetProgressMsg, error) {
	var msg ForceSetProgressMsg
	if err := sweep.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if err := isAdmin(ctx, db, h.auth); err != nil {
		return nil, err
	}
	return &msg, nil
}

// isAdmin ensures the configured admin authorized the transaction.
func isAdmin(ctx sweep.Context, db sweep.ReadOnlyKVStore, auth x.Authenticator) error {
	conf, err := loadConfiguration(db)
	if err != nil {
		return errors.Wrap(err, "configuration")
	}
	if !auth.HasAddress(ctx, conf.Admin) {
		return errors.Wrap(errors.ErrUnauthorized, "admin signature required")
	}
	return nil
}

// calculateDepositFor returns the deposit required to migrate the
// given number of keys, base + per item * items.
func calculateDepositFor(conf *Configuration, items uint32) (coin.Coin, error) {
	perItem, err := conf.DepositPerItem.Multiply(int64(items))
	if err != nil {
		return coin.Coin{}, err
	}
	return conf.DepositBase.Add(perItem)
}

// dynamicWeight converts rewritten keys and bytes into gas units.
func dynamicWeight(items, size uint32) int64 {
	return int64(items)*migrateItemCost + int64(size)*migrateByteCost
}

// slash burns the deposit of a submitter that misdeclared the size of
// a migration.
func slash(db sweep.KVStore, ctrl bank.Controller, who sweep.Address, deposit coin.Coin) ([]common.KVPair, error) {
	if err := ctrl.Hold(db, who, deposit); err != nil {
		return nil, errors.Wrap(err, "hold deposit")
	}
	if err := ctrl.BurnHeld(db, who, deposit); err != nil {
		return nil, errors.Wrap(err, "burn deposit")
	}
	return slashedTags(who, deposit), nil
}

// halt disarms the automatic migration in response to an error that
// needs human attention.
func halt(ctx sweep.Context, db sweep.KVStore, reason error) ([]common.KVPair, error) {
	sweep.GetLogger(ctx).Error("migration halted", "cause", reason)
	if err := saveAutoLimits(db, nil); err != nil {
		return nil, errors.Wrap(err, "clear auto limits")
	}
	return haltedTags(reason), nil
}

// namespaced gives access to the child namespaces of the store. All
// stores of this application support them.
func namespaced(db sweep.KVStore) (sweep.NamespaceStore, error) {
	ns, ok := db.(sweep.NamespaceStore)
	if !ok {
		return nil, errors.Wrapf(errors.ErrType, "%T has no child namespaces", db)
	}
	return ns, nil
}
