package statemig

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/libs/common"

	"github.com/iov-one/sweep"
	"github.com/iov-one/sweep/coin"
	"github.com/iov-one/sweep/errors"
	"github.com/iov-one/sweep/store"
	"github.com/iov-one/sweep/sweeptest"
	"github.com/iov-one/sweep/x/bank"
)

type testEnv struct {
	db    *store.MemStore
	ctx   sweep.Context
	ctrl  bank.Controller
	admin sweep.Condition
	alice sweep.Condition
	auth  *sweeptest.Auth
}

// newTestEnv returns a fixture store with the extension configured, a
// funded submitter and signed migrations allowed.
func newTestEnv(t testing.TB) *testEnv {
	t.Helper()

	env := &testEnv{
		db:    newFixture(t),
		ctx:   context.Background(),
		ctrl:  bank.NewController(),
		admin: sweeptest.NewCondition(),
		alice: sweeptest.NewCondition(),
	}
	env.auth = &sweeptest.Auth{Signer: env.alice}

	conf := Configuration{
		Admin:          env.admin.Address(),
		MaxKeyLen:      128,
		DepositBase:    coin.NewCoin(100, 0, "IOV"),
		DepositPerItem: coin.NewCoin(2, 0, "IOV"),
	}
	require.NoError(t, saveConfiguration(env.db, &conf))
	require.NoError(t, saveSignedMaxLimits(env.db, &MigrationLimits{Size: 1024, Item: 5}))
	require.NoError(t, env.ctrl.Issue(env.db, env.alice.Address(), coin.NewCoin(1000, 0, "IOV")))
	return env
}

func (env *testEnv) balance(t testing.TB) coin.Coin {
	t.Helper()
	c, err := env.ctrl.Balance(env.db, env.alice.Address())
	require.NoError(t, err)
	return c
}

func hasTag(tags []common.KVPair, key, value string) bool {
	for _, tag := range tags {
		if string(tag.Key) == key && string(tag.Value) == value {
			return true
		}
	}
	return false
}

// registry collects registered handlers by message path.
type registry map[string]sweep.Handler

func (r registry) Handle(m sweep.Msg, h sweep.Handler) {
	if _, ok := r[m.Path()]; ok {
		panic("path already registered: " + m.Path())
	}
	r[m.Path()] = h
}

func TestRegisterRoutes(t *testing.T) {
	env := newTestEnv(t)
	r := registry{}
	RegisterRoutes(r, env.auth, env.ctrl)

	for _, path := range []string{
		pathContinueMigrateMsg,
		pathMigrateCustomTopMsg,
		pathMigrateCustomChildMsg,
		pathControlAutoMigrationMsg,
		pathSetSignedMaxLimitsMsg,
		pathForceSetProgressMsg,
	} {
		assert.NotNil(t, r[path], "no handler registered for %s", path)
	}
	assert.Len(t, r, 6)
}

func TestContinueMigrateRequiresSignedLimits(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, saveSignedMaxLimits(env.db, nil))
	h := ContinueMigrateHandler{auth: env.auth, ctrl: env.ctrl}

	tx := &sweeptest.Tx{Msg: &ContinueMigrateMsg{
		Limits:        MigrationLimits{Size: 100, Item: 5},
		RealSizeUpper: 100,
	}}
	_, err := h.Deliver(env.ctx, env.db, tx)
	assert.True(t, ErrNotAllowed.Is(err), "unexpected error: %+v", err)
}

func TestContinueMigrateOverMaxLimits(t *testing.T) {
	env := newTestEnv(t)
	h := ContinueMigrateHandler{auth: env.auth, ctrl: env.ctrl}

	tx := &sweeptest.Tx{Msg: &ContinueMigrateMsg{
		Limits:        MigrationLimits{Size: 1 << 20, Item: 5},
		RealSizeUpper: 100,
	}}
	_, err := h.Deliver(env.ctx, env.db, tx)
	assert.True(t, ErrMaxSignedLimits.Is(err), "unexpected error: %+v", err)
}

func TestContinueMigratePoorSubmitter(t *testing.T) {
	env := newTestEnv(t)
	poor := sweeptest.NewCondition()
	h := ContinueMigrateHandler{auth: &sweeptest.Auth{Signer: poor}, ctrl: env.ctrl}

	tx := &sweeptest.Tx{Msg: &ContinueMigrateMsg{
		Limits:        MigrationLimits{Size: 100, Item: 5},
		RealSizeUpper: 100,
	}}
	_, err := h.Deliver(env.ctx, env.db, tx)
	assert.True(t, ErrNotEnoughFunds.Is(err), "unexpected error: %+v", err)
}

func TestContinueMigrateBadWitness(t *testing.T) {
	env := newTestEnv(t)
	h := ContinueMigrateHandler{auth: env.auth, ctrl: env.ctrl}

	tx := &sweeptest.Tx{Msg: &ContinueMigrateMsg{
		Limits:        MigrationLimits{Size: 100, Item: 5},
		RealSizeUpper: 100,
		Witness:       MigrationTask{ProgressTop: LastKey([]byte{1})},
	}}
	_, err := h.Deliver(env.ctx, env.db, tx)
	assert.True(t, ErrBadWitness.Is(err), "unexpected error: %+v", err)

	// nothing was persisted.
	task, err := loadTask(env.db)
	require.NoError(t, err)
	assert.True(t, task.Equal(&MigrationTask{}))
}

func TestContinueMigrateWorks(t *testing.T) {
	env := newTestEnv(t)
	h := ContinueMigrateHandler{auth: env.auth, ctrl: env.ctrl}
	limits := MigrationLimits{Size: 1024, Item: 5}

	for i := 0; ; i++ {
		witness, err := loadTask(env.db)
		require.NoError(t, err)
		if witness.Finished() {
			break
		}
		if i > 100 {
			t.Fatal("migration does not terminate")
		}

		// compute the exact byte consumption ahead of time. The rewrite
		// is idempotent so probing against the live store is fine.
		scratch := *witness
		require.NoError(t, scratch.MigrateUntilExhaustion(env.db, limits, 128))

		tx := &sweeptest.Tx{Msg: &ContinueMigrateMsg{
			Limits:        limits,
			RealSizeUpper: scratch.DynSize(),
			Witness:       *witness,
		}}
		res, err := h.Deliver(env.ctx, env.db, tx)
		require.NoError(t, err)
		assert.True(t, hasTag(res.Tags, tagKey, eventMigrated))
		assert.True(t, hasTag(res.Tags, "fee", "waived"))
		assert.True(t, res.GasUsed > 0)

		// an honest submitter keeps the whole balance.
		assert.Equal(t, int64(1000), env.balance(t).Whole)
	}

	// the configuration, wallet and bookkeeping records live in the
	// same namespace and were migrated along with the fixture data.
	task, err := loadTask(env.db)
	require.NoError(t, err)
	assert.True(t, task.Size >= fixtureSize)
	assert.True(t, task.TopItems >= fixtureTopItems)
	assert.Equal(t, uint32(fixtureChildItems), task.ChildItems)
}

func TestContinueMigrateSlashesOnUnderestimate(t *testing.T) {
	env := newTestEnv(t)
	h := ContinueMigrateHandler{auth: env.auth, ctrl: env.ctrl}
	limits := MigrationLimits{Size: 1024, Item: 5}

	scratch := MigrationTask{}
	require.NoError(t, scratch.MigrateUntilExhaustion(env.db, limits, 128))
	require.True(t, scratch.DynSize() > 0)

	tx := &sweeptest.Tx{Msg: &ContinueMigrateMsg{
		Limits:        limits,
		RealSizeUpper: scratch.DynSize() - 1,
	}}
	res, err := h.Deliver(env.ctx, env.db, tx)
	require.NoError(t, err)
	assert.True(t, hasTag(res.Tags, tagKey, eventSlashed))
	assert.False(t, hasTag(res.Tags, "fee", "waived"))

	// deposit for 5 items is 100 + 5*2.
	assert.Equal(t, int64(1000-110), env.balance(t).Whole)

	// the cursor was not persisted, the range must be covered again.
	task, err := loadTask(env.db)
	require.NoError(t, err)
	assert.True(t, task.Equal(&MigrationTask{}))
}

func TestContinueMigrateHaltsOnTooLongKey(t *testing.T) {
	env := newTestEnv(t)
	long := make([]byte, 129)
	for i := range long {
		long[i] = 'x'
	}
	require.NoError(t, env.db.SetTagged(store.LayoutLegacy, long, []byte("value")))
	require.NoError(t, saveAutoLimits(env.db, &MigrationLimits{Size: 1000, Item: 1}))
	require.NoError(t, saveSignedMaxLimits(env.db, &MigrationLimits{Size: 1 << 20, Item: 100}))

	h := ContinueMigrateHandler{auth: env.auth, ctrl: env.ctrl}
	limits := MigrationLimits{Size: 1 << 20, Item: 100}
	tx := &sweeptest.Tx{Msg: &ContinueMigrateMsg{
		Limits:        limits,
		RealSizeUpper: 1 << 20,
	}}
	res, err := h.Deliver(env.ctx, env.db, tx)
	require.NoError(t, err)
	assert.True(t, hasTag(res.Tags, tagKey, eventHalted))

	// progress up to the offending key was persisted and the automatic
	// migration was disarmed.
	task, err := loadTask(env.db)
	require.NoError(t, err)
	assert.Equal(t, AtKey, task.ProgressTop.Stage)
	assert.False(t, task.Finished())
	auto, err := loadAutoLimits(env.db)
	require.NoError(t, err)
	assert.Nil(t, auto)
}

func TestCustomTopWorks(t *testing.T) {
	// values of key1, key2 and key3 hold 35+36+37 bytes.
	const correctWitness = 108
	keys := [][]byte{[]byte("key1"), []byte("key2"), []byte("key3")}

	cases := map[string]struct {
		witness     uint32
		wantSlashed bool
	}{
		"exact":        {witness: correctWitness, wantSlashed: false},
		"overestimate": {witness: correctWitness + 99, wantSlashed: false},
		"underclaim":   {witness: correctWitness - 1, wantSlashed: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t)
			h := MigrateCustomTopHandler{auth: env.auth, ctrl: env.ctrl}

			tx := &sweeptest.Tx{Msg: &MigrateCustomTopMsg{Keys: keys, WitnessSize: tc.witness}}
			res, err := h.Deliver(env.ctx, env.db, tx)
			require.NoError(t, err)

			if tc.wantSlashed {
				assert.True(t, hasTag(res.Tags, tagKey, eventSlashed))
				// deposit for 3 items is 100 + 3*2.
				assert.Equal(t, int64(1000-106), env.balance(t).Whole)
			} else {
				assert.True(t, hasTag(res.Tags, tagKey, eventMigrated))
				assert.Equal(t, int64(1000), env.balance(t).Whole)
			}
		})
	}
}

func TestCustomChildWorks(t *testing.T) {
	root := store.ChildRootKey([]byte("chk1"))
	keys := [][]byte{[]byte("key1"), []byte("key2")}

	cases := map[string]struct {
		total       uint32
		wantSlashed bool
	}{
		"exact":      {total: 55 + 66, wantSlashed: false},
		"overclaim":  {total: 999999, wantSlashed: true},
		"underclaim": {total: 55 + 66 - 1, wantSlashed: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t)
			h := MigrateCustomChildHandler{auth: env.auth, ctrl: env.ctrl}

			tx := &sweeptest.Tx{Msg: &MigrateCustomChildMsg{
				Root:      root,
				ChildKeys: keys,
				TotalSize: tc.total,
			}}
			res, err := h.Deliver(env.ctx, env.db, tx)
			require.NoError(t, err)

			if tc.wantSlashed {
				assert.True(t, hasTag(res.Tags, tagKey, eventSlashed))
				// deposit for 2 items is 100 + 2*2.
				assert.Equal(t, int64(1000-104), env.balance(t).Whole)
			} else {
				assert.True(t, hasTag(res.Tags, tagKey, eventMigrated))
				assert.Equal(t, int64(1000), env.balance(t).Whole)
			}
		})
	}
}

func TestCustomChildBadRoot(t *testing.T) {
	env := newTestEnv(t)
	h := MigrateCustomChildHandler{auth: env.auth, ctrl: env.ctrl}

	tx := &sweeptest.Tx{Msg: &MigrateCustomChildMsg{
		Root:      []byte("not a child root"),
		ChildKeys: [][]byte{[]byte("key1")},
		TotalSize: 55,
	}}
	_, err := h.Deliver(env.ctx, env.db, tx)
	assert.True(t, ErrBadChildRoot.Is(err), "unexpected error: %+v", err)
}

func TestControlAutoMigrationAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	h := ControlAutoMigrationHandler{auth: env.auth}

	tx := &sweeptest.Tx{Msg: &ControlAutoMigrationMsg{
		Limits: &MigrationLimits{Size: 100, Item: 10},
	}}
	_, err := h.Deliver(env.ctx, env.db, tx)
	assert.True(t, errors.ErrUnauthorized.Is(err), "unexpected error: %+v", err)

	h = ControlAutoMigrationHandler{auth: &sweeptest.Auth{Signer: env.admin}}
	_, err = h.Deliver(env.ctx, env.db, tx)
	require.NoError(t, err)
	limits, err := loadAutoLimits(env.db)
	require.NoError(t, err)
	require.NotNil(t, limits)
	assert.Equal(t, uint32(10), limits.Item)

	// a nil value disarms.
	tx = &sweeptest.Tx{Msg: &ControlAutoMigrationMsg{}}
	_, err = h.Deliver(env.ctx, env.db, tx)
	require.NoError(t, err)
	limits, err = loadAutoLimits(env.db)
	require.NoError(t, err)
	assert.Nil(t, limits)
}

func TestSetSignedMaxLimits(t *testing.T) {
	env := newTestEnv(t)
	h := SetSignedMaxLimitsHandler{auth: &sweeptest.Auth{Signer: env.admin}}

	tx := &sweeptest.Tx{Msg: &SetSignedMaxLimitsMsg{
		Limits: &MigrationLimits{Size: 2048, Item: 16},
	}}
	_, err := h.Deliver(env.ctx, env.db, tx)
	require.NoError(t, err)
	limits, err := loadSignedMaxLimits(env.db)
	require.NoError(t, err)
	require.NotNil(t, limits)
	assert.Equal(t, uint32(2048), limits.Size)

	// a nil value disables signed migrations.
	tx = &sweeptest.Tx{Msg: &SetSignedMaxLimitsMsg{}}
	_, err = h.Deliver(env.ctx, env.db, tx)
	require.NoError(t, err)
	limits, err = loadSignedMaxLimits(env.db)
	require.NoError(t, err)
	assert.Nil(t, limits)
}

func TestForceSetProgress(t *testing.T) {
	env := newTestEnv(t)
	h := ForceSetProgressHandler{auth: &sweeptest.Auth{Signer: env.admin}}

	tx := &sweeptest.Tx{Msg: &ForceSetProgressMsg{
		ProgressTop:   LastKey([]byte("key5")),
		ProgressChild: Progress{Stage: Complete},
	}}
	_, err := h.Deliver(env.ctx, env.db, tx)
	require.NoError(t, err)

	task, err := loadTask(env.db)
	require.NoError(t, err)
	assert.Equal(t, []byte("key5"), task.ProgressTop.Key)
	assert.Equal(t, Complete, task.ProgressChild.Stage)
}
