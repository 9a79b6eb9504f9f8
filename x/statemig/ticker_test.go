package statemig

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iov-one/sweep/coin"
	"github.com/iov-one/sweep/store"
	"github.com/iov-one/sweep/sweeptest"
)

func TestTickerDormantWithoutLimits(t *testing.T) {
	env := newTestEnv(t)
	ticker := NewTicker()

	res := ticker.Tick(env.ctx, env.db)
	assert.Empty(t, res.Tags)

	task, err := loadTask(env.db)
	require.NoError(t, err)
	assert.True(t, task.Equal(&MigrationTask{}))
}

func TestTickerMigratesUntilFinished(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, saveAutoLimits(env.db, &MigrationLimits{Size: 1000, Item: 1}))
	ticker := NewTicker()

	var finished bool
	for i := 0; i < 100; i++ {
		res := ticker.Tick(env.ctx, env.db)
		if hasTag(res.Tags, tagKey, eventAutoFinished) {
			finished = true
			break
		}
		require.True(t, hasTag(res.Tags, tagKey, eventMigrated))
		require.True(t, hasTag(res.Tags, tagKey+":compute", computeAuto))
	}
	require.True(t, finished, "migration did not finish")

	// once finished the ticker disarms itself.
	limits, err := loadAutoLimits(env.db)
	require.NoError(t, err)
	assert.Nil(t, limits)
	res := ticker.Tick(env.ctx, env.db)
	assert.Empty(t, res.Tags)

	// the configuration, wallet and bookkeeping records live in the
	// same namespace and were migrated along with the fixture data.
	task, err := loadTask(env.db)
	require.NoError(t, err)
	assert.True(t, task.Finished())
	assert.True(t, task.Size >= fixtureSize)
}

// After the automatic migration completed, the store fingerprint must
// match a store written in the current layout from the start.
func TestTickerConvergesToNativeLayout(t *testing.T) {
	db := newFixture(t)
	ctx := context.Background()
	conf := Configuration{
		Admin:          sweeptest.NewCondition().Address(),
		MaxKeyLen:      128,
		DepositBase:    coin.NewCoin(100, 0, "IOV"),
		DepositPerItem: coin.NewCoin(2, 0, "IOV"),
	}
	require.NoError(t, saveConfiguration(db, &conf))
	require.NoError(t, saveAutoLimits(db, &MigrationLimits{Size: 100, Item: 3}))
	ticker := NewTicker()

	for i := 0; i < 100; i++ {
		if res := ticker.Tick(ctx, db); hasTag(res.Tags, tagKey, eventAutoFinished) {
			break
		}
	}
	task, err := loadTask(db)
	require.NoError(t, err)
	require.True(t, task.Finished())
	migrated, err := db.Hash()
	require.NoError(t, err)

	native := store.NewMemStore()
	for i := 1; i <= 9; i++ {
		key := []byte(fmt.Sprintf("key%d", i))
		require.NoError(t, native.Set(key, bytes.Repeat([]byte{1}, 34+i)))
	}
	require.NoError(t, native.Set([]byte("CODE"), bytes.Repeat([]byte{1}, 134)))
	chk1 := store.ChildRootKey([]byte("chk1"))
	require.NoError(t, native.SetChildTagged(chk1, store.LayoutCurrent, []byte("key1"), bytes.Repeat([]byte{1}, 55)))
	require.NoError(t, native.SetChildTagged(chk1, store.LayoutCurrent, []byte("key2"), bytes.Repeat([]byte{2}, 66)))
	chk2 := store.ChildRootKey([]byte("chk2"))
	require.NoError(t, native.SetChildTagged(chk2, store.LayoutCurrent, []byte("key1"), bytes.Repeat([]byte{1}, 54)))
	require.NoError(t, native.SetChildTagged(chk2, store.LayoutCurrent, []byte("key2"), bytes.Repeat([]byte{2}, 64)))
	// mirror the migration bookkeeping, it lives in the same namespace.
	require.NoError(t, copyStateCells(t, db, native))
	want, err := native.Hash()
	require.NoError(t, err)

	assert.Equal(t, want, migrated)
}

// copyStateCells mirrors the persisted migration bookkeeping so that
// two stores holding the same data can be compared by fingerprint.
func copyStateCells(t testing.TB, src, dst *store.MemStore) error {
	t.Helper()
	for _, key := range [][]byte{taskKey, autoLimitsKey, signedMaxLimitsKey, configurationKey} {
		value, err := src.Get(key)
		if err != nil {
			return err
		}
		if value == nil {
			continue
		}
		if err := dst.Set(key, value); err != nil {
			return err
		}
	}
	return nil
}

func TestTickerHaltsOnTooLongKey(t *testing.T) {
	env := newTestEnv(t)
	long := bytes.Repeat([]byte{'x'}, 129)
	require.NoError(t, env.db.SetTagged(store.LayoutLegacy, long, []byte("value")))
	require.NoError(t, saveAutoLimits(env.db, &MigrationLimits{Size: 1 << 20, Item: 1 << 20}))
	ticker := NewTicker()

	res := ticker.Tick(env.ctx, env.db)
	assert.True(t, hasTag(res.Tags, tagKey, eventHalted))

	// the migration disarmed itself, progress up to the offending key
	// was persisted.
	limits, err := loadAutoLimits(env.db)
	require.NoError(t, err)
	assert.Nil(t, limits)
	task, err := loadTask(env.db)
	require.NoError(t, err)
	assert.Equal(t, AtKey, task.ProgressTop.Stage)
	assert.False(t, task.Finished())
}
