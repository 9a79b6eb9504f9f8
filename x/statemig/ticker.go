package statemig

import (
	"github.com/tendermint/tendermint/libs/common"

	"github.com/iov-one/sweep"
	"github.com/iov-one/sweep/errors"
)

// Ticker runs the automatic migration at the beginning of every block.
// It is armed by setting automatic limits and disarms itself when the
// migration is finished or halted.
type Ticker struct{}

// NewTicker returns a ticker that advances the migration whenever
// automatic limits are configured.
func NewTicker() *Ticker {
	return &Ticker{}
}

var _ sweep.Ticker = (*Ticker)(nil)

// Tick advances the migration by at most the configured automatic
// limits. Any error is handled by halting the migration, a block
// cannot be failed.
func (t *Ticker) Tick(ctx sweep.Context, store sweep.CacheableKVStore) sweep.TickResult {
	tags, err := t.tick(ctx, store)
	if err != nil {
		// The store rejected a write. Nothing was persisted, the same
		// work will be attempted on the next block.
		sweep.GetLogger(ctx).Error("migration tick failed", "cause", err)
		return sweep.TickResult{}
	}
	return sweep.TickResult{Tags: tags}
}

// tick does the work of Tick but can fail. All writes go through a
// cache that only applies when every step succeeded.
func (t *Ticker) tick(ctx sweep.Context, store sweep.CacheableKVStore) ([]common.KVPair, error) {
	limits, err := loadAutoLimits(store)
	if err != nil {
		return nil, errors.Wrap(err, "auto limits")
	}
	if limits == nil {
		return nil, nil
	}
	conf, err := loadConfiguration(store)
	if err != nil {
		return nil, errors.Wrap(err, "configuration")
	}

	cache := store.CacheWrap()
	ns, err := namespaced(cache)
	if err != nil {
		return nil, err
	}
	task, err := loadTask(cache)
	if err != nil {
		return nil, errors.Wrap(err, "load task")
	}

	var tags []common.KVPair
	if migErr := task.MigrateUntilExhaustion(ns, *limits, conf.MaxKeyLen); migErr != nil {
		haltTags, err := halt(ctx, cache, migErr)
		if err != nil {
			cache.Discard()
			return nil, err
		}
		tags = append(tags, haltTags...)
	}

	sweep.GetLogger(ctx).Info("migrated keys",
		"top", task.DynTopItems(),
		"child", task.DynChildItems(),
		"bytes", task.DynSize(),
	)

	if task.Finished() {
		tags = append(tags, autoFinishedTags()...)
		if err := saveAutoLimits(cache, nil); err != nil {
			cache.Discard()
			return nil, errors.Wrap(err, "clear auto limits")
		}
	} else {
		tags = append(tags, migratedTags(task.DynTopItems(), task.DynChildItems(), computeAuto)...)
	}

	if err := saveTask(cache, task); err != nil {
		cache.Discard()
		return nil, errors.Wrap(err, "save task")
	}
	if err := cache.Write(); err != nil {
		return nil, errors.Wrap(err, "write cache")
	}
	return tags, nil
}
