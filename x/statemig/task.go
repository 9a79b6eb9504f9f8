package statemig

import (
	"bytes"
	"fmt"

	"github.com/iov-one/sweep"
	"github.com/iov-one/sweep/errors"
	"github.com/iov-one/sweep/store"
)

// ProgressStage enumerates how far the walk over one namespace got.
type ProgressStage uint8

const (
	// ToStart means the walk over this namespace has not begun.
	ToStart ProgressStage = 0
	// AtKey means the walk rewrote all keys up to and including Key.
	AtKey ProgressStage = 1
	// Complete means no keys remain in this namespace.
	Complete ProgressStage = 2
)

func (s ProgressStage) String() string {
	switch s {
	case ToStart:
		return "to_start"
	case AtKey:
		return "at_key"
	case Complete:
		return "complete"
	default:
		return fmt.Sprintf("invalid(%d)", s)
	}
}

// Progress is the cursor over one namespace. Key is set only for the
// AtKey stage. The cursor only ever moves forward, except through an
// explicit administrative override.
type Progress struct {
	Stage ProgressStage
	Key   []byte
}

// LastKey builds an AtKey cursor.
func LastKey(key []byte) Progress {
	return Progress{Stage: AtKey, Key: key}
}

// Equal returns true if both cursors are at the same position.
func (p Progress) Equal(o Progress) bool {
	return p.Stage == o.Stage && bytes.Equal(p.Key, o.Key)
}

// Validate ensures the cursor is sane.
func (p Progress) Validate() error {
	switch p.Stage {
	case ToStart, Complete:
		if len(p.Key) != 0 {
			return errors.Wrap(errors.ErrState, "cursor key set outside of at_key stage")
		}
	case AtKey:
		// The empty key is a valid position.
	default:
		return errors.Wrapf(errors.ErrState, "invalid cursor stage: %d", p.Stage)
	}
	return nil
}

// MigrationLimits is the budget of a single migration run.
type MigrationLimits struct {
	// Size is the byte size limit.
	Size uint32
	// Item is the number of keys limit.
	Item uint32
}

// MigrationTask is the durable cursor pair of the migration, together
// with cumulative counters kept for observability.
//
// The dyn counters measure a single run and are deliberately not
// serialized, every persisted task deserializes with them at zero.
type MigrationTask struct {
	// ProgressTop is the cursor over the top namespace.
	ProgressTop Progress
	// ProgressChild is the cursor over the child namespace rooted at
	// the current top key, if any.
	ProgressChild Progress

	// Size is the total amount of bytes rewritten so far.
	Size uint32
	// TopItems is the total amount of top keys rewritten so far.
	TopItems uint32
	// ChildItems is the total amount of child keys rewritten so far.
	ChildItems uint32

	dynSize       uint32
	dynTopItems   uint32
	dynChildItems uint32
}

// Equal compares cursors and cumulative counters. The per-run counters
// are transient and do not participate.
func (t *MigrationTask) Equal(o *MigrationTask) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.ProgressTop.Equal(o.ProgressTop) &&
		t.ProgressChild.Equal(o.ProgressChild) &&
		t.Size == o.Size &&
		t.TopItems == o.TopItems &&
		t.ChildItems == o.ChildItems
}

// Finished returns true when there is nothing left to migrate.
func (t *MigrationTask) Finished() bool {
	return t.ProgressTop.Stage == Complete
}

// DynSize returns the bytes rewritten by the last run.
func (t *MigrationTask) DynSize() uint32 { return t.dynSize }

// DynTopItems returns the top keys rewritten by the last run.
func (t *MigrationTask) DynTopItems() uint32 { return t.dynTopItems }

// DynChildItems returns the child keys rewritten by the last run.
func (t *MigrationTask) DynChildItems() uint32 { return t.dynChildItems }

// DynTotalItems returns the total number of keys rewritten by the last
// run.
func (t *MigrationTask) DynTotalItems() uint32 {
	return t.dynTopItems + t.dynChildItems
}

// exhausted checks if the run already consumed the given budget.
func (t *MigrationTask) exhausted(limits MigrationLimits) bool {
	return t.DynTotalItems() >= limits.Item || t.dynSize >= limits.Size
}

// MigrateUntilExhaustion rewrites keys until either of the given
// limits is exhausted or no more keys exist.
//
// A zero budget in either dimension performs no work at all. The size
// budget can be overshot by up to one value length, because a value
// size is unknown before the key is processed. Do not rely on it as a
// hard cap.
//
// An error is returned as soon as a single step fails. Keys rewritten
// by earlier steps of the same run stay rewritten, the cursor stops at
// the last successful step.
func (t *MigrationTask) MigrateUntilExhaustion(db sweep.NamespaceStore, limits MigrationLimits, maxKeyLen uint32) error {
	if limits.Item == 0 || limits.Size == 0 {
		return nil
	}

	t.dynSize = 0
	t.dynTopItems = 0
	t.dynChildItems = 0

	for !t.exhausted(limits) && !t.Finished() {
		if err := t.migrateTick(db, maxKeyLen); err != nil {
			return err
		}
	}

	// accumulate dynamic data into the persisted counters.
	t.Size += t.dynSize
	t.TopItems += t.dynTopItems
	t.ChildItems += t.dynChildItems
	return nil
}

// migrateTick rewrites AT MOST ONE KEY. This can be either a top or a
// child key.
//
// This function is *the* core of this entire extension.
func (t *MigrationTask) migrateTick(db sweep.NamespaceStore, maxKeyLen uint32) error {
	switch top, child := t.ProgressTop.Stage, t.ProgressChild.Stage; {
	case top == ToStart:
		return t.migrateTop(db, maxKeyLen)
	case top == AtKey && child == AtKey:
		// we're in the middle of doing work on a child tree.
		return t.migrateChild(db, maxKeyLen)
	case top == AtKey && child == ToStart:
		if !store.IsChildRoot(t.ProgressTop.Key) {
			// we continue the top key migrations.
			return t.migrateTop(db, maxKeyLen)
		}
		// this is the root of a child tree, and we start processing
		// its keys.
		return t.migrateChild(db, maxKeyLen)
	case top == AtKey && child == Complete:
		// we're done with migrating a child tree, resume the top walk.
		if err := t.migrateTop(db, maxKeyLen); err != nil {
			return err
		}
		t.ProgressChild = Progress{Stage: ToStart}
		return nil
	default: // top == Complete
		return nil
	}
}

// migrateChild rewrites the next child key, if one exists, and updates
// the dynamic counters.
func (t *MigrationTask) migrateChild(db sweep.NamespaceStore, maxKeyLen uint32) error {
	if t.ProgressTop.Stage != AtKey {
		// there must be an ongoing top migration.
		return nil
	}
	child, err := db.Child(t.ProgressTop.Key)
	if err != nil {
		return errors.Wrapf(ErrBadChildRoot, "%X", t.ProgressTop.Key)
	}

	var current []byte
	switch t.ProgressChild.Stage {
	case AtKey:
		next, err := store.NextKey(child, t.ProgressChild.Key)
		if err != nil {
			return err
		}
		if next != nil && uint32(len(next)) > maxKeyLen {
			return errors.Wrapf(ErrKeyTooLong, "%d bytes", len(next))
		}
		current = next
	case ToStart:
		// Start with the empty key as first key.
		current = []byte{}
	default:
		return nil
	}

	if current == nil {
		t.ProgressChild = Progress{Stage: Complete}
		return nil
	}
	if err := t.rewrite(child, current, &t.dynChildItems); err != nil {
		return err
	}
	t.ProgressChild = LastKey(current)
	return nil
}

// migrateTop rewrites the next top key, if one exists, and updates the
// dynamic counters.
func (t *MigrationTask) migrateTop(db sweep.NamespaceStore, maxKeyLen uint32) error {
	var current []byte
	switch t.ProgressTop.Stage {
	case AtKey:
		next, err := store.NextKey(db, t.ProgressTop.Key)
		if err != nil {
			return err
		}
		if next != nil && uint32(len(next)) > maxKeyLen {
			return errors.Wrapf(ErrKeyTooLong, "%d bytes", len(next))
		}
		current = next
	case ToStart:
		// Start with the empty key as first key.
		current = []byte{}
	default:
		// there must be an ongoing top migration.
		return nil
	}

	if current == nil {
		t.ProgressTop = Progress{Stage: Complete}
		return nil
	}
	if err := t.rewrite(db, current, &t.dynTopItems); err != nil {
		return err
	}
	t.ProgressTop = LastKey(current)
	return nil
}

// rewrite reads the value and writes it back unchanged. The write is a
// no-op on the content but forces the record into the currently active
// layout. A key is counted even if it holds no value.
func (t *MigrationTask) rewrite(db sweep.KVStore, key []byte, items *uint32) error {
	data, err := db.Get(key)
	if err != nil {
		return err
	}
	if data != nil {
		if err := db.Set(key, data); err != nil {
			return err
		}
		t.dynSize += uint32(len(data))
	}
	*items++
	return nil
}
