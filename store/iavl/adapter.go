package iavl

import (
	"encoding/binary"

	"github.com/tendermint/iavl"
	dbm "github.com/tendermint/tendermint/libs/db"

	"github.com/iov-one/sweep/errors"
	"github.com/iov-one/sweep/store"
)

// amount of historic tree nodes to keep in memory
const cacheSize = 10000

// CommitStore manages a iavl committed state. The top namespace and
// all child namespaces live in one tree under distinct key regions, so
// a single SaveVersion covers them all and a crash can never tear a
// write between namespaces.
type CommitStore struct {
	tree    *iavl.MutableTree
	version int64
}

var _ store.CommitKVStore = (*CommitStore)(nil)

// NewCommitStore creates a new store with leveldb disk backing.
func NewCommitStore(dbName, dbDir string) (*CommitStore, error) {
	db, err := dbm.NewGoLevelDB(dbName, dbDir)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open backing database")
	}
	return &CommitStore{
		tree: iavl.NewMutableTree(db, cacheSize),
	}, nil
}

// MockCommitStore returns a store without disk backing, for tests.
func MockCommitStore() *CommitStore {
	return &CommitStore{
		tree: iavl.NewMutableTree(dbm.NewMemDB(), cacheSize),
	}
}

// Get returns the value at last committed state.
func (s *CommitStore) Get(key []byte) ([]byte, error) {
	_, raw := s.tree.GetVersioned(topKey(key), s.version)
	if raw == nil {
		return nil, nil
	}
	_, value, err := store.UntagValue(raw)
	return value, err
}

// Commit the next version to disk, and returns info
func (s *CommitStore) Commit() (store.CommitID, error) {
	hash, version, err := s.tree.SaveVersion()
	if err != nil {
		return store.CommitID{}, errors.Wrap(err, "cannot save version")
	}
	s.version = version
	return store.CommitID{Version: version, Hash: hash}, nil
}

// LoadLatestVersion loads the latest persisted version.
// If there was a crash during the last commit, it is guaranteed
// to return a stable state, even if older.
func (s *CommitStore) LoadLatestVersion() error {
	version, err := s.tree.Load()
	if err != nil {
		return errors.Wrap(err, "cannot load latest version")
	}
	s.version = version
	return nil
}

// LatestVersion returns info on the latest version saved to disk
func (s *CommitStore) LatestVersion() (store.CommitID, error) {
	return store.CommitID{
		Version: s.version,
		Hash:    s.tree.Hash(),
	}, nil
}

// CacheWrap gives us a savepoint to perform actions on the working
// tree. Write flushes into the working tree only, the state hits the
// disk on the next Commit.
func (s *CommitStore) CacheWrap() store.KVCacheWrap {
	return store.NewNamespaceCacheWrap(treeStore{tree: s.tree})
}

// SetTagged writes a top namespace record into the working tree under
// an explicit layout tag, so legacy state can be seeded.
func (s *CommitStore) SetTagged(layout byte, key, value []byte) error {
	return treeStore{tree: s.tree}.SetTagged(layout, key, value)
}

// SetChildTagged is SetTagged for a child namespace record.
func (s *CommitStore) SetChildTagged(root []byte, layout byte, key, value []byte) error {
	child, err := treeStore{tree: s.tree}.Child(root)
	if err != nil {
		return err
	}
	return child.(treeStore).SetTagged(layout, key, value)
}

// treeStore adapts the working iavl tree to the NamespaceStore
// interface. Both namespaces and the layout tagging of values are a
// property of the physical key/value encoding within the tree.
type treeStore struct {
	tree *iavl.MutableTree
	// child namespace id, nil for the top namespace
	child []byte
}

var _ store.NamespaceStore = treeStore{}

func (t treeStore) Get(key []byte) ([]byte, error) {
	_, raw := t.tree.Get(t.physical(key))
	if raw == nil {
		return nil, nil
	}
	_, value, err := store.UntagValue(raw)
	return value, err
}

func (t treeStore) Has(key []byte) (bool, error) {
	return t.tree.Has(t.physical(key)), nil
}

func (t treeStore) Set(key, value []byte) error {
	t.tree.Set(t.physical(key), store.TagValue(store.LayoutCurrent, value))
	return nil
}

// SetTagged writes the record under an explicit layout tag, so legacy
// state can be seeded.
func (t treeStore) SetTagged(layout byte, key, value []byte) error {
	t.tree.Set(t.physical(key), store.TagValue(layout, value))
	return nil
}

func (t treeStore) Delete(key []byte) error {
	t.tree.Remove(t.physical(key))
	return nil
}

func (t treeStore) NewBatch() store.Batch {
	return store.NewNonAtomicBatch(t)
}

func (t treeStore) Child(root []byte) (store.KVStore, error) {
	id, err := store.ChildID(root)
	if err != nil {
		return nil, err
	}
	return treeStore{tree: t.tree, child: id}, nil
}

// Iterator over a domain of keys in ascending order. End is exclusive.
func (t treeStore) Iterator(start, end []byte) (store.Iterator, error) {
	return t.iterate(start, end, true)
}

// ReverseIterator over a domain of keys in descending order. End is exclusive.
func (t treeStore) ReverseIterator(start, end []byte) (store.Iterator, error) {
	return t.iterate(start, end, false)
}

func (t treeStore) iterate(start, end []byte, ascending bool) (store.Iterator, error) {
	prefix := t.prefix()
	from := append(append([]byte{}, prefix...), start...)
	var to []byte
	if end == nil {
		to = prefixEnd(prefix)
	} else {
		to = append(append([]byte{}, prefix...), end...)
	}

	var res []store.Model
	var iterErr error
	t.tree.IterateRange(from, to, ascending, func(key, value []byte) bool {
		_, logical, err := store.UntagValue(value)
		if err != nil {
			iterErr = err
			return true
		}
		res = append(res, store.Model{
			Key:   append([]byte{}, key[len(prefix):]...),
			Value: logical,
		})
		return false
	})
	if iterErr != nil {
		return nil, iterErr
	}
	return store.NewSliceIterator(res), nil
}

func (t treeStore) physical(key []byte) []byte {
	return append(t.prefix(), key...)
}

// prefix returns the key region of this namespace. Top keys live under
// 0x00, child keys under 0x01 followed by the length prefixed child id.
func (t treeStore) prefix() []byte {
	if t.child == nil {
		return []byte{0x00}
	}
	out := make([]byte, 0, len(t.child)+11)
	out = append(out, 0x01)
	var ln [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(ln[:], uint64(len(t.child)))
	out = append(out, ln[:n]...)
	return append(out, t.child...)
}

// topKey returns the physical key of a top namespace record.
func topKey(key []byte) []byte {
	return treeStore{}.physical(key)
}

// prefixEnd returns the smallest key that is above every key starting
// with the given prefix.
func prefixEnd(prefix []byte) []byte {
	out := append([]byte{}, prefix...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] < 0xff {
			out[i]++
			return out[:i+1]
		}
	}
	return nil
}
