package store

import (
	"github.com/tendermint/tendermint/crypto/merkle"
)

// MemStore is an in-memory NamespaceStore. There is no persistence
// here, it is useful for tests and prototyping.
//
// Values are held in the physical record format, so the layout tag of
// every record is part of the state fingerprint returned by Hash.
type MemStore struct {
	top      *taggedStore
	children map[string]*taggedStore
}

var _ NamespaceStore = (*MemStore)(nil)
var _ CacheableKVStore = (*MemStore)(nil)

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		top:      newTaggedStore(),
		children: make(map[string]*taggedStore),
	}
}

// Get returns the logical value stored in the top namespace.
func (m *MemStore) Get(key []byte) ([]byte, error) { return m.top.Get(key) }

// Has checks existence in the top namespace.
func (m *MemStore) Has(key []byte) (bool, error) { return m.top.Has(key) }

// Set writes the value into the top namespace in the current layout.
func (m *MemStore) Set(key, value []byte) error { return m.top.Set(key, value) }

// Delete removes the key from the top namespace.
func (m *MemStore) Delete(key []byte) error { return m.top.Delete(key) }

// Iterator iterates the top namespace in ascending key order.
func (m *MemStore) Iterator(start, end []byte) (Iterator, error) {
	return m.top.Iterator(start, end)
}

// ReverseIterator iterates the top namespace in descending key order.
func (m *MemStore) ReverseIterator(start, end []byte) (Iterator, error) {
	return m.top.ReverseIterator(start, end)
}

// NewBatch returns a batch writing to the top namespace.
func (m *MemStore) NewBatch() Batch { return NewNonAtomicBatch(m) }

// CacheWrap returns a write buffer over this store that also buffers
// writes into child namespaces.
func (m *MemStore) CacheWrap() KVCacheWrap {
	return NewNamespaceCacheWrap(m)
}

// Child returns the namespace registered under the given child root
// key. The namespace is created on first use. Declaring the root key
// in the top namespace is left to the caller.
func (m *MemStore) Child(root []byte) (KVStore, error) {
	id, err := ChildID(root)
	if err != nil {
		return nil, err
	}
	c, ok := m.children[string(id)]
	if !ok {
		c = newTaggedStore()
		m.children[string(id)] = c
	}
	return c, nil
}

// SetTagged seeds a top namespace record under an explicit layout tag.
func (m *MemStore) SetTagged(layout byte, key, value []byte) error {
	return m.top.SetTagged(layout, key, value)
}

// SetChildTagged seeds a child namespace record under an explicit
// layout tag. The child root key is declared in the top namespace under
// the current layout if missing.
func (m *MemStore) SetChildTagged(root []byte, layout byte, key, value []byte) error {
	child, err := m.Child(root)
	if err != nil {
		return err
	}
	if ok, err := m.top.Has(root); err != nil {
		return err
	} else if !ok {
		if err := m.top.Set(root, []byte{}); err != nil {
			return err
		}
	}
	return child.(*taggedStore).SetTagged(layout, key, value)
}

// Hash returns a fingerprint over the physical state, child namespaces
// included. Two stores holding the same logical values under different
// record layouts produce different hashes.
func (m *MemStore) Hash() ([]byte, error) {
	top, err := m.top.physicalMap()
	if err != nil {
		return nil, err
	}
	for id, c := range m.children {
		sub, err := c.physicalMap()
		if err != nil {
			return nil, err
		}
		if len(sub) == 0 {
			continue
		}
		// The child fingerprint is folded into the top state under
		// the child root key, next to the root record itself.
		rootKey := string(ChildRootKey([]byte(id)))
		top[rootKey] = append(top[rootKey], merkle.SimpleHashFromMap(sub)...)
	}
	return merkle.SimpleHashFromMap(top), nil
}

// taggedStore keeps physical records in a btree and applies the layout
// tagging on every read and write.
type taggedStore struct {
	physical CacheableKVStore
}

var _ KVStore = (*taggedStore)(nil)

func newTaggedStore() *taggedStore {
	e := EmptyKVStore{}
	return &taggedStore{
		physical: NewBTreeCacheWrap(e, e.NewBatch(), nil),
	}
}

func (s *taggedStore) Get(key []byte) ([]byte, error) {
	raw, err := s.physical.Get(key)
	if err != nil || raw == nil {
		return nil, err
	}
	_, value, err := UntagValue(raw)
	return value, err
}

func (s *taggedStore) Has(key []byte) (bool, error) {
	return s.physical.Has(key)
}

func (s *taggedStore) Set(key, value []byte) error {
	return s.physical.Set(key, TagValue(LayoutCurrent, value))
}

// SetTagged writes the record under an explicit layout tag, so legacy
// state can be reconstructed.
func (s *taggedStore) SetTagged(layout byte, key, value []byte) error {
	return s.physical.Set(key, TagValue(layout, value))
}

func (s *taggedStore) Delete(key []byte) error {
	return s.physical.Delete(key)
}

func (s *taggedStore) Iterator(start, end []byte) (Iterator, error) {
	it, err := s.physical.Iterator(start, end)
	if err != nil {
		return nil, err
	}
	return &untagIter{it}, nil
}

func (s *taggedStore) ReverseIterator(start, end []byte) (Iterator, error) {
	it, err := s.physical.ReverseIterator(start, end)
	if err != nil {
		return nil, err
	}
	return &untagIter{it}, nil
}

func (s *taggedStore) NewBatch() Batch {
	return NewNonAtomicBatch(s)
}

// physicalMap snapshots all physical records, tags included.
func (s *taggedStore) physicalMap() (map[string][]byte, error) {
	out := make(map[string][]byte)
	it, err := s.physical.Iterator(nil, nil)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	for it.Valid() {
		out[string(it.Key())] = append([]byte{}, it.Value()...)
		if err := it.Next(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// untagIter exposes logical values of an iterator over physical
// records.
type untagIter struct {
	Iterator
}

func (i *untagIter) Value() []byte {
	raw := i.Iterator.Value()
	if len(raw) == 0 {
		return nil
	}
	return raw[1:]
}
