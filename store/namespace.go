package store

// NamespaceCacheWrap buffers writes to a NamespaceStore, the top
// namespace and any touched child namespace alike, until Write is
// called.
type NamespaceCacheWrap struct {
	top      BTreeCacheWrap
	parent   NamespaceStore
	children map[string]KVCacheWrap
}

var _ KVCacheWrap = (*NamespaceCacheWrap)(nil)
var _ NamespaceStore = (*NamespaceCacheWrap)(nil)

// NewNamespaceCacheWrap initializes a cache over the given store. All
// reads fall through to the parent, all writes are buffered.
func NewNamespaceCacheWrap(parent NamespaceStore) *NamespaceCacheWrap {
	return &NamespaceCacheWrap{
		top:      NewBTreeCacheWrap(parent, parent.NewBatch(), nil),
		parent:   parent,
		children: make(map[string]KVCacheWrap),
	}
}

func (w *NamespaceCacheWrap) Get(key []byte) ([]byte, error) { return w.top.Get(key) }
func (w *NamespaceCacheWrap) Has(key []byte) (bool, error)   { return w.top.Has(key) }
func (w *NamespaceCacheWrap) Set(key, value []byte) error    { return w.top.Set(key, value) }
func (w *NamespaceCacheWrap) Delete(key []byte) error        { return w.top.Delete(key) }
func (w *NamespaceCacheWrap) NewBatch() Batch                { return NewNonAtomicBatch(w) }

func (w *NamespaceCacheWrap) Iterator(start, end []byte) (Iterator, error) {
	return w.top.Iterator(start, end)
}

func (w *NamespaceCacheWrap) ReverseIterator(start, end []byte) (Iterator, error) {
	return w.top.ReverseIterator(start, end)
}

// Child returns a buffered view of the child namespace. All child
// views share the fate of this wrap on Write and Discard.
func (w *NamespaceCacheWrap) Child(root []byte) (KVStore, error) {
	id, err := ChildID(root)
	if err != nil {
		return nil, err
	}
	if cw, ok := w.children[string(id)]; ok {
		return cw, nil
	}
	child, err := w.parent.Child(root)
	if err != nil {
		return nil, err
	}
	cw := NewBTreeCacheWrap(child, child.NewBatch(), nil)
	w.children[string(id)] = cw
	return cw, nil
}

// CacheWrap layers another buffer on top of this one.
func (w *NamespaceCacheWrap) CacheWrap() KVCacheWrap {
	return NewNamespaceCacheWrap(w)
}

// Write flushes the top namespace and every touched child namespace to
// the parent store.
func (w *NamespaceCacheWrap) Write() error {
	if err := w.top.Write(); err != nil {
		w.Discard()
		return err
	}
	for _, cw := range w.children {
		if err := cw.Write(); err != nil {
			w.Discard()
			return err
		}
	}
	w.children = make(map[string]KVCacheWrap)
	return nil
}

// Discard drops all buffered writes.
func (w *NamespaceCacheWrap) Discard() {
	w.top.Discard()
	for _, cw := range w.children {
		cw.Discard()
	}
	w.children = make(map[string]KVCacheWrap)
}
