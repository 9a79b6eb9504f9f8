package store

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStoreGetSet(t *testing.T) {
	db := NewMemStore()

	k, v := []byte("french"), []byte("fry")

	has, err := db.Has(k)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, db.Set(k, v))

	got, err := db.Get(k)
	require.NoError(t, err)
	assert.Equal(t, v, got)

	require.NoError(t, db.Delete(k))
	got, err = db.Get(k)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemStoreIterationOrder(t *testing.T) {
	db := NewMemStore()
	keys := [][]byte{[]byte("ccc"), []byte("aaa"), []byte("bbb")}
	for _, k := range keys {
		require.NoError(t, db.Set(k, []byte("x")))
	}

	it, err := db.Iterator(nil, nil)
	require.NoError(t, err)
	defer it.Close()

	var got [][]byte
	for it.Valid() {
		got = append(got, append([]byte{}, it.Key()...))
		require.NoError(t, it.Next())
	}
	want := [][]byte{[]byte("aaa"), []byte("bbb"), []byte("ccc")}
	assert.Equal(t, want, got)
}

func TestIteratorStripsLayoutTag(t *testing.T) {
	db := NewMemStore()
	require.NoError(t, db.SetTagged(LayoutLegacy, []byte("old"), []byte("one")))
	require.NoError(t, db.Set([]byte("new"), []byte("two")))

	it, err := db.Iterator(nil, nil)
	require.NoError(t, err)
	defer it.Close()

	for it.Valid() {
		switch string(it.Key()) {
		case "old":
			assert.Equal(t, []byte("one"), it.Value())
		case "new":
			assert.Equal(t, []byte("two"), it.Value())
		default:
			t.Fatalf("unexpected key: %q", it.Key())
		}
		require.NoError(t, it.Next())
	}
}

func TestRewriteUpgradesLayout(t *testing.T) {
	legacy := NewMemStore()
	require.NoError(t, legacy.SetTagged(LayoutLegacy, []byte("acc"), []byte("100")))

	fresh := NewMemStore()
	require.NoError(t, fresh.Set([]byte("acc"), []byte("100")))

	// Same logical content, different physical layout.
	lh, err := legacy.Hash()
	require.NoError(t, err)
	fh, err := fresh.Hash()
	require.NoError(t, err)
	assert.False(t, bytes.Equal(lh, fh))

	// Rewriting the record in place upgrades the layout.
	v, err := legacy.Get([]byte("acc"))
	require.NoError(t, err)
	require.NoError(t, legacy.Set([]byte("acc"), v))

	lh, err = legacy.Hash()
	require.NoError(t, err)
	assert.Equal(t, fh, lh)
}

func TestChildNamespaceIsolation(t *testing.T) {
	db := NewMemStore()
	root := ChildRootKey([]byte("spam"))

	child, err := db.Child(root)
	require.NoError(t, err)
	require.NoError(t, child.Set([]byte("egg"), []byte("1")))

	// Child keys do not show up in the top namespace.
	got, err := db.Get([]byte("egg"))
	require.NoError(t, err)
	assert.Nil(t, got)

	// The same root yields the same namespace.
	again, err := db.Child(root)
	require.NoError(t, err)
	got, err = again.Get([]byte("egg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)
}

func TestChildContentAffectsHash(t *testing.T) {
	a := NewMemStore()
	b := NewMemStore()
	root := ChildRootKey([]byte("spam"))

	require.NoError(t, a.SetChildTagged(root, LayoutCurrent, []byte("egg"), []byte("1")))
	require.NoError(t, b.SetChildTagged(root, LayoutCurrent, []byte("egg"), []byte("2")))

	ah, err := a.Hash()
	require.NoError(t, err)
	bh, err := b.Hash()
	require.NoError(t, err)
	assert.False(t, bytes.Equal(ah, bh))
}

func TestNamespaceCacheWrap(t *testing.T) {
	db := NewMemStore()
	root := ChildRootKey([]byte("spam"))
	require.NoError(t, db.Set([]byte("top"), []byte("old")))

	cache := db.CacheWrap()
	ns := cache.(NamespaceStore)

	require.NoError(t, ns.Set([]byte("top"), []byte("new")))
	child, err := ns.Child(root)
	require.NoError(t, err)
	require.NoError(t, child.Set([]byte("egg"), []byte("1")))

	// Not visible in the parent until written.
	got, err := db.Get([]byte("top"))
	require.NoError(t, err)
	assert.Equal(t, []byte("old"), got)

	require.NoError(t, cache.Write())

	got, err = db.Get([]byte("top"))
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got)

	direct, err := db.Child(root)
	require.NoError(t, err)
	got, err = direct.Get([]byte("egg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)
}

func TestNamespaceCacheWrapDiscard(t *testing.T) {
	db := NewMemStore()
	cache := db.CacheWrap()

	require.NoError(t, cache.Set([]byte("tmp"), []byte("x")))
	cache.Discard()

	got, err := db.Get([]byte("tmp"))
	require.NoError(t, err)
	assert.Nil(t, got)
}
