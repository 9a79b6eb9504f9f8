package iavl

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iov-one/sweep/store"
)

func TestCommitStoreGetAfterCommit(t *testing.T) {
	s := MockCommitStore()

	cache := s.CacheWrap()
	require.NoError(t, cache.Set([]byte("mango"), []byte("juice")))
	require.NoError(t, cache.Write())

	// Not committed yet, the committed view is empty.
	got, err := s.Get([]byte("mango"))
	require.NoError(t, err)
	assert.Nil(t, got)

	id, err := s.Commit()
	require.NoError(t, err)
	assert.Equal(t, int64(1), id.Version)
	assert.NotEmpty(t, id.Hash)

	got, err = s.Get([]byte("mango"))
	require.NoError(t, err)
	assert.Equal(t, []byte("juice"), got)
}

func TestCommitStoreDiscard(t *testing.T) {
	s := MockCommitStore()

	cache := s.CacheWrap()
	require.NoError(t, cache.Set([]byte("tmp"), []byte("x")))
	cache.Discard()

	_, err := s.Commit()
	require.NoError(t, err)

	got, err := s.Get([]byte("tmp"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestChildRegionIsolation(t *testing.T) {
	s := MockCommitStore()
	root := store.ChildRootKey([]byte("spam"))

	cache := s.CacheWrap()
	ns := cache.(store.NamespaceStore)
	require.NoError(t, ns.Set([]byte("key"), []byte("top")))
	child, err := ns.Child(root)
	require.NoError(t, err)
	require.NoError(t, child.Set([]byte("key"), []byte("child")))
	require.NoError(t, cache.Write())

	check := s.CacheWrap().(store.NamespaceStore)
	got, err := check.Get([]byte("key"))
	require.NoError(t, err)
	assert.Equal(t, []byte("top"), got)

	childBack, err := check.Child(root)
	require.NoError(t, err)
	got, err = childBack.Get([]byte("key"))
	require.NoError(t, err)
	assert.Equal(t, []byte("child"), got)

	// Top iteration never shows child keys.
	it, err := check.Iterator(nil, nil)
	require.NoError(t, err)
	defer it.Close()
	for it.Valid() {
		assert.Equal(t, []byte("key"), it.Key())
		assert.Equal(t, []byte("top"), it.Value())
		require.NoError(t, it.Next())
	}
}

func TestLayoutChangesRootHash(t *testing.T) {
	legacy := MockCommitStore()
	require.NoError(t, legacy.SetTagged(store.LayoutLegacy, []byte("acc"), []byte("100")))
	lid, err := legacy.Commit()
	require.NoError(t, err)

	fresh := MockCommitStore()
	fc := fresh.CacheWrap()
	require.NoError(t, fc.Set([]byte("acc"), []byte("100")))
	require.NoError(t, fc.Write())
	fid, err := fresh.Commit()
	require.NoError(t, err)

	// Same logical value, different record layout, different root.
	assert.False(t, bytes.Equal(lid.Hash, fid.Hash))

	// Rewriting in place upgrades the layout and converges the roots.
	up := legacy.CacheWrap()
	v, err := up.Get([]byte("acc"))
	require.NoError(t, err)
	require.NoError(t, up.Set([]byte("acc"), v))
	require.NoError(t, up.Write())
	lid, err = legacy.Commit()
	require.NoError(t, err)
	assert.Equal(t, fid.Hash, lid.Hash)
}

func TestPrefixEnd(t *testing.T) {
	assert.Equal(t, []byte{0x01}, prefixEnd([]byte{0x00}))
	assert.Equal(t, []byte{0x02}, prefixEnd([]byte{0x01, 0xff}))
	assert.Nil(t, prefixEnd([]byte{0xff, 0xff}))
}
