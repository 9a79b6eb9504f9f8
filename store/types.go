//nolint
package store

import "github.com/iov-one/sweep"

// Move references for all storage types into this package
// for shorter names everywhere

type ReadOnlyKVStore = sweep.ReadOnlyKVStore
type KVStore = sweep.KVStore
type NamespaceStore = sweep.NamespaceStore
type SetDeleter = sweep.SetDeleter
type Batch = sweep.Batch
type Iterator = sweep.Iterator
type CacheableKVStore = sweep.CacheableKVStore
type KVCacheWrap = sweep.KVCacheWrap
type CommitKVStore = sweep.CommitKVStore
type CommitID = sweep.CommitID
type Model = sweep.Model
