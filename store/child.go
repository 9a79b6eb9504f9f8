package store

import (
	"bytes"

	"github.com/iov-one/sweep/errors"
)

var (
	// ChildRootPrefix marks keys in the top namespace that declare a
	// child namespace. Any top key with this prefix refers to a child.
	ChildRootPrefix = []byte(":child_storage:")

	// DefaultChildRootPrefix is the only child root layout that is
	// currently understood. The remainder of the key is the child id.
	DefaultChildRootPrefix = []byte(":child_storage:default:")
)

// IsChildRoot returns true if the given top namespace key declares a
// child namespace. The key is not necessarily well formed.
func IsChildRoot(key []byte) bool {
	return bytes.HasPrefix(key, ChildRootPrefix)
}

// ChildID extracts the child namespace id from a child root key. It
// fails on keys that carry the child root prefix but are not in the
// default layout.
func ChildID(root []byte) ([]byte, error) {
	if !bytes.HasPrefix(root, DefaultChildRootPrefix) {
		return nil, errors.Wrapf(errors.ErrInput, "malformed child root: %X", root)
	}
	id := root[len(DefaultChildRootPrefix):]
	if len(id) == 0 {
		return nil, errors.Wrap(errors.ErrInput, "empty child id")
	}
	return id, nil
}

// ChildRootKey builds the top namespace key declaring the child
// namespace with the given id.
func ChildRootKey(id []byte) []byte {
	return append(append([]byte{}, DefaultChildRootPrefix...), id...)
}

// NextKey returns the first existing key in the store that is strictly
// greater than the given one. With a nil key the very first key is
// returned. It returns nil when there is no further key.
func NextKey(db ReadOnlyKVStore, key []byte) ([]byte, error) {
	var start []byte
	if key != nil {
		// 0x00 appended makes the lower bound exclusive.
		start = append(append([]byte{}, key...), 0)
	}
	it, err := db.Iterator(start, nil)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	if !it.Valid() {
		return nil, nil
	}
	return append([]byte{}, it.Key()...), nil
}
