package store

import "github.com/iov-one/sweep/errors"

// Every value persisted by a namespace store is prefixed with a one
// byte layout tag. The tag versions the physical encoding of the
// record. Reads strip the tag, writes always produce the current
// layout, so rewriting a record under the legacy layout upgrades it.
const (
	// LayoutLegacy marks records persisted by previous releases.
	LayoutLegacy byte = 0x00
	// LayoutCurrent marks records in the current physical encoding.
	LayoutCurrent byte = 0x01
)

// TagValue builds the physical representation of a value.
func TagValue(layout byte, value []byte) []byte {
	out := make([]byte, 0, len(value)+1)
	out = append(out, layout)
	return append(out, value...)
}

// UntagValue splits a physical record into its layout tag and the
// logical value.
func UntagValue(physical []byte) (byte, []byte, error) {
	if len(physical) == 0 {
		return 0, nil, errors.Wrap(errors.ErrDatabase, "physical record without a layout tag")
	}
	switch tag := physical[0]; tag {
	case LayoutLegacy, LayoutCurrent:
		return tag, physical[1:], nil
	default:
		return 0, nil, errors.Wrapf(errors.ErrDatabase, "unknown layout tag: %d", physical[0])
	}
}
