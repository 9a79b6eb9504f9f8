package statemig

import (
	"github.com/iov-one/sweep/errors"
)

const (
	pathContinueMigrateMsg      = "statemig/continue"
	pathMigrateCustomTopMsg     = "statemig/custom_top"
	pathMigrateCustomChildMsg   = "statemig/custom_child"
	pathControlAutoMigrationMsg = "statemig/control_auto"
	pathSetSignedMaxLimitsMsg   = "statemig/set_signed_max"
	pathForceSetProgressMsg     = "statemig/force_set_progress"
)

// ContinueMigrateMsg pushes the shared migration forward within the
// given budget. Witness must be the migration task the caller observed,
// the message is rejected when the persisted task differs.
//
// RealSizeUpper is the caller's upper bound claim on the bytes this run
// will touch. Underestimating it costs the caller the deposit.
type ContinueMigrateMsg struct {
	Limits        MigrationLimits
	RealSizeUpper uint32
	Witness       MigrationTask
}

func (ContinueMigrateMsg) Path() string {
	return pathContinueMigrateMsg
}

func (m *ContinueMigrateMsg) Validate() error {
	if err := m.Witness.ProgressTop.Validate(); err != nil {
		return errors.Wrap(err, "witness top cursor")
	}
	if err := m.Witness.ProgressChild.Validate(); err != nil {
		return errors.Wrap(err, "witness child cursor")
	}
	return nil
}

func (m *ContinueMigrateMsg) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryBare(m)
}

func (m *ContinueMigrateMsg) Unmarshal(raw []byte) error {
	return cdc.UnmarshalBinaryBare(raw, m)
}

// MigrateCustomTopMsg rewrites an explicit list of top keys. It never
// touches the shared migration task and exists as an escape hatch for
// keys left over due to a bug.
//
// WitnessSize is the caller's claim on the total bytes held under the
// listed keys. Overclaiming costs the caller the deposit.
type MigrateCustomTopMsg struct {
	Keys        [][]byte
	WitnessSize uint32
}

func (MigrateCustomTopMsg) Path() string {
	return pathMigrateCustomTopMsg
}

func (m *MigrateCustomTopMsg) Validate() error {
	if len(m.Keys) == 0 {
		return errors.Wrap(errors.ErrEmpty, "keys")
	}
	return nil
}

func (m *MigrateCustomTopMsg) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryBare(m)
}

func (m *MigrateCustomTopMsg) Unmarshal(raw []byte) error {
	return cdc.UnmarshalBinaryBare(raw, m)
}

// MigrateCustomChildMsg rewrites an explicit list of keys inside one
// child namespace. Like MigrateCustomTopMsg it never touches the shared
// migration task.
//
// TotalSize is the caller's claim on the total bytes held under the
// listed keys. Any mismatch costs the caller the deposit.
type MigrateCustomChildMsg struct {
	Root      []byte
	ChildKeys [][]byte
	TotalSize uint32
}

func (MigrateCustomChildMsg) Path() string {
	return pathMigrateCustomChildMsg
}

func (m *MigrateCustomChildMsg) Validate() error {
	if len(m.Root) == 0 {
		return errors.Wrap(errors.ErrEmpty, "root")
	}
	if len(m.ChildKeys) == 0 {
		return errors.Wrap(errors.ErrEmpty, "child keys")
	}
	return nil
}

func (m *MigrateCustomChildMsg) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryBare(m)
}

func (m *MigrateCustomChildMsg) Unmarshal(raw []byte) error {
	return cdc.UnmarshalBinaryBare(raw, m)
}

// ControlAutoMigrationMsg arms the automatic migration with the given
// limits, or disarms it when Limits is nil. Admin only.
type ControlAutoMigrationMsg struct {
	Limits *MigrationLimits
}

func (ControlAutoMigrationMsg) Path() string {
	return pathControlAutoMigrationMsg
}

func (m *ControlAutoMigrationMsg) Validate() error {
	return nil
}

func (m *ControlAutoMigrationMsg) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryBare(m)
}

func (m *ControlAutoMigrationMsg) Unmarshal(raw []byte) error {
	return cdc.UnmarshalBinaryBare(raw, m)
}

// SetSignedMaxLimitsMsg replaces the ceiling for signed migrations, or
// disables them when Limits is nil. Admin only.
type SetSignedMaxLimitsMsg struct {
	Limits *MigrationLimits
}

func (SetSignedMaxLimitsMsg) Path() string {
	return pathSetSignedMaxLimitsMsg
}

func (m *SetSignedMaxLimitsMsg) Validate() error {
	return nil
}

func (m *SetSignedMaxLimitsMsg) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryBare(m)
}

func (m *SetSignedMaxLimitsMsg) Unmarshal(raw []byte) error {
	return cdc.UnmarshalBinaryBare(raw, m)
}

// ForceSetProgressMsg overwrites both cursors directly, bypassing all
// invariants. Admin only. This is only useful to skip a key that is too
// big to be migrated, or to reset a wedged migration.
type ForceSetProgressMsg struct {
	ProgressTop   Progress
	ProgressChild Progress
}

func (ForceSetProgressMsg) Path() string {
	return pathForceSetProgressMsg
}

func (m *ForceSetProgressMsg) Validate() error {
	if err := m.ProgressTop.Validate(); err != nil {
		return errors.Wrap(err, "top cursor")
	}
	if err := m.ProgressChild.Validate(); err != nil {
		return errors.Wrap(err, "child cursor")
	}
	return nil
}

func (m *ForceSetProgressMsg) Marshal() ([]byte, error) {
	return cdc.MarshalBinaryBare(m)
}

func (m *ForceSetProgressMsg) Unmarshal(raw []byte) error {
	return cdc.UnmarshalBinaryBare(raw, m)
}
