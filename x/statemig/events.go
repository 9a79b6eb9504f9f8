package statemig

import (
	"strconv"

	"github.com/tendermint/tendermint/libs/common"

	"github.com/iov-one/sweep"
	"github.com/iov-one/sweep/coin"
)

// Tags emitted by this extension. They are the only observable signal
// of a background maintenance system, so keep them stable.
const (
	tagKey = "statemig"

	eventMigrated     = "migrated"
	eventSlashed      = "slashed"
	eventHalted       = "halted"
	eventAutoFinished = "auto-migration-finished"

	// computeAuto and computeSigned mark how a migration run was
	// triggered.
	computeAuto   = "auto"
	computeSigned = "signed"
)

func migratedTags(top, child uint32, compute string) []common.KVPair {
	return []common.KVPair{
		{Key: []byte(tagKey), Value: []byte(eventMigrated)},
		{Key: []byte(tagKey + ":top"), Value: itoa(top)},
		{Key: []byte(tagKey + ":child"), Value: itoa(child)},
		{Key: []byte(tagKey + ":compute"), Value: []byte(compute)},
	}
}

func slashedTags(who sweep.Address, amount coin.Coin) []common.KVPair {
	return []common.KVPair{
		{Key: []byte(tagKey), Value: []byte(eventSlashed)},
		{Key: []byte(tagKey + ":who"), Value: []byte(who.String())},
		{Key: []byte(tagKey + ":amount"), Value: []byte(amount.String())},
	}
}

func haltedTags(reason error) []common.KVPair {
	return []common.KVPair{
		{Key: []byte(tagKey), Value: []byte(eventHalted)},
		{Key: []byte(tagKey + ":error"), Value: []byte(reason.Error())},
	}
}

func autoFinishedTags() []common.KVPair {
	return []common.KVPair{
		{Key: []byte(tagKey), Value: []byte(eventAutoFinished)},
	}
}

// feeWaivedTag marks a delivery that must not be charged the dispatch
// fee. The fee decorator of the host application interprets it.
func feeWaivedTag() common.KVPair {
	return common.KVPair{Key: []byte("fee"), Value: []byte("waived")}
}

func itoa(n uint32) []byte {
	return []byte(strconv.FormatUint(uint64(n), 10))
}
