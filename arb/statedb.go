// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package arb

import (
	"github.com/luxfi/geth/common"
	ethtypes "github.com/luxfi/geth/core/types"

	"github.com/luxfi/flasharb/contract"
)

// StateDB is the engine's view of host state. Snapshot/RevertToSnapshot
// carry the all-or-nothing guarantee: the engine snapshots at operation
// entry and reverts on every failure path, so no partial swap or
// settlement state survives a failed operation.
type StateDB = contract.StateDB

// emitLog appends an engine event to the host log journal.
func emitLog(stateDB StateDB, topics []common.Hash, data []byte) {
	stateDB.AddLog(&ethtypes.Log{
		Address:     arbEngineAddr,
		Topics:      topics,
		Data:        data,
		BlockNumber: stateDB.GetBlockNumber(),
	})
}
