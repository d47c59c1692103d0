// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package contract defines the interfaces between stateful precompiled
// contracts and the host EVM.
package contract

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
	ethtypes "github.com/luxfi/geth/core/types"
)

// StateDB is a precompile's view of host state. Snapshot and
// RevertToSnapshot scope a speculative mutation window: everything
// written after a Snapshot can be discarded atomically.
type StateDB interface {
	GetState(addr common.Address, key common.Hash) common.Hash
	SetState(addr common.Address, key common.Hash, value common.Hash)

	GetBalance(addr common.Address) *uint256.Int
	AddBalance(addr common.Address, amount *uint256.Int, reason tracing.BalanceChangeReason)
	SubBalance(addr common.Address, amount *uint256.Int, reason tracing.BalanceChangeReason)

	Exist(addr common.Address) bool
	CreateAccount(addr common.Address)

	AddLog(log *ethtypes.Log)
	GetBlockNumber() uint64

	Snapshot() int
	RevertToSnapshot(revid int)
}

// StatefulPrecompiledContract is a precompile's dispatch surface. Run
// decodes the input selector, meters gas against suppliedGas, and
// refuses state mutation when readOnly is set.
type StatefulPrecompiledContract interface {
	Run(
		stateDB StateDB,
		caller common.Address,
		input []byte,
		suppliedGas uint64,
		readOnly bool,
	) ([]byte, uint64, error)
}
