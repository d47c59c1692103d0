// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package arb

import (
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
)

// Treasury handles the value-movement tail of an operation: repaying the
// lender, forwarding net profit to the administrator, and the emergency
// sweeps for stray balances. It never decides whether settlement
// happens; VerifyProfit has already ruled by the time Settle runs.
type Treasury struct{}

// Settle repays exactly the borrowed principal of token to the lender
// and forwards profit to the administrator, then emits the
// operation-completed event. A short balance surfaces as
// ErrTransferFailed.
func (t *Treasury) Settle(
	stateDB StateDB,
	token common.Address,
	lender common.Address,
	admin common.Address,
	principal *big.Int,
	profit *big.Int,
	executor common.Address,
) error {
	if err := TransferToken(stateDB, token, arbEngineAddr, lender, principal); err != nil {
		return err
	}
	if err := TransferToken(stateDB, token, arbEngineAddr, admin, profit); err != nil {
		return err
	}

	topics := []common.Hash{
		TopicArbitrageExecuted,
		common.BytesToHash(token.Bytes()),
		common.BytesToHash(executor.Bytes()),
	}
	data := make([]byte, 64)
	principal.FillBytes(data[:32])
	profit.FillBytes(data[32:])
	emitLog(stateDB, topics, data)
	return nil
}

// EmergencyWithdraw sweeps the engine's entire ledger balance of token to
// the recipient. Used to recover stray balances outside any operation;
// never part of normal settlement.
func (t *Treasury) EmergencyWithdraw(stateDB StateDB, token, recipient common.Address) (*big.Int, error) {
	balance := TokenBalance(stateDB, token, arbEngineAddr)
	if balance.Sign() == 0 {
		return new(big.Int), nil
	}
	if err := TransferToken(stateDB, token, arbEngineAddr, recipient, balance); err != nil {
		return nil, err
	}

	topics := []common.Hash{
		TopicProfitWithdrawn,
		common.BytesToHash(token.Bytes()),
		common.BytesToHash(recipient.Bytes()),
	}
	data := make([]byte, 32)
	balance.FillBytes(data)
	emitLog(stateDB, topics, data)
	return balance, nil
}

// EmergencyWithdrawNative sweeps the engine's entire native balance to
// the recipient.
func (t *Treasury) EmergencyWithdrawNative(stateDB StateDB, recipient common.Address) (*big.Int, error) {
	balance := stateDB.GetBalance(arbEngineAddr)
	if balance.IsZero() {
		return new(big.Int), nil
	}
	amount := balance.Clone()
	stateDB.SubBalance(arbEngineAddr, amount, tracing.BalanceChangeTransfer)
	stateDB.AddBalance(recipient, amount, tracing.BalanceChangeTransfer)

	topics := []common.Hash{
		TopicProfitWithdrawn,
		common.BytesToHash(common.Address{}.Bytes()),
		common.BytesToHash(recipient.Bytes()),
	}
	data := make([]byte, 32)
	amount.ToBig().FillBytes(data)
	emitLog(stateDB, topics, data)
	return amount.ToBig(), nil
}
