// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package arb

import (
	"math/big"

	"github.com/luxfi/geth/common"
)

// Storage key prefixes for the token ledger
var (
	balancePrefix   = []byte("arb/bal")
	allowancePrefix = []byte("arb/alw")
)

// The engine tracks token balances and allowances directly in its own
// storage, keyed by (token, holder) and (token, owner, spender). This is
// the precompile-host view of ERC20 state: amounts are 32-byte big-endian
// words in the engine's slots.

func balanceKey(token, holder common.Address) common.Hash {
	id := make([]byte, 0, 40)
	id = append(id, token.Bytes()...)
	id = append(id, holder.Bytes()...)
	return makeStorageKey(balancePrefix, id)
}

func allowanceKey(token, owner, spender common.Address) common.Hash {
	id := make([]byte, 0, 60)
	id = append(id, token.Bytes()...)
	id = append(id, owner.Bytes()...)
	id = append(id, spender.Bytes()...)
	return makeStorageKey(allowancePrefix, id)
}

func readAmount(stateDB StateDB, key common.Hash) *big.Int {
	data := stateDB.GetState(arbEngineAddr, key)
	return new(big.Int).SetBytes(data[:])
}

func writeAmount(stateDB StateDB, key common.Hash, amount *big.Int) {
	var data common.Hash
	amount.FillBytes(data[:])
	stateDB.SetState(arbEngineAddr, key, data)
}

// TokenBalance returns holder's ledger balance of token.
func TokenBalance(stateDB StateDB, token, holder common.Address) *big.Int {
	return readAmount(stateDB, balanceKey(token, holder))
}

// SetTokenBalance overwrites holder's ledger balance of token.
func SetTokenBalance(stateDB StateDB, token, holder common.Address, amount *big.Int) {
	writeAmount(stateDB, balanceKey(token, holder), amount)
}

// TransferToken moves amount of token from one holder to another.
// Fails with ErrTransferFailed when the sender's balance is short.
func TransferToken(stateDB StateDB, token, from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	fromBalance := TokenBalance(stateDB, token, from)
	if fromBalance.Cmp(amount) < 0 {
		return ErrTransferFailed
	}
	writeAmount(stateDB, balanceKey(token, from), new(big.Int).Sub(fromBalance, amount))
	toBalance := TokenBalance(stateDB, token, to)
	writeAmount(stateDB, balanceKey(token, to), new(big.Int).Add(toBalance, amount))
	return nil
}

// TokenAllowance returns the spending allowance owner has granted spender.
func TokenAllowance(stateDB StateDB, token, owner, spender common.Address) *big.Int {
	return readAmount(stateDB, allowanceKey(token, owner, spender))
}

// ApproveToken sets spender's allowance over owner's token balance.
// Setting zero revokes a standing approval.
func ApproveToken(stateDB StateDB, token, owner, spender common.Address, amount *big.Int) {
	writeAmount(stateDB, allowanceKey(token, owner, spender), amount)
}

// TransferTokenFrom moves amount of token from owner to recipient on
// spender's authority, decrementing the allowance. Fails with
// ErrTransferFailed when either the allowance or the balance is short.
func TransferTokenFrom(stateDB StateDB, token, spender, owner, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	allowance := TokenAllowance(stateDB, token, owner, spender)
	if allowance.Cmp(amount) < 0 {
		return ErrTransferFailed
	}
	if err := TransferToken(stateDB, token, owner, to, amount); err != nil {
		return err
	}
	ApproveToken(stateDB, token, owner, spender, new(big.Int).Sub(allowance, amount))
	return nil
}
