// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package arb implements a flash-loan arbitrage execution engine as a
// stateful precompile. The engine borrows a token with no collateral from
// a bound lender, routes it through an ordered sequence of DEX router
// legs, verifies the balance delta against a minimum-profit threshold,
// and either settles (repay principal, forward profit to the
// administrator) or reverts every state mutation of the operation.
package arb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"
)

// Precompile address (LP-9100 LXArb)
// LP-aligned format: 0x0000000000000000000000000000000000LPNUM
const ArbEngineAddress = "0x0000000000000000000000000000000000009100"

var arbEngineAddr = common.HexToAddress(ArbEngineAddress)

// Gas costs for engine operations
const (
	GasExecute       uint64 = 50_000 // Full arbitrage operation (base)
	GasSwapLeg       uint64 = 10_000 // Per swap leg
	GasSettlement    uint64 = 8_000  // Repay + profit transfer
	GasAdminWrite    uint64 = 5_000  // Writing admin state
	GasAdminRead     uint64 = 200    // Reading admin state
	GasWithdraw      uint64 = 10_000 // Emergency withdrawal
	GasBalanceUpdate uint64 = 500    // Token ledger write
)

// Limits on execution plans
const (
	// MaxLegs bounds a plan's router sequence. Gas metering charges per
	// leg, so the bound only guards against absurd callback payloads.
	MaxLegs = 16

	// MaxSwapDataSize bounds a single leg's opaque router payload.
	MaxSwapDataSize = 4096
)

// Errors - authorization and lifecycle
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInactive        = errors.New("engine paused")
	ErrReentrant       = errors.New("reentrancy detected")
	ErrUntrustedCaller = errors.New("loan callback from untrusted caller")
)

// Errors - operation execution
var (
	ErrSwapFailed         = errors.New("swap failed")
	ErrNoProfitGenerated  = errors.New("no profit generated")
	ErrInsufficientProfit = errors.New("profit below minimum threshold")
	ErrTransferFailed     = errors.New("transfer failed")
	ErrInvalidPlan        = errors.New("invalid execution plan")
	ErrInvalidAmount      = errors.New("invalid amount")
)

// Errors - dispatch surface
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrInsufficientGas = errors.New("insufficient gas")
	ErrWriteProtection = errors.New("write protection")
)

// SwapError reports which leg of a swap sequence failed. It matches
// ErrSwapFailed under errors.Is so callers can test for the class while
// still reading the index.
type SwapError struct {
	Leg int
	Err error
}

func (e *SwapError) Error() string {
	return fmt.Sprintf("swap leg %d failed: %v", e.Leg, e.Err)
}

func (e *SwapError) Unwrap() error { return e.Err }

func (e *SwapError) Is(target error) bool { return target == ErrSwapFailed }

// ExecutionPlan is a fully-formed arbitrage route supplied by the external
// scanner. Routers and SwapData are parallel: leg i grants Routers[i] an
// allowance and forwards SwapData[i] opaquely. The engine never interprets
// payloads and never stores a plan past the operation that carried it.
type ExecutionPlan struct {
	TokenIn        common.Address   // Principal token
	AmountIn       *big.Int         // Principal amount to borrow
	Routers        []common.Address // One router per leg, in execution order
	SwapData       [][]byte         // Opaque pre-encoded router calls
	ExpectedProfit *big.Int         // Scanner's declared profit, prechecked against the threshold
}

// Validate checks the structural invariants of a plan.
func (p *ExecutionPlan) Validate() error {
	if p == nil {
		return ErrInvalidPlan
	}
	if p.AmountIn == nil || p.AmountIn.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if p.ExpectedProfit == nil || p.ExpectedProfit.Sign() < 0 {
		return fmt.Errorf("%w: negative expected profit", ErrInvalidPlan)
	}
	if len(p.Routers) == 0 {
		return fmt.Errorf("%w: no swap legs", ErrInvalidPlan)
	}
	if len(p.Routers) != len(p.SwapData) {
		return fmt.Errorf("%w: %d routers, %d payloads", ErrInvalidPlan, len(p.Routers), len(p.SwapData))
	}
	if len(p.Routers) > MaxLegs {
		return fmt.Errorf("%w: %d legs exceeds maximum %d", ErrInvalidPlan, len(p.Routers), MaxLegs)
	}
	for i, data := range p.SwapData {
		if len(data) > MaxSwapDataSize {
			return fmt.Errorf("%w: leg %d payload too large", ErrInvalidPlan, i)
		}
	}
	return nil
}

// ID computes the unique plan identifier.
func (p *ExecutionPlan) ID() [32]byte {
	h := blake3.New()
	h.Write(p.TokenIn.Bytes())
	h.Write(p.AmountIn.Bytes())
	for i, router := range p.Routers {
		h.Write(router.Bytes())
		h.Write(p.SwapData[i])
	}
	var id [32]byte
	h.Digest().Read(id[:])
	return id
}

// ToBytes serializes the plan for lender callback data.
// Layout: token(20) | amountIn(32) | expectedProfit(32) | legCount(2) |
// per leg: router(20) | payloadLen(4) | payload.
func (p *ExecutionPlan) ToBytes() []byte {
	size := 20 + 32 + 32 + 2
	for _, data := range p.SwapData {
		size += 20 + 4 + len(data)
	}
	out := make([]byte, 0, size)

	out = append(out, p.TokenIn.Bytes()...)

	var word [32]byte
	p.AmountIn.FillBytes(word[:])
	out = append(out, word[:]...)
	p.ExpectedProfit.FillBytes(word[:])
	out = append(out, word[:]...)

	var count [2]byte
	binary.BigEndian.PutUint16(count[:], uint16(len(p.Routers)))
	out = append(out, count[:]...)

	for i, router := range p.Routers {
		out = append(out, router.Bytes()...)
		var plen [4]byte
		binary.BigEndian.PutUint32(plen[:], uint32(len(p.SwapData[i])))
		out = append(out, plen[:]...)
		out = append(out, p.SwapData[i]...)
	}
	return out
}

// PlanFromBytes deserializes a plan from callback data.
func PlanFromBytes(data []byte) (*ExecutionPlan, error) {
	if len(data) < 20+32+32+2 {
		return nil, fmt.Errorf("%w: truncated plan data", ErrInvalidPlan)
	}
	p := &ExecutionPlan{}
	p.TokenIn = common.BytesToAddress(data[:20])
	p.AmountIn = new(big.Int).SetBytes(data[20:52])
	p.ExpectedProfit = new(big.Int).SetBytes(data[52:84])
	legs := int(binary.BigEndian.Uint16(data[84:86]))

	offset := 86
	p.Routers = make([]common.Address, 0, legs)
	p.SwapData = make([][]byte, 0, legs)
	for i := 0; i < legs; i++ {
		if len(data) < offset+24 {
			return nil, fmt.Errorf("%w: truncated leg %d", ErrInvalidPlan, i)
		}
		p.Routers = append(p.Routers, common.BytesToAddress(data[offset:offset+20]))
		plen := int(binary.BigEndian.Uint32(data[offset+20 : offset+24]))
		offset += 24
		if plen > MaxSwapDataSize || len(data) < offset+plen {
			return nil, fmt.Errorf("%w: truncated leg %d payload", ErrInvalidPlan, i)
		}
		payload := make([]byte, plen)
		copy(payload, data[offset:offset+plen])
		p.SwapData = append(p.SwapData, payload)
		offset += plen
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// makeStorageKey creates a storage key from prefix and identifier
func makeStorageKey(prefix []byte, id []byte) common.Hash {
	h := blake3.New()
	h.Write(prefix)
	h.Write(id)
	var key common.Hash
	h.Digest().Read(key[:])
	return key
}

// eventTopic derives a log topic from an event signature.
func eventTopic(signature string) common.Hash {
	h := blake3.New()
	h.Write([]byte(signature))
	var topic common.Hash
	h.Digest().Read(topic[:])
	return topic
}

// Event topics
var (
	TopicArbitrageExecuted = eventTopic("ArbitrageExecuted(address,uint256,uint256,address)")
	TopicArbitrageFailed   = eventTopic("ArbitrageFailed(address,uint256,string)")
	TopicProfitWithdrawn   = eventTopic("ProfitWithdrawn(address,uint256,address)")
	TopicPaused            = eventTopic("Paused(address)")
	TopicUnpaused          = eventTopic("Unpaused(address)")
	TopicAdminTransferred  = eventTopic("AdministrationTransferred(address,address)")
	TopicUpgraded          = eventTopic("Upgraded(address)")
)
