// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package arb

import (
	"errors"
	"testing"

	"github.com/luxfi/geth/common"
)

func seedSequencerState(mock *MockStateDB, principal int64, routers ...common.Address) {
	SetTokenBalance(mock, tokenAddr, arbEngineAddr, bigInt(principal))
	for _, addr := range routers {
		SetTokenBalance(mock, tokenAddr, addr, bigInt(1_000_000))
	}
}

func TestSequencerChainsLegs(t *testing.T) {
	mock := NewMockStateDB()
	seq := NewSwapSequencer(RouterTable{
		routerAAddr: &swapRouter{addr: routerAAddr, token: tokenAddr, delta: bigInt(30)},
		routerBAddr: &swapRouter{addr: routerBAddr, token: tokenAddr, delta: bigInt(20)},
	})
	seedSequencerState(mock, 1000, routerAAddr, routerBAddr)

	plan := &ExecutionPlan{
		TokenIn:        tokenAddr,
		AmountIn:       bigInt(1000),
		Routers:        []common.Address{routerAAddr, routerBAddr},
		SwapData:       [][]byte{{0x01}, {0x02}},
		ExpectedProfit: bigInt(0),
	}
	if err := seq.Run(mock, plan); err != nil {
		t.Fatalf("run: %v", err)
	}

	// Leg 1 consumed leg 0's output of 1030 and returned 1050.
	if got := TokenBalance(mock, tokenAddr, arbEngineAddr); got.Cmp(bigInt(1050)) != 0 {
		t.Errorf("engine balance = %v, want 1050", got)
	}
	for _, addr := range plan.Routers {
		if got := TokenAllowance(mock, tokenAddr, arbEngineAddr, addr); got.Sign() != 0 {
			t.Errorf("allowance for %v = %v, want 0", addr, got)
		}
	}
}

func TestSequencerUnboundRouter(t *testing.T) {
	mock := NewMockStateDB()
	seq := NewSwapSequencer(RouterTable{})
	seedSequencerState(mock, 1000)

	err := seq.Run(mock, singleLegPlan(1000, 0))
	if !errors.Is(err, ErrSwapFailed) {
		t.Fatalf("run error = %v, want ErrSwapFailed", err)
	}
	var swapErr *SwapError
	if !errors.As(err, &swapErr) || swapErr.Leg != 0 {
		t.Errorf("failed leg = %v, want 0", swapErr)
	}
}

func TestSequencerNoWorkingCapital(t *testing.T) {
	mock := NewMockStateDB()
	seq := NewSwapSequencer(RouterTable{
		routerAAddr: &swapRouter{addr: routerAAddr, token: tokenAddr, delta: bigInt(30)},
	})

	// No principal was ever credited.
	err := seq.Run(mock, singleLegPlan(1000, 0))
	if !errors.Is(err, ErrSwapFailed) {
		t.Fatalf("run error = %v, want ErrSwapFailed", err)
	}
}

func TestSequencerDrainedBalance(t *testing.T) {
	mock := NewMockStateDB()
	seq := NewSwapSequencer(RouterTable{
		// Returns exactly nothing for the full pull.
		routerAAddr: &swapRouter{addr: routerAAddr, token: tokenAddr, delta: bigInt(-1000)},
	})
	seedSequencerState(mock, 1000, routerAAddr)

	err := seq.Run(mock, singleLegPlan(1000, 0))
	if !errors.Is(err, ErrSwapFailed) {
		t.Fatalf("run error = %v, want ErrSwapFailed", err)
	}
	var swapErr *SwapError
	if !errors.As(err, &swapErr) || swapErr.Leg != 0 {
		t.Errorf("failed leg = %v, want 0", swapErr)
	}
}

func TestSequencerRevokesAllowanceOnFailure(t *testing.T) {
	mock := NewMockStateDB()
	legErr := errors.New("router reverted")
	seq := NewSwapSequencer(RouterTable{
		routerAAddr: &swapRouter{addr: routerAAddr, token: tokenAddr, fail: legErr},
	})
	seedSequencerState(mock, 1000, routerAAddr)

	err := seq.Run(mock, singleLegPlan(1000, 0))
	if !errors.Is(err, legErr) {
		t.Fatalf("run error = %v, want %v", err, legErr)
	}
	if got := TokenAllowance(mock, tokenAddr, arbEngineAddr, routerAAddr); got.Sign() != 0 {
		t.Errorf("allowance after failed leg = %v, want 0", got)
	}
}
