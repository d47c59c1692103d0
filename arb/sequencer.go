// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package arb

import (
	"errors"
	"math/big"

	"github.com/luxfi/geth/common"
)

// Router is an external swap router capability. The engine grants it a
// bounded allowance, forwards the opaque payload, and revokes the
// allowance; it never interprets the payload.
type Router interface {
	Execute(stateDB StateDB, payload []byte) error
}

// RouterFunc adapts a function to the Router interface.
type RouterFunc func(stateDB StateDB, payload []byte) error

func (f RouterFunc) Execute(stateDB StateDB, payload []byte) error {
	return f(stateDB, payload)
}

// RouterRegistry resolves a plan's router identity to its capability.
// Bound at deployment alongside the lender.
type RouterRegistry interface {
	Router(addr common.Address) (Router, bool)
}

// RouterTable is a fixed address-to-capability map.
type RouterTable map[common.Address]Router

func (t RouterTable) Router(addr common.Address) (Router, bool) {
	r, ok := t[addr]
	return r, ok
}

var (
	errRouterNotBound   = errors.New("router not bound")
	errNoWorkingCapital = errors.New("no working capital")
	errRouterDrained    = errors.New("router consumed balance without return")
)

// SwapSequencer executes an ordered list of swap legs. Each leg uses the
// engine's full current principal-token balance as working capital; the
// first leg spends the borrowed principal, later legs spend whatever the
// prior leg produced.
type SwapSequencer struct {
	routers RouterRegistry
}

// NewSwapSequencer creates a sequencer over the given router bindings.
func NewSwapSequencer(routers RouterRegistry) *SwapSequencer {
	return &SwapSequencer{routers: routers}
}

// Run executes every leg of the plan in order. The allowance granted to a
// leg's router is forced back to zero whether the leg succeeded or not,
// so no router keeps a standing approval. The first failing leg aborts
// the sequence with its index; no later leg runs.
func (s *SwapSequencer) Run(stateDB StateDB, plan *ExecutionPlan) error {
	for i, routerAddr := range plan.Routers {
		balance := TokenBalance(stateDB, plan.TokenIn, arbEngineAddr)
		if balance.Sign() <= 0 {
			return &SwapError{Leg: i, Err: errNoWorkingCapital}
		}

		router, ok := s.routers.Router(routerAddr)
		if !ok {
			return &SwapError{Leg: i, Err: errRouterNotBound}
		}

		ApproveToken(stateDB, plan.TokenIn, arbEngineAddr, routerAddr, balance)
		err := router.Execute(stateDB, plan.SwapData[i])
		ApproveToken(stateDB, plan.TokenIn, arbEngineAddr, routerAddr, new(big.Int))
		if err != nil {
			return &SwapError{Leg: i, Err: err}
		}

		// A leg that drains the balance without returning output is
		// this leg's failure, not the next leg's.
		if TokenBalance(stateDB, plan.TokenIn, arbEngineAddr).Sign() == 0 {
			return &SwapError{Leg: i, Err: errRouterDrained}
		}
	}
	return nil
}
