// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package arb

import (
	"sync"

	"github.com/luxfi/geth/common"
)

var pausedSlot = makeStorageKey([]byte("arb/paus"), nil)

// LifecycleGuard tracks the engine's paused flag and its reentrancy lock.
// The paused flag lives only in state, so a host-level revert and the
// guard can never disagree; the reentrancy lock is in-memory because an
// operation window never outlives the call chain that opened it.
// Operations are fully serialized: Enter refuses while a prior operation
// is still in flight, so no two operations ever have overlapping
// external-call windows.
type LifecycleGuard struct {
	mu sync.Mutex

	inOperation bool
}

// NewLifecycleGuard creates a guard in the Idle state.
func NewLifecycleGuard() *LifecycleGuard {
	return &LifecycleGuard{}
}

func readPaused(stateDB StateDB) bool {
	data := stateDB.GetState(arbEngineAddr, pausedSlot)
	return data[31] == 1
}

// Enter gates an operation-triggering entry point. It requires Active and
// Idle and atomically transitions to InOperation before the caller makes
// any external call. Every exit path must pair it with Exit.
func (g *LifecycleGuard) Enter(stateDB StateDB) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if readPaused(stateDB) {
		return ErrInactive
	}
	if g.inOperation {
		return ErrReentrant
	}
	g.inOperation = true
	return nil
}

// Exit returns the guard to Idle.
func (g *LifecycleGuard) Exit() {
	g.mu.Lock()
	g.inOperation = false
	g.mu.Unlock()
}

// Pause blocks new operations. Denied while an operation is in flight.
func (g *LifecycleGuard) Pause(stateDB StateDB) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inOperation {
		return ErrReentrant
	}
	var data common.Hash
	data[31] = 1
	stateDB.SetState(arbEngineAddr, pausedSlot, data)
	return nil
}

// Unpause re-enables operations. Denied while an operation is in flight.
func (g *LifecycleGuard) Unpause(stateDB StateDB) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inOperation {
		return ErrReentrant
	}
	stateDB.SetState(arbEngineAddr, pausedSlot, common.Hash{})
	return nil
}

// Paused reports whether new operations are blocked.
func (g *LifecycleGuard) Paused(stateDB StateDB) bool {
	return readPaused(stateDB)
}

// InOperation reports whether an operation is currently in flight.
func (g *LifecycleGuard) InOperation() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inOperation
}
