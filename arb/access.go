// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package arb

import (
	"github.com/luxfi/geth/common"
)

// Storage slots and prefixes for access state
var (
	adminSlot        = makeStorageKey([]byte("arb/admin"), nil)
	pendingAdminSlot = makeStorageKey([]byte("arb/admin"), []byte("pending"))
	executorPrefix   = []byte("arb/exec")
)

// AccessRegistry owns the administrator identity and the set of executor
// addresses permitted to submit execution plans. The administrator is
// implicitly always authorized. All mutation is administrator-only.
// Every read goes straight to state, so host-level reverts are always
// visible.
type AccessRegistry struct{}

// NewAccessRegistry creates a registry.
func NewAccessRegistry() *AccessRegistry {
	return &AccessRegistry{}
}

func readAddress(stateDB StateDB, slot common.Hash) common.Address {
	data := stateDB.GetState(arbEngineAddr, slot)
	return common.BytesToAddress(data[12:])
}

func writeAddress(stateDB StateDB, slot common.Hash, addr common.Address) {
	var data common.Hash
	copy(data[12:], addr.Bytes())
	stateDB.SetState(arbEngineAddr, slot, data)
}

func executorKey(id common.Address) common.Hash {
	return makeStorageKey(executorPrefix, id.Bytes())
}

// Initialize binds the administrator identity. Only effective while the
// admin slot is unset; later changes go through the two-step handoff.
func (ar *AccessRegistry) Initialize(stateDB StateDB, admin common.Address) {
	if readAddress(stateDB, adminSlot) == (common.Address{}) {
		writeAddress(stateDB, adminSlot, admin)
	}
}

// Admin returns the current administrator identity.
func (ar *AccessRegistry) Admin(stateDB StateDB) common.Address {
	return readAddress(stateDB, adminSlot)
}

// IsAuthorized reports whether id may submit an execution plan.
func (ar *AccessRegistry) IsAuthorized(stateDB StateDB, id common.Address) bool {
	if id == readAddress(stateDB, adminSlot) && id != (common.Address{}) {
		return true
	}
	data := stateDB.GetState(arbEngineAddr, executorKey(id))
	return data[31] == 1
}

// SetAuthorized flags or unflags an executor identity. Administrator-only
// and idempotent: re-setting an already-matching flag is not an error.
func (ar *AccessRegistry) SetAuthorized(stateDB StateDB, caller, id common.Address, authorized bool) error {
	if caller != readAddress(stateDB, adminSlot) {
		return ErrUnauthorized
	}

	var data common.Hash
	if authorized {
		data[31] = 1
	}
	stateDB.SetState(arbEngineAddr, executorKey(id), data)
	return nil
}

// TransferAdministration begins a two-step admin handoff. The current
// administrator nominates a successor; nothing changes until the
// successor accepts.
func (ar *AccessRegistry) TransferAdministration(stateDB StateDB, caller, newAdmin common.Address) error {
	if caller != readAddress(stateDB, adminSlot) {
		return ErrUnauthorized
	}
	if newAdmin == (common.Address{}) {
		return ErrInvalidInput
	}
	writeAddress(stateDB, pendingAdminSlot, newAdmin)
	return nil
}

// AcceptAdministration completes the handoff. Only the nominated
// successor may call it.
func (ar *AccessRegistry) AcceptAdministration(stateDB StateDB, caller common.Address) error {
	pending := readAddress(stateDB, pendingAdminSlot)
	if pending == (common.Address{}) || caller != pending {
		return ErrUnauthorized
	}

	previous := readAddress(stateDB, adminSlot)
	writeAddress(stateDB, adminSlot, pending)
	writeAddress(stateDB, pendingAdminSlot, common.Address{})

	topics := []common.Hash{
		TopicAdminTransferred,
		common.BytesToHash(previous.Bytes()),
		common.BytesToHash(pending.Bytes()),
	}
	emitLog(stateDB, topics, nil)
	return nil
}

// PendingAdmin returns the nominated successor, if any.
func (ar *AccessRegistry) PendingAdmin(stateDB StateDB) common.Address {
	return readAddress(stateDB, pendingAdminSlot)
}
