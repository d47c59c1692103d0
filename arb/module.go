// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package arb

import (
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/sugawarayuuta/sonnet"

	"github.com/luxfi/flasharb/contract"
	"github.com/luxfi/flasharb/modules"
)

var _ contract.StatefulPrecompiledContract = (*ArbContract)(nil)

// ConfigKey is the key used in json config files to specify this precompile config.
const ConfigKey = "flashArbConfig"

// Function selectors (first 4 bytes of keccak256 of function signature)
var (
	// Execution
	SelectorExecuteArbitrage = [4]byte{0xa8, 0x3f, 0x11, 0xe4} // executeArbitrage(bytes)

	// Admin write functions
	SelectorSetExecutor            = [4]byte{0x2c, 0xb5, 0x7c, 0x48} // setExecutor(address,bool)
	SelectorSetMinProfitThreshold  = [4]byte{0x9d, 0x0e, 0x5a, 0xb1} // setMinProfitThreshold(uint256)
	SelectorPause                  = [4]byte{0x84, 0x56, 0xcb, 0x59} // pause()
	SelectorUnpause                = [4]byte{0x3f, 0x4b, 0xa8, 0x3a} // unpause()
	SelectorEmergencyWithdraw      = [4]byte{0x62, 0x11, 0xd9, 0x07} // emergencyWithdraw(address)
	SelectorEmergencyWithdrawGas   = [4]byte{0xdb, 0x2e, 0x21, 0xbc} // emergencyWithdrawNative()
	SelectorTransferAdministration = [4]byte{0xf2, 0xfd, 0xe3, 0x8b} // transferAdministration(address)
	SelectorAcceptAdministration   = [4]byte{0x79, 0xba, 0x50, 0x97} // acceptAdministration()
	SelectorSetImplementation      = [4]byte{0xd7, 0x84, 0xd4, 0x26} // setImplementation(address)

	// View functions
	SelectorIsAuthorized       = [4]byte{0xfe, 0x9f, 0xbb, 0x80} // isAuthorized(address)
	SelectorMinProfitThreshold = [4]byte{0x31, 0x7e, 0x2a, 0x7f} // minProfitThreshold()
	SelectorPaused             = [4]byte{0x5c, 0x97, 0x5a, 0xbb} // paused()
	SelectorAdmin              = [4]byte{0xf8, 0x51, 0xa4, 0x40} // admin()
	SelectorPendingAdmin       = [4]byte{0x26, 0x78, 0x22, 0x47} // pendingAdmin()
	SelectorImplementation     = [4]byte{0x5c, 0x60, 0xda, 0x1b} // implementation()
)

// Config is the activation-time engine configuration, decoded from the
// chain's upgrade JSON.
type Config struct {
	Admin              common.Address   `json:"admin"`
	Lender             common.Address   `json:"lender"`
	Executors          []common.Address `json:"executors"`
	MinProfitThreshold *big.Int         `json:"minProfitThreshold"`
}

// ParseConfig decodes a JSON engine configuration.
func ParseConfig(data []byte) (*Config, error) {
	cfg := new(Config)
	if err := sonnet.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Verify checks configuration invariants before activation.
func (c *Config) Verify() error {
	if c.Admin == (common.Address{}) {
		return ErrInvalidInput
	}
	if c.Lender == (common.Address{}) {
		return ErrInvalidInput
	}
	if c.MinProfitThreshold != nil && c.MinProfitThreshold.Sign() < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ArbContract is the precompile surface over the engine. It dispatches
// on function selector, meters gas, and enforces write protection.
type ArbContract struct {
	engine *Engine
}

// NewArbContract wraps an engine in its precompile dispatch surface.
func NewArbContract(engine *Engine) *ArbContract {
	return &ArbContract{engine: engine}
}

// Engine returns the wrapped engine.
func (c *ArbContract) Engine() *Engine { return c.engine }

// Register enters the contract into the precompile registry at the
// engine address. Called after the lender and router bindings exist.
func Register(c *ArbContract) error {
	return modules.RegisterModule(modules.Module{
		ConfigKey: ConfigKey,
		Address:   arbEngineAddr,
		Contract:  c,
	})
}

// Run dispatches a call to the engine.
func (c *ArbContract) Run(
	stateDB StateDB,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if len(input) < 4 {
		return nil, suppliedGas, ErrInvalidInput
	}

	var selector [4]byte
	copy(selector[:], input[:4])
	args := input[4:]

	switch selector {
	case SelectorExecuteArbitrage:
		return c.executeArbitrage(stateDB, caller, args, suppliedGas, readOnly)

	case SelectorSetExecutor:
		return c.setExecutor(stateDB, caller, args, suppliedGas, readOnly)
	case SelectorSetMinProfitThreshold:
		return c.setMinProfitThreshold(stateDB, caller, args, suppliedGas, readOnly)
	case SelectorPause:
		return c.pause(stateDB, caller, suppliedGas, readOnly)
	case SelectorUnpause:
		return c.unpause(stateDB, caller, suppliedGas, readOnly)
	case SelectorEmergencyWithdraw:
		return c.emergencyWithdraw(stateDB, caller, args, suppliedGas, readOnly)
	case SelectorEmergencyWithdrawGas:
		return c.emergencyWithdrawNative(stateDB, caller, suppliedGas, readOnly)
	case SelectorTransferAdministration:
		return c.transferAdministration(stateDB, caller, args, suppliedGas, readOnly)
	case SelectorAcceptAdministration:
		return c.acceptAdministration(stateDB, caller, suppliedGas, readOnly)
	case SelectorSetImplementation:
		return c.setImplementation(stateDB, caller, args, suppliedGas, readOnly)

	case SelectorIsAuthorized:
		return c.isAuthorized(stateDB, args, suppliedGas)
	case SelectorMinProfitThreshold:
		return c.minProfitThreshold(stateDB, suppliedGas)
	case SelectorPaused:
		return c.paused(stateDB, suppliedGas)
	case SelectorAdmin:
		return c.admin(stateDB, suppliedGas)
	case SelectorPendingAdmin:
		return c.pendingAdmin(stateDB, suppliedGas)
	case SelectorImplementation:
		return c.implementation(stateDB, suppliedGas)

	default:
		return nil, suppliedGas, ErrInvalidInput
	}
}

func (c *ArbContract) executeArbitrage(
	stateDB StateDB,
	caller common.Address,
	args []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, ErrWriteProtection
	}

	plan, err := PlanFromBytes(args)
	if err != nil {
		return nil, suppliedGas, err
	}

	cost := GasExecute + GasSwapLeg*uint64(len(plan.Routers)) + GasSettlement
	if suppliedGas < cost {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - cost

	if err := c.engine.Submit(stateDB, caller, plan); err != nil {
		return nil, remainingGas, err
	}

	id := plan.ID()
	return id[:], remainingGas, nil
}

func (c *ArbContract) setExecutor(
	stateDB StateDB,
	caller common.Address,
	args []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, ErrWriteProtection
	}
	if suppliedGas < GasAdminWrite {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasAdminWrite

	if len(args) < 64 {
		return nil, remainingGas, ErrInvalidInput
	}
	executor := common.BytesToAddress(args[12:32])
	authorized := args[63] != 0

	if err := c.engine.Access().SetAuthorized(stateDB, caller, executor, authorized); err != nil {
		return nil, remainingGas, err
	}
	return nil, remainingGas, nil
}

func (c *ArbContract) setMinProfitThreshold(
	stateDB StateDB,
	caller common.Address,
	args []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, ErrWriteProtection
	}
	if suppliedGas < GasAdminWrite {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasAdminWrite

	if len(args) < 32 {
		return nil, remainingGas, ErrInvalidInput
	}
	threshold := new(big.Int).SetBytes(args[:32])

	if err := c.engine.SetMinProfitThreshold(stateDB, caller, threshold); err != nil {
		return nil, remainingGas, err
	}
	return nil, remainingGas, nil
}

func (c *ArbContract) pause(
	stateDB StateDB,
	caller common.Address,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, ErrWriteProtection
	}
	if suppliedGas < GasAdminWrite {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasAdminWrite

	if err := c.engine.Pause(stateDB, caller); err != nil {
		return nil, remainingGas, err
	}
	return nil, remainingGas, nil
}

func (c *ArbContract) unpause(
	stateDB StateDB,
	caller common.Address,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, ErrWriteProtection
	}
	if suppliedGas < GasAdminWrite {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasAdminWrite

	if err := c.engine.Unpause(stateDB, caller); err != nil {
		return nil, remainingGas, err
	}
	return nil, remainingGas, nil
}

func (c *ArbContract) emergencyWithdraw(
	stateDB StateDB,
	caller common.Address,
	args []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, ErrWriteProtection
	}
	if suppliedGas < GasWithdraw {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasWithdraw

	if len(args) < 32 {
		return nil, remainingGas, ErrInvalidInput
	}
	token := common.BytesToAddress(args[12:32])

	amount, err := c.engine.EmergencyWithdraw(stateDB, caller, token)
	if err != nil {
		return nil, remainingGas, err
	}
	result := make([]byte, 32)
	amount.FillBytes(result)
	return result, remainingGas, nil
}

func (c *ArbContract) emergencyWithdrawNative(
	stateDB StateDB,
	caller common.Address,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, ErrWriteProtection
	}
	if suppliedGas < GasWithdraw {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasWithdraw

	amount, err := c.engine.EmergencyWithdrawNative(stateDB, caller)
	if err != nil {
		return nil, remainingGas, err
	}
	result := make([]byte, 32)
	amount.FillBytes(result)
	return result, remainingGas, nil
}

func (c *ArbContract) transferAdministration(
	stateDB StateDB,
	caller common.Address,
	args []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, ErrWriteProtection
	}
	if suppliedGas < GasAdminWrite {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasAdminWrite

	if len(args) < 32 {
		return nil, remainingGas, ErrInvalidInput
	}
	successor := common.BytesToAddress(args[12:32])

	if err := c.engine.Access().TransferAdministration(stateDB, caller, successor); err != nil {
		return nil, remainingGas, err
	}
	return nil, remainingGas, nil
}

func (c *ArbContract) acceptAdministration(
	stateDB StateDB,
	caller common.Address,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, ErrWriteProtection
	}
	if suppliedGas < GasAdminWrite {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasAdminWrite

	if err := c.engine.Access().AcceptAdministration(stateDB, caller); err != nil {
		return nil, remainingGas, err
	}
	return nil, remainingGas, nil
}

func (c *ArbContract) setImplementation(
	stateDB StateDB,
	caller common.Address,
	args []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, ErrWriteProtection
	}
	if suppliedGas < GasAdminWrite {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasAdminWrite

	if len(args) < 32 {
		return nil, remainingGas, ErrInvalidInput
	}
	implementation := common.BytesToAddress(args[12:32])

	if err := c.engine.SetImplementation(stateDB, caller, implementation); err != nil {
		return nil, remainingGas, err
	}
	return nil, remainingGas, nil
}

// View functions

func (c *ArbContract) isAuthorized(stateDB StateDB, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < GasAdminRead {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasAdminRead

	if len(args) < 32 {
		return nil, remainingGas, ErrInvalidInput
	}
	executor := common.BytesToAddress(args[12:32])

	result := make([]byte, 32)
	if c.engine.Access().IsAuthorized(stateDB, executor) {
		result[31] = 1
	}
	return result, remainingGas, nil
}

func (c *ArbContract) minProfitThreshold(stateDB StateDB, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < GasAdminRead {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasAdminRead

	result := make([]byte, 32)
	c.engine.MinProfitThreshold(stateDB).FillBytes(result)
	return result, remainingGas, nil
}

func (c *ArbContract) paused(stateDB StateDB, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < GasAdminRead {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasAdminRead

	result := make([]byte, 32)
	if c.engine.Guard().Paused(stateDB) {
		result[31] = 1
	}
	return result, remainingGas, nil
}

func (c *ArbContract) admin(stateDB StateDB, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < GasAdminRead {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasAdminRead

	result := make([]byte, 32)
	copy(result[12:], c.engine.Access().Admin(stateDB).Bytes())
	return result, remainingGas, nil
}

func (c *ArbContract) pendingAdmin(stateDB StateDB, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < GasAdminRead {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasAdminRead

	result := make([]byte, 32)
	copy(result[12:], c.engine.Access().PendingAdmin(stateDB).Bytes())
	return result, remainingGas, nil
}

func (c *ArbContract) implementation(stateDB StateDB, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < GasAdminRead {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasAdminRead

	result := make([]byte, 32)
	copy(result[12:], c.engine.Implementation(stateDB).Bytes())
	return result, remainingGas, nil
}
