// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package arb

import (
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"
)

// Storage slots for engine configuration state
var (
	minProfitSlot      = makeStorageKey([]byte("arb/minp"), nil)
	implementationSlot = makeStorageKey([]byte("arb/impl"), nil)
)

// Lender is the external flash-loan capability. RequestLoan is expected
// to credit the engine and synchronously invoke OnLoanReceived before
// returning; an error return (including one propagated out of the
// callback) means the loan did not happen.
type Lender interface {
	RequestLoan(stateDB StateDB, token common.Address, amount *big.Int, data []byte) error
}

// operation is the in-flight context of a single Submit call. It exists
// only between the loan request and its callback and is discarded when
// the operation ends, success or not.
type operation struct {
	caller common.Address
	planID [32]byte
	profit *big.Int
}

// Engine orchestrates a flash-loan arbitrage operation: authorization and
// lifecycle gating, the borrow, the swap sequence, profit verification,
// and settlement. All state mutations of one operation are speculative
// until settlement succeeds; any failure reverts to the entry snapshot.
type Engine struct {
	mu sync.Mutex

	access    *AccessRegistry
	guard     *LifecycleGuard
	sequencer *SwapSequencer
	treasury  *Treasury

	// Lender capability and its identity, bound at construction. The
	// identity is the only caller OnLoanReceived accepts.
	lender     Lender
	lenderAddr common.Address

	// pending is non-nil only while a Submit is between its loan request
	// and the callback's completion.
	pending *operation

	log log.Logger
}

// EngineOption configures an Engine at construction.
type EngineOption func(*Engine)

// WithLogger overrides the engine's logger.
func WithLogger(logger log.Logger) EngineOption {
	return func(e *Engine) { e.log = logger }
}

// NewEngine creates an engine bound to a lender capability and a set of
// router capabilities. The lender address is fixed for the engine's
// lifetime.
func NewEngine(lenderAddr common.Address, lender Lender, routers RouterRegistry, opts ...EngineOption) *Engine {
	e := &Engine{
		access:     NewAccessRegistry(),
		guard:      NewLifecycleGuard(),
		sequencer:  NewSwapSequencer(routers),
		treasury:   &Treasury{},
		lender:     lender,
		lenderAddr: lenderAddr,
		log:        log.NewTestLogger(log.Level(log.InfoLevel)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Activate initializes persistent engine state at deployment time:
// administrator, executor set, minimum-profit threshold, and the engine
// account itself. Re-activation never replaces an existing
// administrator, and the paused flag is untouched: it lives in state and
// carries across activations on its own.
func (e *Engine) Activate(stateDB StateDB, cfg *Config) error {
	if cfg == nil {
		return ErrInvalidInput
	}
	if cfg.Admin == (common.Address{}) {
		return ErrInvalidInput
	}

	if !stateDB.Exist(arbEngineAddr) {
		stateDB.CreateAccount(arbEngineAddr)
	}

	e.access.Initialize(stateDB, cfg.Admin)
	admin := e.access.Admin(stateDB)
	for _, executor := range cfg.Executors {
		if err := e.access.SetAuthorized(stateDB, admin, executor, true); err != nil {
			return err
		}
	}
	if cfg.MinProfitThreshold != nil {
		if cfg.MinProfitThreshold.Sign() < 0 {
			return ErrInvalidAmount
		}
		writeAmount(stateDB, minProfitSlot, cfg.MinProfitThreshold)
	}

	e.log.Info("engine activated", "admin", admin, "lender", e.lenderAddr,
		"executors", len(cfg.Executors))
	return nil
}

// Access returns the engine's access registry.
func (e *Engine) Access() *AccessRegistry { return e.access }

// Guard returns the engine's lifecycle guard.
func (e *Engine) Guard() *LifecycleGuard { return e.guard }

// Treasury returns the engine's treasury.
func (e *Engine) Treasury() *Treasury { return e.treasury }

// MinProfitThreshold returns the configured minimum profit, denominated
// in the principal token's smallest unit.
func (e *Engine) MinProfitThreshold(stateDB StateDB) *big.Int {
	return readAmount(stateDB, minProfitSlot)
}

// SetMinProfitThreshold updates the minimum profit. Administrator-only.
func (e *Engine) SetMinProfitThreshold(stateDB StateDB, caller common.Address, threshold *big.Int) error {
	if caller != e.access.Admin(stateDB) {
		return ErrUnauthorized
	}
	if threshold == nil || threshold.Sign() < 0 {
		return ErrInvalidAmount
	}
	writeAmount(stateDB, minProfitSlot, threshold)
	e.log.Info("min profit threshold updated", "threshold", threshold)
	return nil
}

// Pause blocks new operations. Administrator-only; denied mid-operation.
func (e *Engine) Pause(stateDB StateDB, caller common.Address) error {
	if caller != e.access.Admin(stateDB) {
		return ErrUnauthorized
	}
	if err := e.guard.Pause(stateDB); err != nil {
		return err
	}
	emitLog(stateDB, []common.Hash{TopicPaused, common.BytesToHash(caller.Bytes())}, nil)
	return nil
}

// Unpause re-enables operations. Administrator-only.
func (e *Engine) Unpause(stateDB StateDB, caller common.Address) error {
	if caller != e.access.Admin(stateDB) {
		return ErrUnauthorized
	}
	if err := e.guard.Unpause(stateDB); err != nil {
		return err
	}
	emitLog(stateDB, []common.Hash{TopicUnpaused, common.BytesToHash(caller.Bytes())}, nil)
	return nil
}

// SetImplementation records a replacement logic address. The engine's
// upgrade authority: administrator-only, recorded in state so the host
// can route to the successor.
func (e *Engine) SetImplementation(stateDB StateDB, caller, implementation common.Address) error {
	if caller != e.access.Admin(stateDB) {
		return ErrUnauthorized
	}
	if implementation == (common.Address{}) {
		return ErrInvalidInput
	}
	writeAddress(stateDB, implementationSlot, implementation)
	emitLog(stateDB, []common.Hash{TopicUpgraded, common.BytesToHash(implementation.Bytes())}, nil)
	return nil
}

// Implementation returns the recorded replacement logic address, if any.
func (e *Engine) Implementation(stateDB StateDB) common.Address {
	return readAddress(stateDB, implementationSlot)
}

// EmergencyWithdraw sweeps the engine's entire ledger balance of token to
// the administrator. Administrator-only.
func (e *Engine) EmergencyWithdraw(stateDB StateDB, caller, token common.Address) (*big.Int, error) {
	admin := e.access.Admin(stateDB)
	if caller != admin {
		return nil, ErrUnauthorized
	}
	return e.treasury.EmergencyWithdraw(stateDB, token, admin)
}

// EmergencyWithdrawNative sweeps the engine's entire native balance to
// the administrator. Administrator-only.
func (e *Engine) EmergencyWithdrawNative(stateDB StateDB, caller common.Address) (*big.Int, error) {
	admin := e.access.Admin(stateDB)
	if caller != admin {
		return nil, ErrUnauthorized
	}
	return e.treasury.EmergencyWithdrawNative(stateDB, admin)
}

// Submit runs one flash-loan arbitrage operation end to end. The caller
// must be an authorized executor (or the administrator), the plan's
// declared profit must clear the threshold, and the engine must be
// Active and Idle. Every state mutation between here and settlement is
// speculative: any failure reverts to the snapshot taken on entry, so a
// failed operation leaves the engine's net balances exactly as they were.
func (e *Engine) Submit(stateDB StateDB, caller common.Address, plan *ExecutionPlan) error {
	if err := plan.Validate(); err != nil {
		return err
	}
	if !e.access.IsAuthorized(stateDB, caller) {
		return ErrUnauthorized
	}
	if plan.ExpectedProfit.Cmp(e.MinProfitThreshold(stateDB)) < 0 {
		return ErrInsufficientProfit
	}
	if err := e.guard.Enter(stateDB); err != nil {
		return err
	}
	defer e.guard.Exit()

	planID := plan.ID()
	op := &operation{caller: caller, planID: planID}
	e.mu.Lock()
	e.pending = op
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.pending = nil
		e.mu.Unlock()
	}()

	snapshot := stateDB.Snapshot()
	err := e.lender.RequestLoan(stateDB, plan.TokenIn, plan.AmountIn, plan.ToBytes())
	if err != nil {
		stateDB.RevertToSnapshot(snapshot)
		e.emitFailed(stateDB, plan, err)
		e.log.Warn("arbitrage failed", "plan", common.Hash(planID), "token", plan.TokenIn,
			"amountIn", plan.AmountIn, "err", err)
		return err
	}

	e.log.Info("arbitrage executed", "plan", common.Hash(planID), "token", plan.TokenIn,
		"amountIn", plan.AmountIn, "profit", op.profit, "executor", caller)
	return nil
}

// OnLoanReceived is the lender's synchronous callback during RequestLoan.
// It is the only foreign reentry the engine accepts, and only from the
// lender identity bound at construction, and only while a Submit is in
// flight. The pending operation is claimed exactly once: a second
// callback within the same operation fails with ErrUntrustedCaller. It
// runs the swap sequence, verifies profit, and settles; any error
// propagates back through the lender so Submit can revert.
func (e *Engine) OnLoanReceived(stateDB StateDB, caller, token common.Address, amount *big.Int, data []byte) error {
	if caller != e.lenderAddr {
		return ErrUntrustedCaller
	}
	e.mu.Lock()
	op := e.pending
	e.pending = nil
	e.mu.Unlock()
	if op == nil {
		return ErrUntrustedCaller
	}

	plan, err := PlanFromBytes(data)
	if err != nil {
		return err
	}
	if plan.ID() != op.planID {
		return ErrInvalidPlan
	}
	if plan.TokenIn != token || plan.AmountIn.Cmp(amount) != 0 {
		return ErrInvalidPlan
	}

	// Balance snapshot immediately before swap execution; the borrowed
	// principal is already credited, so the delta below is pure profit.
	before := TokenBalance(stateDB, token, arbEngineAddr)

	if err := e.sequencer.Run(stateDB, plan); err != nil {
		return err
	}

	after := TokenBalance(stateDB, token, arbEngineAddr)
	profit, err := VerifyProfit(before, after, e.MinProfitThreshold(stateDB))
	if err != nil {
		return err
	}

	admin := e.access.Admin(stateDB)
	if err := e.treasury.Settle(stateDB, token, e.lenderAddr, admin, amount, profit, op.caller); err != nil {
		return err
	}
	op.profit = profit
	return nil
}

// emitFailed records a rejected operation after its state has been
// reverted, carrying the diagnostic the scanner needs.
func (e *Engine) emitFailed(stateDB StateDB, plan *ExecutionPlan, cause error) {
	topics := []common.Hash{
		TopicArbitrageFailed,
		common.BytesToHash(plan.TokenIn.Bytes()),
	}
	data := make([]byte, 32, 32+len(cause.Error()))
	plan.AmountIn.FillBytes(data[:32])
	data = append(data, []byte(cause.Error())...)
	emitLog(stateDB, topics, data)
}
