// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package arb

import (
	"errors"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
	ethtypes "github.com/luxfi/geth/core/types"
)

// Test identities
var (
	adminAddr    = common.HexToAddress("0x0000000000000000000000000000000000000A01")
	executorAddr = common.HexToAddress("0x0000000000000000000000000000000000000A02")
	strangerAddr = common.HexToAddress("0x0000000000000000000000000000000000000A03")
	lenderAddr   = common.HexToAddress("0x0000000000000000000000000000000000000B01")
	tokenAddr    = common.HexToAddress("0x00000000000000000000000000000000000000AA")
	routerAAddr  = common.HexToAddress("0x0000000000000000000000000000000000000AB1")
	routerBAddr  = common.HexToAddress("0x0000000000000000000000000000000000000AB2")
)

func bigInt(v int64) *big.Int {
	return big.NewInt(v)
}

type mockSnapshot struct {
	storage  map[common.Address]map[common.Hash]common.Hash
	balances map[common.Address]*uint256.Int
	logCount int
}

// MockStateDB implements the StateDB interface for testing, with working
// snapshot semantics so revert paths can be verified.
type MockStateDB struct {
	storage     map[common.Address]map[common.Hash]common.Hash
	balances    map[common.Address]*uint256.Int
	accounts    map[common.Address]bool
	logs        []*ethtypes.Log
	blockNumber uint64
	snapshots   []mockSnapshot
}

func NewMockStateDB() *MockStateDB {
	return &MockStateDB{
		storage:  make(map[common.Address]map[common.Hash]common.Hash),
		balances: make(map[common.Address]*uint256.Int),
		accounts: make(map[common.Address]bool),
		logs:     make([]*ethtypes.Log, 0),
	}
}

func (m *MockStateDB) GetState(addr common.Address, key common.Hash) common.Hash {
	if m.storage[addr] == nil {
		return common.Hash{}
	}
	return m.storage[addr][key]
}

func (m *MockStateDB) SetState(addr common.Address, key, value common.Hash) {
	if m.storage[addr] == nil {
		m.storage[addr] = make(map[common.Hash]common.Hash)
	}
	m.storage[addr][key] = value
}

func (m *MockStateDB) GetBalance(addr common.Address) *uint256.Int {
	if bal, ok := m.balances[addr]; ok {
		return bal.Clone()
	}
	return uint256.NewInt(0)
}

func (m *MockStateDB) AddBalance(addr common.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) {
	if m.balances[addr] == nil {
		m.balances[addr] = uint256.NewInt(0)
	}
	m.balances[addr] = new(uint256.Int).Add(m.balances[addr], amount)
}

func (m *MockStateDB) SubBalance(addr common.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) {
	if m.balances[addr] == nil {
		m.balances[addr] = uint256.NewInt(0)
	}
	m.balances[addr] = new(uint256.Int).Sub(m.balances[addr], amount)
}

func (m *MockStateDB) Exist(addr common.Address) bool    { return m.accounts[addr] }
func (m *MockStateDB) CreateAccount(addr common.Address) { m.accounts[addr] = true }

func (m *MockStateDB) AddLog(log *ethtypes.Log) { m.logs = append(m.logs, log) }
func (m *MockStateDB) Logs() []*ethtypes.Log    { return m.logs }

func (m *MockStateDB) GetBlockNumber() uint64 { return m.blockNumber }

func (m *MockStateDB) Snapshot() int {
	snap := mockSnapshot{
		storage:  make(map[common.Address]map[common.Hash]common.Hash, len(m.storage)),
		balances: make(map[common.Address]*uint256.Int, len(m.balances)),
		logCount: len(m.logs),
	}
	for addr, slots := range m.storage {
		copied := make(map[common.Hash]common.Hash, len(slots))
		for k, v := range slots {
			copied[k] = v
		}
		snap.storage[addr] = copied
	}
	for addr, bal := range m.balances {
		snap.balances[addr] = bal.Clone()
	}
	m.snapshots = append(m.snapshots, snap)
	return len(m.snapshots) - 1
}

func (m *MockStateDB) RevertToSnapshot(revid int) {
	snap := m.snapshots[revid]
	m.storage = snap.storage
	m.balances = snap.balances
	m.logs = m.logs[:snap.logCount]
	m.snapshots = m.snapshots[:revid]
}

// mockLender credits the borrowed principal from its own liquidity, runs
// the engine's callback, and refuses to return unless it has been repaid
// in full.
type mockLender struct {
	engine *Engine
}

func (l *mockLender) RequestLoan(stateDB StateDB, token common.Address, amount *big.Int, data []byte) error {
	available := TokenBalance(stateDB, token, lenderAddr)
	if available.Cmp(amount) < 0 {
		return errors.New("lender: insufficient liquidity")
	}
	if err := TransferToken(stateDB, token, lenderAddr, arbEngineAddr, amount); err != nil {
		return err
	}
	if err := l.engine.OnLoanReceived(stateDB, lenderAddr, token, amount, data); err != nil {
		return err
	}
	if TokenBalance(stateDB, token, lenderAddr).Cmp(available) < 0 {
		return errors.New("lender: loan not repaid")
	}
	return nil
}

// swapRouter pulls its full allowance and returns it adjusted by delta,
// paid from (or kept in) its own reserves. A negative delta simulates a
// lossy route; fail short-circuits the leg.
type swapRouter struct {
	addr  common.Address
	token common.Address
	delta *big.Int
	fail  error
}

func (r *swapRouter) Execute(stateDB StateDB, _ []byte) error {
	if r.fail != nil {
		return r.fail
	}
	pull := TokenAllowance(stateDB, r.token, arbEngineAddr, r.addr)
	if err := TransferTokenFrom(stateDB, r.token, r.addr, arbEngineAddr, r.addr, pull); err != nil {
		return err
	}
	out := new(big.Int).Add(pull, r.delta)
	if out.Sign() <= 0 {
		return nil
	}
	return TransferToken(stateDB, r.token, r.addr, arbEngineAddr, out)
}

// reentrantRouter tries to submit a second plan mid-operation and records
// the engine's answer.
type reentrantRouter struct {
	engine *Engine
	plan   *ExecutionPlan
	caller common.Address
	result error
}

func (r *reentrantRouter) Execute(stateDB StateDB, _ []byte) error {
	r.result = r.engine.Submit(stateDB, r.caller, r.plan)
	return nil
}

// newTestEngine activates an engine with the standard test identities,
// seeds the lender's liquidity and each router's reserves, and wires the
// given router table. The lender is bound after construction so the mock
// can call back into the engine.
func newTestEngine(t *testing.T, mock *MockStateDB, routers RouterTable, threshold int64) *Engine {
	t.Helper()

	lender := &mockLender{}
	engine := NewEngine(lenderAddr, lender, routers)
	lender.engine = engine

	cfg := &Config{
		Admin:              adminAddr,
		Lender:             lenderAddr,
		Executors:          []common.Address{executorAddr},
		MinProfitThreshold: bigInt(threshold),
	}
	if err := engine.Activate(mock, cfg); err != nil {
		t.Fatalf("activate: %v", err)
	}

	SetTokenBalance(mock, tokenAddr, lenderAddr, bigInt(1_000_000))
	for addr := range routers {
		SetTokenBalance(mock, tokenAddr, addr, bigInt(1_000_000))
	}
	return engine
}

// singleLegPlan is the common fixture: one leg through router A.
func singleLegPlan(amountIn, expectedProfit int64) *ExecutionPlan {
	return &ExecutionPlan{
		TokenIn:        tokenAddr,
		AmountIn:       bigInt(amountIn),
		Routers:        []common.Address{routerAAddr},
		SwapData:       [][]byte{{0x01}},
		ExpectedProfit: bigInt(expectedProfit),
	}
}
