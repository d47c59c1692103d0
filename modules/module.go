// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package modules keeps the registry of stateful precompile modules and
// the reserved address ranges they may occupy.
package modules

import (
	"bytes"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/flasharb/contract"
)

// Module pairs a precompile contract with its fixed address and the key
// that names its config block in upgrade JSON.
type Module struct {
	ConfigKey string
	Address   common.Address
	Contract  contract.StatefulPrecompiledContract
}

type moduleArray []Module

func (m moduleArray) Len() int      { return len(m) }
func (m moduleArray) Swap(i, j int) { m[i], m[j] = m[j], m[i] }
func (m moduleArray) Less(i, j int) bool {
	return bytes.Compare(m[i].Address.Bytes(), m[j].Address.Bytes()) < 0
}
