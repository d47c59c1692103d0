// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package arb

import (
	"math/big"
)

// VerifyProfit compares the principal-token balance before and after a
// swap sequence against the minimum-profit threshold. Arithmetic is exact
// integer math on the token's smallest unit; there is no rounding
// tolerance. Returns the realized profit for settlement.
func VerifyProfit(before, after, threshold *big.Int) (*big.Int, error) {
	if after.Cmp(before) <= 0 {
		return nil, ErrNoProfitGenerated
	}
	profit := new(big.Int).Sub(after, before)
	if profit.Cmp(threshold) < 0 {
		return nil, ErrInsufficientProfit
	}
	return profit, nil
}
