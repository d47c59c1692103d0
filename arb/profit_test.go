// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package arb

import (
	"errors"
	"math/big"
	"testing"
)

func TestVerifyProfit(t *testing.T) {
	tests := []struct {
		name       string
		before     *big.Int
		after      *big.Int
		threshold  *big.Int
		wantProfit *big.Int
		wantErr    error
	}{
		{
			name:       "profit above threshold",
			before:     bigInt(1000),
			after:      bigInt(1050),
			threshold:  bigInt(20),
			wantProfit: bigInt(50),
		},
		{
			name:       "profit exactly at threshold",
			before:     bigInt(1000),
			after:      bigInt(1020),
			threshold:  bigInt(20),
			wantProfit: bigInt(20),
		},
		{
			name:      "profit below threshold",
			before:    bigInt(1000),
			after:     bigInt(1010),
			threshold: bigInt(20),
			wantErr:   ErrInsufficientProfit,
		},
		{
			name:      "loss",
			before:    bigInt(1000),
			after:     bigInt(995),
			threshold: bigInt(0),
			wantErr:   ErrNoProfitGenerated,
		},
		{
			name:      "break-even",
			before:    bigInt(1000),
			after:     bigInt(1000),
			threshold: bigInt(0),
			wantErr:   ErrNoProfitGenerated,
		},
		{
			name:       "one-unit profit with zero threshold",
			before:     bigInt(1000),
			after:      bigInt(1001),
			threshold:  bigInt(0),
			wantProfit: bigInt(1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profit, err := VerifyProfit(tt.before, tt.after, tt.threshold)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("VerifyProfit() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("VerifyProfit() error = %v", err)
			}
			if profit.Cmp(tt.wantProfit) != 0 {
				t.Errorf("profit = %v, want %v", profit, tt.wantProfit)
			}
		})
	}
}
