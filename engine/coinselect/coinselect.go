// Package coinselect decides which spendable objects fund an operation and
// which fund its execution fee. Selection is deterministic: the same coin set
// and amount always produce the same selection, so the call unit built from
// it is reproducible.
package coinselect

import (
	"errors"
	"fmt"

	"lendboard/ledger"
)

// Protocol constants. These must stay bit-exact with the deployed contracts.
const (
	// GasBudget is the fee reservation attached to every submitted unit,
	// denominated in minimal fee-coin units (0.5 of the fee coin).
	GasBudget uint64 = 500_000_000

	// MinGasBalance is the fee-coin balance gate: below it no operation is
	// attempted at all.
	MinGasBalance uint64 = 100_000_000

	// FeeCoinPreflightReserve is the smaller reservation applied only during
	// the fee-coin-spend pre-flight balance check. It is intentionally
	// distinct from GasBudget.
	FeeCoinPreflightReserve uint64 = 50_000_000
)

var (
	// ErrInvalidAmount rejects zero (or otherwise non-positive) requested
	// amounts before any object selection happens.
	ErrInvalidAmount = errors.New("coinselect: amount must be positive")

	// ErrInsufficientGas reports a fee-coin balance below the required
	// reservation.
	ErrInsufficientGas = errors.New("coinselect: insufficient gas balance")
)

// InsufficientFundsError reports the exact shortfall that prevented a
// selection.
type InsufficientFundsError struct {
	CoinType  string
	Required  uint64
	Available uint64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("coinselect: insufficient %s balance: need %d, have %d (short %d)",
		e.CoinType, e.Required, e.Available, e.Required-e.Available)
}

// Selection names the objects that fund an operation.
//
// When SpendFromGas is set the operation spends the fee coin itself: GasCoins
// cover both the requested amount and the fee budget, and the spend amount is
// split off the gas payment inside the unit. Otherwise SpendCoins fund the
// operation and GasCoins fund only the fee.
type Selection struct {
	SpendCoins   ledger.Coins
	GasCoins     ledger.Coins
	SpendFromGas bool
}

// ForSpend selects objects funding a spend of `amount` of `coinType` plus the
// fixed fee budget. assetCoins is the owner's set for the spent coin type and
// feeCoins the set for the fee coin; when the spent coin is the fee coin the
// two sets are the same and a combined selection is made.
func ForSpend(coinType string, amount uint64, assetCoins, feeCoins ledger.Coins) (Selection, error) {
	if amount == 0 {
		return Selection{}, ErrInvalidAmount
	}

	if coinType == ledger.FeeCoinType {
		total := amount + GasBudget
		if total < amount {
			return Selection{}, fmt.Errorf("coinselect: amount %d overflows with gas budget", amount)
		}
		available := feeCoins.Total()
		if available < total {
			return Selection{}, &InsufficientFundsError{
				CoinType:  coinType,
				Required:  total,
				Available: available,
			}
		}
		return Selection{GasCoins: cover(feeCoins, total), SpendFromGas: true}, nil
	}

	available := assetCoins.Total()
	if available < amount {
		return Selection{}, &InsufficientFundsError{
			CoinType:  coinType,
			Required:  amount,
			Available: available,
		}
	}
	gas, err := ForGas(feeCoins)
	if err != nil {
		return Selection{}, err
	}
	return Selection{SpendCoins: cover(assetCoins, amount), GasCoins: gas.GasCoins}, nil
}

// ForGas selects objects covering only the fee budget, for operations that do
// not spend coins themselves (withdrawals).
func ForGas(feeCoins ledger.Coins) (Selection, error) {
	available := feeCoins.Total()
	if available < GasBudget {
		return Selection{}, fmt.Errorf("%w: need %d, have %d", ErrInsufficientGas, GasBudget, available)
	}
	return Selection{GasCoins: cover(feeCoins, GasBudget)}, nil
}

// cover picks the smallest single coin whose amount covers the target when
// one exists, otherwise the full set in canonical order. Callers must have
// verified the set's total covers the target.
func cover(coins ledger.Coins, target uint64) ledger.Coins {
	sorted := coins.Sorted()
	for _, coin := range sorted {
		if coin.Amount >= target {
			return ledger.Coins{coin}
		}
	}
	return sorted
}
