package coinselect

import (
	"errors"
	"testing"

	"lendboard/ledger"
)

func coins(amounts ...uint64) ledger.Coins {
	out := make(ledger.Coins, len(amounts))
	for i, amount := range amounts {
		out[i] = ledger.Coin{ID: ledger.ObjectID(rune('a' + i)), Amount: amount}
	}
	return out
}

func TestForSpendRejectsZeroAmount(t *testing.T) {
	_, err := ForSpend(ledger.FeeCoinType, 0, nil, coins(1_000_000_000))
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestForSpendFeeCoinBoundary(t *testing.T) {
	amount := uint64(50_000_000)

	exact := coins(amount + GasBudget)
	sel, err := ForSpend(ledger.FeeCoinType, amount, exact, exact)
	if err != nil {
		t.Fatalf("boundary balance must succeed, got %v", err)
	}
	if !sel.SpendFromGas {
		t.Fatalf("fee-coin spend must be funded from the gas payment")
	}

	short := coins(amount + GasBudget - 1)
	_, err = ForSpend(ledger.FeeCoinType, amount, short, short)
	var insufficient *InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientFundsError, got %v", err)
	}
	if insufficient.Required != amount+GasBudget {
		t.Fatalf("expected required %d, got %d", amount+GasBudget, insufficient.Required)
	}
	if insufficient.Available != amount+GasBudget-1 {
		t.Fatalf("expected available %d, got %d", amount+GasBudget-1, insufficient.Available)
	}
}

func TestForSpendSingleFeeCoinCoversSpendAndGas(t *testing.T) {
	// One fee coin of 600_000_000, deposit 50_000_000, budget 500_000_000:
	// the single coin funds both, total consumed 550_000_000.
	set := coins(600_000_000)
	sel, err := ForSpend(ledger.FeeCoinType, 50_000_000, set, set)
	if err != nil {
		t.Fatalf("ForSpend: %v", err)
	}
	if !sel.SpendFromGas {
		t.Fatalf("expected combined spend+gas funding")
	}
	if len(sel.GasCoins) != 1 || sel.GasCoins[0].Amount != 600_000_000 {
		t.Fatalf("expected the single 600_000_000 coin, got %+v", sel.GasCoins)
	}
	if len(sel.SpendCoins) != 0 {
		t.Fatalf("combined funding must not name separate spend coins")
	}
}

func TestForSpendFeeCoinFallsBackToFullSet(t *testing.T) {
	set := coins(300_000_000, 300_000_000)
	sel, err := ForSpend(ledger.FeeCoinType, 50_000_000, set, set)
	if err != nil {
		t.Fatalf("ForSpend: %v", err)
	}
	if len(sel.GasCoins) != 2 {
		t.Fatalf("no single coin covers the total; expected the full set, got %+v", sel.GasCoins)
	}
}

func TestForSpendPrefersSmallestCoveringCoin(t *testing.T) {
	set := ledger.Coins{
		{ID: "big", Amount: 900_000_000},
		{ID: "snug", Amount: 560_000_000},
		{ID: "small", Amount: 100_000_000},
	}
	sel, err := ForSpend(ledger.FeeCoinType, 50_000_000, set, set)
	if err != nil {
		t.Fatalf("ForSpend: %v", err)
	}
	if len(sel.GasCoins) != 1 || sel.GasCoins[0].ID != "snug" {
		t.Fatalf("expected the smallest covering coin, got %+v", sel.GasCoins)
	}
}

func TestForSpendOtherCoinChecksIndependently(t *testing.T) {
	asset := coins(40)
	fee := coins(GasBudget)
	_, err := ForSpend("0xabc::usdc::USDC", 50, asset, fee)
	var insufficient *InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected asset InsufficientFundsError, got %v", err)
	}
	if insufficient.CoinType != "0xabc::usdc::USDC" {
		t.Fatalf("shortfall must name the spend coin, got %q", insufficient.CoinType)
	}

	_, err = ForSpend("0xabc::usdc::USDC", 50, coins(100), coins(GasBudget-1))
	if !errors.Is(err, ErrInsufficientGas) {
		t.Fatalf("expected ErrInsufficientGas, got %v", err)
	}
}

func TestForSpendOtherCoinSelection(t *testing.T) {
	asset := ledger.Coins{{ID: "x", Amount: 30}, {ID: "y", Amount: 40}}
	fee := coins(GasBudget)
	sel, err := ForSpend("0xabc::usdc::USDC", 60, asset, fee)
	if err != nil {
		t.Fatalf("ForSpend: %v", err)
	}
	if sel.SpendFromGas {
		t.Fatalf("non-fee spend must not be funded from gas")
	}
	if len(sel.SpendCoins) != 2 {
		t.Fatalf("expected full asset set, got %+v", sel.SpendCoins)
	}
	if len(sel.GasCoins) != 1 || sel.GasCoins[0].Amount != GasBudget {
		t.Fatalf("expected single gas coin, got %+v", sel.GasCoins)
	}
}

func TestSelectionIsDeterministic(t *testing.T) {
	forward := ledger.Coins{{ID: "a", Amount: 200}, {ID: "b", Amount: 300}, {ID: "c", Amount: 100}}
	reversed := ledger.Coins{{ID: "c", Amount: 100}, {ID: "b", Amount: 300}, {ID: "a", Amount: 200}}
	fee := coins(GasBudget)

	first, err := ForSpend("0xabc::usdc::USDC", 550, forward, fee)
	if err != nil {
		t.Fatalf("ForSpend: %v", err)
	}
	second, err := ForSpend("0xabc::usdc::USDC", 550, reversed, fee)
	if err != nil {
		t.Fatalf("ForSpend: %v", err)
	}
	if len(first.SpendCoins) != len(second.SpendCoins) {
		t.Fatalf("selections differ in size: %d vs %d", len(first.SpendCoins), len(second.SpendCoins))
	}
	for i := range first.SpendCoins {
		if first.SpendCoins[i] != second.SpendCoins[i] {
			t.Fatalf("selection order differs at %d: %+v vs %+v", i, first.SpendCoins[i], second.SpendCoins[i])
		}
	}
}

func TestForGas(t *testing.T) {
	if _, err := ForGas(coins(GasBudget - 1)); !errors.Is(err, ErrInsufficientGas) {
		t.Fatalf("expected ErrInsufficientGas, got %v", err)
	}
	sel, err := ForGas(coins(GasBudget, GasBudget*2))
	if err != nil {
		t.Fatalf("ForGas: %v", err)
	}
	if len(sel.GasCoins) != 1 || sel.GasCoins[0].Amount != GasBudget {
		t.Fatalf("expected smallest covering gas coin, got %+v", sel.GasCoins)
	}
}
