package txbuild

import (
	"errors"
	"fmt"

	"lendboard/engine/capability"
	"lendboard/engine/coinselect"
	"lendboard/ledger"
)

// ErrEmptySelection rejects a unit whose funding selection names no objects.
var ErrEmptySelection = errors.New("txbuild: selection names no coins")

// Target names the contract surface of one pool: the originating package and
// module resolved from the pool object's type, the pool and fee-destination
// registry objects, and an optional referral object.
type Target struct {
	Package  string
	Module   string
	Pool     ledger.ObjectID
	Registry ledger.ObjectID
	Referral *ledger.ObjectID
}

func (t Target) validate() error {
	if t.Package == "" || t.Module == "" {
		return fmt.Errorf("txbuild: target missing package or module")
	}
	if t.Pool == "" || t.Registry == "" {
		return fmt.Errorf("txbuild: target missing pool or registry object")
	}
	return nil
}

// Deposit builds the supply sequence: split the spend amount off the selected
// coins, reuse or mint the supplier capability, invoke the pool's supply
// entry point, and transfer a freshly minted capability back to the owner.
// The supply entry point itself leaves a minted capability with the caller,
// so the transfer is part of the same unit.
func Deposit(owner ledger.Address, target Target, sel coinselect.Selection, amount uint64, cap capability.Decision) (*Unit, error) {
	if err := target.validate(); err != nil {
		return nil, err
	}
	if len(sel.GasCoins) == 0 {
		return nil, ErrEmptySelection
	}
	if !sel.SpendFromGas && len(sel.SpendCoins) == 0 {
		return nil, ErrEmptySelection
	}

	b := NewBuilder(owner)

	coinArg := b.Command(Command{SplitCoins: &SplitCoins{
		Coin:    spendSource(b, sel),
		Amounts: []Argument{b.PureU64(amount)},
	}})

	capArg, minted := capabilityArg(b, target, cap)

	args := []Argument{
		b.Object(target.Pool),
		b.Object(target.Registry),
		capArg,
		coinArg,
	}
	if target.Referral != nil {
		args = append(args, b.Object(*target.Referral))
	}
	b.Command(Command{MoveCall: &MoveCall{
		Package:   target.Package,
		Module:    target.Module,
		Function:  FnSupply,
		Arguments: args,
	}})

	if minted {
		b.Command(Command{TransferObjects: &TransferObjects{
			Objects: []Argument{capArg},
			Address: b.PureAddress(owner),
		}})
	}

	return b.Finish(sel.GasCoins.IDs(), coinselect.GasBudget), nil
}

// Withdraw builds the withdraw sequence for an explicit amount, or for the
// full withdrawable balance when amount is nil. The contract owns the
// interest-accrual arithmetic, so withdraw-all always passes the no-amount
// sentinel and never a locally computed figure. The capability must already
// exist; callers enforce that before any unit is built.
func Withdraw(owner ledger.Address, target Target, sel coinselect.Selection, amount *uint64, capID ledger.ObjectID) (*Unit, error) {
	if err := target.validate(); err != nil {
		return nil, err
	}
	if capID == "" {
		return nil, fmt.Errorf("txbuild: withdraw requires a capability object")
	}
	if len(sel.GasCoins) == 0 {
		return nil, ErrEmptySelection
	}

	b := NewBuilder(owner)

	withdrawn := b.Command(Command{MoveCall: &MoveCall{
		Package:  target.Package,
		Module:   target.Module,
		Function: FnWithdraw,
		Arguments: []Argument{
			b.Object(target.Pool),
			b.Object(target.Registry),
			b.Object(capID),
			b.PureOptionU64(amount),
		},
	}})

	b.Command(Command{TransferObjects: &TransferObjects{
		Objects: []Argument{withdrawn},
		Address: b.PureAddress(owner),
	}})

	return b.Finish(sel.GasCoins.IDs(), coinselect.GasBudget), nil
}

// spendSource yields the coin argument the spend amount is split from: the
// gas payment when the operation spends the fee coin, otherwise the selected
// spend coins merged into one.
func spendSource(b *Builder, sel coinselect.Selection) Argument {
	if sel.SpendFromGas {
		return b.GasCoin()
	}
	first := b.Object(sel.SpendCoins[0].ID)
	if len(sel.SpendCoins) > 1 {
		rest := make([]Argument, 0, len(sel.SpendCoins)-1)
		for _, coin := range sel.SpendCoins[1:] {
			rest = append(rest, b.Object(coin.ID))
		}
		b.Command(Command{MergeCoins: &MergeCoins{Destination: first, Sources: rest}})
	}
	return first
}

// capabilityArg resolves the capability argument for a deposit, minting one
// inside the unit when the owner holds none.
func capabilityArg(b *Builder, target Target, cap capability.Decision) (Argument, bool) {
	if id, ok := cap.Existing(); ok {
		return b.Object(id), false
	}
	minted := b.Command(Command{MoveCall: &MoveCall{
		Package:   target.Package,
		Module:    target.Module,
		Function:  FnMintCapability,
		Arguments: []Argument{b.Object(target.Registry)},
	}})
	return minted, true
}
