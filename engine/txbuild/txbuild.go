// Package txbuild assembles the ordered, atomic call sequence for a single
// engine operation. A Unit is handed to the external signer as one unit of
// work: the ledger applies all of its commands or none of them, so partial
// application (a coin split without the entry-point call) cannot happen.
package txbuild

import (
	"lendboard/ledger"
)

// Entry-point names of the pool contract. Fixed for wire compatibility.
const (
	FnSupply         = "supply"
	FnWithdraw       = "withdraw"
	FnMintCapability = "mint_capability"
)

// ArgKind discriminates the argument variants of a command.
type ArgKind string

const (
	// ArgGasCoin references the unit's fee payment, for operations that
	// spend the fee coin itself.
	ArgGasCoin ArgKind = "gasCoin"
	// ArgInput references one of the unit's declared inputs.
	ArgInput ArgKind = "input"
	// ArgResult references the result of an earlier command.
	ArgResult ArgKind = "result"
)

// Argument is a reference into the unit: the gas payment, an input, or a
// prior command's result.
type Argument struct {
	Kind  ArgKind `json:"kind"`
	Index int     `json:"index"`
}

// OptionU64 is an optional integer. A nil Some encodes the "no amount"
// sentinel the withdraw entry point interprets as "compute the full
// withdrawable balance".
type OptionU64 struct {
	Some *uint64 `json:"some"`
}

// Pure is a plain-value input.
type Pure struct {
	U64     *uint64         `json:"u64,omitempty"`
	Option  *OptionU64      `json:"optionU64,omitempty"`
	Address *ledger.Address `json:"address,omitempty"`
}

// Input is a declared input of the unit: a pure value or an object.
type Input struct {
	Pure   *Pure            `json:"pure,omitempty"`
	Object *ledger.ObjectID `json:"object,omitempty"`
}

// SplitCoins splits the given amounts off a coin, producing one new coin per
// amount.
type SplitCoins struct {
	Coin    Argument   `json:"coin"`
	Amounts []Argument `json:"amounts"`
}

// MergeCoins folds the source coins into the destination.
type MergeCoins struct {
	Destination Argument   `json:"destination"`
	Sources     []Argument `json:"sources"`
}

// MoveCall invokes a contract entry point.
type MoveCall struct {
	Package   string     `json:"package"`
	Module    string     `json:"module"`
	Function  string     `json:"function"`
	TypeArgs  []string   `json:"typeArgs,omitempty"`
	Arguments []Argument `json:"arguments"`
}

// TransferObjects sends objects to an address.
type TransferObjects struct {
	Objects []Argument `json:"objects"`
	Address Argument   `json:"address"`
}

// Command is one step of the unit. Exactly one field is set.
type Command struct {
	SplitCoins      *SplitCoins      `json:"splitCoins,omitempty"`
	MergeCoins      *MergeCoins      `json:"mergeCoins,omitempty"`
	MoveCall        *MoveCall        `json:"moveCall,omitempty"`
	TransferObjects *TransferObjects `json:"transferObjects,omitempty"`
}

// Unit is the assembled atomic call sequence together with its explicit fee
// payment. Declaring GasPayment here overrides any default fee-object
// selection the signer might apply, keeping execution consistent with the
// pre-flight balance checks.
type Unit struct {
	Sender     ledger.Address    `json:"sender"`
	Inputs     []Input           `json:"inputs"`
	Commands   []Command         `json:"commands"`
	GasPayment []ledger.ObjectID `json:"gasPayment"`
	GasBudget  uint64            `json:"gasBudget"`
}

// Builder accumulates inputs and commands for a Unit.
type Builder struct {
	sender   ledger.Address
	inputs   []Input
	commands []Command
}

// NewBuilder starts a unit for the given sender.
func NewBuilder(sender ledger.Address) *Builder {
	return &Builder{sender: sender}
}

func (b *Builder) input(in Input) Argument {
	b.inputs = append(b.inputs, in)
	return Argument{Kind: ArgInput, Index: len(b.inputs) - 1}
}

// Object declares an owned or shared object input.
func (b *Builder) Object(id ledger.ObjectID) Argument {
	obj := id
	return b.input(Input{Object: &obj})
}

// PureU64 declares an integer input.
func (b *Builder) PureU64(v uint64) Argument {
	value := v
	return b.input(Input{Pure: &Pure{U64: &value}})
}

// PureOptionU64 declares an optional-integer input; nil encodes the
// no-amount sentinel.
func (b *Builder) PureOptionU64(v *uint64) Argument {
	opt := OptionU64{}
	if v != nil {
		value := *v
		opt.Some = &value
	}
	return b.input(Input{Pure: &Pure{Option: &opt}})
}

// PureAddress declares an address input.
func (b *Builder) PureAddress(addr ledger.Address) Argument {
	value := addr
	return b.input(Input{Pure: &Pure{Address: &value}})
}

// Command appends a command and returns an argument referencing its result.
func (b *Builder) Command(cmd Command) Argument {
	b.commands = append(b.commands, cmd)
	return Argument{Kind: ArgResult, Index: len(b.commands) - 1}
}

// GasCoin references the unit's fee payment.
func (b *Builder) GasCoin() Argument {
	return Argument{Kind: ArgGasCoin}
}

// Finish seals the unit with its fee payment and budget.
func (b *Builder) Finish(gasPayment []ledger.ObjectID, gasBudget uint64) *Unit {
	return &Unit{
		Sender:     b.sender,
		Inputs:     b.inputs,
		Commands:   b.commands,
		GasPayment: gasPayment,
		GasBudget:  gasBudget,
	}
}
