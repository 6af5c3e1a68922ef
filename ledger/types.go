package ledger

import (
	"fmt"
	"sort"
	"strings"
)

// FeeCoinType is the fungible-token type used to pay execution fees. Amounts
// of it are denominated in minimal units with nine decimal places.
const FeeCoinType = "0x2::sui::SUI"

// FeeCoinDecimals is the decimal exponent of the fee coin.
const FeeCoinDecimals = 9

// ObjectID uniquely identifies an owned or shared object on the ledger.
type ObjectID string

// Address identifies an account that can own objects and sign transactions.
type Address string

// Coin is a spendable object: an indivisible, owned unit of value of a single
// coin type. The engine only ever observes and spends coins; it never creates
// them directly.
type Coin struct {
	ID     ObjectID `json:"id"`
	Amount uint64   `json:"amount"`
}

// Coins is an owner's set of spendable objects of one coin type.
type Coins []Coin

// Total returns the aggregate amount across the set.
func (c Coins) Total() uint64 {
	var total uint64
	for _, coin := range c {
		total += coin.Amount
	}
	return total
}

// IDs returns the object identifiers of the set in order.
func (c Coins) IDs() []ObjectID {
	ids := make([]ObjectID, len(c))
	for i, coin := range c {
		ids[i] = coin.ID
	}
	return ids
}

// Sorted returns a copy ordered by ascending amount with the object id as the
// tie breaker. Selection logic depends on this ordering being stable so that
// the same coin set always yields the same selection.
func (c Coins) Sorted() Coins {
	out := make(Coins, len(c))
	copy(out, c)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount < out[j].Amount
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ObjectInfo is the subset of object metadata the engine reads: the full type
// tag of the object, used to resolve a pool's originating package.
type ObjectInfo struct {
	ID   ObjectID `json:"id"`
	Type string   `json:"type"`
}

// ExecutionStatus is the terminal status the ledger reports for a submission.
type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailure ExecutionStatus = "failure"
)

// ExecutionResult is the outcome of a finalized submission. Error carries the
// ledger-provided reason when Status is ExecutionFailure; it may be empty.
type ExecutionResult struct {
	Status ExecutionStatus `json:"status"`
	Error  string          `json:"error,omitempty"`
}

// TypeTag is a parsed on-chain type of the form
// "0xpkg::module::Name<param, ...>".
type TypeTag struct {
	Package string
	Module  string
	Name    string
	Params  []string
}

// String reassembles the canonical textual form of the tag.
func (t TypeTag) String() string {
	base := fmt.Sprintf("%s::%s::%s", t.Package, t.Module, t.Name)
	if len(t.Params) == 0 {
		return base
	}
	return base + "<" + strings.Join(t.Params, ", ") + ">"
}

// ParseTypeTag parses a textual type tag. Generic parameters are kept as raw
// strings; nested generics are not split further because the engine only ever
// needs the outer package and module for call namespacing.
func ParseTypeTag(raw string) (TypeTag, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return TypeTag{}, fmt.Errorf("ledger: empty type tag")
	}

	var params []string
	if idx := strings.Index(trimmed, "<"); idx >= 0 {
		if !strings.HasSuffix(trimmed, ">") {
			return TypeTag{}, fmt.Errorf("ledger: malformed type tag %q", raw)
		}
		inner := trimmed[idx+1 : len(trimmed)-1]
		trimmed = trimmed[:idx]
		depth := 0
		start := 0
		for i, r := range inner {
			switch r {
			case '<':
				depth++
			case '>':
				depth--
			case ',':
				if depth == 0 {
					params = append(params, strings.TrimSpace(inner[start:i]))
					start = i + 1
				}
			}
		}
		if tail := strings.TrimSpace(inner[start:]); tail != "" {
			params = append(params, tail)
		}
	}

	parts := strings.Split(trimmed, "::")
	if len(parts) != 3 {
		return TypeTag{}, fmt.Errorf("ledger: malformed type tag %q", raw)
	}
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			return TypeTag{}, fmt.Errorf("ledger: malformed type tag %q", raw)
		}
	}
	if !strings.HasPrefix(parts[0], "0x") {
		return TypeTag{}, fmt.Errorf("ledger: type tag package %q is not an address", parts[0])
	}

	return TypeTag{
		Package: parts[0],
		Module:  parts[1],
		Name:    parts[2],
		Params:  params,
	}, nil
}
