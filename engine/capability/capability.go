// Package capability resolves the supplier capability an owner holds for a
// pool. At most one live capability exists per (owner, pool); a deposit mints
// one when absent, while a withdrawal without one is a hard error.
package capability

import (
	"context"
	"fmt"

	"lendboard/ledger"
)

// TypeName is the struct name of the supplier capability within a pool's
// originating module.
const TypeName = "SupplierCap"

// TypeTag builds the full capability type for a pool's package and module.
func TypeTag(pkg, module string) string {
	return fmt.Sprintf("%s::%s::%s", pkg, module, TypeName)
}

// Decision is the two-variant outcome of a capability lookup: either the
// owner already holds a capability, or none exists and the deposit path must
// mint one. Consumers branch on Existing exhaustively rather than on a nil
// id.
type Decision struct {
	id     ledger.ObjectID
	exists bool
}

// Existing wraps the identifier of a live capability.
func Existing(id ledger.ObjectID) Decision {
	return Decision{id: id, exists: true}
}

// Absent reports that the owner holds no capability for the pool.
func Absent() Decision {
	return Decision{}
}

// Existing returns the capability id and whether one exists.
func (d Decision) Existing() (ledger.ObjectID, bool) {
	return d.id, d.exists
}

// ObjectLister is the ledger read the resolver depends on.
type ObjectLister interface {
	GetOwnedObjects(ctx context.Context, owner ledger.Address, typeFilter string) ([]ledger.ObjectID, error)
}

// Resolver looks up supplier capabilities. It holds no cache: staleness would
// cause a double mint or a false absence, so every operation resolves afresh.
type Resolver struct {
	ledger ObjectLister
}

// NewResolver constructs a Resolver over the given ledger reads.
func NewResolver(lister ObjectLister) *Resolver {
	return &Resolver{ledger: lister}
}

// Resolve returns the owner's capability decision for the capability type.
func (r *Resolver) Resolve(ctx context.Context, owner ledger.Address, capType string) (Decision, error) {
	ids, err := r.ledger.GetOwnedObjects(ctx, owner, capType)
	if err != nil {
		return Decision{}, fmt.Errorf("capability: list %s for %s: %w", capType, owner, err)
	}
	if len(ids) == 0 {
		return Absent(), nil
	}
	return Existing(ids[0]), nil
}
