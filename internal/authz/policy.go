// Package authz evaluates the per-entity, per-operation access predicates
// that gate every read and write of identity, credential and audit data.
// Decisions are never cached: administrative privilege is resolved by an
// existence check against the role membership records on every call, so
// editing one's own identity row can never grant elevated access.
package authz

import (
	"context"

	"github.com/spec-kit/access-gate/internal/repository"
)

// Entity names a protected record set.
type Entity string

const (
	EntityIdentity       Entity = "identity"
	EntityScanEvent      Entity = "scan_event"
	EntityRoleMembership Entity = "role_membership"
)

// Operation names an access mode on an entity.
type Operation string

const (
	OperationRead   Operation = "read"
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
)

// predicate decides one (entity, operation) cell of the policy table.
// ownerID is the identity the target record belongs to.
type predicate func(callerID, ownerID string, admin bool) bool

func selfOrAdmin(callerID, ownerID string, admin bool) bool {
	return admin || callerID == ownerID
}

func adminOnly(_, _ string, admin bool) bool {
	return admin
}

// policyTable mirrors the access matrix: rows marked self allow the owner,
// rows marked admin allow members of the administrative set. Cells absent
// from the table deny unconditionally.
var policyTable = map[Entity]map[Operation]predicate{
	EntityIdentity: {
		OperationRead:   selfOrAdmin,
		OperationUpdate: selfOrAdmin,
		OperationCreate: selfOrAdmin,
	},
	EntityScanEvent: {
		OperationRead:   selfOrAdmin,
		OperationCreate: adminOnly,
		// No update predicate: scan events are immutable for every role.
	},
	EntityRoleMembership: {
		OperationRead:   selfOrAdmin,
		OperationUpdate: adminOnly,
		OperationCreate: adminOnly,
	},
}

// Engine evaluates policy predicates against live membership records.
type Engine struct {
	memberships repository.RoleMembershipRepository
}

// NewEngine builds the policy engine.
func NewEngine(memberships repository.RoleMembershipRepository) *Engine {
	return &Engine{memberships: memberships}
}

// Authorize reports whether callerID may perform op on the entity owned by
// ownerID. Unknown (entity, operation) pairs fail closed. The error return is
// reserved for storage faults during the membership check; a plain denial is
// (false, nil).
func (e *Engine) Authorize(ctx context.Context, callerID string, entity Entity, op Operation, ownerID string) (bool, error) {
	ops, ok := policyTable[entity]
	if !ok {
		return false, nil
	}
	pred, ok := ops[op]
	if !ok {
		return false, nil
	}

	admin, err := e.IsAdmin(ctx, callerID)
	if err != nil {
		return false, err
	}
	return pred(callerID, ownerID, admin), nil
}

// IsAdmin resolves administrative privilege by membership existence, queried
// fresh on each call.
func (e *Engine) IsAdmin(ctx context.Context, callerID string) (bool, error) {
	if callerID == "" {
		return false, nil
	}
	return e.memberships.Exists(ctx, callerID)
}
