package domain

import "time"

// RoleClaim is the caller-supplied role hint presented at registration time.
// It decides the provisioning branch only; live privilege is always resolved
// against role membership records, never against this claim.
type RoleClaim string

const (
	RoleClaimStandard RoleClaim = "STANDARD"
	RoleClaimAdmin    RoleClaim = "ADMIN"
)

// RoleMembership confers administrative privilege on an identity. The record
// set is the sole source of truth for privilege: absence of a row means
// standard privilege regardless of anything else stored on the identity.
type RoleMembership struct {
	IdentityID     string
	Name           string
	LastActivityAt time.Time
}
