package domain

import "time"

// Identity is the domain model for a registered person eligible for access.
// Credential holds the live opaque token, nil until one is issued; no two
// identities ever share a live credential value.
type Identity struct {
	ID         string
	Name       string
	ValidUntil *time.Time
	Credential *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasCredential reports whether a live credential is currently assigned.
func (i *Identity) HasCredential() bool {
	return i.Credential != nil && *i.Credential != ""
}
