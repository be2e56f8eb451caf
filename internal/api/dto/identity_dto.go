package dto

import "time"

// ProvisionIdentityRequest payload for registering an identity. ValidUntil
// and all other dates on this API are YYYY-MM-DD strings.
type ProvisionIdentityRequest struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	RoleClaim  string  `json:"role_claim"`
	ValidUntil *string `json:"valid_until,omitempty"`
}

// IssueCredentialRequest payload for credential issuance.
type IssueCredentialRequest struct {
	Name       string  `json:"name"`
	ValidUntil *string `json:"valid_until,omitempty"`
}

// UpdateSubscriptionRequest payload for moving the validity window.
type UpdateSubscriptionRequest struct {
	ValidUntil *string `json:"valid_until"`
}

// IdentityResponse describes an identity without exposing its credential.
// SubscriptionStatus is resolved against the current day at read time.
type IdentityResponse struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	ValidUntil         *string   `json:"valid_until,omitempty"`
	SubscriptionStatus string    `json:"subscription_status"`
	HasCredential      bool      `json:"has_credential"`
	CreatedAt          time.Time `json:"created_at"`
}

// CredentialResponse returns the token value after issue or rotate; this is
// the only surface the raw credential ever crosses.
type CredentialResponse struct {
	IdentityID string `json:"identity_id"`
	Credential string `json:"credential"`
}

// MembershipResponse describes a role membership record.
type MembershipResponse struct {
	IdentityID     string    `json:"identity_id"`
	Name           string    `json:"name"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// TokenRequest payload for minting a caller token.
type TokenRequest struct {
	IdentityID string `json:"identity_id"`
	RoleClaim  string `json:"role_claim"`
}

// TokenResponse standard response for token minting.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
