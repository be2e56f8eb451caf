package events

import (
	"time"

	"github.com/spec-kit/access-gate/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIdentityProvisioned EventType = "identity_provisioned"
	EventCredentialIssued    EventType = "credential_issued"
	EventCredentialRotated   EventType = "credential_rotated"
	EventScanAccepted        EventType = "scan_accepted"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	IdentityID string      `json:"identity_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// IdentityProvisionedPayload payload.
type IdentityProvisionedPayload struct {
	Name      string           `json:"name"`
	RoleClaim domain.RoleClaim `json:"role_claim"`
	Created   bool             `json:"created"`
}

// CredentialRotatedPayload payload. Credential values themselves are never
// published on the event bus.
type CredentialRotatedPayload struct {
	RotatedBy string `json:"rotated_by"`
}

// ScanAcceptedPayload payload.
type ScanAcceptedPayload struct {
	ScanID   string          `json:"scan_id"`
	Kind     domain.ScanKind `json:"kind"`
	Actor    string          `json:"actor"`
	Location string          `json:"location"`
}
