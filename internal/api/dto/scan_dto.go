package dto

import "time"

// ScanRequest carries one presented token plus scan metadata.
type ScanRequest struct {
	Credential string  `json:"credential"`
	Kind       string  `json:"kind"`
	Actor      string  `json:"actor"`
	Location   string  `json:"location"`
	Note       *string `json:"note,omitempty"`
}

// ScanResponse is the structured scan decision.
type ScanResponse struct {
	Success    bool       `json:"success"`
	Error      string     `json:"error,omitempty"`
	ScanID     string     `json:"scan_id,omitempty"`
	IdentityID string     `json:"identity_id,omitempty"`
	Name       string     `json:"name,omitempty"`
	Kind       string     `json:"kind,omitempty"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

// ScanEventResponse describes one audit log entry.
type ScanEventResponse struct {
	ID         string    `json:"id"`
	IdentityID *string   `json:"identity_id,omitempty"`
	Kind       string    `json:"kind"`
	Actor      string    `json:"actor"`
	Location   string    `json:"location"`
	Note       *string   `json:"note,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// RollupResponse aggregates accepted scans over a date window.
type RollupResponse struct {
	TotalScans       int64 `json:"total_scans"`
	UniqueIdentities int64 `json:"unique_identities"`
	EntryScans       int64 `json:"entry_scans"`
	ExitScans        int64 `json:"exit_scans"`
}
