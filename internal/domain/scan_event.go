package domain

import (
	"fmt"
	"time"
)

// ScanKind distinguishes entry from exit scans.
type ScanKind string

const (
	ScanKindEntry ScanKind = "ENTRY"
	ScanKindExit  ScanKind = "EXIT"
)

// ParseScanKind validates a caller-supplied scan kind.
func ParseScanKind(raw string) (ScanKind, error) {
	switch ScanKind(raw) {
	case ScanKindEntry, ScanKindExit:
		return ScanKind(raw), nil
	default:
		return "", fmt.Errorf("unknown scan kind %q", raw)
	}
}

// ScanEvent is an immutable audit record of an accepted admission decision.
// Events are never updated by any exposed operation; they leave the log only
// when their identity is removed.
type ScanEvent struct {
	ID         string
	IdentityID *string
	Kind       ScanKind
	Actor      string
	Location   string
	Note       *string
	OccurredAt time.Time
}

// ScanRollup aggregates accepted scans over an inclusive date window.
type ScanRollup struct {
	TotalScans       int64
	UniqueIdentities int64
	EntryScans       int64
	ExitScans        int64
}
