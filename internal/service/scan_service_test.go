package service_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/access-gate/internal/domain"
	"github.com/spec-kit/access-gate/internal/service"
)

func scanInput(credential, kind string) service.ScanInput {
	return service.ScanInput{
		Credential: credential,
		Kind:       kind,
		Actor:      "panel",
		Location:   "main",
	}
}

func TestValidateScanAccepted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cred := f.issueFor(t, "member-1", "Alice", daysFromNow(30))

	result, err := f.scans.ValidateScan(ctx, adminID, scanInput(cred, "ENTRY"))
	if err != nil {
		t.Fatalf("ValidateScan: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if result.IdentityID != "member-1" || result.Name != "Alice" {
		t.Errorf("unexpected identity in result: %+v", result)
	}
	if result.ScanID == "" {
		t.Error("expected scan id")
	}
	if result.Kind != domain.ScanKindEntry {
		t.Errorf("expected ENTRY, got %v", result.Kind)
	}

	recorded := f.scanEvents.Events()
	if len(recorded) != 1 {
		t.Fatalf("expected 1 audit event, got %d", len(recorded))
	}
	ev := recorded[0]
	if ev.IdentityID == nil || *ev.IdentityID != "member-1" {
		t.Errorf("event identity = %v", ev.IdentityID)
	}
	if ev.Actor != "panel" || ev.Location != "main" {
		t.Errorf("event metadata = %+v", ev)
	}
}

func TestValidateScanUnknownToken(t *testing.T) {
	f := newFixture(t)

	result, err := f.scans.ValidateScan(context.Background(), adminID, scanInput("no-such-token", "ENTRY"))
	if err != nil {
		t.Fatalf("ValidateScan: %v", err)
	}
	if result.Success {
		t.Fatal("expected rejection")
	}
	if result.Error != service.ScanErrorInvalidCredential {
		t.Errorf("expected INVALID_CREDENTIAL, got %q", result.Error)
	}
	if result.IdentityID != "" {
		t.Error("unknown token must not disclose an identity")
	}
	if len(f.scanEvents.Events()) != 0 {
		t.Error("rejected scan must not create an audit event")
	}
}

func TestValidateScanSubscriptionMissing(t *testing.T) {
	f := newFixture(t)

	cred := f.issueFor(t, "member-1", "Alice", nil)

	result, err := f.scans.ValidateScan(context.Background(), adminID, scanInput(cred, "ENTRY"))
	if err != nil {
		t.Fatalf("ValidateScan: %v", err)
	}
	if result.Success || result.Error != service.ScanErrorSubscriptionMissing {
		t.Fatalf("expected SUBSCRIPTION_MISSING, got %+v", result)
	}
	// Identity is disclosed on subscription rejections to aid the operator.
	if result.IdentityID != "member-1" || result.Name != "Alice" {
		t.Errorf("expected identity disclosure, got %+v", result)
	}
	if len(f.scanEvents.Events()) != 0 {
		t.Error("rejected scan must not create an audit event")
	}
}

func TestValidateScanSubscriptionExpired(t *testing.T) {
	f := newFixture(t)

	cred := f.issueFor(t, "member-1", "Alice", daysFromNow(-1))

	result, err := f.scans.ValidateScan(context.Background(), adminID, scanInput(cred, "EXIT"))
	if err != nil {
		t.Fatalf("ValidateScan: %v", err)
	}
	if result.Success || result.Error != service.ScanErrorSubscriptionExpired {
		t.Fatalf("expected SUBSCRIPTION_EXPIRED, got %+v", result)
	}
	if len(f.scanEvents.Events()) != 0 {
		t.Error("rejected scan must not create an audit event")
	}
}

// Repeated scans of the same kind are all accepted: there is no enforced
// entry/exit alternation and no duplicate-scan suppression window.
func TestValidateScanNoAlternationEnforced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cred := f.issueFor(t, "member-1", "Alice", daysFromNow(30))

	for i := 0; i < 3; i++ {
		result, err := f.scans.ValidateScan(ctx, adminID, scanInput(cred, "ENTRY"))
		if err != nil {
			t.Fatalf("ValidateScan #%d: %v", i, err)
		}
		if !result.Success {
			t.Fatalf("scan #%d rejected: %q", i, result.Error)
		}
	}
	if got := len(f.scanEvents.Events()); got != 3 {
		t.Errorf("expected 3 events, got %d", got)
	}
}

func TestValidateScanRotatedTokenRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old := f.issueFor(t, "member-1", "Alice", daysFromNow(30))
	if _, err := f.credentials.Rotate(ctx, adminID, "member-1"); err != nil {
		t.Fatalf("rotate: %v", err)
	}

	result, err := f.scans.ValidateScan(ctx, adminID, scanInput(old, "ENTRY"))
	if err != nil {
		t.Fatalf("ValidateScan: %v", err)
	}
	// A rotated-away token is indistinguishable from one never issued.
	if result.Success || result.Error != service.ScanErrorInvalidCredential {
		t.Fatalf("expected INVALID_CREDENTIAL for rotated token, got %+v", result)
	}
}

func TestValidateScanMalformedKind(t *testing.T) {
	f := newFixture(t)

	cred := f.issueFor(t, "member-1", "Alice", daysFromNow(30))

	if _, err := f.scans.ValidateScan(context.Background(), adminID, scanInput(cred, "SIDEWAYS")); err == nil {
		t.Fatal("expected error for malformed scan kind")
	}
	if len(f.scanEvents.Events()) != 0 {
		t.Error("malformed scan must not create an audit event")
	}
}

func TestValidateScanStandardCallerDenied(t *testing.T) {
	f := newFixture(t)

	cred := f.issueFor(t, "member-1", "Alice", daysFromNow(30))

	if _, err := f.scans.ValidateScan(context.Background(), "member-1", scanInput(cred, "ENTRY")); err != pgx.ErrNoRows {
		t.Errorf("expected pgx.ErrNoRows for standard caller, got %v", err)
	}
	if len(f.scanEvents.Events()) != 0 {
		t.Error("denied scan must not create an audit event")
	}
}

func TestHistoryForOrdersNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cred := f.issueFor(t, "member-1", "Alice", daysFromNow(30))
	for _, kind := range []string{"ENTRY", "EXIT", "ENTRY"} {
		if _, err := f.scans.ValidateScan(ctx, adminID, scanInput(cred, kind)); err != nil {
			t.Fatalf("ValidateScan: %v", err)
		}
	}

	history, err := f.scans.HistoryFor(ctx, adminID, "member-1", 10, 0)
	if err != nil {
		t.Fatalf("HistoryFor: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 events, got %d", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i].OccurredAt.After(history[i-1].OccurredAt) {
			t.Error("history not in descending time order")
		}
	}
}

func TestHistoryForSelfAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cred := f.issueFor(t, "member-1", "Alice", daysFromNow(30))
	if _, err := f.scans.ValidateScan(ctx, adminID, scanInput(cred, "ENTRY")); err != nil {
		t.Fatalf("ValidateScan: %v", err)
	}

	history, err := f.scans.HistoryFor(ctx, "member-1", "member-1", 10, 0)
	if err != nil {
		t.Fatalf("HistoryFor: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("expected own history, got %d events", len(history))
	}
}

// A denied history read is indistinguishable from the history of an identity
// that does not exist: both come back empty.
func TestHistoryForDenialMatchesMissingIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cred := f.issueFor(t, "member-2", "Bob", daysFromNow(30))
	if _, err := f.scans.ValidateScan(ctx, adminID, scanInput(cred, "ENTRY")); err != nil {
		t.Fatalf("ValidateScan: %v", err)
	}

	denied, err := f.scans.HistoryFor(ctx, "member-1", "member-2", 10, 0)
	if err != nil {
		t.Fatalf("HistoryFor denied: %v", err)
	}
	missing, err := f.scans.HistoryFor(ctx, "member-1", "ghost", 10, 0)
	if err != nil {
		t.Fatalf("HistoryFor missing: %v", err)
	}
	if len(denied) != 0 || len(missing) != 0 {
		t.Errorf("denied=%d missing=%d, both must be empty", len(denied), len(missing))
	}
}
