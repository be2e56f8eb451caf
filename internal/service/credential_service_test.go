package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestIssuePreservesExistingCredential(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.credentials.Issue(ctx, adminID, "member-1", "Alice", daysFromNow(30))
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}

	second, err := f.credentials.Issue(ctx, adminID, "member-1", "Alice Renamed", daysFromNow(60))
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}

	if *first.Credential != *second.Credential {
		t.Error("re-issue must preserve the live credential value")
	}
	if second.Name != "Alice Renamed" {
		t.Errorf("re-issue must update the name, got %q", second.Name)
	}
}

func TestIssueCreatesMissingIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	identity, err := f.credentials.Issue(ctx, adminID, "member-new", "Bob", nil)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !identity.HasCredential() {
		t.Error("expected a credential on the fresh identity")
	}

	stored, err := f.identities.GetByID(ctx, "member-new")
	if err != nil {
		t.Fatalf("identity row not created: %v", err)
	}
	if stored.Name != "Bob" {
		t.Errorf("unexpected name %q", stored.Name)
	}
}

func TestCredentialsUniqueAcrossIdentities(t *testing.T) {
	f := newFixture(t)

	seen := make(map[string]string)
	for _, id := range []string{"m-1", "m-2", "m-3", "m-4", "m-5"} {
		cred := f.issueFor(t, id, "Member "+id, daysFromNow(10))
		if owner, dup := seen[cred]; dup {
			t.Fatalf("credential shared between %s and %s", owner, id)
		}
		seen[cred] = id
	}
}

func TestRotateInvalidatesOldCredential(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old := f.issueFor(t, "member-1", "Alice", daysFromNow(30))

	rotated, err := f.credentials.Rotate(ctx, adminID, "member-1")
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if *rotated.Credential == old {
		t.Fatal("rotate must produce a fresh credential")
	}

	if _, err := f.credentials.Resolve(ctx, old); err != pgx.ErrNoRows {
		t.Errorf("old credential still resolves, err=%v", err)
	}
	if resolved, err := f.credentials.Resolve(ctx, *rotated.Credential); err != nil || resolved.ID != "member-1" {
		t.Errorf("new credential should resolve to member-1, got %v / %v", resolved, err)
	}
}

func TestRotateUnknownIdentity(t *testing.T) {
	f := newFixture(t)

	if _, err := f.credentials.Rotate(context.Background(), adminID, "ghost"); err != pgx.ErrNoRows {
		t.Errorf("expected pgx.ErrNoRows, got %v", err)
	}
}

func TestSelfCanIssueOwnCredential(t *testing.T) {
	f := newFixture(t)

	identity, err := f.credentials.Issue(context.Background(), "member-1", "member-1", "Alice", daysFromNow(30))
	if err != nil {
		t.Fatalf("self issue: %v", err)
	}
	if !identity.HasCredential() {
		t.Error("expected credential")
	}
}

// Concurrent issuance for the same identity must converge on a single live
// credential: whichever call creates the row wins, every other call observes
// and preserves that value.
func TestConcurrentIssueConvergesOnOneCredential(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const workers = 16
	creds := make([]string, workers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			identity, err := f.credentials.Issue(ctx, adminID, "member-1", "Alice", daysFromNow(30))
			if err != nil {
				t.Errorf("issue #%d: %v", i, err)
				return
			}
			creds[i] = *identity.Credential
		}(i)
	}
	close(start)
	wg.Wait()

	stored, err := f.identities.GetByID(ctx, "member-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	for i, cred := range creds {
		if cred != *stored.Credential {
			t.Errorf("issue #%d observed %q, stored credential is %q", i, cred, *stored.Credential)
		}
	}
}

// A rotate racing concurrent lookups of the old token yields only clean
// outcomes: the token still resolves to its identity, or it is already gone.
// No lookup may observe a torn state.
func TestRotateSerializedAgainstResolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old := f.issueFor(t, "member-1", "Alice", daysFromNow(30))

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			identity, err := f.credentials.Resolve(ctx, old)
			switch {
			case err == nil:
				if identity.ID != "member-1" {
					t.Errorf("stale token resolved to %q", identity.ID)
				}
			case err == pgx.ErrNoRows:
				// Rotation already committed.
			default:
				t.Errorf("unexpected resolve error: %v", err)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		if _, err := f.credentials.Rotate(ctx, adminID, "member-1"); err != nil {
			t.Errorf("rotate: %v", err)
		}
	}()
	close(start)
	wg.Wait()

	if _, err := f.credentials.Resolve(ctx, old); err != pgx.ErrNoRows {
		t.Errorf("old credential still resolves after rotate, err=%v", err)
	}
}

// A standard caller touching someone else's credential gets the same result
// as asking about an identity that does not exist.
func TestIssueDenialLooksLikeNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.issueFor(t, "member-2", "Bob", daysFromNow(30))

	if _, err := f.credentials.Issue(ctx, "member-1", "member-2", "Hijack", nil); err != pgx.ErrNoRows {
		t.Errorf("expected pgx.ErrNoRows on denied issue, got %v", err)
	}
	if _, err := f.credentials.Rotate(ctx, "member-1", "member-2"); err != pgx.ErrNoRows {
		t.Errorf("expected pgx.ErrNoRows on denied rotate, got %v", err)
	}
}
