package authz_test

import (
	"context"
	"testing"

	"github.com/spec-kit/access-gate/internal/authz"
	"github.com/spec-kit/access-gate/internal/domain"
	"github.com/spec-kit/access-gate/internal/repository/memory"
)

func newTestEngine(t *testing.T, adminIDs ...string) *authz.Engine {
	t.Helper()
	memberships := memory.NewRoleMembershipStore()
	for _, id := range adminIDs {
		if err := memberships.Create(context.Background(), &domain.RoleMembership{IdentityID: id, Name: id}); err != nil {
			t.Fatalf("seed membership: %v", err)
		}
	}
	return authz.NewEngine(memberships)
}

func TestAuthorizeTable(t *testing.T) {
	engine := newTestEngine(t, "admin-1")
	ctx := context.Background()

	tests := []struct {
		name   string
		caller string
		entity authz.Entity
		op     authz.Operation
		owner  string
		want   bool
	}{
		{"identity read own", "member-1", authz.EntityIdentity, authz.OperationRead, "member-1", true},
		{"identity read other denied", "member-1", authz.EntityIdentity, authz.OperationRead, "member-2", false},
		{"identity read any as admin", "admin-1", authz.EntityIdentity, authz.OperationRead, "member-2", true},
		{"identity update own", "member-1", authz.EntityIdentity, authz.OperationUpdate, "member-1", true},
		{"identity update other denied", "member-1", authz.EntityIdentity, authz.OperationUpdate, "member-2", false},
		{"scan event read own", "member-1", authz.EntityScanEvent, authz.OperationRead, "member-1", true},
		{"scan event read other denied", "member-1", authz.EntityScanEvent, authz.OperationRead, "member-2", false},
		{"scan event read all as admin", "admin-1", authz.EntityScanEvent, authz.OperationRead, "member-2", true},
		{"scan event create standard denied", "member-1", authz.EntityScanEvent, authz.OperationCreate, "", false},
		{"scan event create as admin", "admin-1", authz.EntityScanEvent, authz.OperationCreate, "", true},
		{"scan event update denied for everyone", "admin-1", authz.EntityScanEvent, authz.OperationUpdate, "member-1", false},
		{"membership read own", "member-1", authz.EntityRoleMembership, authz.OperationRead, "member-1", true},
		{"membership update standard denied", "member-1", authz.EntityRoleMembership, authz.OperationUpdate, "member-1", false},
		{"membership update as admin", "admin-1", authz.EntityRoleMembership, authz.OperationUpdate, "member-1", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := engine.Authorize(ctx, tc.caller, tc.entity, tc.op, tc.owner)
			if err != nil {
				t.Fatalf("Authorize: %v", err)
			}
			if got != tc.want {
				t.Errorf("Authorize = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAuthorizeUnknownEntityFailsClosed(t *testing.T) {
	engine := newTestEngine(t, "admin-1")

	ok, err := engine.Authorize(context.Background(), "admin-1", authz.Entity("bogus"), authz.OperationRead, "x")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if ok {
		t.Error("unknown entity must deny")
	}
}

// Membership is consulted fresh on every call: privilege appears as soon as
// the record exists and disappears the moment it is deleted.
func TestAuthorizeMembershipNotCached(t *testing.T) {
	memberships := memory.NewRoleMembershipStore()
	engine := authz.NewEngine(memberships)
	ctx := context.Background()

	ok, err := engine.Authorize(ctx, "caller-1", authz.EntityIdentity, authz.OperationRead, "other")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if ok {
		t.Fatal("expected denial before membership exists")
	}

	if err := memberships.Create(ctx, &domain.RoleMembership{IdentityID: "caller-1", Name: "caller"}); err != nil {
		t.Fatalf("create membership: %v", err)
	}
	ok, err = engine.Authorize(ctx, "caller-1", authz.EntityIdentity, authz.OperationRead, "other")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if !ok {
		t.Fatal("expected allow after membership created")
	}

	if err := memberships.Delete(ctx, "caller-1"); err != nil {
		t.Fatalf("delete membership: %v", err)
	}
	ok, err = engine.Authorize(ctx, "caller-1", authz.EntityIdentity, authz.OperationRead, "other")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if ok {
		t.Fatal("expected denial after membership removed")
	}
}

func TestIsAdminEmptyCaller(t *testing.T) {
	engine := newTestEngine(t, "admin-1")

	admin, err := engine.IsAdmin(context.Background(), "")
	if err != nil {
		t.Fatalf("IsAdmin: %v", err)
	}
	if admin {
		t.Error("empty caller must not be admin")
	}
}
