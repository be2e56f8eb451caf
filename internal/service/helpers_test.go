package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/access-gate/internal/authz"
	"github.com/spec-kit/access-gate/internal/domain"
	"github.com/spec-kit/access-gate/internal/events"
	"github.com/spec-kit/access-gate/internal/observability"
	"github.com/spec-kit/access-gate/internal/repository/memory"
	"github.com/spec-kit/access-gate/internal/service"
)

const adminID = "admin-1"

// fixture wires every service over shared in-memory stores, with one admin
// membership pre-seeded for adminID.
type fixture struct {
	identities  *memory.IdentityStore
	scanEvents  *memory.ScanEventStore
	memberships *memory.RoleMembershipStore
	metrics     *observability.Metrics
	identitySvc *service.IdentityService
	credentials *service.CredentialService
	scans       *service.ScanService
	analytics   *service.AnalyticsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		identities:  memory.NewIdentityStore(),
		scanEvents:  memory.NewScanEventStore(),
		memberships: memory.NewRoleMembershipStore(),
		metrics:     observability.NewMetrics(),
	}
	// Mirror the schema's ON DELETE CASCADE: removing an identity takes its
	// history and membership with it.
	f.identities.OnDelete(func(id string) {
		f.scanEvents.DeleteByIdentity(id)
		_ = f.memberships.Delete(context.Background(), id)
	})

	policy := authz.NewEngine(f.memberships)
	dispatcher := events.NewInMemoryDispatcher()

	f.identitySvc = service.NewIdentityService(service.IdentityDependencies{
		IdentityRepo:       f.identities,
		RoleMembershipRepo: f.memberships,
		Policy:             policy,
		Dispatcher:         dispatcher,
	})
	f.credentials = service.NewCredentialService(service.CredentialDependencies{
		IdentityRepo: f.identities,
		Policy:       policy,
		Dispatcher:   dispatcher,
	})
	f.scans = service.NewScanService(service.ScanDependencies{
		IdentityRepo:       f.identities,
		ScanEventRepo:      f.scanEvents,
		RoleMembershipRepo: f.memberships,
		Policy:             policy,
		Dispatcher:         dispatcher,
		Metrics:            f.metrics,
	})
	f.analytics = service.NewAnalyticsService(f.scanEvents, policy)

	if err := f.memberships.Create(context.Background(), &domain.RoleMembership{IdentityID: adminID, Name: "Admin"}); err != nil {
		t.Fatalf("seed admin membership: %v", err)
	}
	return f
}

// issueFor provisions an identity as admin and returns its credential value.
func (f *fixture) issueFor(t *testing.T, id, name string, validUntil *time.Time) string {
	t.Helper()

	identity, err := f.credentials.Issue(context.Background(), adminID, id, name, validUntil)
	if err != nil {
		t.Fatalf("issue credential for %s: %v", id, err)
	}
	if identity.Credential == nil {
		t.Fatalf("no credential issued for %s", id)
	}
	return *identity.Credential
}

func daysFromNow(days int) *time.Time {
	d := time.Now().AddDate(0, 0, days)
	return &d
}
