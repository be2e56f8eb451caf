package domain_test

import (
	"testing"
	"time"

	"github.com/spec-kit/access-gate/internal/domain"
)

func TestResolveSubscription(t *testing.T) {
	now := time.Date(2026, 3, 15, 13, 45, 0, 0, time.UTC)

	tests := []struct {
		name       string
		validUntil *time.Time
		want       domain.SubscriptionStatus
	}{
		{name: "nil window is inactive", validUntil: nil, want: domain.SubscriptionInactive},
		{name: "past date is expired", validUntil: datePtr(2026, 3, 14), want: domain.SubscriptionExpired},
		{name: "same day is active", validUntil: datePtr(2026, 3, 15), want: domain.SubscriptionActive},
		{name: "future date is active", validUntil: datePtr(2026, 4, 1), want: domain.SubscriptionActive},
		{name: "long expired", validUntil: datePtr(2020, 1, 1), want: domain.SubscriptionExpired},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := domain.ResolveSubscription(tc.validUntil, now)
			if got != tc.want {
				t.Errorf("ResolveSubscription(%v) = %v, want %v", tc.validUntil, got, tc.want)
			}
		})
	}
}

func TestResolveSubscriptionIgnoresTimeOfDay(t *testing.T) {
	// Window expires today at 00:00; a scan late in the evening is still active.
	validUntil := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 15, 23, 59, 59, 0, time.UTC)

	if got := domain.ResolveSubscription(&validUntil, now); got != domain.SubscriptionActive {
		t.Errorf("expected ACTIVE on the expiry day, got %v", got)
	}
}

// The comparison frame is the UTC calendar date: a window stored as a UTC
// midnight stays active all day even when the server clock runs in a zone
// west of UTC.
func TestResolveSubscriptionZoneIndependent(t *testing.T) {
	validUntil := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.FixedZone("EST", -5*60*60))

	if got := domain.ResolveSubscription(&validUntil, now); got != domain.SubscriptionActive {
		t.Errorf("same calendar day across zones: got %v, want %v", got, domain.SubscriptionActive)
	}

	// The day after, in the same westward zone, the window has elapsed.
	nextDay := time.Date(2026, 3, 16, 10, 0, 0, 0, time.FixedZone("EST", -5*60*60))
	if got := domain.ResolveSubscription(&validUntil, nextDay); got != domain.SubscriptionExpired {
		t.Errorf("day after expiry: got %v, want %v", got, domain.SubscriptionExpired)
	}
}

func datePtr(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}
