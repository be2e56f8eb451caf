package domain

import "time"

// SubscriptionStatus represents the resolved state of an identity's validity window.
type SubscriptionStatus string

const (
	SubscriptionInactive SubscriptionStatus = "INACTIVE"
	SubscriptionExpired  SubscriptionStatus = "EXPIRED"
	SubscriptionActive   SubscriptionStatus = "ACTIVE"
)

// ResolveSubscription maps a validity window onto a status at day granularity.
// A nil window means no subscription was ever set, which is a valid inactive
// state rather than an error. Time-of-day and zone on either argument are
// ignored: both instants are reduced to their UTC calendar date before
// comparison, so the answer does not depend on where the server runs.
func ResolveSubscription(validUntil *time.Time, now time.Time) SubscriptionStatus {
	if validUntil == nil {
		return SubscriptionInactive
	}
	if dateOf(*validUntil).Before(dateOf(now)) {
		return SubscriptionExpired
	}
	return SubscriptionActive
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
