package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/access-gate/internal/domain"
)

// ScanEventStore is an in-memory append-only audit log.
type ScanEventStore struct {
	mu     sync.Mutex
	events []domain.ScanEvent
}

// NewScanEventStore builds an empty store.
func NewScanEventStore() *ScanEventStore {
	return &ScanEventStore{}
}

func (s *ScanEventStore) Create(_ context.Context, event *domain.ScanEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event.ID = uuid.NewString()
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	s.events = append(s.events, *event)
	return nil
}

func (s *ScanEventStore) ListByIdentity(_ context.Context, identityID string, limit, offset int) ([]domain.ScanEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var matched []domain.ScanEvent
	for _, event := range s.events {
		if event.IdentityID != nil && *event.IdentityID == identityID {
			matched = append(matched, event)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].OccurredAt.After(matched[j].OccurredAt)
	})

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *ScanEventStore) Rollup(_ context.Context, start, end time.Time) (*domain.ScanRollup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	startDay := dateOf(start)
	endDay := dateOf(end)

	rollup := &domain.ScanRollup{}
	seen := make(map[string]struct{})
	for _, event := range s.events {
		day := dateOf(event.OccurredAt)
		if day.Before(startDay) || day.After(endDay) {
			continue
		}
		rollup.TotalScans++
		switch event.Kind {
		case domain.ScanKindEntry:
			rollup.EntryScans++
		case domain.ScanKindExit:
			rollup.ExitScans++
		}
		if event.IdentityID != nil {
			seen[*event.IdentityID] = struct{}{}
		}
	}
	rollup.UniqueIdentities = int64(len(seen))
	return rollup, nil
}

// DeleteByIdentity drops all events belonging to the identity, mirroring the
// schema's delete cascade.
func (s *ScanEventStore) DeleteByIdentity(identityID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	for _, event := range s.events {
		if event.IdentityID != nil && *event.IdentityID == identityID {
			continue
		}
		kept = append(kept, event)
	}
	s.events = kept
}

// Events returns a copy of all recorded events. Test-only helper.
func (s *ScanEventStore) Events() []domain.ScanEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ScanEvent, len(s.events))
	copy(out, s.events)
	return out
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
