package memory

import (
	"context"
	"sort"
	"sync"

	"record-storefront/internal/domain"
	"record-storefront/internal/storage"
)

type eventKey struct {
	submissionID string
	status       domain.MintStatus
}

// MintEventStore is an in-memory implementation of storage.MintEventStore.
type MintEventStore struct {
	mu     sync.RWMutex
	events []*domain.MintEvent
	keys   map[eventKey]struct{}
}

// NewMintEventStore creates a new in-memory mint event store.
func NewMintEventStore() *MintEventStore {
	return &MintEventStore{
		keys: make(map[eventKey]struct{}),
	}
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *MintEventStore) InsertBulk(_ context.Context, events []*domain.MintEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[eventKey]struct{}, len(events))
	for _, e := range events {
		if e == nil || e.SubmissionID == "" || e.Status == "" {
			return storage.ErrInvalidInput
		}
		k := eventKey{e.SubmissionID, e.Status}
		if _, exists := s.keys[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, e := range events {
		copy := *e
		s.events = append(s.events, &copy)
		s.keys[eventKey{e.SubmissionID, e.Status}] = struct{}{}
	}
	return nil
}

// GetByRecord retrieves all events for a record, ordered by timestamp ASC.
func (s *MintEventStore) GetByRecord(_ context.Context, record string) ([]*domain.MintEvent, error) {
	return s.filter(func(e *domain.MintEvent) bool { return e.RecordAddress == record }), nil
}

// GetBySubmission retrieves all events of one submission, ordered by timestamp ASC.
func (s *MintEventStore) GetBySubmission(_ context.Context, submissionID string) ([]*domain.MintEvent, error) {
	return s.filter(func(e *domain.MintEvent) bool { return e.SubmissionID == submissionID }), nil
}

func (s *MintEventStore) filter(match func(*domain.MintEvent) bool) []*domain.MintEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MintEvent
	for _, e := range s.events {
		if match(e) {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})
	return result
}

var _ storage.MintEventStore = (*MintEventStore)(nil)
